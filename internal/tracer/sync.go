// Copyright 2022-2026 The shadowtrace Authors
// This file is part of the shadowtrace library.
//
// The shadowtrace library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The shadowtrace library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the shadowtrace library. If not, see <http://www.gnu.org/licenses/>.

package tracer

import (
	"bytes"
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/davecgh/go-spew/spew"
	"github.com/holiman/uint256"

	"github.com/shadowvm/shadowtrace/internal/vm"
	"github.com/shadowvm/shadowtrace/log"
	"github.com/shadowvm/shadowtrace/pkg/errors"
)

var divergenceCounter = metrics.GetOrCreateCounter("shadowtrace_divergences_total")

// FastState is the fast interpreter's public observable snapshot, reachable
// through the opaque cursor handle delivered with each event. The engine
// reads it and nothing else: the observer never holds a reference into the
// fast interpreter's mutable state.
type FastState interface {
	// Cursor is the dispatch-schedule index of the current instruction.
	Cursor() uint64
	// GasUsed is the cumulative gas charged since frame start. The fast
	// interpreter batches charges per basic block, so this is only exact at
	// block boundaries.
	GasUsed() uint64
	// StackData returns the operand stack, bottom first.
	StackData() []uint256.Int
	// MemoryData returns the frame memory.
	MemoryData() []byte
	// Halted reports the halt flags.
	Halted() (stopped, reverted bool)
	// ReturnData returns the frame output after a halt.
	ReturnData() []byte
	// Failed returns the execution error the dispatch reported, nil on
	// success.
	Failed() error
	// AccessListCounts returns the cardinality of the warm address and
	// (address, slot) sets.
	AccessListCounts() (addresses, slots int)
}

// Divergence describes an observable difference between the fast and
// reference interpreters at a synchronization checkpoint. It is fatal to
// trace emission but never rolls back or stops the fast interpreter.
type Divergence struct {
	Kind        error
	Op          FastOp
	Depth       int
	GasUsed     uint64
	Description string
}

func (d *Divergence) Error() string {
	return fmt.Sprintf("%v at %s (depth %d, gas %d): %s",
		d.Kind, d.Op, d.Depth, d.GasUsed, d.Description)
}

// Unwrap exposes the divergence kind to errors.Is.
func (d *Divergence) Unwrap() error { return d.Kind }

// preState is the fast interpreter's snapshot taken in BeforeInstruction,
// used for divergence descriptions only.
type preState struct {
	cursor   uint64
	gasUsed  uint64
	stackLen int
	memSize  int
}

// SyncEngine drives the reference interpreter in lockstep with the fast
// interpreter's instruction events and diffs the two states. It owns the
// reference machine exclusively.
type SyncEngine struct {
	ref     *vm.Machine
	pctrack PCTracker

	pre         preState
	expectedGas uint64 // reference cumulative gas at the last block boundary
	logger      log.Logger
}

// NewSyncEngine creates an engine over its reference machine.
func NewSyncEngine(ref *vm.Machine) *SyncEngine {
	return &SyncEngine{
		ref:    ref,
		logger: log.New("module", "sync"),
	}
}

// Reference exposes the reference machine for event payload building. The
// caller must not mutate it.
func (e *SyncEngine) Reference() *vm.Machine { return e.ref }

// PCTracker exposes the tracker for the analysis hooks.
func (e *SyncEngine) PCTracker() *PCTracker { return &e.pctrack }

// BeforeInstruction records the fast pre-state of the upcoming dispatch.
// The reference interpreter is not advanced here.
func (e *SyncEngine) BeforeInstruction(op FastOp, fast FastState) {
	e.pre = preState{
		cursor:   fast.Cursor(),
		gasUsed:  fast.GasUsed(),
		stackLen: len(fast.StackData()),
		memSize:  len(fast.MemoryData()),
	}
	e.pctrack.RecordCursor(fast.Cursor())
}

// AfterInstruction advances the reference interpreter to the state logically
// equivalent to the completed fast dispatch and diffs the two machines.
// A non-nil return is always a *Divergence.
func (e *SyncEngine) AfterInstruction(op FastOp, fast FastState) error {
	refErr := e.advance(op)
	if refErr != nil && errors.Is(refErr, errors.ErrUnknownSyntheticOp) {
		return e.diverge(op, fast, errors.ErrUnknownSyntheticOp, refErr.Error())
	}

	// Success/failure must agree before any state is compared. Halt results
	// are not failures; they are checked in AfterComplete.
	fastErr := fast.Failed()
	refFailed := refErr != nil && !errors.IsHalt(refErr)
	switch {
	case refFailed && fastErr == nil:
		return e.diverge(op, fast, errors.ErrHaltMismatch,
			fmt.Sprintf("reference failed with %v, fast reported success", refErr))
	case !refFailed && fastErr != nil:
		return e.diverge(op, fast, errors.ErrHaltMismatch,
			fmt.Sprintf("fast failed with %v, reference succeeded", fastErr))
	case refFailed && fastErr != nil:
		// Both failed: matching errors surface as regular trace events.
		return nil
	}

	return e.diff(op, fast)
}

// AfterComplete validates a terminal dispatch: halt kinds and return data
// must match exactly.
func (e *SyncEngine) AfterComplete(op FastOp, fast FastState) error {
	fastStopped, fastReverted := fast.Halted()
	if !e.ref.Halted() {
		// The reference has not halted yet: the terminal opcode itself is
		// still pending (AfterComplete without AfterInstruction).
		if err := e.advance(op); err != nil && !errors.IsHalt(err) && fast.Failed() == nil {
			return e.diverge(op, fast, errors.ErrHaltMismatch,
				fmt.Sprintf("reference failed with %v on terminal op", err))
		}
		// A failure on both sides is error parity, validated through the
		// halt flags and gas below.
	}
	if e.ref.Stopped() != fastStopped || e.ref.Reverted() != fastReverted {
		return e.diverge(op, fast, errors.ErrHaltMismatch,
			fmt.Sprintf("halt flags fast(stopped=%t, reverted=%t) reference(stopped=%t, reverted=%t)",
				fastStopped, fastReverted, e.ref.Stopped(), e.ref.Reverted()))
	}
	if !bytes.Equal(e.ref.ReturnData(), fast.ReturnData()) {
		return e.diverge(op, fast, errors.ErrReturnDataMismatch,
			fmt.Sprintf("fast %d bytes, reference %d bytes", len(fast.ReturnData()), len(e.ref.ReturnData())))
	}
	// Terminal ops are always a gas boundary.
	if fast.GasUsed() != e.ref.GasUsed() {
		return e.diverge(op, fast, errors.ErrGasMismatch,
			fmt.Sprintf("fast %d, reference %d at halt", fast.GasUsed(), e.ref.GasUsed()))
	}
	return nil
}

// advance drives the reference machine by the primitive span of op: one
// forced opcode for primitives, N bytecode steps for synthetics.
func (e *SyncEngine) advance(op FastOp) error {
	if !op.IsSynthetic() {
		return e.ref.ExecuteOpcode(op.Primitive())
	}
	n, ok := FusionSteps(op)
	if !ok {
		return errors.Wrapf(errors.ErrUnknownSyntheticOp, "tag %#x", uint16(op))
	}
	for i := 0; i < n; i++ {
		if err := e.ref.Step(); err != nil {
			return err
		}
	}
	return nil
}

// diff compares the observable machine states after a synchronized step.
// Cumulative gas is only compared at basic-block boundaries; between them
// the reference total is carried as the expectation for the next boundary.
func (e *SyncEngine) diff(op FastOp, fast FastState) error {
	refStack := e.ref.Stack().Data()
	fastStack := fast.StackData()
	if len(refStack) != len(fastStack) {
		return e.diverge(op, fast, errors.ErrStackMismatch,
			fmt.Sprintf("depth fast %d, reference %d", len(fastStack), len(refStack)))
	}
	for i := len(refStack) - 1; i >= 0; i-- {
		if !refStack[i].Eq(&fastStack[i]) {
			return e.diverge(op, fast, errors.ErrStackMismatch,
				fmt.Sprintf("slot %d (from bottom) fast %s, reference %s",
					i, fastStack[i].Hex(), refStack[i].Hex()))
		}
	}

	refMem := e.ref.Memory().Data()
	fastMem := fast.MemoryData()
	if len(refMem) != len(fastMem) {
		return e.diverge(op, fast, errors.ErrMemoryMismatch,
			fmt.Sprintf("size fast %d, reference %d", len(fastMem), len(refMem)))
	}
	if !bytes.Equal(refMem, fastMem) {
		return e.diverge(op, fast, errors.ErrMemoryMismatch, firstMemoryDiff(fastMem, refMem))
	}

	fastStopped, fastReverted := fast.Halted()
	if e.ref.Stopped() != fastStopped || e.ref.Reverted() != fastReverted {
		return e.diverge(op, fast, errors.ErrHaltMismatch,
			fmt.Sprintf("halt flags fast(stopped=%t, reverted=%t) reference(stopped=%t, reverted=%t)",
				fastStopped, fastReverted, e.ref.Stopped(), e.ref.Reverted()))
	}

	if blockBoundaryOp(op) {
		if err := e.pctrack.VerifyJump(e.ref.PC()); err != nil {
			return e.diverge(op, fast, errors.ErrJumpTargetMismatch, err.Error())
		}
		if fast.GasUsed() != e.ref.GasUsed() {
			return e.diverge(op, fast, errors.ErrGasMismatch,
				fmt.Sprintf("fast %d, reference %d at block boundary", fast.GasUsed(), e.ref.GasUsed()))
		}
		e.expectedGas = e.ref.GasUsed()

		al := e.ref.State().AccessList()
		fastAddrs, fastSlots := fast.AccessListCounts()
		if al.AddressCount() != fastAddrs || al.SlotCount() != fastSlots {
			return e.diverge(op, fast, errors.ErrAccessListMismatch,
				fmt.Sprintf("fast (%d addrs, %d slots), reference (%d addrs, %d slots)",
					fastAddrs, fastSlots, al.AddressCount(), al.SlotCount()))
		}
	}
	return nil
}

// diverge builds the divergence record, bumps the counter and dumps the
// context at debug level.
func (e *SyncEngine) diverge(op FastOp, fast FastState, kind error, desc string) error {
	divergenceCounter.Inc()
	d := &Divergence{
		Kind:        kind,
		Op:          op,
		Depth:       e.ref.Depth(),
		GasUsed:     e.ref.GasUsed(),
		Description: desc,
	}
	e.logger.Error("interpreter divergence", "op", op.String(), "kind", kind, "desc", desc)
	e.logger.Debug("divergence pre-state", "dump", spew.Sdump(e.pre))
	return d
}

// firstMemoryDiff locates the first differing byte for the divergence
// description.
func firstMemoryDiff(fast, ref []byte) string {
	for i := range ref {
		if fast[i] != ref[i] {
			return fmt.Sprintf("first differing byte at offset %d: fast %#02x, reference %#02x",
				i, fast[i], ref[i])
		}
	}
	return "contents differ"
}

// ExpectedGas returns the reference cumulative gas recorded at the last
// basic-block boundary, the authoritative total until the next boundary.
func (e *SyncEngine) ExpectedGas() uint64 { return e.expectedGas }
