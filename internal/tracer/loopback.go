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
	"github.com/holiman/uint256"

	"github.com/shadowvm/shadowtrace/common/types"
	"github.com/shadowvm/shadowtrace/internal/vm"
	"github.com/shadowvm/shadowtrace/modules/state"
	"github.com/shadowvm/shadowtrace/pkg/errors"
)

// MachineState adapts a reference machine to the FastState snapshot
// contract. The CLI and the tests use it to drive the tracer in loopback
// mode, where a second reference machine plays the fast interpreter.
type MachineState struct {
	m      *vm.Machine
	cursor uint64
}

// NewMachineState wraps m as an observable snapshot.
func NewMachineState(m *vm.Machine) *MachineState {
	return &MachineState{m: m}
}

func (s *MachineState) Cursor() uint64               { return s.cursor }
func (s *MachineState) GasUsed() uint64              { return s.m.GasUsed() }
func (s *MachineState) StackData() []uint256.Int    { return s.m.Stack().Data() }
func (s *MachineState) MemoryData() []byte           { return s.m.Memory().Data() }
func (s *MachineState) ReturnData() []byte           { return s.m.ReturnData() }
func (s *MachineState) Halted() (bool, bool)         { return s.m.Stopped(), s.m.Reverted() }

func (s *MachineState) AccessListCounts() (int, int) {
	al := s.m.State().AccessList()
	return al.AddressCount(), al.SlotCount()
}

func (s *MachineState) Failed() error {
	if err := s.m.HaltReason(); err != nil && !errors.IsHalt(err) {
		return err
	}
	return nil
}

var _ FastState = (*MachineState)(nil)

// LoopbackContext carries the call-frame seed for a loopback run.
type LoopbackContext struct {
	Caller types.Address
	Callee types.Address
	Value  *uint256.Int
	Input  []byte
}

// RunLoopback executes code on a mirror machine acting as the fast
// interpreter and feeds every dispatch through the tracer's observer
// contract, so the reference machine inside the tracer is synchronized and
// diffed against the mirror. Both machines start from the same transaction
// state; the mirror runs on a deep copy of it.
//
// The returned error is the mirror's halt reason for failed frames, nil for
// stopped and ErrExecutionReverted for reverted ones.
func RunLoopback(t *DefaultTracer, code []byte, gasLimit uint64, st *state.IntraState, ctx LoopbackContext) error {
	if st == nil {
		st = state.New()
	}
	// The mirror gets a deep copy: identical pre-state, but its own access
	// list, so both sides see the same cold/warm schedule.
	mirror := vm.NewMachine(code, gasLimit, st.Copy())
	mirror.SetCallContext(ctx.Caller, ctx.Callee, ctx.Value, ctx.Input)
	defer mirror.Release()

	ref := t.StartExecution(code, gasLimit, st)
	ref.SetCallContext(ctx.Caller, ctx.Callee, ctx.Value, ctx.Input)

	snap := NewMachineState(mirror)
	t.OnFrameStart(len(code), gasLimit, 0)

	for !mirror.Halted() {
		var op vm.OpCode
		if pc := mirror.PC(); pc < uint64(len(code)) {
			op = vm.OpCode(code[pc])
		} else {
			op = vm.STOP
		}
		fop := FastOp(op)
		snap.cursor = mirror.PC()

		t.BeforeInstruction(fop, snap)
		stepErr := mirror.Step()

		if mirror.Halted() {
			t.OnFrameComplete(mirror.GasRemaining(), len(mirror.ReturnData()))
			t.AfterComplete(fop, snap)
			if errors.Is(stepErr, errors.ErrExecutionStopped) {
				return nil
			}
			return stepErr
		}
		t.AfterInstruction(fop, snap)
	}
	return mirror.HaltReason()
}
