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
	"testing"

	"github.com/holiman/uint256"

	"github.com/shadowvm/shadowtrace/common/hexutil"
	"github.com/shadowvm/shadowtrace/internal/vm"
	"github.com/shadowvm/shadowtrace/modules/state"
	"github.com/shadowvm/shadowtrace/pkg/errors"
)

// fakeFast is a hand-rolled fast-interpreter snapshot for driving the engine
// without a real fast interpreter.
type fakeFast struct {
	cursor   uint64
	gasUsed  uint64
	stack    []uint256.Int
	memory   []byte
	stopped  bool
	reverted bool
	ret      []byte
	err      error
	alAddrs  int
	alSlots  int
}

func (f *fakeFast) Cursor() uint64            { return f.cursor }
func (f *fakeFast) GasUsed() uint64           { return f.gasUsed }
func (f *fakeFast) StackData() []uint256.Int  { return f.stack }
func (f *fakeFast) MemoryData() []byte        { return f.memory }
func (f *fakeFast) Halted() (bool, bool)      { return f.stopped, f.reverted }
func (f *fakeFast) ReturnData() []byte        { return f.ret }
func (f *fakeFast) Failed() error             { return f.err }
func (f *fakeFast) AccessListCounts() (int, int) { return f.alAddrs, f.alSlots }

func newEngine(t *testing.T, codeHex string, gas uint64) *SyncEngine {
	t.Helper()
	m := vm.NewMachine(hexutil.MustDecode(codeHex), gas, state.New())
	t.Cleanup(m.Release)
	return NewSyncEngine(m)
}

func words(vals ...uint64) []uint256.Int {
	out := make([]uint256.Int, len(vals))
	for i, v := range vals {
		out[i] = *uint256.NewInt(v)
	}
	return out
}

// =============================================================================
// Primitive synchronization
// =============================================================================

func TestPrimitiveOpAdvancesOneStep(t *testing.T) {
	e := newEngine(t, "0x600a60050100", 100)

	fast := &fakeFast{stack: words(10), gasUsed: 3}
	e.BeforeInstruction(FastOp(vm.PUSH1), fast)
	if err := e.AfterInstruction(FastOp(vm.PUSH1), fast); err != nil {
		t.Fatalf("primitive sync failed: %v", err)
	}
	if e.Reference().PC() != 2 {
		t.Errorf("reference should advance past the PUSH, pc=%d", e.Reference().PC())
	}
}

// =============================================================================
// Fused synchronization
// =============================================================================

// A fused PUSH_ADD_INLINE with operand 5 over top-of-stack 10: one fast
// event, exactly two primitive reference steps, resulting top 15, gas 3+3.
func TestFusedPushAddInline(t *testing.T) {
	e := newEngine(t, "0x600a60050100", 100)

	// First the primitive PUSH1 10.
	fast := &fakeFast{cursor: 0, stack: words(10), gasUsed: 3}
	e.BeforeInstruction(FastOp(vm.PUSH1), fast)
	if err := e.AfterInstruction(FastOp(vm.PUSH1), fast); err != nil {
		t.Fatalf("PUSH1 sync: %v", err)
	}
	gasBefore := e.Reference().GasUsed()

	// Then the fused PUSH1 5 + ADD as a single fast event.
	fast = &fakeFast{cursor: 1, stack: words(15), gasUsed: 9}
	e.BeforeInstruction(PUSH_ADD_INLINE, fast)
	if err := e.AfterInstruction(PUSH_ADD_INLINE, fast); err != nil {
		t.Fatalf("fused sync: %v", err)
	}

	ref := e.Reference()
	if top := ref.Stack().Peek(); top.Uint64() != 15 {
		t.Errorf("reference top should be 15, got %v", top)
	}
	if diff := ref.GasUsed() - gasBefore; diff != 6 {
		t.Errorf("fused span should charge 3+3 gas, got %d", diff)
	}
	if ref.PC() != 5 {
		t.Errorf("reference should sit on STOP, pc=%d", ref.PC())
	}
}

func TestUnknownSyntheticOpDiverges(t *testing.T) {
	e := newEngine(t, "0x600a60050100", 100)

	fast := &fakeFast{}
	err := e.AfterInstruction(FastOp(0x5ff), fast)
	if !errors.Is(err, errors.ErrUnknownSyntheticOp) {
		t.Fatalf("expected ErrUnknownSyntheticOp, got %v", err)
	}
}

func TestFusionTableTotals(t *testing.T) {
	tests := map[FastOp]int{
		PUSH_ADD_INLINE:   2,
		PUSH_MUL_INLINE:   2,
		FUNCTION_DISPATCH: 4,
	}
	for op, want := range tests {
		n, ok := FusionSteps(op)
		if !ok || n != want {
			t.Errorf("FusionSteps(%s) = %d, %t; want %d", op, n, ok, want)
		}
	}
	if _, ok := FusionSteps(FastOp(vm.ADD)); ok {
		t.Error("primitive opcodes have no fusion span")
	}
}

// =============================================================================
// State diff
// =============================================================================

func TestStackDivergenceDetected(t *testing.T) {
	e := newEngine(t, "0x600a", 100)

	// The fast side lies: claims 11 on top after PUSH1 10.
	fast := &fakeFast{stack: words(11), gasUsed: 3}
	e.BeforeInstruction(FastOp(vm.PUSH1), fast)
	err := e.AfterInstruction(FastOp(vm.PUSH1), fast)
	if !errors.Is(err, errors.ErrStackMismatch) {
		t.Fatalf("expected ErrStackMismatch, got %v", err)
	}
	var d *Divergence
	if !errors.As(err, &d) {
		t.Fatal("sync errors must be *Divergence")
	}
	if d.Op != FastOp(vm.PUSH1) || d.Description == "" {
		t.Errorf("divergence should carry op and description, got %+v", d)
	}
}

func TestStackDepthDivergence(t *testing.T) {
	e := newEngine(t, "0x600a", 100)

	fast := &fakeFast{stack: words(10, 10), gasUsed: 3}
	err := e.AfterInstruction(FastOp(vm.PUSH1), fast)
	if !errors.Is(err, errors.ErrStackMismatch) {
		t.Fatalf("expected depth mismatch, got %v", err)
	}
}

func TestMemoryDivergenceDetected(t *testing.T) {
	// PUSH1 1, PUSH1 0, MSTORE8
	e := newEngine(t, "0x6001600053", 100_000)

	drive := func(op vm.OpCode, fast *fakeFast) error {
		e.BeforeInstruction(FastOp(op), fast)
		return e.AfterInstruction(FastOp(op), fast)
	}
	if err := drive(vm.PUSH1, &fakeFast{stack: words(1), gasUsed: 3}); err != nil {
		t.Fatal(err)
	}
	if err := drive(vm.PUSH1, &fakeFast{stack: words(1, 0), gasUsed: 6}); err != nil {
		t.Fatal(err)
	}
	// Fast claims an empty memory although MSTORE8 grew it to one word.
	err := drive(vm.MSTORE8, &fakeFast{gasUsed: 15})
	if !errors.Is(err, errors.ErrMemoryMismatch) {
		t.Fatalf("expected ErrMemoryMismatch, got %v", err)
	}
}

func TestGasComparedOnlyAtBlockBoundary(t *testing.T) {
	// PUSH1 10 with a bogus fast gas total: between boundaries the engine
	// must not flag it.
	e := newEngine(t, "0x600a5b00", 100)

	fast := &fakeFast{stack: words(10), gasUsed: 77}
	if err := e.AfterInstruction(FastOp(vm.PUSH1), fast); err != nil {
		t.Fatalf("mid-block gas must not be compared: %v", err)
	}

	// JUMPDEST is a boundary: now the totals must match.
	fast = &fakeFast{stack: words(10), gasUsed: 77}
	err := e.AfterInstruction(FastOp(vm.JUMPDEST), fast)
	if !errors.Is(err, errors.ErrGasMismatch) {
		t.Fatalf("expected ErrGasMismatch at boundary, got %v", err)
	}
}

func TestGasMatchAtBoundaryStoresExpectation(t *testing.T) {
	e := newEngine(t, "0x600a5b00", 100)

	fast := &fakeFast{stack: words(10), gasUsed: 3}
	if err := e.AfterInstruction(FastOp(vm.PUSH1), fast); err != nil {
		t.Fatal(err)
	}
	fast = &fakeFast{stack: words(10), gasUsed: 4}
	if err := e.AfterInstruction(FastOp(vm.JUMPDEST), fast); err != nil {
		t.Fatalf("matching boundary gas should pass: %v", err)
	}
	if e.ExpectedGas() != 4 {
		t.Errorf("boundary should store the reference total, got %d", e.ExpectedGas())
	}
}

// =============================================================================
// Halt validation
// =============================================================================

func TestAfterCompleteHaltKindMismatch(t *testing.T) {
	e := newEngine(t, "0x00", 100)

	fast := &fakeFast{reverted: true}
	err := e.AfterComplete(FastOp(vm.STOP), fast)
	if !errors.Is(err, errors.ErrHaltMismatch) {
		t.Fatalf("expected ErrHaltMismatch, got %v", err)
	}
}

func TestAfterCompleteReturnDataMismatch(t *testing.T) {
	// PUSH1 7, PUSH1 0, MSTORE, PUSH1 32, PUSH1 0, RETURN
	e := newEngine(t, "0x600760005260206000f3", 100_000)
	if err := e.Reference().Execute(); !errors.Is(err, errors.ErrExecutionStopped) {
		t.Fatalf("setup run: %v", err)
	}

	fast := &fakeFast{stopped: true, ret: []byte{1, 2, 3}, gasUsed: e.Reference().GasUsed()}
	err := e.AfterComplete(FastOp(vm.RETURN), fast)
	if !errors.Is(err, errors.ErrReturnDataMismatch) {
		t.Fatalf("expected ErrReturnDataMismatch, got %v", err)
	}
}

func TestAfterCompleteMatchingHalt(t *testing.T) {
	e := newEngine(t, "0x00", 100)

	fast := &fakeFast{stopped: true}
	if err := e.AfterComplete(FastOp(vm.STOP), fast); err != nil {
		t.Fatalf("matching halt should pass: %v", err)
	}
}

func TestErrorParityBothFail(t *testing.T) {
	// ADD on an empty stack fails both sides identically.
	e := newEngine(t, "0x01", 100)

	fast := &fakeFast{err: errors.ErrStackUnderflow}
	if err := e.AfterInstruction(FastOp(vm.ADD), fast); err != nil {
		t.Fatalf("matching failures are not a divergence: %v", err)
	}
}

func TestErrorParityOnlyReferenceFails(t *testing.T) {
	e := newEngine(t, "0x01", 100)

	fast := &fakeFast{}
	err := e.AfterInstruction(FastOp(vm.ADD), fast)
	if !errors.Is(err, errors.ErrHaltMismatch) {
		t.Fatalf("one-sided failure must diverge, got %v", err)
	}
}

// =============================================================================
// PC tracking
// =============================================================================

func TestPCTrackerStaticJumpVerify(t *testing.T) {
	var pt PCTracker
	pt.NoteStaticJump(4)
	if err := pt.VerifyJump(4); err != nil {
		t.Fatalf("matching target should verify: %v", err)
	}
	// The pending target is consumed.
	if err := pt.VerifyJump(99); err != nil {
		t.Fatalf("no pending target accepts any pc: %v", err)
	}

	pt.NoteStaticJump(4)
	if err := pt.VerifyJump(5); !errors.Is(err, errors.ErrJumpTargetMismatch) {
		t.Fatalf("expected ErrJumpTargetMismatch, got %v", err)
	}
}

func TestPCTrackerCursorProgress(t *testing.T) {
	var pt PCTracker
	if !pt.RecordCursor(0) {
		t.Error("first cursor always counts as progress")
	}
	if !pt.RecordCursor(1) {
		t.Error("forward cursor is progress")
	}
	if pt.RecordCursor(0) {
		t.Error("backward cursor (a jump) is not forward progress")
	}
}

// =============================================================================
// Static jump verification against the reference machine
// =============================================================================

func TestStaticJumpVerifiedAtBoundary(t *testing.T) {
	// PUSH1 4, JUMP, INVALID, JUMPDEST, STOP
	e := newEngine(t, "0x600456fe5b00", 100)

	fast := &fakeFast{stack: words(4), gasUsed: 3}
	if err := e.AfterInstruction(FastOp(vm.PUSH1), fast); err != nil {
		t.Fatal(err)
	}
	e.PCTracker().NoteStaticJump(4)
	fast = &fakeFast{gasUsed: 11}
	if err := e.AfterInstruction(FastOp(vm.JUMP), fast); err != nil {
		t.Fatalf("correctly resolved static jump should verify: %v", err)
	}

	// And a wrong resolution is flagged.
	e2 := newEngine(t, "0x600456fe5b00", 100)
	fast = &fakeFast{stack: words(4), gasUsed: 3}
	if err := e2.AfterInstruction(FastOp(vm.PUSH1), fast); err != nil {
		t.Fatal(err)
	}
	e2.PCTracker().NoteStaticJump(3)
	fast = &fakeFast{gasUsed: 11}
	err := e2.AfterInstruction(FastOp(vm.JUMP), fast)
	if !errors.Is(err, errors.ErrJumpTargetMismatch) {
		t.Fatalf("expected ErrJumpTargetMismatch, got %v", err)
	}
}
