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

// Package vm implements the reference interpreter: a program-counter-driven
// EVM that executes raw bytecode one opcode at a time with exact semantics
// and gas accounting. It is the ground truth the synchronization engine
// validates the fast interpreter against.
package vm

import (
	"github.com/holiman/uint256"

	"github.com/shadowvm/shadowtrace/common/types"
	"github.com/shadowvm/shadowtrace/internal/vm/evmtypes"
	"github.com/shadowvm/shadowtrace/internal/vm/stack"
	"github.com/shadowvm/shadowtrace/modules/state"
	"github.com/shadowvm/shadowtrace/pkg/errors"
)

// StorageChange records the most recent SSTORE for trace emission.
type StorageChange struct {
	Address types.Address
	Slot    types.Hash
	Prev    uint256.Int
	Value   uint256.Int
}

// Machine is one execution frame of the reference interpreter. It owns its
// stack and memory; storage, transient storage and the access list live on
// the shared transaction state.
type Machine struct {
	code     []byte
	analysis bitvec
	table    *JumpTable

	pc     uint64
	stack  *stack.Stack
	memory *Memory
	state  *state.IntraState

	gasLimit     uint64
	gasRemaining uint64
	refund       uint64

	// Call context, immutable after SetCallContext.
	caller types.Address
	self   types.Address
	value  uint256.Int
	input  []byte
	depth  int
	static bool

	blockCtx evmtypes.BlockContext
	txCtx    evmtypes.TxContext

	// Halt state. Exactly one of running / stopped / reverted holds;
	// haltErr repeats the original halt result on further Step calls.
	stopped    bool
	reverted   bool
	haltErr    error
	returnData []byte

	// Return data of the most recent call-family opcode, read by
	// RETURNDATASIZE and RETURNDATACOPY.
	lastCallReturn []byte

	// Most recent SSTORE, read by the tracer for storage_change events.
	LastStorageChange *StorageChange
}

// NewMachine initializes a frame over code with the given gas budget.
// PC starts at 0, the stack and memory are empty, and the JUMPDEST bitmap is
// computed (or fetched from the analysis cache) up front.
func NewMachine(code []byte, gasLimit uint64, st *state.IntraState) *Machine {
	if st == nil {
		st = state.New()
	}
	return &Machine{
		code:         code,
		analysis:     jumpdestAnalysis(code),
		table:        &cancunInstructionSet,
		stack:        stack.New(),
		memory:       NewMemory(),
		state:        st,
		gasLimit:     gasLimit,
		gasRemaining: gasLimit,
		txCtx:        evmtypes.TxContext{ChainID: uint256.NewInt(1)},
	}
}

// SetCallContext sets the immutable call-frame fields. Must be called before
// the first step.
func (m *Machine) SetCallContext(caller, callee types.Address, value *uint256.Int, input []byte) {
	m.caller = caller
	m.self = callee
	if value != nil {
		m.value = *value
	}
	m.input = input
}

// SetDepth sets the host call-stack depth reported in trace events.
func (m *Machine) SetDepth(depth int) { m.depth = depth }

// SetStatic marks the frame as a read-only (STATICCALL) context.
func (m *Machine) SetStatic(static bool) { m.static = static }

// SetBlockContext overrides the default (zero) block context.
func (m *Machine) SetBlockContext(ctx evmtypes.BlockContext) { m.blockCtx = ctx }

// SetTxContext overrides the default transaction context.
func (m *Machine) SetTxContext(ctx evmtypes.TxContext) { m.txCtx = ctx }

// Release returns pooled resources. The machine must not be used afterwards.
func (m *Machine) Release() {
	if m.stack != nil {
		stack.ReturnNormalStack(m.stack)
		m.stack = nil
	}
}

// =============================================================================
// Accessors
// =============================================================================

func (m *Machine) PC() uint64                { return m.pc }
func (m *Machine) GasRemaining() uint64      { return m.gasRemaining }
func (m *Machine) GasUsed() uint64           { return m.gasLimit - m.gasRemaining }
func (m *Machine) Refund() uint64            { return m.refund }
func (m *Machine) Stopped() bool             { return m.stopped }
func (m *Machine) Reverted() bool            { return m.reverted }
func (m *Machine) Halted() bool              { return m.stopped || m.reverted }

// HaltReason returns the halt result: nil while running,
// ErrExecutionStopped / ErrExecutionReverted on a regular halt, or the
// execution error that failed the frame.
func (m *Machine) HaltReason() error { return m.haltErr }
func (m *Machine) ReturnData() []byte        { return m.returnData }
func (m *Machine) Stack() *stack.Stack       { return m.stack }
func (m *Machine) Memory() *Memory           { return m.memory }
func (m *Machine) State() *state.IntraState  { return m.state }
func (m *Machine) Code() []byte              { return m.code }
func (m *Machine) Depth() int                { return m.depth }
func (m *Machine) Self() types.Address       { return m.self }
func (m *Machine) Caller() types.Address     { return m.caller }
func (m *Machine) Static() bool              { return m.static }

// StackItem returns the item n entries below the top, or zero when the stack
// is shallower. Used by the C ABI.
func (m *Machine) StackItem(indexFromTop int) uint256.Int {
	if indexFromTop < 0 || indexFromTop >= m.stack.Len() {
		return uint256.Int{}
	}
	return *m.stack.Back(indexFromTop)
}

// PushStack pushes w, reporting false when the stack is full.
func (m *Machine) PushStack(w *uint256.Int) bool {
	if uint64(m.stack.Len()) >= stack.Limit {
		return false
	}
	m.stack.Push(w)
	return true
}

// PopStack pops the top item, reporting false when the stack is empty.
func (m *Machine) PopStack() (uint256.Int, bool) {
	if m.stack.Len() == 0 {
		return uint256.Int{}, false
	}
	return m.stack.Pop(), true
}

// ReadMemory returns the byte at offset, zero beyond the current size.
func (m *Machine) ReadMemory(offset uint64) byte {
	if offset >= uint64(m.memory.Len()) {
		return 0
	}
	return m.memory.Data()[offset]
}

// ReadMemoryWord returns the 32-byte big-endian word at offset, zero-padded
// beyond the current size.
func (m *Machine) ReadMemoryWord(offset uint64) (out [32]byte) {
	data := m.memory.Data()
	for i := uint64(0); i < 32; i++ {
		if offset+i < uint64(len(data)) {
			out[i] = data[offset+i]
		}
	}
	return out
}

// =============================================================================
// Execution
// =============================================================================

// Step executes the opcode at PC: fetch, validate, charge gas, execute,
// advance. On halt it records the halt state and keeps returning the same
// result without further side effects.
func (m *Machine) Step() error {
	if m.Halted() {
		return m.haltErr
	}
	if m.pc >= uint64(len(m.code)) {
		// Running off the end of the code is an implicit STOP.
		return m.halt(errors.ErrExecutionStopped, nil)
	}
	return m.exec(OpCode(m.code[m.pc]))
}

// ExecuteOpcode executes op as if it were the byte at PC without reading the
// bytecode byte. PUSH opcodes still consume their immediates from the
// bytecode. The synchronization engine uses this to drive primitive steps
// whose dispatch the fast interpreter has already decided.
func (m *Machine) ExecuteOpcode(op OpCode) error {
	if m.Halted() {
		return m.haltErr
	}
	return m.exec(op)
}

// Execute repeatedly steps until the frame halts. Running an already-halted
// machine is a no-op returning the original halt result.
func (m *Machine) Execute() error {
	for {
		if err := m.Step(); err != nil {
			return err
		}
	}
}

func (m *Machine) exec(op OpCode) error {
	operation := m.table[op]
	if operation == nil {
		return m.fail(errors.Wrapf(errors.ErrInvalidOpcode, "opcode %#x", int(op)))
	}
	// Stack bounds.
	if sLen := m.stack.Len(); sLen < operation.minStack {
		return m.fail(errors.Wrapf(errors.ErrStackUnderflow, "%s wants %d, have %d", op, operation.minStack, sLen))
	} else if sLen > operation.maxStack {
		return m.fail(errors.Wrapf(errors.ErrStackOverflow, "%s at depth %d", op, sLen))
	}
	// Constant gas.
	if !m.useGas(operation.constantGas) {
		return m.fail(errors.ErrOutOfGas)
	}
	// Memory sizing and dynamic gas. Expansion cost is folded into the
	// per-op dynamic cost before memory actually grows.
	var memorySize uint64
	if operation.memorySize != nil {
		memSize, overflow := operation.memorySize(m.stack)
		if overflow {
			return m.fail(errors.ErrMemoryLimit)
		}
		if memorySize, overflow = safeMul(wordCount(memSize), 32); overflow {
			return m.fail(errors.ErrMemoryLimit)
		}
	}
	if operation.dynamicGas != nil {
		cost, err := operation.dynamicGas(m, memorySize)
		if err != nil {
			return m.fail(err)
		}
		if !m.useGas(cost) {
			return m.fail(errors.ErrOutOfGas)
		}
	}
	if memorySize > 0 {
		m.memory.Resize(memorySize)
	}

	pc := m.pc
	err := operation.execute(&pc, m)
	switch {
	case err == nil:
		m.pc = pc + 1
		return nil
	case errors.Is(err, errors.ErrExecutionStopped):
		return m.halt(errors.ErrExecutionStopped, m.returnData)
	case errors.Is(err, errors.ErrExecutionReverted):
		// REVERT preserves the remaining gas.
		m.reverted = true
		m.haltErr = errors.ErrExecutionReverted
		return m.haltErr
	default:
		return m.fail(err)
	}
}

// useGas deducts amount, reporting false when the budget is exhausted.
func (m *Machine) useGas(amount uint64) bool {
	if m.gasRemaining < amount {
		return false
	}
	m.gasRemaining -= amount
	return true
}

// halt marks the frame stopped with the given return data.
func (m *Machine) halt(result error, ret []byte) error {
	m.stopped = true
	m.returnData = ret
	m.haltErr = result
	return result
}

// fail marks the frame failed: all remaining gas is consumed and the frame
// reports reverted. The original error is repeated on further Step calls.
func (m *Machine) fail(err error) error {
	m.reverted = true
	m.gasRemaining = 0
	m.returnData = nil
	m.haltErr = err
	return err
}

func wordToAddress(w *uint256.Int) types.Address {
	b := w.Bytes32()
	return types.BytesToAddress(b[12:])
}
