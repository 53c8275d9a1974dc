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
	"fmt"

	"github.com/shadowvm/shadowtrace/internal/vm"
)

// FastOp is an opcode as dispatched by the fast interpreter. Values at or
// below 0xFF are primitive EVM opcodes; values above 0xFF are synthetic
// fused instructions produced by the schedule builder.
type FastOp uint16

// Synthetic opcodes. Each one stands for a fixed sequence of primitive
// operations; the step counts in fusionSteps are derivable from the tag
// alone.
const (
	PUSH_ADD_INLINE FastOp = 0x100 + iota
	PUSH_MUL_INLINE
	PUSH_SUB_INLINE
	PUSH_DUP_SWAP
	PUSH_JUMP
	PUSH_JUMPI
	DUP2_MSTORE
	SWAP1_POP
	ISZERO_JUMPI
	FUNCTION_DISPATCH // PUSH4, EQ, PUSH, JUMPI
)

// IsSynthetic reports whether op is a fused instruction.
func (op FastOp) IsSynthetic() bool { return op > 0xFF }

// Primitive returns the underlying EVM opcode of a non-synthetic FastOp.
func (op FastOp) Primitive() vm.OpCode { return vm.OpCode(op) }

var syntheticNames = map[FastOp]string{
	PUSH_ADD_INLINE:   "PUSH_ADD_INLINE",
	PUSH_MUL_INLINE:   "PUSH_MUL_INLINE",
	PUSH_SUB_INLINE:   "PUSH_SUB_INLINE",
	PUSH_DUP_SWAP:     "PUSH_DUP_SWAP",
	PUSH_JUMP:         "PUSH_JUMP",
	PUSH_JUMPI:        "PUSH_JUMPI",
	DUP2_MSTORE:       "DUP2_MSTORE",
	SWAP1_POP:         "SWAP1_POP",
	ISZERO_JUMPI:      "ISZERO_JUMPI",
	FUNCTION_DISPATCH: "FUNCTION_DISPATCH",
}

func (op FastOp) String() string {
	if !op.IsSynthetic() {
		return op.Primitive().String()
	}
	if name, ok := syntheticNames[op]; ok {
		return name
	}
	return fmt.Sprintf("synthetic %#x not defined", uint16(op))
}

// fusionSteps maps every synthetic opcode to the number of primitive
// reference steps it spans. The table is total over the synthetic set; the
// engine treats a missing entry as a divergence, never as zero.
var fusionSteps = map[FastOp]int{
	PUSH_ADD_INLINE:   2, // PUSH, ADD
	PUSH_MUL_INLINE:   2, // PUSH, MUL
	PUSH_SUB_INLINE:   2, // PUSH, SUB
	PUSH_DUP_SWAP:     3, // PUSH, DUP, SWAP
	PUSH_JUMP:         2, // PUSH, JUMP
	PUSH_JUMPI:        2, // PUSH, JUMPI
	DUP2_MSTORE:       2, // DUP2, MSTORE
	SWAP1_POP:         2, // SWAP1, POP
	ISZERO_JUMPI:      2, // ISZERO, JUMPI
	FUNCTION_DISPATCH: 4, // PUSH4, EQ, PUSH, JUMPI
}

// FusionSteps returns the primitive span of a synthetic opcode. ok is false
// for unknown tags and for primitive opcodes.
func FusionSteps(op FastOp) (n int, ok bool) {
	n, ok = fusionSteps[op]
	return n, ok
}

// terminalOp reports whether the (primitive) opcode halts the frame.
func terminalOp(op vm.OpCode) bool {
	switch op {
	case vm.STOP, vm.RETURN, vm.REVERT, vm.INVALID, vm.SELFDESTRUCT:
		return true
	}
	return false
}

// blockBoundaryOp reports whether the opcode ends a basic block for gas
// reconciliation: the fast interpreter batches gas per block, so cumulative
// gas is only comparable here.
func blockBoundaryOp(op FastOp) bool {
	if op.IsSynthetic() {
		switch op {
		case PUSH_JUMP, PUSH_JUMPI, ISZERO_JUMPI, FUNCTION_DISPATCH:
			return true
		}
		return false
	}
	switch op.Primitive() {
	case vm.JUMPDEST, vm.JUMP, vm.JUMPI:
		return true
	}
	return terminalOp(op.Primitive())
}
