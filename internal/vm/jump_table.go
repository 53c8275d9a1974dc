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

package vm

import (
	"github.com/holiman/uint256"

	"github.com/shadowvm/shadowtrace/internal/vm/stack"
	"github.com/shadowvm/shadowtrace/params"
)

type (
	executionFunc  func(pc *uint64, m *Machine) error
	gasFunc        func(m *Machine, memorySize uint64) (uint64, error)
	memorySizeFunc func(st *stack.Stack) (size uint64, overflow bool)
)

// operation holds everything needed to validate and execute one opcode.
type operation struct {
	execute     executionFunc
	constantGas uint64
	dynamicGas  gasFunc
	// minStack tells how many stack items are required
	minStack int
	// maxStack specifies the max length the stack can have for this operation
	// to not overflow the stack
	maxStack int
	// memorySize returns the memory size required for the operation
	memorySize memorySizeFunc
}

// JumpTable contains the EVM opcodes supported at a given fork.
type JumpTable [256]*operation

func minStack(pops, push int) int {
	return pops
}

func maxStack(pops, push int) int {
	return int(params.StackLimit) + pops - push
}

// calcMemSize64 calculates the required memory size as offset + length,
// flagging uint64 overflow.
func calcMemSize64(off, l *uint256.Int) (uint64, bool) {
	if !l.IsUint64() {
		return 0, true
	}
	length := l.Uint64()
	if length == 0 {
		return 0, false
	}
	offset, overflow := off.Uint64WithOverflow()
	if overflow {
		return 0, true
	}
	val := offset + length
	return val, val < offset
}

func memoryMLoad(st *stack.Stack) (uint64, bool) {
	return calcMemSize64(st.Back(0), uint256.NewInt(32))
}

func memoryMStore(st *stack.Stack) (uint64, bool) {
	return calcMemSize64(st.Back(0), uint256.NewInt(32))
}

func memoryMStore8(st *stack.Stack) (uint64, bool) {
	return calcMemSize64(st.Back(0), uint256.NewInt(1))
}

func memoryKeccak256(st *stack.Stack) (uint64, bool) {
	return calcMemSize64(st.Back(0), st.Back(1))
}

func memoryCopier(st *stack.Stack) (uint64, bool) {
	return calcMemSize64(st.Back(0), st.Back(2))
}

func memoryExtCodeCopy(st *stack.Stack) (uint64, bool) {
	return calcMemSize64(st.Back(1), st.Back(3))
}

func memoryMcopy(st *stack.Stack) (uint64, bool) {
	dst, over := calcMemSize64(st.Back(0), st.Back(2))
	if over {
		return 0, true
	}
	src, over := calcMemSize64(st.Back(1), st.Back(2))
	if over {
		return 0, true
	}
	if src > dst {
		return src, false
	}
	return dst, false
}

func memoryLog(st *stack.Stack) (uint64, bool) {
	return calcMemSize64(st.Back(0), st.Back(1))
}

func memoryReturn(st *stack.Stack) (uint64, bool) {
	return calcMemSize64(st.Back(0), st.Back(1))
}

func memoryCreate(st *stack.Stack) (uint64, bool) {
	return calcMemSize64(st.Back(1), st.Back(2))
}

// memoryCall covers CALL and CALLCODE: args at (3,4), return area at (5,6).
func memoryCall(st *stack.Stack) (uint64, bool) {
	x, overflow := calcMemSize64(st.Back(5), st.Back(6))
	if overflow {
		return 0, true
	}
	y, overflow := calcMemSize64(st.Back(3), st.Back(4))
	if overflow {
		return 0, true
	}
	if x > y {
		return x, false
	}
	return y, false
}

// memoryDelegateCall covers DELEGATECALL and STATICCALL: no value operand.
func memoryDelegateCall(st *stack.Stack) (uint64, bool) {
	x, overflow := calcMemSize64(st.Back(4), st.Back(5))
	if overflow {
		return 0, true
	}
	y, overflow := calcMemSize64(st.Back(2), st.Back(3))
	if overflow {
		return 0, true
	}
	if x > y {
		return x, false
	}
	return y, false
}

// cancunInstructionSet is the single rule set the reference interpreter
// implements. It is immutable after init and shared by all machines.
var cancunInstructionSet = newCancunInstructionSet()

func newCancunInstructionSet() JumpTable {
	tbl := JumpTable{
		STOP: {
			execute:  opStop,
			minStack: minStack(0, 0),
			maxStack: maxStack(0, 0),
		},
		ADD: {
			execute:     opAdd,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		MUL: {
			execute:     opMul,
			constantGas: params.GasFastStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		SUB: {
			execute:     opSub,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		DIV: {
			execute:     opDiv,
			constantGas: params.GasFastStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		SDIV: {
			execute:     opSdiv,
			constantGas: params.GasFastStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		MOD: {
			execute:     opMod,
			constantGas: params.GasFastStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		SMOD: {
			execute:     opSmod,
			constantGas: params.GasFastStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		ADDMOD: {
			execute:     opAddmod,
			constantGas: params.GasMidStep,
			minStack:    minStack(3, 1),
			maxStack:    maxStack(3, 1),
		},
		MULMOD: {
			execute:     opMulmod,
			constantGas: params.GasMidStep,
			minStack:    minStack(3, 1),
			maxStack:    maxStack(3, 1),
		},
		EXP: {
			execute:    opExp,
			dynamicGas: gasExp,
			minStack:   minStack(2, 1),
			maxStack:   maxStack(2, 1),
		},
		SIGNEXTEND: {
			execute:     opSignExtend,
			constantGas: params.GasFastStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		LT: {
			execute:     opLt,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		GT: {
			execute:     opGt,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		SLT: {
			execute:     opSlt,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		SGT: {
			execute:     opSgt,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		EQ: {
			execute:     opEq,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		ISZERO: {
			execute:     opIszero,
			constantGas: params.GasFastestStep,
			minStack:    minStack(1, 1),
			maxStack:    maxStack(1, 1),
		},
		AND: {
			execute:     opAnd,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		OR: {
			execute:     opOr,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		XOR: {
			execute:     opXor,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		NOT: {
			execute:     opNot,
			constantGas: params.GasFastestStep,
			minStack:    minStack(1, 1),
			maxStack:    maxStack(1, 1),
		},
		BYTE: {
			execute:     opByte,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		SHL: {
			execute:     opSHL,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		SHR: {
			execute:     opSHR,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		SAR: {
			execute:     opSAR,
			constantGas: params.GasFastestStep,
			minStack:    minStack(2, 1),
			maxStack:    maxStack(2, 1),
		},
		KECCAK256: {
			execute:    opKeccak256,
			dynamicGas: gasKeccak256,
			minStack:   minStack(2, 1),
			maxStack:   maxStack(2, 1),
			memorySize: memoryKeccak256,
		},
		ADDRESS: {
			execute:     opAddress,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		BALANCE: {
			execute:    opBalance,
			dynamicGas: makeGasAccountAccess(0),
			minStack:   minStack(1, 1),
			maxStack:   maxStack(1, 1),
		},
		ORIGIN: {
			execute:     opOrigin,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		CALLER: {
			execute:     opCaller,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		CALLVALUE: {
			execute:     opCallValue,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		CALLDATALOAD: {
			execute:     opCallDataLoad,
			constantGas: params.GasFastestStep,
			minStack:    minStack(1, 1),
			maxStack:    maxStack(1, 1),
		},
		CALLDATASIZE: {
			execute:     opCallDataSize,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		CALLDATACOPY: {
			execute:    opCallDataCopy,
			dynamicGas: makeGasCopy(2),
			minStack:   minStack(3, 0),
			maxStack:   maxStack(3, 0),
			memorySize: memoryCopier,
		},
		CODESIZE: {
			execute:     opCodeSize,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		CODECOPY: {
			execute:    opCodeCopy,
			dynamicGas: makeGasCopy(2),
			minStack:   minStack(3, 0),
			maxStack:   maxStack(3, 0),
			memorySize: memoryCopier,
		},
		GASPRICE: {
			execute:     opGasprice,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		EXTCODESIZE: {
			execute:    opExtCodeSize,
			dynamicGas: makeGasAccountAccess(0),
			minStack:   minStack(1, 1),
			maxStack:   maxStack(1, 1),
		},
		EXTCODECOPY: {
			execute:    opExtCodeCopy,
			dynamicGas: gasExtCodeCopy,
			minStack:   minStack(4, 0),
			maxStack:   maxStack(4, 0),
			memorySize: memoryExtCodeCopy,
		},
		RETURNDATASIZE: {
			execute:     opReturnDataSize,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		RETURNDATACOPY: {
			execute:    opReturnDataCopy,
			dynamicGas: makeGasCopy(2),
			minStack:   minStack(3, 0),
			maxStack:   maxStack(3, 0),
			memorySize: memoryCopier,
		},
		EXTCODEHASH: {
			execute:    opExtCodeHash,
			dynamicGas: makeGasAccountAccess(0),
			minStack:   minStack(1, 1),
			maxStack:   maxStack(1, 1),
		},
		BLOCKHASH: {
			execute:     opBlockhash,
			constantGas: params.GasExtStep,
			minStack:    minStack(1, 1),
			maxStack:    maxStack(1, 1),
		},
		COINBASE: {
			execute:     opCoinbase,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		TIMESTAMP: {
			execute:     opTimestamp,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		NUMBER: {
			execute:     opNumber,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		PREVRANDAO: {
			execute:     opPrevRandao,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		GASLIMIT: {
			execute:     opGasLimit,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		CHAINID: {
			execute:     opChainID,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		SELFBALANCE: {
			execute:     opSelfBalance,
			constantGas: params.GasFastStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		BASEFEE: {
			execute:     opBaseFee,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		BLOBHASH: {
			execute:     opBlobHash,
			constantGas: params.GasFastestStep,
			minStack:    minStack(1, 1),
			maxStack:    maxStack(1, 1),
		},
		BLOBBASEFEE: {
			execute:     opBlobBaseFee,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		POP: {
			execute:     opPop,
			constantGas: params.GasQuickStep,
			minStack:    minStack(1, 0),
			maxStack:    maxStack(1, 0),
		},
		MLOAD: {
			execute:     opMload,
			constantGas: params.GasFastestStep,
			dynamicGas:  pureMemoryGascost,
			minStack:    minStack(1, 1),
			maxStack:    maxStack(1, 1),
			memorySize:  memoryMLoad,
		},
		MSTORE: {
			execute:     opMstore,
			constantGas: params.GasFastestStep,
			dynamicGas:  pureMemoryGascost,
			minStack:    minStack(2, 0),
			maxStack:    maxStack(2, 0),
			memorySize:  memoryMStore,
		},
		MSTORE8: {
			execute:     opMstore8,
			constantGas: params.GasFastestStep,
			dynamicGas:  pureMemoryGascost,
			minStack:    minStack(2, 0),
			maxStack:    maxStack(2, 0),
			memorySize:  memoryMStore8,
		},
		SLOAD: {
			execute:    opSload,
			dynamicGas: gasSLoad,
			minStack:   minStack(1, 1),
			maxStack:   maxStack(1, 1),
		},
		SSTORE: {
			execute:    opSstore,
			dynamicGas: gasSStore,
			minStack:   minStack(2, 0),
			maxStack:   maxStack(2, 0),
		},
		JUMP: {
			execute:     opJump,
			constantGas: params.GasMidStep,
			minStack:    minStack(1, 0),
			maxStack:    maxStack(1, 0),
		},
		JUMPI: {
			execute:     opJumpi,
			constantGas: params.GasSlowStep,
			minStack:    minStack(2, 0),
			maxStack:    maxStack(2, 0),
		},
		PC: {
			execute:     opPc,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		MSIZE: {
			execute:     opMsize,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		GAS: {
			execute:     opGas,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		JUMPDEST: {
			execute:     opJumpdest,
			constantGas: params.JumpdestGas,
			minStack:    minStack(0, 0),
			maxStack:    maxStack(0, 0),
		},
		TLOAD: {
			execute:     opTload,
			constantGas: params.TloadGas,
			minStack:    minStack(1, 1),
			maxStack:    maxStack(1, 1),
		},
		TSTORE: {
			execute:     opTstore,
			constantGas: params.TstoreGas,
			minStack:    minStack(2, 0),
			maxStack:    maxStack(2, 0),
		},
		MCOPY: {
			execute:    opMcopy,
			dynamicGas: makeGasCopy(2),
			minStack:   minStack(3, 0),
			maxStack:   maxStack(3, 0),
			memorySize: memoryMcopy,
		},
		PUSH0: {
			execute:     opPush0,
			constantGas: params.GasQuickStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		},
		RETURN: {
			execute:    opReturn,
			dynamicGas: pureMemoryGascost,
			minStack:   minStack(2, 0),
			maxStack:   maxStack(2, 0),
			memorySize: memoryReturn,
		},
		REVERT: {
			execute:    opRevert,
			dynamicGas: pureMemoryGascost,
			minStack:   minStack(2, 0),
			maxStack:   maxStack(2, 0),
			memorySize: memoryReturn,
		},
		INVALID: {
			execute:  opInvalid,
			minStack: minStack(0, 0),
			maxStack: maxStack(0, 0),
		},
		SELFDESTRUCT: {
			execute:    opSelfdestruct,
			dynamicGas: gasSelfdestruct,
			minStack:   minStack(1, 0),
			maxStack:   maxStack(1, 0),
		},
		CREATE: {
			execute:     opCreate,
			constantGas: params.CreateGas,
			dynamicGas:  gasCreate,
			minStack:    minStack(3, 1),
			maxStack:    maxStack(3, 1),
			memorySize:  memoryCreate,
		},
		CREATE2: {
			execute:     opCreate2,
			constantGas: params.CreateGas,
			dynamicGas:  gasCreate2,
			minStack:    minStack(4, 1),
			maxStack:    maxStack(4, 1),
			memorySize:  memoryCreate,
		},
		CALL: {
			execute:    opCall,
			dynamicGas: makeGasCall(2),
			minStack:   minStack(7, 1),
			maxStack:   maxStack(7, 1),
			memorySize: memoryCall,
		},
		CALLCODE: {
			execute:    opCallCode,
			dynamicGas: makeGasCall(2),
			minStack:   minStack(7, 1),
			maxStack:   maxStack(7, 1),
			memorySize: memoryCall,
		},
		DELEGATECALL: {
			execute:    opDelegateCall,
			dynamicGas: makeGasCall(-1),
			minStack:   minStack(6, 1),
			maxStack:   maxStack(6, 1),
			memorySize: memoryDelegateCall,
		},
		STATICCALL: {
			execute:    opStaticCall,
			dynamicGas: makeGasCall(-1),
			minStack:   minStack(6, 1),
			maxStack:   maxStack(6, 1),
			memorySize: memoryDelegateCall,
		},
	}

	// Pushes, dups, swaps and logs are generated, the table above would be
	// three times as long otherwise.
	for i := 0; i < 32; i++ {
		op := PUSH1 + OpCode(i)
		tbl[op] = &operation{
			execute:     makePush(uint64(i + 1)),
			constantGas: params.Push1Gas,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		}
	}
	for i := 0; i < 16; i++ {
		op := DUP1 + OpCode(i)
		tbl[op] = &operation{
			execute:     makeDup(i + 1),
			constantGas: params.GasFastestStep,
			minStack:    minStack(i+1, i+2),
			maxStack:    maxStack(i+1, i+2),
		}
	}
	for i := 0; i < 16; i++ {
		op := SWAP1 + OpCode(i)
		tbl[op] = &operation{
			execute:     makeSwap(i + 1),
			constantGas: params.GasFastestStep,
			minStack:    minStack(i+2, i+2),
			maxStack:    maxStack(i+2, i+2),
		}
	}
	for i := 0; i <= 4; i++ {
		op := LOG0 + OpCode(i)
		tbl[op] = &operation{
			execute:    makeLog(i),
			dynamicGas: makeGasLog(uint64(i)),
			minStack:   minStack(i+2, 0),
			maxStack:   maxStack(i+2, 0),
			memorySize: memoryLog,
		}
	}
	return tbl
}
