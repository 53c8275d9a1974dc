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
	"golang.org/x/crypto/sha3"

	"github.com/shadowvm/shadowtrace/common/types"
	"github.com/shadowvm/shadowtrace/modules/state"
	"github.com/shadowvm/shadowtrace/pkg/errors"
)

// Operand convention: for a binary op the first pop is the top of the stack.
// ADD pops x then y and pushes x+y; SUB pushes x-y; DIV pushes x/y with
// x/0 = 0. Signed ops interpret both operands as two's complement.

func opAdd(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	y.Add(&x, y)
	return nil
}

func opSub(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	y.Sub(&x, y)
	return nil
}

func opMul(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	y.Mul(&x, y)
	return nil
}

func opDiv(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	y.Div(&x, y)
	return nil
}

func opSdiv(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	y.SDiv(&x, y)
	return nil
}

func opMod(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	y.Mod(&x, y)
	return nil
}

func opSmod(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	y.SMod(&x, y)
	return nil
}

func opAddmod(pc *uint64, m *Machine) error {
	x, y, z := m.stack.Pop(), m.stack.Pop(), m.stack.Peek()
	z.AddMod(&x, &y, z)
	return nil
}

func opMulmod(pc *uint64, m *Machine) error {
	x, y, z := m.stack.Pop(), m.stack.Pop(), m.stack.Peek()
	z.MulMod(&x, &y, z)
	return nil
}

// opExp pops the base first, then the exponent, and pushes
// base**exponent mod 2^256.
func opExp(pc *uint64, m *Machine) error {
	base, exponent := m.stack.Pop(), m.stack.Peek()
	exponent.Exp(&base, exponent)
	return nil
}

func opSignExtend(pc *uint64, m *Machine) error {
	back, num := m.stack.Pop(), m.stack.Peek()
	num.ExtendSign(num, &back)
	return nil
}

func opLt(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opGt(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opSlt(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opSgt(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opEq(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil
}

func opIszero(pc *uint64, m *Machine) error {
	x := m.stack.Peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return nil
}

func opAnd(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	y.And(&x, y)
	return nil
}

func opOr(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	y.Or(&x, y)
	return nil
}

func opXor(pc *uint64, m *Machine) error {
	x, y := m.stack.Pop(), m.stack.Peek()
	y.Xor(&x, y)
	return nil
}

func opNot(pc *uint64, m *Machine) error {
	x := m.stack.Peek()
	x.Not(x)
	return nil
}

func opByte(pc *uint64, m *Machine) error {
	th, val := m.stack.Pop(), m.stack.Peek()
	val.Byte(&th)
	return nil
}

// opSHL pops the shift amount first, then the value.
func opSHL(pc *uint64, m *Machine) error {
	shift, value := m.stack.Pop(), m.stack.Peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil
}

func opSHR(pc *uint64, m *Machine) error {
	shift, value := m.stack.Pop(), m.stack.Peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil
}

// opSAR shifts arithmetically: the sign bit fills in from the left.
func opSAR(pc *uint64, m *Machine) error {
	shift, value := m.stack.Pop(), m.stack.Peek()
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
		return nil
	}
	value.SRsh(value, uint(shift.Uint64()))
	return nil
}

func opKeccak256(pc *uint64, m *Machine) error {
	offset, size := m.stack.Pop(), m.stack.Peek()
	data := m.memory.GetPtr(offset.Uint64(), size.Uint64())
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var sum [32]byte
	h.Sum(sum[:0])
	size.SetBytes(sum[:])
	return nil
}

// =============================================================================
// Environment
// =============================================================================

func opAddress(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetBytes(m.self.Bytes()))
	return nil
}

func opBalance(pc *uint64, m *Machine) error {
	slot := m.stack.Peek()
	addr := wordToAddress(slot)
	bal := m.state.GetBalance(addr)
	slot.Set(&bal)
	return nil
}

func opOrigin(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetBytes(m.txCtx.Origin.Bytes()))
	return nil
}

func opCaller(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetBytes(m.caller.Bytes()))
	return nil
}

func opCallValue(pc *uint64, m *Machine) error {
	m.stack.Push(&m.value)
	return nil
}

func opCallDataLoad(pc *uint64, m *Machine) error {
	x := m.stack.Peek()
	if offset, overflow := x.Uint64WithOverflow(); !overflow {
		data := getData(m.input, offset, 32)
		x.SetBytes(data)
	} else {
		x.Clear()
	}
	return nil
}

func opCallDataSize(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetUint64(uint64(len(m.input))))
	return nil
}

func opCallDataCopy(pc *uint64, m *Machine) error {
	var (
		memOffset  = m.stack.Pop()
		dataOffset = m.stack.Pop()
		length     = m.stack.Pop()
	)
	dataOffset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		dataOffset64 = ^uint64(0)
	}
	// These values are checked for overflow during gas cost calculation
	memOffset64 := memOffset.Uint64()
	length64 := length.Uint64()
	m.memory.Set(memOffset64, length64, getData(m.input, dataOffset64, length64))
	return nil
}

func opCodeSize(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetUint64(uint64(len(m.code))))
	return nil
}

func opCodeCopy(pc *uint64, m *Machine) error {
	var (
		memOffset  = m.stack.Pop()
		codeOffset = m.stack.Pop()
		length     = m.stack.Pop()
	)
	uint64CodeOffset, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		uint64CodeOffset = ^uint64(0)
	}
	codeCopy := getData(m.code, uint64CodeOffset, length.Uint64())
	m.memory.Set(memOffset.Uint64(), length.Uint64(), codeCopy)
	return nil
}

func opGasprice(pc *uint64, m *Machine) error {
	v := new(uint256.Int)
	if m.txCtx.GasPrice != nil {
		v.Set(m.txCtx.GasPrice)
	}
	m.stack.Push(v)
	return nil
}

func opExtCodeSize(pc *uint64, m *Machine) error {
	slot := m.stack.Peek()
	addr := wordToAddress(slot)
	slot.SetUint64(uint64(m.state.GetCodeSize(addr)))
	return nil
}

func opExtCodeCopy(pc *uint64, m *Machine) error {
	var (
		a          = m.stack.Pop()
		memOffset  = m.stack.Pop()
		codeOffset = m.stack.Pop()
		length     = m.stack.Pop()
	)
	uint64CodeOffset, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		uint64CodeOffset = ^uint64(0)
	}
	addr := wordToAddress(&a)
	codeCopy := getData(m.state.GetCode(addr), uint64CodeOffset, length.Uint64())
	m.memory.Set(memOffset.Uint64(), length.Uint64(), codeCopy)
	return nil
}

func opExtCodeHash(pc *uint64, m *Machine) error {
	slot := m.stack.Peek()
	addr := wordToAddress(slot)
	slot.SetBytes(m.state.GetCodeHash(addr).Bytes())
	return nil
}

func opReturnDataSize(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetUint64(uint64(len(m.lastCallReturn))))
	return nil
}

func opReturnDataCopy(pc *uint64, m *Machine) error {
	var (
		memOffset  = m.stack.Pop()
		dataOffset = m.stack.Pop()
		length     = m.stack.Pop()
	)
	offset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		return errors.ErrReturnDataOutOfBounds
	}
	end := offset64 + length.Uint64()
	if end < offset64 || end > uint64(len(m.lastCallReturn)) {
		return errors.ErrReturnDataOutOfBounds
	}
	m.memory.Set(memOffset.Uint64(), length.Uint64(), m.lastCallReturn[offset64:end])
	return nil
}

// =============================================================================
// Block context
// =============================================================================

func opBlockhash(pc *uint64, m *Machine) error {
	num := m.stack.Peek()
	num64, overflow := num.Uint64WithOverflow()
	if overflow || m.blockCtx.GetHash == nil {
		num.Clear()
		return nil
	}
	var upper, lower uint64
	upper = m.blockCtx.BlockNumber
	if upper >= 257 {
		lower = upper - 256
	}
	if num64 >= lower && num64 < upper {
		num.SetBytes(m.blockCtx.GetHash(num64).Bytes())
	} else {
		num.Clear()
	}
	return nil
}

func opCoinbase(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetBytes(m.blockCtx.Coinbase.Bytes()))
	return nil
}

func opTimestamp(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetUint64(m.blockCtx.Time))
	return nil
}

func opNumber(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetUint64(m.blockCtx.BlockNumber))
	return nil
}

func opPrevRandao(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetBytes(m.blockCtx.PrevRanDao.Bytes()))
	return nil
}

func opGasLimit(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetUint64(m.blockCtx.GasLimit))
	return nil
}

func opChainID(pc *uint64, m *Machine) error {
	v := new(uint256.Int)
	if m.txCtx.ChainID != nil {
		v.Set(m.txCtx.ChainID)
	}
	m.stack.Push(v)
	return nil
}

func opSelfBalance(pc *uint64, m *Machine) error {
	bal := m.state.GetBalance(m.self)
	m.stack.Push(&bal)
	return nil
}

func opBaseFee(pc *uint64, m *Machine) error {
	v := new(uint256.Int)
	if m.blockCtx.BaseFee != nil {
		v.Set(m.blockCtx.BaseFee)
	}
	m.stack.Push(v)
	return nil
}

func opBlobHash(pc *uint64, m *Machine) error {
	index := m.stack.Peek()
	if index.LtUint64(uint64(len(m.txCtx.BlobHashes))) {
		index.SetBytes(m.txCtx.BlobHashes[index.Uint64()].Bytes())
	} else {
		index.Clear()
	}
	return nil
}

func opBlobBaseFee(pc *uint64, m *Machine) error {
	v := new(uint256.Int)
	if m.blockCtx.BlobBaseFee != nil {
		v.Set(m.blockCtx.BlobBaseFee)
	}
	m.stack.Push(v)
	return nil
}

// =============================================================================
// Stack, memory and storage
// =============================================================================

func opPop(pc *uint64, m *Machine) error {
	m.stack.Pop()
	return nil
}

func opMload(pc *uint64, m *Machine) error {
	v := m.stack.Peek()
	offset := v.Uint64()
	v.SetBytes(m.memory.GetPtr(offset, 32))
	return nil
}

func opMstore(pc *uint64, m *Machine) error {
	mStart, val := m.stack.Pop(), m.stack.Pop()
	m.memory.Set32(mStart.Uint64(), &val)
	return nil
}

func opMstore8(pc *uint64, m *Machine) error {
	off, val := m.stack.Pop(), m.stack.Pop()
	m.memory.SetByte(off.Uint64(), byte(val.Uint64()))
	return nil
}

func opSload(pc *uint64, m *Machine) error {
	loc := m.stack.Peek()
	val := m.state.GetState(m.self, types.WordToHash(loc))
	loc.Set(&val)
	return nil
}

func opSstore(pc *uint64, m *Machine) error {
	if m.static {
		return errors.ErrWriteProtection
	}
	loc, val := m.stack.Pop(), m.stack.Pop()
	slot := types.WordToHash(&loc)
	prev := m.state.GetState(m.self, slot)
	m.state.SetState(m.self, slot, val)
	m.LastStorageChange = &StorageChange{
		Address: m.self,
		Slot:    slot,
		Prev:    prev,
		Value:   val,
	}
	return nil
}

func opJump(pc *uint64, m *Machine) error {
	pos := m.stack.Pop()
	if !pos.IsUint64() || !m.validJumpdest(pos.Uint64()) {
		return errors.Wrapf(errors.ErrInvalidJump, "target %s", pos.Hex())
	}
	*pc = pos.Uint64() - 1 // pc is advanced by the step loop
	return nil
}

func opJumpi(pc *uint64, m *Machine) error {
	pos, cond := m.stack.Pop(), m.stack.Pop()
	if !cond.IsZero() {
		if !pos.IsUint64() || !m.validJumpdest(pos.Uint64()) {
			return errors.Wrapf(errors.ErrInvalidJump, "target %s", pos.Hex())
		}
		*pc = pos.Uint64() - 1
	}
	return nil
}

func opPc(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetUint64(*pc))
	return nil
}

func opMsize(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetUint64(uint64(m.memory.Len())))
	return nil
}

func opGas(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int).SetUint64(m.gasRemaining))
	return nil
}

func opJumpdest(pc *uint64, m *Machine) error {
	return nil
}

func opTload(pc *uint64, m *Machine) error {
	loc := m.stack.Peek()
	val := m.state.GetTransientState(m.self, types.WordToHash(loc))
	loc.Set(&val)
	return nil
}

func opTstore(pc *uint64, m *Machine) error {
	if m.static {
		return errors.ErrWriteProtection
	}
	loc, val := m.stack.Pop(), m.stack.Pop()
	m.state.SetTransientState(m.self, types.WordToHash(&loc), val)
	return nil
}

func opMcopy(pc *uint64, m *Machine) error {
	var (
		dst    = m.stack.Pop()
		src    = m.stack.Pop()
		length = m.stack.Pop()
	)
	m.memory.Copy(dst.Uint64(), src.Uint64(), length.Uint64())
	return nil
}

func opPush0(pc *uint64, m *Machine) error {
	m.stack.Push(new(uint256.Int))
	return nil
}

// makePush reads up to size immediate bytes after the opcode. A PUSH
// truncated by the end of code pads the low-order end with zeros.
func makePush(size uint64) executionFunc {
	return func(pc *uint64, m *Machine) error {
		var (
			codeLen = uint64(len(m.code))
			start   = *pc + 1
			end     = start + size
		)
		integer := new(uint256.Int)
		if start >= codeLen {
			m.stack.Push(integer)
		} else if end <= codeLen {
			m.stack.Push(integer.SetBytes(m.code[start:end]))
		} else {
			// Truncated push: available bytes form the high-order end.
			padded := make([]byte, size)
			copy(padded, m.code[start:codeLen])
			m.stack.Push(integer.SetBytes(padded))
		}
		*pc += size
		return nil
	}
}

func makeDup(size int) executionFunc {
	return func(pc *uint64, m *Machine) error {
		m.stack.Dup(size)
		return nil
	}
}

func makeSwap(size int) executionFunc {
	// switch n + 1 otherwise n would be swapped with n
	size++
	return func(pc *uint64, m *Machine) error {
		m.stack.Swap(size)
		return nil
	}
}

func makeLog(size int) executionFunc {
	return func(pc *uint64, m *Machine) error {
		if m.static {
			return errors.ErrWriteProtection
		}
		topics := make([]types.Hash, size)
		mStart, mSize := m.stack.Pop(), m.stack.Pop()
		for i := 0; i < size; i++ {
			addr := m.stack.Pop()
			topics[i] = types.WordToHash(&addr)
		}
		m.state.AddLog(&state.Log{
			Address: m.self,
			Topics:  topics,
			Data:    m.memory.GetCopy(mStart.Uint64(), mSize.Uint64()),
		})
		return nil
	}
}

// =============================================================================
// Halting and call family
// =============================================================================

func opStop(pc *uint64, m *Machine) error {
	m.returnData = nil
	return errors.ErrExecutionStopped
}

func opReturn(pc *uint64, m *Machine) error {
	offset, size := m.stack.Pop(), m.stack.Pop()
	m.returnData = m.memory.GetCopy(offset.Uint64(), size.Uint64())
	return errors.ErrExecutionStopped
}

func opRevert(pc *uint64, m *Machine) error {
	offset, size := m.stack.Pop(), m.stack.Pop()
	m.returnData = m.memory.GetCopy(offset.Uint64(), size.Uint64())
	return errors.ErrExecutionReverted
}

func opInvalid(pc *uint64, m *Machine) error {
	return errors.ErrInvalidOpcode
}

func opSelfdestruct(pc *uint64, m *Machine) error {
	if m.static {
		return errors.ErrWriteProtection
	}
	m.stack.Pop()
	m.returnData = nil
	return errors.ErrExecutionStopped
}

// The call and create family execute as host-delegated stubs: operands are
// popped, the access-aware cost is charged (see gas.go) and the documented
// result is pushed, but no child frame runs here. Cross-contract transfers
// belong to the surrounding host; the tracer validates one frame at a time.

func opCall(pc *uint64, m *Machine) error {
	if m.static && !m.stack.Back(2).IsZero() {
		return errors.ErrWriteProtection
	}
	return callStub(m, 7)
}

func opCallCode(pc *uint64, m *Machine) error {
	return callStub(m, 7)
}

func opDelegateCall(pc *uint64, m *Machine) error {
	return callStub(m, 6)
}

func opStaticCall(pc *uint64, m *Machine) error {
	return callStub(m, 6)
}

func callStub(m *Machine, operands int) error {
	for i := 0; i < operands; i++ {
		m.stack.Pop()
	}
	m.lastCallReturn = nil
	m.stack.Push(new(uint256.Int).SetOne())
	return nil
}

func opCreate(pc *uint64, m *Machine) error {
	if m.static {
		return errors.ErrWriteProtection
	}
	return createStub(m, 3)
}

func opCreate2(pc *uint64, m *Machine) error {
	if m.static {
		return errors.ErrWriteProtection
	}
	return createStub(m, 4)
}

func createStub(m *Machine, operands int) error {
	for i := 0; i < operands; i++ {
		m.stack.Pop()
	}
	m.lastCallReturn = nil
	// The would-be address is the host's to compute; the stub reports the
	// zero address, matching the fast interpreter's delegated schedule.
	m.stack.Push(new(uint256.Int))
	return nil
}

// getData returns a slice from data based on offset and size, padded with
// zeros up to size. This function is overflow-safe.
func getData(data []byte, start uint64, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length {
		end = length
	}
	padded := make([]byte, size)
	copy(padded, data[start:end])
	return padded
}
