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
	"github.com/shadowvm/shadowtrace/common/types"
	"github.com/shadowvm/shadowtrace/params"
	"github.com/shadowvm/shadowtrace/pkg/errors"
)

// memoryGasCost calculates the quadratic gas for memory expansion.
// Expansion to w words costs 3*w + w*w/512; only the delta against the
// current size is charged.
func memoryGasCost(mem *Memory, newMemSize uint64) (uint64, error) {
	if newMemSize == 0 {
		return 0, nil
	}
	if newMemSize > params.MaxMemoryOffset {
		return 0, errors.ErrMemoryLimit
	}
	newWords := wordCount(newMemSize)
	newSize := newWords * 32
	if newSize <= uint64(mem.Len()) {
		return 0, nil
	}
	square := newWords * newWords
	linCoef := newWords * params.MemoryGas
	quadCoef := square / params.QuadCoeffDiv
	newTotal := linCoef + quadCoef

	oldWords := wordCount(uint64(mem.Len()))
	oldTotal := oldWords*params.MemoryGas + oldWords*oldWords/params.QuadCoeffDiv
	return newTotal - oldTotal, nil
}

// pureMemoryGascost is the dynamic cost of ops whose only dynamic component
// is memory expansion (MLOAD, MSTORE, MSTORE8, RETURN, REVERT, KECCAK-free).
func pureMemoryGascost(m *Machine, memorySize uint64) (uint64, error) {
	return memoryGasCost(m.memory, memorySize)
}

// gasExp charges 10 + 50 per byte of the exponent (EIP-160 schedule).
func gasExp(m *Machine, memorySize uint64) (uint64, error) {
	expByteLen := uint64((m.stack.Back(1).BitLen() + 7) / 8)
	gas := expByteLen * params.ExpByteGas
	var overflow bool
	if gas, overflow = safeAdd(gas, params.ExpGas); overflow {
		return 0, errors.ErrGasUintOverflow
	}
	return gas, nil
}

// gasKeccak256 charges per hashed word plus memory expansion.
func gasKeccak256(m *Machine, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(m.memory, memorySize)
	if err != nil {
		return 0, err
	}
	size, overflow := m.stack.Back(1).Uint64WithOverflow()
	if overflow {
		return 0, errors.ErrGasUintOverflow
	}
	wordGas, overflow := safeMul(wordCount(size), params.Keccak256WordGas)
	if overflow {
		return 0, errors.ErrGasUintOverflow
	}
	if gas, overflow = safeAdd(gas, wordGas); overflow {
		return 0, errors.ErrGasUintOverflow
	}
	return gas, nil
}

// makeGasCopy charges 3 per copied word plus memory expansion. The size
// operand sits at stack depth sizePos (from the top, 0-based).
func makeGasCopy(sizePos int) gasFunc {
	return func(m *Machine, memorySize uint64) (uint64, error) {
		gas, err := memoryGasCost(m.memory, memorySize)
		if err != nil {
			return 0, err
		}
		size, overflow := m.stack.Back(sizePos).Uint64WithOverflow()
		if overflow {
			return 0, errors.ErrGasUintOverflow
		}
		wordGas, overflow := safeMul(wordCount(size), params.CopyGas)
		if overflow {
			return 0, errors.ErrGasUintOverflow
		}
		if gas, overflow = safeAdd(gas, wordGas); overflow {
			return 0, errors.ErrGasUintOverflow
		}
		return gas, nil
	}
}

// makeGasLog charges the LOG base cost, per-topic cost and per-byte data cost
// plus memory expansion.
func makeGasLog(n uint64) gasFunc {
	return func(m *Machine, memorySize uint64) (uint64, error) {
		size, overflow := m.stack.Back(1).Uint64WithOverflow()
		if overflow {
			return 0, errors.ErrGasUintOverflow
		}
		gas, err := memoryGasCost(m.memory, memorySize)
		if err != nil {
			return 0, err
		}
		if gas, overflow = safeAdd(gas, params.LogGas); overflow {
			return 0, errors.ErrGasUintOverflow
		}
		if gas, overflow = safeAdd(gas, n*params.LogTopicGas); overflow {
			return 0, errors.ErrGasUintOverflow
		}
		var dataGas uint64
		if dataGas, overflow = safeMul(size, params.LogDataGas); overflow {
			return 0, errors.ErrGasUintOverflow
		}
		if gas, overflow = safeAdd(gas, dataGas); overflow {
			return 0, errors.ErrGasUintOverflow
		}
		return gas, nil
	}
}

// gasSLoad applies the EIP-2929 schedule: cold slots pay the cold cost and
// warm the entry, warm slots pay the warm read cost.
func gasSLoad(m *Machine, memorySize uint64) (uint64, error) {
	slot := types.WordToHash(m.stack.Back(0))
	if m.state.AccessList().TouchSlot(m.self, slot) {
		return params.ColdSloadCostEIP2929, nil
	}
	return params.WarmStorageReadCostEIP2929, nil
}

// gasSStore applies EIP-3529 on top of EIP-2929. The refund counter is
// tracked on the machine but does not affect the charged amount.
func gasSStore(m *Machine, memorySize uint64) (uint64, error) {
	if m.gasRemaining <= params.SstoreSentryGasEIP2200 {
		return 0, errors.ErrOutOfGas
	}
	var (
		slot    = types.WordToHash(m.stack.Back(0))
		newVal  = m.stack.Back(1)
		current = m.state.GetState(m.self, slot)
		cost    = uint64(0)
	)
	if m.state.AccessList().TouchSlot(m.self, slot) {
		cost = params.ColdSloadCostEIP2929
	}
	if current.Eq(newVal) {
		return cost + params.WarmStorageReadCostEIP2929, nil
	}
	// Original-value tracking collapses to the current value; frames are
	// validated one transaction at a time.
	if current.IsZero() {
		return cost + params.SstoreSetGasEIP2200, nil
	}
	if newVal.IsZero() {
		m.refund += params.SstoreClearsScheduleRefundEIP3529
	}
	return cost + (params.SstoreResetGasEIP2200 - params.ColdSloadCostEIP2929), nil
}

// makeGasAccountAccess is the EIP-2929 cost of BALANCE, EXTCODESIZE,
// EXTCODEHASH and SELFDESTRUCT-style account touches: the address operand is
// at the top of the stack.
func makeGasAccountAccess(extra uint64) gasFunc {
	return func(m *Machine, memorySize uint64) (uint64, error) {
		addr := wordToAddress(m.stack.Back(0))
		gas := uint64(params.WarmStorageReadCostEIP2929)
		if m.state.AccessList().TouchAddress(addr) {
			gas = params.ColdAccountAccessCostEIP2929
		}
		return gas + extra, nil
	}
}

// gasExtCodeCopy combines the 2929 account touch with copy and memory costs.
func gasExtCodeCopy(m *Machine, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(m.memory, memorySize)
	if err != nil {
		return 0, err
	}
	size, overflow := m.stack.Back(3).Uint64WithOverflow()
	if overflow {
		return 0, errors.ErrGasUintOverflow
	}
	wordGas, overflow := safeMul(wordCount(size), params.CopyGas)
	if overflow {
		return 0, errors.ErrGasUintOverflow
	}
	if gas, overflow = safeAdd(gas, wordGas); overflow {
		return 0, errors.ErrGasUintOverflow
	}
	addr := wordToAddress(m.stack.Back(0))
	if m.state.AccessList().TouchAddress(addr) {
		gas += params.ColdAccountAccessCostEIP2929
	} else {
		gas += params.WarmStorageReadCostEIP2929
	}
	return gas, nil
}

// makeGasCall is the access-aware constant portion of the call family. The
// callee address is the second stack operand. Real cross-contract transfers
// are the host's business; the reference charges what the fast path charges
// before delegating.
func makeGasCall(valuePos int) gasFunc {
	return func(m *Machine, memorySize uint64) (uint64, error) {
		gas, err := memoryGasCost(m.memory, memorySize)
		if err != nil {
			return 0, err
		}
		addr := wordToAddress(m.stack.Back(1))
		if m.state.AccessList().TouchAddress(addr) {
			gas += params.ColdAccountAccessCostEIP2929
		} else {
			gas += params.WarmStorageReadCostEIP2929
		}
		if valuePos >= 0 && !m.stack.Back(valuePos).IsZero() {
			gas += params.CallValueTransferGas
		}
		return gas, nil
	}
}

// gasCreate charges the base create cost plus EIP-3860 init-code words and
// memory expansion.
func gasCreate(m *Machine, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(m.memory, memorySize)
	if err != nil {
		return 0, err
	}
	size, overflow := m.stack.Back(2).Uint64WithOverflow()
	if overflow {
		return 0, errors.ErrGasUintOverflow
	}
	wordGas, overflow := safeMul(wordCount(size), params.InitCodeWordGas)
	if overflow {
		return 0, errors.ErrGasUintOverflow
	}
	if gas, overflow = safeAdd(gas, wordGas); overflow {
		return 0, errors.ErrGasUintOverflow
	}
	return gas, nil
}

// gasCreate2 additionally charges hashing of the init code.
func gasCreate2(m *Machine, memorySize uint64) (uint64, error) {
	gas, err := gasCreate(m, memorySize)
	if err != nil {
		return 0, err
	}
	size, _ := m.stack.Back(2).Uint64WithOverflow()
	hashGas, overflow := safeMul(wordCount(size), params.Keccak256WordGas)
	if overflow {
		return 0, errors.ErrGasUintOverflow
	}
	if gas, overflow = safeAdd(gas, hashGas); overflow {
		return 0, errors.ErrGasUintOverflow
	}
	return gas, nil
}

// gasSelfdestruct applies the 2929 cold-account surcharge on the beneficiary.
func gasSelfdestruct(m *Machine, memorySize uint64) (uint64, error) {
	gas := params.SelfdestructGasEIP150
	addr := wordToAddress(m.stack.Back(0))
	if m.state.AccessList().TouchAddress(addr) {
		gas += params.ColdAccountAccessCostEIP2929
	}
	return gas, nil
}

func safeAdd(x, y uint64) (uint64, bool) {
	sum := x + y
	return sum, sum < x
}

func safeMul(x, y uint64) (uint64, bool) {
	if x == 0 || y == 0 {
		return 0, false
	}
	p := x * y
	return p, p/y != x
}
