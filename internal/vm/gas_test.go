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
	"testing"

	"github.com/holiman/uint256"

	"github.com/shadowvm/shadowtrace/common/hexutil"
	"github.com/shadowvm/shadowtrace/common/types"
	"github.com/shadowvm/shadowtrace/modules/state"
	"github.com/shadowvm/shadowtrace/params"
)

// =============================================================================
// EIP-2929 access-aware gas
// =============================================================================

func TestSloadColdThenWarm(t *testing.T) {
	st := state.New()
	self := types.HexToAddress("0x2000000000000000000000000000000000000002")

	// PUSH1 0, SLOAD, PUSH1 0, SLOAD, STOP
	m := NewMachine(hexutil.MustDecode("0x60005460005400"), 100_000, st)
	defer m.Release()
	m.SetCallContext(types.Address{}, self, nil, nil)

	if err := m.Execute(); m.Reverted() {
		t.Fatalf("execution failed: %v", err)
	}
	// 3 + 2100 (cold) + 3 + 100 (warm)
	want := 2*params.GasFastestStep + params.ColdSloadCostEIP2929 + params.WarmStorageReadCostEIP2929
	if m.GasUsed() != want {
		t.Errorf("gas used should be %d, got %d", want, m.GasUsed())
	}
	if !st.AccessList().Contains(self, types.Hash{}) {
		t.Error("slot 0 should be warm after SLOAD")
	}
}

func TestSstoreColdSetChargesSurcharge(t *testing.T) {
	st := state.New()
	self := types.HexToAddress("0x2000000000000000000000000000000000000002")

	// PUSH1 1 (value), PUSH1 7 (slot), SSTORE, STOP
	m := NewMachine(hexutil.MustDecode("0x600160075500"), 100_000, st)
	defer m.Release()
	m.SetCallContext(types.Address{}, self, nil, nil)

	if err := m.Execute(); m.Reverted() {
		t.Fatalf("execution failed: %v", err)
	}
	slot := types.WordToHash(uint256.NewInt(7))
	if !st.AccessList().Contains(self, slot) {
		t.Error("access list should contain (addr, slot 7) after SSTORE")
	}
	// 2*3 push + 2100 cold + 20000 set
	want := 2*params.GasFastestStep + params.ColdSloadCostEIP2929 + params.SstoreSetGasEIP2200
	if m.GasUsed() != want {
		t.Errorf("cold SSTORE set should cost %d, got %d", want, m.GasUsed())
	}
	if got := st.GetState(self, slot); got.Uint64() != 1 {
		t.Errorf("slot 7 should hold 1, got %v", got)
	}
	if m.LastStorageChange == nil {
		t.Fatal("SSTORE should record a storage change")
	}
	if !m.LastStorageChange.Prev.IsZero() || m.LastStorageChange.Value.Uint64() != 1 {
		t.Errorf("storage change should carry pre/post values, got %+v", m.LastStorageChange)
	}
}

func TestSstoreClearAddsRefund(t *testing.T) {
	st := state.New()
	self := types.HexToAddress("0x2000000000000000000000000000000000000002")
	slot := types.WordToHash(uint256.NewInt(0))
	st.SetState(self, slot, *uint256.NewInt(5))

	// PUSH1 0 (value), PUSH1 0 (slot), SSTORE, STOP
	m := NewMachine(hexutil.MustDecode("0x600060005500"), 100_000, st)
	defer m.Release()
	m.SetCallContext(types.Address{}, self, nil, nil)

	if err := m.Execute(); m.Reverted() {
		t.Fatalf("execution failed: %v", err)
	}
	if m.Refund() != params.SstoreClearsScheduleRefundEIP3529 {
		t.Errorf("clearing a slot should add the EIP-3529 refund, got %d", m.Refund())
	}
}

func TestBalanceColdWarm(t *testing.T) {
	st := state.New()
	// BALANCE of the same address twice: DUP the address word first.
	// PUSH20 addr, DUP1, BALANCE, POP, BALANCE, STOP
	m := NewMachine(hexutil.MustDecode("0x7330000000000000000000000000000000000000038031503100"), 100_000, st)
	defer m.Release()

	if err := m.Execute(); m.Reverted() {
		t.Fatalf("execution failed: %v", err)
	}
	// PUSH20 3 + DUP1 3 + cold 2600 + POP 2 + warm 100
	want := params.Push1Gas + params.GasFastestStep + params.ColdAccountAccessCostEIP2929 +
		params.GasQuickStep + params.WarmStorageReadCostEIP2929
	if m.GasUsed() != want {
		t.Errorf("gas used should be %d, got %d", want, m.GasUsed())
	}
	if !st.AccessList().ContainsAddress(types.HexToAddress("0x3000000000000000000000000000000000000003")) {
		t.Error("queried address should be warm")
	}
}

// =============================================================================
// EXP dynamic gas
// =============================================================================

func TestExpGasPerExponentByte(t *testing.T) {
	// PUSH2 0x0100 (exponent, two bytes), PUSH1 2 (base), EXP, STOP
	m := NewMachine(hexutil.MustDecode("0x61010060020a00"), 100_000, state.New())
	defer m.Release()

	if err := m.Execute(); m.Reverted() {
		t.Fatalf("execution failed: %v", err)
	}
	// 3 + 3 + (10 + 2*50)
	want := 2*params.GasFastestStep + params.ExpGas + 2*params.ExpByteGas
	if m.GasUsed() != want {
		t.Errorf("gas used should be %d, got %d", want, m.GasUsed())
	}
}

// =============================================================================
// Overflow helpers
// =============================================================================

func TestSafeAddMul(t *testing.T) {
	if _, overflow := safeAdd(^uint64(0), 1); !overflow {
		t.Error("safeAdd should flag overflow")
	}
	if v, overflow := safeAdd(1, 2); overflow || v != 3 {
		t.Error("safeAdd(1,2) should be 3")
	}
	if _, overflow := safeMul(1<<63, 2); !overflow {
		t.Error("safeMul should flag overflow")
	}
	if v, overflow := safeMul(0, ^uint64(0)); overflow || v != 0 {
		t.Error("safeMul by zero should be 0")
	}
}
