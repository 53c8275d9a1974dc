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

package params

// Gas schedule for the Cancun rule set. The reference interpreter charges these
// per opcode; the fast interpreter batches them per basic block, so the two are
// only comparable at block boundaries.
const (
	GasQuickStep   uint64 = 2
	GasFastestStep uint64 = 3
	GasFastStep    uint64 = 5
	GasMidStep     uint64 = 8
	GasSlowStep    uint64 = 10
	GasExtStep     uint64 = 20

	JumpdestGas uint64 = 1 // JUMPDEST is its own basic-block anchor

	ExpGas     uint64 = 10 // Once per EXP instruction
	ExpByteGas uint64 = 50 // Per byte of the exponent (EIP-160)

	Keccak256Gas     uint64 = 30 // Once per KECCAK256 operation
	Keccak256WordGas uint64 = 6  // Per word of the hashed data

	CopyGas      uint64 = 3 // Per word copied by *COPY and MCOPY, rounded up
	MemoryGas    uint64 = 3 // Linear coefficient of the memory expansion cost
	QuadCoeffDiv uint64 = 512

	LogGas      uint64 = 375 // Per LOG* operation
	LogTopicGas uint64 = 375 // Per topic of a LOG* operation
	LogDataGas  uint64 = 8   // Per byte of logged data

	CreateGas       uint64 = 32000
	CreateDataGas   uint64 = 200
	InitCodeWordGas uint64 = 2 // EIP-3860, per word of init code

	CallValueTransferGas uint64 = 9000
	CallNewAccountGas    uint64 = 25000
	CallStipend          uint64 = 2300

	SelfdestructGasEIP150 uint64 = 5000

	// EIP-2929: cold/warm access costs. Cold surcharges warm the entry for
	// the remainder of the transaction.
	ColdAccountAccessCostEIP2929 uint64 = 2600
	ColdSloadCostEIP2929         uint64 = 2100
	WarmStorageReadCostEIP2929   uint64 = 100

	// EIP-3529 (London) SSTORE schedule, on top of EIP-2929.
	SstoreSetGasEIP2200    uint64 = 20000
	SstoreResetGasEIP2200  uint64 = 5000 // Charged minus ColdSloadCost when warm
	SstoreSentryGasEIP2200 uint64 = 2300

	SstoreClearsScheduleRefundEIP3529 uint64 = 4800

	// EIP-1153 transient storage.
	TloadGas  uint64 = 100
	TstoreGas uint64 = 100

	// Stack and call limits.
	StackLimit     uint64 = 1024
	CallCreateDepth uint64 = 1024

	// MaxMemoryOffset bounds any memory offset or (offset+size) the reference
	// interpreter will accept before reporting a memory limit failure.
	MaxMemoryOffset uint64 = 1<<32 - 1
)

// Push1Gas is the cost of every PUSH1..PUSH32 variant (PUSH0 costs
// GasQuickStep); DUP and SWAP cost the same amount.
const Push1Gas = GasFastestStep
