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

// Package evmtypes holds the context records the reference interpreter reads
// for environment opcodes. Once provided they shouldn't be modified.
package evmtypes

import (
	"github.com/holiman/uint256"

	"github.com/shadowvm/shadowtrace/common/types"
)

// BlockContext provides the block-level information exposed through
// COINBASE, TIMESTAMP, NUMBER, PREVRANDAO, GASLIMIT, BASEFEE, BLOBBASEFEE
// and BLOCKHASH.
type BlockContext struct {
	// GetHash returns the hash corresponding to block n
	GetHash func(n uint64) types.Hash

	Coinbase    types.Address // Provides information for COINBASE
	GasLimit    uint64        // Provides information for GASLIMIT
	BlockNumber uint64        // Provides information for NUMBER
	Time        uint64        // Provides information for TIME
	PrevRanDao  types.Hash    // Provides information for PREVRANDAO
	BaseFee     *uint256.Int  // Provides information for BASEFEE
	BlobBaseFee *uint256.Int  // Provides information for BLOBBASEFEE
}

// TxContext provides the transaction-level information exposed through
// ORIGIN, GASPRICE and BLOBHASH. All fields can change between transactions.
type TxContext struct {
	Origin     types.Address // Provides information for ORIGIN
	GasPrice   *uint256.Int  // Provides information for GASPRICE
	ChainID    *uint256.Int  // Provides information for CHAINID
	BlobHashes []types.Hash  // Versioned blob hashes for BLOBHASH
}
