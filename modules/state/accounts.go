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

package state

import (
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/shadowvm/shadowtrace/common/types"
)

// Account-level pre-state the host seeds before execution: balances and
// deployed code for BALANCE, SELFBALANCE and the EXTCODE* opcodes.

// SetBalance seeds the balance of addr.
func (s *IntraState) SetBalance(addr types.Address, balance *uint256.Int) {
	if s.balances == nil {
		s.balances = make(map[types.Address]uint256.Int)
	}
	s.balances[addr] = *balance
}

// GetBalance returns the balance of addr, zero for unknown accounts.
func (s *IntraState) GetBalance(addr types.Address) uint256.Int {
	return s.balances[addr]
}

// SetCode seeds the deployed code of addr.
func (s *IntraState) SetCode(addr types.Address, code []byte) {
	if s.codes == nil {
		s.codes = make(map[types.Address][]byte)
	}
	s.codes[addr] = code
}

// GetCode returns the deployed code of addr, nil for unknown accounts.
func (s *IntraState) GetCode(addr types.Address) []byte {
	return s.codes[addr]
}

// GetCodeSize returns the deployed code length of addr.
func (s *IntraState) GetCodeSize(addr types.Address) int {
	return len(s.codes[addr])
}

// GetCodeHash returns the keccak256 of the deployed code, the zero hash for
// non-existent accounts.
func (s *IntraState) GetCodeHash(addr types.Address) types.Hash {
	code, ok := s.codes[addr]
	if !ok {
		return types.Hash{}
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(code)
	var out types.Hash
	h.Sum(out[:0])
	return out
}
