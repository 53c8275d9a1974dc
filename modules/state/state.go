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

// Package state holds the per-transaction state the reference interpreter
// executes against: persistent storage, EIP-1153 transient storage, emitted
// logs and the EIP-2929 access list. It is a self-contained in-memory model,
// not a database adapter; the host feeds it the pre-state it cares about.
package state

import (
	"github.com/holiman/uint256"

	"github.com/shadowvm/shadowtrace/common/types"
)

// Storage is a per-account slot mapping. Absent keys read as zero.
type Storage map[types.Hash]uint256.Int

// Copy returns a deep copy of the storage map.
func (s Storage) Copy() Storage {
	cp := make(Storage, len(s))
	for key, value := range s {
		cp[key] = value
	}
	return cp
}

// Log is a LOG0..LOG4 record captured during execution.
type Log struct {
	Address types.Address
	Topics  []types.Hash
	Data    []byte
}

// IntraState is the transaction-scoped state owned by one execution. One
// instance is shared by every frame of the transaction; the transient parts
// are discarded when the transaction ends.
type IntraState struct {
	storage    map[types.Address]Storage
	transient  transientStorage
	balances   map[types.Address]uint256.Int
	codes      map[types.Address][]byte
	logs       []*Log
	accessList *AccessList
}

// New creates an empty transaction state with a fresh access list.
func New() *IntraState {
	return &IntraState{
		storage:    make(map[types.Address]Storage),
		transient:  newTransientStorage(),
		accessList: NewAccessList(),
	}
}

// GetState retrieves a persistent storage slot. Absent slots read as zero.
func (s *IntraState) GetState(addr types.Address, key types.Hash) uint256.Int {
	if st, ok := s.storage[addr]; ok {
		return st[key]
	}
	return uint256.Int{}
}

// SetState stores a persistent storage slot.
func (s *IntraState) SetState(addr types.Address, key types.Hash, value uint256.Int) {
	st, ok := s.storage[addr]
	if !ok {
		st = make(Storage)
		s.storage[addr] = st
	}
	if value.IsZero() {
		delete(st, key)
		return
	}
	st[key] = value
}

// GetTransientState retrieves an EIP-1153 transient slot.
func (s *IntraState) GetTransientState(addr types.Address, key types.Hash) uint256.Int {
	return s.transient.Get(addr, key)
}

// SetTransientState stores an EIP-1153 transient slot.
func (s *IntraState) SetTransientState(addr types.Address, key types.Hash, value uint256.Int) {
	s.transient.Set(addr, key, value)
}

// AddLog appends a log record emitted by a LOG* opcode.
func (s *IntraState) AddLog(l *Log) {
	s.logs = append(s.logs, l)
}

// Logs returns the logs accumulated so far, in emission order.
func (s *IntraState) Logs() []*Log {
	return s.logs
}

// AccessList returns the shared warm/cold tracker for this transaction.
func (s *IntraState) AccessList() *AccessList {
	return s.accessList
}

// Copy returns a deep copy with a fresh, empty access list and no logs.
// Used to give two machines identical pre-state but independent warm/cold
// bookkeeping.
func (s *IntraState) Copy() *IntraState {
	cp := New()
	for addr, st := range s.storage {
		cp.storage[addr] = st.Copy()
	}
	cp.transient = s.transient.Copy()
	if s.balances != nil {
		cp.balances = make(map[types.Address]uint256.Int, len(s.balances))
		for addr, bal := range s.balances {
			cp.balances[addr] = bal
		}
	}
	if s.codes != nil {
		cp.codes = make(map[types.Address][]byte, len(s.codes))
		for addr, code := range s.codes {
			cp.codes[addr] = code
		}
	}
	return cp
}

// FinalizeTx clears the transaction-scoped parts: transient storage, logs and
// the access list. Persistent storage survives for the next transaction.
func (s *IntraState) FinalizeTx() {
	s.transient = newTransientStorage()
	s.logs = nil
	s.accessList.Reset()
}
