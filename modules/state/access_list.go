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
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/shadowvm/shadowtrace/common/types"
)

// slotKey identifies a single storage slot of a single account.
type slotKey struct {
	addr types.Address
	slot types.Hash
}

// AccessList is the EIP-2929 warm/cold tracker: a set of warm addresses and a
// set of warm (address, slot) pairs. Both sets only grow within a transaction;
// Reset is called on the transaction boundary only.
//
// The list is shared by reference between the host and the tracer. The host
// mutates it during state-access opcodes; the tracer only reads the sizes of
// the warm sets (AddressCount, SlotCount).
type AccessList struct {
	addresses mapset.Set[types.Address]
	slots     mapset.Set[slotKey]
}

// NewAccessList creates an empty access list.
func NewAccessList() *AccessList {
	return &AccessList{
		addresses: mapset.NewThreadUnsafeSet[types.Address](),
		slots:     mapset.NewThreadUnsafeSet[slotKey](),
	}
}

// TouchAddress marks addr warm and reports whether it was cold before.
func (al *AccessList) TouchAddress(addr types.Address) (wasCold bool) {
	return al.addresses.Add(addr)
}

// TouchSlot marks (addr, slot) warm and reports whether the pair was cold
// before. The address itself is warmed as well: a slot access always implies
// an account access.
func (al *AccessList) TouchSlot(addr types.Address, slot types.Hash) (wasCold bool) {
	al.addresses.Add(addr)
	return al.slots.Add(slotKey{addr: addr, slot: slot})
}

// ContainsAddress reports whether addr is warm.
func (al *AccessList) ContainsAddress(addr types.Address) bool {
	return al.addresses.Contains(addr)
}

// Contains reports whether the (addr, slot) pair is warm.
func (al *AccessList) Contains(addr types.Address, slot types.Hash) bool {
	return al.slots.Contains(slotKey{addr: addr, slot: slot})
}

// AddressCount returns the number of warm addresses.
func (al *AccessList) AddressCount() int { return al.addresses.Cardinality() }

// SlotCount returns the number of warm (address, slot) pairs.
func (al *AccessList) SlotCount() int { return al.slots.Cardinality() }

// Reset empties both sets. Only legal on a transaction boundary.
func (al *AccessList) Reset() {
	al.addresses.Clear()
	al.slots.Clear()
}
