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
)

// Memory is the byte-addressed frame memory. Its length is always a multiple
// of 32; it grows on access and never shrinks within a frame.
type Memory struct {
	store []byte
}

// NewMemory returns a new, empty memory model.
func NewMemory() *Memory {
	return &Memory{}
}

// Resize grows memory to size bytes. Shrinking is a no-op; the caller rounds
// size up to a word multiple and charges expansion gas first.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) < size {
		m.store = append(m.store, make([]byte, size-uint64(len(m.store)))...)
	}
}

// Set copies value into memory at offset. The backing store must already be
// large enough.
func (m *Memory) Set(offset, size uint64, value []byte) {
	if size > 0 {
		copy(m.store[offset:offset+size], value)
	}
}

// Set32 writes the 32-byte big-endian form of val at offset.
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	b32 := val.Bytes32()
	copy(m.store[offset:offset+32], b32[:])
}

// SetByte writes a single byte at offset.
func (m *Memory) SetByte(offset uint64, b byte) {
	m.store[offset] = b
}

// GetCopy returns a fresh copy of size bytes starting at offset.
func (m *Memory) GetCopy(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	cpy := make([]byte, size)
	copy(cpy, m.store[offset:offset+size])
	return cpy
}

// GetPtr returns a view into the backing store. The view is invalidated by
// the next Resize.
func (m *Memory) GetPtr(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// Len returns the current memory length in bytes.
func (m *Memory) Len() int {
	return len(m.store)
}

// Data returns the backing slice.
func (m *Memory) Data() []byte {
	return m.store
}

// Copy copies size bytes from src to dst inside memory, handling overlap
// (MCOPY semantics).
func (m *Memory) Copy(dst, src, size uint64) {
	if size == 0 {
		return
	}
	copy(m.store[dst:dst+size], m.store[src:src+size])
}

// wordCount returns ceil(size/32), the number of 32-byte words required for
// size bytes.
func wordCount(size uint64) uint64 {
	return (size + 31) / 32
}
