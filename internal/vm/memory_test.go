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
	"bytes"
	"testing"

	"github.com/holiman/uint256"
)

// =============================================================================
// Memory Model Tests
// =============================================================================

func TestMemoryResizeNeverShrinks(t *testing.T) {
	mem := NewMemory()
	mem.Resize(64)
	if mem.Len() != 64 {
		t.Fatalf("expected 64 bytes, got %d", mem.Len())
	}
	mem.Resize(32)
	if mem.Len() != 64 {
		t.Errorf("Resize must never shrink, got %d", mem.Len())
	}
}

func TestMemorySet32(t *testing.T) {
	mem := NewMemory()
	mem.Resize(64)
	mem.Set32(16, uint256.NewInt(0xbeef))

	got := mem.GetCopy(16, 32)
	if got[31] != 0xef || got[30] != 0xbe {
		t.Errorf("Set32 should store big-endian, got % x", got)
	}
	for i := 0; i < 30; i++ {
		if got[i] != 0 {
			t.Fatalf("leading byte %d should be zero", i)
		}
	}
}

func TestMemoryGetCopyIsDetached(t *testing.T) {
	mem := NewMemory()
	mem.Resize(32)
	mem.SetByte(0, 0xaa)

	cpy := mem.GetCopy(0, 32)
	mem.SetByte(0, 0xbb)
	if cpy[0] != 0xaa {
		t.Error("GetCopy must not alias the backing store")
	}
}

func TestMemoryZeroSizeAccessors(t *testing.T) {
	mem := NewMemory()
	if got := mem.GetCopy(0, 0); got != nil {
		t.Errorf("zero-size GetCopy should be nil, got %v", got)
	}
	if got := mem.GetPtr(0, 0); got != nil {
		t.Errorf("zero-size GetPtr should be nil, got %v", got)
	}
}

func TestMemoryCopyOverlap(t *testing.T) {
	mem := NewMemory()
	mem.Resize(64)
	for i := 0; i < 8; i++ {
		mem.SetByte(uint64(i), byte(i+1))
	}
	// Overlapping forward copy, MCOPY semantics.
	mem.Copy(2, 0, 8)
	want := []byte{1, 2, 1, 2, 3, 4, 5, 6, 7, 8}
	if !bytes.Equal(mem.GetCopy(0, 10), want) {
		t.Errorf("overlapping copy mismatch: got % x want % x", mem.GetCopy(0, 10), want)
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		size, words uint64
	}{
		{0, 0}, {1, 1}, {31, 1}, {32, 1}, {33, 2}, {64, 2}, {65, 3},
	}
	for _, tt := range tests {
		if got := wordCount(tt.size); got != tt.words {
			t.Errorf("wordCount(%d) = %d, want %d", tt.size, got, tt.words)
		}
	}
}

// =============================================================================
// Memory expansion gas
// =============================================================================

func TestMemoryGasCostQuadratic(t *testing.T) {
	mem := NewMemory()

	// First word: 3*1 + 1/512 = 3.
	gas, err := memoryGasCost(mem, 32)
	if err != nil || gas != 3 {
		t.Errorf("expansion to 1 word should cost 3, got %d (%v)", gas, err)
	}

	// 1024 words: 3*1024 + 1024*1024/512 = 3072 + 2048 = 5120.
	gas, err = memoryGasCost(mem, 1024*32)
	if err != nil || gas != 5120 {
		t.Errorf("expansion to 1024 words should cost 5120, got %d (%v)", gas, err)
	}

	// Already-covered size is free.
	mem.Resize(64)
	gas, err = memoryGasCost(mem, 32)
	if err != nil || gas != 0 {
		t.Errorf("no expansion should cost 0, got %d (%v)", gas, err)
	}
}

func TestMemoryGasCostLimit(t *testing.T) {
	mem := NewMemory()
	if _, err := memoryGasCost(mem, 1<<33); err == nil {
		t.Error("expansion past the addressable range should fail")
	}
}
