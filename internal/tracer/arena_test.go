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

package tracer

import "testing"

func TestArenaAllocAndReset(t *testing.T) {
	a := NewArena(1024)

	b1, ok := a.Alloc(100)
	if !ok || len(b1) != 100 {
		t.Fatalf("first alloc failed: ok=%t len=%d", ok, len(b1))
	}
	b2, ok := a.Alloc(200)
	if !ok || len(b2) != 200 {
		t.Fatalf("second alloc failed: ok=%t len=%d", ok, len(b2))
	}
	if a.Len() != 300 {
		t.Errorf("arena should hold 300 bytes, got %d", a.Len())
	}

	a.Reset()
	if a.Len() != 0 {
		t.Error("Reset should recycle everything")
	}
	if a.Peak() != 300 {
		t.Errorf("peak should survive Reset, got %d", a.Peak())
	}
}

func TestArenaAllocZeroed(t *testing.T) {
	a := NewArena(64)
	b, _ := a.Alloc(16)
	for i := range b {
		b[i] = 0xff
	}
	a.Reset()
	b2, _ := a.Alloc(16)
	for i, v := range b2 {
		if v != 0 {
			t.Fatalf("recycled byte %d should be zeroed, got %#x", i, v)
		}
	}
}

func TestArenaExhaustion(t *testing.T) {
	a := NewArena(128)

	if _, ok := a.Alloc(129); ok {
		t.Fatal("oversized alloc should be refused")
	}
	if !a.Failed() {
		t.Error("refusal should be recorded")
	}
	// The arena stays usable for requests that fit.
	if _, ok := a.Alloc(64); !ok {
		t.Error("fitting alloc should still succeed")
	}
	if _, ok := a.Alloc(65); ok {
		t.Error("alloc past the remaining capacity should be refused")
	}
	a.Reset()
	if a.Failed() {
		t.Error("Reset clears the failure flag")
	}
	if _, ok := a.Alloc(128); !ok {
		t.Error("full capacity is available again after Reset")
	}
}

func TestArenaGrowsWithinCap(t *testing.T) {
	a := NewArena(64 << 10)
	if _, ok := a.Alloc(32 << 10); !ok {
		t.Fatal("arena should grow its backing store up to cap")
	}
}
