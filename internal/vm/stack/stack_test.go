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

package stack

import (
	"testing"

	"github.com/holiman/uint256"
)

// =============================================================================
// Stack Basic Tests
// =============================================================================

func TestStackNew(t *testing.T) {
	s := New()
	if s == nil {
		t.Fatal("New() should not return nil")
	}
	if s.Len() != 0 {
		t.Errorf("New stack should be empty, got len=%d", s.Len())
	}
	ReturnNormalStack(s)
}

// Push followed by Pop must return the same word and leave the length
// unchanged.
func TestStackPushPopRoundTrip(t *testing.T) {
	s := New()
	defer ReturnNormalStack(s)

	val := uint256.NewInt(0xdeadbeef)
	before := s.Len()
	s.Push(val)
	popped := s.Pop()

	if popped.Cmp(val) != 0 {
		t.Errorf("Popped value should be %v, got %v", val, popped)
	}
	if s.Len() != before {
		t.Errorf("push;pop should leave length unchanged, got %d", s.Len())
	}
}

func TestStackPushN(t *testing.T) {
	s := New()
	defer ReturnNormalStack(s)

	vals := []uint256.Int{*uint256.NewInt(1), *uint256.NewInt(2), *uint256.NewInt(3)}
	s.PushN(vals...)

	if s.Len() != 3 {
		t.Fatalf("Stack length should be 3, got %d", s.Len())
	}
	// LIFO: last argument is topmost.
	for i := len(vals) - 1; i >= 0; i-- {
		popped := s.Pop()
		if popped.Cmp(&vals[i]) != 0 {
			t.Errorf("Popped value should be %v, got %v", vals[i], popped)
		}
	}
}

func TestStackPeekAndBack(t *testing.T) {
	s := New()
	defer ReturnNormalStack(s)

	s.Push(uint256.NewInt(1))
	s.Push(uint256.NewInt(2))
	s.Push(uint256.NewInt(3))

	if s.Peek().Uint64() != 3 {
		t.Errorf("Peek should be 3, got %v", s.Peek())
	}
	if s.Len() != 3 {
		t.Error("Peek should not change stack length")
	}
	for n, want := range map[int]uint64{0: 3, 1: 2, 2: 1} {
		if got := s.Back(n).Uint64(); got != want {
			t.Errorf("Back(%d) should be %d, got %d", n, want, got)
		}
	}
}

func TestStackSwap(t *testing.T) {
	s := New()
	defer ReturnNormalStack(s)

	s.Push(uint256.NewInt(1))
	s.Push(uint256.NewInt(2))
	s.Push(uint256.NewInt(3))

	// Swap(2) implements SWAP1: exchanges the top two items.
	s.Swap(2)
	if s.Peek().Uint64() != 2 {
		t.Errorf("After Swap(2), top should be 2, got %v", s.Peek())
	}
	s.Pop()
	if s.Peek().Uint64() != 3 {
		t.Errorf("After Swap(2) and Pop, top should be 3, got %v", s.Peek())
	}
}

func TestStackDup(t *testing.T) {
	s := New()
	defer ReturnNormalStack(s)

	s.Push(uint256.NewInt(7))
	s.Push(uint256.NewInt(8))

	// Dup(2) implements DUP2: copies the second item to the top.
	s.Dup(2)
	if s.Len() != 3 {
		t.Fatalf("Dup should grow the stack to 3, got %d", s.Len())
	}
	if s.Peek().Uint64() != 7 {
		t.Errorf("After Dup(2), top should be 7, got %v", s.Peek())
	}
}

func TestStackDataOrder(t *testing.T) {
	s := New()
	defer ReturnNormalStack(s)

	s.Push(uint256.NewInt(10))
	s.Push(uint256.NewInt(20))

	data := s.Data()
	if len(data) != 2 || data[0].Uint64() != 10 || data[1].Uint64() != 20 {
		t.Errorf("Data() should be bottom-first [10 20], got %v", data)
	}
}

func TestStackPoolReuse(t *testing.T) {
	s := New()
	s.Push(uint256.NewInt(1))
	ReturnNormalStack(s)

	s2 := New()
	defer ReturnNormalStack(s2)
	if s2.Len() != 0 {
		t.Errorf("pooled stack should come back empty, got len=%d", s2.Len())
	}
}
