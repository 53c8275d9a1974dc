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

// Package stack implements the EVM operand stack: at most 1024 256-bit words,
// top of stack last. Bounds are validated by the interpreter before each
// operation via the opcode's min/max stack metadata, so the raw accessors here
// do not re-check.
package stack

import (
	"sync"

	"github.com/holiman/uint256"
)

// Limit is the maximum number of items on the stack.
const Limit = 1024

var stackPool = sync.Pool{
	New: func() any {
		return &Stack{data: make([]uint256.Int, 0, 16)}
	},
}

// Stack is an object for basic stack operations. Items popped to the stack
// are expected not to be changed and modified.
type Stack struct {
	data []uint256.Int
}

// New returns a pooled, empty stack. Return it with ReturnNormalStack when
// the frame completes.
func New() *Stack {
	s := stackPool.Get().(*Stack)
	s.data = s.data[:0]
	return s
}

// ReturnNormalStack returns the stack to the pool.
func ReturnNormalStack(s *Stack) {
	s.data = s.data[:0]
	stackPool.Put(s)
}

// Data returns the backing slice, bottom first.
func (st *Stack) Data() []uint256.Int {
	return st.data
}

// Push puts d on top of the stack.
func (st *Stack) Push(d *uint256.Int) {
	st.data = append(st.data, *d)
}

// PushN puts ds on the stack in argument order, last argument topmost.
func (st *Stack) PushN(ds ...uint256.Int) {
	st.data = append(st.data, ds...)
}

// Pop removes and returns the topmost item.
func (st *Stack) Pop() (ret uint256.Int) {
	ret = st.data[len(st.data)-1]
	st.data = st.data[:len(st.data)-1]
	return
}

// Len returns the number of items on the stack.
func (st *Stack) Len() int {
	return len(st.data)
}

// Swap exchanges the top of the stack with the n'th item from the top.
// Swap(1) is a no-op, Swap(2) implements SWAP1.
func (st *Stack) Swap(n int) {
	st.data[st.Len()-n], st.data[st.Len()-1] = st.data[st.Len()-1], st.data[st.Len()-n]
}

// Dup duplicates the n'th item from the top onto the stack. Dup(1)
// implements DUP1.
func (st *Stack) Dup(n int) {
	st.Push(&st.data[st.Len()-n])
}

// Peek returns a pointer to the topmost item without removing it.
func (st *Stack) Peek() *uint256.Int {
	return &st.data[st.Len()-1]
}

// Back returns a pointer to the n'th item from the top. Back(0) is the top.
func (st *Stack) Back(n int) *uint256.Int {
	return &st.data[st.Len()-n-1]
}
