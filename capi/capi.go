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

// Package main exports the reference interpreter over a C ABI for embedding.
// Build with `go build -buildmode=c-shared` to produce libshadowtrace.
//
// A machine is addressed by an opaque int64 handle; every entry point checks
// handle validity before touching the machine. All multi-byte integers at
// the boundary are 32-byte big-endian arrays.
package main

/*
#include <stdint.h>
#include <stddef.h>
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/holiman/uint256"

	"github.com/shadowvm/shadowtrace/common/types"
	"github.com/shadowvm/shadowtrace/internal/vm"
	"github.com/shadowvm/shadowtrace/modules/state"
)

// handleRegistry maps opaque handles to live machines. Handles are never
// reused within a process, so a stale handle reliably fails the lookup.
var handleRegistry = struct {
	mu       sync.Mutex
	next     C.int64_t
	machines map[C.int64_t]*vm.Machine
}{
	next:     1,
	machines: make(map[C.int64_t]*vm.Machine),
}

func lookup(handle C.int64_t) *vm.Machine {
	handleRegistry.mu.Lock()
	defer handleRegistry.mu.Unlock()
	return handleRegistry.machines[handle]
}

func goBytes(ptr *C.uint8_t, length C.size_t) []byte {
	if ptr == nil || length == 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(ptr), C.int(length))
}

func put32(out *C.uint8_t, b [32]byte) {
	if out == nil {
		return
	}
	dst := unsafe.Slice((*byte)(out), 32)
	copy(dst, b[:])
}

func read32(in *C.uint8_t) [32]byte {
	var b [32]byte
	if in != nil {
		copy(b[:], unsafe.Slice((*byte)(in), 32))
	}
	return b
}

func read20(in *C.uint8_t) types.Address {
	var a types.Address
	if in != nil {
		copy(a[:], unsafe.Slice((*byte)(in), 20))
	}
	return a
}

//export shadowtrace_create
func shadowtrace_create(bytecodePtr *C.uint8_t, bytecodeLen C.size_t, gasLimit C.uint64_t) C.int64_t {
	code := goBytes(bytecodePtr, bytecodeLen)
	m := vm.NewMachine(code, uint64(gasLimit), state.New())

	handleRegistry.mu.Lock()
	defer handleRegistry.mu.Unlock()
	handle := handleRegistry.next
	handleRegistry.next++
	handleRegistry.machines[handle] = m
	return handle
}

//export shadowtrace_destroy
func shadowtrace_destroy(handle C.int64_t) {
	handleRegistry.mu.Lock()
	defer handleRegistry.mu.Unlock()
	if m, ok := handleRegistry.machines[handle]; ok {
		m.Release()
		delete(handleRegistry.machines, handle)
	}
}

//export shadowtrace_set_call_context
func shadowtrace_set_call_context(handle C.int64_t, caller, callee *C.uint8_t, valueBE *C.uint8_t, calldataPtr *C.uint8_t, calldataLen C.size_t) C.int {
	m := lookup(handle)
	if m == nil {
		return 0
	}
	value := read32(valueBE)
	m.SetCallContext(read20(caller), read20(callee),
		new(uint256.Int).SetBytes(value[:]), goBytes(calldataPtr, calldataLen))
	return 1
}

//export shadowtrace_step
func shadowtrace_step(handle C.int64_t) C.int {
	m := lookup(handle)
	if m == nil {
		return 0
	}
	if err := m.Step(); err != nil {
		return 0
	}
	return 1
}

//export shadowtrace_execute
func shadowtrace_execute(handle C.int64_t) C.int {
	m := lookup(handle)
	if m == nil {
		return 0
	}
	m.Execute()
	if m.Stopped() {
		return 1
	}
	return 0
}

//export shadowtrace_get_pc
func shadowtrace_get_pc(handle C.int64_t) C.uint64_t {
	if m := lookup(handle); m != nil {
		return C.uint64_t(m.PC())
	}
	return 0
}

//export shadowtrace_get_gas_remaining
func shadowtrace_get_gas_remaining(handle C.int64_t) C.uint64_t {
	if m := lookup(handle); m != nil {
		return C.uint64_t(m.GasRemaining())
	}
	return 0
}

//export shadowtrace_get_gas_used
func shadowtrace_get_gas_used(handle C.int64_t) C.uint64_t {
	if m := lookup(handle); m != nil {
		return C.uint64_t(m.GasUsed())
	}
	return 0
}

//export shadowtrace_get_stopped
func shadowtrace_get_stopped(handle C.int64_t) C.int {
	if m := lookup(handle); m != nil && m.Stopped() {
		return 1
	}
	return 0
}

//export shadowtrace_get_reverted
func shadowtrace_get_reverted(handle C.int64_t) C.int {
	if m := lookup(handle); m != nil && m.Reverted() {
		return 1
	}
	return 0
}

//export shadowtrace_get_stack_size
func shadowtrace_get_stack_size(handle C.int64_t) C.size_t {
	if m := lookup(handle); m != nil {
		return C.size_t(m.Stack().Len())
	}
	return 0
}

//export shadowtrace_get_memory_size
func shadowtrace_get_memory_size(handle C.int64_t) C.size_t {
	if m := lookup(handle); m != nil {
		return C.size_t(m.Memory().Len())
	}
	return 0
}

//export shadowtrace_get_stack_item
func shadowtrace_get_stack_item(handle C.int64_t, indexFromTop C.size_t, out *C.uint8_t) C.int {
	m := lookup(handle)
	if m == nil {
		return 0
	}
	index, ok := vm.SafeUint64ToInt(uint64(indexFromTop))
	if !ok || index >= m.Stack().Len() {
		return 0
	}
	item := m.StackItem(index)
	put32(out, item.Bytes32())
	return 1
}

//export shadowtrace_read_memory
func shadowtrace_read_memory(handle C.int64_t, offset C.uint64_t) C.uint8_t {
	if m := lookup(handle); m != nil {
		return C.uint8_t(m.ReadMemory(uint64(offset)))
	}
	return 0
}

//export shadowtrace_read_memory_word
func shadowtrace_read_memory_word(handle C.int64_t, offset C.uint64_t, out *C.uint8_t) C.int {
	m := lookup(handle)
	if m == nil {
		return 0
	}
	put32(out, m.ReadMemoryWord(uint64(offset)))
	return 1
}

//export shadowtrace_push_stack
func shadowtrace_push_stack(handle C.int64_t, in *C.uint8_t) C.int {
	m := lookup(handle)
	if m == nil {
		return 0
	}
	b := read32(in)
	if !m.PushStack(new(uint256.Int).SetBytes(b[:])) {
		return 0
	}
	return 1
}

//export shadowtrace_pop_stack
func shadowtrace_pop_stack(handle C.int64_t, out *C.uint8_t) C.int {
	m := lookup(handle)
	if m == nil {
		return 0
	}
	w, ok := m.PopStack()
	if !ok {
		return 0
	}
	put32(out, w.Bytes32())
	return 1
}

//export shadowtrace_read_storage
func shadowtrace_read_storage(handle C.int64_t, addr *C.uint8_t, slotBE *C.uint8_t, out *C.uint8_t) C.int {
	m := lookup(handle)
	if m == nil {
		return 0
	}
	slot := read32(slotBE)
	val := m.State().GetState(read20(addr), types.BytesToHash(slot[:]))
	put32(out, val.Bytes32())
	return 1
}

//export shadowtrace_write_storage
func shadowtrace_write_storage(handle C.int64_t, addr *C.uint8_t, slotBE *C.uint8_t, valueBE *C.uint8_t) C.int {
	m := lookup(handle)
	if m == nil {
		return 0
	}
	slot, value := read32(slotBE), read32(valueBE)
	m.State().SetState(read20(addr), types.BytesToHash(slot[:]), *new(uint256.Int).SetBytes(value[:]))
	return 1
}

func main() {}
