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
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/sha3"

	"github.com/shadowvm/shadowtrace/common/types"
)

// bitvec is a bit vector which maps bytes in a program. An unset bit means
// the byte is an opcode, a set bit means it's data, i.e. part of a PUSH
// immediate.
type bitvec []byte

func (bits bitvec) set1(pos uint64) {
	bits[pos/8] |= 1 << (pos % 8)
}

func (bits bitvec) setN(flag uint16, pos uint64) {
	a := uint32(flag) << (pos % 8)
	bits[pos/8] |= byte(a)
	if b := byte(a >> 8); b != 0 {
		bits[pos/8+1] = b
	}
	if c := byte(a >> 16); c != 0 {
		bits[pos/8+2] = c
	}
}

const (
	set2BitsMask = uint16(0b11)
	set3BitsMask = uint16(0b111)
	set4BitsMask = uint16(0b1111)
	set5BitsMask = uint16(0b1_1111)
	set6BitsMask = uint16(0b11_1111)
	set7BitsMask = uint16(0b111_1111)
)

// codeSegment checks if the position is in a code segment.
func (bits *bitvec) codeSegment(pos uint64) bool {
	return ((*bits)[pos/8] & (1 << (pos % 8))) == 0
}

// codeBitmap collects data locations in code.
func codeBitmap(code []byte) bitvec {
	// The bitmap is 4 bytes longer than necessary, in case the code ends
	// with a PUSH32, the algorithm will set bits on the bitvector outside
	// the bounds of the actual code.
	bits := make(bitvec, len(code)/8+1+4)
	for pc := uint64(0); pc < uint64(len(code)); {
		op := OpCode(code[pc])
		pc++
		if !op.IsPush() {
			continue
		}
		numbits := int(op - PUSH1 + 1)
		switch {
		case numbits >= 8:
			for ; numbits >= 16; numbits -= 16 {
				bits.setN(^uint16(0), pc)
				pc += 16
			}
			for ; numbits >= 8; numbits -= 8 {
				bits.setN(0xFF, pc)
				pc += 8
			}
		}
		switch numbits {
		case 1:
			bits.set1(pc)
		case 2:
			bits.setN(set2BitsMask, pc)
		case 3:
			bits.setN(set3BitsMask, pc)
		case 4:
			bits.setN(set4BitsMask, pc)
		case 5:
			bits.setN(set5BitsMask, pc)
		case 6:
			bits.setN(set6BitsMask, pc)
		case 7:
			bits.setN(set7BitsMask, pc)
		}
		pc += uint64(numbits)
	}
	return bits
}

// analysisCache memoizes jumpdest bitmaps by code hash. Bitmaps are immutable
// once computed, so sharing across machines is safe.
var analysisCache, _ = lru.New[types.Hash, bitvec](256)

// jumpdestAnalysis returns the data bitmap for code, computing and caching it
// on first use.
func jumpdestAnalysis(code []byte) bitvec {
	if len(code) == 0 {
		return bitvec{}
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(code)
	var key types.Hash
	h.Sum(key[:0])

	if bits, ok := analysisCache.Get(key); ok {
		return bits
	}
	bits := codeBitmap(code)
	analysisCache.Add(key, bits)
	return bits
}

// validJumpdest reports whether dest is a JUMPDEST byte lying outside of all
// PUSH immediates.
func (m *Machine) validJumpdest(dest uint64) bool {
	if dest >= uint64(len(m.code)) {
		return false
	}
	if OpCode(m.code[dest]) != JUMPDEST {
		return false
	}
	return m.analysis.codeSegment(dest)
}

// BasicBlock is a maximal straight-line bytecode span, the granularity at
// which the fast interpreter batches gas.
type BasicBlock struct {
	Start uint64 // offset of the first opcode
	End   uint64 // offset one past the last opcode byte (incl. immediates)
	Term  OpCode // terminating opcode, JUMPDEST-led blocks end at next terminator
}

// SplitBasicBlocks decomposes code into basic blocks. A block ends at a
// control-flow instruction (JUMP, JUMPI, STOP, RETURN, REVERT, INVALID,
// SELFDESTRUCT) or just before a JUMPDEST.
func SplitBasicBlocks(code []byte) []BasicBlock {
	var (
		blocks []BasicBlock
		start  uint64
		bits   = jumpdestAnalysis(code)
	)
	flush := func(end uint64, term OpCode) {
		if end > start {
			blocks = append(blocks, BasicBlock{Start: start, End: end, Term: term})
		}
		start = end
	}
	for pc := uint64(0); pc < uint64(len(code)); {
		op := OpCode(code[pc])
		if op == JUMPDEST && bits.codeSegment(pc) && pc > start {
			flush(pc, JUMPDEST)
		}
		next := pc + 1 + uint64(op.PushBytes())
		switch op {
		case JUMP, JUMPI, STOP, RETURN, REVERT, INVALID, SELFDESTRUCT:
			flush(next, op)
		}
		pc = next
	}
	flush(uint64(len(code)), STOP)
	return blocks
}
