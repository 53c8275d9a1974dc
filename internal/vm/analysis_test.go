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
	"testing"

	"github.com/shadowvm/shadowtrace/common/hexutil"
	"github.com/shadowvm/shadowtrace/modules/state"
)

// =============================================================================
// JUMPDEST analysis
// =============================================================================

func TestCodeBitmapMarksPushImmediates(t *testing.T) {
	// PUSH2 5b5b, JUMPDEST
	code := hexutil.MustDecode("0x615b5b5b")
	bits := codeBitmap(code)

	if !bits.codeSegment(0) {
		t.Error("PUSH2 opcode byte should be code")
	}
	if bits.codeSegment(1) || bits.codeSegment(2) {
		t.Error("PUSH2 immediates should be data")
	}
	if !bits.codeSegment(3) {
		t.Error("trailing JUMPDEST should be code")
	}
}

func TestCodeBitmapLongPush(t *testing.T) {
	// PUSH32 with a 0x5b somewhere in the middle of the immediate.
	code := make([]byte, 34)
	code[0] = byte(PUSH32)
	code[17] = 0x5b
	code[33] = byte(JUMPDEST)
	bits := codeBitmap(code)

	for pos := uint64(1); pos <= 32; pos++ {
		if bits.codeSegment(pos) {
			t.Fatalf("immediate byte %d should be data", pos)
		}
	}
	if !bits.codeSegment(33) {
		t.Error("byte after the immediate should be code")
	}
}

func TestValidJumpdest(t *testing.T) {
	// JUMPDEST at 0, PUSH1 5b (immediate at 2), JUMPDEST at 3.
	m := NewMachine(hexutil.MustDecode("0x5b605b5b"), 100, state.New())
	defer m.Release()

	if !m.validJumpdest(0) {
		t.Error("offset 0 is a real JUMPDEST")
	}
	if m.validJumpdest(1) {
		t.Error("offset 1 is a PUSH1 opcode, not a JUMPDEST")
	}
	if m.validJumpdest(2) {
		t.Error("offset 2 is a 0x5b inside a PUSH immediate")
	}
	if !m.validJumpdest(3) {
		t.Error("offset 3 is a real JUMPDEST")
	}
	if m.validJumpdest(100) {
		t.Error("out-of-range offset can never be a JUMPDEST")
	}
}

func TestAnalysisCacheSharesBitmaps(t *testing.T) {
	code := hexutil.MustDecode("0x5b605b5b")
	a := jumpdestAnalysis(code)
	b := jumpdestAnalysis(code)
	if &a[0] != &b[0] {
		t.Error("identical code should share one cached bitmap")
	}
}

// =============================================================================
// Basic blocks
// =============================================================================

func TestSplitBasicBlocks(t *testing.T) {
	// PUSH1 4, JUMP | INVALID | JUMPDEST, STOP
	code := hexutil.MustDecode("0x600456fe5b00")
	blocks := SplitBasicBlocks(code)

	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Start != 0 || blocks[0].End != 3 || blocks[0].Term != JUMP {
		t.Errorf("block 0 mismatch: %+v", blocks[0])
	}
	if blocks[1].Start != 3 || blocks[1].End != 4 || blocks[1].Term != INVALID {
		t.Errorf("block 1 mismatch: %+v", blocks[1])
	}
	if blocks[2].Start != 4 || blocks[2].Term != STOP {
		t.Errorf("block 2 mismatch: %+v", blocks[2])
	}
}

func TestSplitBasicBlocksIgnoresDataJumpdest(t *testing.T) {
	// PUSH2 5b5b, STOP: the 5b bytes are immediates, not block leaders.
	code := hexutil.MustDecode("0x615b5b00")
	blocks := SplitBasicBlocks(code)
	if len(blocks) != 1 {
		t.Fatalf("expected a single block, got %d", len(blocks))
	}
}
