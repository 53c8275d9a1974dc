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

// cfg renders the basic-block control-flow graph of EVM bytecode as
// Graphviz dot. Static jump edges (PUSH immediately before JUMP/JUMPI) are
// drawn solid, fallthrough edges dashed.
//
// Usage:
//
//	cfg 600456005b00 | dot -Tsvg -o cfg.svg
package main

import (
	"fmt"
	"os"

	"github.com/emicklei/dot"

	"github.com/shadowvm/shadowtrace/common/hexutil"
	"github.com/shadowvm/shadowtrace/internal/vm"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: cfg <bytecode-hex>")
		os.Exit(1)
	}
	code, err := hexutil.DecodeLoose(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad bytecode hex: %v\n", err)
		os.Exit(1)
	}

	blocks := vm.SplitBasicBlocks(code)
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "TB")

	nodes := make(map[uint64]dot.Node, len(blocks))
	for _, b := range blocks {
		label := fmt.Sprintf("%d..%d\n%s", b.Start, b.End-1, blockSummary(code, b))
		n := g.Node(fmt.Sprintf("b%d", b.Start)).Box().Label(label)
		nodes[b.Start] = n
	}

	for i, b := range blocks {
		from := nodes[b.Start]
		// Static jump targets: a PUSH directly feeding the terminator.
		if target, ok := staticJumpTarget(code, b); ok {
			if to, exists := nodes[target]; exists {
				g.Edge(from, to)
			}
		}
		// Fallthrough into the next block unless the block ends the frame
		// with an unconditional transfer.
		if i+1 < len(blocks) {
			switch b.Term {
			case vm.JUMP, vm.STOP, vm.RETURN, vm.REVERT, vm.INVALID, vm.SELFDESTRUCT:
			default:
				g.Edge(from, nodes[blocks[i+1].Start]).Attr("style", "dashed")
			}
		}
	}

	fmt.Println(g.String())
}

// blockSummary lists up to four mnemonics of the block.
func blockSummary(code []byte, b vm.BasicBlock) string {
	var (
		out   string
		count int
	)
	for pc := b.Start; pc < b.End && count < 4; count++ {
		op := vm.OpCode(code[pc])
		if out != "" {
			out += "\n"
		}
		out += op.String()
		pc += 1 + uint64(op.PushBytes())
	}
	if count == 4 {
		out += "\n..."
	}
	return out
}

// staticJumpTarget resolves the jump target when the terminator is a
// JUMP/JUMPI fed by an immediately preceding PUSH.
func staticJumpTarget(code []byte, b vm.BasicBlock) (uint64, bool) {
	if b.Term != vm.JUMP && b.Term != vm.JUMPI {
		return 0, false
	}
	var prevStart, pc uint64
	prevFound := false
	for pc = b.Start; pc < b.End; {
		op := vm.OpCode(code[pc])
		next := pc + 1 + uint64(op.PushBytes())
		if next >= b.End {
			break // pc is the terminator
		}
		prevStart, prevFound = pc, true
		pc = next
	}
	if !prevFound {
		return 0, false
	}
	prev := vm.OpCode(code[prevStart])
	if !prev.IsPush() {
		return 0, false
	}
	end := prevStart + 1 + uint64(prev.PushBytes())
	if end > uint64(len(code)) || prev.PushBytes() > 8 {
		return 0, false
	}
	var target uint64
	for _, by := range code[prevStart+1 : end] {
		target = target<<8 | uint64(by)
	}
	return target, true
}
