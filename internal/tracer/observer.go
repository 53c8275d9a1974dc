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

// Observer is the capability set the fast interpreter calls into. Callbacks
// run synchronously on the interpreter's thread and must never mutate the
// observed machine: the fast state is byte-identical before and after every
// call.
//
// Concrete variants are NoopObserver and DefaultTracer. Implementations that
// only care about a subset of hooks embed NoopObserver, which is how omitted
// optional hooks are tolerated.
type Observer interface {
	// Frame lifecycle.
	OnFrameStart(codeLen int, gas uint64, depth int)
	OnFrameComplete(gasLeft uint64, outputLen int)

	// Instruction events. BeforeInstruction fires immediately before handler
	// dispatch, AfterInstruction immediately after successful execution,
	// AfterComplete for terminal handlers.
	BeforeInstruction(op FastOp, fast FastState)
	AfterInstruction(op FastOp, fast FastState)
	AfterComplete(op FastOp, fast FastState)

	// Analysis hooks (optional).
	OnBytecodeAnalysisStart(codeLen int)
	OnBytecodeAnalysisComplete(jumpdests int)
	OnJumpdestFound(pc uint64)
	OnInvalidOpcode(pc uint64, op byte)
	OnScheduleBuildStart()
	OnScheduleBuildComplete(instructions int)
	OnFusionDetected(op FastOp, pc uint64, span int)
	OnStaticJumpResolved(pc, target uint64)
	OnStaticJumpInvalid(pc, target uint64)
	OnTruncatedPush(pc uint64, have, want int)

	// Host hooks (optional).
	OnCallPreflight(depth int, gas uint64)
	OnCallStart(depth int)
	OnCallComplete(depth int, gasLeft uint64)
	OnArenaInit(size uint64)
	OnArenaGrow(from, to uint64)
	OnArenaReset()
	OnArenaAllocFailed(want uint64)
}

// NoopObserver implements Observer with empty bodies. Embed it to implement
// only the hooks of interest.
type NoopObserver struct{}

func (NoopObserver) OnFrameStart(codeLen int, gas uint64, depth int)  {}
func (NoopObserver) OnFrameComplete(gasLeft uint64, outputLen int)    {}
func (NoopObserver) BeforeInstruction(op FastOp, fast FastState)      {}
func (NoopObserver) AfterInstruction(op FastOp, fast FastState)       {}
func (NoopObserver) AfterComplete(op FastOp, fast FastState)          {}
func (NoopObserver) OnBytecodeAnalysisStart(codeLen int)              {}
func (NoopObserver) OnBytecodeAnalysisComplete(jumpdests int)         {}
func (NoopObserver) OnJumpdestFound(pc uint64)                        {}
func (NoopObserver) OnInvalidOpcode(pc uint64, op byte)               {}
func (NoopObserver) OnScheduleBuildStart()                            {}
func (NoopObserver) OnScheduleBuildComplete(instructions int)         {}
func (NoopObserver) OnFusionDetected(op FastOp, pc uint64, span int)  {}
func (NoopObserver) OnStaticJumpResolved(pc, target uint64)           {}
func (NoopObserver) OnStaticJumpInvalid(pc, target uint64)            {}
func (NoopObserver) OnTruncatedPush(pc uint64, have, want int)        {}
func (NoopObserver) OnCallPreflight(depth int, gas uint64)            {}
func (NoopObserver) OnCallStart(depth int)                            {}
func (NoopObserver) OnCallComplete(depth int, gasLeft uint64)         {}
func (NoopObserver) OnArenaInit(size uint64)                          {}
func (NoopObserver) OnArenaGrow(from, to uint64)                      {}
func (NoopObserver) OnArenaReset()                                    {}
func (NoopObserver) OnArenaAllocFailed(want uint64)                   {}

var _ Observer = NoopObserver{}
