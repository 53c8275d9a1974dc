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

// Package tracer implements the differential-validation observer: for every
// fast-interpreter instruction event it advances a reference interpreter to
// the logically equivalent state, diffs the two machines, and emits a
// debug_traceTransaction-style JSON Lines event stream as a side effect.
package tracer

import (
	"encoding/hex"
	"io"

	"github.com/google/uuid"

	"github.com/shadowvm/shadowtrace/common/hexutil"
	"github.com/shadowvm/shadowtrace/conf"
	"github.com/shadowvm/shadowtrace/internal/vm"
	"github.com/shadowvm/shadowtrace/log"
	"github.com/shadowvm/shadowtrace/modules/state"
)

// DefaultTracer is the public facade: it owns the event writer and the
// synchronization engine, reads the shared access list, and implements the
// full Observer contract consumed by the fast interpreter.
type DefaultTracer struct {
	cfg    conf.TracerConfig
	writer *EventWriter // nil in validation-only mode
	engine *SyncEngine
	arena  *Arena
	logger log.Logger

	traceID      string
	divergent    bool
	aborted      bool
	endEmitted   bool
	closed       bool
	lastLogCount int

	onDivergence func(*Divergence)
}

var _ Observer = (*DefaultTracer)(nil)

// NewDefaultTracer creates a tracer emitting to out. Pass the configuration
// that selects filters and the arena size.
func NewDefaultTracer(cfg conf.TracerConfig, out io.Writer) *DefaultTracer {
	_ = cfg.Validate()
	t := &DefaultTracer{
		cfg:     cfg,
		arena:   NewArena(int(cfg.ArenaSize.Bytes())),
		traceID: uuid.NewString(),
		logger:  log.New("module", "tracer"),
	}
	if out != nil {
		t.writer = NewEventWriter(out)
		for _, name := range cfg.DisabledEvents {
			t.writer.DisableByName(name)
		}
	}
	return t
}

// NewValidationTracer creates a tracer that validates without emitting.
func NewValidationTracer(cfg conf.TracerConfig) *DefaultTracer {
	return NewDefaultTracer(cfg, nil)
}

// SetDivergenceHandler installs the host callback invoked on divergence.
// Divergences never stop fast execution; the handler is informational.
func (t *DefaultTracer) SetDivergenceHandler(fn func(*Divergence)) {
	t.onDivergence = fn
}

// StartExecution binds the tracer to a transaction: it builds the reference
// machine over code, shares the transaction state (and with it the access
// list, which the tracer only reads), and emits execution_start.
func (t *DefaultTracer) StartExecution(code []byte, gasLimit uint64, st *state.IntraState) *vm.Machine {
	ref := vm.NewMachine(code, gasLimit, st)
	t.engine = NewSyncEngine(ref)
	t.divergent = false
	t.endEmitted = false
	t.lastLogCount = 0
	t.emit(EvExecutionStart, map[string]interface{}{
		"id":       t.traceID,
		"code_len": len(code),
		"gas":      hexutil.EncodeUint64(gasLimit),
	})
	return ref
}

// EndExecution emits execution_end with the given status ("success",
// "reverted", "failed" or "aborted").
func (t *DefaultTracer) EndExecution(status string) {
	if t.endEmitted {
		return
	}
	t.endEmitted = true
	data := map[string]interface{}{
		"id":     t.traceID,
		"status": status,
	}
	if ref := t.reference(); ref != nil {
		data["gas_used"] = hexutil.EncodeUint64(ref.GasUsed())
		if t.cfg.IncludeReturnData && len(ref.ReturnData()) > 0 {
			data["return_data"] = hexutil.Encode(ref.ReturnData())
		}
	}
	t.emit(EvExecutionEnd, data)
}

// Abort is called when the host cancels execution. The tracer emits the
// terminal event on its next callback and stops further work.
func (t *DefaultTracer) Abort() {
	t.aborted = true
}

// Close releases the reference machine, the writer and accumulated buffers.
// It is idempotent.
func (t *DefaultTracer) Close() {
	if t.closed {
		return
	}
	t.closed = true
	if ref := t.reference(); ref != nil {
		ref.Release()
	}
	t.engine = nil
	t.writer = nil
	t.arena = nil
}

// Divergent reports whether a divergence has been observed this execution.
func (t *DefaultTracer) Divergent() bool { return t.divergent }

// Engine exposes the synchronization engine, mainly for tests.
func (t *DefaultTracer) Engine() *SyncEngine { return t.engine }

func (t *DefaultTracer) reference() *vm.Machine {
	if t.engine == nil {
		return nil
	}
	return t.engine.Reference()
}

// active reports whether callbacks should still do work, emitting the
// aborted terminal event on the first callback after cancellation.
func (t *DefaultTracer) active() bool {
	if t.closed {
		return false
	}
	if t.aborted {
		t.EndExecution("aborted")
		return false
	}
	return true
}

// emit adds the divergence marker and forwards to the writer, if any.
func (t *DefaultTracer) emit(ev EventType, data map[string]interface{}) {
	if t.writer == nil || t.closed {
		return
	}
	if t.divergent {
		data["divergent"] = true
	}
	t.writer.Emit(ev, data)
}

func (t *DefaultTracer) handleDivergence(err error) {
	if err == nil {
		return
	}
	d, ok := err.(*Divergence)
	if !ok {
		t.logger.Error("unexpected sync error", "err", err)
		return
	}
	t.divergent = true
	if t.onDivergence != nil {
		t.onDivergence(d)
	}
}

// =============================================================================
// Observer: frame lifecycle
// =============================================================================

func (t *DefaultTracer) OnFrameStart(codeLen int, gas uint64, depth int) {
	if !t.active() {
		return
	}
	if t.engine != nil {
		t.engine.PCTracker().Reset()
	}
	if t.arena != nil {
		t.arena.Reset()
	}
	t.emit(EvFrameStart, map[string]interface{}{
		"code_len": codeLen,
		"gas":      hexutil.EncodeUint64(gas),
		"depth":    depth,
	})
}

func (t *DefaultTracer) OnFrameComplete(gasLeft uint64, outputLen int) {
	if !t.active() {
		return
	}
	t.emit(EvFrameComplete, map[string]interface{}{
		"gas_left":   hexutil.EncodeUint64(gasLeft),
		"output_len": outputLen,
	})
	if t.arena != nil {
		t.arena.Reset()
		if t.cfg.DebugEvents {
			t.emit(EvArenaReset, map[string]interface{}{})
		}
	}
}

// =============================================================================
// Observer: instruction events
// =============================================================================

func (t *DefaultTracer) BeforeInstruction(op FastOp, fast FastState) {
	if !t.active() || t.engine == nil {
		return
	}
	t.engine.BeforeInstruction(op, fast)
}

func (t *DefaultTracer) AfterInstruction(op FastOp, fast FastState) {
	if !t.active() || t.engine == nil {
		return
	}
	t.handleDivergence(t.engine.AfterInstruction(op, fast))
	t.emitStep(op)
	t.emitStateEvents()
}

func (t *DefaultTracer) AfterComplete(op FastOp, fast FastState) {
	if !t.active() || t.engine == nil {
		return
	}
	t.handleDivergence(t.engine.AfterComplete(op, fast))
	ref := t.reference()
	if ref.Reverted() {
		data := map[string]interface{}{
			"op":       op.String(),
			"gas_used": hexutil.EncodeUint64(ref.GasUsed()),
		}
		if t.cfg.IncludeReturnData && len(ref.ReturnData()) > 0 {
			data["return_data"] = hexutil.Encode(ref.ReturnData())
		}
		t.emit(EvRevert, data)
		if ref.Depth() == 0 {
			t.EndExecution("reverted")
		}
		return
	}
	if ref.Depth() == 0 {
		t.EndExecution("success")
	}
}

// emitStep emits the per-instruction step event, applying the stack and
// memory filters. Filters never change validation, only the payload.
func (t *DefaultTracer) emitStep(op FastOp) {
	if t.writer == nil || !t.writer.Enabled(EvStep) {
		return
	}
	ref := t.reference()
	data := map[string]interface{}{
		"pc":       ref.PC(),
		"op":       op.String(),
		"gas":      hexutil.EncodeUint64(ref.GasRemaining()),
		"gas_used": hexutil.EncodeUint64(ref.GasUsed()),
		"depth":    ref.Depth(),
	}
	if t.cfg.IncludeStack {
		stackData := ref.Stack().Data()
		limit := len(stackData)
		if t.cfg.MaxStackItems > 0 && limit > t.cfg.MaxStackItems {
			limit = t.cfg.MaxStackItems
		}
		items := make([]string, 0, limit)
		// Top-down, capped at MaxStackItems.
		for i := 0; i < limit; i++ {
			w := stackData[len(stackData)-1-i]
			items = append(items, hexutil.EncodeWord(&w))
		}
		data["stack"] = items
	}
	if t.cfg.IncludeMemory && ref.Memory().Len() > 0 {
		if enc, ok := t.hexFromArena(ref.Memory().Data()); ok {
			data["memory"] = enc
		}
	}
	t.emit(EvStep, data)
}

// hexFromArena hex-encodes b through the frame arena. On arena exhaustion
// the payload is skipped and the alloc failure surfaced, but tracing goes on.
func (t *DefaultTracer) hexFromArena(b []byte) (string, bool) {
	if t.arena == nil {
		return hexutil.Encode(b), true
	}
	buf, ok := t.arena.Alloc(len(b) * 2)
	if !ok {
		t.OnArenaAllocFailed(uint64(len(b) * 2))
		return "", false
	}
	hex.Encode(buf, b)
	return "0x" + string(buf), true
}

// emitStateEvents emits storage_change and log events produced by the last
// synchronized step.
func (t *DefaultTracer) emitStateEvents() {
	ref := t.reference()
	if sc := ref.LastStorageChange; sc != nil {
		prev, val := sc.Prev, sc.Value
		t.emit(EvStorageChange, map[string]interface{}{
			"address": sc.Address.Hex(),
			"slot":    sc.Slot.Hex(),
			"prev":    hexutil.EncodeWord(&prev),
			"value":   hexutil.EncodeWord(&val),
		})
		ref.LastStorageChange = nil
	}
	logs := ref.State().Logs()
	for ; t.lastLogCount < len(logs); t.lastLogCount++ {
		l := logs[t.lastLogCount]
		topics := make([]string, len(l.Topics))
		for i, topic := range l.Topics {
			topics[i] = topic.Hex()
		}
		t.emit(EvLog, map[string]interface{}{
			"address": l.Address.Hex(),
			"topics":  topics,
			"data":    hexutil.Encode(l.Data),
		})
	}
}

// =============================================================================
// Observer: analysis hooks
// =============================================================================

func (t *DefaultTracer) OnBytecodeAnalysisStart(codeLen int) {
	if !t.active() || !t.cfg.DebugEvents {
		return
	}
	t.emit(EvBytecodeAnalysisStart, map[string]interface{}{"code_len": codeLen})
}

func (t *DefaultTracer) OnBytecodeAnalysisComplete(jumpdests int) {
	if !t.active() || !t.cfg.DebugEvents {
		return
	}
	t.emit(EvBytecodeAnalysisComplete, map[string]interface{}{"jumpdests": jumpdests})
}

func (t *DefaultTracer) OnJumpdestFound(pc uint64) {
	if !t.active() || !t.cfg.DebugEvents {
		return
	}
	t.emit(EvJumpdestFound, map[string]interface{}{"pc": pc})
}

func (t *DefaultTracer) OnInvalidOpcode(pc uint64, op byte) {
	if !t.active() {
		return
	}
	t.emit(EvInvalidOpcode, map[string]interface{}{
		"pc": pc,
		"op": hexutil.EncodeUint64(uint64(op)),
	})
}

func (t *DefaultTracer) OnScheduleBuildStart() {
	if !t.active() || !t.cfg.DebugEvents {
		return
	}
	t.emit(EvScheduleBuildStart, map[string]interface{}{})
}

func (t *DefaultTracer) OnScheduleBuildComplete(instructions int) {
	if !t.active() || !t.cfg.DebugEvents {
		return
	}
	t.emit(EvScheduleBuildComplete, map[string]interface{}{"instructions": instructions})
}

func (t *DefaultTracer) OnFusionDetected(op FastOp, pc uint64, span int) {
	if !t.active() || !t.cfg.DebugEvents {
		return
	}
	t.emit(EvFusionDetected, map[string]interface{}{
		"op":   op.String(),
		"pc":   pc,
		"span": span,
	})
}

func (t *DefaultTracer) OnStaticJumpResolved(pc, target uint64) {
	if !t.active() {
		return
	}
	if t.engine != nil {
		t.engine.PCTracker().NoteStaticJump(target)
	}
	if t.cfg.DebugEvents {
		t.emit(EvStaticJumpResolved, map[string]interface{}{
			"pc":     pc,
			"target": target,
		})
	}
}

func (t *DefaultTracer) OnStaticJumpInvalid(pc, target uint64) {
	if !t.active() || !t.cfg.DebugEvents {
		return
	}
	t.emit(EvInvalidOpcode, map[string]interface{}{
		"pc":     pc,
		"target": target,
		"reason": "static jump to invalid destination",
	})
}

func (t *DefaultTracer) OnTruncatedPush(pc uint64, have, want int) {
	if !t.active() || !t.cfg.DebugEvents {
		return
	}
	// No dedicated event type; truncated pushes only show up in the log.
	t.logger.Debug("truncated push", "pc", pc, "have", have, "want", want)
}

// =============================================================================
// Observer: host hooks
// =============================================================================

func (t *DefaultTracer) OnCallPreflight(depth int, gas uint64) {
	if !t.active() || !t.cfg.DebugEvents {
		return
	}
	t.emit(EvCallPreflight, map[string]interface{}{
		"depth": depth,
		"gas":   hexutil.EncodeUint64(gas),
	})
}

func (t *DefaultTracer) OnCallStart(depth int) {
	if !t.active() {
		return
	}
	t.emit(EvCallEnter, map[string]interface{}{"depth": depth})
	if t.cfg.DebugEvents {
		t.emit(EvCallStart, map[string]interface{}{"depth": depth})
	}
}

func (t *DefaultTracer) OnCallComplete(depth int, gasLeft uint64) {
	if !t.active() {
		return
	}
	t.emit(EvCallExit, map[string]interface{}{
		"depth":    depth,
		"gas_left": hexutil.EncodeUint64(gasLeft),
	})
	if t.cfg.DebugEvents {
		t.emit(EvCallComplete, map[string]interface{}{
			"depth":    depth,
			"gas_left": hexutil.EncodeUint64(gasLeft),
		})
	}
}

func (t *DefaultTracer) OnArenaInit(size uint64) {
	if !t.active() || !t.cfg.DebugEvents {
		return
	}
	t.emit(EvArenaInit, map[string]interface{}{"size": size})
}

func (t *DefaultTracer) OnArenaGrow(from, to uint64) {
	if !t.active() || !t.cfg.DebugEvents {
		return
	}
	t.emit(EvArenaGrow, map[string]interface{}{"from": from, "to": to})
}

func (t *DefaultTracer) OnArenaReset() {
	if !t.active() || !t.cfg.DebugEvents {
		return
	}
	t.emit(EvArenaReset, map[string]interface{}{})
}

func (t *DefaultTracer) OnArenaAllocFailed(want uint64) {
	if !t.active() {
		return
	}
	t.emit(EvArenaAllocFailed, map[string]interface{}{"want": want})
}
