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

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type failingWriter struct{ err error }

func (w *failingWriter) Write(p []byte) (int, error) { return 0, w.err }

func decodeLines(t *testing.T, buf *bytes.Buffer) []Event {
	t.Helper()
	var events []Event
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var evt Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("line %q is not standalone JSON: %v", line, err)
		}
		events = append(events, evt)
	}
	return events
}

// =============================================================================
// Wire format
// =============================================================================

func TestWriterEmitsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewEventWriter(&buf)

	w.Emit(EvExecutionStart, map[string]interface{}{"gas": "0x64"})
	w.Emit(EvStep, map[string]interface{}{"op": "ADD"})

	out := buf.String()
	if !strings.HasSuffix(out, "\n") {
		t.Error("every event must be newline terminated")
	}
	events := decodeLines(t, &buf)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != "execution_start" || events[1].Type != "step" {
		t.Errorf("unexpected types %q, %q", events[0].Type, events[1].Type)
	}
	if events[0].Data["gas"] != "0x64" {
		t.Errorf("payload should pass through, got %v", events[0].Data)
	}
}

func TestWriterTimestampsMonotonic(t *testing.T) {
	var buf bytes.Buffer
	w := NewEventWriter(&buf)
	for i := 0; i < 10; i++ {
		w.Emit(EvStep, map[string]interface{}{})
	}
	events := decodeLines(t, &buf)
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp < events[i-1].Timestamp {
			t.Fatalf("timestamps must be non-decreasing: %d then %d",
				events[i-1].Timestamp, events[i].Timestamp)
		}
	}
}

// =============================================================================
// Filters
// =============================================================================

func TestWriterDisableEventType(t *testing.T) {
	var buf bytes.Buffer
	w := NewEventWriter(&buf)
	w.DisableByName("step")

	w.Emit(EvStep, map[string]interface{}{})
	w.Emit(EvExecutionEnd, map[string]interface{}{})

	events := decodeLines(t, &buf)
	if len(events) != 1 || events[0].Type != "execution_end" {
		t.Errorf("disabled type must be dropped, got %+v", events)
	}
	// Unknown names are ignored without effect.
	w.DisableByName("no_such_event")
}

// =============================================================================
// Failure handling
// =============================================================================

func TestWriterDegradesAfterPersistentFailure(t *testing.T) {
	w := NewEventWriter(&failingWriter{err: errors.New("disk full")})

	for i := 0; i < degradeThreshold; i++ {
		if w.Degraded() {
			t.Fatalf("writer degraded too early at %d", i)
		}
		w.Emit(EvStep, map[string]interface{}{})
	}
	if !w.Degraded() {
		t.Fatal("writer should be degraded after the failure streak")
	}
	// Degraded writers drop events silently and never recover.
	w.Emit(EvStep, map[string]interface{}{})
	if !w.Degraded() {
		t.Error("degraded mode is permanent")
	}
}

func TestWriterRecoversFromTransientFailure(t *testing.T) {
	var buf bytes.Buffer

	// A single failure followed by successes must not degrade the writer.
	w := NewEventWriter(&buf)
	w.out = &failingWriter{err: errors.New("transient")}
	w.Emit(EvStep, map[string]interface{}{})
	w.out = &buf
	w.Emit(EvStep, map[string]interface{}{})
	if w.Degraded() {
		t.Error("one failure must not degrade the writer")
	}
	if w.failures != 0 {
		t.Error("a successful write resets the failure streak")
	}
}

// =============================================================================
// Event type names
// =============================================================================

func TestEventTypeNamesComplete(t *testing.T) {
	for i := EventType(0); i < evTypeCount; i++ {
		name := i.String()
		if name == "" || strings.Contains(name, "not defined") {
			t.Errorf("event type %d has no wire name", i)
		}
		back, ok := EventTypeByName(name)
		if !ok || back != i {
			t.Errorf("EventTypeByName(%q) = %v, %t", name, back, ok)
		}
	}
	if _, ok := EventTypeByName("bogus"); ok {
		t.Error("unknown names must not resolve")
	}
}
