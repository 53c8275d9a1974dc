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
	"encoding/json"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/paulbellamy/ratecounter"
	pkgerrors "github.com/pkg/errors"

	"github.com/shadowvm/shadowtrace/log"
)

// degradeThreshold is the number of consecutive write failures after which
// the writer stops trying and drops every further event.
const degradeThreshold = 8

var (
	eventsEmitted = metrics.GetOrCreateCounter("shadowtrace_events_emitted_total")
	eventsDropped = metrics.GetOrCreateCounter("shadowtrace_events_dropped_total")
)

// EventWriter serializes trace events as JSON Lines: one object per event,
// UTF-8, newline terminated, no pretty printing. Writer failures never reach
// the interpreter's error path: a failed write is logged and the event
// dropped; a persistent failure streak flips the writer into degraded mode.
type EventWriter struct {
	out      io.Writer
	start    time.Time
	enabled  [evTypeCount]bool
	degraded bool
	failures int
	rate     *ratecounter.RateCounter
	logger   log.Logger
}

// NewEventWriter creates a writer over out with every event type enabled.
// The timestamp clock starts now.
func NewEventWriter(out io.Writer) *EventWriter {
	w := &EventWriter{
		out:    out,
		start:  time.Now(),
		rate:   ratecounter.NewRateCounter(time.Second),
		logger: log.New("module", "tracer"),
	}
	for i := range w.enabled {
		w.enabled[i] = true
	}
	return w
}

// Disable turns off emission for one event type. Disabling never changes
// validation semantics, only what reaches the stream.
func (w *EventWriter) Disable(t EventType) {
	if t >= 0 && t < evTypeCount {
		w.enabled[t] = false
	}
}

// DisableByName turns off emission for a wire name, ignoring unknown names.
func (w *EventWriter) DisableByName(name string) {
	if t, ok := EventTypeByName(name); ok {
		w.Disable(t)
	}
}

// Enabled reports whether t is currently emitted.
func (w *EventWriter) Enabled(t EventType) bool {
	return !w.degraded && t >= 0 && t < evTypeCount && w.enabled[t]
}

// Degraded reports whether the writer has given up on its output.
func (w *EventWriter) Degraded() bool { return w.degraded }

// EventsPerSecond returns the emission rate over the last second.
func (w *EventWriter) EventsPerSecond() int64 { return w.rate.Rate() }

// Emit writes one event line. Data must be JSON-marshalable; word and byte
// values are expected to be hex strings already (see hexutil).
func (w *EventWriter) Emit(t EventType, data map[string]interface{}) {
	if !w.Enabled(t) {
		eventsDropped.Inc()
		return
	}
	evt := Event{
		Timestamp: uint64(time.Since(w.start).Nanoseconds()),
		Type:      t.String(),
		Data:      data,
	}
	line, err := json.Marshal(&evt)
	if err != nil {
		// Marshal failures are programming errors in the payload builder,
		// not I/O conditions; they still only cost the one event.
		w.logger.Error("trace event marshal failed", "type", t.String(), "err", err)
		eventsDropped.Inc()
		return
	}
	line = append(line, '\n')
	if _, err := w.out.Write(line); err != nil {
		w.failures++
		eventsDropped.Inc()
		w.logger.Warn("trace event write failed",
			"type", t.String(),
			"failures", w.failures,
			"err", pkgerrors.Wrap(err, "event writer"),
		)
		if w.failures >= degradeThreshold && !w.degraded {
			w.degraded = true
			w.logger.Error("trace writer degraded, events dropped from here on",
				"consecutive_failures", w.failures)
		}
		return
	}
	w.failures = 0
	w.rate.Incr(1)
	eventsEmitted.Inc()
}
