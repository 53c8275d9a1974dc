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

import "fmt"

// EventType enumerates the closed set of trace event kinds. The string form
// is the `type` field on the wire.
type EventType int

const (
	EvExecutionStart EventType = iota
	EvExecutionEnd
	EvStep
	EvCallEnter
	EvCallExit
	EvStorageChange
	EvLog
	EvRevert
	EvBytecodeAnalysisStart
	EvBytecodeAnalysisComplete
	EvJumpdestFound
	EvFusionDetected
	EvStaticJumpResolved
	EvInvalidOpcode
	EvScheduleBuildStart
	EvScheduleBuildComplete
	EvFrameStart
	EvFrameComplete
	EvArenaInit
	EvArenaGrow
	EvArenaReset
	EvArenaAllocFailed
	EvCallPreflight
	EvCallStart
	EvCallComplete

	evTypeCount // must stay last
)

var eventTypeNames = [evTypeCount]string{
	EvExecutionStart:           "execution_start",
	EvExecutionEnd:             "execution_end",
	EvStep:                     "step",
	EvCallEnter:                "call_enter",
	EvCallExit:                 "call_exit",
	EvStorageChange:            "storage_change",
	EvLog:                      "log",
	EvRevert:                   "revert",
	EvBytecodeAnalysisStart:    "bytecode_analysis_start",
	EvBytecodeAnalysisComplete: "bytecode_analysis_complete",
	EvJumpdestFound:            "jumpdest_found",
	EvFusionDetected:           "fusion_detected",
	EvStaticJumpResolved:       "static_jump_resolved",
	EvInvalidOpcode:            "invalid_opcode",
	EvScheduleBuildStart:       "schedule_build_start",
	EvScheduleBuildComplete:    "schedule_build_complete",
	EvFrameStart:               "frame_start",
	EvFrameComplete:            "frame_complete",
	EvArenaInit:                "arena_init",
	EvArenaGrow:                "arena_grow",
	EvArenaReset:               "arena_reset",
	EvArenaAllocFailed:         "arena_alloc_failed",
	EvCallPreflight:            "call_preflight",
	EvCallStart:                "call_start",
	EvCallComplete:             "call_complete",
}

func (t EventType) String() string {
	if t < 0 || t >= evTypeCount {
		return fmt.Sprintf("event type %d not defined", int(t))
	}
	return eventTypeNames[t]
}

// EventTypeByName resolves a wire name back to its EventType. The second
// return is false for unknown names.
func EventTypeByName(name string) (EventType, bool) {
	for i, n := range eventTypeNames {
		if n == name {
			return EventType(i), true
		}
	}
	return 0, false
}

// Event is one line of the trace stream. Timestamp is monotonic nanoseconds
// since writer init; Data's schema depends on Type.
type Event struct {
	Timestamp uint64                 `json:"timestamp"`
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
}
