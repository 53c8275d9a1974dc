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
	"github.com/shadowvm/shadowtrace/pkg/errors"
)

// PCTracker correlates fast-interpreter cursor positions with the reference
// interpreter's program counter. The reference PC is the single source of
// truth for "where are we in the bytecode"; the fast cursor is opaque and
// only checked for forward progress within a basic block.
type PCTracker struct {
	lastCursor    uint64
	sawCursor     bool
	pendingTarget uint64
	hasPending    bool
}

// RecordCursor notes the cursor of the current dispatch and reports whether
// it moved since the previous one. Jumps legitimately move the cursor
// backwards, so regress is informational, not an error.
func (t *PCTracker) RecordCursor(cursor uint64) (advanced bool) {
	advanced = !t.sawCursor || cursor > t.lastCursor
	t.lastCursor = cursor
	t.sawCursor = true
	return advanced
}

// NoteStaticJump records a jump target the fast interpreter resolved at
// analysis time. The next synchronized jump must land the reference PC there.
func (t *PCTracker) NoteStaticJump(target uint64) {
	t.pendingTarget = target
	t.hasPending = true
}

// VerifyJump checks the reference PC against a pending static jump target.
// Without a pending target it accepts any PC.
func (t *PCTracker) VerifyJump(refPC uint64) error {
	if !t.hasPending {
		return nil
	}
	t.hasPending = false
	if refPC != t.pendingTarget {
		return errors.Wrapf(errors.ErrJumpTargetMismatch,
			"resolved to %d, reference landed at %d", t.pendingTarget, refPC)
	}
	return nil
}

// Reset clears cursor history on a frame boundary.
func (t *PCTracker) Reset() {
	t.sawCursor = false
	t.hasPending = false
}
