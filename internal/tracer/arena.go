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

// Arena is the per-frame scratch allocator for event payload buffers. It is
// a bump allocator over one backing slice: Alloc hands out sub-slices,
// Reset recycles everything in O(1) on frame exit. Exceeding the capacity
// does not abort tracing: the caller leaves out the payload that needed the
// space and reports arena_alloc_failed; other events are still emitted.
type Arena struct {
	buf    []byte
	off    int
	cap    int
	peak   int
	failed bool
}

// NewArena creates an arena with the given capacity in bytes. The backing
// slice starts small and grows on demand up to cap.
func NewArena(capacity int) *Arena {
	if capacity <= 0 {
		capacity = 64 << 10
	}
	initial := capacity / 8
	if initial < 512 {
		initial = capacity
	}
	return &Arena{
		buf: make([]byte, initial),
		cap: capacity,
	}
}

// Alloc returns a zeroed n-byte scratch slice. ok is false when the request
// does not fit the remaining capacity; the arena records the failure and
// stays usable for smaller requests.
func (a *Arena) Alloc(n int) (b []byte, ok bool) {
	if n < 0 || a.off+n > a.cap {
		a.failed = true
		return nil, false
	}
	if a.off+n > len(a.buf) {
		grown := make([]byte, growSize(len(a.buf), a.off+n, a.cap))
		copy(grown, a.buf[:a.off])
		a.buf = grown
	}
	b = a.buf[a.off : a.off+n]
	for i := range b {
		b[i] = 0
	}
	a.off += n
	if a.off > a.peak {
		a.peak = a.off
	}
	return b, true
}

// Reset recycles the arena for the next frame. The backing slice is kept.
func (a *Arena) Reset() {
	a.off = 0
	a.failed = false
}

// Len returns the bytes currently allocated.
func (a *Arena) Len() int { return a.off }

// Cap returns the configured capacity.
func (a *Arena) Cap() int { return a.cap }

// Peak returns the high-water mark across resets.
func (a *Arena) Peak() int { return a.peak }

// Failed reports whether an allocation was refused since the last Reset.
func (a *Arena) Failed() bool { return a.failed }

func growSize(current, need, limit int) int {
	size := current * 2
	if size < need {
		size = need
	}
	if size > limit {
		size = limit
	}
	return size
}
