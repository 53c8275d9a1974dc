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
	"math"

	"github.com/holiman/uint256"
)

// Conversion guards for values crossing the FFI boundary, where C-side sizes
// arrive as unsigned 64-bit integers.

// SafeUint64ToInt safely converts uint64 to int.
// Returns the value and true if conversion is safe, or 0 and false if overflow would occur.
func SafeUint64ToInt(v uint64) (int, bool) {
	if v > uint64(math.MaxInt) {
		return 0, false
	}
	return int(v), true
}

// SafeUint256ToUint64 safely converts uint256.Int to uint64.
// Returns the value and true if conversion is safe, or 0 and false if overflow would occur.
func SafeUint256ToUint64(v *uint256.Int) (uint64, bool) {
	if !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

// MustSafeUint64ToInt converts uint64 to int, clamping to MaxInt if overflow would occur.
func MustSafeUint64ToInt(v uint64) int {
	if v > uint64(math.MaxInt) {
		return math.MaxInt
	}
	return int(v)
}
