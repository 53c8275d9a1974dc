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

// Package hexutil implements the 0x-prefixed hex encodings used on the trace
// wire format. Quantities are encoded with minimal digits ("0x0", never
// "0x00"), byte strings with an even number of lowercase digits.
package hexutil

import (
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// Errors returned by the decoding helpers.
var (
	ErrEmptyString   = errors.New("empty hex string")
	ErrMissingPrefix = errors.New("hex string without 0x prefix")
	ErrSyntax        = errors.New("invalid hex string")
	ErrOddLength     = errors.New("hex string of odd length")
)

// Encode encodes b as a hex string with 0x prefix.
func Encode(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// EncodeUint64 encodes i as a hex quantity with 0x prefix and minimal digits.
func EncodeUint64(i uint64) string {
	return "0x" + strconv.FormatUint(i, 16)
}

// EncodeWord encodes a 256-bit word as a hex quantity with minimal digits.
func EncodeWord(w *uint256.Int) string {
	if w == nil || w.IsZero() {
		return "0x0"
	}
	return w.Hex()
}

// Decode decodes a hex string with 0x prefix into bytes.
func Decode(input string) ([]byte, error) {
	if len(input) == 0 {
		return nil, ErrEmptyString
	}
	if !has0xPrefix(input) {
		return nil, ErrMissingPrefix
	}
	s := input[2:]
	if len(s)%2 != 0 {
		return nil, ErrOddLength
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrSyntax
	}
	return b, nil
}

// MustDecode decodes a hex string with 0x prefix and panics on invalid input.
// Intended for tests and hard-coded fixtures.
func MustDecode(input string) []byte {
	b, err := Decode(input)
	if err != nil {
		panic("hexutil: " + err.Error() + ": " + input)
	}
	return b
}

// DecodeUint64 decodes a hex quantity with 0x prefix.
func DecodeUint64(input string) (uint64, error) {
	if len(input) == 0 {
		return 0, ErrEmptyString
	}
	if !has0xPrefix(input) {
		return 0, ErrMissingPrefix
	}
	v, err := strconv.ParseUint(input[2:], 16, 64)
	if err != nil {
		return 0, ErrSyntax
	}
	return v, nil
}

// DecodeLoose decodes bytes from s, tolerating a missing prefix and odd
// length. Used by the CLI for user-supplied bytecode.
func DecodeLoose(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrSyntax
	}
	return b, nil
}

func has0xPrefix(input string) bool {
	return len(input) >= 2 && input[0] == '0' && (input[1] == 'x' || input[1] == 'X')
}
