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

package hexutil

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
)

func TestEncodeUint64MinimalDigits(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0x0"},
		{1, "0x1"},
		{9, "0x9"},
		{16, "0x10"},
		{255, "0xff"},
		{1 << 32, "0x100000000"},
	}
	for _, tt := range tests {
		if got := EncodeUint64(tt.in); got != tt.want {
			t.Errorf("EncodeUint64(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeWordMinimalDigits(t *testing.T) {
	if got := EncodeWord(uint256.NewInt(0)); got != "0x0" {
		t.Errorf("zero word should encode as 0x0, got %q", got)
	}
	if got := EncodeWord(nil); got != "0x0" {
		t.Errorf("nil word should encode as 0x0, got %q", got)
	}
	if got := EncodeWord(uint256.NewInt(255)); got != "0xff" {
		t.Errorf("255 should encode as 0xff, got %q", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []byte{0x00, 0xab, 0xcd, 0xff}
	enc := Encode(in)
	if enc != "0x00abcdff" {
		t.Fatalf("unexpected encoding %q", enc)
	}
	out, err := Decode(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Errorf("round trip mismatch: % x vs % x", in, out)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		in  string
		err error
	}{
		{"", ErrEmptyString},
		{"abcd", ErrMissingPrefix},
		{"0xabc", ErrOddLength},
		{"0xzz", ErrSyntax},
	}
	for _, tt := range cases {
		if _, err := Decode(tt.in); err != tt.err {
			t.Errorf("Decode(%q) error = %v, want %v", tt.in, err, tt.err)
		}
	}
}

func TestDecodeUint64(t *testing.T) {
	v, err := DecodeUint64("0xff")
	if err != nil || v != 255 {
		t.Errorf("DecodeUint64(0xff) = %d, %v", v, err)
	}
	if _, err := DecodeUint64("ff"); err != ErrMissingPrefix {
		t.Errorf("missing prefix should fail, got %v", err)
	}
}

func TestDecodeLoose(t *testing.T) {
	for _, in := range []string{"0xabc", "abc", "0ABC", " 0x0abc "} {
		out, err := DecodeLoose(in)
		if err != nil {
			t.Fatalf("DecodeLoose(%q): %v", in, err)
		}
		if !bytes.Equal(out, []byte{0x0a, 0xbc}) {
			t.Errorf("DecodeLoose(%q) = % x", in, out)
		}
	}
}

func TestWordSerializationRoundTrip(t *testing.T) {
	w := new(uint256.Int).SetBytes([]byte{0xde, 0xad, 0xbe, 0xef})
	b32 := w.Bytes32()
	back := new(uint256.Int).SetBytes(b32[:])
	if !w.Eq(back) {
		t.Error("32-byte big-endian round trip must preserve the word")
	}
}
