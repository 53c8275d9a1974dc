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

package errors

import "testing"

func TestIsHalt(t *testing.T) {
	if !IsHalt(ErrExecutionStopped) || !IsHalt(ErrExecutionReverted) {
		t.Error("halt sentinels must register as halts")
	}
	if IsHalt(ErrOutOfGas) || IsHalt(nil) {
		t.Error("failures and nil are not halts")
	}
	if !IsHalt(Wrap(ErrExecutionReverted, "frame 3")) {
		t.Error("wrapping must preserve halt identity")
	}
}

func TestIsExecutionError(t *testing.T) {
	for _, err := range []error{
		ErrStackUnderflow, ErrStackOverflow, ErrOutOfGas, ErrInvalidOpcode,
		ErrInvalidJump, ErrWriteProtection, ErrMemoryLimit,
	} {
		if !IsExecutionError(err) {
			t.Errorf("%v should be an execution error", err)
		}
		if !IsExecutionError(Wrapf(err, "op %s", "ADD")) {
			t.Errorf("wrapped %v should stay an execution error", err)
		}
	}
	if IsExecutionError(ErrExecutionStopped) {
		t.Error("halts are not execution errors")
	}
	if IsExecutionError(ErrStackMismatch) {
		t.Error("divergences are not execution errors")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) must stay nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) must stay nil")
	}
}

func TestWrapPreservesIdentity(t *testing.T) {
	err := Wrap(ErrInvalidJump, "target 99")
	if !Is(err, ErrInvalidJump) {
		t.Error("wrapped errors must match their sentinel")
	}
	if err.Error() != "target 99: invalid jump destination" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
