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

// Package errors defines common error values used throughout the shadowtrace
// codebase. This package provides a centralized location for error definitions
// to ensure consistency and avoid duplication across modules.
package errors

import (
	"errors"
	"fmt"
)

// =====================
// Execution Errors
// =====================

// Errors surfaced by the reference interpreter. All execution failures are
// structured values; the interpreter never panics on guest-controlled input.
var (
	// ErrStackUnderflow is returned when an opcode pops more items than the
	// stack holds.
	ErrStackUnderflow = errors.New("stack underflow")

	// ErrStackOverflow is returned when a push would exceed the 1024 item limit.
	ErrStackOverflow = errors.New("stack limit reached")

	// ErrOutOfGas is returned when the gas remaining cannot cover the next
	// operation's cost.
	ErrOutOfGas = errors.New("out of gas")

	// ErrInvalidOpcode is returned for INVALID and any undefined opcode byte.
	ErrInvalidOpcode = errors.New("invalid opcode")

	// ErrInvalidJump is returned when a JUMP or JUMPI target is not a
	// JUMPDEST byte outside of all PUSH immediates.
	ErrInvalidJump = errors.New("invalid jump destination")

	// ErrWriteProtection is returned when a state-modifying opcode executes
	// inside a static call context.
	ErrWriteProtection = errors.New("write protection")

	// ErrMemoryLimit is returned when a memory offset or size exceeds the
	// interpreter's addressable range.
	ErrMemoryLimit = errors.New("memory limit exceeded")

	// ErrReturnDataOutOfBounds is returned by RETURNDATACOPY when the
	// requested slice exceeds the return data buffer.
	ErrReturnDataOutOfBounds = errors.New("return data out of bounds")

	// ErrGasUintOverflow is returned when a gas computation overflows uint64.
	ErrGasUintOverflow = errors.New("gas uint64 overflow")
)

// =====================
// Halt Conditions
// =====================

// Halt conditions are not failures: they mark the regular end of a frame and
// are filtered out of the divergence check by IsHalt.
var (
	// ErrExecutionStopped marks a frame halted by STOP, RETURN or SELFDESTRUCT.
	ErrExecutionStopped = errors.New("execution stopped")

	// ErrExecutionReverted marks a frame halted by REVERT. Remaining gas is
	// preserved and the revert payload is available as return data.
	ErrExecutionReverted = errors.New("execution reverted")
)

// =====================
// Divergence Errors
// =====================

// Errors surfaced by the synchronization engine when the fast and reference
// interpreters disagree at a checkpoint.
var (
	// ErrStackMismatch is returned when stack depth or any entry differs.
	ErrStackMismatch = errors.New("divergence: stack mismatch")

	// ErrMemoryMismatch is returned when memory size or contents differ.
	ErrMemoryMismatch = errors.New("divergence: memory mismatch")

	// ErrGasMismatch is returned when cumulative gas differs at a basic-block
	// boundary.
	ErrGasMismatch = errors.New("divergence: gas mismatch")

	// ErrHaltMismatch is returned when the halt kinds (stopped vs reverted)
	// or halt timing differ.
	ErrHaltMismatch = errors.New("divergence: halt mismatch")

	// ErrReturnDataMismatch is returned when the return data bytes differ at
	// frame completion.
	ErrReturnDataMismatch = errors.New("divergence: return data mismatch")

	// ErrUnknownSyntheticOp is returned when the fast interpreter dispatches
	// a fused opcode missing from the fusion table.
	ErrUnknownSyntheticOp = errors.New("divergence: unknown synthetic opcode")

	// ErrJumpTargetMismatch is returned when a statically resolved jump
	// target disagrees with where the reference interpreter landed.
	ErrJumpTargetMismatch = errors.New("divergence: static jump target mismatch")

	// ErrAccessListMismatch is returned when the warm sets of the two
	// interpreters disagree at a basic-block boundary.
	ErrAccessListMismatch = errors.New("divergence: access list mismatch")
)

// =====================
// Tracer Errors
// =====================

var (
	// ErrWriterDegraded is returned once the event writer has entered
	// degraded mode and drops all further events.
	ErrWriterDegraded = errors.New("trace writer degraded, events dropped")

	// ErrTracerClosed is returned when a callback arrives after Close.
	ErrTracerClosed = errors.New("tracer closed")

	// ErrArenaExhausted is returned when a frame arena allocation exceeds
	// the configured capacity.
	ErrArenaExhausted = errors.New("frame arena exhausted")

	// ErrInvalidHandle is returned by the C ABI layer for nil, destroyed or
	// unknown machine handles.
	ErrInvalidHandle = errors.New("invalid machine handle")
)

// IsHalt reports whether err marks a regular frame halt rather than an
// execution failure.
func IsHalt(err error) bool {
	return errors.Is(err, ErrExecutionStopped) || errors.Is(err, ErrExecutionReverted)
}

// IsExecutionError reports whether err is one of the reference interpreter's
// structured execution failures.
func IsExecutionError(err error) bool {
	for _, target := range []error{
		ErrStackUnderflow, ErrStackOverflow, ErrOutOfGas, ErrInvalidOpcode,
		ErrInvalidJump, ErrWriteProtection, ErrMemoryLimit,
		ErrReturnDataOutOfBounds, ErrGasUintOverflow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// =====================
// Helper Functions
// =====================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Errorf formats according to a format specifier and returns the string as a value that satisfies error.
func Errorf(format string, a ...interface{}) error {
	return fmt.Errorf(format, a...)
}
