// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import "fmt"

// Code identifies one of the error kinds the protocol engine distinguishes.
// Call errors.Is(err, ioio.ErrConnectionLost) (etc.) to test for a kind on an
// error returned from this package; Code itself also implements error so it
// can be used as the sentinel directly.
type Code string

// Error implements error.
func (c Code) Error() string { return string(c) }

// Error kinds, per the protocol engine's error taxonomy.
const (
	// ErrConnectionLost: the transport is down; every waiter wakes; the
	// session is terminal.
	ErrConnectionLost Code = "ioio: connection lost"
	// ErrIncompatible: the firmware rejected the required interface id;
	// the session is terminal but distinguishable from connection-lost.
	ErrIncompatible Code = "ioio: incompatible firmware"
	// ErrOutOfResource: a pin or pool was exhausted; the session remains
	// usable and nothing was allocated.
	ErrOutOfResource Code = "ioio: out of resource"
	// ErrIllegalState: the operation was invoked in the wrong session
	// state (e.g. before connect, or while INCOMPATIBLE).
	ErrIllegalState Code = "ioio: illegal state"
	// ErrIllegalArgument: a pin lacks the needed capability, a frequency
	// is out of range, or a buffer exceeds a wire-format limit.
	ErrIllegalArgument Code = "ioio: illegal argument"
	// ErrInterrupted: a blocked waiter was cancelled.
	ErrInterrupted Code = "ioio: interrupted"
	// ErrProtocol: an unrecognised opcode or a magic mismatch, which
	// escalates to ErrConnectionLost once raised. A TWI transaction the
	// device reports as aborted (NACK) is also returned as ErrProtocol,
	// without ending the session.
	ErrProtocol Code = "ioio: protocol error"
)

// wrapErr attaches call-site context to a Code while keeping it unwrappable
// via errors.Is/errors.As.
func wrapErr(c Code, format string, args ...any) error {
	return &wrapped{code: c, msg: fmt.Sprintf(format, args...)}
}

type wrapped struct {
	code Code
	msg  string
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.code }
func (w *wrapped) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == w.code
}
