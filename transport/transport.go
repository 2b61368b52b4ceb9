// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package transport collects ready-made ioio.Transport implementations for
// the carriers a host commonly reaches an IOIO board over: a TCP socket (the
// board's "wireless" bridge mode), an Android open-accessory USB connection,
// and a POSIX serial device (Bluetooth RFCOMM bound to a /dev/rfcommN node,
// or a USB-CDC port). Applications needing a different carrier only need to
// satisfy ioio.Transport directly; none of this package's machinery is
// required to use the ioio package itself.
package transport

import (
	"context"
	"fmt"
)

// dialError wraps a carrier-specific connect failure with the carrier name,
// so a log line naming the transport doesn't need repeating at every call
// site.
type dialError struct {
	carrier string
	err     error
}

func (e *dialError) Error() string { return fmt.Sprintf("transport: %s connect failed: %v", e.carrier, e.err) }
func (e *dialError) Unwrap() error { return e.err }

func wrapDial(carrier string, err error) error {
	if err == nil {
		return nil
	}
	return &dialError{carrier: carrier, err: err}
}

// connectWithContext runs dial in a goroutine and returns its error, or
// ctx.Err() if ctx is done first. dial itself is left running in that case;
// callers close the half-open resource through their own cleanup path since
// net.Dial/gousb/termios calls have no shared cancellation hook to share
// here.
func connectWithContext(ctx context.Context, dial func() error) error {
	done := make(chan error, 1)
	go func() { done <- dial() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
