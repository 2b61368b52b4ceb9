// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import (
	"io"
	"sync"
)

// outgoingChannel serialises writes to the transport and batches commands
// (§4.2). A batch depth counter starts at 0; send increments it on entry
// and, on the way out, decrements it and flushes the transport iff the
// depth returned to 0. Callers may wrap a sequence of commands in
// begin/sendLocked.../end (or batch) to flush them as one write. begin
// takes mu and only end releases it, so batches do not nest: a begin, send
// or batch issued from inside an open batch blocks forever.
//
// Holding mu blocks every other sender until release, matching the
// original's "holding the channel lock blocks all senders" rule, and it is
// always the innermost lock acquired (§5's lock order: session ->
// resource-state -> outgoing-channel).
type outgoingChannel struct {
	mu    sync.Mutex
	w     io.Writer
	depth int
	buf   []byte

	onFlushError func(error)
}

func newOutgoingChannel(w io.Writer, onFlushError func(error)) *outgoingChannel {
	return &outgoingChannel{w: w, onFlushError: onFlushError}
}

// begin starts a batch, holding mu until the matching end. Must be paired
// with end.
func (o *outgoingChannel) begin() {
	o.mu.Lock()
	o.depth++
}

// end closes one level of batch, flushing the transport if this was the
// outermost level.
func (o *outgoingChannel) end() error {
	defer o.mu.Unlock()
	o.depth--
	if o.depth < 0 {
		o.depth = 0
	}
	if o.depth != 0 {
		return nil
	}
	return o.flushLocked()
}

// send runs fn (an encoder append call) under the batch depth counter, as a
// self-contained single-command batch. Callers that need several commands
// to go out as one transport write should use batch (or
// begin/sendLocked.../end) instead.
func (o *outgoingChannel) send(fn func(buf []byte) []byte) error {
	o.begin()
	o.buf = fn(o.buf[:0])
	return o.end()
}

// sendLocked appends an encoded command while inside an existing
// begin/end pair; depth bookkeeping is the caller's responsibility.
func (o *outgoingChannel) sendLocked(fn func(buf []byte) []byte) {
	o.buf = fn(o.buf)
}

func (o *outgoingChannel) flushLocked() error {
	if len(o.buf) == 0 {
		return nil
	}
	b := o.buf
	o.buf = nil
	_, err := o.w.Write(b)
	if err != nil {
		if o.onFlushError != nil {
			o.onFlushError(err)
		}
		return wrapErr(ErrConnectionLost, "ioio: flush failed: %v", err)
	}
	return nil
}

// batch runs fn with the channel lock held across the whole sequence,
// flushing exactly once when fn returns. This is the Go shape of the
// original's explicit begin/end pair: callers pass a closure instead of
// bracketing two calls, which makes the critical section impossible to
// exit without flushing.
func (o *outgoingChannel) batch(fn func(send func(enc func([]byte) []byte))) (err error) {
	o.begin()
	defer func() {
		// end() unlocks regardless of panic in fn, matching "never call
		// user code while holding the channel" being impossible to
		// violate silently (§9).
		err = o.end()
	}()
	fn(func(enc func([]byte) []byte) { o.sendLocked(enc) })
	return nil
}
