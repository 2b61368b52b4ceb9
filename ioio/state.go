// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import (
	"context"
	"sync"
)

// ctxWake arranges for cond.Broadcast to be called once ctx is done, so a
// cond.Wait loop blocked on device state can also be woken by cancellation
// (§5's "all wait points respond to thread interrupt", mapped onto
// context.Context). The returned stop func must be called after the loop
// exits to release the watcher goroutine; it is safe to call multiple
// times.
func ctxWake(ctx context.Context, cond *sync.Cond) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cond.Broadcast()
		case <-done:
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// digitalInputState is the per-resource state (§3, §4.6) for an open
// digital input pin: last sampled level, a condition variable for
// WaitForValue, and whether a first sample has arrived yet.
type digitalInputState struct {
	mu          sync.Mutex
	cond        *sync.Cond
	level       bool
	haveInitial bool
	closed      bool
	closeErr    error
}

func newDigitalInputState() *digitalInputState {
	d := &digitalInputState{}
	d.cond = sync.NewCond(&d.mu)
	return d
}

func (d *digitalInputState) onReport(level bool) {
	d.mu.Lock()
	d.level = level
	d.haveInitial = true
	d.mu.Unlock()
	d.cond.Broadcast()
}

func (d *digitalInputState) onClosed(err error) {
	d.mu.Lock()
	d.closed = true
	d.closeErr = err
	d.mu.Unlock()
	d.cond.Broadcast()
}

// waitForValue blocks until a sample matching want arrives, the
// resource/session closes, or ctx is done.
func (d *digitalInputState) waitForValue(ctx context.Context, want bool) error {
	stop := ctxWake(ctx, d.cond)
	defer stop()
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		if d.closed {
			if d.closeErr != nil {
				return d.closeErr
			}
			return ErrConnectionLost
		}
		if d.haveInitial && d.level == want {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return wrapErr(ErrInterrupted, "ioio: waitForValue cancelled: %v", err)
		}
		d.cond.Wait()
	}
}

func (d *digitalInputState) read() (bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level, d.haveInitial
}

// analogInputState is the per-resource state for an open analog pin: a
// 10-bit-class last reading and whether the pin is currently tracked by the
// device's REPORT_ANALOG_IN_FORMAT list.
type analogInputState struct {
	mu    sync.Mutex
	cond  *sync.Cond
	value uint16
	open  bool
}

func newAnalogInputState() *analogInputState {
	a := &analogInputState{}
	a.cond = sync.NewCond(&a.mu)
	return a
}

func (a *analogInputState) onSample(v uint16) {
	a.mu.Lock()
	a.value = v
	a.mu.Unlock()
	a.cond.Broadcast()
}

func (a *analogInputState) setOpen(open bool) {
	a.mu.Lock()
	a.open = open
	a.mu.Unlock()
	a.cond.Broadcast()
}

func (a *analogInputState) read() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

// pendingRequest is one entry in an SPI FIFO of requests awaiting a device
// response; responses are matched strictly in request order (§4.6, §8).
// TWI does not use it: TWIMaster keeps a single outstanding request.
type pendingRequest struct {
	result chan streamResult
}

type streamResult struct {
	data []byte
	err  error
}

// streamState is the shared shape of UART/SPI per-resource state: an
// inbound byte queue, an outstanding-TX credit counter bounded by the
// capability table's buffer size, and (for SPI) a FIFO of pending requests
// matched to responses in order. TWIMaster does not use it.
type streamState struct {
	mu   sync.Mutex
	cond *sync.Cond

	bufSize int
	inFlight int
	inbound  []byte

	pending []*pendingRequest

	closed   bool
	closeErr error
}

func newStreamState(bufSize int) *streamState {
	s := &streamState{bufSize: bufSize}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// reserve blocks until count more bytes of TX credit are available, then
// reserves them. It wakes on the next TX-status report, on close, or on
// ctx cancellation.
func (s *streamState) reserve(ctx context.Context, count int) error {
	stop := ctxWake(ctx, s.cond)
	defer stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.closed {
			if s.closeErr != nil {
				return s.closeErr
			}
			return ErrConnectionLost
		}
		if s.inFlight+count <= s.bufSize {
			s.inFlight += count
			return nil
		}
		if err := ctx.Err(); err != nil {
			return wrapErr(ErrInterrupted, "ioio: reserve cancelled: %v", err)
		}
		s.cond.Wait()
	}
}

// onTxStatus replaces the outstanding counter with the firmware-reported
// remaining count and wakes back-pressured writers. The counter is
// monotonically >= 0 by construction (§3's invariant).
func (s *streamState) onTxStatus(remaining uint16) {
	s.mu.Lock()
	s.inFlight = int(remaining)
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *streamState) onData(data []byte) {
	s.mu.Lock()
	s.inbound = append(s.inbound, data...)
	s.mu.Unlock()
	s.cond.Broadcast()
}

// read drains up to len(p) buffered inbound bytes, blocking until at least
// one is available, the resource closes, or ctx is done.
func (s *streamState) read(ctx context.Context, p []byte) (int, error) {
	stop := ctxWake(ctx, s.cond)
	defer stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.inbound) == 0 {
		if s.closed {
			if s.closeErr != nil {
				return 0, s.closeErr
			}
			return 0, ErrConnectionLost
		}
		if err := ctx.Err(); err != nil {
			return 0, wrapErr(ErrInterrupted, "ioio: read cancelled: %v", err)
		}
		s.cond.Wait()
	}
	n := copy(p, s.inbound)
	s.inbound = s.inbound[n:]
	return n, nil
}

// pushPending enqueues a request awaiting a FIFO-ordered response.
func (s *streamState) pushPending() *pendingRequest {
	pr := &pendingRequest{result: make(chan streamResult, 1)}
	s.mu.Lock()
	s.pending = append(s.pending, pr)
	s.mu.Unlock()
	return pr
}

// completeHead matches an arriving response to the request at the head of
// the FIFO (§4.6, §8's "nth response to nth pending request").
func (s *streamState) completeHead(res streamResult) {
	s.mu.Lock()
	var pr *pendingRequest
	if len(s.pending) > 0 {
		pr = s.pending[0]
		s.pending = s.pending[1:]
	}
	s.mu.Unlock()
	if pr != nil {
		pr.result <- res
	}
}

func (s *streamState) onClosed(err error) {
	s.mu.Lock()
	s.closed = true
	s.closeErr = err
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	s.cond.Broadcast()
	for _, pr := range pending {
		pr.result <- streamResult{err: ErrConnectionLost}
	}
}

// icspState is the per-resource state for the ICSP programming module: a
// FIFO of VISI read results.
type icspState struct {
	mu       sync.Mutex
	cond     *sync.Cond
	results  []uint16
	rxRemain uint16
	closed   bool
	closeErr error
}

func newICSPState() *icspState {
	s := &icspState{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *icspState) onResult(v uint16) {
	s.mu.Lock()
	s.results = append(s.results, v)
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *icspState) waitVisiResult(ctx context.Context) (uint16, error) {
	stop := ctxWake(ctx, s.cond)
	defer stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.results) == 0 {
		if s.closed {
			if s.closeErr != nil {
				return 0, s.closeErr
			}
			return 0, ErrConnectionLost
		}
		if err := ctx.Err(); err != nil {
			return 0, wrapErr(ErrInterrupted, "ioio: waitVisiResult cancelled: %v", err)
		}
		s.cond.Wait()
	}
	v := s.results[0]
	s.results = s.results[1:]
	return v, nil
}

func (s *icspState) onClosed(err error) {
	s.mu.Lock()
	s.closed = true
	s.closeErr = err
	s.mu.Unlock()
	s.cond.Broadcast()
}

// incapState is the per-resource state for an open INCAP module: the last
// reported pulse value and a condition variable.
type incapState struct {
	mu       sync.Mutex
	cond     *sync.Cond
	value    uint32
	closed   bool
	closeErr error
}

func newIncapState() *incapState {
	s := &incapState{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *incapState) onReport(v uint32) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *incapState) onClosed(err error) {
	s.mu.Lock()
	s.closed = true
	s.closeErr = err
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *incapState) read() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// capSenseState is the per-resource state for an open cap-sense pin.
type capSenseState struct {
	mu    sync.Mutex
	cond  *sync.Cond
	value uint16
}

func newCapSenseState() *capSenseState {
	s := &capSenseState{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *capSenseState) onReport(v uint16) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *capSenseState) read() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// sequencerState is the per-resource state for the motion sequencer: cue
// queue fill, paused/stalled flags and an event cursor.
type sequencerState struct {
	mu        sync.Mutex
	cond      *sync.Cond
	cueSlots  int
	paused    bool
	stalled   bool
	lastEvent SequencerEventType
	closed    bool
}

func newSequencerState() *sequencerState {
	s := &sequencerState{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *sequencerState) onEvent(typ SequencerEventType, extra byte) {
	s.mu.Lock()
	s.lastEvent = typ
	switch typ {
	case SeqEvPaused:
		s.paused = true
	case SeqEvStalled:
		s.stalled = true
	case SeqEvNextCue:
		s.stalled = false
	case SeqEvOpened, SeqEvStopped:
		s.cueSlots = int(extra)
		s.paused = false
		s.stalled = false
	case SeqEvClosed:
		s.closed = true
	}
	s.mu.Unlock()
	s.cond.Broadcast()
}
