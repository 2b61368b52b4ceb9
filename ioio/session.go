// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import (
	"context"
	"io"
	"log"
	"sync"
)

// Transport is the duplex byte-stream contract a collaborator must satisfy
// (§6). Connect opens the underlying link (USB accessory handshake,
// Bluetooth RFCOMM bind, TCP dial, ...); CanClose reports whether the host
// may tear the link down itself. When CanClose is false the session emits
// SOFT_CLOSE on the wire instead of calling Close, and lets the peer end
// the link.
type Transport interface {
	io.Reader
	io.Writer
	Connect(ctx context.Context) error
	CanClose() bool
	Close() error
}

// State is the connection state machine's current state (§4.5).
type State int

const (
	StateInit State = iota
	StateConnected
	StateIncompatible
	StateDead
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateConnected:
		return "CONNECTED"
	case StateIncompatible:
		return "INCOMPATIBLE"
	case StateDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithLogger attaches a logger for diagnostic output. The default discards
// everything; callers gate verbose output behind their own flag, the way
// the cmd/ tools in this module do with "-v".
// A nil logger keeps the default.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// Session is the board session (§3): the top-level entity owning the
// transport, the wire codec's channels, one resource manager, one incoming
// dispatcher goroutine and the open per-resource state objects.
type Session struct {
	transport Transport
	out       *outgoingChannel
	bus       *eventBus
	log       *log.Logger

	mu    sync.Mutex
	state State
	caps  *Capabilities
	info  BoardInfo

	connectResult chan error
	syncWaiters   []chan struct{}

	analogMu      sync.Mutex
	analogTracked []int
	analogState   map[int]*analogInputState

	resources *resourceManager
}

// BoardInfo is the handshake metadata ESTABLISH_CONNECTION carries.
type BoardInfo struct {
	HardwareID, BootloaderID, FirmwareID string
}

// NewSession constructs a Session in state INIT over transport. Call
// WaitForConnect to drive the handshake.
func NewSession(transport Transport, opts ...Option) *Session {
	s := &Session{
		transport:   transport,
		bus:         newEventBus(),
		log:         log.New(io.Discard, "", 0),
		state:       StateInit,
		analogState: make(map[int]*analogInputState),
	}
	for _, o := range opts {
		o(s)
	}
	s.out = newOutgoingChannel(transport, func(err error) { s.onTransportError(err) })
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BoardInfo returns the handshake metadata once CONNECTED. Read-only
// introspection of an already-connected board, not device discovery.
func (s *Session) BoardInfo() BoardInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Capabilities returns the board's capability table once CONNECTED.
func (s *Session) Capabilities() *Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

// WaitForConnect drives INIT -> CONNECTED|INCOMPATIBLE|DEAD (§4.5).
func (s *Session) WaitForConnect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateInit {
		s.mu.Unlock()
		return wrapErr(ErrIllegalState, "ioio: WaitForConnect called in state %v", s.state)
	}
	s.connectResult = make(chan error, 1)
	s.mu.Unlock()

	if err := s.transport.Connect(ctx); err != nil {
		s.mu.Lock()
		s.state = StateDead
		s.mu.Unlock()
		return wrapErr(ErrConnectionLost, "ioio: transport connect failed: %v", err)
	}

	go s.dispatchLoop()

	select {
	case err := <-s.connectResult:
		return err
	case <-ctx.Done():
		return wrapErr(ErrInterrupted, "ioio: WaitForConnect cancelled: %v", ctx.Err())
	}
}

// completeConnect is called by the dispatcher once the handshake resolves,
// exactly once.
func (s *Session) completeConnect(err error) {
	select {
	case s.connectResult <- err:
	default:
	}
}

// SoftReset requests a device-side reset of all open modules; the
// connection stays CONNECTED (§4.5). Legal only in CONNECTED.
func (s *Session) SoftReset() error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st != StateConnected {
		return wrapErr(ErrIllegalState, "ioio: SoftReset in state %v", st)
	}
	return s.out.send(encSoftReset)
}

// HardReset requests a full device reset, which will drop the connection.
// Legal only in CONNECTED.
func (s *Session) HardReset() error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st != StateConnected {
		return wrapErr(ErrIllegalState, "ioio: HardReset in state %v", st)
	}
	return s.out.send(encHardReset)
}

// Disconnect drives CONNECTED -> DEAD (§4.5): if the transport cannot
// self-close it emits SOFT_CLOSE and leaves the peer to end the link,
// otherwise it tears the transport down; either way the dispatcher's exit
// wakes every listener.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st == StateDead {
		return nil
	}
	if !s.transport.CanClose() {
		return s.out.send(encSoftClose)
	}
	return s.transport.Close()
}

// Sync blocks until every send made by the calling goroutine before this
// call has been processed by the device, or ctx is done (§5). If the
// session goes DEAD first, Sync returns connection-lost.
func (s *Session) Sync(ctx context.Context) error {
	ch := make(chan struct{})
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return wrapErr(ErrIllegalState, "ioio: Sync in state %v", s.state)
	}
	s.syncWaiters = append(s.syncWaiters, ch)
	s.mu.Unlock()

	if err := s.out.send(encSync); err != nil {
		return err
	}
	select {
	case <-ch:
		if s.State() == StateDead {
			return wrapErr(ErrConnectionLost, "ioio: connection lost during Sync")
		}
		return nil
	case <-ctx.Done():
		return wrapErr(ErrInterrupted, "ioio: Sync cancelled: %v", ctx.Err())
	}
}

// Batch groups several sends into one transport write (§4.2's explicit
// begin/end pair).
func (s *Session) Batch(fn func(b *Batch)) error {
	return s.out.batch(func(send func(func([]byte) []byte)) {
		fn(&Batch{send: send})
	})
}

// Batch lets a caller enqueue several wire commands to flush as one write.
type Batch struct {
	send func(func([]byte) []byte)
}

func (s *Session) onTransportError(err error) {
	s.transitionToDead(wrapErr(ErrConnectionLost, "ioio: transport error: %v", err))
}

// transitionToDead moves the session to DEAD, broadcasts connection-lost to
// every resource and to any pending handshake/sync waiter, and clears the
// listener registry.
func (s *Session) transitionToDead(err error) {
	s.mu.Lock()
	already := s.state == StateDead
	s.state = StateDead
	waiters := s.syncWaiters
	s.syncWaiters = nil
	s.mu.Unlock()

	if already {
		return
	}
	s.bus.broadcast(event{kind: -1, id: -1, payload: connectionLostEv{err: err}})
	s.bus.clear()
	for _, w := range waiters {
		close(w)
	}
	s.completeConnect(err)
}

// connectionLostEv is broadcast to every resource's handler on disconnect.
type connectionLostEv struct{ err error }

// softResetAll is broadcast on a device-initiated SOFT_RESET: every open
// resource is implicitly closed and its descriptor freed before waiters are
// signalled (§9).
func (s *Session) softResetAll() {
	s.resources.freeAll()
	s.analogMu.Lock()
	s.analogTracked = nil
	s.analogState = make(map[int]*analogInputState)
	s.analogMu.Unlock()
	s.bus.broadcast(event{kind: -1, id: -1, payload: softResetEv{}})
	s.bus.clear()
}
