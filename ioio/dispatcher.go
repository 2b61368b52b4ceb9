// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import (
	"bufio"
	"errors"
	"io"
)

// dispatchLoop is the incoming dispatcher (C3): a single goroutine that
// owns the read side of the transport exclusively (§3's invariant) and
// fans out decoded events to the resources that own them. It routes
// per-resource events through s.bus and guards analog tracking with
// analogMu. It also takes the session mutex s.mu, briefly, for the
// handshake state, the sync-waiter queue and the move to DEAD, and during
// the handshake it sends CHECK_INTERFACE through the outgoing channel; it
// never holds s.mu while sending.
func (s *Session) dispatchLoop() {
	r := bufio.NewReader(s.transport)
	for {
		payload, err := decodeEvent(r)
		if err != nil {
			if err == io.EOF {
				err = wrapErr(ErrConnectionLost, "ioio: transport closed")
			} else if errors.Is(err, ErrProtocol) {
				// protocol errors escalate to connection-lost per
				// §4.3/§7, but are logged with their own identity first.
				s.log.Printf("ioio: %v", err)
				err = wrapErr(ErrConnectionLost, "ioio: %v", err)
			} else {
				err = wrapErr(ErrConnectionLost, "ioio: read failed: %v", err)
			}
			s.transitionToDead(err)
			return
		}
		if _, ok := payload.(analogInStatusOpcode); ok {
			if err := s.readAndHandleAnalogInStatus(r); err != nil {
				s.transitionToDead(wrapErr(ErrConnectionLost, "ioio: read failed: %v", err))
				return
			}
			continue
		}
		s.handle(payload)
	}
}

// readAndHandleAnalogInStatus reads one REPORT_ANALOG_IN_STATUS frame body
// directly off r: a shared header byte every 4 pins holding the low 2 bits
// of each of those pins' 10-bit sample, followed by one 8-bit data byte
// per pin (the high 8 bits), combined as (data<<2)|header2bits, delivered
// in tracked-pin-list order (§4.3). Reading the body here (rather than in
// decodeEvent) is unavoidable: only the dispatcher knows how many pins are
// currently tracked.
func (s *Session) readAndHandleAnalogInStatus(r *bufio.Reader) error {
	s.analogMu.Lock()
	pins := append([]int(nil), s.analogTracked...)
	s.analogMu.Unlock()

	var header byte
	for i, pin := range pins {
		if i%4 == 0 {
			b, err := r.ReadByte()
			if err != nil {
				return err
			}
			header = b
		}
		data, err := r.ReadByte()
		if err != nil {
			return err
		}
		bits := (header >> uint((i%4)*2)) & 3
		value := uint16(data)<<2 | uint16(bits)
		s.bus.dispatch(event{kind: KindPin, id: pin, payload: analogInStatusEv{pin: pin, value: value}})
	}
	return nil
}

func (s *Session) handle(payload any) {
	switch p := payload.(type) {
	case establishConnectionEv:
		s.handleEstablishConnection(p)

	case checkInterfaceResponseEv:
		s.handleCheckInterfaceResponse(p)

	case softResetEv:
		s.softResetAll()

	case softCloseEv:
		s.transitionToDead(wrapErr(ErrConnectionLost, "ioio: device requested soft close"))

	case digitalInStatusEv:
		s.bus.dispatch(event{kind: KindPin, id: p.pin, payload: p})

	case analogInFormatEv:
		s.handleAnalogInFormat(p)

	case streamStatusEv:
		s.bus.dispatch(event{kind: p.kind, id: p.id, payload: p})

	case streamDataEv:
		s.bus.dispatch(event{kind: p.kind, id: p.id, payload: p})

	case txStatusEv:
		s.bus.dispatch(event{kind: p.kind, id: p.id, payload: p})

	case i2cResultEv:
		s.bus.dispatch(event{kind: KindTWI, id: p.i2c, payload: p})

	case icspResultEv, icspRxStatusEv:
		s.bus.dispatch(event{kind: KindICSP, id: 0, payload: p})

	case incapReportEv:
		s.bus.dispatch(event{kind: KindIncapSingle, id: p.incapNum, payload: p})

	case capSenseReportEv:
		s.bus.dispatch(event{kind: KindPin, id: p.pin, payload: p})

	case sequencerEventEv:
		s.bus.dispatch(event{kind: KindSequencer, id: 0, payload: p})

	case syncEv:
		s.handleSync()

	case nil:
		// Reserved/echo opcode intentionally ignored (§9).
	}
}

func (s *Session) handleEstablishConnection(p establishConnectionEv) {
	caps, ok := LookupCapabilities(p.hardwareID)
	s.mu.Lock()
	s.info = BoardInfo{HardwareID: p.hardwareID, BootloaderID: p.bootloaderID, FirmwareID: p.firmwareID}
	if !ok {
		s.state = StateIncompatible
		s.mu.Unlock()
		s.completeConnect(wrapErr(ErrIncompatible, "ioio: unknown hardware id %q", p.hardwareID))
		return
	}
	s.caps = caps
	s.resources = newResourceManager(caps)
	s.mu.Unlock()

	if err := s.out.send(encCheckInterface); err != nil {
		s.transitionToDead(err)
	}
}

func (s *Session) handleCheckInterfaceResponse(p checkInterfaceResponseEv) {
	s.mu.Lock()
	if !p.supported {
		s.state = StateIncompatible
		s.mu.Unlock()
		s.completeConnect(wrapErr(ErrIncompatible, "ioio: firmware rejects required interface id"))
		return
	}
	s.state = StateConnected
	s.mu.Unlock()
	s.completeConnect(nil)
}

// handleAnalogInFormat replaces the tracked-pin list with a new one,
// emitting an open event for pins newly present and a close event for pins
// newly absent, removed first then added, per §4.3's symmetric-difference
// rule.
func (s *Session) handleAnalogInFormat(p analogInFormatEv) {
	s.analogMu.Lock()
	old := s.analogTracked
	s.analogTracked = p.pins
	oldSet := make(map[int]bool, len(old))
	for _, pin := range old {
		oldSet[pin] = true
	}
	newSet := make(map[int]bool, len(p.pins))
	for _, pin := range p.pins {
		newSet[pin] = true
	}
	var removed, added []int
	for _, pin := range old {
		if !newSet[pin] {
			removed = append(removed, pin)
		}
	}
	for _, pin := range p.pins {
		if !oldSet[pin] {
			added = append(added, pin)
		}
	}
	s.analogMu.Unlock()

	for _, pin := range removed {
		s.bus.dispatch(event{kind: KindPin, id: pin, payload: analogOpenCloseEv{open: false}})
	}
	for _, pin := range added {
		s.bus.dispatch(event{kind: KindPin, id: pin, payload: analogOpenCloseEv{open: true}})
	}
}

// analogOpenCloseEv is synthesised by handleAnalogInFormat; it is not a
// wire event on its own.
type analogOpenCloseEv struct{ open bool }

func (s *Session) handleSync() {
	s.mu.Lock()
	var w chan struct{}
	if len(s.syncWaiters) > 0 {
		w = s.syncWaiters[0]
		s.syncWaiters = s.syncWaiters[1:]
	}
	s.mu.Unlock()
	if w != nil {
		close(w)
	}
}
