// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

// IncapMode selects how an INCAP module times an edge (§4.1 INCAP_CONFIGURE).
type IncapMode int

const (
	IncapPulseWidth IncapMode = iota
	IncapPeriod
)

// PulseInput is an open INCAP pulse-measurement module bound to one pin.
// double widens its reporting to 32 bits rather than claiming a second
// module: REPORT_INCAP's size field already accommodates either width on
// the same module number (§4.1).
type PulseInput struct {
	session *Session
	num     int
	pin     int
	state   *incapState
}

// OpenPulseInput allocates an INCAP module on pin and configures it to time
// edges in mode, at the given clock prescale code (0-7, §4.1). double
// requests the wider double-precision capture where the board offers one
// (§4.4).
func (s *Session) OpenPulseInput(pin int, mode IncapMode, clock byte, double bool) (*PulseInput, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if !s.caps.CanPeripheralIn(pin) {
		return nil, wrapErr(ErrIllegalArgument, "ioio: pin %d cannot be an INCAP input", pin)
	}
	results, err := s.resources.alloc(request{kind: KindPin, id: pin}, request{kind: KindIncapSingle})
	if err != nil {
		return nil, err
	}
	num := results[1].id
	st := newIncapState()
	p := &PulseInput{session: s, num: num, pin: pin, state: st}

	s.bus.subscribe(KindIncapSingle, num, func(e event) {
		switch ev := e.payload.(type) {
		case incapReportEv:
			st.onReport(ev.value)
		case connectionLostEv:
			st.onClosed(ev.err)
		case softResetEv:
			st.onClosed(nil)
		}
	})

	err = s.Batch(func(b *Batch) {
		b.send(func(buf []byte) []byte { return encSetPinINCAP(buf, pin, num, true) })
		b.send(func(buf []byte) []byte { return encINCAPConfigure(buf, num, double, byte(mode), clock) })
	})
	if err != nil {
		s.bus.unsubscribe(KindIncapSingle, num)
		s.resources.free(KindPin, pin)
		s.resources.free(KindIncapSingle, num)
		return nil, err
	}
	return p, nil
}

// Read returns the last reported capture value, in timer ticks.
func (p *PulseInput) Read() uint32 { return p.state.read() }

// Close disables the INCAP module and releases its pin.
func (p *PulseInput) Close() error {
	s := p.session
	s.bus.unsubscribe(KindIncapSingle, p.num)
	err := s.out.send(func(b []byte) []byte { return encINCAPClose(b, p.num) })
	s.resources.free(KindPin, p.pin)
	s.resources.free(KindIncapSingle, p.num)
	return err
}
