// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

// CapSensePin is an open capacitive-sense input, reporting a relative
// capacitance reading rather than a digital level (§4.4).
type CapSensePin struct {
	session *Session
	pin     int
	state   *capSenseState
}

// OpenCapSense allocates pin as a capacitive-sense input. The pin must be
// in the board's cap-sense-capable set (§4.4).
func (s *Session) OpenCapSense(pin int) (*CapSensePin, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if !s.caps.CanCapSense(pin) {
		return nil, wrapErr(ErrIllegalArgument, "ioio: pin %d is not cap-sense capable", pin)
	}
	if _, err := s.resources.alloc(request{kind: KindPin, id: pin}); err != nil {
		return nil, err
	}
	st := newCapSenseState()
	c := &CapSensePin{session: s, pin: pin, state: st}

	s.bus.subscribe(KindPin, pin, func(e event) {
		switch p := e.payload.(type) {
		case capSenseReportEv:
			st.onReport(p.value)
		}
	})

	err := s.Batch(func(b *Batch) {
		b.send(func(buf []byte) []byte { return encSetPinCapSense(buf, pin) })
		b.send(func(buf []byte) []byte { return encSetCapSenseSampling(buf, pin, true) })
	})
	if err != nil {
		s.bus.unsubscribe(KindPin, pin)
		s.resources.free(KindPin, pin)
		return nil, err
	}
	return c, nil
}

// Read returns the last reported capacitance sample.
func (c *CapSensePin) Read() uint16 { return c.state.read() }

// Close stops sampling and releases the pin.
func (c *CapSensePin) Close() error {
	s := c.session
	s.bus.unsubscribe(KindPin, c.pin)
	err := s.out.send(func(b []byte) []byte { return encSetCapSenseSampling(b, c.pin, false) })
	s.resources.free(KindPin, c.pin)
	return err
}
