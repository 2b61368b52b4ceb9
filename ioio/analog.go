// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

// AnalogInput is an open analog input pin.
type AnalogInput struct {
	session *Session
	pin     int
	state   *analogInputState
}

// OpenAnalogInput allocates pin as an analog input. The pin must be in the
// board's analog-capable set (§4.4).
func (s *Session) OpenAnalogInput(pin int) (*AnalogInput, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if !s.caps.CanAnalog(pin) {
		return nil, wrapErr(ErrIllegalArgument, "ioio: pin %d is not analog-capable", pin)
	}
	if _, err := s.resources.alloc(request{kind: KindPin, id: pin}); err != nil {
		return nil, err
	}
	st := newAnalogInputState()
	s.analogMu.Lock()
	s.analogState[pin] = st
	s.analogMu.Unlock()

	s.bus.subscribe(KindPin, pin, func(e event) {
		switch p := e.payload.(type) {
		case analogInStatusEv:
			st.onSample(p.value)
		case analogOpenCloseEv:
			st.setOpen(p.open)
		case connectionLostEv:
			st.setOpen(false)
		case softResetEv:
			st.setOpen(false)
		}
	})

	a := &AnalogInput{session: s, pin: pin, state: st}
	if err := s.out.send(func(b []byte) []byte { return encSetPinAnalogIn(b, pin) }); err != nil {
		s.bus.unsubscribe(KindPin, pin)
		s.resources.free(KindPin, pin)
		return nil, err
	}
	if err := s.out.send(func(b []byte) []byte { return encSetAnalogInSampling(b, pin, true) }); err != nil {
		s.bus.unsubscribe(KindPin, pin)
		s.resources.free(KindPin, pin)
		return nil, err
	}
	return a, nil
}

// Read returns the last reported 10-bit-class sample.
func (a *AnalogInput) Read() uint16 { return a.state.read() }

// Close stops sampling and releases the pin.
func (a *AnalogInput) Close() error {
	s := a.session
	s.bus.unsubscribe(KindPin, a.pin)
	s.analogMu.Lock()
	delete(s.analogState, a.pin)
	s.analogMu.Unlock()
	err := s.out.send(func(b []byte) []byte { return encSetAnalogInSampling(b, a.pin, false) })
	s.resources.free(KindPin, a.pin)
	return err
}
