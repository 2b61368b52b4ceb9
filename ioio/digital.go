// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
)

// DigitalPin is an open digital I/O pin. It satisfies gpio.PinIO so an
// application already using periph.io elsewhere can drive an IOIO pin
// through the same interface it uses for any other host (§B).
type DigitalPin struct {
	session *Session
	pin     int
	out     bool
	in      *digitalInputState
}

var _ gpio.PinIO = (*DigitalPin)(nil)

// OpenDigitalOutput allocates pin as a digital output, initially driving
// level, optionally in open-drain mode.
func (s *Session) OpenDigitalOutput(pin int, level bool, openDrain bool) (*DigitalPin, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if _, err := s.resources.alloc(request{kind: KindPin, id: pin}); err != nil {
		return nil, err
	}
	p := &DigitalPin{session: s, pin: pin, out: true}
	if err := s.out.send(func(b []byte) []byte { return encSetPinDigitalOut(b, pin, openDrain, level) }); err != nil {
		s.resources.free(KindPin, pin)
		return nil, err
	}
	return p, nil
}

// OpenDigitalInput allocates pin as a digital input with the given pull
// configuration.
func (s *Session) OpenDigitalInput(pin int, pull Pull) (*DigitalPin, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if _, err := s.resources.alloc(request{kind: KindPin, id: pin}); err != nil {
		return nil, err
	}
	st := newDigitalInputState()
	s.bus.subscribe(KindPin, pin, func(e event) {
		switch p := e.payload.(type) {
		case digitalInStatusEv:
			st.onReport(p.level)
		case connectionLostEv:
			st.onClosed(p.err)
		case softResetEv:
			st.onClosed(nil)
		}
	})
	p := &DigitalPin{session: s, pin: pin, out: false, in: st}
	if err := s.out.send(func(b []byte) []byte { return encSetPinDigitalIn(b, pin, pull) }); err != nil {
		s.bus.unsubscribe(KindPin, pin)
		s.resources.free(KindPin, pin)
		return nil, err
	}
	return p, nil
}

// Write drives an output pin's level. Illegal on an input pin.
func (d *DigitalPin) Write(level bool) error {
	if !d.out {
		return wrapErr(ErrIllegalState, "ioio: pin %d is not an output", d.pin)
	}
	return d.session.out.send(func(b []byte) []byte { return encSetDigitalOutLevel(b, d.pin, level) })
}

// Read returns an input pin's last sampled level.
func (d *DigitalPin) Read() gpio.Level {
	if d.in == nil {
		return gpio.Low
	}
	level, _ := d.in.read()
	return gpio.Level(level)
}

// WaitForValue blocks until the input pin samples want, the session
// disconnects, or ctx is done.
func (d *DigitalPin) WaitForValue(ctx context.Context, want bool) error {
	if d.in == nil {
		return wrapErr(ErrIllegalState, "ioio: pin %d is not an input", d.pin)
	}
	return d.in.waitForValue(ctx, want)
}

// Close releases the pin back to the resource manager, returning it to
// floating-input as the firmware's quiescent state.
func (d *DigitalPin) Close() error {
	s := d.session
	if d.in != nil {
		s.bus.unsubscribe(KindPin, d.pin)
	}
	err := s.out.send(func(b []byte) []byte { return encSetPinDigitalIn(b, d.pin, PullFloating) })
	s.resources.free(KindPin, d.pin)
	return err
}

// --- gpio.PinIO plumbing -------------------------------------------------

func (d *DigitalPin) String() string { return fmt.Sprintf("ioio.Pin%d", d.pin) }
func (d *DigitalPin) Halt() error    { return d.Close() }
func (d *DigitalPin) Name() string   { return "" }
func (d *DigitalPin) Number() int    { return d.pin }
func (d *DigitalPin) Function() string {
	if d.out {
		return "OUT"
	}
	return "IN"
}

func (d *DigitalPin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return wrapErr(ErrIllegalArgument, "ioio: edge-triggering is not supported")
	}
	p := PullFloating
	switch pull {
	case gpio.PullUp:
		p = PullUp
	case gpio.PullDown:
		p = PullDown
	}
	d.out = false
	return d.session.out.send(func(b []byte) []byte { return encSetPinDigitalIn(b, d.pin, p) })
}

func (d *DigitalPin) Out(l gpio.Level) error {
	d.out = true
	return d.Write(bool(l))
}

func (d *DigitalPin) PWM(duty gpio.Duty, freq physic.Frequency) error {
	return wrapErr(ErrIllegalState, "ioio: use OpenPWM for PWM output")
}

func (d *DigitalPin) WaitForEdge(timeout time.Duration) bool { return false }
func (d *DigitalPin) DefaultPull() gpio.Pull                 { return gpio.Float }
func (d *DigitalPin) Pull() gpio.Pull                        { return gpio.Float }

func (s *Session) requireConnected() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return wrapErr(ErrIllegalState, "ioio: operation requires CONNECTED, session is %v", s.state)
	}
	return nil
}
