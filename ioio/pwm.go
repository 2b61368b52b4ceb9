// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

// PWMOutput is an open PWM channel driving a digital output pin.
type PWMOutput struct {
	session *Session
	pin     int
	pwmNum  int
	period  uint16
}

// OpenPWM allocates a PWM channel on pin, running at 16MHz/scale/period Hz
// (a 16MHz base clock is the board's fixed timer input). scale must be one
// of 1, 8, 64, 256 (§4.1's scale encodings).
func (s *Session) OpenPWM(pin, scale int, period uint16) (*PWMOutput, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if !s.caps.CanPeripheralOut(pin) {
		return nil, wrapErr(ErrIllegalArgument, "ioio: pin %d cannot drive PWM", pin)
	}
	scaleEnc, ok := pwmScaleEncode(scale)
	if !ok {
		return nil, wrapErr(ErrIllegalArgument, "ioio: unsupported PWM scale %d", scale)
	}
	if period == 0 {
		return nil, wrapErr(ErrIllegalArgument, "ioio: PWM period must be at least 1")
	}
	results, err := s.resources.alloc(request{kind: KindPin, id: pin}, request{kind: KindOutCompare})
	if err != nil {
		return nil, err
	}
	pwmNum := results[1].id

	p := &PWMOutput{session: s, pin: pin, pwmNum: pwmNum, period: period}
	err = s.Batch(func(b *Batch) {
		b.send(func(buf []byte) []byte { return encSetPinDigitalOut(buf, pin, false, false) })
		b.send(func(buf []byte) []byte { return encSetPinPWM(buf, pin, pwmNum, true) })
		b.send(func(buf []byte) []byte { return encSetPWMPeriod(buf, pwmNum, scaleEnc, period-1) })
	})
	if err != nil {
		s.resources.free(KindPin, pin)
		s.resources.free(KindOutCompare, pwmNum)
		return nil, err
	}
	return p, nil
}

// SetDutyCycle sets the fraction of period the output stays high, as a
// direct u16 duty count (use fraction=0 for the simple unscaled encoding).
func (p *PWMOutput) SetDutyCycle(duty uint16, fraction byte) error {
	return p.session.out.send(func(b []byte) []byte { return encSetPWMDutyCycle(b, p.pwmNum, fraction, duty) })
}

// Close disables the PWM channel and returns the pin and channel to their
// pools.
func (p *PWMOutput) Close() error {
	s := p.session
	err := s.out.send(func(b []byte) []byte { return encSetPinPWM(b, p.pin, p.pwmNum, false) })
	s.resources.free(KindOutCompare, p.pwmNum)
	s.resources.free(KindPin, p.pin)
	return err
}
