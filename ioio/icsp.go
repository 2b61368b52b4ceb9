// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import "context"

// ICSP is the open in-circuit serial programming module. A board has at
// most one (§4.4's Icsp pin triple); the resource manager hands it out
// from a KindICSP pool of size one, and its pins are not reserved as
// KindPin descriptors.
type ICSP struct {
	session *Session
	pins    IcspPins
	state   *icspState
	inProg  bool
}

// OpenICSP opens the board's ICSP module on its fixed PGC/PGD/MCLR pins.
func (s *Session) OpenICSP() (*ICSP, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if s.caps.Icsp == nil {
		return nil, wrapErr(ErrIllegalArgument, "ioio: board has no ICSP module")
	}
	if _, err := s.resources.alloc(request{kind: KindICSP}); err != nil {
		return nil, err
	}
	st := newICSPState()
	icsp := &ICSP{session: s, pins: *s.caps.Icsp, state: st}

	s.bus.subscribe(KindICSP, 0, func(e event) {
		switch p := e.payload.(type) {
		case icspResultEv:
			st.onResult(p.value)
		case connectionLostEv:
			st.onClosed(p.err)
		case softResetEv:
			st.onClosed(nil)
		}
	})

	if err := s.out.send(func(b []byte) []byte { return encICSPConfig(b, true) }); err != nil {
		s.bus.unsubscribe(KindICSP, 0)
		s.resources.free(KindICSP, 0)
		return nil, err
	}
	return icsp, nil
}

// Pins reports the PGC/PGD/MCLR triple this module drives.
func (i *ICSP) Pins() IcspPins { return i.pins }

// EnterProgramming asserts the device's low-voltage programming entry
// sequence (§4.1 ICSP_PROG_ENTER). Required before Six/RegOut.
func (i *ICSP) EnterProgramming() error {
	i.inProg = true
	return i.session.out.send(encICSPProgEnter)
}

// ExitProgramming releases MCLR and ends the programming session.
func (i *ICSP) ExitProgramming() error {
	i.inProg = false
	return i.session.out.send(encICSPProgExit)
}

// Six clocks a 24-bit PIC instruction into the target over the SIX
// primitive (§4.1 ICSP_SIX), without reading a result back.
func (i *ICSP) Six(instruction uint32) error {
	if !i.inProg {
		return wrapErr(ErrIllegalState, "ioio: ICSP Six requires EnterProgramming")
	}
	return i.session.out.send(func(b []byte) []byte { return encICSPSix(b, instruction) })
}

// RegOut clocks the REGOUT primitive and returns the 16-bit VISI value it
// reads back, matched in FIFO order against other RegOut calls (§4.6).
func (i *ICSP) RegOut(ctx context.Context) (uint16, error) {
	if !i.inProg {
		return 0, wrapErr(ErrIllegalState, "ioio: ICSP RegOut requires EnterProgramming")
	}
	if err := i.session.out.send(encICSPRegOut); err != nil {
		return 0, err
	}
	return i.state.waitVisiResult(ctx)
}

// Close releases the ICSP module.
func (i *ICSP) Close() error {
	s := i.session
	s.bus.unsubscribe(KindICSP, 0)
	i.state.onClosed(nil)
	err := s.out.send(func(b []byte) []byte { return encICSPConfig(b, false) })
	s.resources.free(KindICSP, 0)
	return err
}
