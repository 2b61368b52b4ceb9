// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import "context"

// UART is an open UART master module.
type UART struct {
	session *Session
	uart    int
	rxPin   int
	txPin   int
	hasRx   bool
	hasTx   bool
	state   *streamState
}

// OpenUART allocates a UART module and routes rxPin/txPin to it. Pass -1
// for either pin to leave that direction unconnected.
func (s *Session) OpenUART(rxPin, txPin int, rate uint16, fourX, twoStop bool, parity Parity) (*UART, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	reqs := []request{{kind: KindUART}}
	if rxPin >= 0 {
		if !s.caps.CanPeripheralIn(rxPin) {
			return nil, wrapErr(ErrIllegalArgument, "ioio: pin %d cannot be a UART RX", rxPin)
		}
		reqs = append(reqs, request{kind: KindPin, id: rxPin})
	}
	if txPin >= 0 {
		if !s.caps.CanPeripheralOut(txPin) {
			return nil, wrapErr(ErrIllegalArgument, "ioio: pin %d cannot be a UART TX", txPin)
		}
		reqs = append(reqs, request{kind: KindPin, id: txPin})
	}
	results, err := s.resources.alloc(reqs...)
	if err != nil {
		return nil, err
	}
	uartNum := results[0].id
	bufSize := s.caps.BufferSizes[KindUART]
	st := newStreamState(bufSize)

	u := &UART{session: s, uart: uartNum, rxPin: rxPin, txPin: txPin, hasRx: rxPin >= 0, hasTx: txPin >= 0, state: st}

	s.bus.subscribe(KindUART, uartNum, func(e event) {
		switch p := e.payload.(type) {
		case streamDataEv:
			st.onData(p.data)
		case txStatusEv:
			st.onTxStatus(p.remaining)
		case streamStatusEv:
			if !p.open {
				st.onClosed(nil)
			}
		case connectionLostEv:
			st.onClosed(p.err)
		case softResetEv:
			st.onClosed(nil)
		}
	})

	err = s.Batch(func(b *Batch) {
		b.send(func(buf []byte) []byte { return encUARTConfig(buf, uartNum, rate, fourX, twoStop, parity) })
		if rxPin >= 0 {
			b.send(func(buf []byte) []byte { return encSetPinUART(buf, rxPin, uartNum, true, false) })
		}
		if txPin >= 0 {
			b.send(func(buf []byte) []byte { return encSetPinUART(buf, txPin, uartNum, true, true) })
		}
	})
	if err != nil {
		s.bus.unsubscribe(KindUART, uartNum)
		s.free(reqs, results)
		return nil, err
	}
	return u, nil
}

// Write sends data over the UART, splitting it into <=64-byte frames
// (§4.1's UART_DATA count range) and blocking on TX credit as needed.
func (u *UART) Write(ctx context.Context, data []byte) (int, error) {
	total := 0
	for len(data) > 0 {
		n := len(data)
		if n > 64 {
			n = 64
		}
		chunk := data[:n]
		if err := u.state.reserve(ctx, n); err != nil {
			return total, err
		}
		if err := u.session.out.send(func(b []byte) []byte { return encUARTData(b, u.uart, chunk) }); err != nil {
			return total, err
		}
		total += n
		data = data[n:]
	}
	return total, nil
}

// Read drains buffered inbound bytes, blocking until at least one is
// available or ctx is done.
func (u *UART) Read(ctx context.Context, p []byte) (int, error) { return u.state.read(ctx, p) }

// Close tears the UART module down and releases its resources.
func (u *UART) Close() error {
	s := u.session
	s.bus.unsubscribe(KindUART, u.uart)
	u.state.onClosed(nil)
	err := s.out.send(func(b []byte) []byte { return encUARTClose(b, u.uart) })
	s.resources.free(KindUART, u.uart)
	if u.hasRx {
		s.resources.free(KindPin, u.rxPin)
	}
	if u.hasTx {
		s.resources.free(KindPin, u.txPin)
	}
	return err
}

// free releases every descriptor alloc returned, in the order alloc saw
// the matching requests; used on the construction-failure path where the
// facade never got far enough to track fields individually.
func (s *Session) free(reqs []request, results []allocResult) {
	for _, r := range results {
		s.resources.free(r.kind, r.id)
	}
	_ = reqs
}
