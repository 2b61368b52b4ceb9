// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import (
	"context"

	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/spi"
)

// SPIMaster is an open SPI master module.
type SPIMaster struct {
	session *Session
	spi     int
	clk     int
	mosi    int
	miso    int
	state   *streamState
}

// OpenSPIMaster allocates an SPI module and routes clk/mosi/miso to it.
func (s *Session) OpenSPIMaster(clk, mosi, miso int, rateCode byte, mode SPIMode) (*SPIMaster, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	for _, pin := range []int{clk, mosi, miso} {
		if !s.caps.CanPeripheralOut(pin) && !s.caps.CanPeripheralIn(pin) {
			return nil, wrapErr(ErrIllegalArgument, "ioio: pin %d cannot be routed to SPI", pin)
		}
	}
	results, err := s.resources.alloc(
		request{kind: KindSPI},
		request{kind: KindPin, id: clk},
		request{kind: KindPin, id: mosi},
		request{kind: KindPin, id: miso},
	)
	if err != nil {
		return nil, err
	}
	spiNum := results[0].id
	bufSize := s.caps.BufferSizes[KindSPI]
	st := newStreamState(bufSize)
	m := &SPIMaster{session: s, spi: spiNum, clk: clk, mosi: mosi, miso: miso, state: st}

	s.bus.subscribe(KindSPI, spiNum, func(e event) {
		switch p := e.payload.(type) {
		case streamDataEv:
			st.completeHead(streamResult{data: p.data})
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
		b.send(func(buf []byte) []byte { return encSPIConfigureMaster(buf, spiNum, rateCode, mode) })
		b.send(func(buf []byte) []byte { return encSetPinSPI(buf, clk, spiNum, SPIPinCLK) })
		b.send(func(buf []byte) []byte { return encSetPinSPI(buf, mosi, spiNum, SPIPinMOSI) })
		b.send(func(buf []byte) []byte { return encSetPinSPI(buf, miso, spiNum, SPIPinMISO) })
	})
	if err != nil {
		s.bus.unsubscribe(KindSPI, spiNum)
		s.free(nil, results)
		return nil, err
	}
	return m, nil
}

// Transact performs one write/read request against ssPin, matched to the
// response in FIFO order (§4.6, §8). total is the number of clocked byte
// slots; write is sent as the first len(write) of them.
func (m *SPIMaster) Transact(ctx context.Context, ssPin int, write []byte, total, readSize int) ([]byte, error) {
	if err := m.state.reserve(ctx, len(write)); err != nil {
		return nil, err
	}
	pr := m.state.pushPending()
	err := m.session.out.send(func(b []byte) []byte {
		return encSPIMasterRequest(b, m.spi, ssPin, total, len(write), readSize, write)
	})
	if err != nil {
		return nil, err
	}
	select {
	case res := <-pr.result:
		return res.data, res.err
	case <-ctx.Done():
		return nil, wrapErr(ErrInterrupted, "ioio: SPI Transact cancelled: %v", ctx.Err())
	}
}

// Close tears the SPI module down and releases its pins.
func (m *SPIMaster) Close() error {
	s := m.session
	s.bus.unsubscribe(KindSPI, m.spi)
	m.state.onClosed(nil)
	err := s.out.send(func(b []byte) []byte { return encSPIClose(b, m.spi) })
	s.resources.free(KindSPI, m.spi)
	s.resources.free(KindPin, m.clk)
	s.resources.free(KindPin, m.mosi)
	s.resources.free(KindPin, m.miso)
	return err
}

// spiConn adapts an open SPIMaster and a fixed chip-select pin to
// periph.io/x/periph/conn/spi.Conn, so callers of a generic SPI-backed
// device driver can use an IOIO SPI module transparently (§B). spiConn is
// unexported and no function in this package returns one, so code outside
// the package cannot obtain it.
type spiConn struct {
	m     *SPIMaster
	ssPin int
}

var _ spi.Conn = (*spiConn)(nil)

func (c *spiConn) String() string { return "ioio.SPI" }

func (c *spiConn) Tx(w, r []byte) error {
	data, err := c.m.Transact(context.Background(), c.ssPin, w, len(w)+len(r), len(r))
	if err != nil {
		return err
	}
	copy(r, data)
	return nil
}

func (c *spiConn) Duplex() conn.Duplex { return conn.Full }
