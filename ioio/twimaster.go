// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import (
	"context"
	"sync"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/physic"
)

// TWIMaster is an open TWI (I2C-compatible) master module, bound to a fixed
// pin pair named by the board's capability table (§4.4). The board allows
// one outstanding I2C_WRITE_READ per module, so WriteRead serializes callers
// rather than FIFO-queueing like SPI's request stream.
type TWIMaster struct {
	session *Session
	twi     int
	pins    TwiPins
	smbus   bool
	txMu    sync.Mutex
	pending chan streamResult
}

// OpenTWIMaster opens TWI module number module at the given bus rate, in
// hertz (100000, 400000 or 1000000). The pin pair is resolved from the
// board's capability table, never chosen by the caller (§4.4).
func (s *Session) OpenTWIMaster(module int, rateHz int, smbusLevels bool) (*TWIMaster, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	pins, ok := s.caps.Twi(module)
	if !ok {
		return nil, wrapErr(ErrIllegalArgument, "ioio: no such TWI module %d", module)
	}
	rateCode, ok := i2cRateCode(rateHz)
	if !ok {
		return nil, wrapErr(ErrIllegalArgument, "ioio: unsupported TWI rate %d", rateHz)
	}
	if _, err := s.resources.alloc(request{kind: KindTWI, id: module}); err != nil {
		return nil, err
	}

	t := &TWIMaster{session: s, twi: module, pins: pins, smbus: smbusLevels, pending: nil}

	resultCh := make(chan streamResult, 1)
	s.bus.subscribe(KindTWI, module, func(e event) {
		switch p := e.payload.(type) {
		case i2cResultEv:
			if p.aborted {
				select {
				case resultCh <- streamResult{err: wrapErr(ErrProtocol, "ioio: TWI %d transaction aborted (NACK)", module)}:
				default:
				}
				return
			}
			select {
			case resultCh <- streamResult{data: p.data}:
			default:
			}
		case connectionLostEv:
			select {
			case resultCh <- streamResult{err: p.err}:
			default:
			}
		case softResetEv:
			select {
			case resultCh <- streamResult{err: ErrConnectionLost}:
			default:
			}
		}
	})
	t.pending = resultCh

	if err := s.out.send(func(b []byte) []byte { return encI2CConfigureMaster(b, module, smbusLevels, rateCode) }); err != nil {
		s.bus.unsubscribe(KindTWI, module)
		s.resources.free(KindTWI, module)
		return nil, err
	}
	return t, nil
}

// Pins reports the SDA/SCL pair this TWI module drives.
func (t *TWIMaster) Pins() TwiPins { return t.pins }

// WriteRead performs one combined write-then-read transaction against a
// 7-bit or 10-bit address (§4.1 I2C_WRITE_READ), matched to the single
// outstanding request this module allows at a time.
func (t *TWIMaster) WriteRead(ctx context.Context, addr int, tenBit bool, write []byte, readSize int) ([]byte, error) {
	t.txMu.Lock()
	defer t.txMu.Unlock()
	err := t.session.out.send(func(b []byte) []byte {
		return encI2CWriteRead(b, t.twi, addr, tenBit, len(write), readSize, write)
	})
	if err != nil {
		return nil, err
	}
	select {
	case res := <-t.pending:
		return res.data, res.err
	case <-ctx.Done():
		return nil, wrapErr(ErrInterrupted, "ioio: TWI WriteRead cancelled: %v", ctx.Err())
	}
}

// Close tears the TWI module down; the pin pair is board-fixed and is not
// released back to the pool.
func (t *TWIMaster) Close() error {
	s := t.session
	s.bus.unsubscribe(KindTWI, t.twi)
	select {
	case t.pending <- streamResult{err: ErrConnectionLost}:
	default:
	}
	err := s.out.send(func(b []byte) []byte { return encI2CClose(b, t.twi) })
	s.resources.free(KindTWI, t.twi)
	return err
}

// i2cBus adapts a TWIMaster to periph.io/x/periph/conn/i2c.Bus, the same
// interface an application already using periph.io would address any other
// I2C controller through (§B).
type i2cBus struct {
	t *TWIMaster
}

var _ i2c.Bus = (*i2cBus)(nil)

func (b *i2cBus) String() string { return "ioio.TWI" }

func (b *i2cBus) Tx(addr uint16, w, r []byte) error {
	data, err := b.t.WriteRead(context.Background(), int(addr), addr > 0x7F, w, len(r))
	if err != nil {
		return err
	}
	copy(r, data)
	return nil
}

// SetSpeed is a no-op: the module's rate was fixed at OpenTWIMaster time and
// the wire protocol has no way to change it on an already-open module.
func (b *i2cBus) SetSpeed(f physic.Frequency) error { return nil }
