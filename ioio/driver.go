// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import (
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/pin"
	"periph.io/x/periph/conn/pin/pinreg"
)

// RegisterPins exposes already-open digital pins through periph.io's global
// gpioreg/pinreg registries, the way any other periph.io host registers its
// hardware (§B). Unlike a typical periph.Driver this does not run from an
// init() against auto-discovered hardware: an IOIO board is reached over a
// transport the caller configures explicitly, and a pin must already have a
// direction (input or output) before it is a meaningful gpio.PinIO, so there
// is nothing truthful to register before the caller has opened it.
func (s *Session) RegisterPins(pins ...*DigitalPin) error {
	header := make([]pin.Pin, len(pins))
	for i, p := range pins {
		if err := gpioreg.Register(p); err != nil {
			return err
		}
		header[i] = p
	}
	name := "ioio(" + s.caps.Model + ")"
	return pinreg.Register(name, [][]pin.Pin{header})
}

// RegisterTWI exposes an already-open TWI module through periph.io's global
// i2creg registry, so a device driver written against i2c.Bus (an EEPROM,
// sensor, or display driver from the wider periph.io ecosystem) can address
// the board's TWI module exactly as it would any other controller.
func (s *Session) RegisterTWI(t *TWIMaster) error {
	name := "ioio(" + s.caps.Model + ")-twi" + itoa(t.twi)
	return i2creg.Register(name, nil, t.twi, &i2cBus{t: t})
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
