// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ioio implements a host-side driver for IOIO I/O expansion boards.
//
// An IOIO board exposes digital pins, analog inputs, PWM outputs, pulse
// inputs and UART/SPI/TWI/ICSP master modules to a host over a duplex byte
// stream (USB accessory, Bluetooth RFCOMM or TCP). This module speaks the
// board's binary command/event protocol and multiplexes the many logical
// resources a board offers over that single stream.
//
// The transport itself - opening the USB accessory, the RFCOMM socket or the
// TCP connection - is not this package's concern; see the transport
// subpackage for the adapters this module ships. Applications needing a
// different carrier only need to satisfy ioio.Transport.
package ioio
