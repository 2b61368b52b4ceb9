// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

// Kind identifies one of the resource kinds a board hands out. Together
// with an id it forms a resource descriptor; at most one live owner ever
// holds a given (Kind, id) pair.
type Kind int

const (
	KindPin Kind = iota
	KindOutCompare
	KindUART
	KindSPI
	KindTWI
	KindICSP
	KindIncapSingle
	KindSequencer
)

func (k Kind) String() string {
	switch k {
	case KindPin:
		return "pin"
	case KindOutCompare:
		return "pwm"
	case KindUART:
		return "uart"
	case KindSPI:
		return "spi"
	case KindTWI:
		return "twi"
	case KindICSP:
		return "icsp"
	case KindIncapSingle:
		return "incap"
	case KindSequencer:
		return "sequencer"
	default:
		return "unknown"
	}
}

// resourceKey is the map key the dispatcher's listener registry and the
// resource manager both use to address a single resource.
type resourceKey struct {
	kind Kind
	id   int
}

// TwiPins names the two pins a TWI module number resolves to; the caller
// names the module, never the pins directly (§4.4).
type TwiPins struct {
	SDA, SCL int
}

// IcspPins names the three pins the single ICSP module uses.
type IcspPins struct {
	PGC, PGD, MCLR int
}

// Capabilities is a board model's static, immutable-once-attached pin
// classification (§3 "Capability table", §4.4, §4.5). It is resolved from
// the hardware id reported during the handshake's ESTABLISH_CONNECTION.
type Capabilities struct {
	// Model is a short human-readable identifier, e.g. "IOIO0300".
	Model string
	// PinCount is the number of addressable pins, numbered 0..PinCount-1.
	PinCount int

	AnalogPins        map[int]bool
	PeripheralInPins   map[int]bool
	PeripheralOutPins  map[int]bool
	CapSensePins      map[int]bool

	// TwiModules maps a TWI module number to the pin pair it drives.
	TwiModules map[int]TwiPins
	// Icsp is the single ICSP pin triple, when the board has one.
	Icsp *IcspPins

	// PoolSizes gives the number of free-pool ids available for each
	// pooled kind (OUTCOMPARE, UART, SPI, ICSP, INCAP_SINGLE, SEQUENCER).
	// PIN and TWI are caller-addressed, not pooled.
	PoolSizes map[Kind]int

	// BufferSizes gives the firmware-side TX buffer size, in bytes, for
	// each streaming module kind (UART, SPI, TWI, ICSP), bounding the
	// outstanding-TX counter described in §4.6.
	BufferSizes map[Kind]int
}

// CanAnalog reports whether pin supports analog input.
func (c *Capabilities) CanAnalog(pin int) bool { return c.AnalogPins[pin] }

// CanPeripheralIn reports whether pin can be routed to a peripheral input
// function (UART RX, SPI MISO, etc).
func (c *Capabilities) CanPeripheralIn(pin int) bool { return c.PeripheralInPins[pin] }

// CanPeripheralOut reports whether pin can be routed to a peripheral output
// function (UART TX, SPI MOSI/CLK, PWM, etc).
func (c *Capabilities) CanPeripheralOut(pin int) bool { return c.PeripheralOutPins[pin] }

// CanCapSense reports whether pin supports capacitive sensing.
func (c *Capabilities) CanCapSense(pin int) bool { return c.CapSensePins[pin] }

// Twi resolves a TWI module number to its pin pair.
func (c *Capabilities) Twi(module int) (TwiPins, bool) {
	p, ok := c.TwiModules[module]
	return p, ok
}

// byHardwareID maps the 8-byte hardware id reported at handshake time to a
// known board's capability table. An id absent from this map leaves the
// session INCOMPATIBLE (§4.5) rather than guessing.
var byHardwareID = map[string]*Capabilities{
	"IOIO0300": ioioClassicCaps(),
	"IOIO0003": ioioOTGCaps(),
}

// LookupCapabilities resolves a hardware id string (as decoded from the
// ESTABLISH_CONNECTION 8-byte field) to a board's capability table.
func LookupCapabilities(hardwareID string) (*Capabilities, bool) {
	c, ok := byHardwareID[hardwareID]
	return c, ok
}

func pinSet(pins ...int) map[int]bool {
	m := make(map[int]bool, len(pins))
	for _, p := range pins {
		m[p] = true
	}
	return m
}

// ioioClassicCaps models the original IOIO board's 48-pin layout.
func ioioClassicCaps() *Capabilities {
	analog := pinSet(31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46)
	peripheral := pinSet()
	for i := 0; i < 48; i++ {
		peripheral[i] = true
	}
	return &Capabilities{
		Model:             "IOIO0300",
		PinCount:          48,
		AnalogPins:        analog,
		PeripheralInPins:  peripheral,
		PeripheralOutPins: peripheral,
		CapSensePins:      pinSet(3, 4, 5, 6, 10, 11, 12, 13),
		TwiModules: map[int]TwiPins{
			0: {SDA: 4, SCL: 3},
			1: {SDA: 46, SCL: 45},
		},
		Icsp: &IcspPins{PGC: 7, PGD: 8, MCLR: 6},
		PoolSizes: map[Kind]int{
			KindOutCompare:  8,
			KindUART:        2,
			KindSPI:         2,
			KindICSP:        1,
			KindIncapSingle: 4,
			KindSequencer:   1,
		},
		BufferSizes: map[Kind]int{
			KindUART: 64,
			KindSPI:  64,
			KindTWI:  64,
			KindICSP: 64,
		},
	}
}

// ioioOTGCaps models the IOIO-OTG board, which has more pins and a third
// TWI module wired to the OTG connector's alternate pin pair.
func ioioOTGCaps() *Capabilities {
	analog := pinSet(31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47)
	peripheral := pinSet()
	for i := 0; i < 60; i++ {
		peripheral[i] = true
	}
	return &Capabilities{
		Model:             "IOIO0003",
		PinCount:          60,
		AnalogPins:        analog,
		PeripheralInPins:  peripheral,
		PeripheralOutPins: peripheral,
		CapSensePins:      pinSet(3, 4, 5, 6, 10, 11, 12, 13, 48, 49),
		TwiModules: map[int]TwiPins{
			0: {SDA: 4, SCL: 3},
			1: {SDA: 46, SCL: 45},
			2: {SDA: 58, SCL: 57},
		},
		Icsp: &IcspPins{PGC: 7, PGD: 8, MCLR: 6},
		PoolSizes: map[Kind]int{
			KindOutCompare:  8,
			KindUART:        4,
			KindSPI:         4,
			KindICSP:        1,
			KindIncapSingle: 8,
			KindSequencer:   1,
		},
		BufferSizes: map[Kind]int{
			KindUART: 192,
			KindSPI:  192,
			KindTWI:  192,
			KindICSP: 64,
		},
	}
}
