package ioio

import (
	"bufio"
	"bytes"
	"testing"
)

// TestDecodeAnalogInFormat covers §8 scenario 2's incoming half: a format
// event naming one tracked pin (31) decodes to that single pin, and an
// empty format event decodes to no pins.
func TestDecodeAnalogInFormat(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte{evReportAnalogInFormat, 0x01, 0x1F}))
	payload, err := decodeEvent(r)
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}
	ev, ok := payload.(analogInFormatEv)
	if !ok {
		t.Fatalf("got %T, want analogInFormatEv", payload)
	}
	if len(ev.pins) != 1 || ev.pins[0] != 31 {
		t.Fatalf("got pins %v, want [31]", ev.pins)
	}

	r = bufio.NewReader(bytes.NewReader([]byte{evReportAnalogInFormat, 0x00}))
	payload, err = decodeEvent(r)
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}
	ev, ok = payload.(analogInFormatEv)
	if !ok {
		t.Fatalf("got %T, want analogInFormatEv", payload)
	}
	if len(ev.pins) != 0 {
		t.Fatalf("got pins %v, want none", ev.pins)
	}
}

// TestHandleAnalogInFormatOpenThenClose exercises the dispatcher's
// symmetric-difference logic directly (§8 scenario 2, §9 design note):
// the first format event naming pin 31 emits one open event for 31; the
// next, naming no pins, emits one close event for 31 and nothing else.
func TestHandleAnalogInFormatOpenThenClose(t *testing.T) {
	s := &Session{bus: newEventBus()}

	var events []analogOpenCloseEv
	s.bus.subscribe(KindPin, 31, func(e event) {
		events = append(events, e.payload.(analogOpenCloseEv))
	})

	s.handleAnalogInFormat(analogInFormatEv{pins: []int{31}})
	if len(events) != 1 || !events[0].open {
		t.Fatalf("got %v, want one open event", events)
	}

	s.handleAnalogInFormat(analogInFormatEv{pins: nil})
	if len(events) != 2 || events[1].open {
		t.Fatalf("got %v, want open then close", events)
	}
}

// TestHandleAnalogInFormatUnchangedPinIsSilent ensures a pin present in
// both the old and new tracked list receives no spurious open/close.
func TestHandleAnalogInFormatUnchangedPinIsSilent(t *testing.T) {
	s := &Session{bus: newEventBus()}
	var count int
	s.bus.subscribe(KindPin, 31, func(event) { count++ })

	s.handleAnalogInFormat(analogInFormatEv{pins: []int{31}})
	s.handleAnalogInFormat(analogInFormatEv{pins: []int{31, 32}})
	if count != 1 {
		t.Fatalf("got %d events, want 1 (the first open of 31 only)", count)
	}
}

// TestReadAndHandleAnalogInStatus exercises the 2-bit/8-bit packed status
// frame body (§4.3) for a single tracked pin with a known 10-bit value.
func TestReadAndHandleAnalogInStatus(t *testing.T) {
	s := &Session{bus: newEventBus()}
	s.analogTracked = []int{31}

	var got analogInStatusEv
	s.bus.subscribe(KindPin, 31, func(e event) {
		got = e.payload.(analogInStatusEv)
	})

	// value 0x2F3 (755): low 2 bits = 3, high 8 bits = 0xBC.
	r := bufio.NewReader(bytes.NewReader([]byte{0x03, 0xBC}))
	if err := s.readAndHandleAnalogInStatus(r); err != nil {
		t.Fatalf("readAndHandleAnalogInStatus: %v", err)
	}
	if got.pin != 31 || got.value != 0x2F3 {
		t.Fatalf("got %+v, want pin 31 value 0x2F3", got)
	}
}

// TestDecodeSPIData covers §8 scenario 4's incoming half: an SPI_DATA
// frame for module 0, 4 bytes, ss_pin 0.
func TestDecodeSPIData(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte{evSPIData, 0x03, 0x00, 0xAA, 0xBB, 0xCC, 0x00}))
	payload, err := decodeEvent(r)
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}
	ev, ok := payload.(streamDataEv)
	if !ok {
		t.Fatalf("got %T, want streamDataEv", payload)
	}
	if ev.kind != KindSPI || ev.id != 0 || ev.ssPin != 0 {
		t.Fatalf("got %+v, want SPI module 0 ss 0", ev)
	}
	want := []byte{0xAA, 0xBB, 0xCC, 0x00}
	if !bytes.Equal(ev.data, want) {
		t.Fatalf("got data % X, want % X", ev.data, want)
	}
}

// TestDecodeUnknownOpcodeIsProtocolError covers §4.3/§7/§9: an
// unrecognised opcode is a protocol error, not silently ignored.
func TestDecodeUnknownOpcodeIsProtocolError(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte{0x7F}))
	_, err := decodeEvent(r)
	if err == nil {
		t.Fatal("want an error for an unrecognised opcode")
	}
}

// TestReservedOpcodesPreserveByteCount covers §9's open question: the
// reserved REPORT_PERIODIC_DIGITAL_IN_STATUS handler and the
// SET_CHANGE_NOTIFY echo each consume their one follow-on byte and decode
// to no event, rather than inventing a payload shape.
func TestReservedOpcodesPreserveByteCount(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte{evReportPeriodicDigital, 0x55, evSetChangeNotifyEcho, 0x11}))
	payload, err := decodeEvent(r)
	if err != nil || payload != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", payload, err)
	}
	payload, err = decodeEvent(r)
	if err != nil || payload != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", payload, err)
	}
}
