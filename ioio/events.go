// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import (
	"bufio"
	"io"
)

// Incoming opcodes (device -> host). Where a byte value is shared with an
// outgoing opcode the two are unrelated tables keyed by the same number
// (§9 "shared opcodes").
const (
	evEstablishConnection    = 0x00
	evSoftReset              = 0x01
	evCheckInterfaceResponse = 0x02
	evReportPeriodicDigital  = 0x05
	evReportDigitalInStatus  = 0x04
	evSetChangeNotifyEcho    = 0x06
	evReportAnalogInStatus   = 0x0B
	evReportAnalogInFormat   = 0x0C
	evUARTStatus             = 0x0D
	evUARTData               = 0x0E
	evUARTReportTxStatus     = 0x0F
	evSPIStatus              = 0x10
	evSPIData                = 0x11
	evSPIReportTxStatus      = 0x12
	evI2CStatus              = 0x13
	evI2CResult              = 0x14
	evI2CReportTxStatus      = 0x15
	evICSPReportRxStatus     = 0x16
	evICSPResult             = 0x17
	evICSPConfig             = 0x1A
	evINCAPStatus            = 0x1B
	evINCAPReport            = 0x1C
	evSoftCloseEcho          = 0x1D
	evCapSenseReport         = 0x1E
	evSetCapSenseSamplingEcho = 0x1F
	evSequencerEvent         = 0x20
	evSync                   = 0x23
)

// SequencerEventType enumerates SEQUENCER_EVENT's event byte.
type SequencerEventType int

const (
	SeqEvPaused SequencerEventType = iota
	SeqEvStalled
	SeqEvOpened
	SeqEvNextCue
	SeqEvStopped
	SeqEvClosed
)

// Decoded incoming payloads, one struct per opcode family.

type establishConnectionEv struct {
	hardwareID, bootloaderID, firmwareID string
}

type checkInterfaceResponseEv struct{ supported bool }

type digitalInStatusEv struct {
	pin   int
	level bool
}

type analogInFormatEv struct{ pins []int }

type analogInStatusEv struct {
	pin   int
	value uint16
}

type streamStatusEv struct {
	kind Kind
	id   int
	open bool
}

type streamDataEv struct {
	kind  Kind
	id    int
	ssPin int // SPI only
	data  []byte
}

type txStatusEv struct {
	kind      Kind
	id        int
	remaining uint16
}

type i2cResultEv struct {
	i2c     int
	aborted bool
	data    []byte
}

type icspResultEv struct{ value uint16 }

type icspRxStatusEv struct{ remaining uint16 }

type incapReportEv struct {
	incapNum int
	value    uint32
}

type capSenseReportEv struct {
	pin   int
	value uint16
}

type sequencerEventEv struct {
	typ   SequencerEventType
	extra byte
}

type syncEv struct{}
type softResetEv struct{}
type softCloseEv struct{}

// decodeEvent reads exactly one opcode plus its follow-on bytes from r and
// returns the decoded payload. An unrecognised opcode is a protocol error
// per §4.1, terminating the session.
func decodeEvent(r *bufio.Reader) (any, error) {
	opcode, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch opcode {
	case evEstablishConnection:
		var magic [4]byte
		if _, err := readFull(r, magic[:]); err != nil {
			return nil, err
		}
		if magic != establishMagic {
			return nil, wrapErr(ErrProtocol, "ioio: bad ESTABLISH_CONNECTION magic %q", magic)
		}
		hw, err := readID8(r)
		if err != nil {
			return nil, err
		}
		bl, err := readID8(r)
		if err != nil {
			return nil, err
		}
		fw, err := readID8(r)
		if err != nil {
			return nil, err
		}
		return establishConnectionEv{hardwareID: hw, bootloaderID: bl, firmwareID: fw}, nil

	case evSoftReset:
		return softResetEv{}, nil

	case evCheckInterfaceResponse:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return checkInterfaceResponseEv{supported: b&1 != 0}, nil

	case evReportDigitalInStatus:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return digitalInStatusEv{pin: int(b >> 2), level: b&1 != 0}, nil

	case evReportPeriodicDigital:
		// Reserved: wire format unspecified upstream (§9). Consume the
		// one follow-on byte the rest of this opcode family uses and
		// drop it; do not invent semantics.
		if _, err := r.ReadByte(); err != nil {
			return nil, err
		}
		return nil, nil

	case evSetChangeNotifyEcho:
		if _, err := r.ReadByte(); err != nil {
			return nil, err
		}
		return nil, nil

	case evReportAnalogInFormat:
		count, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		pins := make([]int, count)
		for i := range pins {
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			pins[i] = int(b)
		}
		return analogInFormatEv{pins: pins}, nil

	case evReportAnalogInStatus:
		// Handled specially by the dispatcher, which knows the current
		// tracked-pin list and the 2-bit/8-bit packing across it; the
		// opcode alone doesn't carry enough information to self-decode.
		return analogInStatusOpcode{}, nil

	case evUARTStatus, evSPIStatus, evI2CStatus:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		kind := statusKindFor(opcode)
		return streamStatusEv{kind: kind, id: int(b & 3), open: b&0x80 != 0}, nil

	case evUARTData:
		b1, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		size := int(b1&0x3F) + 1
		uart := int(b1 >> 6)
		data := make([]byte, size)
		if _, err := readFull(r, data); err != nil {
			return nil, err
		}
		return streamDataEv{kind: KindUART, id: uart, data: data}, nil

	case evSPIData:
		b1, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		b2, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		size := int(b1&0x3F) + 1
		spi := int(b1 >> 6)
		ss := int(b2 & 0x3F)
		data := make([]byte, size)
		if _, err := readFull(r, data); err != nil {
			return nil, err
		}
		return streamDataEv{kind: KindSPI, id: spi, ssPin: ss, data: data}, nil

	case evUARTReportTxStatus, evSPIReportTxStatus, evI2CReportTxStatus:
		idb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		a1, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		a2, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		kind := txKindFor(opcode)
		remaining := uint16(a1>>2) | uint16(a2)<<6
		return txStatusEv{kind: kind, id: int(idb & 3), remaining: remaining}, nil

	case evI2CResult:
		idb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		sizeb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if sizeb == 0xFF {
			return i2cResultEv{i2c: int(idb & 3), aborted: true}, nil
		}
		data := make([]byte, sizeb)
		if _, err := readFull(r, data); err != nil {
			return nil, err
		}
		return i2cResultEv{i2c: int(idb & 3), data: data}, nil

	case evICSPResult:
		b0, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		b1, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return icspResultEv{value: uint16(b0) | uint16(b1)<<8}, nil

	case evICSPReportRxStatus:
		a1, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		a2, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return icspRxStatusEv{remaining: uint16(a1>>2) | uint16(a2)<<6}, nil

	case evICSPConfig:
		if _, err := r.ReadByte(); err != nil {
			return nil, err
		}
		return nil, nil

	case evINCAPStatus:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return streamStatusEv{kind: KindIncapSingle, id: int(b & 0x3F), open: b&0x80 != 0}, nil

	case evINCAPReport:
		incapNum, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		a1, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		size := int(a1 >> 6)
		if size == 0 {
			size = 4
		}
		data := make([]byte, size)
		if _, err := readFull(r, data); err != nil {
			return nil, err
		}
		var v uint32
		for i, b := range data {
			v |= uint32(b) << (8 * uint(i))
		}
		return incapReportEv{incapNum: int(incapNum), value: v}, nil

	case evCapSenseReport:
		a1, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		a2, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return capSenseReportEv{pin: int(a1 & 0x3F), value: uint16(a1>>6) | uint16(a2)<<2}, nil

	case evSequencerEvent:
		typb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		typ := SequencerEventType(typb)
		var extra byte
		if typ == SeqEvOpened || typ == SeqEvStopped {
			extra, err = r.ReadByte()
			if err != nil {
				return nil, err
			}
		}
		return sequencerEventEv{typ: typ, extra: extra}, nil

	case evSoftCloseEcho:
		return softCloseEv{}, nil

	case evSync:
		return syncEv{}, nil

	default:
		return nil, wrapErr(ErrProtocol, "ioio: unrecognised opcode %#02x", opcode)
	}
}

// analogInStatusOpcode is a marker returned by decodeEvent for 0x0B; the
// dispatcher decodes the body itself since it needs the tracked-pin list.
type analogInStatusOpcode struct{}

func statusKindFor(opcode byte) Kind {
	switch opcode {
	case evUARTStatus:
		return KindUART
	case evSPIStatus:
		return KindSPI
	default:
		return KindTWI
	}
}

func txKindFor(opcode byte) Kind {
	switch opcode {
	case evUARTReportTxStatus:
		return KindUART
	case evSPIReportTxStatus:
		return KindSPI
	default:
		return KindTWI
	}
}

func readID8(r *bufio.Reader) (string, error) {
	var b [8]byte
	if _, err := readFull(r, b[:]); err != nil {
		return "", err
	}
	return string(b[:]), nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	return io.ReadFull(r, buf)
}
