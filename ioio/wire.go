// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

// Outgoing opcodes (host -> device). Some numeric values are reused by the
// device -> host direction with entirely different meaning (see events.go);
// per §9's "shared opcodes" note the two directions are never modelled with
// one shared type, only the same byte value.
const (
	opHardReset              = 0x00
	opSoftReset              = 0x01
	opCheckInterface         = 0x02
	opSetPinDigitalOut       = 0x03
	opSetDigitalOutLevel     = 0x04
	opSetPinDigitalIn        = 0x05
	opSetChangeNotify        = 0x06
	opRegisterPeriodicDigital = 0x07
	opSetPinPWM              = 0x08
	opSetPWMDutyCycle        = 0x09
	opSetPWMPeriod           = 0x0A
	opSetPinAnalogIn         = 0x0B
	opSetAnalogInSampling    = 0x0C
	opUARTConfig             = 0x0D
	opUARTData               = 0x0E
	opSetPinUART             = 0x0F
	opSPIConfigureMaster     = 0x10
	opSPIMasterRequest       = 0x11
	opSetPinSPI              = 0x12
	opI2CConfigureMaster     = 0x13
	opI2CWriteRead           = 0x14
	opICSPSix                = 0x16
	opICSPRegOut             = 0x17
	opICSPProgEnter          = 0x18
	opICSPProgExit           = 0x19
	opICSPConfig             = 0x1A
	opINCAPConfigure         = 0x1B
	opSetPinINCAP            = 0x1C
	opSoftClose              = 0x1D
	opSetPinCapSense         = 0x1E
	opSetCapSenseSampling    = 0x1F
	opSequencerConfigure     = 0x20
	opSequencerPush          = 0x21
	opSequencerControl       = 0x22
	opSync                   = 0x23
)

// checkInterfaceMagic is the required 8-byte interface id sent with
// CHECK_INTERFACE (§6): "IOIO0005".
var checkInterfaceMagic = [8]byte{'I', 'O', 'I', 'O', '0', '0', '0', '5'}

// establishMagic is the 4-byte magic every ESTABLISH_CONNECTION event must
// begin with.
var establishMagic = [4]byte{'I', 'O', 'I', 'O'}

// pwmScaleEncode maps a PWM clock scale factor to its 2-bit wire encoding.
func pwmScaleEncode(scale int) (byte, bool) {
	switch scale {
	case 1:
		return 0, true
	case 8:
		return 3, true
	case 64:
		return 2, true
	case 256:
		return 1, true
	default:
		return 0, false
	}
}

// Parity identifies a UART's parity mode.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func parityBits(p Parity) byte {
	switch p {
	case ParityEven:
		return 1
	case ParityOdd:
		return 2
	default:
		return 0
	}
}

// SPIMode selects clock polarity/phase for a master SPI module.
type SPIMode int

const (
	SPIMode0 SPIMode = iota
	SPIMode1
	SPIMode2
	SPIMode3
)

func spiModeBits(m SPIMode) (sampleOnTrailing, invertClk bool) {
	switch m {
	case SPIMode0:
		return false, false
	case SPIMode1:
		return true, false
	case SPIMode2:
		return false, true
	case SPIMode3:
		return true, true
	default:
		return false, false
	}
}

func i2cRateCode(hz int) (byte, bool) {
	switch hz {
	case 100000:
		return 1, true
	case 400000:
		return 2, true
	case 1000000:
		return 3, true
	default:
		return 0, false
	}
}

// --- encoders: each appends the wire bytes for one command to buf and
// returns the result. They perform no I/O; emission through the outgoing
// channel is outgoing.go's job. ---

func encHardReset(buf []byte) []byte {
	return append(buf, opHardReset, 'I', 'O', 'I', 'O')
}

func encSoftReset(buf []byte) []byte { return append(buf, opSoftReset) }
func encSoftClose(buf []byte) []byte { return append(buf, opSoftClose) }
func encSync(buf []byte) []byte      { return append(buf, opSync) }

func encCheckInterface(buf []byte) []byte {
	buf = append(buf, opCheckInterface)
	return append(buf, checkInterfaceMagic[:]...)
}

func encSetPinDigitalOut(buf []byte, pin int, openDrain, value bool) []byte {
	b := byte(pin<<2) | boolBit(openDrain, 1) | boolBit(value, 2)
	return append(buf, opSetPinDigitalOut, b)
}

func encSetDigitalOutLevel(buf []byte, pin int, value bool) []byte {
	b := byte(pin<<2) | boolBit(value, 1)
	return append(buf, opSetDigitalOutLevel, b)
}

// Pull selects a digital input's pull resistor configuration.
type Pull int

const (
	PullFloating Pull = 0
	PullUp       Pull = 1
	PullDown     Pull = 2
)

func encSetPinDigitalIn(buf []byte, pin int, pull Pull) []byte {
	b := byte(pin<<2) | byte(pull)
	return append(buf, opSetPinDigitalIn, b)
}

func encSetChangeNotify(buf []byte, pin int, notify bool) []byte {
	b := byte(pin<<2) | boolBit(notify, 1)
	return append(buf, opSetChangeNotify, b)
}

func encSetPinPWM(buf []byte, pin, pwmNum int, enable bool) []byte {
	b2 := boolBit(enable, 0x80) | byte(pwmNum&0x0F)
	return append(buf, opSetPinPWM, byte(pin&0x3F), b2)
}

func encSetPWMDutyCycle(buf []byte, pwmNum int, fraction byte, duty uint16) []byte {
	b1 := byte(pwmNum<<2) | fraction
	return append(buf, opSetPWMDutyCycle, b1, byte(duty), byte(duty>>8))
}

func encSetPWMPeriod(buf []byte, pwmNum int, scaleEnc byte, period uint16) []byte {
	b1 := ((scaleEnc & 2) << 6) | byte(pwmNum<<1) | (scaleEnc & 1)
	return append(buf, opSetPWMPeriod, b1, byte(period), byte(period>>8))
}

func encSetPinAnalogIn(buf []byte, pin int) []byte {
	return append(buf, opSetPinAnalogIn, byte(pin&0x3F))
}

func encSetAnalogInSampling(buf []byte, pin int, enable bool) []byte {
	b := boolBit(enable, 0x80) | byte(pin&0x3F)
	return append(buf, opSetAnalogInSampling, b)
}

func encUARTConfig(buf []byte, uart int, rate uint16, fourX, twoStop bool, parity Parity) []byte {
	b1 := byte(uart<<6) | boolBit(fourX, 8) | boolBit(twoStop, 4) | parityBits(parity)
	return append(buf, opUARTConfig, b1, byte(rate), byte(rate>>8))
}

func encUARTClose(buf []byte, uart int) []byte {
	return encUARTConfig(buf, uart, 0, false, false, ParityNone)
}

func encUARTData(buf []byte, uart int, data []byte) []byte {
	b1 := byte((len(data)-1)&0x3F) | byte(uart<<6)
	buf = append(buf, opUARTData, b1)
	return append(buf, data...)
}

func encSetPinUART(buf []byte, pin, uart int, enable, tx bool) []byte {
	b := boolBit(enable, 0x80) | boolBit(tx, 0x40) | byte(uart)
	return append(buf, opSetPinUART, byte(pin), b)
}

func encSPIConfigureMaster(buf []byte, spi int, rateCode byte, mode SPIMode) []byte {
	sampleTrail, invertClk := spiModeBits(mode)
	b1 := byte(spi<<5) | rateCode
	b2 := boolBit(!sampleTrail, 2) | boolBit(invertClk, 1)
	return append(buf, opSPIConfigureMaster, b1, b2)
}

func encSPIClose(buf []byte, spi int) []byte {
	b1 := byte(spi << 5)
	return append(buf, opSPIConfigureMaster, b1, 0)
}

func encSPIMasterRequest(buf []byte, spi, ssPin, total, data, resp int, payload []byte) []byte {
	b1 := byte(spi<<6) | byte(ssPin)
	b2 := boolBit(data != total, 0x80) | boolBit(resp != total, 0x40) | byte(total-1)
	buf = append(buf, opSPIMasterRequest, b1, b2)
	if data != total {
		buf = append(buf, byte(data))
	}
	if resp != total {
		buf = append(buf, byte(resp))
	}
	return append(buf, payload...)
}

// SPIPinMode selects the peripheral function a pin performs on an SPI bus.
type SPIPinMode int

const (
	SPIPinMOSI SPIPinMode = 0
	SPIPinMISO SPIPinMode = 1
	SPIPinCLK  SPIPinMode = 2
)

func encSetPinSPI(buf []byte, pin, spi int, mode SPIPinMode) []byte {
	b := byte(0x10) | byte(mode<<2) | byte(spi)
	return append(buf, opSetPinSPI, byte(pin), b)
}

func encI2CConfigureMaster(buf []byte, i2c int, smbus bool, rateCode byte) []byte {
	b := boolBit(smbus, 0x80) | (rateCode << 5) | byte(i2c)
	return append(buf, opI2CConfigureMaster, b)
}

func encI2CClose(buf []byte, i2c int) []byte {
	return append(buf, opI2CConfigureMaster, byte(i2c))
}

func encI2CWriteRead(buf []byte, i2c, addr int, tenBit bool, writeSize, readSize int, payload []byte) []byte {
	b1 := byte((addr>>8)<<6) | boolBit(tenBit, 0x20) | byte(i2c)
	buf = append(buf, opI2CWriteRead, b1, byte(addr&0xFF), byte(writeSize), byte(readSize))
	return append(buf, payload...)
}

func encICSPConfig(buf []byte, open bool) []byte {
	return append(buf, opICSPConfig, boolBit(open, 1))
}

func encICSPProgEnter(buf []byte) []byte { return append(buf, opICSPProgEnter) }
func encICSPProgExit(buf []byte) []byte  { return append(buf, opICSPProgExit) }

func encICSPSix(buf []byte, instruction uint32) []byte {
	return append(buf, opICSPSix, byte(instruction), byte(instruction>>8), byte(instruction>>16))
}

func encICSPRegOut(buf []byte) []byte { return append(buf, opICSPRegOut) }

func encSetPinINCAP(buf []byte, pin, incapNum int, enable bool) []byte {
	b := byte(incapNum) | boolBit(enable, 0x80)
	return append(buf, opSetPinINCAP, byte(pin), b)
}

func encINCAPConfigure(buf []byte, incapNum int, double bool, mode, clock byte) []byte {
	b := boolBit(double, 0x80) | (mode << 3) | clock
	return append(buf, opINCAPConfigure, byte(incapNum), b)
}

func encINCAPClose(buf []byte, incapNum int) []byte {
	return append(buf, opINCAPConfigure, byte(incapNum), 0)
}

func encSetPinCapSense(buf []byte, pin int) []byte {
	return append(buf, opSetPinCapSense, byte(pin&0x3F))
}

func encSetCapSenseSampling(buf []byte, pin int, enable bool) []byte {
	b := byte(pin&0x3F) | boolBit(enable, 0x80)
	return append(buf, opSetCapSenseSampling, b)
}

func encSequencerConfigure(buf []byte, config []byte) []byte {
	buf = append(buf, opSequencerConfigure, byte(len(config)))
	return append(buf, config...)
}

func encSequencerClose(buf []byte) []byte {
	return append(buf, opSequencerConfigure, 0)
}

func encSequencerPush(buf []byte, duration uint16, cue []byte) []byte {
	buf = append(buf, opSequencerPush, byte(duration), byte(duration>>8), byte(len(cue)))
	return append(buf, cue...)
}

// SequencerAction is the action byte of SEQUENCER_CONTROL.
type SequencerAction int

const (
	SeqStop SequencerAction = iota
	SeqStart
	SeqPause
	SeqManualStart
	SeqManualStop
)

func encSequencerControl(buf []byte, action SequencerAction, cue []byte) []byte {
	buf = append(buf, opSequencerControl, byte(action))
	if action == SeqManualStart {
		buf = append(buf, cue...)
	}
	return buf
}

func boolBit(v bool, bit byte) byte {
	if v {
		return bit
	}
	return 0
}
