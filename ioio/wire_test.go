package ioio

import "testing"

func hexEqual(t *testing.T, got []byte, want ...byte) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got % X, want % X", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got % X, want % X", got, want)
		}
	}
}

// TestDigitalOutBlink covers §8 scenario 1: open pin 13 as output low,
// write HIGH, write LOW, then close (which reconfigures it floating-input).
func TestDigitalOutBlink(t *testing.T) {
	var buf []byte
	buf = encSetPinDigitalOut(buf, 13, false, false)
	buf = encSetDigitalOutLevel(buf, 13, true)
	buf = encSetDigitalOutLevel(buf, 13, false)
	buf = encSetPinDigitalIn(buf, 13, PullFloating)
	hexEqual(t, buf, 0x03, 0x34, 0x04, 0x35, 0x04, 0x34, 0x05, 0x34)
}

// TestAnalogInOpen covers §8 scenario 2's outgoing half: opening pin 31 for
// analog input emits SET_PIN_ANALOG_IN followed by SET_ANALOG_IN_SAMPLING
// with the enable bit set.
func TestAnalogInOpen(t *testing.T) {
	var buf []byte
	buf = encSetPinAnalogIn(buf, 31)
	buf = encSetAnalogInSampling(buf, 31, true)
	hexEqual(t, buf, 0x0B, 0x1F, 0x0C, 0x9F)
}

// TestPWM1kHzOnPin10 covers §8 scenario 3: a 16MHz base clock, 1x scale,
// period 16000 (encoded as period-1), PWM channel 0 on pin 10.
func TestPWM1kHzOnPin10(t *testing.T) {
	var buf []byte
	buf = encSetPinDigitalOut(buf, 10, false, false)
	scaleEnc, ok := pwmScaleEncode(1)
	if !ok {
		t.Fatal("scale 1 must be a valid encoding")
	}
	buf = encSetPinPWM(buf, 10, 0, true)
	buf = encSetPWMPeriod(buf, 0, scaleEnc, 16000-1)
	hexEqual(t, buf, 0x03, 0x28, 0x08, 0x0A, 0x80, 0x0A, 0x00, 0x7F, 0x3E)
}

// TestSPIReadRequest covers §8 scenario 4: writeRead(slave=0, write=2
// bytes, total=4, readSize=3) on SPI module 0.
func TestSPIReadRequest(t *testing.T) {
	payload := []byte{0x23, 0x45}
	buf := encSPIMasterRequest(nil, 0, 0, 4, len(payload), 3, payload)
	hexEqual(t, buf, 0x11, 0x00, 0xC3, 0x02, 0x03, 0x23, 0x45)
}

// TestSync covers §8 scenario 5's outgoing half: SYNC is a bare opcode.
func TestSync(t *testing.T) {
	buf := encSync(nil)
	hexEqual(t, buf, 0x23)
}

// TestSPIConfigureMasterMode0 and TestSPIClose exercise the configure/close
// pair used by OpenSPIMaster/Close: module numbering and mode bits.
func TestSPIConfigureMasterMode0(t *testing.T) {
	buf := encSPIConfigureMaster(nil, 0, 1, SPIMode0)
	// module 0 << 5 | rate 1 = 0x01; mode0 -> sampleOnTrailing=false,
	// invertClk=false -> b2 = boolBit(!false,2) = 2.
	hexEqual(t, buf, 0x10, 0x01, 0x02)
}

func TestSPIClose(t *testing.T) {
	buf := encSPIClose(nil, 1)
	hexEqual(t, buf, 0x10, 1<<5, 0x00)
}

func TestI2CConfigureAndClose(t *testing.T) {
	buf := encI2CConfigureMaster(nil, 0, false, 2)
	hexEqual(t, buf, 0x13, (2<<5)|0)

	buf = encI2CClose(nil, 1)
	hexEqual(t, buf, 0x13, 0x01)
}

func TestINCAPConfigureDoubleIsAConfigBitNotAnId(t *testing.T) {
	// double precision is encoded purely as a flag on the shared
	// incapNum numbering space (see capability.go's single INCAP pool).
	single := encINCAPConfigure(nil, 2, false, 1, 3)
	double := encINCAPConfigure(nil, 2, true, 1, 3)
	if single[1] != double[1] {
		t.Fatalf("incapNum byte must match regardless of precision: %X vs %X", single[1], double[1])
	}
	if single[2]&0x80 != 0 {
		t.Fatalf("single-precision must not set the double bit: %X", single[2])
	}
	if double[2]&0x80 == 0 {
		t.Fatalf("double-precision must set the double bit: %X", double[2])
	}
}
