// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ioio-monitor connects to an IOIO board and prints a live, colorized view
// of a set of digital and analog pins, sampled at a fixed poll interval.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hannesa2/ioio/ioio"
	"github.com/hannesa2/ioio/transport"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func parsePinList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var pins []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("bad pin %q: %w", f, err)
		}
		pins = append(pins, n)
	}
	return pins, nil
}

// monitor prints one line per sample, colorizing the value block the way
// the d2xx tree's console screen emulator colorizes LED pixels: a red or
// green block for a digital level, a blue-to-yellow block beside an analog
// reading, easier to scan at a glance.
type monitor struct {
	w     io.Writer
	color bool
}

func newMonitor() *monitor {
	out := colorable.NewColorableStdout()
	return &monitor{w: out, color: isatty.IsTerminal(os.Stdout.Fd())}
}

func (m *monitor) digital(pin int, level bool) {
	if !m.color {
		fmt.Fprintf(m.w, "pin %2d: %v\n", pin, level)
		return
	}
	c := color.NRGBA{R: 200, G: 20, B: 20, A: 255}
	if level {
		c = color.NRGBA{R: 20, G: 200, B: 20, A: 255}
	}
	fmt.Fprintf(m.w, "pin %2d: %s %v\033[0m\n", pin, ansi256.Default.Block(c), level)
}

func (m *monitor) analog(pin int, value uint16) {
	if !m.color {
		fmt.Fprintf(m.w, "ain %2d: %4d\n", pin, value)
		return
	}
	level := byte(value >> 2)
	c := color.NRGBA{R: level, G: level, B: 255 - level, A: 255}
	fmt.Fprintf(m.w, "ain %2d: %s %4d\033[0m\n", pin, ansi256.Default.Block(c), value)
}

func mainImpl() error {
	verbose := flag.Bool("v", false, "verbose mode")
	addr := flag.String("tcp", "", "connect over TCP to host:port instead of a serial device")
	dev := flag.String("serial", "", "connect over a POSIX serial device (e.g. /dev/rfcomm0)")
	baud := flag.Uint("baud", 115200, "baud rate for -serial")
	digitalFlag := flag.String("digital", "", "comma-separated digital input pins to watch")
	analogFlag := flag.String("analog", "", "comma-separated analog input pins to watch")
	interval := flag.Duration("interval", 500*time.Millisecond, "poll interval")
	flag.Parse()

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "ioio: ", log.Lmicroseconds)
	}
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	digitalPins, err := parsePinList(*digitalFlag)
	if err != nil {
		return err
	}
	analogPins, err := parsePinList(*analogFlag)
	if err != nil {
		return err
	}
	if len(digitalPins) == 0 && len(analogPins) == 0 {
		return errors.New("specify -digital and/or -analog")
	}

	var t ioio.Transport
	switch {
	case *addr != "":
		t = transport.NewTCP(*addr)
	case *dev != "":
		t = transport.NewSerial(*dev, uint32(*baud))
	default:
		return errors.New("specify -tcp or -serial")
	}

	session := ioio.NewSession(t, ioio.WithLogger(logger))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := session.WaitForConnect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer session.Disconnect()

	var ins []*ioio.DigitalPin
	for _, p := range digitalPins {
		in, err := session.OpenDigitalInput(p, ioio.PullUp)
		if err != nil {
			return fmt.Errorf("open digital pin %d: %w", p, err)
		}
		defer in.Close()
		ins = append(ins, in)
	}
	var ains []*ioio.AnalogInput
	for _, p := range analogPins {
		a, err := session.OpenAnalogInput(p)
		if err != nil {
			return fmt.Errorf("open analog pin %d: %w", p, err)
		}
		defer a.Close()
		ains = append(ains, a)
	}

	m := newMonitor()
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for range ticker.C {
		if session.State() != ioio.StateConnected {
			return errors.New("connection lost")
		}
		for i, in := range ins {
			m.digital(digitalPins[i], bool(in.Read()))
		}
		for i, a := range ains {
			m.analog(analogPins[i], a.Read())
		}
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "ioio-monitor: %s.\n", err)
		os.Exit(1)
	}
}
