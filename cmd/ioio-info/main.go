// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ioio-info connects to an IOIO board and prints its handshake metadata and
// capability table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/hannesa2/ioio/ioio"
	"github.com/hannesa2/ioio/transport"
)

func mainImpl() error {
	verbose := flag.Bool("v", false, "verbose mode")
	addr := flag.String("tcp", "", "connect over TCP to host:port instead of a serial device")
	dev := flag.String("serial", "", "connect over a POSIX serial device (e.g. /dev/rfcomm0)")
	baud := flag.Uint("baud", 115200, "baud rate for -serial")
	timeout := flag.Duration("timeout", 10*time.Second, "handshake timeout")
	flag.Parse()

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "ioio: ", log.Lmicroseconds)
	}
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
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
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := session.WaitForConnect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer session.Disconnect()

	info := session.BoardInfo()
	caps := session.Capabilities()
	fmt.Printf("State:        %s\n", session.State())
	fmt.Printf("Hardware ID:  %s\n", info.HardwareID)
	fmt.Printf("Bootloader:   %s\n", info.BootloaderID)
	fmt.Printf("Firmware:     %s\n", info.FirmwareID)
	fmt.Printf("Model:        %s\n", caps.Model)
	fmt.Printf("Pins:         %d\n", caps.PinCount)
	fmt.Printf("TWI modules:  %d\n", len(caps.TwiModules))
	for n, pins := range caps.TwiModules {
		fmt.Printf("  #%d: SDA=%d SCL=%d\n", n, pins.SDA, pins.SCL)
	}
	if caps.Icsp != nil {
		fmt.Printf("ICSP:         PGC=%d PGD=%d MCLR=%d\n", caps.Icsp.PGC, caps.Icsp.PGD, caps.Icsp.MCLR)
	}
	for _, kind := range []struct {
		name string
		n    int
	}{
		{"PWM channels", caps.PoolSizes[ioio.KindOutCompare]},
		{"UART modules", caps.PoolSizes[ioio.KindUART]},
		{"SPI modules", caps.PoolSizes[ioio.KindSPI]},
	} {
		fmt.Printf("%-14s%d\n", kind.name+":", kind.n)
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "ioio-info: %s.\n", err)
		os.Exit(1)
	}
}
