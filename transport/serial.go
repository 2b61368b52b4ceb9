// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package transport

import (
	"context"
	"os"

	"golang.org/x/sys/unix"

	"github.com/hannesa2/ioio/ioio"
)

var _ ioio.Transport = (*Serial)(nil)

// Serial is an ioio.Transport over a POSIX character device: a Bluetooth
// RFCOMM binding (/dev/rfcommN) or a USB-CDC serial port. Unlike TCP and
// the USB accessory transport, the peer owns the link's lifetime here, so
// CanClose reports false and the session sends SOFT_CLOSE on the wire
// instead of tearing the descriptor down itself.
type Serial struct {
	path     string
	baudRate uint32
	f        *os.File
}

// NewSerial returns a transport over the device node at path, configured to
// baudRate (one of the standard POSIX rates: 9600, 19200, 38400, 57600,
// 115200, ...) in raw 8N1 mode.
func NewSerial(path string, baudRate uint32) *Serial {
	return &Serial{path: path, baudRate: baudRate}
}

func (s *Serial) Connect(ctx context.Context) error {
	return connectWithContext(ctx, s.connect)
}

func (s *Serial) connect() error {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_NOCTTY, 0)
	if err != nil {
		return wrapDial("serial", err)
	}
	if err := configureRaw(int(f.Fd()), s.baudRate); err != nil {
		f.Close()
		return wrapDial("serial", err)
	}
	s.f = f
	return nil
}

// configureRaw puts fd into non-canonical, no-echo, 8N1 raw mode at rate,
// the termios incantation every POSIX serial driver needs and no two
// standard libraries agree on how to spell (§A: no suitable higher-level
// library in the dependency set covers termios directly).
func configureRaw(fd int, rate uint32) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	cflag, ok := baudConstant(rate)
	if !ok {
		return wrapErrBadBaud(rate)
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cflag &^= unix.CBAUD
	t.Cflag |= cflag
	t.Ispeed = cflag
	t.Ospeed = cflag
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

func baudConstant(rate uint32) (uint32, bool) {
	switch rate {
	case 9600:
		return unix.B9600, true
	case 19200:
		return unix.B19200, true
	case 38400:
		return unix.B38400, true
	case 57600:
		return unix.B57600, true
	case 115200:
		return unix.B115200, true
	case 230400:
		return unix.B230400, true
	default:
		return 0, false
	}
}

func wrapErrBadBaud(rate uint32) error {
	return &dialError{carrier: "serial", err: unsupportedBaud(rate)}
}

type unsupportedBaud uint32

func (u unsupportedBaud) Error() string { return "unsupported baud rate" }

func (s *Serial) Read(p []byte) (int, error)  { return s.f.Read(p) }
func (s *Serial) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *Serial) Close() error                { return s.f.Close() }

// CanClose is false: the peer (phone, Bluetooth stack) is the other end of
// a link the host did not open in the usual sense and should not sever
// unilaterally.
func (s *Serial) CanClose() bool { return false }
