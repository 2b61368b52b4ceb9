// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package transport

import (
	"context"
	"net"
	"time"

	"github.com/hannesa2/ioio/ioio"
)

var _ ioio.Transport = (*TCP)(nil)

// TCP is an ioio.Transport over a plain TCP socket, the carrier the board's
// "IOIO over WiFi" bridge firmwares and the desktop simulator both use.
type TCP struct {
	addr string
	dialTimeout time.Duration
	conn net.Conn
}

// NewTCP returns a transport that dials addr (host:port) on Connect.
func NewTCP(addr string) *TCP {
	return &TCP{addr: addr, dialTimeout: 10 * time.Second}
}

func (t *TCP) Connect(ctx context.Context) error {
	d := net.Dialer{Timeout: t.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return wrapDial("tcp", err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	t.conn = conn
	return nil
}

func (t *TCP) Read(p []byte) (int, error)  { return t.conn.Read(p) }
func (t *TCP) Write(p []byte) (int, error) { return t.conn.Write(p) }
func (t *TCP) Close() error                { return t.conn.Close() }

// CanClose is true: a TCP socket is fully under host control.
func (t *TCP) CanClose() bool { return true }
