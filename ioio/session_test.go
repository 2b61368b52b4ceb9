package ioio

import (
	"context"
	"net"
	"testing"
	"time"
)

// pipeTransport adapts one end of a net.Pipe to the Transport interface,
// standing in for a real USB/serial/TCP carrier in these tests.
type pipeTransport struct {
	net.Conn
}

func (p pipeTransport) Connect(ctx context.Context) error { return nil }
func (p pipeTransport) CanClose() bool                    { return true }

func newSessionPipe(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	s := NewSession(pipeTransport{client})
	t.Cleanup(func() { server.Close(); client.Close() })
	return s, server
}

// writeEstablishConnection writes one ESTABLISH_CONNECTION frame to conn.
// Run from a background goroutine in each test, so errors are returned
// rather than failing the test directly (t.Fatal is only valid from the
// test's own goroutine).
func writeEstablishConnection(conn net.Conn, hw, bl, fw string) error {
	buf := []byte{evEstablishConnection, 'I', 'O', 'I', 'O'}
	buf = append(buf, []byte(hw)...)
	buf = append(buf, []byte(bl)...)
	buf = append(buf, []byte(fw)...)
	_, err := conn.Write(buf)
	return err
}

// readCheckInterfaceAndReply reads the 9-byte CHECK_INTERFACE frame the
// session must send right after a recognised hardware id, and replies with
// CHECK_INTERFACE_RESPONSE(supported).
func readCheckInterfaceAndReply(conn net.Conn, supported bool) error {
	frame := make([]byte, 9)
	if _, err := readFullConn(conn, frame); err != nil {
		return err
	}
	if frame[0] != opCheckInterface {
		return errBadOpcode(frame[0])
	}
	b := byte(0)
	if supported {
		b = 1
	}
	_, err := conn.Write([]byte{evCheckInterfaceResponse, b})
	return err
}

type errBadOpcode byte

func (e errBadOpcode) Error() string { return "unexpected opcode in test fixture" }

func readFullConn(conn net.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func TestWaitForConnectSucceeds(t *testing.T) {
	s, server := newSessionPipe(t)

	go func() {
		_ = writeEstablishConnection(server, "IOIO0300", "bootldr1", "firmware")
		_ = readCheckInterfaceAndReply(server, true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.WaitForConnect(ctx); err != nil {
		t.Fatalf("WaitForConnect: %v", err)
	}
	if got := s.State(); got != StateConnected {
		t.Fatalf("got state %v, want CONNECTED", got)
	}
	if got := s.Capabilities().Model; got != "IOIO0300" {
		t.Fatalf("got model %q, want IOIO0300", got)
	}
}

func TestWaitForConnectUnknownHardwareID(t *testing.T) {
	s, server := newSessionPipe(t)

	go func() { _ = writeEstablishConnection(server, "BOGUS999", "bootldr1", "firmware") }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.WaitForConnect(ctx)
	if err == nil {
		t.Fatal("want an error for an unrecognised hardware id")
	}
	if got := s.State(); got != StateIncompatible {
		t.Fatalf("got state %v, want INCOMPATIBLE", got)
	}
}

func TestWaitForConnectUnsupportedInterface(t *testing.T) {
	s, server := newSessionPipe(t)

	go func() {
		_ = writeEstablishConnection(server, "IOIO0300", "bootldr1", "firmware")
		_ = readCheckInterfaceAndReply(server, false)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.WaitForConnect(ctx)
	if err == nil {
		t.Fatal("want an error when the firmware rejects the interface id")
	}
	if got := s.State(); got != StateIncompatible {
		t.Fatalf("got state %v, want INCOMPATIBLE", got)
	}
}

func TestOperationsRejectedBeforeConnect(t *testing.T) {
	s, _ := newSessionPipe(t)
	if err := s.SoftReset(); err == nil {
		t.Fatal("want illegal-state SoftReset before connect")
	}
	if err := s.Sync(context.Background()); err == nil {
		t.Fatal("want illegal-state Sync before connect")
	}
}

// TestDisconnectWhileBlocked covers §8 scenario 6 at the bus level: tearing
// down the transport broadcasts connection-lost to a subscriber on pin 5
// within bounded time and leaves the session DEAD.
func TestDisconnectWhileBlocked(t *testing.T) {
	s, server := newSessionPipe(t)

	go func() {
		_ = writeEstablishConnection(server, "IOIO0300", "bootldr1", "firmware")
		_ = readCheckInterfaceAndReply(server, true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.WaitForConnect(ctx); err != nil {
		t.Fatalf("WaitForConnect: %v", err)
	}

	done := make(chan connectionLostEv, 1)
	s.bus.subscribe(KindPin, 5, func(e event) {
		if ev, ok := e.payload.(connectionLostEv); ok {
			done <- ev
		}
	})

	server.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection-lost was not broadcast within bounded time")
	}
	if got := s.State(); got != StateDead {
		t.Fatalf("got state %v, want DEAD", got)
	}
}

func TestSoftResetFreesResourcesBeforeWaking(t *testing.T) {
	s, server := newSessionPipe(t)

	go func() {
		_ = writeEstablishConnection(server, "IOIO0300", "bootldr1", "firmware")
		_ = readCheckInterfaceAndReply(server, true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.WaitForConnect(ctx); err != nil {
		t.Fatalf("WaitForConnect: %v", err)
	}

	if _, err := s.resources.alloc(request{kind: KindPin, id: 13}); err != nil {
		t.Fatalf("alloc: %v", err)
	}

	notified := make(chan struct{}, 1)
	s.bus.subscribe(KindPin, 13, func(e event) {
		if _, ok := e.payload.(softResetEv); ok {
			// By the time this handler runs the descriptor must
			// already be free, per §9's "free before signalling".
			if _, err := s.resources.alloc(request{kind: KindPin, id: 13}); err != nil {
				t.Errorf("pin 13 should be free by soft-reset notification time: %v", err)
			}
			notified <- struct{}{}
		}
	})

	s.softResetAll()

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("soft reset was not broadcast within bounded time")
	}
}
