package ioio

import (
	"context"
	"io"
	"testing"
	"time"
)

// connectedSessionPipe brings a session up to CONNECTED over a pipe,
// returning the session and the server side of the pipe for the test to
// play device firmware.
func connectedSessionPipe(t *testing.T) (*Session, *pipeServer) {
	t.Helper()
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
	return s, &pipeServer{t: t, conn: server}
}

type pipeServer struct {
	t    *testing.T
	conn interface {
		Read([]byte) (int, error)
		Write([]byte) (int, error)
	}
}

func (p *pipeServer) readN(n int) []byte {
	p.t.Helper()
	buf := make([]byte, n)
	total := 0
	for total < n {
		m, err := p.conn.Read(buf[total:])
		total += m
		if err != nil {
			p.t.Fatalf("read: %v", err)
		}
	}
	return buf
}

func (p *pipeServer) write(b ...byte) {
	p.t.Helper()
	if _, err := p.conn.Write(b); err != nil {
		p.t.Fatalf("write: %v", err)
	}
}

// TestDigitalOutputEndToEnd drives §8 scenario 1 through the real facade:
// opening pin 13 low, writing HIGH then LOW, and closing it must produce
// exactly the scenario's wire bytes.
func TestDigitalOutputEndToEnd(t *testing.T) {
	s, server := connectedSessionPipe(t)

	done := make(chan []byte, 1)
	go func() { done <- server.readN(8) }()

	out, err := s.OpenDigitalOutput(13, false, false)
	if err != nil {
		t.Fatalf("OpenDigitalOutput: %v", err)
	}
	if err := out.Write(true); err != nil {
		t.Fatalf("Write(true): %v", err)
	}
	if err := out.Write(false); err != nil {
		t.Fatalf("Write(false): %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case got := <-done:
		hexEqual(t, got, 0x03, 0x34, 0x04, 0x35, 0x04, 0x34, 0x05, 0x34)
	case <-time.After(2 * time.Second):
		t.Fatal("device never received the expected bytes")
	}
}

// TestAnalogInputEndToEnd drives §8 scenario 2 through the real facade:
// opening pin 31 emits the configure bytes, and a later sampled status
// report is visible through Read.
func TestAnalogInputEndToEnd(t *testing.T) {
	s, server := connectedSessionPipe(t)

	done := make(chan []byte, 1)
	go func() { done <- server.readN(4) }()

	a, err := s.OpenAnalogInput(31)
	if err != nil {
		t.Fatalf("OpenAnalogInput: %v", err)
	}

	select {
	case got := <-done:
		hexEqual(t, got, 0x0B, 0x1F, 0x0C, 0x9F)
	case <-time.After(2 * time.Second):
		t.Fatal("device never received the expected bytes")
	}

	// Announce pin 31 as tracked, then deliver one packed status frame
	// with 10-bit value 0x2F3 (low 2 bits 3, high 8 bits 0xBC).
	server.write(evReportAnalogInFormat, 0x01, 0x1F)
	server.write(evReportAnalogInStatus, 0x03, 0xBC)

	deadline := time.After(2 * time.Second)
	for a.Read() != 0x2F3 {
		select {
		case <-deadline:
			t.Fatalf("got %d, want 0x2F3 within bounded time", a.Read())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// TestAnalogInputRejectsNonAnalogPin covers §4.4's capability check.
func TestAnalogInputRejectsNonAnalogPin(t *testing.T) {
	s, _ := connectedSessionPipe(t)
	if _, err := s.OpenAnalogInput(0); err == nil {
		t.Fatal("want an error opening a non-analog-capable pin as analog input")
	}
}

// TestDigitalPinDoubleOpenFails covers the "at most one live owner" pin
// invariant.
func TestDigitalPinDoubleOpenFails(t *testing.T) {
	s, server := connectedSessionPipe(t)
	// net.Pipe is unbuffered: drain the device side so sends don't block.
	go io.Copy(io.Discard, server.conn)
	out, err := s.OpenDigitalOutput(13, false, false)
	if err != nil {
		t.Fatalf("OpenDigitalOutput: %v", err)
	}
	defer out.Close()

	if _, err := s.OpenDigitalOutput(13, false, false); err == nil {
		t.Fatal("want an error opening an already-open pin")
	}
}
