package ioio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDigitalInputWaitForValue(t *testing.T) {
	d := newDigitalInputState()
	done := make(chan error, 1)
	go func() { done <- d.waitForValue(context.Background(), true) }()

	// Give the waiter a chance to block before the matching report
	// arrives (best-effort; onReport's Broadcast would simply be missed
	// by a waiter not yet parked, which waitForValue's blocking loop
	// handles by rechecking after acquiring the lock).
	time.Sleep(10 * time.Millisecond)
	d.onReport(false)
	d.onReport(true)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("waitForValue: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waitForValue did not return within bounded time")
	}
}

// TestDigitalInputWaitForValueWakesOnClose covers §8 scenario 6 at the
// per-resource level: a blocked waiter returns connection-lost once the
// resource is marked closed, rather than hanging forever.
func TestDigitalInputWaitForValueWakesOnClose(t *testing.T) {
	d := newDigitalInputState()
	done := make(chan error, 1)
	go func() { done <- d.waitForValue(context.Background(), true) }()

	time.Sleep(10 * time.Millisecond)
	d.onClosed(ErrConnectionLost)

	select {
	case err := <-done:
		if err != ErrConnectionLost {
			t.Fatalf("got %v, want ErrConnectionLost", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waitForValue did not wake on close within bounded time")
	}
}

func TestStreamStateReserveBoundedByBufferSize(t *testing.T) {
	s := newStreamState(4)
	if err := s.reserve(context.Background(), 4); err != nil {
		t.Fatalf("reserve(4): %v", err)
	}

	blocked := make(chan error, 1)
	go func() { blocked <- s.reserve(context.Background(), 1) }()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-blocked:
		t.Fatal("reserve should still be blocked: buffer is full")
	default:
	}

	s.onTxStatus(3) // firmware reports 3 bytes still outstanding, 1 free
	select {
	case err := <-blocked:
		if err != nil {
			t.Fatalf("reserve(1): %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reserve did not unblock after TX status freed credit")
	}
}

// TestStreamStateFIFOOrdering covers §8's universal invariant: the nth
// response is delivered to the nth pending request.
func TestStreamStateFIFOOrdering(t *testing.T) {
	s := newStreamState(64)
	first := s.pushPending()
	second := s.pushPending()

	s.completeHead(streamResult{data: []byte{1}})
	s.completeHead(streamResult{data: []byte{2}})

	select {
	case r := <-first.result:
		if len(r.data) != 1 || r.data[0] != 1 {
			t.Fatalf("first request got %v, want [1]", r.data)
		}
	default:
		t.Fatal("first request has no result")
	}
	select {
	case r := <-second.result:
		if len(r.data) != 1 || r.data[0] != 2 {
			t.Fatalf("second request got %v, want [2]", r.data)
		}
	default:
		t.Fatal("second request has no result")
	}
}

func TestStreamStateOnClosedFailsPendingRequests(t *testing.T) {
	s := newStreamState(64)
	pr := s.pushPending()
	s.onClosed(nil)

	select {
	case r := <-pr.result:
		if r.err != ErrConnectionLost {
			t.Fatalf("got err %v, want ErrConnectionLost", r.err)
		}
	default:
		t.Fatal("pending request was not failed on close")
	}
}

// TestStreamStateReserveCancelledByContext covers the context.Context
// substitute for a raw thread interrupt at a back-pressured TX wait point.
func TestStreamStateReserveCancelledByContext(t *testing.T) {
	s := newStreamState(4)
	if err := s.reserve(context.Background(), 4); err != nil {
		t.Fatalf("reserve(4): %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	blocked := make(chan error, 1)
	go func() { blocked <- s.reserve(ctx, 1) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-blocked:
		if !errors.Is(err, ErrInterrupted) {
			t.Fatalf("got %v, want ErrInterrupted", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reserve did not wake on context cancellation within bounded time")
	}
}
