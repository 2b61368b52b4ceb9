// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

// Sequencer is the board's single motion/waveform sequencer module: a
// small queue of timed cue frames the firmware replays autonomously once
// started, freeing the host from tight per-pulse timing (§4.1, §4.4).
type Sequencer struct {
	session *Session
	num     int
	state   *sequencerState
}

// OpenSequencer allocates the sequencer module and configures it with the
// channel layout described by config (one byte per channel per §4.1's
// SEQUENCER_CONFIGURE channel-descriptor list).
func (s *Session) OpenSequencer(config []byte) (*Sequencer, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	results, err := s.resources.alloc(request{kind: KindSequencer})
	if err != nil {
		return nil, err
	}
	num := results[0].id
	st := newSequencerState()
	sq := &Sequencer{session: s, num: num, state: st}

	s.bus.subscribe(KindSequencer, num, func(e event) {
		switch p := e.payload.(type) {
		case sequencerEventEv:
			st.onEvent(p.typ, p.extra)
		case connectionLostEv:
			st.onEvent(SeqEvClosed, 0)
		case softResetEv:
			st.onEvent(SeqEvClosed, 0)
		}
	})

	if err := s.out.send(func(b []byte) []byte { return encSequencerConfigure(b, config) }); err != nil {
		s.bus.unsubscribe(KindSequencer, num)
		s.resources.free(KindSequencer, num)
		return nil, err
	}
	return sq, nil
}

// Push enqueues one cue frame with the given duration (in the sequencer's
// tick units), blocking callers should check IsStalled before calling when
// they want to avoid silently discarded cues (§4.1 SEQUENCER_PUSH, §9).
func (sq *Sequencer) Push(duration uint16, cue []byte) error {
	return sq.session.out.send(func(b []byte) []byte { return encSequencerPush(b, duration, cue) })
}

// Start begins autonomous replay of the queued cues.
func (sq *Sequencer) Start() error {
	return sq.session.out.send(func(b []byte) []byte { return encSequencerControl(b, SeqStart, nil) })
}

// Pause suspends replay without discarding the queue.
func (sq *Sequencer) Pause() error {
	return sq.session.out.send(func(b []byte) []byte { return encSequencerControl(b, SeqPause, nil) })
}

// Stop halts replay and discards the queue.
func (sq *Sequencer) Stop() error {
	return sq.session.out.send(func(b []byte) []byte { return encSequencerControl(b, SeqStop, nil) })
}

// ManualAdvance immediately applies one cue frame outside the timed replay
// loop, e.g. to set an initial position before Start (§4.1 manual mode).
func (sq *Sequencer) ManualAdvance(cue []byte) error {
	return sq.session.out.send(func(b []byte) []byte { return encSequencerControl(b, SeqManualStart, cue) })
}

// ManualStop leaves manual mode, the counterpart to ManualAdvance (§4.1's
// manual_stop action).
func (sq *Sequencer) ManualStop() error {
	return sq.session.out.send(func(b []byte) []byte { return encSequencerControl(b, SeqManualStop, nil) })
}

// IsStalled reports whether the firmware's cue queue ran dry since the last
// NextCue event (§9's design note on surfacing backpressure rather than
// silently dropping cues).
func (sq *Sequencer) IsStalled() bool {
	sq.state.mu.Lock()
	defer sq.state.mu.Unlock()
	return sq.state.stalled
}

// Close tears the sequencer module down and releases it.
func (sq *Sequencer) Close() error {
	s := sq.session
	s.bus.unsubscribe(KindSequencer, sq.num)
	err := s.out.send(encSequencerClose)
	s.resources.free(KindSequencer, sq.num)
	return err
}
