// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import "sync"

// event is a decoded incoming message routed to whichever per-resource
// state owns (Kind, ID). Payload holds the opcode-specific decoded fields;
// each handler knows its own shape.
type event struct {
	kind    Kind
	id      int
	payload any
}

// handlerFunc reacts to one event. Per §4.6 a handler MUST be non-blocking:
// it updates state and signals condition variables, it never waits.
type handlerFunc func(event)

// eventBus is the central, back-reference-free listener registry called for
// in §9: facades subscribe/unsubscribe against (kind, id) and the
// dispatcher holds no pointers back into facade objects, only this map.
type eventBus struct {
	mu       sync.RWMutex
	handlers map[resourceKey]handlerFunc
}

func newEventBus() *eventBus {
	return &eventBus{handlers: make(map[resourceKey]handlerFunc)}
}

func (b *eventBus) subscribe(kind Kind, id int, h handlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[resourceKey{kind, id}] = h
}

func (b *eventBus) unsubscribe(kind Kind, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, resourceKey{kind, id})
}

// dispatch routes one event to its subscriber, if any. Unrouted events
// (e.g. a status report for a resource nobody opened yet) are silently
// dropped rather than treated as an error.
func (b *eventBus) dispatch(e event) {
	b.mu.RLock()
	h := b.handlers[resourceKey{e.kind, e.id}]
	b.mu.RUnlock()
	if h != nil {
		h(e)
	}
}

// broadcast delivers ev to every current subscriber, used for connection
// lifecycle events (connection-lost, soft-reset) that every open resource
// must observe regardless of which (kind,id) it owns.
func (b *eventBus) broadcast(ev event) {
	b.mu.RLock()
	hs := make([]handlerFunc, 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.RUnlock()
	for _, h := range hs {
		h(ev)
	}
}

// clear drops every subscription without notifying anyone; used once a
// broadcast of connection-lost/soft-reset has already been delivered.
func (b *eventBus) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[resourceKey]handlerFunc)
}
