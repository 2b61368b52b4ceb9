// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ioio

import "sync"

// resourceManager allocates and frees (kind, id) descriptors against a
// board's capability table (§4.4). alloc is atomic across a whole
// request: on failure nothing from that call is allocated.
type resourceManager struct {
	mu   sync.Mutex
	caps *Capabilities

	pinUsed []bool
	pool    map[Kind][]bool // pooled-kind id -> in use
	twiUsed map[int]bool
}

func newResourceManager(caps *Capabilities) *resourceManager {
	rm := &resourceManager{
		caps:    caps,
		pinUsed: make([]bool, caps.PinCount),
		pool:    make(map[Kind][]bool),
		twiUsed: make(map[int]bool),
	}
	for kind, n := range caps.PoolSizes {
		rm.pool[kind] = make([]bool, n)
	}
	return rm
}

// request describes one descriptor to allocate. For PIN and TWI, ID is the
// caller's choice; for pooled kinds ID is ignored and the lowest free id is
// assigned.
type request struct {
	kind Kind
	id   int // ignored for pooled kinds
}

// allocResult carries back the resolved descriptor(s), in request order.
type allocResult struct {
	kind Kind
	id   int
}

// alloc attempts to satisfy every request atomically: if any fails, none of
// them take effect, and the first failure's error is returned.
func (rm *resourceManager) alloc(reqs ...request) ([]allocResult, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	results := make([]allocResult, len(reqs))
	// Stage into a scratch copy of the bitsets so partial success never
	// leaks: compute every id first, then commit.
	pinUsed := append([]bool(nil), rm.pinUsed...)
	pool := make(map[Kind][]bool, len(rm.pool))
	for k, v := range rm.pool {
		pool[k] = append([]bool(nil), v...)
	}
	twiUsed := make(map[int]bool, len(rm.twiUsed))
	for k, v := range rm.twiUsed {
		twiUsed[k] = v
	}

	for i, r := range reqs {
		switch r.kind {
		case KindPin:
			if r.id < 0 || r.id >= len(pinUsed) {
				return nil, wrapErr(ErrOutOfResource, "ioio: pin %d out of range", r.id)
			}
			if pinUsed[r.id] {
				return nil, wrapErr(ErrOutOfResource, "ioio: pin %d already in use", r.id)
			}
			pinUsed[r.id] = true
			results[i] = allocResult{kind: r.kind, id: r.id}
		case KindTWI:
			if _, ok := rm.caps.Twi(r.id); !ok {
				return nil, wrapErr(ErrIllegalArgument, "ioio: no such TWI module %d", r.id)
			}
			if twiUsed[r.id] {
				return nil, wrapErr(ErrOutOfResource, "ioio: TWI module %d already in use", r.id)
			}
			twiUsed[r.id] = true
			results[i] = allocResult{kind: r.kind, id: r.id}
		default:
			bs := pool[r.kind]
			if bs == nil {
				return nil, wrapErr(ErrIllegalArgument, "ioio: unpooled kind %v", r.kind)
			}
			id := -1
			for j, used := range bs {
				if !used {
					id = j
					break
				}
			}
			if id < 0 {
				return nil, wrapErr(ErrOutOfResource, "ioio: %v pool exhausted", r.kind)
			}
			bs[id] = true
			results[i] = allocResult{kind: r.kind, id: id}
		}
	}

	// Commit.
	rm.pinUsed = pinUsed
	rm.pool = pool
	rm.twiUsed = twiUsed
	return results, nil
}

// free releases one descriptor back to the pool.
func (rm *resourceManager) free(kind Kind, id int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	switch kind {
	case KindPin:
		if id >= 0 && id < len(rm.pinUsed) {
			rm.pinUsed[id] = false
		}
	case KindTWI:
		delete(rm.twiUsed, id)
	default:
		if bs := rm.pool[kind]; bs != nil && id >= 0 && id < len(bs) {
			bs[id] = false
		}
	}
}

// freeAll clears every allocation, used by soft_reset (§4.5, §9): every
// open resource is implicitly closed and its descriptor returned to the
// pool before waiters are signalled.
func (rm *resourceManager) freeAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for i := range rm.pinUsed {
		rm.pinUsed[i] = false
	}
	for k, bs := range rm.pool {
		rm.pool[k] = make([]bool, len(bs))
	}
	rm.twiUsed = make(map[int]bool)
}
