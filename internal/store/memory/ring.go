// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package memory implements the bounded, per-register in-memory
// sample ring (spec.md §4.F).
package memory

import (
	"sync"

	"github.com/ecowatt/acquisition/internal/sample"
)

const defaultCapacity = 1000

// Stats reports the ring store's current footprint.
type Stats struct {
	RegisterCount int
	TotalSamples  int
}

// Store is a mutex-guarded, per-address bounded ring of samples.
type Store struct {
	mu       sync.Mutex
	capacity int
	rings    map[uint16][]sample.Sample
}

// New returns a Store capped at capacity samples per register. A
// non-positive capacity falls back to the 1000-sample default
// (spec.md §4.F).
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Store{capacity: capacity, rings: make(map[uint16][]sample.Sample)}
}

// Store appends one sample to its register's ring, evicting the
// oldest entry if the ring is at capacity.
func (s *Store) Store(smp sample.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(smp)
}

// StoreBatch appends several samples under a single critical section.
func (s *Store) StoreBatch(samples []sample.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, smp := range samples {
		s.append(smp)
	}
}

func (s *Store) append(smp sample.Sample) {
	ring := s.rings[smp.Address]
	ring = append(ring, smp)
	if len(ring) > s.capacity {
		ring = ring[len(ring)-s.capacity:]
	}
	s.rings[smp.Address] = ring
}

// Get returns the newest n samples for addr, newest-first. n <= 0
// returns every retained sample for addr.
func (s *Store) Get(addr uint16, n int) []sample.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring := s.rings[addr]
	if n <= 0 || n > len(ring) {
		n = len(ring)
	}

	out := make([]sample.Sample, n)
	for i := 0; i < n; i++ {
		out[i] = ring[len(ring)-1-i]
	}
	return out
}

// GetRange returns every retained sample for addr with a timestamp in
// [from, to], newest-first.
func (s *Store) GetRange(addr uint16, fromUnix, toUnix int64) []sample.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring := s.rings[addr]
	var out []sample.Sample
	for i := len(ring) - 1; i >= 0; i-- {
		t := ring[i].Timestamp.Unix()
		if t >= fromUnix && t <= toUnix {
			out = append(out, ring[i])
		}
	}
	return out
}

// Latest returns the most recent sample for addr, if any.
func (s *Store) Latest(addr uint16) (sample.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring := s.rings[addr]
	if len(ring) == 0 {
		return sample.Sample{}, false
	}
	return ring[len(ring)-1], true
}

// LatestAll returns the most recent sample for every register with at
// least one retained sample.
func (s *Store) LatestAll() []sample.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]sample.Sample, 0, len(s.rings))
	for _, ring := range s.rings {
		if len(ring) > 0 {
			out = append(out, ring[len(ring)-1])
		}
	}
	return out
}

// Clear discards every retained sample for addr.
func (s *Store) Clear(addr uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rings, addr)
}

// ClearAll discards every retained sample for every register (spec.md
// §4.F's "clear(addr|all)" operation).
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rings = make(map[uint16][]sample.Sample)
}

// Stats reports the current register and sample counts.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, ring := range s.rings {
		total += len(ring)
	}
	return Stats{RegisterCount: len(s.rings), TotalSamples: total}
}
