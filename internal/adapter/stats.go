// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package adapter

import (
	"sync"
	"time"
)

// CommunicationStats tracks transport-level outcomes across every
// attempt of every operation (spec.md §3, §4.B, §8 scenario 5).
type CommunicationStats struct {
	Total           uint64
	Successful      uint64
	Failed          uint64
	Retries         uint64
	AvgResponseTime time.Duration
}

type statsTracker struct {
	mu    sync.Mutex
	stats CommunicationStats
}

// recordAttempt folds one attempt's outcome into the running statistics.
// attemptIndex is 1 for the first attempt of an operation; every
// subsequent attempt increments Retries.
func (t *statsTracker) recordAttempt(attemptIndex int, success bool, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Total++
	if success {
		t.stats.Successful++
	} else {
		t.stats.Failed++
	}
	if attemptIndex > 1 {
		t.stats.Retries++
	}

	// Simple pairwise average, matching the source's monitoring-grade
	// running mean (spec.md §9) rather than a precise cumulative mean.
	if t.stats.Total == 1 {
		t.stats.AvgResponseTime = elapsed
	} else {
		t.stats.AvgResponseTime = (t.stats.AvgResponseTime + elapsed) / 2
	}
}

// Snapshot returns a copy of the current statistics.
func (t *statsTracker) Snapshot() CommunicationStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Reset zeroes the statistics.
func (t *statsTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = CommunicationStats{}
}
