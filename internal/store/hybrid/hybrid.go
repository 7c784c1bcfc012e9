// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package hybrid combines the bounded memory ring and the durable
// store behind one facade, with a background retention sweeper
// (spec.md §4.H).
package hybrid

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ecowatt/acquisition/internal/sample"
	"github.com/ecowatt/acquisition/internal/store/durable"
	"github.com/ecowatt/acquisition/internal/store/memory"
)

const (
	defaultSweepInterval = 24 * time.Hour
	errorBackoff         = 30 * time.Minute
)

// Config controls the durable tier and the retention sweeper
// (spec.md §4.H).
type Config struct {
	// Retain is how long samples are kept in the durable backend
	// before the sweeper removes them; a non-positive Retain disables
	// the sweeper's cleanup entirely.
	Retain time.Duration
	// SweepInterval is how often the sweeper wakes to run cleanup.
	// Non-positive falls back to a 24-hour default.
	SweepInterval time.Duration
	// EnableDurable controls whether Store writes to the durable
	// backend at all (storage.enable_persistent_storage). When false,
	// durable reads/writes are skipped even if a backend is set.
	EnableDurable bool
}

// Store combines the memory ring and a durable backend. Every sample
// is written to memory; durable writes happen only when the durable
// tier is enabled. Reads prefer memory and fall back to durable.
type Store struct {
	mem     *memory.Store
	durable durable.Store
	cfg     Config

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a hybrid store. durableStore may be nil when cfg.EnableDurable
// is false — the caller is not required to construct a backend it will
// never use.
func New(mem *memory.Store, durableStore durable.Store, cfg Config) *Store {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	return &Store{mem: mem, durable: durableStore, cfg: cfg}
}

func (s *Store) durableEnabled() bool {
	return s.cfg.EnableDurable && s.durable != nil
}

// Store writes one sample to the memory tier unconditionally, and to
// the durable tier when enabled. A durable write failure is logged,
// not returned — the memory tier remains authoritative for recent
// reads even if the disk write fails (spec.md §4.H).
func (s *Store) Store(smp sample.Sample) {
	s.mem.Store(smp)
	if !s.durableEnabled() {
		return
	}
	if err := s.durable.Store(smp); err != nil {
		slog.Error("durable store write failed", "address", smp.Address, "err", err)
	}
}

// Recent returns the newest n samples for addr from the memory tier.
func (s *Store) Recent(addr uint16, n int) []sample.Sample {
	return s.mem.Get(addr, n)
}

// errDurableDisabled reports an attempt to reach the durable tier
// while it is disabled or unconfigured.
var errDurableDisabled = errors.New("durable storage is disabled")

// Historical returns every sample for addr in [fromUnix, toUnix] from
// the durable tier.
func (s *Store) Historical(addr uint16, fromUnix, toUnix int64) ([]sample.Sample, error) {
	if !s.durableEnabled() {
		return nil, errDurableDisabled
	}
	return s.durable.GetRange(addr, fromUnix, toUnix)
}

// Latest returns the most recent sample for addr, preferring the
// memory tier and falling back to the durable tier if memory has
// nothing retained for addr and the durable tier is enabled.
func (s *Store) Latest(addr uint16) (sample.Sample, bool) {
	if smp, ok := s.mem.Latest(addr); ok {
		return smp, true
	}
	if !s.durableEnabled() {
		return sample.Sample{}, false
	}
	got, err := s.durable.Get(addr, 1)
	if err != nil || len(got) == 0 {
		return sample.Sample{}, false
	}
	return got[0], true
}

// LatestAll returns the most recent sample for every register
// retained in the memory tier.
func (s *Store) LatestAll() []sample.Sample {
	return s.mem.LatestAll()
}

// ExportCSV renders samples for addr in [fromUnix, toUnix] as CSV,
// from the durable tier, writing the result to path when non-empty.
func (s *Store) ExportCSV(path string, addr uint16, fromUnix, toUnix int64) (string, error) {
	if !s.durableEnabled() {
		return "", errDurableDisabled
	}
	return s.durable.ExportCSV(path, addr, fromUnix, toUnix)
}

// ExportJSON renders samples for addr in [fromUnix, toUnix] as JSON,
// from the durable tier, writing the result to path when non-empty.
func (s *Store) ExportJSON(path string, addr uint16, fromUnix, toUnix int64) (string, error) {
	if !s.durableEnabled() {
		return "", errDurableDisabled
	}
	return s.durable.ExportJSON(path, addr, fromUnix, toUnix)
}

// StartSweeper begins the background retention sweeper: it removes
// durable-tier samples older than cfg.Retain on cfg.SweepInterval,
// backing off to 30 minutes after a cleanup error. A no-op when the
// durable tier is disabled.
func (s *Store) StartSweeper() {
	if !s.durableEnabled() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.sweep(ctx)
}

// StopSweeper cancels the sweeper and waits for it to exit.
func (s *Store) StopSweeper() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Store) sweep(ctx context.Context) {
	defer close(s.done)

	interval := s.cfg.SweepInterval
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		if s.cfg.Retain <= 0 {
			continue
		}

		cutoff := time.Now().Add(-s.cfg.Retain).Unix()
		removed, err := s.durable.Cleanup(cutoff)
		if err != nil {
			slog.Error("retention sweeper cleanup failed", "err", err)
			interval = errorBackoff
			continue
		}

		slog.Debug("retention sweeper cleanup completed", "removed", removed)
		interval = s.cfg.SweepInterval
	}
}

// Close releases the durable backend's resources, if any.
func (s *Store) Close() error {
	if s.durable == nil {
		return nil
	}
	return s.durable.Close()
}
