// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package scheduler runs the background polling loop that turns
// catalogued registers into published samples (spec.md §4.E).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ecowatt/acquisition/internal/catalogue"
	"github.com/ecowatt/acquisition/internal/sample"
)

// Reader is the subset of the protocol adapter the scheduler depends
// on (spec.md §3: "The scheduler holds a shared, immutable snapshot of
// the adapter").
type Reader interface {
	ReadRegisters(ctx context.Context, start uint16, count uint16) ([]uint16, error)
	WriteRegister(ctx context.Context, addr uint16, value uint16) (bool, error)
}

// State is the scheduler's lifecycle state (spec.md §4.E).
type State int

const (
	Idle State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Stats mirrors spec.md §3's AcquisitionStats.
type Stats struct {
	TotalPolls      uint64
	SuccessfulPolls uint64
	FailedPolls     uint64
	LastPollTime    time.Time
	LastError       string
}

// Config controls the polling cycle.
type Config struct {
	PollingInterval    time.Duration
	MinimumRegisters   []uint16
	BufferCapacity     int // default 10000, per spec.md §4.E step 3
	EnableGroupedReads bool
}

const defaultBufferCapacity = 10000

// Scheduler is the acquisition scheduler (spec.md §4.E).
type Scheduler struct {
	catalogue *catalogue.Catalogue
	adapter   Reader
	bus       *sample.Bus
	cfg       Config

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup

	bufMu  sync.Mutex
	buffer []sample.Sample

	statsMu sync.Mutex
	stats   Stats
}

// New builds a Scheduler over the given catalogue, adapter and bus.
func New(cat *catalogue.Catalogue, reader Reader, bus *sample.Bus, cfg Config) *Scheduler {
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = defaultBufferCapacity
	}
	if cfg.PollingInterval < time.Second {
		cfg.PollingInterval = 10 * time.Second
	}
	return &Scheduler{
		catalogue: cat,
		adapter:   reader,
		bus:       bus,
		cfg:       cfg,
		state:     Idle,
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins background polling. A call while not idle is a no-op
// with a warning (spec.md §4.E).
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		slog.Warn("scheduler start() called while not idle", "state", s.state)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = Running
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop requests cancellation, joins the worker, then returns to idle.
// A call while idle is a no-op (spec.md §4.E).
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == Idle {
		s.mu.Unlock()
		return
	}
	s.state = Stopping
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.state = Idle
	s.mu.Unlock()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}

		s.pollCycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.PollingInterval):
		}
	}
}

// pollCycle runs one polling cycle: spec.md §4.E steps 1-4.
func (s *Scheduler) pollCycle(ctx context.Context) {
	addrs := s.snapshotAddresses()

	acquired := 0
	for _, group := range s.planGroups(addrs) {
		if ctx.Err() != nil {
			return
		}
		acquired += s.pollGroup(ctx, group)
	}

	s.statsMu.Lock()
	s.stats.TotalPolls++
	if acquired > 0 {
		s.stats.SuccessfulPolls++
	} else {
		s.stats.FailedPolls++
		s.stats.LastError = "No samples acquired"
	}
	s.stats.LastPollTime = time.Now()
	s.statsMu.Unlock()
}

func (s *Scheduler) planGroups(addrs []uint16) [][]uint16 {
	if !s.cfg.EnableGroupedReads {
		groups := make([][]uint16, len(addrs))
		for i, a := range addrs {
			groups[i] = []uint16{a}
		}
		return groups
	}
	return groupContiguous(addrs)
}

// pollGroup reads one contiguous run (possibly length 1) in a single
// request and publishes one sample per address, preserving the
// per-address publication contract regardless of grouping.
func (s *Scheduler) pollGroup(ctx context.Context, group []uint16) int {
	if len(group) == 1 {
		return s.pollSingle(ctx, group[0])
	}

	values, err := s.adapter.ReadRegisters(ctx, group[0], uint16(len(group)))
	if err != nil {
		s.publishPollError(group[0], err)
		return 0
	}

	now := time.Now()
	acquired := 0
	for i, addr := range group {
		s.publishSample(addr, values[i], now)
		acquired++
	}
	return acquired
}

func (s *Scheduler) pollSingle(ctx context.Context, addr uint16) int {
	values, err := s.adapter.ReadRegisters(ctx, addr, 1)
	if err != nil {
		s.publishPollError(addr, err)
		return 0
	}
	s.publishSample(addr, values[0], time.Now())
	return 1
}

func (s *Scheduler) publishPollError(addr uint16, err error) {
	msg := fmt.Sprintf("poll of register %d failed: %v", addr, err)
	slog.Error("poll cycle register read failed", "address", addr, "err", err)
	s.bus.PublishError(msg)
}

func (s *Scheduler) publishSample(addr uint16, raw uint16, ts time.Time) {
	s.appendToBuffer(s.buildSample(addr, raw, ts))
}

func (s *Scheduler) snapshotAddresses() []uint16 {
	seen := make(map[uint16]struct{})
	for _, cfg := range s.catalogue.All() {
		seen[cfg.Address] = struct{}{}
	}
	for _, addr := range s.cfg.MinimumRegisters {
		seen[addr] = struct{}{}
	}

	addrs := make([]uint16, 0, len(seen))
	for addr := range seen {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Recent returns the last n samples from the internal buffer, oldest-first.
func (s *Scheduler) Recent(n int) []sample.Sample {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	if n <= 0 || n > len(s.buffer) {
		n = len(s.buffer)
	}
	out := make([]sample.Sample, n)
	copy(out, s.buffer[len(s.buffer)-n:])
	return out
}

// ByRegister returns the last n samples for addr, oldest-first.
func (s *Scheduler) ByRegister(addr uint16, n int) []sample.Sample {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()

	var matches []sample.Sample
	for _, smp := range s.buffer {
		if smp.Address == addr {
			matches = append(matches, smp)
		}
	}
	if n > 0 && n < len(matches) {
		matches = matches[len(matches)-n:]
	}
	return matches
}

// Stats returns a snapshot of acquisition statistics.
func (s *Scheduler) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// ReadSingle performs one manual read. It returns nil on any Modbus or
// transport error — the error is logged, not returned, giving the
// façade probe-style nulls for manual calls (spec.md §9).
func (s *Scheduler) ReadSingle(ctx context.Context, addr uint16) *sample.Sample {
	values, err := s.adapter.ReadRegisters(ctx, addr, 1)
	if err != nil {
		slog.Error("manual read_single failed", "address", addr, "err", err)
		return nil
	}
	smp := s.buildSample(addr, values[0], time.Now())
	s.appendToBuffer(smp)
	return &smp
}

// ReadMany performs sequential single reads, skipping failures.
func (s *Scheduler) ReadMany(ctx context.Context, addrs []uint16) []sample.Sample {
	var out []sample.Sample
	for _, addr := range addrs {
		if smp := s.ReadSingle(ctx, addr); smp != nil {
			out = append(out, *smp)
		}
	}
	return out
}

// Write performs one manual write, returning false on any failure.
func (s *Scheduler) Write(ctx context.Context, addr uint16, value uint16) bool {
	ok, err := s.adapter.WriteRegister(ctx, addr, value)
	if err != nil {
		slog.Error("manual write failed", "address", addr, "err", err)
		return false
	}
	return ok
}

func (s *Scheduler) buildSample(addr uint16, raw uint16, ts time.Time) sample.Sample {
	cfg, ok := s.catalogue.Get(addr)
	name, unit, gain := "Unknown", "", 1.0
	if ok {
		name, unit, gain = cfg.Name, cfg.Unit, cfg.Gain
	}
	scaled := float64(raw)
	if gain != 0 {
		scaled = float64(raw) / gain
	}
	return sample.Sample{
		Timestamp:   ts,
		Address:     addr,
		Name:        name,
		RawValue:    raw,
		ScaledValue: scaled,
		Unit:        unit,
	}
}

func (s *Scheduler) appendToBuffer(smp sample.Sample) {
	s.bufMu.Lock()
	s.buffer = append(s.buffer, smp)
	if len(s.buffer) > s.cfg.BufferCapacity {
		s.buffer = s.buffer[len(s.buffer)-s.cfg.BufferCapacity:]
	}
	s.bufMu.Unlock()

	s.bus.Publish(smp)
}
