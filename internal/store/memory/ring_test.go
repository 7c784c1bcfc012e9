// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package memory

import (
	"testing"
	"time"

	"github.com/ecowatt/acquisition/internal/sample"
)

func mkSample(addr uint16, raw uint16, at time.Time) sample.Sample {
	return sample.Sample{Timestamp: at, Address: addr, RawValue: raw, ScaledValue: float64(raw)}
}

func TestStoreAndGetNewestFirst(t *testing.T) {
	s := New(10)
	base := time.Unix(1000, 0)
	s.Store(mkSample(1, 10, base))
	s.Store(mkSample(1, 20, base.Add(time.Second)))
	s.Store(mkSample(1, 30, base.Add(2*time.Second)))

	got := s.Get(1, 0)
	if len(got) != 3 {
		t.Fatalf("Get() len = %d, want 3", len(got))
	}
	if got[0].RawValue != 30 || got[1].RawValue != 20 || got[2].RawValue != 10 {
		t.Errorf("Get() order = %v", got)
	}
}

func TestGetLimitsCount(t *testing.T) {
	s := New(10)
	base := time.Unix(1000, 0)
	for i := 0; i < 5; i++ {
		s.Store(mkSample(1, uint16(i), base.Add(time.Duration(i)*time.Second)))
	}

	got := s.Get(1, 2)
	if len(got) != 2 {
		t.Fatalf("Get(addr, 2) len = %d, want 2", len(got))
	}
	if got[0].RawValue != 4 || got[1].RawValue != 3 {
		t.Errorf("Get(addr, 2) = %v", got)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	s := New(3)
	base := time.Unix(1000, 0)
	for i := 0; i < 5; i++ {
		s.Store(mkSample(1, uint16(i), base.Add(time.Duration(i)*time.Second)))
	}

	got := s.Get(1, 0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (capacity)", len(got))
	}
	if got[0].RawValue != 4 || got[2].RawValue != 2 {
		t.Errorf("retained window = %v, want [4,3,2]", got)
	}
}

func TestDefaultCapacityAppliesForNonPositive(t *testing.T) {
	s := New(0)
	if s.capacity != defaultCapacity {
		t.Errorf("capacity = %d, want %d", s.capacity, defaultCapacity)
	}
}

func TestGetRangeFiltersByTimestamp(t *testing.T) {
	s := New(10)
	base := time.Unix(1000, 0)
	for i := 0; i < 5; i++ {
		s.Store(mkSample(1, uint16(i), base.Add(time.Duration(i)*time.Second)))
	}

	got := s.GetRange(1, base.Add(time.Second).Unix(), base.Add(3*time.Second).Unix())
	if len(got) != 3 {
		t.Fatalf("GetRange() len = %d, want 3", len(got))
	}
	if got[0].RawValue != 3 || got[2].RawValue != 1 {
		t.Errorf("GetRange() = %v, want newest-first", got)
	}
}

func TestLatestAndLatestAll(t *testing.T) {
	s := New(10)
	base := time.Unix(1000, 0)
	s.Store(mkSample(1, 10, base))
	s.Store(mkSample(1, 20, base.Add(time.Second)))
	s.Store(mkSample(2, 99, base))

	latest, ok := s.Latest(1)
	if !ok || latest.RawValue != 20 {
		t.Errorf("Latest(1) = %v, %v", latest, ok)
	}

	if _, ok := s.Latest(42); ok {
		t.Error("Latest(42) = true, want false for unknown register")
	}

	all := s.LatestAll()
	if len(all) != 2 {
		t.Fatalf("LatestAll() len = %d, want 2", len(all))
	}
}

func TestClearRemovesRegister(t *testing.T) {
	s := New(10)
	s.Store(mkSample(1, 1, time.Unix(1000, 0)))
	s.Clear(1)

	if got := s.Get(1, 0); len(got) != 0 {
		t.Errorf("Get() after Clear() = %v, want empty", got)
	}
}

func TestClearAllRemovesEveryRegister(t *testing.T) {
	s := New(10)
	s.Store(mkSample(1, 1, time.Unix(1000, 0)))
	s.Store(mkSample(2, 2, time.Unix(1001, 0)))
	s.ClearAll()

	if stats := s.Stats(); stats.RegisterCount != 0 || stats.TotalSamples != 0 {
		t.Errorf("Stats() after ClearAll() = %+v, want zero", stats)
	}
}

func TestStatsCountsRegistersAndSamples(t *testing.T) {
	s := New(10)
	s.Store(mkSample(1, 1, time.Unix(1000, 0)))
	s.Store(mkSample(1, 2, time.Unix(1001, 0)))
	s.Store(mkSample(2, 3, time.Unix(1002, 0)))

	stats := s.Stats()
	if stats.RegisterCount != 2 || stats.TotalSamples != 3 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestStoreBatch(t *testing.T) {
	s := New(10)
	base := time.Unix(1000, 0)
	s.StoreBatch([]sample.Sample{
		mkSample(1, 1, base),
		mkSample(2, 2, base),
	})

	if stats := s.Stats(); stats.TotalSamples != 2 {
		t.Errorf("Stats().TotalSamples = %d, want 2", stats.TotalSamples)
	}
}
