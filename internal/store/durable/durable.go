// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package durable implements the time-indexed durable sample log
// (spec.md §4.G), behind two interchangeable backends.
package durable

import (
	"fmt"
	"os"

	"github.com/ecowatt/acquisition/internal/sample"
)

// Stats reports the durable store's current footprint (spec.md §4.G:
// total, per-register counts, oldest/newest timestamps, approximate
// byte size).
type Stats struct {
	TotalSamples      int64
	PerRegisterCounts map[uint16]int64
	OldestUnix        int64
	NewestUnix        int64
	ApproxBytes       int64
}

// StorageFailure wraps a backend error (spec.md §7).
type StorageFailure struct {
	Op    string
	Cause error
}

func (e *StorageFailure) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Cause)
}

func (e *StorageFailure) Unwrap() error { return e.Cause }

// Store is the durable backend contract. Both the SQLite backend and
// the file-append backend implement it (spec.md §4.G).
type Store interface {
	Store(smp sample.Sample) error
	StoreBatch(samples []sample.Sample) error
	Get(addr uint16, n int) ([]sample.Sample, error)
	GetRange(addr uint16, fromUnix, toUnix int64) ([]sample.Sample, error)
	Cleanup(olderThanUnix int64) (int64, error)
	ExportCSV(path string, addr uint16, fromUnix, toUnix int64) (string, error)
	ExportJSON(path string, addr uint16, fromUnix, toUnix int64) (string, error)
	Stats() (Stats, error)
	Close() error
}

// writeExportFile writes contents to path, the side effect spec.md
// §4.G's export_csv/export_json contract. A blank path skips the
// write and only returns the formatted string, for callers that want
// the rendering without touching disk.
func writeExportFile(path, contents string) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		return &StorageFailure{Op: "write export file", Cause: err}
	}
	return nil
}
