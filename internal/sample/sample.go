// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package sample defines the acquisition sample value object and a
// typed publish/subscribe point for it (spec.md §4.D).
package sample

import "time"

// Sample is one scaled measurement at a timestamp for one register
// address (spec.md §3, "AcquisitionSample"). Immutable once stored.
type Sample struct {
	Timestamp   time.Time
	Address     uint16
	Name        string
	RawValue    uint16
	ScaledValue float64
	Unit        string
}
