// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package scheduler

// groupContiguous merges an ascending, deduplicated list of addresses
// into runs of consecutive addresses, so the scheduler can fold a run
// into one multi-register read (spec.md §4.E, "grouped read"
// optimisation; design notes' grouping helper, wired in here). The
// observable contract — one sample per configured address per cycle —
// is unchanged by this optimisation.
const maxGroupSize = 125 // spec.md §4.A: 1 <= count <= 125

func groupContiguous(addrs []uint16) [][]uint16 {
	if len(addrs) == 0 {
		return nil
	}

	var groups [][]uint16
	current := []uint16{addrs[0]}

	for i := 1; i < len(addrs); i++ {
		if addrs[i] == addrs[i-1]+1 && len(current) < maxGroupSize {
			current = append(current, addrs[i])
		} else {
			groups = append(groups, current)
			current = []uint16{addrs[i]}
		}
	}
	groups = append(groups, current)
	return groups
}
