package planner

import (
	"fmt"
	"sort"

	"github.com/jbliao/kubesubnet/pkg/ipaddr"
)

// freeBlocks returns the unallocated ranges of pool in ascending order. The
// ranges partition the pool minus allocs. Overlapping or out-of-pool blocks
// mean the planner broke its own invariants and are reported as
// ErrInternalConsistency.
func freeBlocks(pool Pool, allocs []Allocation) ([]FreeBlock, error) {
	sorted := make([]Allocation, len(allocs))
	copy(sorted, allocs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Less(sorted[j].Start)
	})

	first, last := pool.Prefix.Addr, pool.Prefix.Last()
	var free []FreeBlock

	// cursor is the lowest address not yet covered. exhausted is set once the
	// scan has passed the top of the 128-bit space.
	cursor, exhausted := first, false
	for _, a := range sorted {
		if a.Start.Less(first) || last.Less(a.Last()) {
			return nil, fmt.Errorf("%w: block %s outside pool %s",
				ErrInternalConsistency, a.Prefix(pool.Prefix.Width), pool.Prefix)
		}
		if exhausted || a.Start.Less(cursor) {
			return nil, fmt.Errorf("%w: block %s overlaps another block in pool %s",
				ErrInternalConsistency, a.Prefix(pool.Prefix.Width), pool.Prefix)
		}
		if cursor.Less(a.Start) {
			free = append(free, FreeBlock{Start: cursor, Size: a.Start.Sub(cursor)})
		}
		if a.Last() == ipaddr.Max {
			exhausted = true
			continue
		}
		cursor = a.Last().Add(ipaddr.One)
	}

	if !exhausted && cursor.Cmp(last) <= 0 {
		free = append(free, FreeBlock{Start: cursor, Size: last.Sub(cursor).Add(ipaddr.One)})
	}
	return free, nil
}
