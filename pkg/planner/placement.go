package planner

import (
	"github.com/jbliao/kubesubnet/pkg/ipaddr"
)

// Placement picks an aligned block of 2^hostBits addresses from a pool's
// free ranges. free is sorted by ascending start. ok is false when no range
// can hold the block, which is a normal outcome and not an error.
type Placement interface {
	Name() string
	Place(free []FreeBlock, hostBits uint) (start ipaddr.Uint128, from FreeBlock, ok bool)
}

var (
	// FirstFit takes the lowest viable aligned start
	FirstFit Placement = firstFit{}
	// BestFit takes the smallest viable range, lowest start on ties
	BestFit Placement = bestFit{}
)

// viable returns the first start inside b aligned to 2^hostBits, and whether
// the whole block fits before the end of b.
func viable(b FreeBlock, hostBits uint) (ipaddr.Uint128, bool) {
	aligned, ok := b.Start.AlignUp(hostBits)
	if !ok {
		return ipaddr.Zero, false
	}
	last := b.Last()
	if last.Less(aligned) {
		return ipaddr.Zero, false
	}
	// aligned + 2^hostBits - 1 <= last, written without overflow
	return aligned, last.Sub(aligned).Cmp(ipaddr.Mask(hostBits)) >= 0
}

type firstFit struct{}

func (firstFit) Name() string {
	return "first-fit"
}

func (firstFit) Place(free []FreeBlock, hostBits uint) (ipaddr.Uint128, FreeBlock, bool) {
	for _, b := range free {
		if start, ok := viable(b, hostBits); ok {
			return start, b, true
		}
	}
	return ipaddr.Zero, FreeBlock{}, false
}

type bestFit struct{}

func (bestFit) Name() string {
	return "best-fit"
}

func (bestFit) Place(free []FreeBlock, hostBits uint) (ipaddr.Uint128, FreeBlock, bool) {
	var (
		bestStart ipaddr.Uint128
		best      FreeBlock
		found     bool
	)
	for _, b := range free {
		start, ok := viable(b, hostBits)
		if !ok {
			continue
		}
		// free is in address order, so only a strictly smaller range replaces the current one
		if !found || b.Size.Less(best.Size) {
			bestStart, best, found = start, b, true
		}
	}
	return bestStart, best, found
}
