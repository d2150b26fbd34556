// Package spectrum computes, for a header at a given height, the sparse set
// of ancestor heights it must reference so that lookupAtHeight can reach any
// ancestor in O(log h) tree-object reads.
package spectrum

import (
	"sort"

	mathutil "github.com/daglabs/headerdb/util/math"
)

// Params tunes the shape of the computed spectrum. The zero value is not
// valid; use DefaultParams or a value registered in dagconfig.
type Params struct {
	// RecentsWindow is how far back the "recents" run extends before the
	// parent: the recents are the heights in [h-RecentsWindow, h-2].
	RecentsWindow uint64

	// PowerOfTwoBase is the exponent of the smallest power-of-two offset
	// considered for quantized ancestor pointers (the source starts at
	// 2^5 = 32).
	PowerOfTwoBase uint
}

// DefaultParams matches the tuning named in the design: a recents window of
// 4 and quantized pointers starting at offset 32.
var DefaultParams = Params{
	RecentsWindow:  4,
	PowerOfTwoBase: 5,
}

// maxPowerOfTwoExponent bounds the offsets considered; 2^63 safely exceeds
// any height representable in a uint64 chain length used in practice, and
// keeps the walk below from ever overflowing.
const maxPowerOfTwoExponent = 63

// Compute returns the deterministic, strictly increasing list of ancestor
// heights a header at height h must reference, excluding h and h-1 (the
// parent is tracked separately by the caller). It is a pure function: equal
// inputs yield equal outputs, with no side effects (P3).
func Compute(h uint64, params Params) []uint64 {
	if h == 0 || h == 1 {
		return nil
	}

	// The window can't reach below height 0: clamp it to h itself so the
	// subtraction below never underflows.
	recentsStart := h - mathutil.MinUint64(params.RecentsWindow, h)
	recentsEnd := h - 2 // inclusive; h >= 2 here since h == 1 returned above

	var recents []uint64
	for height := recentsStart; height <= recentsEnd; height++ {
		recents = append(recents, height)
	}

	var quantized []uint64
	for k := params.PowerOfTwoBase; k <= maxPowerOfTwoExponent; k++ {
		offset := uint64(1) << k
		if offset >= h {
			break
		}
		quantized = append(quantized, quantize(h, offset))
	}

	return mergeDedup(quantized, recents)
}

// quantize returns the greatest multiple of x not exceeding h-x, computed
// via the bitmask form (h-x) AND NOT(x-1); x is always a power of two here.
func quantize(h, x uint64) uint64 {
	return (h - x) &^ (x - 1)
}

// mergeDedup returns the sorted, deduplicated union of a and b. Both inputs
// may individually contain duplicates relative to each other (a quantized
// height can coincide with a recents entry at small h); the result never
// does.
func mergeDedup(a, b []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(a)+len(b))
	merged := make([]uint64, 0, len(a)+len(b))
	for _, s := range [2][]uint64{a, b} {
		for _, v := range s {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			merged = append(merged, v)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	return merged
}
