package spectrum

import (
	"math/bits"
	"testing"
)

// P3: Compute is a pure function - equal inputs yield equal outputs.
func TestComputeDeterministic(t *testing.T) {
	for _, h := range []uint64{0, 1, 2, 3, 4, 10, 1000, 1 << 20} {
		a := Compute(h, DefaultParams)
		b := Compute(h, DefaultParams)
		if !equal(a, b) {
			t.Errorf("Compute(%d) not deterministic: %v != %v", h, a, b)
		}
	}
}

func TestComputeEdgeCases(t *testing.T) {
	if got := Compute(0, DefaultParams); len(got) != 0 {
		t.Errorf("spectrum(0): got %v, want empty", got)
	}
	if got := Compute(1, DefaultParams); len(got) != 0 {
		t.Errorf("spectrum(1): got %v, want empty", got)
	}
}

func TestComputeNeverContainsSelfOrParent(t *testing.T) {
	for h := uint64(2); h < 2000; h++ {
		for _, height := range Compute(h, DefaultParams) {
			if height == h {
				t.Fatalf("spectrum(%d) contains itself", h)
			}
			if height == h-1 {
				t.Fatalf("spectrum(%d) contains its parent height %d", h, h-1)
			}
		}
	}
}

func TestComputeStrictlyIncreasing(t *testing.T) {
	for h := uint64(2); h < 2000; h++ {
		s := Compute(h, DefaultParams)
		for i := 1; i < len(s); i++ {
			if s[i] <= s[i-1] {
				t.Fatalf("spectrum(%d) not strictly increasing at index %d: %v", h, i, s)
			}
		}
	}
}

// S6: spectrum(1000) has length <= ceil(log2(1000)) + 4.
func TestComputeS6Bound(t *testing.T) {
	s := Compute(1000, DefaultParams)
	maxLen := ceilLog2(1000) + 4
	if len(s) > maxLen {
		t.Errorf("spectrum(1000): length %d exceeds bound %d (%v)", len(s), maxLen, s)
	}
}

func TestComputeLogarithmicGrowth(t *testing.T) {
	for _, h := range []uint64{100, 10000, 1000000, 100000000} {
		s := Compute(h, DefaultParams)
		maxLen := ceilLog2(h) + int(DefaultParams.RecentsWindow)
		if len(s) > maxLen {
			t.Errorf("spectrum(%d): length %d exceeds O(log h) bound %d", h, len(s), maxLen)
		}
	}
}

func ceilLog2(n uint64) int {
	if n <= 1 {
		return 0
	}
	return bits.Len64(n - 1)
}

func equal(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
