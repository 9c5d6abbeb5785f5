package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRNGDeterminism(t *testing.T) {
	a := NewRNG(7)
	b := NewRNG(7)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Intn(1000), b.Intn(1000), "Same seed should yield the same sequence")
	}
}

func TestRNGWeighted(t *testing.T) {
	t.Run("respects weights", func(t *testing.T) {
		r := NewRNG(42)
		counts := [2]int{}
		const draws = 10000
		for i := 0; i < draws; i++ {
			counts[r.Weighted([]float64{0.9, 0.1})]++
		}
		require.InDelta(t, 0.9, float64(counts[0])/draws, 0.02,
			"Index 0 should be drawn about 9 times out of 10")
	})

	t.Run("panics on an empty distribution", func(t *testing.T) {
		r := NewRNG(1)
		require.Panics(t, func() {
			r.Weighted([]float64{0, 0})
		}, "Zero total weight should have no valid draw")
	})
}

func TestHashValues(t *testing.T) {
	t.Run("is stable", func(t *testing.T) {
		require.Equal(t, HashValues(1, 2, 3), HashValues(1, 2, 3), "Same values should hash the same")
	})

	t.Run("separates order and content", func(t *testing.T) {
		require.NotEqual(t, HashValues(1, 2), HashValues(2, 1), "Order should matter")
		require.NotEqual(t, HashValues(1), HashValues(2), "Content should matter")
	})
}
