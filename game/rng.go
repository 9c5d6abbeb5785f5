package game

import (
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// RNG is the seedable random source behind a game's stochastic
// transitions. States created from the same seed draw the same sequence,
// which makes searches reproducible. A mutex guards the generator so
// states can be played from concurrent search workers.
type RNG struct {
	mu  sync.Mutex
	src *rand.Rand
}

func NewRNG(seed uint64) *RNG {
	return &RNG{src: rand.New(rand.NewSource(seed))}
}

func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

// Weighted draws an index with probability proportional to its weight.
func (r *RNG) Weighted(weights []float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := sampleuv.NewWeighted(weights, r.src)
	i, ok := w.Take()
	if !ok {
		panic("weighted draw from an empty distribution")
	}
	return i
}
