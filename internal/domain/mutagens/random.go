// Package mutagens provides the mutation operator algebra: region selectors,
// atomic mutators and the combinators that compose them.
package mutagens

import (
	"math/rand"
	"sort"
	"sync"
)

// Random is the random source injected into every randomized selector,
// mutator and scheduler. *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
	Float64() float64
	Perm(n int) []int
}

type lockedRandom struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom returns a seeded Random that is safe for concurrent use.
func NewRandom(seed int64) Random {
	return &lockedRandom{rnd: rand.New(rand.NewSource(seed))} //nolint:gosec // search randomness, not crypto
}

func (r *lockedRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rnd.Intn(n)
}

func (r *lockedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rnd.Float64()
}

func (r *lockedRandom) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rnd.Perm(n)
}

// sample draws k distinct indices from [0, n) and returns them sorted.
func sample(rng Random, n, k int) []int {
	perm := rng.Perm(n)
	if k > len(perm) {
		k = len(perm)
	}

	picked := make([]int, k)
	copy(picked, perm[:k])
	sort.Ints(picked)

	return picked
}
