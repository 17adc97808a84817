// Package evolve implements the adaptive genetic machinery: mutation and
// crossover over value trees, the self-adapting meta-parameter carrier,
// rank-biased selection and the bounded fitness-ordered population. All
// stochastic operations draw from an explicit RNG so a fixed seed reproduces
// a run exactly.
package evolve

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// rngStream separates the two PCG stream words derived from one seed.
const rngStream = 0x9e3779b97f4a7c15

// RNG is the run-scoped random source. It is not safe for concurrent use;
// the engine confines it to its run loop.
type RNG struct {
	src *rand.PCG
	r   *rand.Rand
}

// NewRNG returns a generator seeded deterministically from seed.
func NewRNG(seed uint64) *RNG {
	src := rand.NewPCG(seed, seed^rngStream)
	return &RNG{src: src, r: rand.New(src)}
}

// Float64 draws uniformly from [0,1).
func (g *RNG) Float64() float64 { return g.r.Float64() }

// IntN draws uniformly from {0,...,n-1}.
func (g *RNG) IntN(n int) int { return g.r.IntN(n) }

// Bernoulli reports a success with probability p.
func (g *RNG) Bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return distuv.Bernoulli{P: p, Src: g.src}.Rand() == 1
}

// Normal draws from a normal distribution centered at 0 with the given
// standard deviation.
func (g *RNG) Normal(sigma float64) float64 {
	return distuv.Normal{Mu: 0, Sigma: sigma, Src: g.src}.Rand()
}

// Exponential draws from an exponential distribution with rate 1.
func (g *RNG) Exponential() float64 {
	return distuv.Exponential{Rate: 1, Src: g.src}.Rand()
}
