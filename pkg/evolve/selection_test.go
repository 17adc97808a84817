package evolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rankedIndividuals(n int) []*Individual {
	members := make([]*Individual, n)
	for i := range members {
		members[i] = &Individual{ID: uint64(i + 1), Fitness: float64(i)}
	}
	return members
}

func selectionFrequencies(members []*Individual, pressure float64, draws int, rng *RNG) []float64 {
	counts := make([]float64, len(members))
	index := map[*Individual]int{}
	for i, m := range members {
		index[m] = i
	}
	for i := 0; i < draws; i++ {
		counts[index[selectRank(members, pressure, rng)]]++
	}
	for i := range counts {
		counts[i] /= float64(draws)
	}
	return counts
}

func TestSelectFullPressureAlwaysPicksBest(t *testing.T) {
	members := rankedIndividuals(5)
	rng := NewRNG(20)
	for i := 0; i < 100; i++ {
		assert.Same(t, members[0], selectRank(members, 1, rng))
	}
}

func TestSelectHalfPressureTwoMembers(t *testing.T) {
	// P(first) = 0.5 + 0.5*0.5*0.5 = 0.625 with the uniform fallback.
	members := rankedIndividuals(2)
	rng := NewRNG(21)
	freq := selectionFrequencies(members, 0.5, 20000, rng)
	assert.InDelta(t, 0.625, freq[0], 0.02)
	assert.InDelta(t, 0.375, freq[1], 0.02)
}

func TestSelectZeroPressureIsUniform(t *testing.T) {
	members := rankedIndividuals(4)
	rng := NewRNG(22)
	freq := selectionFrequencies(members, 0, 20000, rng)
	for _, f := range freq {
		assert.InDelta(t, 0.25, f, 0.02)
	}
}

func TestSelectPressureOrdersRanks(t *testing.T) {
	members := rankedIndividuals(6)
	rng := NewRNG(23)
	freq := selectionFrequencies(members, 0.6, 20000, rng)
	for i := 1; i < len(freq); i++ {
		assert.Less(t, freq[i], freq[i-1], "rank %d should be picked less often than rank %d", i, i-1)
	}
}
