package evolve

// selectRank walks the fitness-ordered members best first, accepting each
// with probability pressure; the first success wins. When the walk falls
// through, the pick is uniform.
func selectRank(members []*Individual, pressure float64, rng *RNG) *Individual {
	for _, m := range members {
		if rng.Bernoulli(pressure) {
			return m
		}
	}
	return members[rng.IntN(len(members))]
}
