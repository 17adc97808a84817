package evolve

import (
	"github.com/evotune/evotune/pkg/spec"
	"github.com/evotune/evotune/pkg/value"
)

const (
	// probExploratory is the chance a production draws a fresh carrier
	// instead of inheriting from parents.
	probExploratory = 0.25
	// donorSelectPressure is the fixed pressure used to rank-select the
	// donor whose carrier supplies the production's selection pressure.
	donorSelectPressure = 0.9
	// distinctParentTries bounds the retries for a second distinct parent;
	// pressure near 1 keeps returning the best, so the fallback picks
	// uniformly among the others.
	distinctParentTries = 16
)

// Candidate is an unevaluated individual handed to the evaluation client.
type Candidate struct {
	ID    uint64
	Value value.Tree
	// Carrier is nil for the seed candidate.
	Carrier *Carrier
}

// Source returns the carrier source, SourceInitial when there is no carrier.
func (c *Candidate) Source() CarrierSource {
	if c.Carrier == nil {
		return SourceInitial
	}
	return c.Carrier.Source
}

// Producer turns the current population into fresh candidates: the seed
// value exactly once, then selection, carrier blending, crossover and
// mutation. Not safe for concurrent use; the engine confines it to its run
// loop.
type Producer struct {
	spec   spec.Node
	pop    *Population
	rng    *RNG
	seed   value.Tree
	seeded bool
	nextID uint64
}

// NewProducer creates a producer over the given spec and population.
// initialGuess overrides the spec's initial value as the seed candidate when
// non-nil.
func NewProducer(sp spec.Node, pop *Population, rng *RNG, initialGuess value.Tree) *Producer {
	seed := initialGuess
	if seed == nil {
		seed = value.Initial(sp)
	}
	return &Producer{spec: sp, pop: pop, rng: rng, seed: seed}
}

// Next produces the next unevaluated candidate. The first call returns the
// seed value with no carrier. While the population is still empty, further
// candidates are exploratory mutations of the seed. Otherwise the selection
// pressure comes from a rank-selected donor's carrier, two parents are
// rank-selected with it, their carriers are blended and possibly mutated,
// and the child is their crossover followed by mutation under the blended
// carrier.
func (p *Producer) Next() *Candidate {
	p.nextID++
	if !p.seeded {
		p.seeded = true
		return &Candidate{ID: p.nextID, Value: p.seed}
	}

	members := p.pop.Snapshot()
	if len(members) == 0 {
		carrier := ExploratoryCarrier(p.rng)
		child := Mutate(p.spec, p.seed, carrier.MutationProb, carrier.MutationScale, p.rng)
		return &Candidate{ID: p.nextID, Value: child, Carrier: carrier}
	}

	var donors []*Individual
	for _, m := range members {
		if m.Carrier != nil {
			donors = append(donors, m)
		}
	}

	var carrier *Carrier
	var pressure float64
	if len(donors) == 0 || p.rng.Bernoulli(probExploratory) {
		carrier = ExploratoryCarrier(p.rng)
		pressure = carrier.SelectionPressure
	} else {
		donor := selectRank(donors, donorSelectPressure, p.rng)
		pressure = donor.Carrier.SelectionPressure
	}

	a := selectRank(members, pressure, p.rng)
	b := a
	if len(members) >= 2 {
		for tries := 0; b == a && tries < distinctParentTries; tries++ {
			b = selectRank(members, pressure, p.rng)
		}
		if b == a {
			others := make([]*Individual, 0, len(members)-1)
			for _, m := range members {
				if m != a {
					others = append(others, m)
				}
			}
			b = others[p.rng.IntN(len(others))]
		}
	}

	if carrier == nil {
		ca, cb := a.Carrier, b.Carrier
		if ca == nil {
			ca = cb
		}
		if cb == nil {
			cb = ca
		}
		if ca == nil {
			carrier = ExploratoryCarrier(p.rng)
		} else {
			carrier = RecombineCarriers(ca, cb, p.rng)
		}
	}

	child := Crossover(p.spec, a.Value, b.Value, carrier.CrossoverProb, p.rng)
	child = Mutate(p.spec, child, carrier.MutationProb, carrier.MutationScale, p.rng)
	return &Candidate{ID: p.nextID, Value: child, Carrier: carrier}
}
