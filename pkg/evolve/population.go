package evolve

import (
	"slices"
	"sort"
	"sync"

	"github.com/evotune/evotune/pkg/value"
)

// Individual is an evaluated candidate: a value tree, its fitness (lower is
// better) and the carrier that produced it. Individuals are immutable once
// evaluated; population snapshots stay consistent under concurrent read.
type Individual struct {
	ID      uint64
	Value   value.Tree
	Fitness float64
	// Carrier is nil for the run's seed candidate.
	Carrier *Carrier
}

// Source returns the carrier source, SourceInitial when there is no carrier.
func (ind *Individual) Source() CarrierSource {
	if ind.Carrier == nil {
		return SourceInitial
	}
	return ind.Carrier.Source
}

// Population is the bounded set of evaluated individuals, ordered best
// fitness first. Ties order by insertion sequence, so a new individual tying
// the current worst of a full population is discarded and the incumbent
// stays. Access is serialized by an internal mutex; the engine additionally
// confines mutation to its run loop.
type Population struct {
	mu      sync.Mutex
	target  int
	members []*Individual
}

// NewPopulation creates an empty population bounded to target individuals.
func NewPopulation(target int) *Population {
	if target < 1 {
		target = 1
	}
	return &Population{target: target}
}

// Len returns the current number of individuals.
func (p *Population) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.members)
}

// Best returns the best individual, or nil while the population is empty.
func (p *Population) Best() *Individual {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.members) == 0 {
		return nil
	}
	return p.members[0]
}

// Insert adds an evaluated individual in fitness order. When the population
// is full the new individual replaces the current worst only if strictly
// better; otherwise it is discarded and Insert reports false.
func (p *Population) Insert(ind *Individual) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos := sort.Search(len(p.members), func(i int) bool {
		return p.members[i].Fitness > ind.Fitness
	})
	if len(p.members) == p.target && pos == len(p.members) {
		return false
	}
	p.members = slices.Insert(p.members, pos, ind)
	if len(p.members) > p.target {
		p.members = p.members[:p.target]
	}
	return true
}

// Snapshot returns a copy of the fitness-ordered member list.
func (p *Population) Snapshot() []*Individual {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.members)
}

// Fitnesses returns the members' fitness values, best first.
func (p *Population) Fitnesses() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]float64, len(p.members))
	for i, m := range p.members {
		out[i] = m.Fitness
	}
	return out
}
