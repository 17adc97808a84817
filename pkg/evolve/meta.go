package evolve

import (
	"math"

	"github.com/evotune/evotune/pkg/spec"
	"github.com/evotune/evotune/pkg/value"
)

// Bounds for the carrier's mutation width scale. Held in log space in the
// auxiliary spec so the additive normal perturbation acts multiplicatively.
const (
	scaleFloor = 1e-12
	scaleCeil  = 1e12
)

// CarrierSource records how an individual's carrier was produced.
type CarrierSource int

const (
	// SourceInitial marks the run's seed candidate, which carries no
	// meta-parameters at all.
	SourceInitial CarrierSource = iota
	// SourceExploratory marks a carrier drawn fresh at random.
	SourceExploratory
	// SourceInherited marks a carrier blended from two parents' carriers.
	SourceInherited
	// SourceInheritedMutated marks an inherited carrier that was mutated
	// after blending.
	SourceInheritedMutated
)

func (s CarrierSource) String() string {
	switch s {
	case SourceInitial:
		return "initial"
	case SourceExploratory:
		return "exploratory"
	case SourceInherited:
		return "inherited"
	case SourceInheritedMutated:
		return "inherited+mutated"
	default:
		return "unknown"
	}
}

// Carrier holds an individual's self-adapting meta-parameters. The carrier
// co-evolves with the objective parameters: it is blended and mutated by the
// same tree machinery that acts on candidate values, over a fixed auxiliary
// spec.
type Carrier struct {
	CrossoverProb     float64
	SelectionPressure float64
	MutationProb      float64
	MutationScale     float64
	Source            CarrierSource
}

func fptr(v float64) *float64 { return &v }

// carrierSpec is the auxiliary spec the carrier is mutated over:
// probabilities as bounded reals, the width scale as a real in log space.
var carrierSpec = &spec.Struct{Fields: map[string]spec.Node{
	"crossoverProb":     &spec.Real{Min: fptr(0), Max: fptr(1), Scale: 0.1},
	"selectionPressure": &spec.Real{Min: fptr(0), Max: fptr(1), Scale: 0.1},
	"mutationProb":      &spec.Real{Min: fptr(0), Max: fptr(1), Scale: 0.1},
	"mutationScale":     &spec.Real{Min: fptr(math.Log(scaleFloor)), Max: fptr(math.Log(scaleCeil)), Scale: 1},
}}

// ExploratoryCarrier draws a fresh carrier: probabilities uniform on [0,1],
// width scale exponential with mean 1.
func ExploratoryCarrier(rng *RNG) *Carrier {
	return &Carrier{
		CrossoverProb:     rng.Float64(),
		SelectionPressure: rng.Float64(),
		MutationProb:      rng.Float64(),
		MutationScale:     rng.Exponential(),
		Source:            SourceExploratory,
	}
}

func (c *Carrier) tree() value.Tree {
	scale := min(max(c.MutationScale, scaleFloor), scaleCeil)
	return &value.Struct{Fields: map[string]value.Tree{
		"crossoverProb":     &value.Real{V: c.CrossoverProb},
		"selectionPressure": &value.Real{V: c.SelectionPressure},
		"mutationProb":      &value.Real{V: c.MutationProb},
		"mutationScale":     &value.Real{V: math.Log(scale)},
	}}
}

func carrierFromTree(t value.Tree, source CarrierSource) *Carrier {
	fields := t.(*value.Struct).Fields
	return &Carrier{
		CrossoverProb:     fields["crossoverProb"].(*value.Real).V,
		SelectionPressure: fields["selectionPressure"].(*value.Real).V,
		MutationProb:      fields["mutationProb"].(*value.Real).V,
		MutationScale:     math.Exp(fields["mutationScale"].(*value.Real).V),
		Source:            source,
	}
}

// probMetaMutation is the chance an inherited carrier is mutated after
// blending, making mutation intensity itself a trait under selection.
const probMetaMutation = 0.5

// RecombineCarriers blends two parent carriers with the general tree
// crossover (pc taken from parent a) and mutates the blend with probability
// probMetaMutation.
func RecombineCarriers(a, b *Carrier, rng *RNG) *Carrier {
	blend := Crossover(carrierSpec, a.tree(), b.tree(), a.CrossoverProb, rng)
	source := SourceInherited
	if rng.Bernoulli(probMetaMutation) {
		blend = Mutate(carrierSpec, blend, 1, 1, rng)
		source = SourceInheritedMutated
	}
	return carrierFromTree(blend, source)
}
