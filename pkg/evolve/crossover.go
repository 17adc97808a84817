package evolve

import (
	"fmt"
	"maps"
	"slices"

	"github.com/evotune/evotune/pkg/spec"
	"github.com/evotune/evotune/pkg/value"
)

// Crossover recombines two parent trees conforming to sp. At every node the
// child inherits the subtree wholesale from parent b with probability pc;
// otherwise recombination recurses structurally, with leaves taken from
// parent a. The result always conforms to sp; list lengths are clamped to
// the spec's length bounds after blending. Crossover of two equal parents
// yields an equal tree for any pc.
func Crossover(sp spec.Node, a, b value.Tree, pc float64, rng *RNG) value.Tree {
	if rng.Bernoulli(pc) {
		return b
	}
	switch s := sp.(type) {
	case *spec.Bool, *spec.Int, *spec.Real, *spec.Enum, *spec.Const:
		return a
	case *spec.Optional:
		av := a.(*value.Optional)
		bv := b.(*value.Optional)
		if av.Present() != bv.Present() {
			if rng.Bernoulli(0.5) {
				return bv
			}
			return av
		}
		if !av.Present() {
			return av
		}
		return &value.Optional{Elem: Crossover(s.Elem, av.Elem, bv.Elem, pc, rng)}
	case *spec.Variant:
		av := a.(*value.Variant)
		bv := b.(*value.Variant)
		if av.Label != bv.Label {
			if rng.Bernoulli(0.5) {
				return bv
			}
			return av
		}
		return &value.Variant{
			Label: av.Label,
			Elem:  Crossover(s.Alternative(av.Label), av.Elem, bv.Elem, pc, rng),
		}
	case *spec.List:
		av := a.(*value.List)
		bv := b.(*value.List)
		common := min(len(av.Elems), len(bv.Elems))
		elems := make([]value.Tree, 0, max(len(av.Elems), len(bv.Elems)))
		for i := 0; i < common; i++ {
			elems = append(elems, Crossover(s.Elem, av.Elems[i], bv.Elems[i], pc, rng))
		}
		longer := av.Elems
		if len(bv.Elems) > len(av.Elems) {
			longer = bv.Elems
		}
		for _, excess := range longer[common:] {
			if rng.Bernoulli(pc) {
				elems = append(elems, excess)
			}
		}
		if s.MaxLen != nil && len(elems) > *s.MaxLen {
			elems = elems[:*s.MaxLen]
		}
		for s.MinLen != nil && len(elems) < *s.MinLen {
			elems = append(elems, value.Initial(s.Elem))
		}
		return &value.List{Elems: elems}
	case *spec.Struct:
		av := a.(*value.Struct)
		bv := b.(*value.Struct)
		fields := make(map[string]value.Tree, len(s.Fields))
		for _, name := range slices.Sorted(maps.Keys(s.Fields)) {
			fields[name] = Crossover(s.Fields[name], av.Fields[name], bv.Fields[name], pc, rng)
		}
		return &value.Struct{Fields: fields}
	default:
		panic(fmt.Sprintf("evolve: unknown spec node %T", sp))
	}
}
