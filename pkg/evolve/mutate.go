package evolve

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/evotune/evotune/pkg/spec"
	"github.com/evotune/evotune/pkg/value"
)

// Mutate returns a mutated copy of a value tree conforming to sp. p is the
// per-node mutation probability and w the width scale multiplying each
// numeric node's spread. The input tree is never modified; unchanged
// subtrees may be shared with the result. Struct fields are visited in
// sorted name order so a fixed seed yields a fixed result.
func Mutate(sp spec.Node, t value.Tree, p, w float64, rng *RNG) value.Tree {
	switch s := sp.(type) {
	case *spec.Bool:
		v := t.(*value.Bool)
		if rng.Bernoulli(p) {
			return &value.Bool{V: !v.V}
		}
		return v
	case *spec.Int:
		v := t.(*value.Int)
		if !rng.Bernoulli(p) {
			return v
		}
		next := v.V + int64(math.Round(rng.Normal(s.Scale*w)))
		if s.Min != nil && next < *s.Min {
			next = *s.Min
		}
		if s.Max != nil && next > *s.Max {
			next = *s.Max
		}
		return &value.Int{V: next}
	case *spec.Real:
		v := t.(*value.Real)
		if !rng.Bernoulli(p) {
			return v
		}
		next := v.V + rng.Normal(s.Scale*w)
		if s.Min != nil && next < *s.Min {
			next = *s.Min
		}
		if s.Max != nil && next > *s.Max {
			next = *s.Max
		}
		return &value.Real{V: next}
	case *spec.Enum:
		v := t.(*value.Enum)
		if len(s.Variants) < 2 || !rng.Bernoulli(p) {
			return v
		}
		return &value.Enum{Label: otherLabel(s.Variants, v.Label, rng)}
	case *spec.Const:
		return t
	case *spec.Optional:
		v := t.(*value.Optional)
		elem := v.Elem
		if rng.Bernoulli(p) {
			if elem == nil {
				elem = value.Initial(s.Elem)
			} else {
				elem = nil
			}
		}
		if elem == nil {
			return &value.Optional{}
		}
		return &value.Optional{Elem: Mutate(s.Elem, elem, p, w, rng)}
	case *spec.Variant:
		v := t.(*value.Variant)
		if len(s.Alternatives) >= 2 && rng.Bernoulli(p) {
			labels := make([]string, len(s.Alternatives))
			for i, alt := range s.Alternatives {
				labels[i] = alt.Label
			}
			label := otherLabel(labels, v.Label, rng)
			return &value.Variant{Label: label, Elem: value.Initial(s.Alternative(label))}
		}
		return &value.Variant{Label: v.Label, Elem: Mutate(s.Alternative(v.Label), v.Elem, p, w, rng)}
	case *spec.List:
		v := t.(*value.List)
		elems := slices.Clone(v.Elems)
		if (s.MaxLen == nil || len(elems) < *s.MaxLen) && rng.Bernoulli(p) {
			pos := rng.IntN(len(elems) + 1)
			elems = slices.Insert(elems, pos, value.Initial(s.Elem))
		}
		minLen := 0
		if s.MinLen != nil {
			minLen = *s.MinLen
		}
		if len(elems) > minLen && rng.Bernoulli(p) {
			pos := rng.IntN(len(elems))
			elems = slices.Delete(elems, pos, pos+1)
		}
		for i := range elems {
			elems[i] = Mutate(s.Elem, elems[i], p, w, rng)
		}
		return &value.List{Elems: elems}
	case *spec.Struct:
		v := t.(*value.Struct)
		fields := make(map[string]value.Tree, len(s.Fields))
		for _, name := range slices.Sorted(maps.Keys(s.Fields)) {
			fields[name] = Mutate(s.Fields[name], v.Fields[name], p, w, rng)
		}
		return &value.Struct{Fields: fields}
	default:
		panic(fmt.Sprintf("evolve: unknown spec node %T", sp))
	}
}

// otherLabel picks uniformly among labels excluding current.
func otherLabel(labels []string, current string, rng *RNG) string {
	idx := rng.IntN(len(labels) - 1)
	for _, label := range labels {
		if label == current {
			continue
		}
		if idx == 0 {
			return label
		}
		idx--
	}
	return labels[len(labels)-1]
}
