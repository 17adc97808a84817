package evolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evotune/evotune/pkg/spec"
	"github.com/evotune/evotune/pkg/value"
)

func TestCrossoverIdenticalParents(t *testing.T) {
	sp := kitchenSink(t)
	rng := NewRNG(11)
	v := value.Initial(sp)
	for _, pc := range []float64{0, 0.3, 0.5, 0.9, 1} {
		for i := 0; i < 20; i++ {
			child := Crossover(sp, v, v, pc, rng)
			assert.True(t, value.Equal(v, child), "pc=%v", pc)
		}
	}
}

func TestCrossoverZeroPCKeepsFirstParentLeaves(t *testing.T) {
	a := &value.Real{V: 1}
	b := &value.Real{V: 2}
	sp := &spec.Real{Scale: 1}
	rng := NewRNG(12)
	child := Crossover(sp, a, b, 0, rng)
	assert.Equal(t, 1.0, child.(*value.Real).V)
}

func TestCrossoverOnePCTakesOtherParent(t *testing.T) {
	a := &value.Real{V: 1}
	b := &value.Real{V: 2}
	sp := &spec.Real{Scale: 1}
	rng := NewRNG(13)
	child := Crossover(sp, a, b, 1, rng)
	assert.Equal(t, 2.0, child.(*value.Real).V)
}

func TestCrossoverAlwaysConforms(t *testing.T) {
	sp := kitchenSink(t)
	rng := NewRNG(14)
	a := value.Initial(sp)
	b := value.Initial(sp)
	// Diverge the parents first.
	for i := 0; i < 30; i++ {
		a = Mutate(sp, a, 0.6, 1, rng)
		b = Mutate(sp, b, 0.6, 1, rng)
	}
	for i := 0; i < 500; i++ {
		child := Crossover(sp, a, b, rng.Float64(), rng)
		require.NoError(t, value.Validate(sp, child))
	}
}

func TestCrossoverStructBlendsFields(t *testing.T) {
	sp, err := spec.Parse([]byte("x:\n  type: int\ny:\n  type: int\n"))
	require.NoError(t, err)
	a := &value.Struct{Fields: map[string]value.Tree{"x": &value.Int{V: 1}, "y": &value.Int{V: 1}}}
	b := &value.Struct{Fields: map[string]value.Tree{"x": &value.Int{V: 2}, "y": &value.Int{V: 2}}}

	rng := NewRNG(15)
	fromA, fromB := 0, 0
	for i := 0; i < 200; i++ {
		child := Crossover(sp, a, b, 0.5, rng).(*value.Struct)
		for _, f := range child.Fields {
			switch f.(*value.Int).V {
			case 1:
				fromA++
			case 2:
				fromB++
			}
		}
	}
	assert.Positive(t, fromA)
	assert.Positive(t, fromB)
}

func TestCrossoverOptionalPresenceDisagreement(t *testing.T) {
	sp := &spec.Optional{Elem: &spec.Bool{}}
	a := &value.Optional{Elem: &value.Bool{V: true}}
	b := &value.Optional{}
	rng := NewRNG(16)

	present, absent := 0, 0
	for i := 0; i < 200; i++ {
		child := Crossover(sp, a, b, 0, rng).(*value.Optional)
		if child.Present() {
			present++
		} else {
			absent++
		}
	}
	// Adoption is a fair coin, so both outcomes must occur.
	assert.Positive(t, present)
	assert.Positive(t, absent)
}

func TestCrossoverVariantDisagreementAdoptsOneParent(t *testing.T) {
	sp := kitchenSink(t).(*spec.Struct).Fields["optimizer"].(*spec.Variant)
	a := value.Initial(sp).(*value.Variant) // sgd
	b := &value.Variant{Label: "none", Elem: &value.Const{}}
	rng := NewRNG(17)

	labels := map[string]int{}
	for i := 0; i < 200; i++ {
		child := Crossover(sp, a, b, 0, rng).(*value.Variant)
		require.NoError(t, value.Validate(sp, child))
		labels[child.Label]++
	}
	assert.Positive(t, labels["sgd"])
	assert.Positive(t, labels["none"])
	assert.Len(t, labels, 2)
}

func TestCrossoverListBlendsLengths(t *testing.T) {
	sp, err := spec.Parse([]byte("type: list\nvalueType:\n  type: int\nminLen: 1\nmaxLen: 6\n"))
	require.NoError(t, err)
	listSpec := sp.(*spec.List)

	mk := func(vals ...int64) *value.List {
		elems := make([]value.Tree, len(vals))
		for i, v := range vals {
			elems[i] = &value.Int{V: v}
		}
		return &value.List{Elems: elems}
	}
	a := mk(1, 1)
	b := mk(2, 2, 2, 2, 2, 2)

	rng := NewRNG(18)
	lengths := map[int]int{}
	for i := 0; i < 500; i++ {
		child := Crossover(listSpec, a, b, 0.5, rng).(*value.List)
		require.NoError(t, value.Validate(listSpec, child))
		lengths[len(child.Elems)]++
	}
	// Excess elements are gated one by one, so intermediate lengths occur.
	assert.Greater(t, len(lengths), 2)
}

func TestCrossoverSeedReproducible(t *testing.T) {
	sp := kitchenSink(t)
	run := func() string {
		rng := NewRNG(99)
		a := value.Initial(sp)
		b := Mutate(sp, a, 0.8, 1, rng)
		child := Crossover(sp, a, b, 0.5, rng)
		data, err := value.Encode(child)
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, run(), run())
}
