package evolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evotune/evotune/pkg/spec"
	"github.com/evotune/evotune/pkg/value"
)

const kitchenSinkYAML = `
flag:
  type: bool
count:
  type: int
  min: 0
  max: 10
  init: 5
  scale: 3
rate:
  type: real
  min: -1.5
  max: 1.5
  scale: 0.5
mode:
  type: enum
  variants: [fast, slow, batch]
layers:
  type: list
  valueType:
    type: real
    min: 0
    max: 1
    scale: 0.2
  minLen: 1
  maxLen: 4
  initLen: 2
momentum:
  type: optional
  valueType:
    type: real
    min: 0
    max: 1
    scale: 0.05
  initPresent: true
optimizer:
  type: variant
  init: sgd
  sgd:
    lr:
      type: real
      min: 0.0001
      max: 1
      init: 0.01
      scale: 0.01
  none:
    type: const
`

func kitchenSink(t *testing.T) spec.Node {
	t.Helper()
	sp, err := spec.Parse([]byte(kitchenSinkYAML))
	require.NoError(t, err)
	return sp
}

func TestMutateZeroProbabilityIsIdentity(t *testing.T) {
	sp := kitchenSink(t)
	rng := NewRNG(1)
	v := value.Initial(sp)
	for i := 0; i < 50; i++ {
		mutated := Mutate(sp, v, 0, 1, rng)
		assert.True(t, value.Equal(v, mutated))
	}
}

func TestMutateIsPure(t *testing.T) {
	sp := kitchenSink(t)
	rng := NewRNG(2)
	v := value.Initial(sp)
	snapshot, err := value.Encode(v)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		Mutate(sp, v, 1, 1, rng)
	}
	after, err := value.Encode(v)
	require.NoError(t, err)
	assert.Equal(t, string(snapshot), string(after), "input tree must never change")
}

func TestMutateAlwaysConforms(t *testing.T) {
	sp := kitchenSink(t)
	rng := NewRNG(3)
	v := value.Initial(sp)
	for i := 0; i < 500; i++ {
		v = Mutate(sp, v, 0.7, 2.0, rng)
		require.NoError(t, value.Validate(sp, v))
	}
}

func TestMutateBoolFlips(t *testing.T) {
	sp := &spec.Bool{}
	rng := NewRNG(4)
	v := Mutate(sp, &value.Bool{V: false}, 1, 1, rng)
	assert.True(t, v.(*value.Bool).V)
}

func TestMutateClampsNumericBounds(t *testing.T) {
	sp := kitchenSink(t)
	rng := NewRNG(5)
	v := value.Initial(sp)
	for i := 0; i < 300; i++ {
		// Large width drives most draws past the bounds.
		v = Mutate(sp, v, 1, 100, rng)
		root := v.(*value.Struct)
		count := root.Fields["count"].(*value.Int).V
		assert.GreaterOrEqual(t, count, int64(0))
		assert.LessOrEqual(t, count, int64(10))
		rate := root.Fields["rate"].(*value.Real).V
		assert.GreaterOrEqual(t, rate, -1.5)
		assert.LessOrEqual(t, rate, 1.5)
	}
}

func TestMutateEnumResamplesAmongOthers(t *testing.T) {
	sp := &spec.Enum{Variants: []string{"a", "b", "c"}, Init: "a"}
	rng := NewRNG(6)
	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		v := Mutate(sp, &value.Enum{Label: "a"}, 1, 1, rng)
		seen[v.(*value.Enum).Label]++
	}
	assert.Zero(t, seen["a"], "p=1 must always pick a different variant")
	assert.Positive(t, seen["b"])
	assert.Positive(t, seen["c"])
}

func TestMutateSingleVariantEnumIsStable(t *testing.T) {
	sp := &spec.Enum{Variants: []string{"only"}, Init: "only"}
	rng := NewRNG(7)
	v := Mutate(sp, &value.Enum{Label: "only"}, 1, 1, rng)
	assert.Equal(t, "only", v.(*value.Enum).Label)
}

func TestMutateOptionalToggles(t *testing.T) {
	sp := &spec.Optional{Elem: &spec.Bool{Init: true}}
	rng := NewRNG(8)

	v := Mutate(sp, &value.Optional{}, 1, 1, rng)
	opt := v.(*value.Optional)
	require.True(t, opt.Present(), "p=1 must toggle an absent optional to present")

	v = Mutate(sp, opt, 1, 1, rng)
	assert.False(t, v.(*value.Optional).Present())
}

func TestMutateVariantSwitchInitializesPayload(t *testing.T) {
	sp := kitchenSink(t).(*spec.Struct).Fields["optimizer"]
	rng := NewRNG(9)
	v := value.Initial(sp)
	sawSwitch := false
	for i := 0; i < 100; i++ {
		v = Mutate(sp, v, 1, 1, rng)
		require.NoError(t, value.Validate(sp, v))
		if v.(*value.Variant).Label == "none" {
			sawSwitch = true
		}
	}
	assert.True(t, sawSwitch)
}

func TestMutateListLengthStaysWithinBounds(t *testing.T) {
	sp := kitchenSink(t).(*spec.Struct).Fields["layers"]
	rng := NewRNG(10)
	v := value.Initial(sp)
	lengths := map[int]int{}
	for i := 0; i < 1000; i++ {
		v = Mutate(sp, v, 0.8, 1, rng)
		n := len(v.(*value.List).Elems)
		require.GreaterOrEqual(t, n, 1)
		require.LessOrEqual(t, n, 4)
		lengths[n]++
	}
	assert.Greater(t, len(lengths), 1, "lengths should actually vary")
}

func TestMutateSeedReproducible(t *testing.T) {
	sp := kitchenSink(t)
	run := func() string {
		rng := NewRNG(42)
		v := value.Initial(sp)
		for i := 0; i < 50; i++ {
			v = Mutate(sp, v, 0.5, 1, rng)
		}
		data, err := value.Encode(v)
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, run(), run())
}
