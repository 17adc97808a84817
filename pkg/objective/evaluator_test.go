package objective

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncAdapter(t *testing.T) {
	eval := Func(func(_ context.Context, arg []byte) (float64, error) {
		assert.Equal(t, `{"x":1}`, string(arg))
		return 2.5, nil
	})
	res, err := eval.Evaluate(context.Background(), []byte(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, 2.5, res.Fitness)
	assert.False(t, res.Rejected)
}

func TestFuncAdapterError(t *testing.T) {
	eval := Func(func(context.Context, []byte) (float64, error) {
		return 0, fmt.Errorf("boom")
	})
	_, err := eval.Evaluate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "objective function failed")
}

func TestFuncAdapterNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		eval := Func(func(context.Context, []byte) (float64, error) { return v, nil })
		_, err := eval.Evaluate(context.Background(), nil)
		require.Error(t, err, "value %v", v)
	}
}
