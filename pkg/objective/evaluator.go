// Package objective invokes the objective function for one candidate and
// parses its result. The canonical evaluator runs an external program
// (process.go); Func wraps an in-process Go function for tests and library
// use. Evaluation failures are always local to one candidate: they are
// surfaced as errors, discarded by the engine, and never halt a run.
package objective

import (
	"context"
	"math"

	"github.com/evotune/evotune/pkg/errors"
)

// Result is a resolved evaluation. Rejected marks a candidate the objective
// function declared infeasible (objFuncVal null); a rejection carries no
// fitness and is bookkept like a failure without being an error.
type Result struct {
	Fitness  float64
	Rejected bool
}

// Evaluator computes the objective value for one candidate, passed as its
// single-line wire JSON. Implementations must honor context cancellation.
type Evaluator interface {
	Evaluate(ctx context.Context, arg []byte) (*Result, error)
}

// Func adapts an in-process function to the Evaluator interface.
type Func func(ctx context.Context, arg []byte) (float64, error)

// Evaluate runs the function and rejects non-finite results.
func (f Func) Evaluate(ctx context.Context, arg []byte) (*Result, error) {
	v, err := f(ctx, arg)
	if err != nil {
		return nil, errors.Wrap(err, errors.EvalFailed, "objective function failed")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, errors.New(errors.EvalFailed, "objective function returned a non-finite value")
	}
	return &Result{Fitness: v}, nil
}
