// Package evotune is an asynchronous adaptive genetic optimizer for
// black-box objective functions. Given a hierarchical parameter space and an
// external objective program, it searches for parameter values minimizing
// the program's output.
//
// Key components:
//
//   - spec: the immutable parameter-space tree, parsed from YAML
//     (bool/int/real/enum/const leaves; optional/variant/list/sub
//     composites).
//
//   - value: candidate trees mirroring a spec tree, with conformance
//     validation and the single-line wire JSON encoding handed to the
//     objective program.
//
//   - evolve: the genetic machinery. Recursive mutation and crossover over
//     value trees, a bounded fitness-ordered population, rank-biased
//     selection, and per-individual meta-parameters (mutation probability,
//     mutation width, crossover probability, selection pressure) that
//     co-evolve through the same tree operators over a fixed auxiliary
//     spec.
//
//   - objective: the evaluation client. Runs the external program in its
//     own process group with the candidate JSON as final argument, parses
//     the objFuncVal result and reaps the whole group on cancellation or
//     timeout.
//
//   - engine: the reactive scheduler. A bounded pool of worker slots is
//     refilled the instant a slot frees, with no generational barriers;
//     results apply in completion order. A termination controller drives
//     graceful shutdown (target value, evaluation budget, deadline,
//     interrupt), a broadcast channel mirrors progress to subscribers and a
//     command queue accepts external stop/cancel directives.
//
//   - report: subscriber sinks producing the per-evaluation CSV, best-seen
//     candidate JSON, run summary and SQLite evaluation history.
//
// Minimal example, minimizing an in-process function:
//
//	import (
//	    "context"
//	    "encoding/json"
//
//	    "github.com/evotune/evotune/pkg/engine"
//	    "github.com/evotune/evotune/pkg/objective"
//	    "github.com/evotune/evotune/pkg/spec"
//	)
//
//	func main() {
//	    space, err := spec.Parse([]byte("x:\n  type: real\n  min: -10\n  max: 10\n  scale: 0.1\n"))
//	    if err != nil {
//	        panic(err)
//	    }
//	    square := objective.Func(func(_ context.Context, arg []byte) (float64, error) {
//	        var cand struct {
//	            X float64 `json:"x"`
//	        }
//	        if err := json.Unmarshal(arg, &cand); err != nil {
//	            return 0, err
//	        }
//	        return cand.X * cand.X, nil
//	    })
//	    target := 1e-3
//	    eng, err := engine.New(space, square, engine.Config{
//	        Concurrency: 4,
//	        Criteria:    engine.Criteria{TargetValue: &target},
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//	    outcome, _ := eng.Run(context.Background())
//	    _ = outcome.Best
//	}
//
// The evotune command in cmd/evotune wraps the same engine around an
// external objective program; see its --help output for the CLI surface.
package evotune
