package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evotune/evotune/pkg/objective"
	"github.com/evotune/evotune/pkg/spec"
)

func realSpec(t *testing.T) spec.Node {
	t.Helper()
	sp, err := spec.Parse([]byte("x:\n  type: real\n  min: -10\n  max: 10\n  init: 1\n  scale: 0.1\n"))
	require.NoError(t, err)
	return sp
}

func squareObjective() objective.Evaluator {
	return objective.Func(func(_ context.Context, arg []byte) (float64, error) {
		var cand struct {
			X float64 `json:"x"`
		}
		if err := json.Unmarshal(arg, &cand); err != nil {
			return 0, err
		}
		return cand.X * cand.X, nil
	})
}

func fptr(v float64) *float64 { return &v }

func TestRunReachesTarget(t *testing.T) {
	sp := realSpec(t)
	eng, err := New(sp, squareObjective(), Config{
		Concurrency: 4,
		Seed:        1,
		Criteria: Criteria{
			TargetValue:    fptr(1e-3),
			MaxEvaluations: 50000,
		},
	})
	require.NoError(t, err)

	outcome, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonTargetReached, outcome.Reason)
	require.NotNil(t, outcome.Best)
	assert.LessOrEqual(t, outcome.Best.Fitness, 1e-3)
	assert.Positive(t, outcome.Completed)
}

func TestRunAllFailuresTerminatesViaBudget(t *testing.T) {
	sp := realSpec(t)
	failing := objective.Func(func(context.Context, []byte) (float64, error) {
		return 0, fmt.Errorf("always broken")
	})
	eng, err := New(sp, failing, Config{
		Concurrency: 3,
		Seed:        2,
		Criteria: Criteria{
			TargetValue:    fptr(1e-3),
			MaxEvaluations: 40,
		},
	})
	require.NoError(t, err)

	outcome, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonBudgetExhausted, outcome.Reason)
	assert.Nil(t, outcome.Best)
	assert.Zero(t, outcome.Completed)
	assert.Equal(t, 40, outcome.Failed)
	assert.Zero(t, outcome.PopulationSize)
}

func TestRunFailuresDoNotHaltTheRun(t *testing.T) {
	sp := realSpec(t)
	var calls atomic.Int64
	flaky := objective.Func(func(_ context.Context, arg []byte) (float64, error) {
		if calls.Add(1)%3 == 0 {
			return 0, fmt.Errorf("transient failure")
		}
		var cand struct {
			X float64 `json:"x"`
		}
		if err := json.Unmarshal(arg, &cand); err != nil {
			return 0, err
		}
		return cand.X * cand.X, nil
	})
	eng, err := New(sp, flaky, Config{
		Concurrency: 2,
		Seed:        3,
		Criteria:    Criteria{MaxEvaluations: 60},
	})
	require.NoError(t, err)

	outcome, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, outcome.Completed)
	assert.Positive(t, outcome.Failed)
	assert.Equal(t, 60, outcome.Completed+outcome.Rejected+outcome.Failed)
}

func TestRunNeverExceedsConcurrency(t *testing.T) {
	sp := realSpec(t)
	const k = 3
	var inflight, highWater atomic.Int64
	blocking := objective.Func(func(context.Context, []byte) (float64, error) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			hw := highWater.Load()
			if n <= hw || highWater.CompareAndSwap(hw, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return 1, nil
	})
	eng, err := New(sp, blocking, Config{
		Concurrency: k,
		Seed:        4,
		Criteria:    Criteria{MaxEvaluations: 50},
	})
	require.NoError(t, err)

	_, err = eng.Run(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, highWater.Load(), int64(k))
	assert.Positive(t, highWater.Load())
}

func TestRunBudgetGatesDispatch(t *testing.T) {
	sp := realSpec(t)
	var dispatched atomic.Int64
	counting := objective.Func(func(context.Context, []byte) (float64, error) {
		dispatched.Add(1)
		return 1, nil
	})
	eng, err := New(sp, counting, Config{
		Concurrency: 8,
		Seed:        5,
		Criteria:    Criteria{MaxEvaluations: 10},
	})
	require.NoError(t, err)

	outcome, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), dispatched.Load(), "never start more evaluations than the budget")
	assert.Equal(t, ReasonBudgetExhausted, outcome.Reason)
}

func TestRunGracefulStopWaitsForInflight(t *testing.T) {
	sp := realSpec(t)
	var started, finished atomic.Int64
	release := make(chan struct{})
	var releaseOnce sync.Once
	slow := objective.Func(func(context.Context, []byte) (float64, error) {
		started.Add(1)
		<-release
		finished.Add(1)
		return 1, nil
	})
	eng, err := New(sp, slow, Config{Concurrency: 2, Seed: 6})
	require.NoError(t, err)

	go func() {
		for started.Load() < 2 {
			time.Sleep(time.Millisecond)
		}
		eng.Command(CommandStop)
		time.Sleep(50 * time.Millisecond)
		releaseOnce.Do(func() { close(release) })
	}()

	outcome, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonInterrupted, outcome.Reason)
	assert.Equal(t, started.Load(), finished.Load(), "in-flight work must finish")
	assert.Equal(t, int(started.Load()), outcome.Completed)
	require.NotNil(t, outcome.Best, "best-so-far survives an interrupt")

	for _, s := range eng.SlotStates() {
		assert.Equal(t, SlotIdle, s)
	}
}

func TestRunSecondStopCancelsInflight(t *testing.T) {
	sp := realSpec(t)
	var started atomic.Int64
	hanging := objective.Func(func(ctx context.Context, _ []byte) (float64, error) {
		started.Add(1)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	eng, err := New(sp, hanging, Config{Concurrency: 2, Seed: 7})
	require.NoError(t, err)

	go func() {
		for started.Load() < 2 {
			time.Sleep(time.Millisecond)
		}
		eng.Command(CommandStop)
		time.Sleep(20 * time.Millisecond)
		eng.Command(CommandStop)
	}()

	type result struct {
		outcome *Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, rerr := eng.Run(context.Background())
		done <- result{outcome, rerr}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, ReasonInterrupted, r.outcome.Reason)
		assert.Equal(t, int(started.Load()), r.outcome.Failed)
	case <-time.After(10 * time.Second):
		t.Fatal("escalated stop did not cancel in-flight evaluations")
	}
}

func TestRunContextCancelAborts(t *testing.T) {
	sp := realSpec(t)
	hanging := objective.Func(func(ctx context.Context, _ []byte) (float64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	eng, err := New(sp, hanging, Config{Concurrency: 2, Seed: 8})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	outcome, err := eng.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReasonCanceled, outcome.Reason)
}

func TestRunDeadline(t *testing.T) {
	sp := realSpec(t)
	eng, err := New(sp, squareObjective(), Config{
		Concurrency:  2,
		Seed:         9,
		TickInterval: 10 * time.Millisecond,
		Criteria:     Criteria{Timeout: 100 * time.Millisecond},
	})
	require.NoError(t, err)

	start := time.Now()
	outcome, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReasonDeadlineExceeded, outcome.Reason)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunPublishesEvents(t *testing.T) {
	sp := realSpec(t)
	eng, err := New(sp, squareObjective(), Config{
		Concurrency: 1,
		Seed:        10,
		Criteria:    Criteria{MaxEvaluations: 5},
	})
	require.NoError(t, err)

	events := eng.Subscribe(64)
	outcome, err := eng.Run(context.Background())
	require.NoError(t, err)

	var dispatched, evaluated, improved, terminated int
	for ev := range events {
		assert.Equal(t, eng.RunID(), ev.RunID)
		switch ev.Type {
		case EventDispatched:
			dispatched++
		case EventEvaluated:
			evaluated++
			assert.Equal(t, StatusCompleted, ev.Status)
			assert.NotEmpty(t, ev.Input)
		case EventImproved:
			improved++
		case EventTerminated:
			terminated++
			assert.Equal(t, outcome.Reason, ev.Reason)
			assert.Equal(t, outcome.Completed, ev.Completed)
		}
	}
	assert.Equal(t, 5, dispatched)
	assert.Equal(t, 5, evaluated)
	assert.Positive(t, improved)
	assert.Equal(t, 1, terminated)
}

func TestRunRejectionsCountSeparately(t *testing.T) {
	sp := realSpec(t)
	var calls atomic.Int64
	// Rejects every other candidate, completes the rest with a flat fitness.
	wrapper := evaluatorFunc(func(context.Context, []byte) (*objective.Result, error) {
		if calls.Add(1)%2 == 0 {
			return &objective.Result{Rejected: true}, nil
		}
		return &objective.Result{Fitness: 1}, nil
	})
	eng, err := New(sp, wrapper, Config{
		Concurrency: 2,
		Seed:        11,
		Criteria:    Criteria{MaxEvaluations: 20},
	})
	require.NoError(t, err)

	outcome, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, outcome.Rejected)
	assert.Positive(t, outcome.Completed)
	assert.Equal(t, 20, outcome.Completed+outcome.Rejected+outcome.Failed)
}

type evaluatorFunc func(ctx context.Context, arg []byte) (*objective.Result, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, arg []byte) (*objective.Result, error) {
	return f(ctx, arg)
}

func TestNewValidatesInput(t *testing.T) {
	sp := realSpec(t)
	_, err := New(nil, squareObjective(), Config{})
	assert.Error(t, err)
	_, err = New(sp, nil, Config{})
	assert.Error(t, err)
}
