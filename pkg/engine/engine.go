// Package engine is the reactive scheduler of an optimization run: a
// bounded pool of worker slots continuously refilled with fresh candidates,
// a termination controller driving graceful shutdown, a broadcast report
// channel and a single-consumer command queue. There are no generations and
// no synchronization barriers; results apply in completion order and the
// population is the only shared coordination point.
package engine

import (
	"context"
	stderrors "errors"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/evotune/evotune/pkg/errors"
	"github.com/evotune/evotune/pkg/evolve"
	"github.com/evotune/evotune/pkg/logging"
	"github.com/evotune/evotune/pkg/objective"
	"github.com/evotune/evotune/pkg/spec"
	"github.com/evotune/evotune/pkg/value"
)

// Config tunes one optimization run.
type Config struct {
	// Concurrency is the number of worker slots K. Defaults to the number
	// of CPUs.
	Concurrency int
	// PopulationSize bounds the population. Defaults to 1000.
	PopulationSize int
	// Seed fixes the run's random source. Zero means seed from the clock.
	Seed uint64
	// InitialGuess overrides the spec's initial value as the seed
	// candidate. May be nil.
	InitialGuess value.Tree
	// Criteria are the stopping conditions.
	Criteria Criteria
	// TickInterval is the period of the deadline check. Defaults to 250ms.
	TickInterval time.Duration
}

// Outcome summarizes a finished run.
type Outcome struct {
	RunID string
	// Best is the best individual found, nil when no evaluation completed.
	Best           *evolve.Individual
	Reason         Reason
	Completed      int
	Rejected       int
	Failed         int
	Elapsed        time.Duration
	PopulationSize int
}

// Engine drives one optimization run. Create with New, then Run once.
type Engine struct {
	spec        spec.Node
	eval        objective.Evaluator
	cfg         Config
	runID       string
	logger      *logging.Logger
	pop         *evolve.Population
	producer    *evolve.Producer
	broadcaster *Broadcaster
	commands    chan Command
	slots       *slotTable
}

// New validates the configuration and assembles an engine.
func New(sp spec.Node, eval objective.Evaluator, cfg Config) (*Engine, error) {
	if sp == nil {
		return nil, errors.New(errors.InvalidInput, "engine needs a parameter space")
	}
	if eval == nil {
		return nil, errors.New(errors.InvalidInput, "engine needs an evaluator")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.PopulationSize <= 0 {
		cfg.PopulationSize = 1000
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 250 * time.Millisecond
	}
	if cfg.InitialGuess != nil {
		if err := value.Validate(sp, cfg.InitialGuess); err != nil {
			return nil, errors.Wrap(err, errors.InvalidInput, "initial guess does not conform to the parameter space")
		}
	}

	pop := evolve.NewPopulation(cfg.PopulationSize)
	rng := evolve.NewRNG(cfg.Seed)
	return &Engine{
		spec:        sp,
		eval:        eval,
		cfg:         cfg,
		runID:       uuid.New().String(),
		logger:      logging.GetLogger(),
		pop:         pop,
		producer:    evolve.NewProducer(sp, pop, rng, cfg.InitialGuess),
		broadcaster: NewBroadcaster(),
		commands:    make(chan Command, 8),
		slots:       newSlotTable(cfg.Concurrency),
	}, nil
}

// RunID returns the run's UUID, stamped on every event and report.
func (e *Engine) RunID() string { return e.runID }

// Subscribe registers a report subscriber before or during the run. The
// returned channel closes once the run terminated and the final event was
// published.
func (e *Engine) Subscribe(buffer int) <-chan Event {
	return e.broadcaster.Subscribe(buffer)
}

// Command enqueues a control directive without blocking; when the queue is
// full the command is dropped with a warning.
func (e *Engine) Command(c Command) {
	select {
	case e.commands <- c:
	default:
		e.logger.Warn(context.Background(), "command queue full, dropping %s", c)
	}
}

// SlotStates returns a copy of the per-slot states.
func (e *Engine) SlotStates() []SlotState {
	return e.slots.snapshot()
}

// Population returns the run's population for read access.
func (e *Engine) Population() *evolve.Population { return e.pop }

// completion carries one resolved evaluation back to the run loop.
type completion struct {
	slot    int
	cand    *evolve.Candidate
	arg     []byte
	res     *objective.Result
	err     error
	elapsed time.Duration
}

// runState is the loop-confined mutable bookkeeping of one Run call.
type runState struct {
	ctrl       *controller
	cancelAll  context.CancelFunc
	dispatched int
	inflight   int
	completed  int
	rejected   int
	failed     int
	start      time.Time
}

func (r *runState) resolved() int { return r.completed + r.rejected + r.failed }

// Run executes the optimization until a stopping criterion fires and every
// in-flight evaluation resolved. Cancelling ctx escalates directly to
// cancelling in-flight evaluations.
func (e *Engine) Run(ctx context.Context) (*Outcome, error) {
	start := time.Now()
	evalCtx, cancelAll := context.WithCancel(context.Background())
	defer cancelAll()

	st := &runState{
		ctrl:      newController(e.cfg.Criteria, start),
		cancelAll: cancelAll,
		start:     start,
	}
	completions := make(chan completion)
	workers := pool.New().WithMaxGoroutines(e.cfg.Concurrency)
	tick := time.NewTicker(e.cfg.TickInterval)
	defer tick.Stop()

	e.logger.Info(ctx, "run %s started: %d slots, population %d, seed %d",
		e.runID, e.cfg.Concurrency, e.cfg.PopulationSize, e.cfg.Seed)

	done := ctx.Done()
	for {
		e.refill(evalCtx, st, workers, completions)
		if st.ctrl.stopping() && st.inflight == 0 {
			break
		}

		select {
		case c := <-completions:
			st.inflight--
			e.apply(st, c)
		case cmd := <-e.commands:
			e.handleCommand(st, cmd)
		case now := <-tick.C:
			st.ctrl.observe(st.resolved(), e.pop.Best(), now)
		case <-done:
			e.logger.Warn(ctx, "context canceled, aborting in-flight evaluations")
			st.ctrl.trigger(ReasonCanceled)
			st.cancelAll()
			done = nil
		}
	}
	workers.Wait()
	st.ctrl.state = StateTerminated

	elapsed := time.Since(start)
	best := e.pop.Best()
	outcome := &Outcome{
		RunID:          e.runID,
		Best:           best,
		Reason:         st.ctrl.reason,
		Completed:      st.completed,
		Rejected:       st.rejected,
		Failed:         st.failed,
		Elapsed:        elapsed,
		PopulationSize: e.pop.Len(),
	}
	ev := Event{
		Type:              EventTerminated,
		RunID:             e.runID,
		Time:              time.Now(),
		Reason:            st.ctrl.reason,
		Completed:         st.completed,
		Rejected:          st.rejected,
		Failed:            st.failed,
		Elapsed:           elapsed,
		PopulationSize:    e.pop.Len(),
		PopulationFitness: e.pop.Fitnesses(),
	}
	if best != nil {
		ev.BestFitness = best.Fitness
		ev.IndividualID = best.ID
		if arg, err := value.Encode(best.Value); err == nil {
			ev.Input = arg
		}
	}
	e.broadcaster.Publish(ev)
	e.broadcaster.Close()
	e.logger.Info(ctx, "run %s terminated: %s (%d completed, %d rejected, %d failed in %v)",
		e.runID, st.ctrl.reason, st.completed, st.rejected, st.failed, elapsed.Round(time.Millisecond))
	return outcome, nil
}

// refill dispatches candidates into every idle slot while spawning is
// allowed and the evaluation budget permits.
func (e *Engine) refill(evalCtx context.Context, st *runState, workers *pool.Pool, completions chan<- completion) {
	if st.ctrl.stopping() {
		return
	}
	for i := 0; i < e.cfg.Concurrency; i++ {
		if e.slots.get(i) != SlotIdle {
			continue
		}
		if e.cfg.Criteria.MaxEvaluations > 0 && st.dispatched >= e.cfg.Criteria.MaxEvaluations {
			return
		}
		e.dispatch(evalCtx, st, i, workers, completions)
	}
}

func (e *Engine) dispatch(evalCtx context.Context, st *runState, slot int, workers *pool.Pool, completions chan<- completion) {
	e.slots.set(slot, SlotDispatching)
	cand := e.producer.Next()
	arg, err := value.Encode(cand.Value)
	if err != nil {
		// Candidates are produced from the spec, so this cannot happen
		// short of an internal invariant break. Count it as a failure.
		e.logger.Error(evalCtx, "cannot encode candidate %d: %v", cand.ID, err)
		e.slots.set(slot, SlotIdle)
		st.failed++
		return
	}
	st.dispatched++
	st.inflight++
	e.slots.set(slot, SlotAwaiting)
	e.broadcaster.Publish(Event{
		Type:         EventDispatched,
		RunID:        e.runID,
		Time:         time.Now(),
		IndividualID: cand.ID,
		Carrier:      cand.Carrier,
		Input:        arg,
	})
	e.logger.Debug(evalCtx, "slot %d: dispatching individual %d (%s)", slot, cand.ID, cand.Source())

	workers.Go(func() {
		t0 := time.Now()
		res, err := e.eval.Evaluate(evalCtx, arg)
		completions <- completion{
			slot:    slot,
			cand:    cand,
			arg:     arg,
			res:     res,
			err:     err,
			elapsed: time.Since(t0),
		}
	})
}

// apply routes one resolved evaluation into the population and the report
// channel, in completion order.
func (e *Engine) apply(st *runState, c completion) {
	ctx := context.Background()
	ev := Event{
		Type:         EventEvaluated,
		RunID:        e.runID,
		Time:         time.Now(),
		IndividualID: c.cand.ID,
		Carrier:      c.cand.Carrier,
		Input:        c.arg,
		EvalTime:     c.elapsed,
	}

	switch {
	case c.err != nil:
		st.failed++
		ev.Status = StatusFailed
		ev.Stdout, ev.Stderr = diagnostics(c.err)
		if code := errorCode(c.err); code == errors.Canceled || code == errors.Timeout {
			e.slots.set(c.slot, SlotCancelled)
		} else {
			e.slots.set(c.slot, SlotFailed)
		}
		e.logger.Warn(ctx, "individual %d failed after %v: %v", c.cand.ID, c.elapsed.Round(time.Millisecond), c.err)
	case c.res.Rejected:
		st.rejected++
		ev.Status = StatusRejected
		e.slots.set(c.slot, SlotCompleted)
		e.logger.Debug(ctx, "individual %d rejected by the objective function", c.cand.ID)
	default:
		st.completed++
		ev.Status = StatusCompleted
		ev.Fitness = c.res.Fitness
		e.slots.set(c.slot, SlotCompleted)
		prev := e.pop.Best()
		e.pop.Insert(&evolve.Individual{
			ID:      c.cand.ID,
			Value:   c.cand.Value,
			Fitness: c.res.Fitness,
			Carrier: c.cand.Carrier,
		})
		if prev == nil || c.res.Fitness < prev.Fitness {
			e.logger.Info(ctx, "individual %d improved the best fitness to %v", c.cand.ID, c.res.Fitness)
			e.broadcaster.Publish(Event{
				Type:         EventImproved,
				RunID:        e.runID,
				Time:         time.Now(),
				IndividualID: c.cand.ID,
				Carrier:      c.cand.Carrier,
				Input:        c.arg,
				BestFitness:  c.res.Fitness,
			})
		}
	}

	e.broadcaster.Publish(ev)
	st.ctrl.observe(st.resolved(), e.pop.Best(), time.Now())
	e.slots.set(c.slot, SlotIdle)
}

func (e *Engine) handleCommand(st *runState, cmd Command) {
	ctx := context.Background()
	switch cmd {
	case CommandStop:
		if st.ctrl.stopping() {
			e.logger.Warn(ctx, "second stop command, canceling in-flight evaluations")
			st.cancelAll()
			return
		}
		e.logger.Info(ctx, "stop command received, finishing in-flight evaluations")
		st.ctrl.trigger(ReasonInterrupted)
	case CommandCancel:
		e.logger.Warn(ctx, "cancel command received, aborting in-flight evaluations")
		st.ctrl.trigger(ReasonInterrupted)
		st.cancelAll()
	default:
		e.logger.Warn(ctx, "ignoring unknown command %d", int(cmd))
	}
}

// diagnostics extracts captured stdout/stderr from an evaluation error's
// structured fields.
func diagnostics(err error) (stdout, stderr string) {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return "", ""
	}
	fields := e.Fields()
	stdout, _ = fields["stdout"].(string)
	stderr, _ = fields["stderr"].(string)
	return stdout, stderr
}

func errorCode(err error) errors.ErrorCode {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Code()
	}
	return errors.Unknown
}
