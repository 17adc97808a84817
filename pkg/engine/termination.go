package engine

import (
	"time"

	"github.com/evotune/evotune/pkg/evolve"
)

// Criteria are the stopping conditions of a run. Any combination may be
// set; with none the run continues until interrupted.
type Criteria struct {
	// TargetValue stops the run once the best fitness is not above it.
	TargetValue *float64
	// MaxEvaluations stops the run once that many evaluations resolved,
	// counting completions, rejections and failures alike. It also gates
	// dispatch: no more than MaxEvaluations evaluations are ever started.
	MaxEvaluations int
	// Timeout stops the run that long after it started.
	Timeout time.Duration
}

// State is the termination controller's phase.
type State int

const (
	// StateRunning: slots are refilled freely.
	StateRunning State = iota
	// StateStopSpawning: in-flight evaluations finish, no refills.
	StateStopSpawning
	// StateTerminated: all slots returned to idle, the run is over.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopSpawning:
		return "stop-spawning"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Reason records which criterion ended the run.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonTargetReached
	ReasonBudgetExhausted
	ReasonDeadlineExceeded
	ReasonInterrupted
	ReasonCanceled
)

func (r Reason) String() string {
	switch r {
	case ReasonTargetReached:
		return "target value reached"
	case ReasonBudgetExhausted:
		return "evaluation budget exhausted"
	case ReasonDeadlineExceeded:
		return "deadline exceeded"
	case ReasonInterrupted:
		return "interrupted"
	case ReasonCanceled:
		return "canceled"
	default:
		return "none"
	}
}

// controller evaluates the stopping criteria. It lives on the run loop and
// needs no locking.
type controller struct {
	criteria Criteria
	deadline time.Time
	state    State
	reason   Reason
}

func newController(criteria Criteria, now time.Time) *controller {
	c := &controller{criteria: criteria}
	if criteria.Timeout > 0 {
		c.deadline = now.Add(criteria.Timeout)
	}
	return c
}

// trigger moves to StateStopSpawning; the first trigger's reason sticks.
func (c *controller) trigger(r Reason) {
	if c.state == StateRunning {
		c.state = StateStopSpawning
		c.reason = r
	}
}

// observe checks the criteria after a resolved evaluation or a tick.
func (c *controller) observe(resolved int, best *evolve.Individual, now time.Time) {
	if c.criteria.TargetValue != nil && best != nil && best.Fitness <= *c.criteria.TargetValue {
		c.trigger(ReasonTargetReached)
	}
	if c.criteria.MaxEvaluations > 0 && resolved >= c.criteria.MaxEvaluations {
		c.trigger(ReasonBudgetExhausted)
	}
	if !c.deadline.IsZero() && !now.Before(c.deadline) {
		c.trigger(ReasonDeadlineExceeded)
	}
}

func (c *controller) stopping() bool {
	return c.state != StateRunning
}
