package engine

import (
	"encoding/json"
	"time"

	"github.com/evotune/evotune/pkg/evolve"
)

// EventType discriminates the progress events published on the report
// channel.
type EventType int

const (
	// EventDispatched fires when a candidate is handed to a worker slot.
	EventDispatched EventType = iota
	// EventEvaluated fires when an evaluation resolves, whatever its status.
	EventEvaluated
	// EventImproved fires when a completed evaluation improves the best
	// fitness seen so far.
	EventImproved
	// EventTerminated fires exactly once, after the last in-flight
	// evaluation resolved.
	EventTerminated
)

// EvalStatus classifies a resolved evaluation.
type EvalStatus string

const (
	StatusCompleted EvalStatus = "completed"
	StatusRejected  EvalStatus = "rejected"
	StatusFailed    EvalStatus = "failed"
)

// Event is one progress report. Only the fields relevant to the event type
// are set.
type Event struct {
	Type  EventType
	RunID string
	Time  time.Time

	// Dispatched / evaluated / improved.
	IndividualID uint64
	Carrier      *evolve.Carrier
	Input        json.RawMessage

	// Evaluated.
	Status   EvalStatus
	Fitness  float64 // valid when Status == StatusCompleted
	EvalTime time.Duration
	Stdout   string // failure diagnostics
	Stderr   string

	// Improved / terminated.
	BestFitness float64

	// Terminated.
	Reason            Reason
	Completed         int
	Rejected          int
	Failed            int
	Elapsed           time.Duration
	PopulationSize    int
	PopulationFitness []float64
}
