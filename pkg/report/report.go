// Package report turns engine events into run artifacts: a per-evaluation
// CSV, a best-seen candidate JSON, a terminal summary, first-failure
// diagnostics dumps and an optional SQLite evaluation history. Every sink is
// a report-channel subscriber; none sits on the scheduler's critical path,
// and a sink failure is logged, never fatal.
package report

import (
	"context"

	"github.com/evotune/evotune/pkg/engine"
	"github.com/evotune/evotune/pkg/logging"
)

// Sink consumes progress events. Handle errors are the sink's own to report;
// the pump ignores them.
type Sink interface {
	Handle(ev engine.Event) error
	Close() error
}

// Pump drains a subscription into the given sinks until the channel closes.
// Run it on its own goroutine alongside the engine.
func Pump(events <-chan engine.Event, sinks ...Sink) {
	logger := logging.GetLogger()
	for ev := range events {
		for _, s := range sinks {
			if err := s.Handle(ev); err != nil {
				logger.Warn(context.Background(), "report sink error: %v", err)
			}
		}
	}
}
