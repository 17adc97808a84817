package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/evotune/evotune/pkg/engine"
	"github.com/evotune/evotune/pkg/errors"
)

// SummaryWriter writes a human-readable run summary once the run
// terminates.
type SummaryWriter struct {
	path string
}

func NewSummaryWriter(path string) *SummaryWriter {
	return &SummaryWriter{path: path}
}

func (s *SummaryWriter) Handle(ev engine.Event) error {
	if ev.Type != engine.EventTerminated {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "run id:              %s\n", ev.RunID)
	fmt.Fprintf(&b, "termination reason:  %s\n", ev.Reason)
	if ev.PopulationSize > 0 {
		fmt.Fprintf(&b, "best fitness:        %g\n", ev.BestFitness)
	} else {
		fmt.Fprintf(&b, "best fitness:        none (no successful evaluation)\n")
	}
	fmt.Fprintf(&b, "completed:           %d\n", ev.Completed)
	fmt.Fprintf(&b, "rejected:            %d\n", ev.Rejected)
	fmt.Fprintf(&b, "failed:              %d\n", ev.Failed)
	fmt.Fprintf(&b, "elapsed:             %v\n", ev.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "population size:     %d\n", ev.PopulationSize)
	if len(ev.PopulationFitness) > 1 {
		mean, std := stat.MeanStdDev(ev.PopulationFitness, nil)
		fmt.Fprintf(&b, "population fitness:  mean %g, stddev %g\n", mean, std)
	} else if len(ev.PopulationFitness) == 1 {
		fmt.Fprintf(&b, "population fitness:  mean %g\n", stat.Mean(ev.PopulationFitness, nil))
	}
	if err := os.WriteFile(s.path, []byte(b.String()), 0o644); err != nil {
		return errors.Wrap(err, errors.Unknown, "cannot write summary report")
	}
	return nil
}

func (s *SummaryWriter) Close() error { return nil }
