package objective

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/evotune/evotune/pkg/errors"
	"github.com/evotune/evotune/pkg/logging"
)

// ProcessEvaluator runs an external objective program once per candidate.
// The candidate's wire JSON is appended as the final argument; the program
// must print a JSON object with a numeric objFuncVal field to stdout. The
// program runs in its own process group so that cancellation and the
// KillAfter timeout can reap the whole tree, never just the leader.
type ProcessEvaluator struct {
	Program string
	Args    []string
	// KillAfter terminates the process group when one evaluation runs
	// longer. Zero means no per-evaluation timeout.
	KillAfter time.Duration

	logger *logging.Logger
}

// NewProcess creates a process evaluator for the given command line.
func NewProcess(program string, args []string, killAfter time.Duration) *ProcessEvaluator {
	return &ProcessEvaluator{
		Program:   program,
		Args:      args,
		KillAfter: killAfter,
		logger:    logging.GetLogger(),
	}
}

// Evaluate invokes the program and parses its result. A non-zero exit,
// unstartable program, unparsable output, missing objFuncVal field or
// non-finite value is an EvalFailed error carrying the captured stdout,
// stderr and argument as fields. Context cancellation and the KillAfter
// timeout kill the process group and fail with Canceled or Timeout.
func (p *ProcessEvaluator) Evaluate(ctx context.Context, arg []byte) (*Result, error) {
	args := append(slices.Clone(p.Args), string(arg))
	cmd := exec.Command(p.Program, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.EvalFailed, "cannot start objective program"),
			errors.Fields{"program": p.Program},
		)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timeout <-chan time.Time
	if p.KillAfter > 0 {
		timer := time.NewTimer(p.KillAfter)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-done:
		return p.finish(err, arg, stdout.String(), stderr.String())
	case <-ctx.Done():
		p.logger.Debug(ctx, "killing objective process group: evaluation canceled")
		killProcessGroup(cmd)
		<-done
		return nil, errors.Wrap(ctx.Err(), errors.Canceled, "evaluation canceled")
	case <-timeout:
		p.logger.Debug(ctx, "killing objective process group after %v timeout", p.KillAfter)
		killProcessGroup(cmd)
		<-done
		return nil, errors.WithFields(
			errors.New(errors.Timeout, "objective program exceeded the evaluation timeout"),
			errors.Fields{"killAfter": p.KillAfter.String()},
		)
	}
}

func (p *ProcessEvaluator) finish(waitErr error, arg []byte, stdout, stderr string) (*Result, error) {
	diag := errors.Fields{
		"arg":    string(arg),
		"stdout": stdout,
		"stderr": stderr,
	}
	if waitErr != nil {
		return nil, errors.WithFields(
			errors.Wrap(waitErr, errors.EvalFailed, "objective program exited unsuccessfully"),
			diag,
		)
	}

	line := lastNonEmptyLine(stdout)
	if line == "" {
		return nil, errors.WithFields(
			errors.New(errors.EvalFailed, "objective program produced no output"), diag)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.EvalFailed, "objective program output is not a JSON object"), diag)
	}
	raw, ok := fields["objFuncVal"]
	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.EvalFailed, "objective program output lacks the objFuncVal field"), diag)
	}
	if string(raw) == "null" {
		return &Result{Rejected: true}, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.EvalFailed, "objFuncVal is not a number"), diag)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, errors.WithFields(
			errors.New(errors.EvalFailed, "objFuncVal is not finite"), diag)
	}
	return &Result{Fitness: v}, nil
}

// lastNonEmptyLine returns the last line of out carrying any non-space
// content; other lines are ignored for parsing but kept as diagnostics.
func lastNonEmptyLine(out string) string {
	lines := strings.Split(out, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
