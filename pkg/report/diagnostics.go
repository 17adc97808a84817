package report

import (
	"os"
	"path/filepath"

	"github.com/evotune/evotune/pkg/engine"
	"github.com/evotune/evotune/pkg/errors"
)

// DiagnosticsWriter dumps the argument, stdout and stderr of the first hard
// evaluation failure of a run, once, for post-mortem inspection.
type DiagnosticsWriter struct {
	dir     string
	written bool
}

func NewDiagnosticsWriter(dir string) *DiagnosticsWriter {
	return &DiagnosticsWriter{dir: dir}
}

func (d *DiagnosticsWriter) Handle(ev engine.Event) error {
	if d.written || ev.Type != engine.EventEvaluated || ev.Status != engine.StatusFailed {
		return nil
	}
	d.written = true
	dumps := map[string][]byte{
		"failed_eval_arg":    ev.Input,
		"failed_eval_stdout": []byte(ev.Stdout),
		"failed_eval_stderr": []byte(ev.Stderr),
	}
	for name, data := range dumps {
		if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
			return errors.Wrap(err, errors.Unknown, "cannot write failure diagnostics")
		}
	}
	return nil
}

func (d *DiagnosticsWriter) Close() error { return nil }
