package report

import (
	"os"

	"github.com/evotune/evotune/pkg/engine"
	"github.com/evotune/evotune/pkg/errors"
)

// BestSeenWriter rewrites a JSON file with the best candidate seen so far
// on every improvement, so the current best survives even a hard kill.
type BestSeenWriter struct {
	path string
}

func NewBestSeenWriter(path string) *BestSeenWriter {
	return &BestSeenWriter{path: path}
}

func (b *BestSeenWriter) Handle(ev engine.Event) error {
	if ev.Type != engine.EventImproved || len(ev.Input) == 0 {
		return nil
	}
	data := append([]byte(nil), ev.Input...)
	data = append(data, '\n')
	if err := os.WriteFile(b.path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.Unknown, "cannot write best-seen file")
	}
	return nil
}

func (b *BestSeenWriter) Close() error { return nil }
