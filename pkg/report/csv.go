package report

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/evotune/evotune/pkg/engine"
	"github.com/evotune/evotune/pkg/errors"
)

var detailedHeader = []string{
	"individualId", "status", "evalTimeSeconds", "metaParamsSource",
	"crossoverProb", "selectionPressure", "mutationProb", "mutationScale",
	"inputVal", "objFuncVal",
}

// DetailedWriter appends one semicolon-separated row per resolved
// evaluation. Rows are flushed as they arrive so a killed run still leaves a
// usable report.
type DetailedWriter struct {
	f *os.File
	w *csv.Writer
}

// NewDetailedWriter creates the CSV file and writes the header.
func NewDetailedWriter(path string) (*DetailedWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "cannot create detailed report")
	}
	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write(detailedHeader); err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.Unknown, "cannot write detailed report header")
	}
	w.Flush()
	return &DetailedWriter{f: f, w: w}, nil
}

func (d *DetailedWriter) Handle(ev engine.Event) error {
	if ev.Type != engine.EventEvaluated {
		return nil
	}
	row := []string{
		strconv.FormatUint(ev.IndividualID, 10),
		string(ev.Status),
		strconv.FormatFloat(ev.EvalTime.Seconds(), 'f', 3, 64),
		"initial", "", "", "", "",
		string(ev.Input),
		"",
	}
	if c := ev.Carrier; c != nil {
		row[3] = c.Source.String()
		row[4] = strconv.FormatFloat(c.CrossoverProb, 'g', -1, 64)
		row[5] = strconv.FormatFloat(c.SelectionPressure, 'g', -1, 64)
		row[6] = strconv.FormatFloat(c.MutationProb, 'g', -1, 64)
		row[7] = strconv.FormatFloat(c.MutationScale, 'g', -1, 64)
	}
	if ev.Status == engine.StatusCompleted {
		row[9] = strconv.FormatFloat(ev.Fitness, 'g', -1, 64)
	}
	if err := d.w.Write(row); err != nil {
		return errors.Wrap(err, errors.Unknown, "cannot write detailed report row")
	}
	d.w.Flush()
	return d.w.Error()
}

func (d *DetailedWriter) Close() error {
	d.w.Flush()
	return d.f.Close()
}
