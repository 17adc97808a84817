package report

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evotune/evotune/pkg/engine"
	"github.com/evotune/evotune/pkg/errors"
)

// HistorySink records every resolved evaluation in a SQLite database, one
// row per evaluation, across runs.
type HistorySink struct {
	db *sql.DB
}

// NewHistorySink opens (or creates) the database at path. ":memory:" gives
// an in-memory history for tests.
func NewHistorySink(path string) (*HistorySink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to open history database"),
			errors.Fields{"path": path},
		)
	}

	// WAL keeps the writer from blocking concurrent readers of the file.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.Unknown, "failed to enable WAL mode")
	}
	const schema = `
	CREATE TABLE IF NOT EXISTS evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		individual_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		fitness REAL,
		eval_time_ms INTEGER NOT NULL,
		meta_source TEXT NOT NULL,
		crossover_prob REAL,
		selection_pressure REAL,
		mutation_prob REAL,
		mutation_scale REAL,
		input_json TEXT NOT NULL,
		completed_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_evaluations_run ON evaluations(run_id);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.Unknown, "failed to create history schema")
	}
	return &HistorySink{db: db}, nil
}

func (h *HistorySink) Handle(ev engine.Event) error {
	if ev.Type != engine.EventEvaluated {
		return nil
	}
	var fitness interface{}
	if ev.Status == engine.StatusCompleted {
		fitness = ev.Fitness
	}
	metaSource := "initial"
	var pc, sp, mp, ms interface{}
	if c := ev.Carrier; c != nil {
		metaSource = c.Source.String()
		pc, sp, mp, ms = c.CrossoverProb, c.SelectionPressure, c.MutationProb, c.MutationScale
	}
	_, err := h.db.Exec(`
		INSERT INTO evaluations (
			run_id, individual_id, status, fitness, eval_time_ms, meta_source,
			crossover_prob, selection_pressure, mutation_prob, mutation_scale,
			input_json, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.IndividualID, string(ev.Status), fitness,
		ev.EvalTime.Milliseconds(), metaSource, pc, sp, mp, ms,
		string(ev.Input), ev.Time,
	)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to record evaluation")
	}
	return nil
}

func (h *HistorySink) Close() error {
	return h.db.Close()
}
