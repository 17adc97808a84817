// Package config holds the run configuration: the objective command line,
// engine tuning, termination criteria and report outputs. A config can be
// loaded from a YAML file; CLI flags override file values field by field.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evotune/evotune/pkg/errors"
)

// Config represents the complete configuration of an optimization run.
type Config struct {
	// Objective configuration
	Objective ObjectiveConfig `yaml:"objective" validate:"required"`

	// Engine configuration
	Engine EngineConfig `yaml:"engine,omitempty" validate:"omitempty"`

	// Termination criteria
	Termination TerminationConfig `yaml:"termination,omitempty" validate:"omitempty"`

	// Report outputs
	Report ReportConfig `yaml:"report,omitempty" validate:"omitempty"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`
}

// ObjectiveConfig describes how to invoke the external objective program.
type ObjectiveConfig struct {
	// Program is the objective executable.
	Program string `yaml:"program" validate:"required"`

	// Args precede the candidate JSON argument.
	Args []string `yaml:"args,omitempty"`

	// KillAfter terminates one evaluation's process group when it runs
	// longer. Zero disables the per-evaluation timeout.
	KillAfter time.Duration `yaml:"kill_after,omitempty" validate:"min=0"`
}

// EngineConfig tunes the scheduler and the population.
type EngineConfig struct {
	// Concurrency is the number of worker slots. Zero means one per CPU.
	Concurrency int `yaml:"concurrency,omitempty" validate:"min=0"`

	// PopulationSize bounds the population. Zero means 1000.
	PopulationSize int `yaml:"population_size,omitempty" validate:"min=0"`

	// Seed fixes the run's random source. Zero seeds from the clock.
	Seed uint64 `yaml:"seed,omitempty"`
}

// TerminationConfig holds the stopping criteria. Any combination may be
// set; with none the run continues until interrupted.
type TerminationConfig struct {
	// TargetValue stops the run once the best fitness reaches it.
	TargetValue *float64 `yaml:"target_value,omitempty"`

	// MaxEvaluations bounds the number of evaluations, counting failures.
	MaxEvaluations int `yaml:"max_evaluations,omitempty" validate:"min=0"`

	// Timeout bounds the run's wall-clock time.
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"min=0"`
}

// ReportConfig selects the run artifacts.
type ReportConfig struct {
	// OutDir receives the detailed CSV, summary, best-seen JSON and
	// failure diagnostics. Empty disables file reports.
	OutDir string `yaml:"out_dir,omitempty"`

	// HistoryDB is the SQLite evaluation-history path. Empty disables it.
	HistoryDB string `yaml:"history_db,omitempty"`
}

// LoggingConfig tunes log output.
type LoggingConfig struct {
	// Level is the minimum severity: DEBUG, INFO, WARN, ERROR or FATAL.
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			PopulationSize: 1000,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// Load reads a YAML config file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ValidationFailed, "cannot read config file"),
			errors.Fields{"path": path},
		)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ValidationFailed, "config file is not valid YAML"),
			errors.Fields{"path": path},
		)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
