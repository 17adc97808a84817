package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evotune/evotune/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1000, cfg.Engine.PopulationSize)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Zero(t, cfg.Engine.Concurrency)
	assert.Zero(t, cfg.Objective.KillAfter)
	assert.Nil(t, cfg.Termination.TargetValue)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
objective:
  program: ./rosenbrock.sh
  args: ["--dimensions", "2"]
  kill_after: 30s
engine:
  concurrency: 8
  population_size: 200
  seed: 42
termination:
  target_value: 1e-6
  max_evaluations: 50000
  timeout: 2h
report:
  out_dir: ./results
  history_db: ./history.db
logging:
  level: DEBUG
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./rosenbrock.sh", cfg.Objective.Program)
	assert.Equal(t, []string{"--dimensions", "2"}, cfg.Objective.Args)
	assert.Equal(t, 30*time.Second, cfg.Objective.KillAfter)
	assert.Equal(t, 8, cfg.Engine.Concurrency)
	assert.Equal(t, 200, cfg.Engine.PopulationSize)
	assert.Equal(t, uint64(42), cfg.Engine.Seed)
	require.NotNil(t, cfg.Termination.TargetValue)
	assert.Equal(t, 1e-6, *cfg.Termination.TargetValue)
	assert.Equal(t, 50000, cfg.Termination.MaxEvaluations)
	assert.Equal(t, 2*time.Hour, cfg.Termination.Timeout)
	assert.Equal(t, "./results", cfg.Report.OutDir)
	assert.Equal(t, "./history.db", cfg.Report.HistoryDB)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, "objective:\n  program: ./obj\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./obj", cfg.Objective.Program)
	assert.Equal(t, 1000, cfg.Engine.PopulationSize)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, errors.ValidationFailed, e.Code())
	assert.Contains(t, e.Fields(), "path")
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "objective: [unclosed\n")
	_, err := Load(path)
	require.Error(t, err)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, errors.ValidationFailed, e.Code())
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	cfg := Default()
	cfg.Objective.Program = "" // required
	cfg.Objective.KillAfter = time.Second
	cfg.Engine.Concurrency = -1
	cfg.Termination.MaxEvaluations = -5
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, stderrors.As(err, &verrs))
	fields := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		fields[ve.Field] = ve.Tag
	}
	assert.Equal(t, "required", fields["Config.Objective.Program"])
	assert.Equal(t, "min", fields["Config.Engine.Concurrency"])
	assert.Equal(t, "min", fields["Config.Termination.MaxEvaluations"])
	assert.Equal(t, "oneof", fields["Config.Logging.Level"])
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := Default()
	cfg.Objective.Program = "./obj"
	require.NoError(t, cfg.Validate())
}

func TestValidationErrorMessages(t *testing.T) {
	cases := []struct {
		err  ValidationError
		want string
	}{
		{ValidationError{Field: "f", Tag: "required"}, "f is required"},
		{ValidationError{Field: "f", Tag: "min"}, "f is below its minimum"},
		{ValidationError{Field: "f", Tag: "max"}, "f is above its maximum"},
		{ValidationError{Field: "f", Tag: "oneof"}, "f must be one of the allowed values"},
		{ValidationError{Field: "f", Tag: "weird"}, "f failed validation"},
		{ValidationError{Message: "custom"}, "custom"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Error())
	}

	assert.Empty(t, ValidationErrors{}.Error())
	multi := ValidationErrors{
		{Field: "a", Tag: "required"},
		{Field: "b", Tag: "min"},
	}
	assert.Equal(t, "validation failed: a is required; b is below its minimum", multi.Error())
}
