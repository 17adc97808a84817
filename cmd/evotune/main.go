// Command evotune minimizes an external objective function over a
// YAML-described parameter space using an asynchronous adaptive genetic
// algorithm. The objective program is invoked once per candidate with the
// candidate's JSON as its final argument and must print a JSON object with a
// numeric objFuncVal field. On termination the best candidate's JSON is
// printed to stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evotune/evotune/pkg/config"
	"github.com/evotune/evotune/pkg/engine"
	"github.com/evotune/evotune/pkg/logging"
	"github.com/evotune/evotune/pkg/objective"
	"github.com/evotune/evotune/pkg/report"
	"github.com/evotune/evotune/pkg/spec"
	"github.com/evotune/evotune/pkg/value"
)

type flags struct {
	specFile       string
	configFile     string
	maxEvaluations int
	targetValue    float64
	terminateAfter time.Duration
	numConcurrent  int
	populationSize int
	seed           uint64
	killAfter      time.Duration
	initialGuess   string
	outDir         string
	historyDB      string
	verbose        bool
	quiet          bool
}

func main() {
	var f flags

	cmd := &cobra.Command{
		Use:   "evotune [flags] -- objective-program [args...]",
		Short: "Asynchronous adaptive genetic optimizer for black-box objective functions",
		Long: `evotune searches a hierarchical parameter space for values minimizing the
output of an external objective program. The program receives each candidate
as a single-line JSON final argument and must print a JSON object with a
numeric objFuncVal field (lower is better, null rejects the candidate).

The first interrupt stops the run gracefully: in-flight evaluations finish
and the best candidate so far is printed. A second interrupt kills the
in-flight evaluations' process groups.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f, args)
		},
	}

	cmd.Flags().StringVarP(&f.specFile, "spec-file", "s", "", "parameter space YAML file (required)")
	cmd.Flags().StringVar(&f.configFile, "config", "", "run configuration YAML file")
	cmd.Flags().IntVarP(&f.maxEvaluations, "max-evaluations", "n", 0, "stop after this many evaluations (0 = unlimited)")
	cmd.Flags().Float64VarP(&f.targetValue, "target-value", "t", 0, "stop once the best objective value reaches this")
	cmd.Flags().DurationVar(&f.terminateAfter, "terminate-after", 0, "stop after this wall-clock duration")
	cmd.Flags().IntVar(&f.numConcurrent, "num-concurrent", 0, "concurrent evaluations (0 = number of CPUs)")
	cmd.Flags().IntVar(&f.populationSize, "population-size", 0, "population bound (0 = 1000)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed (0 = from entropy)")
	cmd.Flags().DurationVarP(&f.killAfter, "kill-after", "k", 0, "kill one evaluation after this duration")
	cmd.Flags().StringVar(&f.initialGuess, "initial-guess", "", "single-line JSON seed candidate")
	cmd.Flags().StringVarP(&f.outDir, "out-dir", "o", "", "directory for report artifacts")
	cmd.Flags().StringVar(&f.historyDB, "history-db", "", "SQLite evaluation history path")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "warnings and errors only")
	_ = cmd.MarkFlagRequired("spec-file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "evotune: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, f *flags, args []string) error {
	cfg, err := buildConfig(cmd, f, args)
	if err != nil {
		return err
	}
	setupLogging(cfg.Logging.Level)
	logger := logging.GetLogger()
	ctx := context.Background()

	paramSpace, err := spec.ParseFile(f.specFile)
	if err != nil {
		return err
	}

	var guess value.Tree
	if f.initialGuess != "" {
		guess, err = value.Decode(paramSpace, []byte(f.initialGuess))
		if err != nil {
			return err
		}
	}

	var target *float64
	if cmd.Flags().Changed("target-value") {
		target = &f.targetValue
	} else if cfg.Termination.TargetValue != nil {
		target = cfg.Termination.TargetValue
	}

	eval := objective.NewProcess(cfg.Objective.Program, cfg.Objective.Args, cfg.Objective.KillAfter)
	eng, err := engine.New(paramSpace, eval, engine.Config{
		Concurrency:    cfg.Engine.Concurrency,
		PopulationSize: cfg.Engine.PopulationSize,
		Seed:           cfg.Engine.Seed,
		InitialGuess:   guess,
		Criteria: engine.Criteria{
			TargetValue:    target,
			MaxEvaluations: cfg.Termination.MaxEvaluations,
			Timeout:        cfg.Termination.Timeout,
		},
	})
	if err != nil {
		return err
	}

	sinks, err := buildSinks(cfg)
	if err != nil {
		return err
	}
	pumpDone := make(chan struct{})
	if len(sinks) > 0 {
		events := eng.Subscribe(256)
		go func() {
			defer close(pumpDone)
			report.Pump(events, sinks...)
		}()
	} else {
		close(pumpDone)
	}

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		<-signals
		logger.Info(ctx, "interrupt received, stopping gracefully (interrupt again to abort)")
		eng.Command(engine.CommandStop)
		<-signals
		logger.Warn(ctx, "second interrupt, canceling in-flight evaluations")
		eng.Command(engine.CommandCancel)
	}()

	outcome, err := eng.Run(ctx)
	<-pumpDone
	for _, s := range sinks {
		if cerr := s.Close(); cerr != nil {
			logger.Warn(ctx, "closing report sink: %v", cerr)
		}
	}
	if err != nil {
		return err
	}
	if outcome.Best == nil {
		return fmt.Errorf("no successfully evaluated individual (%s)", outcome.Reason)
	}

	best, err := value.Encode(outcome.Best.Value)
	if err != nil {
		return err
	}
	fmt.Println(string(best))
	return nil
}

// buildConfig layers CLI flags over the optional config file over the
// defaults.
func buildConfig(cmd *cobra.Command, f *flags, args []string) (*config.Config, error) {
	cfg := config.Default()
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.Objective.Program = args[0]
	cfg.Objective.Args = args[1:]
	if cmd.Flags().Changed("kill-after") {
		cfg.Objective.KillAfter = f.killAfter
	}
	if cmd.Flags().Changed("num-concurrent") {
		cfg.Engine.Concurrency = f.numConcurrent
	}
	if cmd.Flags().Changed("population-size") {
		cfg.Engine.PopulationSize = f.populationSize
	}
	if cmd.Flags().Changed("seed") {
		cfg.Engine.Seed = f.seed
	}
	if cmd.Flags().Changed("max-evaluations") {
		cfg.Termination.MaxEvaluations = f.maxEvaluations
	}
	if cmd.Flags().Changed("terminate-after") {
		cfg.Termination.Timeout = f.terminateAfter
	}
	if cmd.Flags().Changed("out-dir") {
		cfg.Report.OutDir = f.outDir
	}
	if cmd.Flags().Changed("history-db") {
		cfg.Report.HistoryDB = f.historyDB
	}
	if f.verbose {
		cfg.Logging.Level = "DEBUG"
	} else if f.quiet {
		cfg.Logging.Level = "WARN"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildSinks(cfg *config.Config) ([]report.Sink, error) {
	var sinks []report.Sink
	if dir := cfg.Report.OutDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create out dir: %w", err)
		}
		detailed, err := report.NewDetailedWriter(filepath.Join(dir, "detailed_report.csv"))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks,
			detailed,
			report.NewBestSeenWriter(filepath.Join(dir, "best_seen.json")),
			report.NewSummaryWriter(filepath.Join(dir, "summary_report.txt")),
			report.NewDiagnosticsWriter(dir),
		)
	}
	if cfg.Report.HistoryDB != "" {
		history, err := report.NewHistorySink(cfg.Report.HistoryDB)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, history)
	}
	return sinks, nil
}

func setupLogging(level string) {
	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(level),
		Outputs:  []logging.Output{logging.NewConsoleOutput(true, logging.WithColor(true))},
	}))
}
