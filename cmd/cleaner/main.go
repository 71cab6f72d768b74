package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"loanprep/internal/app"
	"loanprep/internal/config"
	apperrors "loanprep/internal/errors"
	"loanprep/internal/exporter"
	"loanprep/internal/operations"
	"loanprep/internal/validation"
)

// options holds the command-line flags
type options struct {
	input        string
	output       string
	keep         string
	chunkSize    int
	emptyColumns string
	malformed    string
	failOnDrift  bool
	report       string
	configPath   string
	metricsAddr  string
	parallel     int

	set map[string]bool
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		// the log file is closed by now
		fmt.Fprintf(os.Stderr, "cleaner: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, error) {
	opts := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("cleaner", flag.ContinueOnError)
	fs.StringVar(&opts.input, "input", "", "input .csv/.xlsx file or directory (default: jobs from -config)")
	fs.StringVar(&opts.output, "output", "", "output file or directory (default: replace the input in place)")
	fs.StringVar(&opts.keep, "keep", "", "comma-separated columns to keep (default: all)")
	fs.IntVar(&opts.chunkSize, "chunk-size", 0, "rows per chunk (default from config: 50000)")
	fs.StringVar(&opts.emptyColumns, "empty-columns", "", "empty column detection: dataset or chunk")
	fs.StringVar(&opts.malformed, "malformed", "", "malformed row policy: skip or fail")
	fs.BoolVar(&opts.failOnDrift, "fail-on-drift", false, "abort when a later chunk changes a column's kind")
	fs.StringVar(&opts.report, "report", "", "write the JSON run report to this file (- for stdout)")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /status on this address while running")
	fs.IntVar(&opts.parallel, "parallel", 0, "files cleaned at the same time (default from config: 1)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unexpected arguments: %s", strings.Join(fs.Args(), " ")))
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// applyFlags overrides the loaded configuration with the flags given
func applyFlags(cfg *config.Config, opts *options) error {
	if opts.set["chunk-size"] {
		cfg.Pipeline.ChunkSize = opts.chunkSize
	}
	if opts.set["empty-columns"] {
		cfg.Pipeline.EmptyColumns = opts.emptyColumns
	}
	if opts.set["malformed"] {
		cfg.Pipeline.Malformed = opts.malformed
	}
	if opts.set["fail-on-drift"] {
		cfg.Pipeline.FailOnDrift = opts.failOnDrift
	}
	if opts.set["metrics-addr"] {
		cfg.Telemetry.MetricsAddr = opts.metricsAddr
	}
	if opts.set["parallel"] {
		cfg.Pipeline.MaxParallelJobs = opts.parallel
	}
	return cfg.Validate()
}

// splitColumns parses a comma-separated column list
func splitColumns(s string) []string {
	var cols []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

// buildJobs returns the jobs for -input, or the configured jobs
func buildJobs(cfg *config.Config, opts *options, v *validation.FileValidator) ([]operations.Job, error) {
	if opts.input == "" {
		if len(cfg.Jobs) == 0 {
			return nil, apperrors.NewValidationError("nothing to clean: pass -input or list jobs in the config file")
		}
		jobs := make([]operations.Job, len(cfg.Jobs))
		for i, jc := range cfg.Jobs {
			if opts.keep != "" {
				jc.KeepColumns = splitColumns(opts.keep)
			}
			jobs[i] = operations.JobFromConfig(jc, cfg.Pipeline)
		}
		return jobs, nil
	}

	base := operations.JobFromConfig(config.JobConfig{}, cfg.Pipeline)
	base.KeepColumns = splitColumns(opts.keep)
	return operations.InputJobs(v, opts.input, opts.output, base)
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyFlags(cfg, opts); err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	logger := application.Logger.With(slog.String("component", "cleaner"))

	ctx, stop := app.SignalContext(ctx)
	defer stop()

	jobs, err := buildJobs(cfg, opts, validation.NewFileValidator(logger))
	if err != nil {
		application.Stop(ctx)
		return err
	}

	if err := application.Start(ctx); err != nil {
		application.Stop(ctx)
		return err
	}
	defer application.Stop(context.Background())

	logger.InfoContext(ctx, "Starting cleaning",
		slog.String("version", config.AppVersion),
		slog.Int("jobs", len(jobs)),
		slog.Int("chunk_size", cfg.Pipeline.ChunkSize),
		slog.String("empty_columns", cfg.Pipeline.EmptyColumns),
		slog.String("malformed", cfg.Pipeline.Malformed))

	results, runErr := application.Runner.RunAll(ctx, jobs, cfg.Pipeline.MaxParallelJobs)
	application.Record(results...)

	if opts.report != "" {
		report := operations.Report{}
		for _, r := range results {
			if r != nil {
				report.Results = append(report.Results, r)
			}
		}
		if runErr != nil {
			report.Error = runErr.Error()
		}
		if err := exporter.WriteReport(opts.report, report); err != nil {
			logger.ErrorContext(ctx, "Failed to write report",
				slog.String("report", opts.report),
				slog.String("error", err.Error()))
			if runErr == nil {
				runErr = err
			}
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.InfoContext(ctx, "Cleaning complete", slog.Int("jobs", len(jobs)))
	return nil
}
