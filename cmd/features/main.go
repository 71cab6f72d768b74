package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"loanprep/internal/app"
	"loanprep/internal/config"
	"loanprep/internal/dataprocessing"
	apperrors "loanprep/internal/errors"
	"loanprep/internal/exporter"
	"loanprep/internal/features"
	"loanprep/internal/operations"
)

type options struct {
	input       string
	output      string
	columns     []string
	keep        []string
	sampleRows  int
	chunkSize   int
	clean       bool
	report      string
	configPath  string
	metricsAddr string
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "features: %v\n", err)
		os.Exit(1)
	}
}

func splitColumns(s string) []string {
	var cols []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	var columns, keep string
	fs := flag.NewFlagSet("features", flag.ContinueOnError)
	fs.StringVar(&opts.input, "input", "", "cleaned input .csv/.xlsx file (required)")
	fs.StringVar(&opts.output, "output", "", "output file (default: <input>_features.csv)")
	fs.StringVar(&columns, "columns", "", "comma-separated numeric columns to scale (required)")
	fs.StringVar(&keep, "keep", "", "comma-separated columns to carry over (default: all)")
	fs.IntVar(&opts.sampleRows, "sample-rows", config.DefaultScalerSampleRow, "leading rows used to fit the scaler")
	fs.IntVar(&opts.chunkSize, "chunk-size", 0, "rows per chunk (default from config: 50000)")
	fs.BoolVar(&opts.clean, "clean", false, "drop empty columns and fill missing cells before scaling")
	fs.StringVar(&opts.report, "report", "", "write the JSON run report to this file (- for stdout)")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /status on this address while running")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.columns = splitColumns(columns)
	opts.keep = splitColumns(keep)

	if opts.input == "" {
		return nil, apperrors.NewValidationError("-input is required")
	}
	if len(opts.columns) == 0 {
		return nil, apperrors.NewValidationError("-columns is required")
	}
	if opts.sampleRows < 1 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("sample rows must be positive, got %d", opts.sampleRows))
	}
	if opts.output == "" {
		opts.output = defaultOutput(opts.input)
	}
	if sameFile(opts.input, opts.output) {
		return nil, apperrors.NewValidationError("output must be a separate file from the input")
	}
	return opts, nil
}

// defaultOutput puts <stem>_features.csv next to the input
func defaultOutput(input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), stem+"_features.csv")
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// buildJob returns the job that copies the input and appends scaled columns
func buildJob(cfg *config.Config, opts *options, scaler features.Scaler) operations.Job {
	job := operations.JobFromConfig(config.JobConfig{
		InputPath:   opts.input,
		OutputPath:  opts.output,
		KeepColumns: opts.keep,
		ChunkSize:   opts.chunkSize,
	}, cfg.Pipeline)
	job.Passthrough = !opts.clean
	job.Steps = dataprocessing.Pipeline{scaler.Step()}
	return job
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
	if opts.metricsAddr != "" {
		cfg.Telemetry.MetricsAddr = opts.metricsAddr
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Stop(context.Background())
	logger := application.Logger.With(slog.String("component", "features"))

	ctx, stop := app.SignalContext(ctx)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return err
	}

	scaler, err := features.FitScaler(ctx, opts.input, opts.columns, features.FitOptions{
		SampleRows: opts.sampleRows,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to fit scaler: %w", err)
	}

	result, runErr := application.Runner.Run(ctx, buildJob(cfg, opts, scaler))
	application.Record(result)

	if opts.report != "" {
		report := operations.Report{}
		if result != nil {
			report.Results = []*operations.Result{result}
		}
		if runErr != nil {
			report.Error = runErr.Error()
		}
		if err := exporter.WriteReport(opts.report, report); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return runErr
	}

	logger.InfoContext(ctx, "Features written",
		slog.String("output", opts.output),
		slog.Int("rows", result.RowsWritten),
		slog.Any("scaled_columns", scaler.Columns()))
	return nil
}
