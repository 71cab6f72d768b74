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
	"loanprep/internal/diagnostics"
	apperrors "loanprep/internal/errors"
	"loanprep/internal/exporter"
	"loanprep/internal/infrastructure"
	"loanprep/internal/validation"
)

// FileReport is the diagnosis, and optionally the profile, of one file
type FileReport struct {
	Diagnosis *diagnostics.Diagnosis   `json:"diagnosis"`
	Profile   *diagnostics.FileProfile `json:"profile,omitempty"`
}

// Report is written as JSON
type Report struct {
	Files []FileReport `json:"files"`
}

type options struct {
	input      string
	profile    bool
	keep       string
	chunkSize  int
	reservoir  int
	seed       uint64
	report     string
	configPath string
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "diagnose: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("diagnose", flag.ContinueOnError)
	fs.StringVar(&opts.input, "input", "", "input .csv/.xlsx file or directory (required)")
	fs.BoolVar(&opts.profile, "profile", false, "also profile every column")
	fs.StringVar(&opts.keep, "keep", "", "comma-separated columns to profile (default: all)")
	fs.IntVar(&opts.chunkSize, "chunk-size", 50_000, "rows per chunk while profiling")
	fs.IntVar(&opts.reservoir, "reservoir", config.DefaultReservoirSize, "values sampled per column for quartiles")
	fs.Uint64Var(&opts.seed, "seed", config.DefaultReservoirSeed, "seed of the quartile sample")
	fs.StringVar(&opts.report, "report", "-", "write the JSON report to this file (- for stdout)")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.input == "" {
		return nil, apperrors.NewValidationError("-input is required")
	}
	if opts.chunkSize < 1 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("chunk size must be positive, got %d", opts.chunkSize))
	}
	return opts, nil
}

// inputs expands a directory into its supported files
func inputs(v *validation.FileValidator, path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(path, err)
		}
		return nil, apperrors.NewIOError(fmt.Sprintf("failed to stat %s", path), err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return v.ListInputs(path)
}

func diagnose(ctx context.Context, paths []string, opts *options, logger *slog.Logger) (*Report, error) {
	report := &Report{Files: make([]FileReport, 0, len(paths))}
	for _, path := range paths {
		d, err := diagnostics.Diagnose(ctx, path, logger)
		if err != nil {
			return report, fmt.Errorf("diagnose %s: %w", path, err)
		}
		fr := FileReport{Diagnosis: d}
		if !d.OK() {
			logger.WarnContext(ctx, "Records with unexpected field count",
				slog.String("path", path),
				slog.Int("bad_lines", d.BadLines),
				slog.Int("expected_fields", d.ExpectedFields))
		}

		if opts.profile {
			var keep []string
			for _, c := range strings.Split(opts.keep, ",") {
				if c = strings.TrimSpace(c); c != "" {
					keep = append(keep, c)
				}
			}
			p, err := diagnostics.Profile(ctx, path, diagnostics.ProfileOptions{
				ChunkSize:     opts.chunkSize,
				KeepColumns:   keep,
				ReservoirSize: opts.reservoir,
				Seed:          opts.seed,
				Logger:        logger,
			})
			if err != nil {
				return report, fmt.Errorf("profile %s: %w", path, err)
			}
			fr.Profile = p
		}
		report.Files = append(report.Files, fr)
	}
	return report, nil
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
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()
	logger = infrastructure.WithComponent(logger, "diagnose")

	ctx, stop := app.SignalContext(ctx)
	defer stop()

	paths, err := inputs(validation.NewFileValidator(logger), opts.input)
	if err != nil {
		return err
	}

	report, err := diagnose(ctx, paths, opts, logger)
	if err != nil {
		return err
	}
	return exporter.WriteReport(opts.report, report)
}
