package operations

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"loanprep/internal/config"
	"loanprep/internal/dataprocessing"
	"loanprep/internal/exporter"
	"loanprep/internal/files"
	"loanprep/internal/infrastructure"
	"loanprep/internal/source"
	"loanprep/internal/validation"
)

// TracerName names the spans of pipeline runs
const TracerName = "loanprep.pipeline"

// Runner executes cleaning jobs: chunk reader, transform, chunk writer and
// atomic finalizer. A Runner holds no per-run state and may run jobs
// concurrently.
type Runner struct {
	logger           *slog.Logger
	metrics          *infrastructure.PipelineMetrics
	tracer           trace.Tracer
	validator        *validation.FileValidator
	progressInterval time.Duration
	sampleLimit      int
}

// Option configures a Runner
type Option func(*Runner)

// WithMetrics records pipeline metrics
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithTracer sets the tracer used for run spans
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithProgressInterval limits progress logging to once per interval
func WithProgressInterval(d time.Duration) Option {
	return func(r *Runner) { r.progressInterval = d }
}

// WithSampleLimit sets how many malformed rows are kept as samples
func WithSampleLimit(n int) Option {
	return func(r *Runner) { r.sampleLimit = n }
}

// NewRunner creates a runner
func NewRunner(logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		logger:           logger.With(slog.String("component", "runner")),
		tracer:           otel.Tracer(TracerName),
		progressInterval: 2 * time.Second,
		sampleLimit:      config.MaxMalformedSamples,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.validator = validation.NewFileValidator(logger)
	return r
}

// run holds the state of one Run call
type run struct {
	job     Job
	logger  *slog.Logger
	attrs   metric.MeasurementOption
	result  *Result
	tracker *ProgressTracker
	limiter *rate.Limiter

	plan     *dataprocessing.Plan
	schema   *dataprocessing.Schema
	detector *dataprocessing.DriftDetector
	tally    dataprocessing.Tally
	steps    *dataprocessing.BoundPipeline

	lastMalformed int
}

// Run cleans one file. On any error the destination is left untouched and
// the staging file is removed; the partial Result is still returned.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	if err := job.Validate(); err != nil {
		return nil, err
	}

	runID := infrastructure.GenerateRunID()
	ctx = infrastructure.WithRunID(ctx, runID)

	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("job", job.DisplayName()),
			attribute.String("input", job.InputPath),
			attribute.String("output", job.Destination()),
			attribute.Int("chunk_size", job.ChunkSize),
		),
	)
	defer span.End()

	st := &run{
		job:    job,
		logger: r.logger.With(slog.String("job", job.DisplayName())),
		attrs:  metric.WithAttributes(attribute.String("job", job.DisplayName())),
		result: &Result{
			RunID:           runID,
			Job:             job.DisplayName(),
			Input:           job.InputPath,
			Output:          job.Destination(),
			EmptyColumnMode: job.EmptyColumns,
			StartedAt:       start,
		},
		limiter: rate.NewLimiter(rate.Every(r.progressInterval), 1),
	}
	if job.Passthrough {
		st.result.EmptyColumnMode = "none"
	}

	st.logger.InfoContext(ctx, "Starting run",
		slog.String("input", job.InputPath),
		slog.String("output", job.Destination()),
		slog.Int("chunk_size", job.ChunkSize),
		slog.String("empty_columns", st.result.EmptyColumnMode),
		slog.String("malformed", job.Malformed))

	err := r.execute(ctx, st)
	if st.detector != nil {
		st.result.Drift = st.detector.Events()
	}

	st.result.Duration = time.Since(start)
	st.result.DurationSeconds = st.result.Duration.Seconds()
	r.metrics.RecordRun(ctx, job.DisplayName(), st.result.Duration, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		st.logger.ErrorContext(ctx, "Run failed",
			slog.String("error", err.Error()),
			slog.Int("rows_read", st.result.RowsRead),
			slog.Int("chunks", st.result.Chunks))
		return st.result, err
	}

	span.SetAttributes(
		attribute.Int("rows_written", st.result.RowsWritten),
		attribute.Int("malformed_rows", st.result.Malformed.Count),
		attribute.Int("drift_events", len(st.result.Drift)),
	)
	st.logger.InfoContext(ctx, "Run complete",
		slog.Int("rows_read", st.result.RowsRead),
		slog.Int("rows_written", st.result.RowsWritten),
		slog.Int("chunks", st.result.Chunks),
		slog.Int("malformed_rows", st.result.Malformed.Count),
		slog.Int("dropped_columns", len(st.result.Dropped)),
		slog.Int("drift_events", len(st.result.Drift)),
		slog.String("elapsed", st.tracker.GetElapsedTimeString()))
	return st.result, nil
}

func (r *Runner) execute(ctx context.Context, st *run) error {
	job := st.job
	dest := job.Destination()
	if err := r.validator.ValidateJob(job.InputPath, dest); err != nil {
		return err
	}

	total := 0
	var drop []string
	var kinds []dataprocessing.Kind
	if !job.Passthrough && job.EmptyColumns == config.EmptyColumnsDataset {
		scan, err := r.scan(ctx, st)
		if err != nil {
			return err
		}
		total = scan.Rows
		kinds = scan.Kinds
		if scan.Rows > 0 {
			drop = scan.Empty
		}
	}
	st.tracker = NewProgressTracker(job.DisplayName(), total)

	finalizer := files.NewFinalizer(dest, st.logger)
	if err := finalizer.Prepare(); err != nil {
		return err
	}

	reader, err := r.open(job, st.logger)
	if err != nil {
		return err
	}
	writer, err := exporter.CreateStreamWriter(finalizer.StagingPath())
	if err != nil {
		reader.Close()
		return err
	}

	fail := func(err error) error {
		st.result.Malformed = reader.Malformed()
		reader.Close()
		writer.Close()
		finalizer.Abort()
		return err
	}

	header := reader.Header()
	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		chunk, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}
		chunkStart := time.Now()

		if st.plan == nil {
			if err := r.begin(ctx, st, header, chunk.Rows, drop, kinds, writer); err != nil {
				return fail(err)
			}
		} else if err := r.checkDrift(ctx, st, chunk); err != nil {
			return fail(err)
		}

		if err := r.writeChunk(ctx, st, chunk, writer); err != nil {
			return fail(err)
		}
		r.recordChunk(ctx, st, reader, chunk, time.Since(chunkStart))
	}

	// header only, or every row malformed
	if st.plan == nil {
		if err := r.begin(ctx, st, header, nil, drop, kinds, writer); err != nil {
			return fail(err)
		}
	}

	st.result.RowsRead = reader.RowsRead()
	st.result.Malformed = reader.Malformed()
	r.addMalformed(ctx, st, st.result.Malformed.Count)
	if err := reader.Close(); err != nil {
		writer.Close()
		finalizer.Abort()
		return err
	}

	if err := writer.Commit(); err != nil {
		finalizer.Abort()
		return err
	}
	if err := finalizer.Commit(); err != nil {
		return err
	}

	st.result.RowsWritten = writer.Rows()
	st.result.CellsFilled = st.tally.Filled
	st.result.Columns = columnReports(st)
	return nil
}

// scan runs the dataset-wide emptiness pass
func (r *Runner) scan(ctx context.Context, st *run) (*dataprocessing.EmptinessScan, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline.scan_emptiness")
	defer span.End()

	reader, err := r.open(st.job, st.logger)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	scan, err := dataprocessing.ScanEmptiness(ctx, reader)
	if err != nil {
		return nil, err
	}
	st.logger.InfoContext(ctx, "Emptiness scan complete",
		slog.Int("rows", scan.Rows),
		slog.Any("empty_columns", scan.Empty))
	return scan, nil
}

func (r *Runner) open(job Job, logger *slog.Logger) (source.Reader, error) {
	return source.Open(job.InputPath, source.Options{
		ChunkSize:   job.ChunkSize,
		KeepColumns: job.KeepColumns,
		Malformed:   job.Malformed,
		SampleLimit: r.sampleLimit,
		Logger:      logger,
	})
}

// begin fixes the schema and plan from the first chunk and writes the header.
// kinds, when set, comes from the dataset scan and resolves columns with no
// value in the first chunk.
func (r *Runner) begin(ctx context.Context, st *run, header []string, rows [][]string, drop []string, kinds []dataprocessing.Kind, writer *exporter.StreamWriter) error {
	st.schema = dataprocessing.InferSchema(header, rows)
	st.schema.Seed(kinds)

	switch {
	case st.job.Passthrough:
		drop = nil
	case st.job.EmptyColumns == config.EmptyColumnsChunk && len(rows) > 0:
		drop = dataprocessing.EmptyColumns(header, rows)
	}
	st.plan = dataprocessing.NewPlan(header, drop)
	st.detector = dataprocessing.NewDriftDetector(st.schema, st.plan)
	st.result.Dropped = st.plan.Dropped

	steps, err := st.job.Steps.Bind(st.plan.Output)
	if err != nil {
		return err
	}
	st.steps = steps
	outHeader := steps.Output
	st.result.Header = outHeader

	if len(st.plan.Dropped) > 0 {
		st.logger.InfoContext(ctx, "Dropping empty columns",
			slog.Int("count", len(st.plan.Dropped)),
			slog.Any("columns", st.plan.Dropped))
	}
	return writer.WriteHeader(outHeader)
}

func (r *Runner) checkDrift(ctx context.Context, st *run, chunk *source.Chunk) error {
	for _, ev := range st.detector.Observe(chunk.Index, chunk.FirstLine, chunk.Rows) {
		st.logger.WarnContext(ctx, "Schema drift detected",
			slog.String("column", ev.Column),
			slog.String("drift", string(ev.Kind)),
			slog.String("expected", ev.Expected.String()),
			slog.String("observed", ev.Observed.String()),
			slog.Int("chunk", ev.Chunk),
			slog.Int("line", ev.Line))
		if r.metrics != nil {
			r.metrics.DriftEvents.Add(ctx, 1, st.attrs,
				metric.WithAttributes(attribute.String("drift", string(ev.Kind))))
		}
		infrastructure.AddSpanEvent(ctx, "schema.drift",
			attribute.String("column", ev.Column),
			attribute.String("drift", string(ev.Kind)),
			attribute.Int("chunk", ev.Chunk))

		if st.job.FailOnDrift {
			return ev.Err()
		}
	}
	return nil
}

func (r *Runner) writeChunk(ctx context.Context, st *run, chunk *source.Chunk, writer *exporter.StreamWriter) error {
	rows := chunk.Rows
	if st.job.Passthrough {
		st.tally.Add(dataprocessing.CountMissing(len(st.plan.Input), rows))
	} else {
		var tally dataprocessing.Tally
		rows, tally = dataprocessing.Transform(rows, st.plan, st.schema.Kinds)
		st.tally.Add(tally)
		if r.metrics != nil {
			r.metrics.CellsFilled.Add(ctx, int64(tally.Filled), st.attrs)
		}
	}

	rows, err := st.steps.Apply(rows)
	if err != nil {
		return err
	}
	return writer.WriteChunk(rows)
}

func (r *Runner) recordChunk(ctx context.Context, st *run, reader source.Reader, chunk *source.Chunk, elapsed time.Duration) {
	st.result.Chunks++
	st.result.RowsRead += chunk.Len()
	st.tracker.Add(chunk.Len())
	r.addMalformed(ctx, st, reader.Malformed().Count)

	if r.metrics != nil {
		r.metrics.RowsRead.Add(ctx, int64(chunk.Len()), st.attrs)
		r.metrics.RowsWritten.Add(ctx, int64(chunk.Len()), st.attrs)
		r.metrics.Chunks.Add(ctx, 1, st.attrs)
		r.metrics.ChunkDuration.Record(ctx, elapsed.Seconds(), st.attrs)
	}

	st.logger.DebugContext(ctx, "Chunk written",
		slog.Int("chunk", chunk.Index),
		slog.Int("first_line", chunk.FirstLine),
		slog.Int("rows", chunk.Len()),
		slog.Duration("elapsed", elapsed))

	if st.limiter.Allow() {
		current, total, pct := st.tracker.GetProgress()
		attrs := []any{slog.Int("rows", current), slog.Int("chunks", st.result.Chunks)}
		if total > 0 {
			attrs = append(attrs,
				slog.Int("total_rows", total),
				slog.Float64("percent", pct),
				slog.String("eta", st.tracker.GetETA()))
		}
		st.logger.InfoContext(ctx, "Progress", attrs...)
	}
}

// addMalformed records malformed rows seen since the last call
func (r *Runner) addMalformed(ctx context.Context, st *run, count int) {
	delta := count - st.lastMalformed
	if delta <= 0 {
		return
	}
	st.lastMalformed = count
	if r.metrics != nil {
		r.metrics.MalformedRows.Add(ctx, int64(delta), st.attrs)
	}
}

func columnReports(st *run) []ColumnReport {
	dropped := make(map[string]bool, len(st.plan.Dropped))
	for _, name := range st.plan.Dropped {
		dropped[name] = true
	}

	reports := make([]ColumnReport, len(st.plan.Input))
	for i, name := range st.plan.Input {
		reports[i] = ColumnReport{
			Name:    name,
			Kind:    st.schema.Kinds[i],
			Dropped: dropped[name],
		}
		if i < len(st.tally.Missing) {
			reports[i].Missing = st.tally.Missing[i]
		}
	}
	return reports
}
