package features

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"loanprep/internal/config"
	"loanprep/internal/dataprocessing"
	apperrors "loanprep/internal/errors"
	"loanprep/internal/source"
)

// FitOptions configures FitScaler
type FitOptions struct {
	// SampleRows is how many leading rows the fit uses
	SampleRows int
	ChunkSize  int
	Logger     *slog.Logger
}

// Scaler standardizes numeric columns as (x - mean) / scale, where scale is
// the population standard deviation, or 1 for a constant column.
type Scaler struct {
	columns []string
	means   []float64
	scales  []float64
	rows    int
}

// FitScaler fits a Scaler for columns on the first opts.SampleRows rows of
// path. Missing and non-numeric cells are ignored; a column with no numeric
// value in the sample is an error.
func FitScaler(ctx context.Context, path string, columns []string, opts FitOptions) (Scaler, error) {
	if len(columns) == 0 {
		return Scaler{}, apperrors.NewValidationError("no columns to scale")
	}
	if opts.SampleRows <= 0 {
		opts.SampleRows = config.DefaultScalerSampleRow
	}
	if opts.ChunkSize <= 0 || opts.ChunkSize > opts.SampleRows {
		opts.ChunkSize = opts.SampleRows
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With(slog.String("component", "scaler"))

	reader, err := source.Open(path, source.Options{
		ChunkSize:   opts.ChunkSize,
		KeepColumns: columns,
		Malformed:   config.MalformedSkip,
		Logger:      logger,
	})
	if err != nil {
		return Scaler{}, err
	}
	defer reader.Close()

	// reader columns follow the file header; map them back to the caller's order
	pos := make(map[string]int, len(columns))
	for i, name := range reader.Header() {
		pos[name] = i
	}

	values := make([]stats.Float64Data, len(columns))
	rows := 0
	for rows < opts.SampleRows {
		chunk, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Scaler{}, err
		}
		for _, row := range chunk.Rows {
			if rows == opts.SampleRows {
				break
			}
			rows++
			for i, name := range columns {
				if v, ok := parseFinite(row[pos[name]]); ok {
					values[i] = append(values[i], v)
				}
			}
		}
	}

	s := Scaler{
		columns: append([]string(nil), columns...),
		means:   make([]float64, len(columns)),
		scales:  make([]float64, len(columns)),
		rows:    rows,
	}
	for i, name := range columns {
		if len(values[i]) == 0 {
			return Scaler{}, apperrors.NewValidationError(
				fmt.Sprintf("column %s has no numeric values in the first %d rows", name, rows)).
				WithContext("column", name)
		}
		if s.means[i], err = stats.Mean(values[i]); err != nil {
			return Scaler{}, fmt.Errorf("mean of %s: %w", name, err)
		}
		std, err := stats.StandardDeviationPopulation(values[i])
		if err != nil {
			return Scaler{}, fmt.Errorf("standard deviation of %s: %w", name, err)
		}
		s.scales[i] = std
		if std == 0 {
			s.scales[i] = 1
		}

		logger.DebugContext(ctx, "Fitted column",
			slog.String("column", name),
			slog.Int("values", len(values[i])),
			slog.Float64("mean", s.means[i]),
			slog.Float64("scale", s.scales[i]))
	}

	logger.InfoContext(ctx, "Scaler fitted",
		slog.Int("rows", rows),
		slog.Any("columns", columns))
	return s, nil
}

// parseFinite returns the value of a numeric cell
func parseFinite(cell string) (float64, bool) {
	if !dataprocessing.IsNumeric(cell) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Columns returns the fitted columns
func (s Scaler) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Rows is the number of rows the fit used
func (s Scaler) Rows() int {
	return s.rows
}

// Params returns the mean and scale fitted for column
func (s Scaler) Params(column string) (mean, scale float64, ok bool) {
	for i, name := range s.columns {
		if name == column {
			return s.means[i], s.scales[i], true
		}
	}
	return 0, 0, false
}

// scale formats the standardized value of cell for column i, or "" when the
// cell holds no usable number.
func (s Scaler) scale(i int, cell string) string {
	v, ok := parseFinite(cell)
	if !ok {
		return ""
	}
	return strconv.FormatFloat((v-s.means[i])/s.scales[i], 'g', -1, 64)
}

// ScaledName is the name of the column holding the scaled values of column
func ScaledName(column string) string {
	return column + config.ScaledColumnSuffix
}

// Step returns a chunk step appending one scaled column per fitted column
func (s Scaler) Step() dataprocessing.Step {
	return scalerStep{s: s}
}

type scalerStep struct {
	s Scaler
}

func (st scalerStep) Name() string {
	return "standard_scaler"
}

func (st scalerStep) Header(in []string) ([]string, error) {
	if _, err := st.indexes(in); err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(in))
	for _, name := range in {
		present[name] = true
	}

	out := append([]string(nil), in...)
	for _, name := range st.s.columns {
		scaled := ScaledName(name)
		if present[scaled] {
			return nil, apperrors.NewValidationError(fmt.Sprintf("column %s already exists", scaled))
		}
		out = append(out, scaled)
	}
	return out, nil
}

func (st scalerStep) Apply(in []string, rows [][]string) ([][]string, error) {
	idx, err := st.indexes(in)
	if err != nil {
		return nil, err
	}

	out := make([][]string, len(rows))
	for r, row := range rows {
		next := make([]string, len(row), len(row)+len(idx))
		copy(next, row)
		for i, col := range idx {
			next = append(next, st.s.scale(i, row[col]))
		}
		out[r] = next
	}
	return out, nil
}

// indexes locates the fitted columns in header
func (st scalerStep) indexes(header []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[name] = i
	}
	idx := make([]int, len(st.s.columns))
	for i, name := range st.s.columns {
		p, ok := pos[name]
		if !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("scaled column %s is not in the output", name)).
				WithContext("column", name)
		}
		idx[i] = p
	}
	return idx, nil
}
