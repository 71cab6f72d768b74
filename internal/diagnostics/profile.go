package diagnostics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"loanprep/internal/config"
	"loanprep/internal/dataprocessing"
	"loanprep/internal/source"
)

// ProfileOptions configures Profile
type ProfileOptions struct {
	ChunkSize     int
	KeepColumns   []string
	ReservoirSize int
	Seed          uint64
	Logger        *slog.Logger
}

// FileProfile summarizes every column of a file
type FileProfile struct {
	Path      string          `json:"path"`
	Rows      int             `json:"rows"`
	Malformed int             `json:"malformed_rows"`
	Columns   []ColumnProfile `json:"columns"`
}

// Column returns the profile of the named column
func (p *FileProfile) Column(name string) (ColumnProfile, bool) {
	for _, c := range p.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnProfile{}, false
}

// ColumnProfile summarizes one column
type ColumnProfile struct {
	Name       string              `json:"name"`
	Kind       dataprocessing.Kind `json:"kind"`
	Missing    int                 `json:"missing"`
	MissingPct float64             `json:"missing_pct"`
	TextValues int                 `json:"text_values"`
	Numeric    *NumericSummary     `json:"numeric,omitempty"`
}

// NumericSummary describes the finite numeric values of a column. Mean and
// Std are exact; Median and the quartiles come from a reservoir sample of
// Sampled values, quartiles by nearest rank.
type NumericSummary struct {
	Count     int     `json:"count"`
	NonFinite int     `json:"non_finite,omitempty"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	P25       float64 `json:"p25"`
	Median    float64 `json:"median"`
	P75       float64 `json:"p75"`
	Sampled   int     `json:"sampled"`
}

// columnStats accumulates one column across chunks
type columnStats struct {
	kind      dataprocessing.Kind
	missing   int
	text      int
	count     int
	nonFinite int
	min, max  float64
	mean, m2  float64
	sample    *reservoir
}

func (c *columnStats) observe(cell string) {
	kind := dataprocessing.KindOf(cell)
	c.kind = c.kind.Merge(kind)

	switch kind {
	case dataprocessing.KindEmpty:
		c.missing++
	case dataprocessing.KindText:
		c.text++
	case dataprocessing.KindNumeric:
		v, _ := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if math.IsInf(v, 0) || math.IsNaN(v) {
			c.nonFinite++
			return
		}
		c.addNumber(v)
	}
}

// addNumber updates the running moments (Welford) and the sample
func (c *columnStats) addNumber(v float64) {
	c.count++
	if c.count == 1 {
		c.min, c.max = v, v
	} else {
		c.min = math.Min(c.min, v)
		c.max = math.Max(c.max, v)
	}
	delta := v - c.mean
	c.mean += delta / float64(c.count)
	c.m2 += delta * (v - c.mean)
	c.sample.add(v)
}

func (c *columnStats) numeric() (*NumericSummary, error) {
	if c.count == 0 {
		return nil, nil
	}
	s := &NumericSummary{
		Count:     c.count,
		NonFinite: c.nonFinite,
		Min:       c.min,
		Max:       c.max,
		Mean:      c.mean,
		Std:       math.Sqrt(c.m2 / float64(c.count)),
		Sampled:   len(c.sample.values),
	}

	data := stats.Float64Data(c.sample.values)
	var err error
	if s.Median, err = stats.Median(data); err != nil {
		return nil, err
	}
	if s.P25, err = stats.PercentileNearestRank(data, 25); err != nil {
		return nil, err
	}
	if s.P75, err = stats.PercentileNearestRank(data, 75); err != nil {
		return nil, err
	}
	return s, nil
}

// Profile streams path once and summarizes each column.
func Profile(ctx context.Context, path string, opts ProfileOptions) (*FileProfile, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = scanChunkSize
	}
	if opts.ReservoirSize <= 0 {
		opts.ReservoirSize = config.DefaultReservoirSize
	}
	if opts.Seed == 0 {
		opts.Seed = config.DefaultReservoirSeed
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With(slog.String("component", "profile"), slog.String("path", path))

	reader, err := source.Open(path, source.Options{
		ChunkSize:   opts.ChunkSize,
		KeepColumns: opts.KeepColumns,
		Malformed:   config.MalformedSkip,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	header := reader.Header()
	cols := make([]*columnStats, len(header))
	for i := range cols {
		// each column gets its own stream so samples do not depend on column order
		cols[i] = &columnStats{sample: newReservoir(opts.ReservoirSize, opts.Seed+uint64(i))}
	}

	for {
		chunk, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, row := range chunk.Rows {
			for i, cell := range row {
				cols[i].observe(cell)
			}
		}
		logger.DebugContext(ctx, "Profiled chunk",
			slog.Int("chunk", chunk.Index),
			slog.Int("rows", chunk.Len()))
	}

	p := &FileProfile{
		Path:      path,
		Rows:      reader.RowsRead(),
		Malformed: reader.Malformed().Count,
		Columns:   make([]ColumnProfile, len(header)),
	}
	for i, name := range header {
		c := cols[i]
		cp := ColumnProfile{
			Name:       name,
			Kind:       c.kind,
			Missing:    c.missing,
			TextValues: c.text,
		}
		if p.Rows > 0 {
			cp.MissingPct = float64(c.missing) / float64(p.Rows) * 100
		}
		if cp.Numeric, err = c.numeric(); err != nil {
			return nil, err
		}
		p.Columns[i] = cp
	}

	logger.InfoContext(ctx, "Profile complete",
		slog.Int("rows", p.Rows),
		slog.Int("columns", len(p.Columns)),
		slog.Int("malformed_rows", p.Malformed))
	return p, nil
}
