package dataprocessing

import (
	"context"
	"errors"
	"io"

	"loanprep/internal/source"
)

// EmptyColumns returns the columns of header without a value in any of rows.
func EmptyColumns(header []string, rows [][]string) []string {
	var empty []string
	for i, kind := range InferKinds(len(header), rows) {
		if kind == KindEmpty {
			empty = append(empty, header[i])
		}
	}
	return empty
}

// EmptinessScan is the result of a pass over a whole dataset. Kinds is
// aligned with the reader header and merges every chunk.
type EmptinessScan struct {
	Empty []string
	Kinds []Kind
	Rows  int
}

// ScanEmptiness reads r to the end and reports the columns that are empty in
// every row of the dataset, along with each column's kind over the whole
// dataset. The caller owns r and reopens the file for the transform pass.
func ScanEmptiness(ctx context.Context, r source.Reader) (*EmptinessScan, error) {
	header := r.Header()
	kinds := make([]Kind, len(header))

	for {
		chunk, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for i, kind := range InferKinds(len(header), chunk.Rows) {
			kinds[i] = kinds[i].Merge(kind)
		}
	}

	scan := &EmptinessScan{Kinds: kinds, Rows: r.RowsRead()}
	for i, kind := range kinds {
		if kind == KindEmpty {
			scan.Empty = append(scan.Empty, header[i])
		}
	}
	return scan, nil
}
