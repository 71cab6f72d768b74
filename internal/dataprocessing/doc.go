// Package dataprocessing holds the column-wise logic of the cleaning pipeline.
//
// # Cells and Kinds
//
// A cell is missing when its trimmed text is one of the default NA tokens of
// the pandas CSV reader ("", "NA", "NaN", "NULL", "None", "#N/A" and the rest).
// A column is numeric when every non-missing cell parses as a 64-bit float,
// text when any cell does not, and empty when it has no value at all.
//
// # Transform
//
// The transform is a pure function of a chunk and a Plan:
//
//	plan := dataprocessing.NewPlan(header, dropped)
//	out, tally := dataprocessing.Transform(chunk.Rows, plan, schema.Kinds)
//
// Dropped columns are removed, missing numeric cells become "0" and missing
// text cells become "Unknown". All other cells are copied byte for byte, so a
// cleaned file passes through unchanged.
//
// # Empty Columns
//
// Which columns are dropped is decided before the first chunk is written:
//
//	- dataset mode runs ScanEmptiness over the whole file first
//	- chunk mode uses EmptyColumns of the first chunk only
//
// The dataset scan also returns each column's kind over the whole file.
// Schema.Seed applies it to columns with no value in the first chunk, so a
// kept column is filled by its real kind from the first row.
//
// # Schema Drift
//
// The Schema comes from the first chunk. A DriftDetector compares every later
// chunk against it and reports kind changes and values in dropped columns.
// Drift never changes the fill rule of a column.
package dataprocessing
