// Package operations runs cleaning jobs end to end.
//
// A Runner wires the chunk reader, the transform step, the chunk writer and
// the atomic finalizer:
//
//	runner := operations.NewRunner(logger,
//		operations.WithMetrics(metrics),
//		operations.WithProgressInterval(2*time.Second))
//
//	result, err := runner.Run(ctx, operations.Job{
//		InputPath:   "data/accepted.csv",
//		OutputPath:  "data/cleaned/accepted.csv",
//		KeepColumns: []string{"loan_amnt", "term", "int_rate"},
//		ChunkSize:   50000,
//	})
//
// A run proceeds in these steps:
//
//  1. validate the input path and output directory
//  2. in dataset mode, scan the whole file for empty columns
//  3. stream chunks: fix the schema and plan from the first chunk, report
//     drift in later chunks, transform, run extra steps, write
//  4. sync the staging file and rename it over the destination
//
// Any failure removes the staging file and leaves the destination as it
// was. The returned Result carries the counters written to the run report.
//
// RunAll runs several jobs through an errgroup, one at a time unless a
// higher limit is given.
package operations
