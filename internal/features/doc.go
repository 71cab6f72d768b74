// Package features derives model inputs from cleaned files.
//
// A Scaler is fitted once on the leading rows of a file and then applied to
// every chunk as a dataprocessing.Step, appending a standardized
// "<column>_scaled" column per fitted column. The fitted value is immutable
// and passed explicitly, so several runs can share one fit.
package features
