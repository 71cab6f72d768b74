// Package errors defines the typed errors shared by the loanprep tools.
//
// Every failure surfaced by a run is an *AppError carrying one of:
//
//	NOT_FOUND      input path does not exist (fatal)
//	IO             staging file or rename failure (fatal)
//	MALFORMED_ROW  record field count disagrees with the header (counted)
//	SCHEMA_DRIFT   a later chunk disagrees with the first chunk's schema (reported)
//	VALIDATION     bad header, unknown allow-listed column, empty file
//	CONFIG         configuration could not be loaded or is invalid
//
// Call sites wrap AppErrors with fmt.Errorf("...: %w", err); use IsType and
// TypeOf to classify them after wrapping.
package errors
