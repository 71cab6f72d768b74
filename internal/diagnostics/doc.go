// Package diagnostics inspects input files without changing them.
//
// Diagnose counts records whose field count differs from the header, the
// structural problem that breaks most loads of the raw exports. Profile
// streams a file once and summarizes every column: missing share, inferred
// kind and, for numeric columns, moments and quartiles.
//
// Both return plain structs meant to be written as JSON reports.
package diagnostics
