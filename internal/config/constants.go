package config

// Application constants shared by the loanprep tools
const (
	// Application Info
	AppName    = "loanprep"
	AppVersion = "1.0.0"

	// StagingPrefix is prepended to the destination file name for the
	// in-progress output of a run.
	StagingPrefix = "_temp_"

	// Fill values for missing cells
	NumericFill = "0"
	TextFill    = "Unknown"

	// Malformed-row samples
	MaxMalformedSamples = 10
	SnippetLength       = 300

	// Diagnostics and feature defaults
	DefaultReservoirSize   = 10_000
	DefaultReservoirSeed   = 42
	DefaultScalerSampleRow = 200_000
	ScaledColumnSuffix     = "_scaled"
)
