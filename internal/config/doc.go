// Package config provides configuration management for the loanprep tools.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources, lowest precedence first:
//
//	1. Default values (struct tags)
//	2. A .env file in the working directory, if present
//	3. Environment variables prefixed with LOANPREP_
//	4. A YAML file given with -config or LOANPREP_CONFIG_FILE
//	5. Command-line flags, applied by each cmd/ binary
//
// # Environment Variables
//
//	LOANPREP_PIPELINE_CHUNK_SIZE=50000
//	LOANPREP_PIPELINE_EMPTY_COLUMNS=dataset   # or chunk
//	LOANPREP_PIPELINE_MALFORMED=skip          # or fail
//	LOANPREP_PIPELINE_FAIL_ON_DRIFT=false
//	LOANPREP_LOGGING_LEVEL=info
//	LOANPREP_TELEMETRY_METRICS_ADDR=:9464
//
// # Job Files
//
// Several inputs can be described in one YAML file:
//
//	pipeline:
//	  chunk_size: 50000
//	jobs:
//	  - name: accepted
//	    input_path: data/Original/accepted_2007_to_2018Q4.csv
//	    output_path: data/Original/cleaned/accepted_cleaned.csv
//	    keep_columns: [loan_amnt, funded_amnt, term, int_rate]
//	  - name: rejected
//	    input_path: data/Original/rejected_2007_to_2018Q4.csv
//	    output_path: data/Original/cleaned/rejected_cleaned.csv
//
// All values are validated with go-playground/validator at load time.
package config
