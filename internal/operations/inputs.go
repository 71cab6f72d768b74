package operations

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "loanprep/internal/errors"
	"loanprep/internal/validation"
)

// InputJobs builds one job per input file, copying the settings of base.
// input is a file or a directory of supported files. output is then a file
// or a directory respectively; when empty, CSV inputs are replaced in place
// and xlsx inputs are written next to themselves as CSV.
func InputJobs(v *validation.FileValidator, input, output string, base Job) ([]Job, error) {
	info, err := os.Stat(input)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(input, err)
		}
		return nil, apperrors.NewIOError(fmt.Sprintf("failed to stat %s", input), err)
	}

	if !info.IsDir() {
		job := base
		job.InputPath = input
		job.OutputPath = output
		if output == "" {
			job.OutputPath = defaultOutput(input)
		}
		return []Job{job}, nil
	}

	if output != "" && validation.IsSupported(output) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("input %s is a directory, so output %s must be a directory too", input, output))
	}

	inputs, err := v.ListInputs(input)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("no .csv or .xlsx files in %s", input))
	}

	jobs := make([]Job, 0, len(inputs))
	for _, path := range inputs {
		job := base
		job.Name = filepath.Base(path)
		job.InputPath = path
		if output != "" {
			job.OutputPath = filepath.Join(output, stem(path)+".csv")
		} else {
			job.OutputPath = defaultOutput(path)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// defaultOutput is "" (in place) for CSV and a sibling .csv file otherwise
func defaultOutput(input string) string {
	if strings.EqualFold(filepath.Ext(input), ".csv") {
		return ""
	}
	return filepath.Join(filepath.Dir(input), stem(input)+".csv")
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
