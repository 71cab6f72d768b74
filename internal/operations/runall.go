package operations

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	apperrors "loanprep/internal/errors"
)

// RunAll runs jobs with at most maxParallel running at once. Each file is
// still processed by a single goroutine. The first failure cancels the jobs
// that have not finished; results holds a Result for every job that started,
// in job order.
func (r *Runner) RunAll(ctx context.Context, jobs []Job, maxParallel int) ([]*Result, error) {
	if maxParallel < 1 {
		maxParallel = 1
	}
	if err := checkDestinations(jobs); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "Running jobs",
		slog.Int("jobs", len(jobs)),
		slog.Int("max_parallel", maxParallel))

	results := make([]*Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.Run(gctx, job)
			results[i] = res
			if err != nil {
				return fmt.Errorf("job %s: %w", job.DisplayName(), err)
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// checkDestinations rejects jobs that would publish to the same file
func checkDestinations(jobs []Job) error {
	seen := make(map[string]string, len(jobs))
	for _, job := range jobs {
		dest, err := filepath.Abs(job.Destination())
		if err != nil {
			dest = filepath.Clean(job.Destination())
		}
		if other, ok := seen[dest]; ok {
			return apperrors.NewValidationError(fmt.Sprintf("jobs %s and %s write the same file %s",
				other, job.DisplayName(), job.Destination()))
		}
		seen[dest] = job.DisplayName()
	}
	return nil
}
