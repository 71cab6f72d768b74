package operations

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker tracks rows processed by a run. Total is zero when the
// row count is not known in advance.
type ProgressTracker struct {
	Job       string
	Total     int
	Current   int
	StartTime time.Time
	mu        sync.Mutex
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(job string, total int) *ProgressTracker {
	return &ProgressTracker{
		Job:       job,
		Total:     total,
		StartTime: time.Now(),
	}
}

// Add records n more rows
func (p *ProgressTracker) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Current += n
}

// GetProgress returns the current progress state
func (p *ProgressTracker) GetProgress() (current, total int, percentage float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Total > 0 {
		percentage = float64(p.Current) / float64(p.Total) * 100
	}
	return p.Current, p.Total, percentage
}

// GetETA calculates the estimated time remaining
func (p *ProgressTracker) GetETA() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Current == 0 || p.Total == 0 {
		return "calculating..."
	}

	elapsed := time.Since(p.StartTime)
	rate := float64(p.Current) / elapsed.Seconds()
	if rate == 0 {
		return "calculating..."
	}

	remaining := float64(p.Total-p.Current) / rate
	if remaining < 0 {
		remaining = 0
	}
	return formatSeconds(remaining)
}

// GetElapsedTimeString returns a formatted elapsed time string
func (p *ProgressTracker) GetElapsedTimeString() string {
	return formatSeconds(time.Since(p.StartTime).Seconds())
}

func formatSeconds(s float64) string {
	switch {
	case s < 60:
		return fmt.Sprintf("%.0f seconds", s)
	case s < 3600:
		return fmt.Sprintf("%.1f minutes", s/60)
	default:
		return fmt.Sprintf("%.1f hours", s/3600)
	}
}
