package engine

import (
	"time"

	"github.com/alexisbeaulieu97/macrow/internal/workflow"
)

// Status is the terminal outcome of a run.
type Status string

const (
	// StatusCompleted means the root sequence was exhausted.
	StatusCompleted Status = "completed"
	// StatusCancelled means a stop request was observed before a dispatch.
	StatusCancelled Status = "cancelled"
	// StatusFailed means a primitive could not complete.
	StatusFailed Status = "failed"
)

// RunResult is the single terminal outcome of one execution pass. Any run
// that does not complete reports the exact step path at which it stopped so
// callers can highlight it.
type RunResult struct {
	Status   Status
	Path     workflow.Path
	Err      error
	Steps    int
	Duration time.Duration
}

// Completed reports whether the run exhausted the whole workflow.
func (r *RunResult) Completed() bool {
	return r != nil && r.Status == StatusCompleted
}

func completed(steps int, d time.Duration) *RunResult {
	return &RunResult{Status: StatusCompleted, Steps: steps, Duration: d}
}

func cancelled(path workflow.Path, steps int, d time.Duration) *RunResult {
	return &RunResult{Status: StatusCancelled, Path: path, Steps: steps, Duration: d}
}

func failed(path workflow.Path, err error, steps int, d time.Duration) *RunResult {
	return &RunResult{Status: StatusFailed, Path: path, Err: err, Steps: steps, Duration: d}
}
