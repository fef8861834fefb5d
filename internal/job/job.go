// Package job tracks conversion jobs end-to-end: an in-memory registry,
// a bounded progress queue per job, and an orchestrator that runs each
// job in an isolated worker subprocess.
package job

import (
	"os"
	"sync"
	"time"

	"convertd/pkg/types"
)

// Status is the lifecycle state of a job. Transitions are monotonic along
// queued → running → {partial_ready →} {completed|failed|cancelled}; a job
// never re-enters an earlier state and terminal states are absorbing.
type Status string

const (
	StatusQueued       Status = "queued"
	StatusRunning      Status = "running"
	StatusPartialReady Status = "partial_ready"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Job is one tracked conversion. Owned exclusively by the Orchestrator;
// all mutation happens under the registry lock. Readers get Views.
type Job struct {
	ID          string
	FileID      string
	Status      Status
	Result      *types.ConversionResult
	Err         string
	PartialHTML string
	CreatedAt   time.Time
	StartedAt   time.Time

	// proc is the executing worker process, set once the job is running.
	proc *os.Process
	// cancelRequested marks that CancelJob signalled the worker.
	cancelRequested bool
	// done is closed exactly once when the job reaches a terminal state.
	done     chan struct{}
	doneOnce sync.Once

	progress *Channel
}

func (j *Job) closeDone() { j.doneOnce.Do(func() { close(j.done) }) }

// View is a read-only snapshot of a job.
type View struct {
	ID          string
	FileID      string
	Status      Status
	Result      *types.ConversionResult
	Err         string
	PartialHTML string
	CreatedAt   time.Time
	StartedAt   time.Time
}

func (j *Job) view() View {
	return View{
		ID:          j.ID,
		FileID:      j.FileID,
		Status:      j.Status,
		Result:      j.Result,
		Err:         j.Err,
		PartialHTML: j.PartialHTML,
		CreatedAt:   j.CreatedAt,
		StartedAt:   j.StartedAt,
	}
}
