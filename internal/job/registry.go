package job

import (
	"os"
	"sync"
	"time"
)

// Registry is the in-memory table of jobs, guarded by one lock. Status
// transitions go through transition() so the monotonic state machine is
// enforced at a single serialization point.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Create inserts a new queued job. Fails when the id is already present.
func (r *Registry) Create(id, fileID string, progressBuf int) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[id]; exists {
		return nil, ErrJobExists(id)
	}
	j := &Job{
		ID:        id,
		FileID:    fileID,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
		done:      make(chan struct{}),
		progress:  NewChannel(progressBuf),
	}
	r.jobs[id] = j
	return j, nil
}

// Get returns a snapshot of the job.
func (r *Registry) Get(id string) (View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return View{}, false
	}
	return j.view(), true
}

// get returns the live record; orchestrator-internal.
func (r *Registry) get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	return j, ok
}

// Delete removes a job unconditionally.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// DeleteFinished removes the job only if it has reached a terminal state.
// Returns whether a job was removed.
func (r *Registry) DeleteFinished(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || !j.Status.Terminal() {
		return false
	}
	delete(r.jobs, id)
	return true
}

// Len reports the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// transition applies a status change under the lock. Terminal states are
// absorbing and earlier states are never re-entered; a refused transition
// returns false and the caller's write is discarded.
func (r *Registry) transition(j *Job, to Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(j, to)
}

func (r *Registry) transitionLocked(j *Job, to Status) bool {
	from := j.Status
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusRunning:
		if from != StatusQueued {
			return false
		}
	case StatusPartialReady:
		if from != StatusRunning {
			return false
		}
	case StatusCompleted, StatusFailed, StatusCancelled:
		// Any non-terminal state may finish.
	default:
		return false
	}
	j.Status = to
	return true
}

// markRunning records the worker process handle and moves the job to
// running in one critical section.
func (r *Registry) markRunning(j *Job, proc *os.Process) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.transitionLocked(j, StatusRunning) {
		return false
	}
	j.proc = proc
	j.StartedAt = time.Now()
	return true
}

// setPartial stores the one-shot early HTML and transitions to
// partial_ready. Subsequent partials are ignored.
func (r *Registry) setPartial(j *Job, html string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j.PartialHTML != "" {
		return false
	}
	if !r.transitionLocked(j, StatusPartialReady) {
		return false
	}
	j.PartialHTML = html
	return true
}
