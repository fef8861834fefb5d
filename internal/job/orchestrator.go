package job

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"convertd/internal/worker"
	"convertd/pkg/types"
)

// Engine is the external inference service as the orchestrator sees it.
type Engine interface {
	EnsureReady(ctx context.Context) error
	BaseURL() string
}

// Config controls orchestration behavior.
type Config struct {
	// WorkerBin is the convert-worker executable; WorkerArgs are passed
	// verbatim (used by tests to select fake worker modes).
	WorkerBin  string
	WorkerArgs []string

	CancelGrace    time.Duration // default 5s before escalating to kill
	KillWait       time.Duration // default 10s after kill
	MaxJobs        int64         // default 4 concurrently running workers
	ProgressBuffer int           // default 64 events per job
}

func (c *Config) applyDefaults() {
	if c.CancelGrace <= 0 {
		c.CancelGrace = 5 * time.Second
	}
	if c.KillWait <= 0 {
		c.KillWait = 10 * time.Second
	}
	if c.MaxJobs <= 0 {
		c.MaxJobs = 4
	}
}

// StartParams describe what one job should convert.
type StartParams struct {
	InputPath    string
	OutputFormat string
	PageRange    string
	UseEngine    bool
}

// Orchestrator spawns one isolated worker subprocess per job and drives
// each job's state machine. A crash inside a worker is contained to that
// job's terminal failed state.
type Orchestrator struct {
	cfg    Config
	reg    *Registry
	engine Engine // nil when no external engine is configured
	sem    *semaphore.Weighted
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New constructs an orchestrator. engine may be nil.
func New(cfg Config, engine Engine) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		cfg:    cfg,
		reg:    NewRegistry(),
		engine: engine,
		sem:    semaphore.NewWeighted(cfg.MaxJobs),
	}
}

// Registry exposes read access for status endpoints.
func (o *Orchestrator) Registry() *Registry { return o.reg }

// CreateJob inserts a queued job record.
func (o *Orchestrator) CreateJob(id, fileID string) (View, error) {
	j, err := o.reg.Create(id, fileID, o.cfg.ProgressBuffer)
	if err != nil {
		return View{}, err
	}
	log.Printf("job event=create id=%s file=%s", id, fileID)
	return j.view(), nil
}

// GetJob is a non-blocking snapshot lookup.
func (o *Orchestrator) GetJob(id string) (View, bool) { return o.reg.Get(id) }

// Progress returns the job's progress queue for a streaming consumer.
func (o *Orchestrator) Progress(id string) (*Channel, bool) {
	j, ok := o.reg.get(id)
	if !ok {
		return nil, false
	}
	return j.progress, true
}

// StartJob transitions the job out of queued and launches its worker.
// When the concurrency budget is exhausted the job stays queued and the
// spawn happens as soon as a slot frees up; an immediate slot surfaces
// spawn failures synchronously.
func (o *Orchestrator) StartJob(ctx context.Context, id string, p StartParams) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator is shut down")
	}
	o.mu.Unlock()

	j, ok := o.reg.get(id)
	if !ok {
		return ErrJobNotFound(id)
	}
	if v, _ := o.reg.Get(id); v.Status != StatusQueued {
		return fmt.Errorf("job %s already started (status %s)", id, v.Status)
	}

	engineURL := ""
	if p.UseEngine && o.engine != nil {
		if err := o.engine.EnsureReady(ctx); err != nil {
			o.failJob(j, fmt.Sprintf("engine not ready: %v", err))
			return err
		}
		engineURL = o.engine.BaseURL()
	}

	req := worker.Request{
		JobID:        id,
		InputPath:    p.InputPath,
		OutputFormat: p.OutputFormat,
		PageRange:    p.PageRange,
		EngineURL:    engineURL,
	}

	if o.sem.TryAcquire(1) {
		if err := o.spawn(j, req); err != nil {
			if err == errSlotHandedOff {
				return nil
			}
			o.sem.Release(1)
			o.failJob(j, fmt.Sprintf("spawn worker: %v", err))
			return err
		}
		return nil
	}

	// No slot free: leave the job queued and spawn when one opens.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.sem.Acquire(context.Background(), 1); err != nil {
			o.failJob(j, fmt.Sprintf("acquire job slot: %v", err))
			return
		}
		// The job may have been cancelled while waiting.
		if v, ok := o.reg.Get(id); !ok || v.Status != StatusQueued {
			o.sem.Release(1)
			return
		}
		if err := o.spawn(j, req); err != nil && err != errSlotHandedOff {
			o.sem.Release(1)
			o.failJob(j, fmt.Sprintf("spawn worker: %v", err))
		}
	}()
	return nil
}

// errSlotHandedOff signals that spawn gave its semaphore slot to a
// cleanup goroutine because the job was cancelled mid-launch.
var errSlotHandedOff = errors.New("worker slot handed off")

// spawn starts the worker subprocess and the goroutine that consumes its
// frames. The caller holds one semaphore slot; it is released when the
// worker finishes.
func (o *Orchestrator) spawn(j *Job, req worker.Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	cmd := exec.Command(o.cfg.WorkerBin, o.cfg.WorkerArgs...)
	cmd.Stdin = bytes.NewReader(body)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	if !o.reg.markRunning(j, cmd.Process) {
		// Cancelled between queue and spawn; tear the worker down. The
		// slot is handed to the reaper goroutine to release.
		_ = cmd.Process.Kill()
		go func() {
			_ = cmd.Wait()
			o.sem.Release(1)
		}()
		return errSlotHandedOff
	}
	log.Printf("job event=start id=%s pid=%d", j.ID, cmd.Process.Pid)
	jobsInflight.Inc()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.watch(j, cmd, stdout, &stderr)
	}()
	return nil
}

// watch consumes the worker's NDJSON frames and finalizes the job when
// the process exits.
func (o *Orchestrator) watch(j *Job, cmd *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer) {
	var result *types.ConversionResult
	var workerErr string

	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var f worker.Frame
		if err := json.Unmarshal(line, &f); err != nil {
			log.Printf("job event=bad_frame id=%s err=%v", j.ID, err)
			continue
		}
		switch f.Type {
		case worker.FrameProgress:
			j.progress.Publish(Event{
				JobID:     j.ID,
				Stage:     f.Stage,
				Current:   f.Current,
				Total:     f.Total,
				StartedAt: j.StartedAt,
			})
		case worker.FramePartial:
			o.reg.setPartial(j, f.Content)
		case worker.FrameResult:
			result = f.Result
		case worker.FrameError:
			workerErr = f.Error
		}
	}
	werr := cmd.Wait()
	jobsInflight.Dec()
	o.sem.Release(1)

	// Finalize: natural completion wins over a late cancellation; the
	// registry lock is the single arbiter and terminal states absorb the
	// losing write.
	o.reg.mu.Lock()
	cancelRequested := j.cancelRequested
	o.reg.mu.Unlock()

	var final Status
	switch {
	case result != nil && werr == nil:
		o.reg.mu.Lock()
		if o.reg.transitionLocked(j, StatusCompleted) {
			j.Result = result
		}
		final = j.Status
		o.reg.mu.Unlock()
	case cancelRequested:
		o.reg.mu.Lock()
		o.reg.transitionLocked(j, StatusCancelled)
		final = j.Status
		o.reg.mu.Unlock()
	default:
		msg := workerErr
		if msg == "" {
			msg = fmt.Sprintf("worker exited unexpectedly: %v", werr)
			if tail := tailOf(stderr.String()); tail != "" {
				msg += "; stderr tail: " + tail
			}
		}
		o.reg.mu.Lock()
		if o.reg.transitionLocked(j, StatusFailed) {
			j.Err = msg
		}
		final = j.Status
		o.reg.mu.Unlock()
	}
	j.closeDone()
	jobsTotal.WithLabelValues(string(final)).Inc()
	log.Printf("job event=finish id=%s status=%s", j.ID, final)
}

// failJob marks a job failed before its worker ever ran.
func (o *Orchestrator) failJob(j *Job, msg string) {
	o.reg.mu.Lock()
	if o.reg.transitionLocked(j, StatusFailed) {
		j.Err = msg
	}
	o.reg.mu.Unlock()
	j.closeDone()
	jobsTotal.WithLabelValues(string(StatusFailed)).Inc()
	log.Printf("job event=fail id=%s err=%q", j.ID, msg)
}

// CancelJob requests cooperative termination with bounded escalation:
// SIGTERM, CancelGrace, then kill. Returns the job's resulting status;
// a job already terminal is a no-op reporting its current status.
func (o *Orchestrator) CancelJob(id string) (Status, error) {
	j, ok := o.reg.get(id)
	if !ok {
		return "", ErrJobNotFound(id)
	}

	o.reg.mu.Lock()
	if j.Status.Terminal() {
		st := j.Status
		o.reg.mu.Unlock()
		return st, nil
	}
	j.cancelRequested = true
	proc := j.proc
	if proc == nil {
		// Still queued: no worker to signal.
		o.reg.transitionLocked(j, StatusCancelled)
		st := j.Status
		o.reg.mu.Unlock()
		j.closeDone()
		jobsTotal.WithLabelValues(string(StatusCancelled)).Inc()
		log.Printf("job event=cancel id=%s status=%s queued=1", id, st)
		return st, nil
	}
	o.reg.mu.Unlock()

	log.Printf("job event=cancel_signal id=%s pid=%d", id, proc.Pid)
	_ = proc.Signal(syscall.SIGTERM)
	select {
	case <-j.done:
	case <-time.After(o.cfg.CancelGrace):
		log.Printf("job event=cancel_escalate id=%s pid=%d", id, proc.Pid)
		_ = proc.Kill()
		select {
		case <-j.done:
		case <-time.After(o.cfg.KillWait):
			return "", fmt.Errorf("job %s worker pid %d did not exit after kill", id, proc.Pid)
		}
	}

	v, _ := o.reg.Get(id)
	return v.Status, nil
}

// CleanupFinished evicts a terminal job after its status has been
// delivered to the requester. Non-terminal jobs are left untouched.
func (o *Orchestrator) CleanupFinished(id string) {
	if o.reg.DeleteFinished(id) {
		log.Printf("job event=cleanup id=%s", id)
	}
}

// Shutdown cancels all live jobs and waits for their workers, bounded by
// ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.reg.mu.RLock()
	ids := make([]string, 0, len(o.reg.jobs))
	for id := range o.reg.jobs {
		ids = append(ids, id)
	}
	o.reg.mu.RUnlock()
	for _, id := range ids {
		if _, err := o.CancelJob(id); err != nil && !IsJobNotFound(err) {
			log.Printf("job event=shutdown_cancel_error id=%s err=%v", id, err)
		}
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func tailOf(s string) string {
	if len(s) > 4096 {
		return s[len(s)-4096:]
	}
	return s
}
