package engine

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Config controls how the external inference engine is spawned and probed.
type Config struct {
	// Bin is the engine executable (e.g., "vllm"). Args are passed verbatim
	// before the generated --host/--port pair.
	Bin  string
	Args []string

	Host string // default 127.0.0.1
	Port int    // 0 picks a free port per start

	HealthPath   string        // default /v1/models
	PollInterval time.Duration // default 2s
	StartTimeout time.Duration // default 300s; Start's timeout arg overrides
	StopGrace    time.Duration // default 30s before escalating to kill
	KillWait     time.Duration // default 10s after kill

	// ReleaseHook runs after a stopped process has exited, to clear any
	// device memory associated with it.
	ReleaseHook func()
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.HealthPath == "" {
		c.HealthPath = "/v1/models"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = 300 * time.Second
	}
	if c.StopGrace <= 0 {
		c.StopGrace = 30 * time.Second
	}
	if c.KillWait <= 0 {
		c.KillWait = 10 * time.Second
	}
}

// proc is the state of one spawned engine process. exitErr is valid only
// after done is closed; the wait goroutine writes it before the close.
type proc struct {
	cmd     *exec.Cmd
	baseURL string
	done    chan struct{}
	exitErr error
	stderr  *bytes.Buffer
}

func (p *proc) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Supervisor owns at most one long-running external engine process and
// drives its start/health/stop lifecycle. All public operations serialize
// on one mutex so start and stop cannot interleave.
type Supervisor struct {
	cfg        Config
	httpClient *http.Client

	mu    sync.Mutex
	p     *proc
	ready bool
}

// New constructs a supervisor; the engine is not started until Start.
func New(cfg Config) *Supervisor {
	cfg.applyDefaults()
	// Intentionally Timeout=0: every request carries a context deadline.
	return &Supervisor{cfg: cfg, httpClient: &http.Client{Timeout: 0}}
}

// BaseURL returns the engine endpoint, or "" when not running.
func (s *Supervisor) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return ""
	}
	return s.p.baseURL
}

// Running reports whether the supervised process is alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p != nil && !s.p.exited()
}

// Start spawns the engine and polls its health endpoint until it is ready.
// Returns (false, nil) without touching the process when it is already
// running and healthy. Fatal outcomes: the process exits during startup,
// or timeout elapses before the first healthy probe.
func (s *Supervisor) Start(ctx context.Context, timeout time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timeout <= 0 {
		timeout = s.cfg.StartTimeout
	}

	if s.p != nil && !s.p.exited() && s.ready {
		if s.healthy(s.p.baseURL, time.Second) {
			log.Printf("engine event=start_noop url=%s", s.p.baseURL)
			return false, nil
		}
		// Alive but no longer healthy: tear down and respawn below.
		if err := s.stopLocked(); err != nil {
			return false, err
		}
	} else if s.p != nil && s.p.exited() {
		// Stale entry for an exited process.
		s.p = nil
		s.ready = false
	}

	host := s.cfg.Host
	port := s.cfg.Port
	if port == 0 {
		fp, err := pickFreePort(host)
		if err != nil {
			return false, err
		}
		port = fp
	}
	baseURL := fmt.Sprintf("http://%s:%d", host, port)

	args := append(append([]string(nil), s.cfg.Args...), "--host", host, "--port", strconv.Itoa(port))
	cmd := exec.Command(s.cfg.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("start engine: %w", err)
	}
	log.Printf("engine event=start bin=%s pid=%d url=%s", s.cfg.Bin, cmd.Process.Pid, baseURL)
	startsTotal.Inc()

	p := &proc{cmd: cmd, baseURL: baseURL, done: make(chan struct{}), stderr: &stderr}
	go func() {
		p.exitErr = cmd.Wait()
		close(p.done)
	}()
	s.p = p
	s.ready = false

	deadline := time.Now().Add(timeout)
	startTs := time.Now()
	for {
		select {
		case <-p.done:
			tail := tailOf(stderr.String())
			werr := p.exitErr
			s.p = nil
			log.Printf("engine event=exit_early pid=%d err=%v", cmd.Process.Pid, werr)
			startFailuresTotal.Inc()
			return false, ErrDiedDuringStartup(fmt.Sprintf("engine exited during startup: %v; stderr tail: %s", werr, tail))
		case <-ctx.Done():
			_ = s.stopLocked()
			return false, ctx.Err()
		default:
		}
		if s.healthy(baseURL, time.Second) {
			s.ready = true
			log.Printf("engine event=ready pid=%d url=%s dur_ms=%d", cmd.Process.Pid, baseURL, time.Since(startTs)/time.Millisecond)
			return true, nil
		}
		if time.Now().After(deadline) {
			_ = s.stopLocked()
			log.Printf("engine event=start_timeout url=%s timeout=%s", baseURL, timeout)
			startFailuresTotal.Inc()
			return false, ErrStartupTimeout(fmt.Sprintf("engine not healthy within %s: %s", timeout, baseURL))
		}
		remaining := time.Until(deadline)
		wait := s.cfg.PollInterval
		if remaining < wait {
			wait = remaining
		}
		time.Sleep(wait)
	}
}

// Stop terminates the engine: graceful signal, bounded grace period, then
// an unconditional kill. Returns false when nothing was running. Failure
// to terminate even after the kill is a fatal orchestration bug and is
// surfaced as an error.
func (s *Supervisor) Stop() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil || s.p.exited() {
		s.p = nil
		s.ready = false
		return false, nil
	}
	if err := s.stopLocked(); err != nil {
		return true, err
	}
	stopsTotal.Inc()
	return true, nil
}

// stopLocked requires s.mu held.
func (s *Supervisor) stopLocked() error {
	p := s.p
	if p == nil || p.cmd.Process == nil {
		s.p = nil
		s.ready = false
		return nil
	}
	pid := p.cmd.Process.Pid
	log.Printf("engine event=stop pid=%d", pid)
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(s.cfg.StopGrace):
		log.Printf("engine event=stop_escalate pid=%d", pid)
		_ = p.cmd.Process.Kill()
		select {
		case <-p.done:
		case <-time.After(s.cfg.KillWait):
			return fmt.Errorf("engine pid %d did not exit after kill", pid)
		}
	}
	s.p = nil
	s.ready = false
	if s.cfg.ReleaseHook != nil {
		s.cfg.ReleaseHook()
	}
	return nil
}

// EnsureReady starts the engine if it is not already running and healthy.
func (s *Supervisor) EnsureReady(ctx context.Context) error {
	_, err := s.Start(ctx, 0)
	return err
}

// healthy checks the engine health endpoint with a bounded probe.
func (s *Supervisor) healthy(baseURL string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+s.cfg.HealthPath, nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func tailOf(s string) string {
	if len(s) > 4096 {
		return s[len(s)-4096:]
	}
	return s
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", host+":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr := l.Addr().String()
	lastColon := strings.LastIndex(addr, ":")
	if lastColon < 0 {
		return 0, fmt.Errorf("unexpected addr: %s", addr)
	}
	return strconv.Atoi(addr[lastColon+1:])
}
