// Package app wires the resource cache, engine supervisor and job
// orchestrator into one explicit application lifecycle object.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"convertd/internal/engine"
	"convertd/internal/job"
	"convertd/internal/resource"
	"convertd/pkg/types"
)

// App exposes the operations behind the HTTP surface.
type App struct {
	cache  *resource.Cache
	engine *engine.Supervisor // nil when no engine is configured
	orch   *job.Orchestrator

	uploadDir  string
	httpClient *http.Client

	shuttingDown atomic.Bool
}

// Options for construction.
type Options struct {
	UploadDir       string
	DownloadTimeout time.Duration // default 60s
}

// New assembles the application. eng may be nil.
func New(cache *resource.Cache, eng *engine.Supervisor, orch *job.Orchestrator, opts Options) *App {
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 60 * time.Second
	}
	return &App{
		cache:      cache,
		engine:     eng,
		orch:       orch,
		uploadDir:  opts.UploadDir,
		httpClient: &http.Client{Timeout: opts.DownloadTimeout},
	}
}

// Load ensures the cached resource is loaded; with withEngine it also
// brings the external engine up.
func (a *App) Load(ctx context.Context, withEngine bool) error {
	if _, err := a.cache.GetOrCreate(ctx); err != nil {
		return err
	}
	if withEngine && a.engine != nil {
		return a.engine.EnsureReady(ctx)
	}
	return nil
}

// Unload releases the cached resource and stops the engine. Returns
// whether anything was actually released.
func (a *App) Unload() (bool, error) {
	unloaded := a.cache.Unload()
	if a.engine != nil {
		stopped, err := a.engine.Stop()
		if err != nil {
			return unloaded || stopped, err
		}
		unloaded = unloaded || stopped
	}
	return unloaded, nil
}

// Loaded reports whether the resource cache holds a handle.
func (a *App) Loaded() bool { return a.cache.Loaded() }

// Convert resolves the input, creates a job and starts it. Returns the
// new job id.
func (a *App) Convert(ctx context.Context, fileID string, p types.ConvertParams) (string, error) {
	switch p.OutputFormat {
	case "", "html", "markdown":
	default:
		return "", ErrInvalidInput(fmt.Sprintf("unsupported output_format %q", p.OutputFormat))
	}
	if strings.TrimSpace(fileID) == "" {
		return "", ErrInvalidInput("file id is required")
	}

	inputPath, err := a.resolveInput(ctx, fileID, p.FileURL)
	if err != nil {
		return "", err
	}

	jobID := uuid.NewString()
	if _, err := a.orch.CreateJob(jobID, fileID); err != nil {
		return "", err
	}
	if err := a.orch.StartJob(ctx, jobID, job.StartParams{
		InputPath:    inputPath,
		OutputFormat: p.OutputFormat,
		PageRange:    p.PageRange,
		UseEngine:    p.UseEngine,
	}); err != nil {
		return "", err
	}
	return jobID, nil
}

// resolveInput finds the uploaded file for fileID, downloading it first
// when a URL is given.
func (a *App) resolveInput(ctx context.Context, fileID, fileURL string) (string, error) {
	if fileURL != "" {
		return a.download(ctx, fileID, fileURL)
	}
	matches, err := filepath.Glob(filepath.Join(a.uploadDir, fileID+".*"))
	if err != nil || len(matches) == 0 {
		return "", ErrFileNotFound(fileID)
	}
	return matches[0], nil
}

// download fetches the input into the upload dir, inferring the
// extension from the URL path (query stripped), defaulting to .pdf.
func (a *App) download(ctx context.Context, fileID, fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", ErrDownloadFailed(fmt.Sprintf("invalid file_url: %v", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", ErrDownloadFailed(err.Error())
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", ErrDownloadFailed(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", ErrDownloadFailed(fmt.Sprintf("unexpected status %s", resp.Status))
	}

	ext := strings.ToLower(filepath.Ext(u.Path))
	if ext == "" {
		ext = ".pdf"
	}
	dst := filepath.Join(a.uploadDir, fileID+ext)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dst)
		return "", ErrDownloadFailed(err.Error())
	}
	return dst, nil
}

// Job is a non-blocking snapshot lookup.
func (a *App) Job(id string) (job.View, bool) { return a.orch.GetJob(id) }

// Progress returns the job's progress queue.
func (a *App) Progress(id string) (*job.Channel, bool) { return a.orch.Progress(id) }

// Cancel requests job cancellation.
func (a *App) Cancel(id string) (job.Status, error) { return a.orch.CancelJob(id) }

// Cleanup evicts a terminal job after delivery.
func (a *App) Cleanup(id string) { a.orch.CleanupFinished(id) }

// Ready reports whether the app accepts new work.
func (a *App) Ready() bool { return !a.shuttingDown.Load() }

// Shutdown tears the application down: live jobs first, then the
// engine, then the cached resource.
func (a *App) Shutdown(ctx context.Context) error {
	a.shuttingDown.Store(true)
	err := a.orch.Shutdown(ctx)
	if a.engine != nil {
		if _, serr := a.engine.Stop(); serr != nil && err == nil {
			err = serr
		}
	}
	a.cache.Unload()
	return err
}
