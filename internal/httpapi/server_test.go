package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"convertd/internal/app"
	"convertd/internal/job"
	"convertd/pkg/types"
)

// fakeService implements Service with canned state for handler tests.
type fakeService struct {
	mu sync.Mutex

	loaded     bool
	loadErr    error
	convertErr error
	lastParams types.ConvertParams
	lastFileID string

	jobs     map[string]job.View
	progress map[string]*job.Channel

	cancelStatus job.Status
	cancelErr    error
	cleaned      []string
	ready        bool
}

func newFakeService() *fakeService {
	return &fakeService{
		jobs:     map[string]job.View{},
		progress: map[string]*job.Channel{},
		ready:    true,
	}
}

func (f *fakeService) Load(ctx context.Context, withEngine bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = true
	return nil
}

func (f *fakeService) Unload() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := f.loaded
	f.loaded = false
	return was, nil
}

func (f *fakeService) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

func (f *fakeService) Convert(ctx context.Context, fileID string, p types.ConvertParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.convertErr != nil {
		return "", f.convertErr
	}
	f.lastFileID = fileID
	f.lastParams = p
	return "job-1", nil
}

func (f *fakeService) Job(id string) (job.View, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.jobs[id]
	return v, ok
}

func (f *fakeService) Progress(id string) (*job.Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.progress[id]
	return c, ok
}

func (f *fakeService) Cancel(id string) (job.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelStatus, f.cancelErr
}

func (f *fakeService) Cleanup(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, id)
	delete(f.jobs, id)
}

func (f *fakeService) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeService) setJob(id string, v job.View) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[id] = v
}

// waitCleaned waits for the handler's post-response eviction to land.
func (f *fakeService) waitCleaned(t *testing.T, want int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		got := append([]string(nil), f.cleaned...)
		f.mu.Unlock()
		if len(got) >= want {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cleaned...)
}

func newTestServer(t *testing.T, svc Service) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewMux(svc))
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func TestLoadUnloadEndpoints(t *testing.T) {
	f := newFakeService()
	srv := newTestServer(t, f)

	resp, err := http.Post(srv.URL+"/load?engine=true", "", nil)
	if err != nil {
		t.Fatalf("POST /load: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load status: %d", resp.StatusCode)
	}
	if got := decodeBody[types.LoadResponse](t, resp); got.Status != "ok" {
		t.Fatalf("unexpected load response: %+v", got)
	}

	resp, err = http.Post(srv.URL+"/unload", "", nil)
	if err != nil {
		t.Fatalf("POST /unload: %v", err)
	}
	if got := decodeBody[types.UnloadResponse](t, resp); !got.Unloaded {
		t.Fatalf("expected unloaded=true, got %+v", got)
	}

	resp, err = http.Post(srv.URL+"/unload", "", nil)
	if err != nil {
		t.Fatalf("POST /unload: %v", err)
	}
	if got := decodeBody[types.UnloadResponse](t, resp); got.Unloaded {
		t.Fatalf("expected unloaded=false on second call, got %+v", got)
	}
}

func TestConvertMergesQueryAndBody(t *testing.T) {
	f := newFakeService()
	srv := newTestServer(t, f)

	body := strings.NewReader(`{"output_format":"markdown","page_range":"2-3"}`)
	resp, err := http.Post(srv.URL+"/convert/f1?output_format=html&use_engine=1", "application/json", body)
	if err != nil {
		t.Fatalf("POST /convert: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("convert status: %d", resp.StatusCode)
	}
	if got := decodeBody[types.ConvertResponse](t, resp); got.JobID != "job-1" {
		t.Fatalf("unexpected job id: %+v", got)
	}
	f.mu.Lock()
	fileID, params := f.lastFileID, f.lastParams
	f.mu.Unlock()
	if fileID != "f1" {
		t.Fatalf("file id not forwarded: %q", fileID)
	}
	// Body wins over query; use_engine from query survives.
	if params.OutputFormat != "markdown" || params.PageRange != "2-3" || !params.UseEngine {
		t.Fatalf("unexpected params: %+v", params)
	}
}

func TestConvertErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{app.ErrInvalidInput("bad format"), http.StatusBadRequest},
		{app.ErrDownloadFailed("403"), http.StatusBadRequest},
		{app.ErrFileNotFound("f1"), http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		f := newFakeService()
		f.convertErr = tc.err
		srv := newTestServer(t, f)
		resp, err := http.Post(srv.URL+"/convert/f1", "", nil)
		if err != nil {
			t.Fatalf("POST /convert: %v", err)
		}
		if resp.StatusCode != tc.want {
			t.Fatalf("error %v: status %d, want %d", tc.err, resp.StatusCode, tc.want)
		}
		if got := decodeBody[types.ErrorResponse](t, resp); got.Code != tc.want || got.Error == "" {
			t.Fatalf("unexpected error payload: %+v", got)
		}
	}
}

func TestConvertRejectsInvalidJSON(t *testing.T) {
	f := newFakeService()
	srv := newTestServer(t, f)
	resp, err := http.Post(srv.URL+"/convert/f1", "application/json", strings.NewReader("{nope"))
	if err != nil {
		t.Fatalf("POST /convert: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}

func TestJobStatusUnknown(t *testing.T) {
	f := newFakeService()
	srv := newTestServer(t, f)
	resp, err := http.Get(srv.URL + "/jobs/nope")
	if err != nil {
		t.Fatalf("GET /jobs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}

func TestJobStatusRunningNotCleaned(t *testing.T) {
	f := newFakeService()
	f.setJob("j1", job.View{ID: "j1", Status: job.StatusRunning})
	srv := newTestServer(t, f)

	resp, err := http.Get(srv.URL + "/jobs/j1")
	if err != nil {
		t.Fatalf("GET /jobs: %v", err)
	}
	got := decodeBody[types.JobStatusResponse](t, resp)
	if got.Status != "running" || got.Result != nil || got.Error != "" {
		t.Fatalf("unexpected response: %+v", got)
	}
	time.Sleep(20 * time.Millisecond)
	f.mu.Lock()
	cleaned := len(f.cleaned)
	f.mu.Unlock()
	if cleaned != 0 {
		t.Fatalf("running job must not be cleaned up")
	}
}

func TestJobStatusTerminalReadEvicts(t *testing.T) {
	f := newFakeService()
	res := &types.ConversionResult{Content: "<p>x</p>", Metadata: types.Metadata{PageCount: 1}}
	f.setJob("j1", job.View{ID: "j1", Status: job.StatusCompleted, Result: res})
	srv := newTestServer(t, f)

	resp, err := http.Get(srv.URL + "/jobs/j1")
	if err != nil {
		t.Fatalf("GET /jobs: %v", err)
	}
	got := decodeBody[types.JobStatusResponse](t, resp)
	if got.Status != "completed" || got.Result == nil || got.Result.Metadata.PageCount != 1 {
		t.Fatalf("unexpected response: %+v", got)
	}
	if cleaned := f.waitCleaned(t, 1); len(cleaned) != 1 || cleaned[0] != "j1" {
		t.Fatalf("terminal read must evict: %v", cleaned)
	}
	// Second read sees nothing.
	resp, err = http.Get(srv.URL + "/jobs/j1")
	if err != nil {
		t.Fatalf("GET /jobs: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second read status: %d", resp.StatusCode)
	}
}

func TestJobStatusFailedCarriesError(t *testing.T) {
	f := newFakeService()
	f.setJob("j1", job.View{ID: "j1", Status: job.StatusFailed, Err: "worker exited unexpectedly"})
	srv := newTestServer(t, f)

	resp, err := http.Get(srv.URL + "/jobs/j1")
	if err != nil {
		t.Fatalf("GET /jobs: %v", err)
	}
	got := decodeBody[types.JobStatusResponse](t, resp)
	if got.Status != "failed" || got.Error != "worker exited unexpectedly" {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestCancelEndpoint(t *testing.T) {
	f := newFakeService()
	f.cancelStatus = job.StatusCancelled
	srv := newTestServer(t, f)

	resp, err := http.Post(srv.URL+"/cancel/j1", "", nil)
	if err != nil {
		t.Fatalf("POST /cancel: %v", err)
	}
	if got := decodeBody[types.CancelResponse](t, resp); got.Status != "cancelled" || got.JobID != "j1" {
		t.Fatalf("unexpected response: %+v", got)
	}

	f.cancelStatus = job.StatusCompleted
	resp, err = http.Post(srv.URL+"/cancel/j1", "", nil)
	if err != nil {
		t.Fatalf("POST /cancel: %v", err)
	}
	if got := decodeBody[types.CancelResponse](t, resp); got.Status != "completed" || got.Message == "" {
		t.Fatalf("expected no-op payload, got %+v", got)
	}

	f.cancelErr = job.ErrJobNotFound("nope")
	resp, err = http.Post(srv.URL+"/cancel/nope", "", nil)
	if err != nil {
		t.Fatalf("POST /cancel: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}

func TestHealthAndReady(t *testing.T) {
	f := newFakeService()
	srv := newTestServer(t, f)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}

	f.mu.Lock()
	f.ready = false
	f.mu.Unlock()
	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz while shutting down: %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFakeService()
	srv := newTestServer(t, f)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %d", resp.StatusCode)
	}
}
