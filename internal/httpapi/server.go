package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"convertd/internal/app"
	"convertd/internal/job"
	"convertd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Load(ctx context.Context, withEngine bool) error
	Unload() (bool, error)
	Loaded() bool
	Convert(ctx context.Context, fileID string, p types.ConvertParams) (string, error)
	Job(id string) (job.View, bool)
	Progress(id string) (*job.Channel, bool)
	Cancel(id string) (job.Status, error)
	Cleanup(id string)
	Ready() bool
}

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// NewMux builds the router for the conversion daemon.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)
	r.Use(RequestLogger)

	r.Post("/load", handleLoad(svc))
	r.Post("/unload", handleUnload(svc))
	r.Post("/convert/{file_id}", handleConvert(svc))
	r.Get("/jobs/{job_id}", handleJobStatus(svc))
	r.Get("/jobs/{job_id}/stream", handleJobStream(svc))
	r.Post("/cancel/{job_id}", handleCancel(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("shutting down"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// handleLoad godoc
// @Summary  Load the conversion resource
// @Produce  json
// @Param    engine query bool false "also start the external engine"
// @Success  200 {object} types.LoadResponse
// @Failure  500 {object} types.ErrorResponse
// @Router   /load [post]
func handleLoad(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withEngine := boolQuery(r, "engine")
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.Load(ctx, withEngine); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.LoadResponse{Status: "ok"})
	}
}

// handleUnload godoc
// @Summary  Unload the resource and stop the engine
// @Produce  json
// @Success  200 {object} types.UnloadResponse
// @Failure  500 {object} types.ErrorResponse
// @Router   /unload [post]
func handleUnload(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unloaded, err := svc.Unload()
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.UnloadResponse{Unloaded: unloaded})
	}
}

// handleConvert godoc
// @Summary  Create and start a conversion job
// @Accept   json
// @Produce  json
// @Param    file_id path string true "input file id"
// @Param    output_format query string false "html or markdown"
// @Param    use_engine query bool false "route inference through the external engine"
// @Param    page_range query string false "1-based page range, e.g. 1-3"
// @Param    file_url query string false "URL to fetch the input from"
// @Success  200 {object} types.ConvertResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  404 {object} types.ErrorResponse
// @Failure  500 {object} types.ErrorResponse
// @Router   /convert/{file_id} [post]
func handleConvert(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileID := chi.URLParam(r, "file_id")
		p := types.ConvertParams{
			OutputFormat: r.URL.Query().Get("output_format"),
			UseEngine:    boolQuery(r, "use_engine"),
			PageRange:    r.URL.Query().Get("page_range"),
			FileURL:      r.URL.Query().Get("file_url"),
		}
		// A JSON body, when present, overrides query parameters.
		if ct := r.Header.Get("Content-Type"); strings.HasPrefix(strings.ToLower(ct), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			var body types.ConvertParams
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			if body.OutputFormat != "" {
				p.OutputFormat = body.OutputFormat
			}
			if body.PageRange != "" {
				p.PageRange = body.PageRange
			}
			if body.FileURL != "" {
				p.FileURL = body.FileURL
			}
			p.UseEngine = p.UseEngine || body.UseEngine
		}

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		jobID, err := svc.Convert(ctx, fileID, p)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ConvertResponse{JobID: jobID})
	}
}

// handleJobStatus godoc
// @Summary  Poll a job's status
// @Produce  json
// @Param    job_id path string true "job id"
// @Success  200 {object} types.JobStatusResponse
// @Failure  404 {object} types.ErrorResponse
// @Router   /jobs/{job_id} [get]
func handleJobStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "job_id")
		v, ok := svc.Job(id)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "job not found")
			return
		}
		resp := types.JobStatusResponse{JobID: id, Status: string(v.Status)}
		switch v.Status {
		case job.StatusCompleted:
			resp.Result = v.Result
		case job.StatusFailed:
			resp.Error = v.Err
		case job.StatusCancelled:
			resp.Error = "job was cancelled"
		}
		writeJSON(w, http.StatusOK, resp)
		// Terminal statuses are evicted once delivered.
		if v.Status.Terminal() {
			svc.Cleanup(id)
		}
	}
}

// handleCancel godoc
// @Summary  Cancel a running job
// @Produce  json
// @Param    job_id path string true "job id"
// @Success  200 {object} types.CancelResponse
// @Failure  404 {object} types.ErrorResponse
// @Failure  500 {object} types.ErrorResponse
// @Router   /cancel/{job_id} [post]
func handleCancel(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "job_id")
		st, err := svc.Cancel(id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if st != job.StatusCancelled {
			writeJSON(w, http.StatusOK, types.CancelResponse{Status: string(st), Message: "job already finished"})
			return
		}
		writeJSON(w, http.StatusOK, types.CancelResponse{Status: string(job.StatusCancelled), JobID: id})
	}
}

func boolQuery(r *http.Request, key string) bool {
	switch strings.ToLower(r.URL.Query().Get(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps well-known service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case app.IsInvalidInput(err), app.IsDownloadFailed(err):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case app.IsFileNotFound(err), job.IsJobNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		if he, ok := err.(HTTPError); ok {
			writeJSONError(w, he.StatusCode(), he.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
