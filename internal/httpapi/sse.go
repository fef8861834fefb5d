package httpapi

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"convertd/internal/job"
	"convertd/pkg/types"
)

// handleJobStream godoc
// @Summary  Stream job progress as server-sent events
// @Produce  text/event-stream
// @Param    job_id path string true "job id"
// @Success  200 {string} string "event stream"
// @Failure  404 {object} types.ErrorResponse
// @Router   /jobs/{job_id}/stream [get]
func handleJobStream(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "job_id")
		ch, ok := svc.Progress(id)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "job not found")
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		sseClients.Inc()
		defer sseClients.Dec()

		partialSent := false
		for {
			select {
			case <-r.Context().Done():
				return
			case <-serverBaseCtx.Done():
				return
			default:
			}

			if e, ok := ch.Recv(streamRecvTimeout); ok {
				writeSSE(w, flusher, "progress", progressPayload(e))
				continue
			}

			// Queue idle: re-check the job. Drain whatever is still
			// buffered before announcing a terminal state so progress
			// never arrives after the outcome.
			v, ok := svc.Job(id)
			if !ok {
				writeSSE(w, flusher, "error", types.ErrorResponse{Error: "job not found", Code: http.StatusNotFound})
				return
			}
			if v.Status.Terminal() {
				for {
					e, ok := ch.TryRecv()
					if !ok {
						break
					}
					writeSSE(w, flusher, "progress", progressPayload(e))
				}
			}
			if v.PartialHTML != "" && !partialSent {
				writeSSE(w, flusher, "partial_ready", types.PartialFrame{Content: v.PartialHTML})
				partialSent = true
			}
			switch v.Status {
			case job.StatusCompleted:
				writeSSE(w, flusher, "completed", v.Result)
				svc.Cleanup(id)
				return
			case job.StatusFailed:
				writeSSE(w, flusher, "failed", types.ErrorResponse{Error: v.Err, Code: http.StatusInternalServerError})
				svc.Cleanup(id)
				return
			case job.StatusCancelled:
				writeSSE(w, flusher, "cancelled", types.CancelResponse{Status: string(job.StatusCancelled), JobID: id})
				svc.Cleanup(id)
				return
			}
		}
	}
}

func progressPayload(e job.Event) types.ProgressFrame {
	f := types.ProgressFrame{Stage: e.Stage, Current: e.Current, Total: e.Total}
	if !e.StartedAt.IsZero() {
		f.Elapsed = math.Round(time.Since(e.StartedAt).Seconds()*10) / 10
	}
	return f
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	b, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	flusher.Flush()
}
