package types

// ConvertParams carries the options accepted by POST /convert/{file_id}.
// Fields may arrive as query parameters or as a JSON body.
type ConvertParams struct {
	// Output format returned in the result content field: "html" or "markdown".
	// example: html
	OutputFormat string `json:"output_format,omitempty" example:"html"`
	// If true, route page inference through the external engine.
	// example: false
	UseEngine bool `json:"use_engine,omitempty" example:"false"`
	// Optional page range like "1-5" or "1,3,5". Empty means all pages.
	// example: 1-3
	PageRange string `json:"page_range,omitempty" example:"1-3"`
	// Optional URL to fetch the input from when it was not uploaded beforehand.
	// example: https://example.com/doc.pdf
	FileURL string `json:"file_url,omitempty" example:"https://example.com/doc.pdf"`
}

// ConvertResponse is returned by POST /convert/{file_id}.
type ConvertResponse struct {
	// Identifier of the created job.
	// example: 3b241101-e2bb-4255-8caf-4136c566a962
	JobID string `json:"job_id" example:"3b241101-e2bb-4255-8caf-4136c566a962"`
}

// Metadata describes the converted document.
type Metadata struct {
	// Number of pages processed.
	// example: 3
	PageCount int `json:"page_count" example:"3"`
}

// Formats holds every rendered representation of the document.
type Formats struct {
	HTML     string `json:"html"`
	Markdown string `json:"markdown"`
}

// ConversionResult is the terminal payload of a completed job.
type ConversionResult struct {
	// Content in the requested output format.
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Formats  Formats  `json:"formats"`
}

// JobStatusResponse is returned by GET /jobs/{job_id}.
type JobStatusResponse struct {
	// example: 3b241101-e2bb-4255-8caf-4136c566a962
	JobID string `json:"job_id"`
	// One of queued, running, partial_ready, completed, failed, cancelled.
	// example: running
	Status string `json:"status" example:"running"`
	// Set only when status is completed.
	Result *ConversionResult `json:"result,omitempty"`
	// Set only when status is failed or cancelled.
	// example: worker exited unexpectedly
	Error string `json:"error,omitempty" example:"worker exited unexpectedly"`
}

// CancelResponse is returned by POST /cancel/{job_id}.
type CancelResponse struct {
	// Resulting status. "cancelled" on success; the unchanged terminal
	// status when the job had already finished.
	// example: cancelled
	Status string `json:"status" example:"cancelled"`
	// example: 3b241101-e2bb-4255-8caf-4136c566a962
	JobID string `json:"job_id,omitempty"`
	// Optional human-readable note (e.g., "job already finished").
	Message string `json:"message,omitempty"`
}

// LoadResponse is returned by POST /load.
type LoadResponse struct {
	// example: ok
	Status string `json:"status" example:"ok"`
}

// UnloadResponse is returned by POST /unload.
type UnloadResponse struct {
	// True when a loaded resource was actually released.
	// example: true
	Unloaded bool `json:"unloaded" example:"true"`
}

// ProgressFrame is one SSE "progress" event on GET /jobs/{job_id}/stream.
type ProgressFrame struct {
	// Pipeline stage label (e.g., "layout", "render").
	// example: render
	Stage string `json:"stage" example:"render"`
	// example: 2
	Current int `json:"current" example:"2"`
	// example: 3
	Total int `json:"total" example:"3"`
	// Seconds elapsed since the job started, rounded to 0.1s.
	// example: 1.5
	Elapsed float64 `json:"elapsed" example:"1.5"`
}

// PartialFrame is the one-shot SSE "partial_ready" event payload.
type PartialFrame struct {
	// Early-available HTML rendering of the document.
	Content string `json:"content"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
