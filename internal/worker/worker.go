// Package worker implements the conversion performed inside the isolated
// per-job subprocess. The parent communicates one Request on stdin and
// receives NDJSON Frames on stdout; nothing else is shared.
package worker

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"convertd/pkg/types"
)

// Request is the job descriptor handed to the worker on stdin.
type Request struct {
	JobID        string `json:"job_id"`
	InputPath    string `json:"input_path"`
	OutputFormat string `json:"output_format"`
	PageRange    string `json:"page_range,omitempty"`
	// EngineURL routes per-page inference through the external engine when set.
	EngineURL string `json:"engine_url,omitempty"`
}

// Frame is one NDJSON line on the worker's stdout.
type Frame struct {
	Type    string                  `json:"type"` // progress | partial | result | error
	Stage   string                  `json:"stage,omitempty"`
	Current int                     `json:"current,omitempty"`
	Total   int                     `json:"total,omitempty"`
	Content string                  `json:"content,omitempty"`
	Result  *types.ConversionResult `json:"result,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// Frame type values.
const (
	FrameProgress = "progress"
	FramePartial  = "partial"
	FrameResult   = "result"
	FrameError    = "error"
)

// EmitFunc delivers one frame to the parent process.
type EmitFunc func(Frame) error

// Run performs the conversion and emits progress, one partial frame when
// the HTML rendering becomes available, and a final result frame. Errors
// are returned to the caller; the binary entrypoint turns them into an
// error frame and a non-zero exit.
func Run(ctx context.Context, req Request, emit EmitFunc) error {
	raw, err := os.ReadFile(req.InputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	pages := splitPages(string(raw))
	selected, err := selectPages(pages, req.PageRange)
	if err != nil {
		return err
	}
	total := len(selected)

	// Layout pass over the selected pages.
	for i := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(Frame{Type: FrameProgress, Stage: "layout", Current: i + 1, Total: total}); err != nil {
			return err
		}
	}

	// Optional per-page inference through the external engine.
	if req.EngineURL != "" {
		cli := newEngineClient(req.EngineURL)
		for i, page := range selected {
			text, err := cli.ocrPage(ctx, page)
			if err != nil {
				return fmt.Errorf("engine inference page %d: %w", i+1, err)
			}
			selected[i] = text
			if err := emit(Frame{Type: FrameProgress, Stage: "ocr", Current: i + 1, Total: total}); err != nil {
				return err
			}
		}
	}

	// Render each page's markdown to HTML.
	htmlPages := make([]string, total)
	for i, page := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		h, err := renderHTML(page)
		if err != nil {
			return fmt.Errorf("render page %d: %w", i+1, err)
		}
		htmlPages[i] = h
		if err := emit(Frame{Type: FrameProgress, Stage: "render", Current: i + 1, Total: total}); err != nil {
			return err
		}
	}
	html := strings.Join(htmlPages, "\n")

	// HTML is available before the full multi-format result.
	if err := emit(Frame{Type: FramePartial, Content: html}); err != nil {
		return err
	}

	markdown := strings.Join(selected, "\n\n")
	content := html
	if req.OutputFormat == "markdown" {
		content = markdown
	}
	res := &types.ConversionResult{
		Content:  content,
		Metadata: types.Metadata{PageCount: total},
		Formats:  types.Formats{HTML: html, Markdown: markdown},
	}
	return emit(Frame{Type: FrameResult, Result: res})
}

// ocrTimeout bounds one engine inference call.
const ocrTimeout = 120 * time.Second
