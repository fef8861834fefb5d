package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"
)

// Minimal stand-in for convert-worker used by orchestrator tests. Reads
// the job request from stdin like the real binary, then behaves per
// --mode.
func main() {
	var mode string
	var sleep time.Duration
	flag.StringVar(&mode, "mode", "ok", "ok|slow|crash|silent")
	flag.DurationVar(&sleep, "sleep", 5*time.Second, "sleep before finishing in slow mode")
	flag.Parse()

	var req map[string]any
	_ = json.NewDecoder(os.Stdin).Decode(&req)

	enc := json.NewEncoder(os.Stdout)
	emit := func(v map[string]any) {
		_ = enc.Encode(v)
	}

	switch mode {
	case "crash":
		fmt.Fprintln(os.Stderr, "panic: device memory corruption")
		os.Exit(2)
	case "silent":
		// Exit cleanly without ever producing a result.
		return
	case "slow":
		emit(map[string]any{"type": "progress", "stage": "layout", "current": 1, "total": 1})
		time.Sleep(sleep)
	}

	for i := 1; i <= 3; i++ {
		emit(map[string]any{"type": "progress", "stage": "render", "current": i, "total": 3})
	}
	emit(map[string]any{"type": "partial", "content": "<div class=\"page\"><p>hi</p></div>"})
	emit(map[string]any{
		"type": "result",
		"result": map[string]any{
			"content":  "<div class=\"page\"><p>hi</p></div>",
			"metadata": map[string]any{"page_count": 3},
			"formats": map[string]any{
				"html":     "<div class=\"page\"><p>hi</p></div>",
				"markdown": "hi",
			},
		},
	})
}
