// convert-worker runs exactly one conversion job in isolation. The parent
// daemon writes a JSON job descriptor to stdin and reads NDJSON frames
// from stdout; a crash here never takes down the daemon.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"convertd/internal/worker"
)

func main() {
	var req worker.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fmt.Fprintf(os.Stderr, "decode request: %v\n", err)
		os.Exit(2)
	}

	out := bufio.NewWriter(os.Stdout)
	enc := json.NewEncoder(out)
	emit := func(f worker.Frame) error {
		if err := enc.Encode(f); err != nil {
			return err
		}
		return out.Flush()
	}

	// SIGTERM from the daemon (cancellation) cancels the run context so
	// the conversion stops at the next page boundary.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := worker.Run(ctx, req, emit); err != nil {
		_ = emit(worker.Frame{Type: worker.FrameError, Error: err.Error()})
		fmt.Fprintf(os.Stderr, "conversion failed: %v\n", err)
		os.Exit(1)
	}
}
