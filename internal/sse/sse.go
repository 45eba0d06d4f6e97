// Package sse renders server-sent event frames and runs long provider calls
// behind a heartbeat so proxies do not drop the connection while a model
// generates.
package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Encode renders one SSE frame. HTML escaping is disabled so Japanese text
// and angle brackets pass through verbatim.
func Encode(event string, data any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Payloads are plain structs and maps; encoding cannot fail.
	_ = enc.Encode(data)
	payload := strings.TrimRight(buf.String(), "\n")
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, payload)
}

type progressPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorPayload struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message"`
}

// ProgressFrame renders a progress event.
func ProgressFrame(status, message string) string {
	return Encode("progress", progressPayload{Status: status, Message: message})
}

// ErrorFrame renders a terminal error event.
func ErrorFrame(message string) string {
	return Encode("error", errorPayload{Success: false, ErrorMessage: message})
}

// Options configures the heartbeat run.
type Options struct {
	StartMessage    string
	RunningStatus   string
	RunningMessage  string
	ElapsedTemplate string // fmt verb %d receives elapsed seconds
	Interval        time.Duration
}

// RunWithHeartbeat executes work on its own goroutine and returns the frame
// sequence to write to the client: a starting progress frame, a running
// progress frame, elapsed heartbeats every Interval, then the terminal frame
// work returned (or an error frame if it failed). The channel closes after
// the terminal frame.
//
// A cancelled ctx stops frame delivery but not work itself; work is expected
// to finish and persist its side effects even after the client is gone.
func RunWithHeartbeat(ctx context.Context, opts Options, work func() (string, error)) <-chan string {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	out := make(chan string, 4)
	go func() {
		defer close(out)

		out <- ProgressFrame("starting", opts.StartMessage)
		start := time.Now()

		done := make(chan struct{})
		var (
			terminal string
			workErr  error
		)
		go func() {
			terminal, workErr = work()
			close(done)
		}()

		out <- ProgressFrame(opts.RunningStatus, opts.RunningMessage)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				if workErr != nil {
					out <- ErrorFrame(workErr.Error())
					return
				}
				out <- terminal
				return
			case <-ticker.C:
				elapsed := int(time.Since(start).Seconds())
				out <- ProgressFrame(opts.RunningStatus, fmt.Sprintf(opts.ElapsedTemplate, elapsed))
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
