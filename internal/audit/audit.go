// Package audit writes structured operational events for the generation and
// evaluation pipelines. Events carry request metadata only; chart text and
// generated documents never reach the log.
package audit

import (
	"log/slog"
)

// Event is one auditable pipeline occurrence.
type Event struct {
	Type           string
	UserIP         string
	DocumentType   string
	Department     string
	Doctor         string
	Model          string
	Success        bool
	ErrorMessage   string
	InputTokens    int
	OutputTokens   int
	ProcessingTime float64
}

// Logger emits audit events through slog.
type Logger struct {
	log *slog.Logger
}

func NewLogger(log *slog.Logger) *Logger {
	return &Logger{log: log.With("component", "audit")}
}

// Log writes one event. Zero-valued optional fields are omitted so the log
// line only carries what the event actually knows.
func (l *Logger) Log(e Event) {
	attrs := []any{
		"event", e.Type,
		"success", e.Success,
	}

	if e.UserIP != "" {
		attrs = append(attrs, "user_ip", e.UserIP)
	}
	if e.DocumentType != "" {
		attrs = append(attrs, "document_type", e.DocumentType)
	}
	if e.Department != "" {
		attrs = append(attrs, "department", e.Department)
	}
	if e.Doctor != "" {
		attrs = append(attrs, "doctor", e.Doctor)
	}
	if e.Model != "" {
		attrs = append(attrs, "model", e.Model)
	}
	if e.InputTokens > 0 || e.OutputTokens > 0 {
		attrs = append(attrs, "input_tokens", e.InputTokens, "output_tokens", e.OutputTokens)
	}
	if e.ProcessingTime > 0 {
		attrs = append(attrs, "processing_time", e.ProcessingTime)
	}

	if e.Success {
		l.log.Info("audit", attrs...)
		return
	}

	if e.ErrorMessage != "" {
		attrs = append(attrs, "error", e.ErrorMessage)
	}
	l.log.Warn("audit", attrs...)
}
