package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/medidocs/backend/internal/usage"
)

type HandlersRegistry struct {
	mux *asynq.ServeMux
}

func NewHandlersRegistry() *HandlersRegistry {
	return &HandlersRegistry{mux: asynq.NewServeMux()}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}

// UsageSaveHandler writes queued usage records.
type UsageSaveHandler struct {
	store  usage.Store
	logger *slog.Logger
}

func NewUsageSaveHandler(store usage.Store, logger *slog.Logger) *UsageSaveHandler {
	return &UsageSaveHandler{store: store, logger: logger}
}

func (h *UsageSaveHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload UsageSavePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal usage payload: %w", err)
	}

	if err := h.store.Insert(ctx, &payload.Record); err != nil {
		h.logger.Error("usage save task failed", "error", err)
		return err
	}

	h.logger.Debug("usage record saved",
		"document_type", payload.Record.DocumentType, "model", payload.Record.Model)
	return nil
}
