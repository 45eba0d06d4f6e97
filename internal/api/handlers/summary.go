package handlers

import (
	"context"
	"net/http"

	"github.com/medidocs/backend/internal/config"
	"github.com/medidocs/backend/internal/llm"
	"github.com/medidocs/backend/internal/summary"
)

// SummaryService is the part of the generation pipeline the handler needs.
type SummaryService interface {
	Generate(ctx context.Context, req summary.Request, userIP string) summary.Response
	GenerateStream(ctx context.Context, req summary.Request, userIP string) <-chan string
}

type SummaryHandler struct {
	svc    SummaryService
	llmCfg config.LLMConfig
}

func NewSummaryHandler(svc SummaryService, llmCfg config.LLMConfig) *SummaryHandler {
	return &SummaryHandler{svc: svc, llmCfg: llmCfg}
}

// Generate handles POST /summary/generate. Pipeline failures are reported
// inside the response body with HTTP 200; the frontend branches on the
// success flag.
func (h *SummaryHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req summary.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	resp := h.svc.Generate(r.Context(), req, clientIP(r))
	writeJSON(w, http.StatusOK, resp)
}

// GenerateStream handles POST /summary/generate-stream with the SSE
// heartbeat protocol.
func (h *SummaryHandler) GenerateStream(w http.ResponseWriter, r *http.Request) {
	var req summary.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	streamSSE(w, h.svc.GenerateStream(r.Context(), req, clientIP(r)))
}

// Models handles GET /summary/models: the models usable with the current
// configuration, in presentation order.
func (h *SummaryHandler) Models(w http.ResponseWriter, r *http.Request) {
	var available []string
	if h.llmCfg.ClaudeModel != "" {
		available = append(available, llm.ModelClaude)
	}
	if h.llmCfg.GeminiModel != "" {
		available = append(available, llm.ModelGeminiPro)
	}

	var defaultModel *string
	if len(available) > 0 {
		defaultModel = &available[0]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"available_models": available,
		"default_model":    defaultModel,
	})
}
