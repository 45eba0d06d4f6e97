package handlers

import (
	"context"
	"net/http"

	"github.com/medidocs/backend/internal/evaluation"
)

// EvaluationService is the part of the judge pipeline the handler needs.
type EvaluationService interface {
	Evaluate(ctx context.Context, req evaluation.Request, userIP string) evaluation.Response
	EvaluateStream(ctx context.Context, req evaluation.Request, userIP string) <-chan string
}

type EvaluationHandler struct {
	svc EvaluationService
}

func NewEvaluationHandler(svc EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{svc: svc}
}

func (h *EvaluationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluation.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	resp := h.svc.Evaluate(r.Context(), req, clientIP(r))
	writeJSON(w, http.StatusOK, resp)
}

func (h *EvaluationHandler) EvaluateStream(w http.ResponseWriter, r *http.Request) {
	var req evaluation.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	streamSSE(w, h.svc.EvaluateStream(r.Context(), req, clientIP(r)))
}
