package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medidocs/backend/internal/audit"
	"github.com/medidocs/backend/internal/messages"
	"github.com/medidocs/backend/internal/models"
	"github.com/medidocs/backend/internal/prompt"
)

type EvaluationPromptHandler struct {
	store prompt.EvaluationStore
	audit *audit.Logger
}

func NewEvaluationPromptHandler(store prompt.EvaluationStore, auditLog *audit.Logger) *EvaluationPromptHandler {
	return &EvaluationPromptHandler{store: store, audit: auditLog}
}

func (h *EvaluationPromptHandler) List(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if prompts == nil {
		prompts = []models.EvaluationPrompt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": prompts})
}

func (h *EvaluationPromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	documentType := chi.URLParam(r, "documentType")

	p, err := h.store.GetActive(r.Context(), documentType)
	if errors.Is(err, prompt.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf(messages.ErrorEvalPromptNotFound, documentType))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type evaluationPromptSaveRequest struct {
	DocumentType string `json:"document_type"`
	Content      string `json:"content"`
}

// Save handles POST /evaluation/prompts: one active judge prompt per
// document type, created or replaced wholesale.
func (h *EvaluationPromptHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req evaluationPromptSaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DocumentType == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, messages.ValidationEvalPromptRequired)
		return
	}

	created, err := h.store.Upsert(r.Context(), req.DocumentType, req.Content)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	message := messages.SuccessEvalPromptUpdated
	if created {
		message = messages.SuccessEvalPromptCreated
	}
	h.audit.Log(audit.Event{
		Type:         messages.AuditEvalPromptSaved,
		UserIP:       clientIP(r),
		DocumentType: req.DocumentType,
		Success:      true,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       message,
		"document_type": req.DocumentType,
	})
}

func (h *EvaluationPromptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	documentType := chi.URLParam(r, "documentType")

	err := h.store.Delete(r.Context(), documentType)
	if errors.Is(err, prompt.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf(messages.ErrorEvalPromptNotFound, documentType))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.audit.Log(audit.Event{
		Type:         messages.AuditEvalPromptDeleted,
		UserIP:       clientIP(r),
		DocumentType: documentType,
		Success:      true,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       messages.SuccessEvalPromptDeleted,
		"document_type": documentType,
	})
}
