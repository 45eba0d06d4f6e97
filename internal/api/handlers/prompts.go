package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medidocs/backend/internal/audit"
	"github.com/medidocs/backend/internal/messages"
	"github.com/medidocs/backend/internal/models"
	"github.com/medidocs/backend/internal/prompt"
)

// PromptService is the template management surface the handler needs.
type PromptService interface {
	List(ctx context.Context) ([]models.PromptTemplate, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)
	Save(ctx context.Context, t *models.PromptTemplate) (created bool, err error)
	DeleteByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)
}

type PromptHandler struct {
	svc   PromptService
	audit *audit.Logger
}

func NewPromptHandler(svc PromptService, auditLog *audit.Logger) *PromptHandler {
	return &PromptHandler{svc: svc, audit: auditLog}
}

func (h *PromptHandler) List(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if prompts == nil {
		prompts = []models.PromptTemplate{}
	}
	writeJSON(w, http.StatusOK, prompts)
}

func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prompt id")
		return
	}

	t, err := h.svc.GetByID(r.Context(), id)
	if errors.Is(err, prompt.ErrNotFound) {
		writeError(w, http.StatusNotFound, messages.ErrorPromptNotFound)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type promptCreateRequest struct {
	Department    string `json:"department"`
	DocumentType  string `json:"document_type"`
	Doctor        string `json:"doctor"`
	Content       string `json:"content"`
	SelectedModel string `json:"selected_model"`
}

// Create handles POST /prompts: create or update the template for the
// (department, document_type, doctor) triple.
func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req promptCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, messages.ValidationPromptRequired)
		return
	}
	if req.Department == "" {
		req.Department = messages.DefaultScope
	}
	if req.Doctor == "" {
		req.Doctor = messages.DefaultScope
	}
	if req.DocumentType == "" {
		req.DocumentType = messages.DefaultDocumentType
	}

	t := &models.PromptTemplate{
		Department:    req.Department,
		DocumentType:  req.DocumentType,
		Doctor:        req.Doctor,
		Content:       req.Content,
		SelectedModel: req.SelectedModel,
	}

	created, err := h.svc.Save(r.Context(), t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	eventType := messages.AuditPromptUpdated
	message := messages.SuccessPromptUpdated
	if created {
		eventType = messages.AuditPromptCreated
		message = messages.SuccessPromptCreated
	}
	h.audit.Log(audit.Event{
		Type:         eventType,
		UserIP:       clientIP(r),
		DocumentType: t.DocumentType,
		Department:   t.Department,
		Doctor:       t.Doctor,
		Success:      true,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"prompt":  t,
		"message": message,
	})
}

func (h *PromptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prompt id")
		return
	}

	deleted, err := h.svc.DeleteByID(r.Context(), id)
	if errors.Is(err, prompt.ErrNotFound) {
		writeError(w, http.StatusNotFound, messages.ErrorPromptNotFound)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.audit.Log(audit.Event{
		Type:         messages.AuditPromptDeleted,
		UserIP:       clientIP(r),
		DocumentType: deleted.DocumentType,
		Department:   deleted.Department,
		Doctor:       deleted.Doctor,
		Success:      true,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "deleted",
		"message": messages.SuccessPromptDeleted,
	})
}
