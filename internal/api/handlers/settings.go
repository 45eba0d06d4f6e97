package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medidocs/backend/internal/messages"
)

// SelectedModelResolver reports the model pinned by the resolved prompt
// template for a scope.
type SelectedModelResolver interface {
	ResolveSelectedModel(ctx context.Context, department, documentType, doctor string) (string, error)
}

// SettingsHandler serves the clinic-level pick lists the frontend renders.
type SettingsHandler struct {
	resolver SelectedModelResolver
}

func NewSettingsHandler(resolver SelectedModelResolver) *SettingsHandler {
	return &SettingsHandler{resolver: resolver}
}

func (h *SettingsHandler) Departments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"departments": messages.Departments})
}

func (h *SettingsHandler) Doctors(w http.ResponseWriter, r *http.Request) {
	department := chi.URLParam(r, "department")
	doctors, ok := messages.DepartmentDoctorsMapping[department]
	if !ok {
		doctors = []string{messages.DefaultScope}
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": doctors})
}

func (h *SettingsHandler) DocumentTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"document_types": messages.DocumentTypes})
}

// SelectedModel handles GET /settings/selected-model. Empty string means no
// template pins a model for the scope.
func (h *SettingsHandler) SelectedModel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	department := q.Get("department")
	documentType := q.Get("document_type")
	doctor := q.Get("doctor")

	model, err := h.resolver.ResolveSelectedModel(r.Context(), department, documentType, doctor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected_model": model})
}
