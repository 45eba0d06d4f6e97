package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medidocs/backend/internal/audit"
	"github.com/medidocs/backend/internal/config"
	"github.com/medidocs/backend/internal/messages"
	"github.com/medidocs/backend/internal/models"
	"github.com/medidocs/backend/internal/prompt"
	"github.com/medidocs/backend/internal/usage"
)

type fakePromptService struct {
	templates map[uuid.UUID]*models.PromptTemplate
	saved     *models.PromptTemplate
	created   bool
	listErr   error
}

func (f *fakePromptService) List(ctx context.Context) ([]models.PromptTemplate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.PromptTemplate
	for _, t := range f.templates {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakePromptService) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, prompt.ErrNotFound
	}
	return t, nil
}

func (f *fakePromptService) Save(ctx context.Context, t *models.PromptTemplate) (bool, error) {
	f.saved = t
	return f.created, nil
}

func (f *fakePromptService) DeleteByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, prompt.ErrNotFound
	}
	delete(f.templates, id)
	return t, nil
}

func testAudit() *audit.Logger {
	return audit.NewLogger(slog.New(slog.DiscardHandler))
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestPromptList_EmptyIsArray(t *testing.T) {
	h := NewPromptHandler(&fakePromptService{templates: map[uuid.UUID]*models.PromptTemplate{}}, testAudit())

	rec := doJSON(t, h.List, http.MethodGet, "/prompts", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestPromptGet_InvalidID(t *testing.T) {
	h := NewPromptHandler(&fakePromptService{}, testAudit())

	r := chi.NewRouter()
	r.Get("/prompts/{id}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/prompts/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPromptGet_NotFound(t *testing.T) {
	h := NewPromptHandler(&fakePromptService{templates: map[uuid.UUID]*models.PromptTemplate{}}, testAudit())

	r := chi.NewRouter()
	r.Get("/prompts/{id}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/prompts/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), messages.ErrorPromptNotFound)
}

func TestPromptCreate_RequiresContent(t *testing.T) {
	svc := &fakePromptService{}
	h := NewPromptHandler(svc, testAudit())

	rec := doJSON(t, h.Create, http.MethodPost, "/prompts", map[string]string{"department": "眼科"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), messages.ValidationPromptRequired)
	assert.Nil(t, svc.saved)
}

func TestPromptCreate_DefaultsScopes(t *testing.T) {
	svc := &fakePromptService{created: true}
	h := NewPromptHandler(svc, testAudit())

	rec := doJSON(t, h.Create, http.MethodPost, "/prompts", map[string]string{"content": "紹介状を書いてください"})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.saved)
	assert.Equal(t, messages.DefaultScope, svc.saved.Department)
	assert.Equal(t, messages.DefaultScope, svc.saved.Doctor)
	assert.Equal(t, messages.DefaultDocumentType, svc.saved.DocumentType)
	assert.Contains(t, rec.Body.String(), messages.SuccessPromptCreated)
}

func TestPromptDelete_ReportsDeletedStatus(t *testing.T) {
	id := uuid.New()
	svc := &fakePromptService{templates: map[uuid.UUID]*models.PromptTemplate{
		id: {ID: id, Department: "眼科", DocumentType: "返書", Doctor: "default"},
	}}
	h := NewPromptHandler(svc, testAudit())

	r := chi.NewRouter()
	r.Delete("/prompts/{id}", h.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/prompts/"+id.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted"`)
	assert.Empty(t, svc.templates)
}

type fakeStatsService struct {
	lastFilter usage.Filter
	lastLimit  int
	lastOffset int
}

func (f *fakeStatsService) Summary(ctx context.Context, fl usage.Filter) (*usage.SummaryStats, error) {
	f.lastFilter = fl
	return &usage.SummaryStats{TotalCount: 3}, nil
}

func (f *fakeStatsService) Aggregated(ctx context.Context, fl usage.Filter) ([]usage.AggregatedRow, error) {
	f.lastFilter = fl
	return nil, nil
}

func (f *fakeStatsService) Records(ctx context.Context, fl usage.Filter, limit, offset int) ([]models.UsageRecord, error) {
	f.lastFilter, f.lastLimit, f.lastOffset = fl, limit, offset
	return nil, nil
}

func TestStatistics_RejectsBadDate(t *testing.T) {
	h := NewStatisticsHandler(&fakeStatsService{})

	rec := doJSON(t, h.Summary, http.MethodGet, "/statistics/summary?start_date=2026/01/01", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatistics_FilterPassthrough(t *testing.T) {
	svc := &fakeStatsService{}
	h := NewStatisticsHandler(svc)

	rec := doJSON(t, h.Summary, http.MethodGet,
		"/statistics/summary?start_date=2026-01-01T00:00:00Z&model=Claude&document_type=返書", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Claude", svc.lastFilter.Model)
	assert.Equal(t, "返書", svc.lastFilter.DocumentType)
	assert.Equal(t, 2026, svc.lastFilter.Start.Year())
}

func TestStatisticsRecords_CapsLimit(t *testing.T) {
	svc := &fakeStatsService{}
	h := NewStatisticsHandler(svc)

	rec := doJSON(t, h.Records, http.MethodGet, "/statistics/records?limit=9999&offset=10", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxRecordsLimit, svc.lastLimit)
	assert.Equal(t, 10, svc.lastOffset)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestStatisticsAggregated_EmptyIsArray(t *testing.T) {
	h := NewStatisticsHandler(&fakeStatsService{})

	rec := doJSON(t, h.Aggregated, http.MethodGet, "/statistics/aggregated", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

type fakeModelResolver struct {
	model string
}

func (f *fakeModelResolver) ResolveSelectedModel(ctx context.Context, department, documentType, doctor string) (string, error) {
	return f.model, nil
}

func TestSettings_DoctorsForUnknownDepartment(t *testing.T) {
	h := NewSettingsHandler(&fakeModelResolver{})

	r := chi.NewRouter()
	r.Get("/settings/doctors/{department}", h.Doctors)

	req := httptest.NewRequest(http.MethodGet, "/settings/doctors/皮膚科", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{messages.DefaultScope}, body["doctors"])
}

func TestSettings_SelectedModel(t *testing.T) {
	h := NewSettingsHandler(&fakeModelResolver{model: "Gemini_Pro"})

	rec := doJSON(t, h.SelectedModel, http.MethodGet,
		"/settings/selected-model?department=眼科&document_type=返書&doctor=default", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Gemini_Pro"`)
}

func TestSummaryModels_ReflectsConfiguration(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LLMConfig
		available []any
		def       any
	}{
		{
			name:      "both configured",
			cfg:       config.LLMConfig{ClaudeModel: "claude-sonnet-4-20250514", GeminiModel: "gemini-2.0-flash"},
			available: []any{"Claude", "Gemini_Pro"},
			def:       "Claude",
		},
		{
			name:      "gemini only",
			cfg:       config.LLMConfig{GeminiModel: "gemini-2.0-flash"},
			available: []any{"Gemini_Pro"},
			def:       "Gemini_Pro",
		},
		{
			name:      "none configured",
			cfg:       config.LLMConfig{},
			available: nil,
			def:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSummaryHandler(nil, tt.cfg)

			rec := doJSON(t, h.Models, http.MethodGet, "/summary/models", nil)
			assert.Equal(t, http.StatusOK, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.available == nil {
				assert.Empty(t, body["available_models"])
			} else {
				assert.Equal(t, tt.available, body["available_models"])
			}
			assert.Equal(t, tt.def, body["default_model"])
		})
	}
}

type fakeEvalPromptStore struct {
	prompts map[string]*models.EvaluationPrompt
	created bool
}

func (f *fakeEvalPromptStore) GetActive(ctx context.Context, documentType string) (*models.EvaluationPrompt, error) {
	p, ok := f.prompts[documentType]
	if !ok {
		return nil, prompt.ErrNotFound
	}
	return p, nil
}

func (f *fakeEvalPromptStore) List(ctx context.Context) ([]models.EvaluationPrompt, error) {
	var out []models.EvaluationPrompt
	for _, p := range f.prompts {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeEvalPromptStore) Upsert(ctx context.Context, documentType, content string) (bool, error) {
	_, exists := f.prompts[documentType]
	f.prompts[documentType] = &models.EvaluationPrompt{DocumentType: documentType, Content: content, IsActive: true}
	return !exists && f.created, nil
}

func (f *fakeEvalPromptStore) Delete(ctx context.Context, documentType string) error {
	if _, ok := f.prompts[documentType]; !ok {
		return prompt.ErrNotFound
	}
	delete(f.prompts, documentType)
	return nil
}

func TestEvaluationPromptSave_RequiresBothFields(t *testing.T) {
	h := NewEvaluationPromptHandler(&fakeEvalPromptStore{prompts: map[string]*models.EvaluationPrompt{}}, testAudit())

	rec := doJSON(t, h.Save, http.MethodPost, "/evaluation/prompts", map[string]string{"document_type": "返書"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), messages.ValidationEvalPromptRequired)
}

func TestEvaluationPromptSave_Created(t *testing.T) {
	store := &fakeEvalPromptStore{prompts: map[string]*models.EvaluationPrompt{}, created: true}
	h := NewEvaluationPromptHandler(store, testAudit())

	rec := doJSON(t, h.Save, http.MethodPost, "/evaluation/prompts",
		map[string]string{"document_type": "返書", "content": "採点してください"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), messages.SuccessEvalPromptCreated)
	assert.Contains(t, store.prompts, "返書")
}

func TestEvaluationPromptGet_NotFound(t *testing.T) {
	h := NewEvaluationPromptHandler(&fakeEvalPromptStore{prompts: map[string]*models.EvaluationPrompt{}}, testAudit())

	r := chi.NewRouter()
	r.Get("/evaluation/prompts/{documentType}", h.Get)

	req := httptest.NewRequest(http.MethodGet, "/evaluation/prompts/返書", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "返書の評価プロンプトが見つかりません")
}
