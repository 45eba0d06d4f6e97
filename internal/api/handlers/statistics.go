package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/medidocs/backend/internal/models"
	"github.com/medidocs/backend/internal/usage"
)

const maxRecordsLimit = 500

// StatisticsService is the statistics surface the handler needs.
type StatisticsService interface {
	Summary(ctx context.Context, f usage.Filter) (*usage.SummaryStats, error)
	Aggregated(ctx context.Context, f usage.Filter) ([]usage.AggregatedRow, error)
	Records(ctx context.Context, f usage.Filter, limit, offset int) ([]models.UsageRecord, error)
}

type StatisticsHandler struct {
	svc StatisticsService
}

func NewStatisticsHandler(svc StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{svc: svc}
}

// parseFilter reads the shared query parameters. Missing dates leave zero
// times; the service substitutes its default period.
func parseFilter(r *http.Request) (usage.Filter, bool) {
	var f usage.Filter

	if v := r.URL.Query().Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, false
		}
		f.Start = t
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, false
		}
		f.End = t
	}
	f.Model = r.URL.Query().Get("model")
	f.DocumentType = r.URL.Query().Get("document_type")
	return f, true
}

func (h *StatisticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date format, want RFC3339")
		return
	}

	stats, err := h.svc.Summary(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *StatisticsHandler) Aggregated(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date format, want RFC3339")
		return
	}

	rows, err := h.svc.Aggregated(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []usage.AggregatedRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *StatisticsHandler) Records(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date format, want RFC3339")
		return
	}

	limit := queryInt(r, "limit", 100)
	if limit > maxRecordsLimit {
		limit = maxRecordsLimit
	}
	offset := queryInt(r, "offset", 0)

	records, err := h.svc.Records(r.Context(), f, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []models.UsageRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
