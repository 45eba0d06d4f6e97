// Package usage records per-generation statistics and serves the statistics
// API. Timestamps are stored in JST because the clinic reads its reports in
// local time.
package usage

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/medidocs/backend/internal/messages"
	"github.com/medidocs/backend/internal/models"
)

var jst = time.FixedZone("JST", 9*60*60)

// Now returns the current time in JST.
func Now() time.Time {
	return time.Now().In(jst)
}

// Enqueuer hands a usage record to the background queue.
type Enqueuer interface {
	EnqueueUsageSave(ctx context.Context, rec *models.UsageRecord) error
}

// Service saves usage records and answers statistics queries.
type Service struct {
	store       Store
	queue       Enqueuer // nil means write directly
	defaultDays int
	logger      *slog.Logger
}

func NewService(store Store, queue Enqueuer, defaultDays int, logger *slog.Logger) *Service {
	return &Service{store: store, queue: queue, defaultDays: defaultDays, logger: logger}
}

// Record persists one usage record, best effort. Generation already
// succeeded by the time this runs, so persistence failures are logged and
// swallowed; a lost statistic must not fail the request. With a queue
// configured the record is enqueued and written by the worker.
func (s *Service) Record(ctx context.Context, rec models.UsageRecord) {
	rec.Date = Now()
	rec.AppType = messages.AppType

	if s.queue != nil {
		err := s.queue.EnqueueUsageSave(ctx, &rec)
		if err == nil {
			return
		}
		s.logger.Warn("usage enqueue failed, writing directly", "error", err)
	}

	if err := s.store.Insert(ctx, &rec); err != nil {
		s.logger.Error(messages.ErrorUsageSaveFailed, "error", err)
	}
}

// applyDefaultPeriod substitutes the configured trailing window for missing
// bounds.
func (s *Service) applyDefaultPeriod(f Filter) Filter {
	now := Now()
	if f.End.IsZero() {
		f.End = now
	}
	if f.Start.IsZero() {
		f.Start = now.AddDate(0, 0, -s.defaultDays)
	}
	return f
}

// Summary returns the period totals.
func (s *Service) Summary(ctx context.Context, f Filter) (*SummaryStats, error) {
	stats, err := s.store.Summary(ctx, s.applyDefaultPeriod(f))
	if err != nil {
		return nil, err
	}
	stats.AverageProcessingTime = math.Round(stats.AverageProcessingTime*100) / 100
	return stats, nil
}

// Aggregated returns per-document buckets with presentation labels: the
// "default" scope shows as the clinic-wide label, empty values likewise.
func (s *Service) Aggregated(ctx context.Context, f Filter) ([]AggregatedRow, error) {
	rows, err := s.store.Aggregated(ctx, s.applyDefaultPeriod(f))
	if err != nil {
		return nil, err
	}

	for i := range rows {
		if rows[i].DocumentType == "" {
			rows[i].DocumentType = "-"
		}
		if rows[i].Department == messages.DefaultScope || rows[i].Department == "" {
			rows[i].Department = messages.DefaultDepartmentLabel
		}
		if rows[i].Doctor == messages.DefaultScope || rows[i].Doctor == "" {
			rows[i].Doctor = messages.DefaultDoctorLabel
		}
	}
	return rows, nil
}

// Records returns raw usage records, newest first.
func (s *Service) Records(ctx context.Context, f Filter, limit, offset int) ([]models.UsageRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Records(ctx, s.applyDefaultPeriod(f), limit, offset)
}
