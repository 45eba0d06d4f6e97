package usage

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medidocs/backend/internal/messages"
	"github.com/medidocs/backend/internal/models"
)

type fakeUsageStore struct {
	inserted   []models.UsageRecord
	insertErr  error
	summary    SummaryStats
	aggregated []AggregatedRow
	lastFilter Filter
	lastLimit  int
	lastOffset int
}

func (f *fakeUsageStore) Insert(_ context.Context, rec *models.UsageRecord) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, *rec)
	return nil
}

func (f *fakeUsageStore) Summary(_ context.Context, filter Filter) (*SummaryStats, error) {
	f.lastFilter = filter
	s := f.summary
	return &s, nil
}

func (f *fakeUsageStore) Aggregated(_ context.Context, filter Filter) ([]AggregatedRow, error) {
	f.lastFilter = filter
	return f.aggregated, nil
}

func (f *fakeUsageStore) Records(_ context.Context, filter Filter, limit, offset int) ([]models.UsageRecord, error) {
	f.lastFilter = filter
	f.lastLimit = limit
	f.lastOffset = offset
	return nil, nil
}

type fakeEnqueuer struct {
	enqueued []models.UsageRecord
	err      error
}

func (f *fakeEnqueuer) EnqueueUsageSave(_ context.Context, rec *models.UsageRecord) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, *rec)
	return nil
}

func newTestService(store Store, queue Enqueuer) *Service {
	return NewService(store, queue, 7, slog.New(slog.DiscardHandler))
}

func TestRecordDirectWrite(t *testing.T) {
	store := &fakeUsageStore{}
	svc := newTestService(store, nil)

	svc.Record(context.Background(), models.UsageRecord{
		Department:   "眼科",
		Doctor:       "default",
		DocumentType: "返書",
		Model:        "Claude",
		InputTokens:  1200,
		OutputTokens: 400,
	})

	require.Len(t, store.inserted, 1)
	rec := store.inserted[0]
	assert.Equal(t, messages.AppType, rec.AppType)
	assert.False(t, rec.Date.IsZero())

	_, offset := rec.Date.Zone()
	assert.Equal(t, 9*60*60, offset)
}

func TestRecordPrefersQueue(t *testing.T) {
	store := &fakeUsageStore{}
	queue := &fakeEnqueuer{}
	svc := newTestService(store, queue)

	svc.Record(context.Background(), models.UsageRecord{Model: "Claude"})

	assert.Len(t, queue.enqueued, 1)
	assert.Empty(t, store.inserted)
}

func TestRecordFallsBackWhenQueueFails(t *testing.T) {
	store := &fakeUsageStore{}
	queue := &fakeEnqueuer{err: errors.New("redis down")}
	svc := newTestService(store, queue)

	svc.Record(context.Background(), models.UsageRecord{Model: "Claude"})

	assert.Len(t, store.inserted, 1)
}

func TestRecordSwallowsStoreErrors(t *testing.T) {
	store := &fakeUsageStore{insertErr: errors.New("connection refused")}
	svc := newTestService(store, nil)

	// Must not panic or propagate.
	svc.Record(context.Background(), models.UsageRecord{Model: "Claude"})
	assert.Empty(t, store.inserted)
}

func TestSummaryAppliesDefaultPeriodAndRounds(t *testing.T) {
	store := &fakeUsageStore{summary: SummaryStats{
		TotalCount:            3,
		TotalInputTokens:      300,
		TotalOutputTokens:     90,
		AverageProcessingTime: 12.3456,
	}}
	svc := newTestService(store, nil)

	stats, err := svc.Summary(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 12.35, stats.AverageProcessingTime)

	span := store.lastFilter.End.Sub(store.lastFilter.Start)
	assert.InDelta(t, 7*24*time.Hour, span, float64(time.Minute))
}

func TestSummaryKeepsExplicitPeriod(t *testing.T) {
	store := &fakeUsageStore{}
	svc := newTestService(store, nil)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	_, err := svc.Summary(context.Background(), Filter{Start: start, End: end})
	require.NoError(t, err)
	assert.Equal(t, start, store.lastFilter.Start)
	assert.Equal(t, end, store.lastFilter.End)
}

func TestAggregatedSubstitutesLabels(t *testing.T) {
	store := &fakeUsageStore{aggregated: []AggregatedRow{
		{DocumentType: "返書", Department: "default", Doctor: "default", Count: 5},
		{DocumentType: "", Department: "眼科", Doctor: "橋本義弘", Count: 2},
		{DocumentType: "他院への紹介", Department: "", Doctor: "", Count: 1},
	}}
	svc := newTestService(store, nil)

	rows, err := svc.Aggregated(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, messages.DefaultDepartmentLabel, rows[0].Department)
	assert.Equal(t, messages.DefaultDoctorLabel, rows[0].Doctor)
	assert.Equal(t, "-", rows[1].DocumentType)
	assert.Equal(t, "眼科", rows[1].Department)
	assert.Equal(t, "橋本義弘", rows[1].Doctor)
	assert.Equal(t, messages.DefaultDepartmentLabel, rows[2].Department)
	assert.Equal(t, messages.DefaultDoctorLabel, rows[2].Doctor)
}

func TestRecordsDefaultsPagination(t *testing.T) {
	store := &fakeUsageStore{}
	svc := newTestService(store, nil)

	_, err := svc.Records(context.Background(), Filter{}, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 100, store.lastLimit)
	assert.Equal(t, 0, store.lastOffset)
}
