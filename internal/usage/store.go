package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medidocs/backend/internal/models"
)

// Filter narrows statistics queries. Start and End are inclusive.
type Filter struct {
	Start        time.Time
	End          time.Time
	Model        string
	DocumentType string
}

// SummaryStats are the period totals.
type SummaryStats struct {
	TotalCount            int     `json:"total_count"`
	TotalInputTokens      int64   `json:"total_input_tokens"`
	TotalOutputTokens     int64   `json:"total_output_tokens"`
	AverageProcessingTime float64 `json:"average_processing_time"`
}

// AggregatedRow is one (document_type, department, doctor) aggregation bucket.
type AggregatedRow struct {
	DocumentType string `json:"document_type"`
	Department   string `json:"department"`
	Doctor       string `json:"doctor"`
	Count        int    `json:"count"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// Store is the persistence interface for usage records.
type Store interface {
	Insert(ctx context.Context, rec *models.UsageRecord) error
	Summary(ctx context.Context, f Filter) (*SummaryStats, error)
	Aggregated(ctx context.Context, f Filter) ([]AggregatedRow, error)
	Records(ctx context.Context, f Filter, limit, offset int) ([]models.UsageRecord, error)
}

// PgStore persists usage records in postgres.
type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Insert(ctx context.Context, rec *models.UsageRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO summary_usage
		 (date, app_type, document_type, model, department, doctor,
		  input_tokens, output_tokens, processing_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.Date, rec.AppType, rec.DocumentType, rec.Model, rec.Department, rec.Doctor,
		rec.InputTokens, rec.OutputTokens, rec.ProcessingTime)
	if err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}

func (s *PgStore) Summary(ctx context.Context, f Filter) (*SummaryStats, error) {
	query := `SELECT COUNT(id),
	                 COALESCE(SUM(input_tokens), 0),
	                 COALESCE(SUM(output_tokens), 0),
	                 COALESCE(AVG(processing_time), 0)
	          FROM summary_usage
	          WHERE date >= $1 AND date <= $2`
	args := []any{f.Start, f.End}
	query, args = appendFilters(query, args, f, false)

	var stats SummaryStats
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&stats.TotalCount, &stats.TotalInputTokens, &stats.TotalOutputTokens,
		&stats.AverageProcessingTime)
	if err != nil {
		return nil, fmt.Errorf("usage summary: %w", err)
	}
	return &stats, nil
}

func (s *PgStore) Aggregated(ctx context.Context, f Filter) ([]AggregatedRow, error) {
	query := `SELECT COALESCE(document_type, ''),
	                 COALESCE(department, ''),
	                 COALESCE(doctor, ''),
	                 COUNT(id),
	                 COALESCE(SUM(input_tokens), 0),
	                 COALESCE(SUM(output_tokens), 0)
	          FROM summary_usage
	          WHERE date >= $1 AND date <= $2`
	args := []any{f.Start, f.End}
	query, args = appendFilters(query, args, f, true)
	query += ` GROUP BY document_type, department, doctor ORDER BY COUNT(id) DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregated usage: %w", err)
	}
	defer rows.Close()

	var out []AggregatedRow
	for rows.Next() {
		var r AggregatedRow
		if err := rows.Scan(&r.DocumentType, &r.Department, &r.Doctor,
			&r.Count, &r.InputTokens, &r.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan aggregated usage: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PgStore) Records(ctx context.Context, f Filter, limit, offset int) ([]models.UsageRecord, error) {
	query := `SELECT id, date, COALESCE(app_type, ''), COALESCE(document_type, ''),
	                 COALESCE(model, ''), COALESCE(department, ''), COALESCE(doctor, ''),
	                 COALESCE(input_tokens, 0), COALESCE(output_tokens, 0),
	                 COALESCE(processing_time, 0)
	          FROM summary_usage
	          WHERE date >= $1 AND date <= $2`
	args := []any{f.Start, f.End}
	query, args = appendFilters(query, args, f, true)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY date DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("usage records: %w", err)
	}
	defer rows.Close()

	var out []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		if err := rows.Scan(&r.ID, &r.Date, &r.AppType, &r.DocumentType,
			&r.Model, &r.Department, &r.Doctor,
			&r.InputTokens, &r.OutputTokens, &r.ProcessingTime); err != nil {
			return nil, fmt.Errorf("scan usage record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func appendFilters(query string, args []any, f Filter, withDocumentType bool) (string, []any) {
	if f.Model != "" {
		args = append(args, f.Model)
		query += fmt.Sprintf(" AND model = $%d", len(args))
	}
	if withDocumentType && f.DocumentType != "" {
		args = append(args, f.DocumentType)
		query += fmt.Sprintf(" AND document_type = $%d", len(args))
	}
	return query, args
}
