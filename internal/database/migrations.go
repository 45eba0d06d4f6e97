package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS prompts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		department VARCHAR(100) NOT NULL,
		document_type VARCHAR(100) NOT NULL,
		doctor VARCHAR(100) NOT NULL,
		content TEXT,
		selected_model VARCHAR(50),
		is_default BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_prompts_lookup
		ON prompts (department, document_type, doctor)`,

	`CREATE TABLE IF NOT EXISTS evaluation_prompts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		document_type VARCHAR(100) NOT NULL UNIQUE,
		content TEXT NOT NULL,
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS summary_usage (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		date TIMESTAMPTZ NOT NULL DEFAULT now(),
		app_type VARCHAR(100),
		document_type VARCHAR(100),
		model VARCHAR(100),
		department VARCHAR(100),
		doctor VARCHAR(100),
		input_tokens INTEGER,
		output_tokens INTEGER,
		processing_time DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS ix_summary_usage_date ON summary_usage (date)`,
	`CREATE INDEX IF NOT EXISTS ix_summary_usage_aggregation
		ON summary_usage (document_type, department, doctor)`,
}

// Bootstrap creates the tables this service owns. Statements are idempotent
// so repeated startups are safe.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
