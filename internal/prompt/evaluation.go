package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medidocs/backend/internal/models"
)

// EvaluationStore is the persistence interface for evaluation prompts. One
// prompt per document type.
type EvaluationStore interface {
	GetActive(ctx context.Context, documentType string) (*models.EvaluationPrompt, error)
	List(ctx context.Context) ([]models.EvaluationPrompt, error)
	Upsert(ctx context.Context, documentType, content string) (created bool, err error)
	Delete(ctx context.Context, documentType string) error
}

const evalColumns = `id, document_type, content, is_active, created_at, updated_at`

// PgEvaluationStore persists evaluation prompts in postgres.
type PgEvaluationStore struct {
	db *pgxpool.Pool
}

func NewPgEvaluationStore(db *pgxpool.Pool) *PgEvaluationStore {
	return &PgEvaluationStore{db: db}
}

func (s *PgEvaluationStore) GetActive(ctx context.Context, documentType string) (*models.EvaluationPrompt, error) {
	var p models.EvaluationPrompt
	err := s.db.QueryRow(ctx,
		`SELECT `+evalColumns+` FROM evaluation_prompts
		 WHERE document_type = $1 AND is_active`,
		documentType,
	).Scan(&p.ID, &p.DocumentType, &p.Content, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get evaluation prompt: %w", err)
	}
	return &p, nil
}

func (s *PgEvaluationStore) List(ctx context.Context) ([]models.EvaluationPrompt, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+evalColumns+` FROM evaluation_prompts ORDER BY document_type`)
	if err != nil {
		return nil, fmt.Errorf("list evaluation prompts: %w", err)
	}
	defer rows.Close()

	var prompts []models.EvaluationPrompt
	for rows.Next() {
		var p models.EvaluationPrompt
		if err := rows.Scan(&p.ID, &p.DocumentType, &p.Content, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

// Upsert leans on the document_type unique constraint. Reports whether a new
// row was created.
func (s *PgEvaluationStore) Upsert(ctx context.Context, documentType, content string) (bool, error) {
	var created bool
	err := s.db.QueryRow(ctx,
		`INSERT INTO evaluation_prompts (document_type, content, is_active)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT (document_type)
		 DO UPDATE SET content = EXCLUDED.content, is_active = TRUE, updated_at = now()
		 RETURNING (xmax = 0)`,
		documentType, content,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert evaluation prompt: %w", err)
	}
	return created, nil
}

func (s *PgEvaluationStore) Delete(ctx context.Context, documentType string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM evaluation_prompts WHERE document_type = $1`, documentType)
	if err != nil {
		return fmt.Errorf("delete evaluation prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
