package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medidocs/backend/internal/models"
)

// ErrNotFound is returned when no template exists for a lookup.
var ErrNotFound = errors.New("prompt not found")

// Store is the persistence interface for prompt templates.
type Store interface {
	Get(ctx context.Context, department, documentType, doctor string) (*models.PromptTemplate, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)
	List(ctx context.Context) ([]models.PromptTemplate, error)
	Upsert(ctx context.Context, t *models.PromptTemplate) (created bool, err error)
	Delete(ctx context.Context, department, documentType, doctor string) error
	DeleteByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)
}

const promptColumns = `id, department, document_type, doctor, content, selected_model, is_default, created_at, updated_at`

// PgStore persists prompt templates in postgres.
type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Get(ctx context.Context, department, documentType, doctor string) (*models.PromptTemplate, error) {
	var t models.PromptTemplate
	err := s.db.QueryRow(ctx,
		`SELECT `+promptColumns+` FROM prompts
		 WHERE department = $1 AND document_type = $2 AND doctor = $3`,
		department, documentType, doctor,
	).Scan(&t.ID, &t.Department, &t.DocumentType, &t.Doctor, &t.Content,
		&t.SelectedModel, &t.IsDefault, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt: %w", err)
	}
	return &t, nil
}

func (s *PgStore) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	var t models.PromptTemplate
	err := s.db.QueryRow(ctx,
		`SELECT `+promptColumns+` FROM prompts WHERE id = $1`, id,
	).Scan(&t.ID, &t.Department, &t.DocumentType, &t.Doctor, &t.Content,
		&t.SelectedModel, &t.IsDefault, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt by id: %w", err)
	}
	return &t, nil
}

func (s *PgStore) List(ctx context.Context) ([]models.PromptTemplate, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+promptColumns+` FROM prompts
		 ORDER BY department, document_type, doctor`)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []models.PromptTemplate
	for rows.Next() {
		var t models.PromptTemplate
		if err := rows.Scan(&t.ID, &t.Department, &t.DocumentType, &t.Doctor, &t.Content,
			&t.SelectedModel, &t.IsDefault, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, t)
	}
	return prompts, rows.Err()
}

// Upsert updates the template for its (department, document_type, doctor)
// triple or inserts a new one. Reports whether a new row was created.
func (s *PgStore) Upsert(ctx context.Context, t *models.PromptTemplate) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE prompts
		 SET content = $4, selected_model = $5, updated_at = now()
		 WHERE department = $1 AND document_type = $2 AND doctor = $3`,
		t.Department, t.DocumentType, t.Doctor, t.Content, t.SelectedModel)
	if err != nil {
		return false, fmt.Errorf("update prompt: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	err = s.db.QueryRow(ctx,
		`INSERT INTO prompts (department, document_type, doctor, content, selected_model, is_default)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		t.Department, t.DocumentType, t.Doctor, t.Content, t.SelectedModel, t.IsDefault,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("insert prompt: %w", err)
	}
	return true, nil
}

func (s *PgStore) Delete(ctx context.Context, department, documentType, doctor string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM prompts
		 WHERE department = $1 AND document_type = $2 AND doctor = $3`,
		department, documentType, doctor)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByID removes a template and returns the deleted row so callers can
// invalidate its cache entry.
func (s *PgStore) DeleteByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	var t models.PromptTemplate
	err := s.db.QueryRow(ctx,
		`DELETE FROM prompts WHERE id = $1 RETURNING `+promptColumns, id,
	).Scan(&t.ID, &t.Department, &t.DocumentType, &t.Doctor, &t.Content,
		&t.SelectedModel, &t.IsDefault, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete prompt by id: %w", err)
	}
	return &t, nil
}
