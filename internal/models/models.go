package models

import (
	"time"

	"github.com/google/uuid"
)

// PromptTemplate is a generation prompt scoped to a (department,
// document_type, doctor) triple. The triple is the natural lookup key;
// uniqueness is maintained by upsert-on-write rather than a DB constraint.
type PromptTemplate struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Department    string    `json:"department" db:"department"`
	DocumentType  string    `json:"document_type" db:"document_type"`
	Doctor        string    `json:"doctor" db:"doctor"`
	Content       string    `json:"content" db:"content"`
	SelectedModel string    `json:"selected_model" db:"selected_model"`
	IsDefault     bool      `json:"is_default" db:"is_default"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// EvaluationPrompt is the judge instruction for one document type. At most
// one active prompt exists per document type.
type EvaluationPrompt struct {
	ID           uuid.UUID `json:"id" db:"id"`
	DocumentType string    `json:"document_type" db:"document_type"`
	Content      string    `json:"content" db:"content"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UsageRecord is one completed generation. Append-only; written after a
// successful provider call and never updated.
type UsageRecord struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Date           time.Time `json:"date" db:"date"`
	AppType        string    `json:"app_type" db:"app_type"`
	DocumentType   string    `json:"document_type" db:"document_type"`
	Model          string    `json:"model" db:"model"`
	Department     string    `json:"department" db:"department"`
	Doctor         string    `json:"doctor" db:"doctor"`
	InputTokens    int       `json:"input_tokens" db:"input_tokens"`
	OutputTokens   int       `json:"output_tokens" db:"output_tokens"`
	ProcessingTime float64   `json:"processing_time" db:"processing_time"`
}
