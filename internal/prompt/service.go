// Package prompt manages the generation prompt templates and their
// three-level scope hierarchy.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medidocs/backend/internal/cache"
	"github.com/medidocs/backend/internal/messages"
	"github.com/medidocs/backend/internal/models"
)

const cacheTTL = 5 * time.Minute

// Service resolves prompt templates through the scope hierarchy, with an
// optional redis read-through cache in front of the store.
type Service struct {
	store  Store
	cache  *cache.Cache
	logger *slog.Logger
}

func NewService(store Store, c *cache.Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: c, logger: logger}
}

// Resolve walks the scope hierarchy for a template: the exact triple first,
// then the department default, then the global default. ErrNotFound when no
// level matches.
func (s *Service) Resolve(ctx context.Context, department, documentType, doctor string) (*models.PromptTemplate, error) {
	scopes := [][2]string{
		{department, doctor},
		{department, messages.DefaultScope},
		{messages.DefaultScope, messages.DefaultScope},
	}

	for _, scope := range scopes {
		t, err := s.get(ctx, scope[0], documentType, scope[1])
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// ResolveContent returns the template content for the scope, falling back to
// the built-in default prompt when no template exists or the lookup fails.
// Generation must not stop because the template store is unavailable.
func (s *Service) ResolveContent(ctx context.Context, department, documentType, doctor string) string {
	t, err := s.Resolve(ctx, department, documentType, doctor)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("prompt resolve failed, using default",
				"department", department, "document_type", documentType, "error", err)
		}
		return messages.DefaultSummaryPrompt
	}
	return t.Content
}

// ResolveSelectedModel returns the model pinned by the resolved template.
// Empty when no template matches or none pins a model.
func (s *Service) ResolveSelectedModel(ctx context.Context, department, documentType, doctor string) (string, error) {
	t, err := s.Resolve(ctx, department, documentType, doctor)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return t.SelectedModel, nil
}

// Get returns the template registered for the exact triple, without
// hierarchy fallback.
func (s *Service) Get(ctx context.Context, department, documentType, doctor string) (*models.PromptTemplate, error) {
	return s.get(ctx, department, documentType, doctor)
}

func (s *Service) List(ctx context.Context) ([]models.PromptTemplate, error) {
	return s.store.List(ctx)
}

// Save creates or updates the template for its triple and reports which
// happened. The cached entry for the triple is invalidated; other scopes
// age out on their own TTL.
func (s *Service) Save(ctx context.Context, t *models.PromptTemplate) (created bool, err error) {
	created, err = s.store.Upsert(ctx, t)
	if err != nil {
		return false, err
	}
	s.invalidate(ctx, t.Department, t.DocumentType, t.Doctor)
	return created, nil
}

// GetByID looks a template up by its id, bypassing the cache.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	return s.store.GetByID(ctx, id)
}

// DeleteByID removes a template by id and invalidates its cache entry.
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	t, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, t.Department, t.DocumentType, t.Doctor)
	return t, nil
}

func (s *Service) Delete(ctx context.Context, department, documentType, doctor string) error {
	if err := s.store.Delete(ctx, department, documentType, doctor); err != nil {
		return err
	}
	s.invalidate(ctx, department, documentType, doctor)
	return nil
}

func (s *Service) get(ctx context.Context, department, documentType, doctor string) (*models.PromptTemplate, error) {
	key := cacheKey(department, documentType, doctor)

	if s.cache != nil {
		var cached models.PromptTemplate
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	t, err := s.store.Get(ctx, department, documentType, doctor)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, t, cacheTTL); err != nil {
			s.logger.Warn("prompt cache set failed", "key", key, "error", err)
		}
	}
	return t, nil
}

func (s *Service) invalidate(ctx context.Context, department, documentType, doctor string) {
	if s.cache == nil {
		return
	}
	key := cacheKey(department, documentType, doctor)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("prompt cache invalidate failed", "key", key, "error", err)
	}
}

func cacheKey(department, documentType, doctor string) string {
	return fmt.Sprintf("prompt:%s:%s:%s", department, documentType, doctor)
}
