package llm

import (
	"context"

	"github.com/medidocs/backend/internal/config"
	"github.com/medidocs/backend/internal/messages"
)

// SelectedModelResolver looks up the model a prompt template pins for a
// department/document-type/doctor combination.
type SelectedModelResolver interface {
	ResolveSelectedModel(ctx context.Context, department, documentType, doctor string) (string, error)
}

// UnsupportedModelError reports a model name outside the supported set.
type UnsupportedModelError struct {
	Model string
}

func (e *UnsupportedModelError) Error() string { return messages.UnsupportedModel(e.Model) }

// Selection is the outcome of model determination.
type Selection struct {
	Model    string
	Switched bool
}

// Selector decides which public model serves a request and maps it onto a
// provider plus a concrete model name.
type Selector struct {
	cfg       config.LLMConfig
	threshold int
	resolver  SelectedModelResolver
}

func NewSelector(cfg config.LLMConfig, threshold int, resolver SelectedModelResolver) *Selector {
	return &Selector{cfg: cfg, threshold: threshold, resolver: resolver}
}

// DetermineModel picks the model for a request. Unless the caller selected a
// model explicitly, the template's pinned model wins over the requested one;
// resolver failures fall back to the requested model. Inputs longer than the
// threshold switch Claude to Gemini when a Gemini model is configured, and
// fail otherwise.
func (s *Selector) DetermineModel(ctx context.Context, requested string, explicit bool, inputLength int, department, documentType, doctor string) (Selection, error) {
	model := requested
	if model == "" {
		model = s.cfg.DefaultModel
	}

	if !explicit && s.resolver != nil {
		if pinned, err := s.resolver.ResolveSelectedModel(ctx, department, documentType, doctor); err == nil && pinned != "" {
			model = pinned
		}
	}

	switched := false
	if inputLength > s.threshold && model == ModelClaude {
		if s.cfg.GeminiModel == "" {
			return Selection{}, &ConfigError{Message: messages.ConfigThresholdExceededNoGemini}
		}
		model = ModelGeminiPro
		switched = true
	}

	return Selection{Model: model, Switched: switched}, nil
}

// ProviderAndModel maps a public model name onto the provider id and the
// concrete model identifier the provider expects.
func (s *Selector) ProviderAndModel(model string) (string, string, error) {
	switch model {
	case ModelClaude:
		if s.cfg.ClaudeModel == "" {
			return "", "", &ConfigError{Message: messages.ConfigClaudeModelNotSet}
		}
		return ProviderClaude, s.cfg.ClaudeModel, nil
	case ModelGeminiPro:
		if s.cfg.GeminiModel == "" {
			return "", "", &ConfigError{Message: messages.ConfigGeminiModelNotSet}
		}
		return ProviderGemini, s.cfg.GeminiModel, nil
	default:
		return "", "", &UnsupportedModelError{Model: model}
	}
}
