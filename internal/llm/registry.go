package llm

import "github.com/medidocs/backend/internal/config"

// Registry holds the configured providers keyed by provider id.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry instantiates every provider that has credentials configured.
func NewRegistry(cfg config.LLMConfig) *Registry {
	r := &Registry{providers: make(map[string]Provider)}

	if cfg.AnthropicKey != "" {
		r.providers[ProviderClaude] = NewClaudeProvider(cfg.AnthropicKey)
	}
	if cfg.GeminiAPIKey != "" {
		r.providers[ProviderGemini] = NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiBaseURL)
	}

	return r
}

// Register replaces the provider for an id. Used by tests to substitute
// fakes.
func (r *Registry) Register(id string, p Provider) {
	r.providers[id] = p
}

// Provider returns the provider for an id.
func (r *Registry) Provider(id string) (Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, &ConfigError{Message: "プロバイダーが設定されていません: " + id}
	}
	return p, nil
}
