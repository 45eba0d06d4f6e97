// Package llm wraps the model providers behind a single interface and owns
// the logic that picks which model serves a given request.
package llm

import "context"

// Public model names as the frontend selects them.
const (
	ModelClaude    = "Claude"
	ModelGeminiPro = "Gemini_Pro"
)

// Provider identifiers.
const (
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// SupportedModels in presentation order.
var SupportedModels = []string{ModelClaude, ModelGeminiPro}

// Provider abstracts a text-generation backend.
type Provider interface {
	// Generate runs a single non-streaming completion and returns the
	// generated text plus input/output token counts.
	Generate(ctx context.Context, prompt, model string) (string, int, int, error)

	// GenerateStream starts a streaming completion. The channel is closed
	// after a chunk with Done set (or Err on failure).
	GenerateStream(ctx context.Context, prompt, model string) (<-chan StreamChunk, error)

	Name() string
}

// StreamChunk is one increment of a streaming completion. Token counts are
// only populated on the final chunk.
type StreamChunk struct {
	Content      string
	Done         bool
	InputTokens  int
	OutputTokens int
	Err          error
}

// ConfigError marks failures caused by missing or inconsistent model
// configuration rather than by the request itself.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }
