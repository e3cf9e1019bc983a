package embedding

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/anamitradey/OCP-RAG/internal/config"
)

// Embedder is the batch text-to-vector contract: input and output are
// aligned by position and the output length equals the input length.
// langchaingo embedders materialize results into indexable slices.
type Embedder = embeddings.Embedder

// NewOpenAIEmbedder wraps an OpenAI-compatible embedding endpoint
// (OpenAI, OpenRouter, or any server speaking the same API).
func NewOpenAIEmbedder(cfg *config.EmbeddingConfig) (Embedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init embedding llm: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

// NewOllamaEmbedder wraps a local ollama server.
func NewOllamaEmbedder(cfg *config.EmbeddingConfig) (Embedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init embedding llm: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

// FromConfig builds the configured backend. The returned instance is
// process-wide state, constructed once at startup and injected into the
// store gateway; it is stateless per call.
func FromConfig(cfg *config.EmbeddingConfig) (Embedder, error) {
	log.Debug().
		Str("provider", cfg.Provider).
		Str("base_url", cfg.BaseURL).
		Str("embedding_model", cfg.Model).
		Msg("Initializing embedder")

	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(cfg)
	case "ollama":
		return NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
