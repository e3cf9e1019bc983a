// Package rag composes the final answer: prompt assembly, the completion
// call and source attribution.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/anamitradey/OCP-RAG/internal/config"
	"github.com/anamitradey/OCP-RAG/internal/errs"
	"github.com/anamitradey/OCP-RAG/internal/models"
)

// Composer wraps the external completion service. The service itself is
// opaque; any OpenAI-compatible endpoint (OpenRouter included) works.
type Composer struct {
	llm         llms.Model
	model       string
	temperature float64
	timeout     time.Duration
}

// NewComposer builds the completion client from config. timeout bounds
// every completion call; zero means no bound.
func NewComposer(cfg *config.RAGConfig, timeout time.Duration) (*Composer, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init completion llm: %w", err)
	}
	return &Composer{llm: llm, model: cfg.Model, temperature: cfg.Temperature, timeout: timeout}, nil
}

// newWithModel wires an already-built llms.Model; tests use it.
func newWithModel(llm llms.Model, model string, temperature float64, timeout time.Duration) *Composer {
	return &Composer{llm: llm, model: model, temperature: temperature, timeout: timeout}
}

// DefaultModel reports the configured completion model.
func (c *Composer) DefaultModel() string {
	return c.model
}

// Compose answers the question from the supplied context. model and
// temperature override the configured defaults when set. Sources are
// echoed into the answer in the order the context was assembled. On any
// upstream failure no partial output is returned.
func (c *Composer) Compose(ctx context.Context, question, contextBlob string, sources []string, model string, temperature *float64) (*models.Answer, error) {
	if model == "" {
		model = c.model
	}
	temp := c.temperature
	if temperature != nil {
		temp = *temperature
	}
	if contextBlob == "" {
		contextBlob = models.EmptyContextMarker
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, models.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(models.UserPromptTemplate, contextBlob, question)),
	}

	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithModel(model),
		llms.WithTemperature(temp),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: completion: %v", errs.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: completion: %v", errs.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion returned no choices", errs.ErrUpstream)
	}

	answer := strings.TrimSpace(resp.Choices[0].Content)
	log.Debug().Str("model", model).Int("sources", len(sources)).Msg("Composed answer")

	if sources == nil {
		sources = []string{}
	}
	return &models.Answer{
		Question: question,
		Answer:   answer,
		Sources:  sources,
		Model:    model,
	}, nil
}
