// Package llm provides a thin client for an OpenAI-compatible chat
// completion API, used for topic labeling and question classification.
// The system functions without it; absence selects the rule-based path.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
)

// Generator defines the text generation operation used by classifiers and
// topic labeling.
type Generator interface {
	// Generate returns the completion for a prompt. Callers bound the
	// response with maxTokens and steer determinism with temperature.
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}

type openAIGenerator struct {
	api   *openai.Client
	model string
}

// Option configures the generator.
type Option func(*openAIGenerator)

// WithAPIClient sets a custom underlying API client (for testing).
func WithAPIClient(api *openai.Client) Option {
	return func(g *openAIGenerator) {
		g.api = api
	}
}

// NewClient creates a Generator against an OpenAI-compatible endpoint.
// baseURL may point at a local inference server; empty keeps the default.
func NewClient(apiKey, baseURL, model string, opts ...Option) Generator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	g := &openAIGenerator{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *openAIGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("llm: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
