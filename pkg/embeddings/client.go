// Package embeddings provides a batch embedding client for an
// OpenAI-compatible API. The pipeline consumes the vectors; their
// generation is an external concern.
package embeddings

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultChunkSize bounds peak memory per request and isolates a single
// failing chunk from the rest of the batch.
const DefaultChunkSize = 32

// Client defines the embedding operations used by the analysis pipeline.
type Client interface {
	// EmbedBatch embeds texts and returns a slice of the same length.
	// A nil entry signals a per-item failure (its chunk errored), not a
	// batch failure: already-computed chunks are always kept.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

type openAIEmbedder struct {
	api         *openai.Client
	model       string
	chunkSize   int
	maxAttempts int
	timeout     time.Duration
	limiter     *rate.Limiter
}

// Option configures the embedding client.
type Option func(*openAIEmbedder)

// WithChunkSize overrides the request chunk size.
func WithChunkSize(n int) Option {
	return func(c *openAIEmbedder) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithRateLimit caps embedding requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *openAIEmbedder) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithTimeout bounds each embedding request. Zero leaves requests on the
// caller's context alone.
func WithTimeout(d time.Duration) Option {
	return func(c *openAIEmbedder) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxAttempts sets per-chunk retry attempts (including the first try).
func WithMaxAttempts(n int) Option {
	return func(c *openAIEmbedder) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithAPIClient sets a custom underlying API client (for testing).
func WithAPIClient(api *openai.Client) Option {
	return func(c *openAIEmbedder) {
		c.api = api
	}
}

// NewClient creates an embedding Client against an OpenAI-compatible
// endpoint.
func NewClient(apiKey, baseURL, model string, opts ...Option) Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	c := &openAIEmbedder{
		api:         openai.NewClientWithConfig(cfg),
		model:       model,
		chunkSize:   DefaultChunkSize,
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *openAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	log := zap.L()
	results := make([][]float64, len(texts))

	for start := 0; start < len(texts); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedChunk(ctx, texts[start:end])
		if err != nil {
			// A failed chunk leaves nil entries for its items; completed
			// chunks stay. Similarity falls back to non-vector signals.
			log.Warn("embeddings: chunk failed",
				zap.Int("offset", start),
				zap.Int("size", end-start),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			continue
		}
		copy(results[start:end], vectors)
	}

	return results, nil
}

// embedChunk embeds one chunk with backoff retries on transient failures.
func (c *openAIEmbedder) embedChunk(ctx context.Context, texts []string) ([][]float64, error) {
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.createEmbeddings(ctx, texts)
		if err == nil {
			if len(resp.Data) != len(texts) {
				return nil, eris.Errorf("embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
			}
			vectors := make([][]float64, len(texts))
			for _, d := range resp.Data {
				if d.Index < 0 || d.Index >= len(vectors) {
					return nil, eris.Errorf("embeddings: vector index %d out of range", d.Index)
				}
				vectors[d.Index] = toFloat64(d.Embedding)
			}
			return vectors, nil
		}

		lastErr = err
		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return nil, eris.Wrap(lastErr, "embeddings: request failed")
}

// createEmbeddings issues one API request, bounded by the configured
// per-request timeout. A slow chunk times out on its own without the parent
// context being canceled.
func (c *openAIEmbedder) createEmbeddings(ctx context.Context, texts []string) (openai.EmbeddingResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
