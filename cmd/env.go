package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/studydeck/exam-insights/internal/classify"
	"github.com/studydeck/exam-insights/internal/cluster"
	"github.com/studydeck/exam-insights/internal/extract"
	"github.com/studydeck/exam-insights/internal/pipeline"
	"github.com/studydeck/exam-insights/internal/similarity"
	"github.com/studydeck/exam-insights/internal/store"
	"github.com/studydeck/exam-insights/pkg/embeddings"
	"github.com/studydeck/exam-insights/pkg/llm"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "exam-insights.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// analysisEnv holds the store and pipeline needed by the analyze and
// cluster commands.
type analysisEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (ae *analysisEnv) Close() {
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

// initAnalysis sets up the store, optional OpenAI clients and the
// pipeline. Callers should defer env.Close().
func initAnalysis(ctx context.Context) (*analysisEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	// Embeddings and LLM labeling are optional: without an API key the
	// pipeline runs on lexical similarity and rule-based classification.
	var embedder embeddings.Client
	if cfg.Embed.Enabled && cfg.OpenAI.Key != "" {
		embedder = embeddings.NewClient(cfg.OpenAI.Key, cfg.OpenAI.BaseURL, cfg.OpenAI.EmbeddingModel,
			embeddings.WithChunkSize(cfg.Embed.ChunkSize),
			embeddings.WithRateLimit(cfg.Embed.RequestsPerSec),
			embeddings.WithMaxAttempts(cfg.Embed.RetryMaxAttempt),
			embeddings.WithTimeout(time.Duration(cfg.Embed.TimeoutSecs)*time.Second),
		)
		zap.L().Info("embeddings enabled", zap.String("model", cfg.OpenAI.EmbeddingModel))
	} else if cfg.Embed.Enabled {
		zap.L().Warn("EXAM_OPENAI_KEY not set, embeddings disabled")
	}

	var generator llm.Generator
	if cfg.OpenAI.Key != "" {
		generator = llm.NewClient(cfg.OpenAI.Key, cfg.OpenAI.BaseURL, cfg.OpenAI.ChatModel)
	}
	classifier := classify.New(generator, generator != nil)

	clusterer := cluster.New(
		similarity.NewEngine(cfg.Cluster.SimilarityThreshold),
		cluster.Thresholds{
			Tier1: cfg.Cluster.Tier1Threshold,
			Tier2: cfg.Cluster.Tier2Threshold,
			Tier3: cfg.Cluster.Tier3Threshold,
		},
	)

	p := pipeline.New(cfg, st, extract.New(cfg.Extract.MinViableCount), classifier, embedder, clusterer)
	return &analysisEnv{Store: st, Pipeline: p}, nil
}
