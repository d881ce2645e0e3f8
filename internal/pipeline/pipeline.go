// Package pipeline orchestrates the two batch flows: analyzing a single
// paper (extract, classify, embed, persist) and rebuilding a subject's
// topic clusters.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/studydeck/exam-insights/internal/classify"
	"github.com/studydeck/exam-insights/internal/cluster"
	"github.com/studydeck/exam-insights/internal/config"
	"github.com/studydeck/exam-insights/internal/extract"
	"github.com/studydeck/exam-insights/internal/model"
	"github.com/studydeck/exam-insights/internal/normalize"
	"github.com/studydeck/exam-insights/internal/pattern"
	"github.com/studydeck/exam-insights/internal/store"
	"github.com/studydeck/exam-insights/pkg/embeddings"
)

// Pipeline wires the analysis stages to persistence. The embedder may be
// nil, in which case the embedding phase is skipped and clustering falls
// back to lexical similarity alone.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	extractor  *extract.Extractor
	classifier classify.Classifier
	embedder   embeddings.Client
	clusterer  *cluster.Clusterer
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	st store.Store,
	extractor *extract.Extractor,
	classifier classify.Classifier,
	embedder embeddings.Client,
	clusterer *cluster.Clusterer,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		extractor:  extractor,
		classifier: classifier,
		embedder:   embedder,
		clusterer:  clusterer,
	}
}

// AnalyzePaper runs extraction, classification and embedding for one
// paper and persists the questions. Extraction yielding zero questions
// completes the run with empty counts rather than failing it.
func (p *Pipeline) AnalyzePaper(ctx context.Context, paper *model.Paper) (*model.RunResult, error) {
	log := zap.L().With(zap.String("subject", paper.Subject), zap.String("year", paper.Year))
	log.Info("pipeline: starting paper analysis")

	if err := p.store.SavePaper(ctx, paper); err != nil {
		return nil, eris.Wrap(err, "pipeline: save paper")
	}

	run, err := p.store.CreateRun(ctx, paper.Subject, paper.ID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	result := &model.RunResult{}
	tracker := newPhaseTracker(ctx, p.store, run.ID, result, log)

	// ===== Phase 1: Extraction =====
	tracker.setStatus(model.RunStatusExtracting)

	pat, err := p.resolvePattern()
	if err != nil {
		_ = p.store.FailRun(ctx, run.ID, err)
		return nil, err
	}

	var questions []model.Question
	tracker.track("extract", func() (*model.PhaseResult, error) {
		questions = p.extractor.Extract(paper.RawText, pat)
		for i := range questions {
			// Identity is derived, not minted: re-analyzing the same paper
			// upserts these rows instead of duplicating them.
			questions[i].ID = model.QuestionID(paper.ID, questions[i].Number, questions[i].Text)
			questions[i].SourcePaperID = paper.ID
			questions[i].SourceYear = paper.Year
			questions[i].NormalizedText = normalize.Normalize(questions[i].Text)
		}
		result.QuestionsExtracted = len(questions)
		return &model.PhaseResult{Metadata: map[string]any{"questions": len(questions)}}, nil
	})

	// ===== Phase 2: Classification =====
	tracker.setStatus(model.RunStatusClassifying)

	tracker.track("classify", func() (*model.PhaseResult, error) {
		for i := range questions {
			p.classifier.Classify(ctx, &questions[i])
			if questions[i].QuestionType != "" {
				result.QuestionsClassified++
			}
		}
		return &model.PhaseResult{Metadata: map[string]any{"classified": result.QuestionsClassified}}, nil
	})

	// ===== Phase 3: Embedding =====
	tracker.setStatus(model.RunStatusEmbedding)

	tracker.track("embed", func() (*model.PhaseResult, error) {
		if p.embedder == nil || !p.cfg.Embed.Enabled || len(questions) == 0 {
			return &model.PhaseResult{Status: model.PhaseStatusSkipped}, nil
		}

		texts := make([]string, len(questions))
		for i, q := range questions {
			texts[i] = q.Text
		}
		vectors, embedErr := p.embedder.EmbedBatch(ctx, texts)
		if embedErr != nil {
			// Embeddings are an enhancement; lexical clustering still
			// works without them.
			log.Warn("pipeline: embedding failed, continuing without vectors", zap.Error(embedErr))
			return &model.PhaseResult{Status: model.PhaseStatusSkipped, Error: embedErr.Error()}, nil
		}
		for i := range questions {
			if i < len(vectors) && vectors[i] != nil {
				questions[i].Embedding = vectors[i]
				result.QuestionsEmbedded++
			}
		}
		return &model.PhaseResult{Metadata: map[string]any{"embedded": result.QuestionsEmbedded}}, nil
	})

	if err := p.store.SaveQuestions(ctx, paper.Subject, questions); err != nil {
		wrapped := eris.Wrap(err, "pipeline: save questions")
		_ = p.store.FailRun(ctx, run.ID, wrapped)
		return nil, wrapped
	}

	if err := p.store.CompleteRun(ctx, run.ID, result); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete run")
	}

	log.Info("pipeline: paper analysis complete",
		zap.Int("extracted", result.QuestionsExtracted),
		zap.Int("embedded", result.QuestionsEmbedded),
	)
	return result, nil
}

// ClusterSubject rebuilds the full topic cluster set for a subject.
// Modules cluster independently, so they run in parallel; the swap into
// the store is atomic and a failed rebuild leaves the previous clusters
// in place.
func (p *Pipeline) ClusterSubject(ctx context.Context, subject string) (*model.RunResult, error) {
	log := zap.L().With(zap.String("subject", subject))
	log.Info("pipeline: starting cluster rebuild")

	run, err := p.store.CreateRun(ctx, subject, "")
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	result := &model.RunResult{}
	tracker := newPhaseTracker(ctx, p.store, run.ID, result, log)
	tracker.setStatus(model.RunStatusClustering)

	questions, err := p.store.ListQuestions(ctx, subject)
	if err != nil {
		wrapped := eris.Wrap(err, "pipeline: list questions")
		_ = p.store.FailRun(ctx, run.ID, wrapped)
		return nil, wrapped
	}

	var clusters []model.TopicCluster
	tracker.track("cluster", func() (*model.PhaseResult, error) {
		clusters = p.clusterModules(ctx, subject, questions)
		result.ClustersCreated = len(clusters)
		return &model.PhaseResult{Metadata: map[string]any{"clusters": len(clusters)}}, nil
	})

	tracker.track("label", func() (*model.PhaseResult, error) {
		labeled := p.labelClusters(ctx, clusters, questions)
		if labeled == 0 {
			return &model.PhaseResult{Status: model.PhaseStatusSkipped}, nil
		}
		return &model.PhaseResult{Metadata: map[string]any{"labeled": labeled}}, nil
	})

	if err := p.store.ReplaceClusters(ctx, subject, clusters); err != nil {
		wrapped := eris.Wrap(err, "pipeline: replace clusters")
		_ = p.store.FailRun(ctx, run.ID, wrapped)
		return nil, wrapped
	}

	if err := p.store.CompleteRun(ctx, run.ID, result); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete run")
	}

	log.Info("pipeline: cluster rebuild complete", zap.Int("clusters", result.ClustersCreated))
	return result, nil
}

// clusterModules groups questions by module hint and clusters each group
// in parallel. Output order is module-ascending so repeated rebuilds of
// the same question set produce identical cluster lists.
func (p *Pipeline) clusterModules(ctx context.Context, subject string, questions []model.Question) []model.TopicCluster {
	byModule := map[int][]model.Question{}
	for _, q := range questions {
		byModule[q.ModuleHint] = append(byModule[q.ModuleHint], q)
	}

	modules := make([]int, 0, len(byModule))
	for m := range byModule {
		modules = append(modules, m)
	}
	sort.Ints(modules)

	results := make([][]model.TopicCluster, len(modules))
	g, _ := errgroup.WithContext(ctx)
	for i, m := range modules {
		g.Go(func() error {
			results[i] = p.clusterer.Cluster(subject, m, byModule[m])
			return nil
		})
	}
	// Module clustering is pure computation and never errors.
	_ = g.Wait()

	var clusters []model.TopicCluster
	for _, r := range results {
		clusters = append(clusters, r...)
	}
	return clusters
}

// labelClusters asks the classifier for a concise topic label per
// multi-member cluster, keeping the extracted name when no label comes
// back. Each prompt samples the member texts, not just the representative;
// the classifier caps how many it uses. Returns the number of clusters
// relabeled.
func (p *Pipeline) labelClusters(ctx context.Context, clusters []model.TopicCluster, questions []model.Question) int {
	textByID := make(map[string]string, len(questions))
	for _, q := range questions {
		textByID[q.ID] = q.Text
	}

	labeled := 0
	for i := range clusters {
		c := &clusters[i]
		if c.Size() < 2 {
			continue
		}

		samples := make([]string, 0, c.Size())
		for _, id := range c.MemberQuestionIDs {
			if text, ok := textByID[id]; ok {
				samples = append(samples, text)
			}
		}
		if len(samples) == 0 {
			samples = []string{c.RepresentativeText}
		}

		if label := p.classifier.LabelCluster(ctx, samples); label != "" {
			c.TopicName = label
			labeled++
		}
	}
	return labeled
}

func (p *Pipeline) resolvePattern() (*pattern.ExamPattern, error) {
	if p.cfg.Pattern.Dir != "" {
		patterns, err := pattern.LoadDir(p.cfg.Pattern.Dir)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: load patterns")
		}
		if pat, ok := patterns[p.cfg.Pattern.Name]; ok {
			return pat, nil
		}
	}
	return pattern.ByName(p.cfg.Pattern.Name), nil
}

// phaseTracker records per-phase timing and outcome onto a RunResult and
// mirrors run status transitions to the store.
type phaseTracker struct {
	ctx    context.Context
	store  store.Store
	runID  string
	result *model.RunResult
	log    *zap.Logger
	mu     sync.Mutex
}

func newPhaseTracker(ctx context.Context, st store.Store, runID string, result *model.RunResult, log *zap.Logger) *phaseTracker {
	return &phaseTracker{ctx: ctx, store: st, runID: runID, result: result, log: log}
}

func (t *phaseTracker) setStatus(status model.RunStatus) {
	if err := t.store.UpdateRunStatus(t.ctx, t.runID, status); err != nil {
		t.log.Warn("pipeline: failed to update status", zap.Error(err))
	}
}

func (t *phaseTracker) track(name string, fn func() (*model.PhaseResult, error)) *model.PhaseResult {
	start := time.Now()
	phaseResult, err := fn()
	duration := time.Since(start).Milliseconds()

	if phaseResult == nil {
		phaseResult = &model.PhaseResult{}
	}
	phaseResult.Name = name
	phaseResult.Duration = duration

	switch {
	case err != nil:
		phaseResult.Status = model.PhaseStatusFailed
		phaseResult.Error = err.Error()
		t.log.Error("pipeline: phase failed",
			zap.String("phase", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
	case phaseResult.Status == "":
		phaseResult.Status = model.PhaseStatusComplete
		fallthrough
	default:
		t.log.Info("pipeline: phase done",
			zap.String("phase", name),
			zap.String("status", string(phaseResult.Status)),
			zap.Int64("duration_ms", duration),
		)
	}

	t.mu.Lock()
	t.result.Phases = append(t.result.Phases, *phaseResult)
	t.mu.Unlock()
	return phaseResult
}
