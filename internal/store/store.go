// Package store persists papers, questions, topic clusters and analysis
// runs. Two implementations exist: SQLite for single-user local use and
// PostgreSQL for shared deployments.
package store

import (
	"context"

	"github.com/studydeck/exam-insights/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Subject string          `json:"subject,omitempty"`
	Status  model.RunStatus `json:"status,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the analysis pipeline.
type Store interface {
	// Papers
	SavePaper(ctx context.Context, paper *model.Paper) error
	GetPaper(ctx context.Context, id string) (*model.Paper, error)
	ListPapers(ctx context.Context, subject string) ([]model.Paper, error)

	// Questions. SaveQuestions upserts on question ID so re-analyzing a
	// paper replaces its rows instead of duplicating them. ListQuestions
	// returns a stable order (module, year, number, id) so clustering
	// input is deterministic across runs.
	SaveQuestions(ctx context.Context, subject string, questions []model.Question) error
	ListQuestions(ctx context.Context, subject string) ([]model.Question, error)

	// Clusters. ReplaceClusters atomically swaps the full cluster set for
	// a subject: delete and insert happen in one transaction, so a failed
	// rebuild leaves the previous clusters untouched.
	ReplaceClusters(ctx context.Context, subject string, clusters []model.TopicCluster) error
	ListClusters(ctx context.Context, subject string, tier model.PriorityTier) ([]model.TopicCluster, error)

	// Runs
	CreateRun(ctx context.Context, subject, paperID string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
