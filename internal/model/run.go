package model

import "time"

// RunStatus tracks where an analysis run is in its lifecycle.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusExtracting  RunStatus = "extracting"
	RunStatusClassifying RunStatus = "classifying"
	RunStatusEmbedding   RunStatus = "embedding"
	RunStatusClustering  RunStatus = "clustering"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// Run is one end-to-end analysis of a paper or a subject-level clustering
// rebuild. A failed run keeps its error message; partially created questions
// are left in place for inspection.
type Run struct {
	ID        string     `json:"id"`
	Subject   string     `json:"subject"`
	PaperID   string     `json:"paper_id,omitempty"`
	Status    RunStatus  `json:"status"`
	Error     string     `json:"error,omitempty"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult summarizes a completed analysis run.
type RunResult struct {
	QuestionsExtracted  int           `json:"questions_extracted"`
	QuestionsClassified int           `json:"questions_classified"`
	QuestionsEmbedded   int           `json:"questions_embedded"`
	ClustersCreated     int           `json:"clusters_created"`
	Phases              []PhaseResult `json:"phases,omitempty"`
}

// PhaseStatus is the outcome of a single pipeline phase.
type PhaseStatus string

const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult records one phase of an analysis run.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Error    string         `json:"error,omitempty"`
	Duration int64          `json:"duration_ms"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
