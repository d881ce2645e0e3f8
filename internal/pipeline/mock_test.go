package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/studydeck/exam-insights/internal/model"
	"github.com/studydeck/exam-insights/internal/store"
)

// --- Embedder Mock ---

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float64), args.Error(1)
}

// --- Classifier Mock ---

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, q *model.Question) {
	m.Called(ctx, q)
}

func (m *mockClassifier) LabelCluster(ctx context.Context, samples []string) string {
	return m.Called(ctx, samples).String(0)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

var _ store.Store = (*mockStore)(nil)

func (m *mockStore) SavePaper(ctx context.Context, paper *model.Paper) error {
	return m.Called(ctx, paper).Error(0)
}

func (m *mockStore) GetPaper(ctx context.Context, id string) (*model.Paper, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Paper), args.Error(1)
}

func (m *mockStore) ListPapers(ctx context.Context, subject string) ([]model.Paper, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Paper), args.Error(1)
}

func (m *mockStore) SaveQuestions(ctx context.Context, subject string, questions []model.Question) error {
	return m.Called(ctx, subject, questions).Error(0)
}

func (m *mockStore) ListQuestions(ctx context.Context, subject string) ([]model.Question, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Question), args.Error(1)
}

func (m *mockStore) ReplaceClusters(ctx context.Context, subject string, clusters []model.TopicCluster) error {
	return m.Called(ctx, subject, clusters).Error(0)
}

func (m *mockStore) ListClusters(ctx context.Context, subject string, tier model.PriorityTier) ([]model.TopicCluster, error) {
	args := m.Called(ctx, subject, tier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TopicCluster), args.Error(1)
}

func (m *mockStore) CreateRun(ctx context.Context, subject, paperID string) (*model.Run, error) {
	args := m.Called(ctx, subject, paperID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	return m.Called(ctx, runID, status).Error(0)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	return m.Called(ctx, runID, result).Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID string, cause error) error {
	return m.Called(ctx, runID, cause).Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
