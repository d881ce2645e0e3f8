package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/studydeck/exam-insights/internal/model"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	args := m.Called(ctx, prompt, maxTokens, temperature)
	return args.String(0), args.Error(1)
}

func TestRuleBased_Classify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		marks     int
		wantType  string
		wantDiff  string
		wantBloom string
	}{
		{
			name:      "definition",
			text:      "Define a binary tree",
			marks:     3,
			wantType:  TypeDefinition,
			wantDiff:  DifficultyEasy,
			wantBloom: "remember",
		},
		{
			name:      "derivation never easy at high marks",
			text:      "Derive the Carnot efficiency",
			marks:     14,
			wantType:  TypeDerivation,
			wantDiff:  DifficultyMedium,
			wantBloom: "understand",
		},
		{
			name:      "numerical",
			text:      "Calculate the time taken for the pump to fill the reservoir",
			marks:     14,
			wantType:  TypeNumerical,
			wantDiff:  DifficultyMedium,
			wantBloom: "apply",
		},
		{
			name:      "diagram",
			text:      "Draw the block schematic of a microprocessor based system",
			marks:     14,
			wantType:  TypeDiagram,
			wantDiff:  DifficultyMedium,
			wantBloom: "understand",
		},
		{
			name:      "comparison",
			text:      "Compare paging and segmentation schemes in memory management",
			marks:     14,
			wantType:  TypeComparison,
			wantDiff:  DifficultyMedium,
			wantBloom: "analyze",
		},
		{
			name:      "theory default",
			text:      "Discuss the role of the operating system kernel",
			marks:     14,
			wantType:  TypeTheory,
			wantDiff:  DifficultyMedium,
			wantBloom: "understand",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := model.Question{Text: tt.text, Marks: tt.marks}
			RuleBased{}.Classify(context.Background(), &q)
			assert.Equal(t, tt.wantType, q.QuestionType)
			assert.Equal(t, tt.wantDiff, q.Difficulty)
			assert.Equal(t, tt.wantBloom, q.BloomLevel)
		})
	}
}

func TestRuleBased_LabelClusterIsEmpty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, RuleBased{}.LabelCluster(context.Background(), []string{"sample"}))
}

func TestNew_SelectsVariant(t *testing.T) {
	t.Parallel()

	assert.IsType(t, RuleBased{}, New(nil, false))
	assert.IsType(t, RuleBased{}, New(nil, true))
	assert.IsType(t, &ModelAssisted{}, New(&mockGenerator{}, true))
	assert.IsType(t, RuleBased{}, New(&mockGenerator{}, false))
}

func TestModelAssisted_Classify(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return p == questionTypePrompt("Define a semaphore")
	}), 20, float32(0.1)).Return(" Definition \n", nil)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return p == difficultyPrompt("Define a semaphore")
	}), 10, float32(0.1)).Return("hard", nil)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return p == bloomPrompt("Define a semaphore")
	}), 15, float32(0.1)).Return("apply", nil)

	q := model.Question{Text: "Define a semaphore", Marks: 3}
	New(gen, true).Classify(context.Background(), &q)

	assert.Equal(t, TypeDefinition, q.QuestionType)
	assert.Equal(t, DifficultyHard, q.Difficulty)
	assert.Equal(t, "apply", q.BloomLevel)
	gen.AssertExpectations(t)
}

func TestModelAssisted_UnrecognizedLabelKeepsRules(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("something unexpected", nil)

	q := model.Question{Text: "Define a semaphore", Marks: 3}
	New(gen, true).Classify(context.Background(), &q)

	assert.Equal(t, TypeDefinition, q.QuestionType)
	assert.Equal(t, DifficultyEasy, q.Difficulty)
	assert.Equal(t, "remember", q.BloomLevel)
}

func TestModelAssisted_GenerateErrorKeepsRules(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", assert.AnError)

	q := model.Question{Text: "Define a semaphore", Marks: 3}
	New(gen, true).Classify(context.Background(), &q)

	assert.Equal(t, TypeDefinition, q.QuestionType)
	assert.Equal(t, DifficultyEasy, q.Difficulty)
	assert.Equal(t, "remember", q.BloomLevel)
}

func TestModelAssisted_LabelCluster(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, 50, float32(0.3)).
		Return("\"Process Scheduling\"\n", nil)

	label := New(gen, true).LabelCluster(context.Background(), []string{"explain round robin", "describe FCFS"})
	assert.Equal(t, "Process Scheduling", label)
}

func TestModelAssisted_LabelCluster_CapsSamples(t *testing.T) {
	t.Parallel()

	samples := []string{"a", "b", "c", "d", "e", "f", "g"}
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return p == topicLabelPrompt(samples[:maxLabelSamples])
	}), 50, float32(0.3)).Return("Topic", nil)

	label := New(gen, true).LabelCluster(context.Background(), samples)
	assert.Equal(t, "Topic", label)
	gen.AssertExpectations(t)
}

func TestModelAssisted_LabelCluster_EmptyAndError(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{}
	assert.Empty(t, New(gen, true).LabelCluster(context.Background(), nil))

	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", assert.AnError)
	assert.Empty(t, New(gen, true).LabelCluster(context.Background(), []string{"sample"}))
}
