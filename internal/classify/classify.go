// Package classify annotates questions with type, difficulty and Bloom's
// taxonomy level, and labels topic clusters. Two variants exist: RuleBased
// (keyword heuristics, always available) and ModelAssisted (LLM-backed with
// keyword fallback). The variant is selected at construction by an explicit
// capability flag, never by probing for the collaborator.
package classify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/studydeck/exam-insights/internal/model"
	"github.com/studydeck/exam-insights/pkg/llm"
)

// Question type labels.
const (
	TypeDefinition = "definition"
	TypeDerivation = "derivation"
	TypeNumerical  = "numerical"
	TypeDiagram    = "diagram"
	TypeComparison = "comparison"
	TypeTheory     = "theory"
)

// Difficulty labels.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Classifier annotates a question in place and labels clusters.
type Classifier interface {
	// Classify fills QuestionType, Difficulty and BloomLevel.
	Classify(ctx context.Context, q *model.Question)
	// LabelCluster names a topic from a sample of member texts. An empty
	// result tells the caller to keep its derived label.
	LabelCluster(ctx context.Context, samples []string) string
}

// New selects a classifier variant. modelAssisted requires a non-nil
// generator; when false the generator is ignored entirely.
func New(gen llm.Generator, modelAssisted bool) Classifier {
	if modelAssisted && gen != nil {
		return &ModelAssisted{gen: gen, rules: RuleBased{}}
	}
	return RuleBased{}
}

// RuleBased classifies with keyword heuristics only.
type RuleBased struct{}

func (RuleBased) Classify(_ context.Context, q *model.Question) {
	q.QuestionType = questionTypeByKeywords(q.Text)
	q.Difficulty = difficultyByHeuristics(q.Text, q.Marks)
	q.BloomLevel = bloomByKeywords(q.Text)
}

func (RuleBased) LabelCluster(_ context.Context, _ []string) string {
	return ""
}

// ModelAssisted asks the LLM and falls back to the keyword rules when the
// call fails or returns an unrecognized label.
type ModelAssisted struct {
	gen   llm.Generator
	rules RuleBased
}

func (m *ModelAssisted) Classify(ctx context.Context, q *model.Question) {
	m.rules.Classify(ctx, q)

	if t, err := m.gen.Generate(ctx, questionTypePrompt(q.Text), 20, 0.1); err == nil {
		if label := strings.ToLower(strings.TrimSpace(t)); validQuestionType(label) {
			q.QuestionType = label
		}
	} else {
		zap.L().Debug("classify: type generation failed", zap.Error(err))
	}

	if d, err := m.gen.Generate(ctx, difficultyPrompt(q.Text), 10, 0.1); err == nil {
		if label := strings.ToLower(strings.TrimSpace(d)); validDifficulty(label) {
			q.Difficulty = label
		}
	} else {
		zap.L().Debug("classify: difficulty generation failed", zap.Error(err))
	}

	if b, err := m.gen.Generate(ctx, bloomPrompt(q.Text), 15, 0.1); err == nil {
		if label := strings.ToLower(strings.TrimSpace(b)); validBloomLevel(label) {
			q.BloomLevel = label
		}
	} else {
		zap.L().Debug("classify: bloom generation failed", zap.Error(err))
	}
}

// maxLabelSamples bounds how many member texts go into a labeling prompt.
const maxLabelSamples = 5

func (m *ModelAssisted) LabelCluster(ctx context.Context, samples []string) string {
	if len(samples) == 0 {
		return ""
	}
	if len(samples) > maxLabelSamples {
		samples = samples[:maxLabelSamples]
	}

	label, err := m.gen.Generate(ctx, topicLabelPrompt(samples), 50, 0.3)
	if err != nil {
		zap.L().Warn("classify: cluster labeling failed", zap.Error(err))
		return ""
	}
	return strings.Trim(strings.TrimSpace(label), `"`)
}

func questionTypeByKeywords(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "define", "what is", "explain briefly"):
		return TypeDefinition
	case containsAny(lower, "derive", "proof", "show that"):
		return TypeDerivation
	case containsAny(lower, "calculate", "compute", "find"):
		return TypeNumerical
	case containsAny(lower, "draw", "diagram", "sketch"):
		return TypeDiagram
	case containsAny(lower, "compare", "differentiate"):
		return TypeComparison
	default:
		return TypeTheory
	}
}

// difficultyByHeuristics bands by word count; high-mark questions never
// rate easy.
func difficultyByHeuristics(text string, marks int) string {
	words := len(strings.Fields(text))
	switch {
	case words < 10 && marks <= 3:
		return DifficultyEasy
	case words < 30:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

func bloomByKeywords(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "list", "define", "name", "state"):
		return "remember"
	case containsAny(lower, "explain", "describe", "discuss"):
		return "understand"
	case containsAny(lower, "apply", "calculate", "solve"):
		return "apply"
	case containsAny(lower, "analyze", "examine", "compare"):
		return "analyze"
	case containsAny(lower, "evaluate", "assess", "justify"):
		return "evaluate"
	case containsAny(lower, "create", "design", "develop"):
		return "create"
	default:
		return "understand"
	}
}

func validQuestionType(s string) bool {
	switch s {
	case TypeDefinition, TypeDerivation, TypeNumerical, TypeDiagram, TypeComparison, TypeTheory:
		return true
	}
	return false
}

func validDifficulty(s string) bool {
	switch s {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

func validBloomLevel(s string) bool {
	switch s {
	case "remember", "understand", "apply", "analyze", "evaluate", "create":
		return true
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
