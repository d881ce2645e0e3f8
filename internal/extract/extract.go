// Package extract segments cleaned exam-paper text into structured question
// records despite inconsistent formatting and transcription noise.
package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/studydeck/exam-insights/internal/model"
	"github.com/studydeck/exam-insights/internal/pattern"
)

// Extractor converts raw page text into an ordered question list. It never
// returns an error: unparseable text yields an empty list and the caller
// decides whether that is a pipeline failure.
type Extractor struct {
	// MinViableCount is the threshold below which the section-based pass is
	// discarded in favor of the line-oriented fallback.
	MinViableCount int
}

// New creates an Extractor. minViable <= 0 selects the default of 5.
func New(minViable int) *Extractor {
	if minViable <= 0 {
		minViable = 5
	}
	return &Extractor{MinViableCount: minViable}
}

// Extract runs the full extraction chain: cleaning, section isolation,
// greedy boundary detection, field extraction, fallback, module-hint
// assignment, dedup. When pat is non-nil its lookup is authoritative over
// marker-derived module hints.
func (e *Extractor) Extract(text string, pat *pattern.ExamPattern) []model.Question {
	log := zap.L()

	cleaned := cleanText(text)
	log.Debug("extract: cleaned text", zap.Int("chars", len(cleaned)))

	marksA, marksB := fallbackMarksA, fallbackMarksB
	if pat != nil {
		if m := pat.DefaultMarks(model.PartA); m > 0 {
			marksA = m
		}
		if m := pat.DefaultMarks(model.PartB); m > 0 {
			marksB = m
		}
	}

	questions := extractPartA(cleaned, marksA)
	log.Debug("extract: part A", zap.Int("count", len(questions)))

	partB := extractPartB(cleaned, marksB)
	log.Debug("extract: part B", zap.Int("count", len(partB)))
	questions = append(questions, partB...)

	if len(questions) < e.MinViableCount {
		log.Warn("extract: primary pass below viable count, using fallback",
			zap.Int("primary", len(questions)),
			zap.Int("min_viable", e.MinViableCount),
		)
		questions = extractFallback(cleaned)
		log.Info("extract: fallback pass", zap.Int("count", len(questions)))
	}

	assignModuleHints(questions, pat)
	questions = deduplicate(questions)

	log.Info("extract: complete",
		zap.Int("questions", len(questions)),
		zap.Int("part_a", countPart(questions, model.PartA)),
		zap.Int("part_b", countPart(questions, model.PartB)),
	)
	return questions
}

// assignModuleHints resolves (number, part) through the exam pattern. The
// pattern encodes grading-scheme truth, so it wins over marker-derived hints
// when the two disagree.
func assignModuleHints(questions []model.Question, pat *pattern.ExamPattern) {
	if pat == nil {
		return
	}
	for i := range questions {
		if mod, ok := pat.Resolve(questions[i].Number, questions[i].Part); ok {
			questions[i].ModuleHint = mod
		}
	}
}

// dedupKeyLen bounds the text prefix used in the dedup key.
const dedupKeyLen = 30

// deduplicate collapses entries sharing (number, lowercased 30-char text
// prefix), preserving first-seen order.
func deduplicate(questions []model.Question) []model.Question {
	type key struct {
		number string
		prefix string
	}
	seen := make(map[key]struct{}, len(questions))
	unique := questions[:0]

	for _, q := range questions {
		prefix := q.Text
		if len(prefix) > dedupKeyLen {
			prefix = prefix[:dedupKeyLen]
		}
		k := key{q.Number, strings.TrimSpace(strings.ToLower(prefix))}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, q)
	}

	return unique
}

func countPart(questions []model.Question, part model.Part) int {
	n := 0
	for _, q := range questions {
		if q.Part == part {
			n++
		}
	}
	return n
}
