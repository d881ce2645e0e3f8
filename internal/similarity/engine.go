// Package similarity scores question equivalence on a [0,1] scale using an
// ordered fallback chain of lexical, fuzzy and vector signals.
package similarity

import (
	"math"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/studydeck/exam-insights/internal/model"
	"github.com/studydeck/exam-insights/internal/normalize"
)

// shortTextLen is the normalized length below which token-overlap measures
// become unreliable and substring containment is used instead.
const shortTextLen = 30

// Engine computes pairwise question similarity. Threshold is tuned per
// subject: 0.3 for the strict rule-based path, 0.75 when embeddings drive
// comparison.
type Engine struct {
	Threshold float64

	fuzzyParams *levenshtein.Params
}

// NewEngine creates an Engine with the given decision threshold.
func NewEngine(threshold float64) *Engine {
	return &Engine{
		Threshold:   threshold,
		fuzzyParams: levenshtein.NewParams(),
	}
}

// Score computes the similarity between two questions. Each stage of the
// chain runs only when the prior stage did not produce a confident verdict;
// the returned value is the score of the decisive stage, or the last
// computed score when nothing crossed the threshold.
func (e *Engine) Score(a, b model.Question) float64 {
	na := normalizedText(a)
	nb := normalizedText(b)

	// Identical normalized forms are reflexively similar, including the
	// all-boilerplate case where both normalize to "".
	if na == nb {
		return 1.0
	}

	// Stage 1: containment for short strings. The empty string is contained
	// in everything, so a question that normalizes away entirely matches any
	// short text.
	if len(na) < shortTextLen || len(nb) < shortTextLen {
		if strings.Contains(na, nb) || strings.Contains(nb, na) {
			return 1.0
		}
		return 0.0
	}

	// Stage 2: fuzzy character-level alignment ratio.
	fuzzy := levenshtein.Similarity(na, nb, e.fuzzyParams)
	if fuzzy >= e.Threshold {
		return fuzzy
	}

	// Stage 3: Jaccard overlap on token sets.
	jaccard := Jaccard(na, nb)
	if jaccard >= e.Threshold {
		return jaccard
	}

	// Stage 4: cosine over embeddings, when both sides carry one.
	if a.HasEmbedding() && b.HasEmbedding() {
		return Cosine(a.Embedding, b.Embedding)
	}

	return jaccard
}

// Similar reports whether the pair's score meets the engine threshold.
func (e *Engine) Similar(a, b model.Question) bool {
	return e.Score(a, b) >= e.Threshold
}

// Jaccard computes |intersection| / |union| over whitespace-split token
// sets of two already-normalized texts.
func Jaccard(text1, text2 string) float64 {
	if text1 == "" || text2 == "" {
		return 0
	}

	set1 := tokenSet(text1)
	set2 := tokenSet(text2)
	if len(set1) == 0 || len(set2) == 0 {
		return 0
	}

	intersection := 0
	for t := range set1 {
		if _, ok := set2[t]; ok {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Cosine computes cosine similarity between two vectors, clamped to [0,1].
// Mismatched lengths and zero vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Min(1.0, math.Max(0.0, sim))
}

// normalizedText prefers the cached normalized form when present.
func normalizedText(q model.Question) string {
	if q.NormalizedText != "" {
		return q.NormalizedText
	}
	return normalize.Normalize(q.Text)
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(text)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
