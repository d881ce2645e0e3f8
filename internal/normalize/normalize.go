// Package normalize canonicalizes question text into a comparison-friendly
// form used by similarity scoring, clustering and dedup keys.
package normalize

import (
	"regexp"
	"sort"
	"strings"
)

// stopwords carry no topical signal in exam questions. The set mixes generic
// English stopwords with question verbs ("explain", "define") that would
// otherwise dominate short-text similarity.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"can": {}, "could": {}, "will": {}, "would": {}, "should": {}, "may": {},
	"might": {}, "must": {}, "shall": {},
	"what": {}, "which": {}, "who": {}, "whom": {}, "whose": {}, "when": {},
	"where": {}, "why": {}, "how": {},
	"explain": {}, "describe": {}, "define": {}, "discuss": {},
	"illustrate": {}, "list": {}, "mention": {}, "state": {}, "give": {},
	"write": {}, "short": {}, "note": {}, "notes": {}, "briefly": {},
	"detail": {}, "details": {}, "answer": {}, "following": {},
}

// removePatterns strip exam boilerplate before tokenization: years, marks
// annotations, question/part labels, month-year stamps, bracketed asides.
var removePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\(\s*\d+\s*marks?\s*\)`),
	regexp.MustCompile(`(?i)\d+\s*marks?`),
	regexp.MustCompile(`(?i)\(?(dec|december|jan|feb|mar|apr|april|may|jun|june|jul|aug|august|sep|oct|nov|november)\s*\d{4}\)?`),
	regexp.MustCompile(`\d{4}`),
	regexp.MustCompile(`(?i)q\d+[a-z]?`),
	regexp.MustCompile(`(?i)question\s*\d+`),
	regexp.MustCompile(`(?i)part\s*[ab]\b`),
	regexp.MustCompile(`\[[^\]]*\]`),
}

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s.,-]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes raw question text: lowercases, strips boilerplate
// patterns and stopwords, collapses whitespace. It is deterministic and
// idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)

	for _, re := range removePatterns {
		text = re.ReplaceAllString(text, "")
	}

	text = nonWordRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if _, skip := stopwords[w]; skip {
			continue
		}
		if len(w) <= 2 {
			continue
		}
		kept = append(kept, w)
	}

	return strings.TrimSpace(strings.Join(kept, " "))
}

// Tokens returns the normalized token set of a text.
func Tokens(text string) map[string]struct{} {
	fields := strings.Fields(Normalize(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// topicKeyLen bounds the dedup/lookup key derived from normalized text.
const topicKeyLen = 50

// TopicKey derives a stable lookup key for clustering: the first 50
// characters of the normalized text.
func TopicKey(text string) string {
	normalized := Normalize(text)
	if len(normalized) <= topicKeyLen {
		return normalized
	}
	return strings.TrimSpace(normalized[:topicKeyLen])
}

// KeyPhrases extracts up to n contiguous 2- and 3-word windows over the
// normalized tokens, longest first. Used as a human-readable topic label
// fallback when no better name is available.
func KeyPhrases(text string, n int) []string {
	words := strings.Fields(Normalize(text))

	seen := make(map[string]struct{})
	var phrases []string
	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		phrases = append(phrases, p)
	}

	for i := 0; i+1 < len(words); i++ {
		add(words[i] + " " + words[i+1])
	}
	for i := 0; i+2 < len(words); i++ {
		add(words[i] + " " + words[i+1] + " " + words[i+2])
	}

	// Longest first; ties keep insertion order for determinism.
	sort.SliceStable(phrases, func(i, j int) bool {
		return len(phrases[i]) > len(phrases[j])
	})

	if n >= 0 && len(phrases) > n {
		phrases = phrases[:n]
	}
	return phrases
}
