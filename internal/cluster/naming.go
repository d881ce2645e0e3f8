package cluster

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/studydeck/exam-insights/internal/normalize"
)

// maxTopicNameLen bounds generated topic labels.
const maxTopicNameLen = 80

var (
	questionLeadRe = regexp.MustCompile(`(?i)^(what|which|who|when|where|why|how)\s+(is|are|was|were|do|does|did)\s+`)
	verbLeadRe     = regexp.MustCompile(`(?i)^(explain|describe|define|discuss|illustrate|list|enumerate|mention|state|elaborate|classify|compare|differentiate|write|give|outline|summarize|analyze|evaluate|examine|derive)\s+(about\s+)?(the\s+)?`)
	numberLeadRe   = regexp.MustCompile(`^\d+[a-z]?[.)]\s*`)
	trailingInstRe = regexp.MustCompile(`(?i)\s+(with|using|by)\s+(diagram|example|illustration|detail|reference|help of).*$`)
)

// NameTopic derives a concise human-readable label from a representative
// question text. Purely cosmetic; an empty result falls back to a truncated
// raw-text slice, and finally to a key-phrase of the normalized text.
func NameTopic(text string) string {
	name := strings.TrimSpace(text)
	name = numberLeadRe.ReplaceAllString(name, "")
	name = questionLeadRe.ReplaceAllString(name, "")
	name = verbLeadRe.ReplaceAllString(name, "")
	name = trailingInstRe.ReplaceAllString(name, "")

	// First question or sentence only.
	if idx := strings.IndexByte(name, '?'); idx >= 0 {
		name = name[:idx]
	} else if idx := strings.IndexByte(name, '.'); idx >= 0 && idx < maxTopicNameLen {
		name = name[:idx]
	}

	name = truncateAtWord(strings.TrimSpace(name), maxTopicNameLen)
	name = capitalize(name)

	if name != "" {
		return name
	}
	if fallback := truncateAtWord(strings.TrimSpace(text), maxTopicNameLen); fallback != "" {
		return capitalize(fallback)
	}
	if phrases := normalize.KeyPhrases(text, 1); len(phrases) > 0 {
		return capitalize(phrases[0])
	}
	return ""
}

// truncateAtWord cuts text to max characters at a word boundary, appending
// an ellipsis when anything was dropped.
func truncateAtWord(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "..."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
