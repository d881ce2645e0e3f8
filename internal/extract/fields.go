package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/studydeck/exam-insights/internal/model"
)

var (
	marksWordRe    = regexp.MustCompile(`(?i)\(?\s*(\d{1,2})\s*marks?\)?\s*$`)
	trailingNumRe  = regexp.MustCompile(`\s+\(?(\d{1,2})\)?\s*$`)
	trailingJunkRe = regexp.MustCompile(`(?i)\s+(causes|depletion|hazards|assessments|disasters|management|reduction|examples|country)\s*\.?\s*$`)
	trailingERe    = regexp.MustCompile(`\s*E\s*$`)
)

// extractMarks pulls trailing marks off a question span: first a
// parenthetical-or-worded "(N marks)" form, then a bare trailing number.
// Values above the per-part cap are OCR false positives, not marks; the
// span falls back to the scheme default.
func extractMarks(span string, defaultMarks int) (string, int) {
	if m := marksWordRe.FindStringSubmatchIndex(span); m != nil {
		if v, err := strconv.Atoi(span[m[2]:m[3]]); err == nil && v > 0 && v <= model.MaxPartBMarks {
			return strings.TrimSpace(span[:m[0]]), v
		}
	}

	if m := trailingNumRe.FindStringSubmatchIndex(span); m != nil {
		if v, err := strconv.Atoi(span[m[2]:m[3]]); err == nil && v > 0 && v <= model.MaxPartBMarks {
			return strings.TrimSpace(span[:m[0]]), v
		}
	}

	return strings.TrimSpace(span), defaultMarks
}

// stripTrailingGarbage removes OCR artifacts that cling to span ends.
func stripTrailingGarbage(text string) string {
	text = trailingJunkRe.ReplaceAllString(text, "")
	text = trailingERe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// accepted reports whether a span survives noise rejection: it must start
// with a letter and meet the minimum length.
func accepted(text string) bool {
	if len(text) < model.MinQuestionLength {
		return false
	}
	r := rune(text[0])
	return unicode.IsLetter(r)
}
