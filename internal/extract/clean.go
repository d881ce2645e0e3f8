package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// skipLineRes match document furniture that transcription pipelines
// interleave with question text: registration numbers, page footers,
// course-code headers, pure-punctuation lines.
var skipLineRes = []*regexp.Regexp{
	regexp.MustCompile(`^\d{10,}$`),
	regexp.MustCompile(`(?i)^Page\s*\d+`),
	regexp.MustCompile(`(?i)^Name:`),
	regexp.MustCompile(`^\$#\d+`),
	regexp.MustCompile(`(?i)^APJ ABDUL KALAM`),
	regexp.MustCompile(`(?i)^B\.?Tech\s+Degree`),
	regexp.MustCompile(`(?i)^Course\s*(Code|Name):`),
	regexp.MustCompile(`(?i)^Max\.?\s*Marks`),
	regexp.MustCompile(`(?i)^Duration:`),
	regexp.MustCompile(`^\d+\s+of\s+\d+`),
	regexp.MustCompile(`^[.,;:\-\s]+$`),
}

// cleanText drops boilerplate lines and blank lines, preserving order.
// NFKC folding first collapses the ligatures and fullwidth forms OCR
// engines emit ("ﬁnd" -> "find") so downstream regexes see plain ASCII.
func cleanText(text string) string {
	text = norm.NFKC.String(text)
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		skip := false
		for _, re := range skipLineRes {
			if re.MatchString(line) {
				skip = true
				break
			}
		}
		if !skip {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
