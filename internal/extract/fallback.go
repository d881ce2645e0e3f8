package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/studydeck/exam-insights/internal/model"
)

var (
	fallbackStartRe = regexp.MustCompile(`(?i)^(\d{1,2})\s*([a-z])?\s*[.)]*\s*(.+)`)
	fallbackNextRe  = regexp.MustCompile(`^\d{1,2}\s*[a-z]?\s*\)?.*[A-Z]`)
	sectionWordRe   = regexp.MustCompile(`(?i)^(Module|PART)\s`)
	moduleLineRe    = regexp.MustCompile(`(?i)^Module\s*[-–:]?\s*(\d+|[IVX]+)`)
)

// fallbackDefaults are applied when no marks are recovered in the
// line-oriented pass: short-answer 3, long-answer 7.
const (
	fallbackMarksA = 3
	fallbackMarksB = 7
)

// extractFallback is the line-oriented recovery pass used when the
// section-based extraction yields too few questions. Any line starting with
// a 1-2 digit number opens a question; continuation lines accumulate until
// the next number or section marker. Trades precision for recall when
// layout assumptions fail.
func extractFallback(text string) []model.Question {
	var questions []model.Question
	lines := strings.Split(text, "\n")

	currentModule := 0

	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}

		if m := moduleLineRe.FindStringSubmatch(line); m != nil {
			if mod, ok := parseModuleNumber(m[1]); ok {
				currentModule = mod
			}
			i++
			continue
		}

		m := fallbackStartRe.FindStringSubmatch(line)
		if m == nil || strings.TrimSpace(m[3]) == "" {
			i++
			continue
		}

		num := m[1]
		sub := strings.ToLower(m[2])
		qText := strings.TrimSpace(m[3])

		if !startsWithLetter(qText) {
			i++
			continue
		}

		// Accumulate continuation lines.
		j := i + 1
		for j < len(lines) {
			next := strings.TrimSpace(lines[j])
			if next == "" {
				j++
				continue
			}
			if fallbackNextRe.MatchString(next) || sectionWordRe.MatchString(next) {
				break
			}
			qText += " " + next
			j++
		}

		qText = strings.Join(strings.Fields(qText), " ")

		isPartA := false
		if n, err := strconv.Atoi(num); err == nil {
			isPartA = n <= 10
		}

		defaultMarks := fallbackMarksB
		if isPartA {
			defaultMarks = fallbackMarksA
		}
		qText, marks := extractMarks(qText, defaultMarks)

		if accepted(qText) {
			q := model.Question{
				Number: num + sub,
				Text:   qText,
				Marks:  marks,
			}
			if isPartA {
				q.Part = model.PartA
			} else {
				q.Part = model.PartB
				q.ModuleHint = currentModule
			}
			questions = append(questions, q)
		}

		i = j
	}

	return questions
}

func startsWithLetter(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
