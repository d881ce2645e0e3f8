package extract

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/studydeck/exam-insights/internal/model"
)

var (
	partASectionRe = regexp.MustCompile(`(?is)PART\s*A(.*?)(?:PART\s*B|Module\s*[-–:]?\s*[1IVX])`)
	moduleMarkerRe = regexp.MustCompile(`(?i)Module\s*[-–:]?\s*(\d+|[IVX]+)`)
	nextPartRe     = regexp.MustCompile(`(?i)PART\s*[A-Z]`)

	answerNoteRe  = regexp.MustCompile(`(?is)\(Answer.*?\)`)
	carriesNoteRe = regexp.MustCompile(`(?is)each\s+question\s+carries.*`)

	// Common OCR confusions around question numbers.
	ocrOneRe    = regexp.MustCompile(`\bI\s+(What|How|Explain|Define|List)`)
	ocrTenRe    = regexp.MustCompile(`\bl0\b`)
	ocrOneXRe   = regexp.MustCompile(`\bl(\d)`)
	ocrEighteen = regexp.MustCompile(`\bI\s*E\b`)

	// Question-start anchors. Boundaries are not otherwise delimited, so a
	// greedy left-to-right scan over these anchors is the segmentation
	// strategy: each span runs to the next anchor or end of section.
	partAAnchorRe = regexp.MustCompile(`(\d{1,2})[.)]*\s+[A-Za-z]`)
	partBAnchorRe = regexp.MustCompile(`(?i)(\d{1,2})\s*[.)]*\s*([a-z])\s*[.)]*\s+[A-Za-z]`)

	leadingNumberRe = regexp.MustCompile(`^\d{1,2}[.)]*\s+`)
	leadingSubRe    = regexp.MustCompile(`(?i)^(\d{1,2})\s*[.)]*\s*([a-z])\s*[.)]*\s+`)
)

var romanModules = map[string]int{
	"I": 1, "II": 2, "III": 3, "IV": 4, "V": 5, "VI": 6,
}

// extractPartA pulls short-answer questions (1-10) from the Part A section.
func extractPartA(text string, defaultMarks int) []model.Question {
	m := partASectionRe.FindStringSubmatch(text)
	if m == nil {
		zap.L().Debug("extract: no Part A section found")
		return nil
	}
	section := m[1]

	// Strip instruction text and fix OCR slips before scanning anchors.
	section = answerNoteRe.ReplaceAllString(section, "")
	section = carriesNoteRe.ReplaceAllString(section, "")
	section = ocrOneRe.ReplaceAllString(section, "1 ${1}")
	section = ocrTenRe.ReplaceAllString(section, "10")
	section = strings.Join(strings.Fields(section), " ")

	var questions []model.Question
	anchors := partAAnchorRe.FindAllStringSubmatchIndex(section, -1)
	for i, loc := range anchors {
		num := section[loc[2]:loc[3]]
		if n, err := strconv.Atoi(num); err != nil || n > 10 {
			continue
		}

		end := len(section)
		if i+1 < len(anchors) {
			end = anchors[i+1][0]
		}
		span := strings.TrimSpace(section[loc[0]:end])
		span = leadingNumberRe.ReplaceAllString(span, "")

		qText, marks := extractMarks(span, defaultMarks)
		qText = stripTrailingGarbage(qText)

		if accepted(qText) {
			questions = append(questions, model.Question{
				Number: num,
				Text:   qText,
				Marks:  marks,
				Part:   model.PartA,
			})
		}
	}

	return questions
}

// extractPartB pulls long-answer questions from the module-partitioned
// Part B section. Each module span is delimited by module markers (decimal
// or Roman); questions inside carry a sub-part letter ("11a").
func extractPartB(text string, defaultMarks int) []model.Question {
	var questions []model.Question

	markers := moduleMarkerRe.FindAllStringSubmatchIndex(text, -1)
	for i, loc := range markers {
		modNum, ok := parseModuleNumber(text[loc[2]:loc[3]])
		if !ok {
			continue
		}

		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		content := text[loc[1]:end]

		// A module span ends early at the next PART marker.
		if next := nextPartRe.FindStringIndex(content); next != nil {
			content = content[:next[0]]
		}

		content = ocrOneXRe.ReplaceAllString(content, "1${1}")
		content = ocrEighteen.ReplaceAllString(content, "18")
		content = strings.Join(strings.Fields(content), " ")

		questions = append(questions, extractModuleQuestions(content, modNum, defaultMarks)...)
	}

	return questions
}

// extractModuleQuestions scans one module span for sub-part anchors.
func extractModuleQuestions(content string, modNum, defaultMarks int) []model.Question {
	var questions []model.Question

	anchors := partBAnchorRe.FindAllStringSubmatchIndex(content, -1)
	for i, loc := range anchors {
		num := content[loc[2]:loc[3]]
		sub := strings.ToLower(content[loc[4]:loc[5]])

		end := len(content)
		if i+1 < len(anchors) {
			end = anchors[i+1][0]
		}
		span := strings.TrimSpace(content[loc[0]:end])
		span = leadingSubRe.ReplaceAllString(span, "")

		qText, marks := extractMarks(span, defaultMarks)
		qText = stripTrailingGarbage(qText)

		if accepted(qText) {
			questions = append(questions, model.Question{
				Number:     num + sub,
				Text:       qText,
				Marks:      marks,
				Part:       model.PartB,
				ModuleHint: modNum,
			})
		}
	}

	return questions
}

// parseModuleNumber handles both decimal and Roman module labels.
func parseModuleNumber(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, ok := romanModules[strings.ToUpper(s)]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
