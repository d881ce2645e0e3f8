// Package pattern maps question numbers to syllabus modules using
// configurable exam-scheme lookup tables.
package pattern

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/studydeck/exam-insights/internal/model"
)

// Section is the per-part half of an exam pattern: default marks and the
// question-number-to-module table.
type Section struct {
	MarksPerQuestion int            `yaml:"marks_per_question" json:"marks_per_question"`
	Questions        map[string]int `yaml:"questions" json:"questions"`
}

// ExamPattern is a grading-scheme configuration mapping question numbers to
// module numbers per part. Supplied externally and consumed read-only.
type ExamPattern struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	PartA       Section `yaml:"part_a" json:"part_a"`
	PartB       Section `yaml:"part_b" json:"part_b"`
}

var leadingDigitsRe = regexp.MustCompile(`^\d+`)

// Resolve maps a (question number, part) pair to a module number. Any
// trailing sub-part letter on the number is ignored ("11a" resolves as "11").
// The second return is false when the pattern has no entry.
func (p *ExamPattern) Resolve(questionNumber string, part model.Part) (int, bool) {
	if p == nil {
		return 0, false
	}

	num := leadingDigitsRe.FindString(questionNumber)
	if num == "" {
		return 0, false
	}

	var section Section
	switch part {
	case model.PartA:
		section = p.PartA
	case model.PartB:
		section = p.PartB
	default:
		return 0, false
	}

	mod, ok := section.Questions[num]
	return mod, ok
}

// DefaultMarks returns the scheme's per-question marks for a part, or 0 if
// the part is unknown.
func (p *ExamPattern) DefaultMarks(part model.Part) int {
	if p == nil {
		return 0
	}
	switch part {
	case model.PartA:
		return p.PartA.MarksPerQuestion
	case model.PartB:
		return p.PartB.MarksPerQuestion
	}
	return 0
}

// KTUStandard returns the KTU engineering scheme: 10 Part A questions at
// 3 marks and 10 Part B questions at 14 marks, two questions per module.
func KTUStandard() *ExamPattern {
	return &ExamPattern{
		Name:        "KTU Standard Pattern",
		Description: "Standard KTU exam pattern for engineering subjects",
		PartA:       Section{MarksPerQuestion: 3, Questions: pairedQuestions(1, 10, 1)},
		PartB:       Section{MarksPerQuestion: 14, Questions: pairedQuestions(11, 20, 1)},
	}
}

// Generic5Module returns a generic scheme for 5-module subjects.
func Generic5Module() *ExamPattern {
	return &ExamPattern{
		Name:        "Generic 5 Module Pattern",
		Description: "Generic pattern for subjects with 5 modules",
		PartA:       Section{MarksPerQuestion: 3, Questions: pairedQuestions(1, 10, 1)},
		PartB:       Section{MarksPerQuestion: 14, Questions: pairedQuestions(11, 20, 1)},
	}
}

// Generic6Module returns a generic scheme for 6-module subjects: 12 Part A
// questions at 2 marks, 12 Part B questions at 12 marks.
func Generic6Module() *ExamPattern {
	return &ExamPattern{
		Name:        "Generic 6 Module Pattern",
		Description: "Generic pattern for subjects with 6 modules",
		PartA:       Section{MarksPerQuestion: 2, Questions: pairedQuestions(1, 12, 1)},
		PartB:       Section{MarksPerQuestion: 12, Questions: pairedQuestions(13, 24, 1)},
	}
}

// pairedQuestions builds a table assigning two consecutive question numbers
// per module, starting at firstNum and firstModule.
func pairedQuestions(firstNum, lastNum, firstModule int) map[string]int {
	m := make(map[string]int, lastNum-firstNum+1)
	for n := firstNum; n <= lastNum; n++ {
		m[strconv.Itoa(n)] = firstModule + (n-firstNum)/2
	}
	return m
}

// ByName returns a built-in pattern by its config name. Unknown names fall
// back to the KTU standard scheme.
func ByName(name string) *ExamPattern {
	switch name {
	case "generic_5_module":
		return Generic5Module()
	case "generic_6_module":
		return Generic6Module()
	case "ktu_standard", "":
		return KTUStandard()
	default:
		return KTUStandard()
	}
}

// LoadFile reads a custom exam pattern from a YAML file.
func LoadFile(path string) (*ExamPattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pattern: read %s", path)
	}

	var p ExamPattern
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "pattern: parse %s", path)
	}
	if p.Name == "" {
		p.Name = filepath.Base(path)
	}
	return &p, nil
}

// LoadDir reads all .yaml/.yml patterns in a directory, keyed by name.
func LoadDir(dir string) (map[string]*ExamPattern, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "pattern: read dir %s", dir)
	}

	patterns := make(map[string]*ExamPattern)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		p, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		patterns[p.Name] = p
	}
	return patterns, nil
}
