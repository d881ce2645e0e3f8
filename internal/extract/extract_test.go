package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydeck/exam-insights/internal/model"
	"github.com/studydeck/exam-insights/internal/pattern"
)

const fullPaperText = `APJ ABDUL KALAM TECHNOLOGICAL UNIVERSITY
B.Tech Degree Examination December 2022
Course Code: CST201
Max. Marks: 100
Duration: 3 Hours
PART A
(Answer all questions; each question carries 3 marks)
1 What is a binary search tree
2 Define a stack and list its operations
3 Explain collision resolution in hashing
4 State the time complexity of merge sort
5 Differentiate between BFS and DFS traversal
PART B
Module -1
11 a) Explain the working of AVL tree rotations with an example 14
12 a) Describe the deletion operation in a binary search tree 14
Module -2
13 a) Derive the average case complexity of quicksort 14
`

func questionByNumber(t *testing.T, questions []model.Question, number string) model.Question {
	t.Helper()
	for _, q := range questions {
		if q.Number == number {
			return q
		}
	}
	t.Fatalf("question %s not extracted", number)
	return model.Question{}
}

func TestExtract_FullPaper(t *testing.T) {
	t.Parallel()

	questions := New(0).Extract(fullPaperText, pattern.KTUStandard())
	require.Len(t, questions, 8)
	assert.Equal(t, 5, countPart(questions, model.PartA))
	assert.Equal(t, 3, countPart(questions, model.PartB))

	q1 := questionByNumber(t, questions, "1")
	assert.Equal(t, "What is a binary search tree", q1.Text)
	assert.Equal(t, 3, q1.Marks)
	assert.Equal(t, model.PartA, q1.Part)
	assert.Equal(t, 1, q1.ModuleHint)

	assert.Equal(t, 2, questionByNumber(t, questions, "3").ModuleHint)
	assert.Equal(t, 3, questionByNumber(t, questions, "5").ModuleHint)

	q11 := questionByNumber(t, questions, "11a")
	assert.Equal(t, "Explain the working of AVL tree rotations with an example", q11.Text)
	assert.Equal(t, 14, q11.Marks)
	assert.Equal(t, model.PartB, q11.Part)
	assert.Equal(t, 1, q11.ModuleHint)

	q13 := questionByNumber(t, questions, "13a")
	assert.Equal(t, 2, q13.ModuleHint)
}

// A short paper drops below the viable count for the section pass and is
// recovered line by line instead.
func TestExtract_ShortPaperUsesLineFallback(t *testing.T) {
	t.Parallel()

	text := `PART A
(Answer all questions; each question carries 3 marks)
1. What is entropy? Explain its significance. (3 marks)
2. Define enthalpy. 3
PART B
Module -1
11 a) Derive the Carnot efficiency expression. 14
`

	questions := New(0).Extract(text, nil)
	require.Len(t, questions, 3)

	q1 := questions[0]
	assert.Equal(t, "1", q1.Number)
	assert.True(t, strings.HasPrefix(q1.Text, "What is entropy?"))
	assert.Equal(t, 3, q1.Marks)
	assert.Equal(t, model.PartA, q1.Part)

	q2 := questions[1]
	assert.Equal(t, "2", q2.Number)
	assert.Equal(t, "Define enthalpy.", q2.Text)
	assert.Equal(t, 3, q2.Marks)

	q11 := questions[2]
	assert.Equal(t, "11a", q11.Number)
	assert.Equal(t, "Derive the Carnot efficiency expression.", q11.Text)
	assert.Equal(t, 14, q11.Marks)
	assert.Equal(t, model.PartB, q11.Part)
	assert.Equal(t, 1, q11.ModuleHint)
}

func TestExtract_GarbageYieldsEmpty(t *testing.T) {
	t.Parallel()

	questions := New(0).Extract("%%% ??? !!!\n-----\n", nil)
	assert.Empty(t, questions)
}

func TestExtract_RomanModuleNumbers(t *testing.T) {
	t.Parallel()

	questions := extractPartB("Module III\n15 a) Explain deadlock detection and recovery 14", 14)
	require.Len(t, questions, 1)
	assert.Equal(t, 3, questions[0].ModuleHint)
	assert.Equal(t, "15a", questions[0].Number)
}

func TestExtract_OCRNumberRepair(t *testing.T) {
	t.Parallel()

	questions := extractPartB("Module -1\nl1 a) Explain the concept of process scheduling 14", 14)
	require.Len(t, questions, 1)
	assert.Equal(t, "11a", questions[0].Number)
}

func TestCleanText(t *testing.T) {
	t.Parallel()

	text := "Page 1\nName: ABC\n1 of 3\nWhat is entropy\n- - -\nDefine enthalpy\n"
	assert.Equal(t, "What is entropy\nDefine enthalpy", cleanText(text))
}

func TestCleanText_FoldsLigatures(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "find the efficiency", cleanText("ﬁnd the eﬃciency"))
}

func TestExtractMarks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		span      string
		wantText  string
		wantMarks int
	}{
		{"worded parenthetical", "What is entropy? (3 marks)", "What is entropy?", 3},
		{"worded without parens", "Explain quicksort 10 marks", "Explain quicksort", 10},
		{"bare trailing number", "Define enthalpy. 14", "Define enthalpy.", 14},
		{"no marks uses default", "Define enthalpy.", "Define enthalpy.", 7},
		{"above cap is not marks", "Question from page 2017", "Question from page 2017", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			text, marks := extractMarks(tt.span, 7)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantMarks, marks)
		})
	}
}

func TestAccepted(t *testing.T) {
	t.Parallel()

	assert.True(t, accepted("Explain the working of AVL trees"))
	assert.False(t, accepted("marks)"))
	assert.False(t, accepted("14 Explain the working"))
}

func TestDeduplicate(t *testing.T) {
	t.Parallel()

	questions := []model.Question{
		{Number: "1", Text: "What is a binary search tree"},
		{Number: "1", Text: "What is a binary search tree"},
		{Number: "2", Text: "What is a binary search tree"},
	}
	unique := deduplicate(questions)
	require.Len(t, unique, 2)
	assert.Equal(t, "1", unique[0].Number)
	assert.Equal(t, "2", unique[1].Number)
}
