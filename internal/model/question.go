package model

import (
	"strings"

	"github.com/google/uuid"
)

// Part identifies the exam paper section a question belongs to.
type Part string

const (
	// PartA is the short-answer section (questions 1-10, low marks).
	PartA Part = "A"
	// PartB is the long-answer, module-partitioned section (questions 11-20).
	PartB Part = "B"
	// PartUnknown marks questions whose section could not be determined.
	PartUnknown Part = ""
)

// Question is one exam question instance extracted from one paper.
// Number, Text, Part and Marks are immutable after extraction;
// NormalizedText, ModuleHint and Embedding are filled in downstream.
type Question struct {
	ID             string    `json:"id"`
	Number         string    `json:"number"` // may carry a sub-part letter, e.g. "11a"
	Text           string    `json:"text"`
	Marks          int       `json:"marks,omitempty"` // 0 means unknown
	Part           Part      `json:"part"`
	ModuleHint     int       `json:"module_hint,omitempty"` // 0 means unassigned
	NormalizedText string    `json:"normalized_text,omitempty"`
	Embedding      []float64 `json:"embedding,omitempty"`
	QuestionType   string    `json:"question_type,omitempty"`
	Difficulty     string    `json:"difficulty,omitempty"`
	BloomLevel     string    `json:"bloom_level,omitempty"`
	SourcePaperID  string    `json:"source_paper_id,omitempty"`
	SourceYear     string    `json:"source_year,omitempty"`
}

// MinQuestionLength is the minimum accepted question text length.
// Shorter spans are rejected as transcription noise.
const MinQuestionLength = 10

// MaxPartBMarks caps plausible marks for a single question. Trailing numbers
// above this are treated as OCR false positives, not marks.
const MaxPartBMarks = 14

// BaseNumber returns the question number with any trailing sub-part
// letter removed ("11a" -> "11").
func (q Question) BaseNumber() string {
	return strings.TrimRight(q.Number, "abcdefghijklmnopqrstuvwxyz")
}

// HasEmbedding reports whether an embedding vector is attached.
func (q Question) HasEmbedding() bool {
	return len(q.Embedding) > 0
}

// Paper is one exam sitting whose raw transcribed text has been ingested.
type Paper struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Year    string `json:"year,omitempty"`
	RawText string `json:"raw_text,omitempty"`
}

// Namespaces for name-derived UUIDs. Stable identities make re-analysis an
// upsert of the existing rows instead of a row-duplicating insert.
var (
	paperIDNamespace    = uuid.MustParse("6f1c24b5-0c1f-4c59-9a2e-3d8f4b7a1e90")
	questionIDNamespace = uuid.MustParse("c8b9a0d1-7e42-4f36-8d5a-91b2c3e4f567")
)

// idKeyLen bounds the text prefix folded into a question identity, mirroring
// the extractor's dedup key.
const idKeyLen = 30

// PaperID derives a stable paper identity from subject and source name, so
// re-analyzing the same source updates the existing paper.
func PaperID(subject, source string) string {
	return uuid.NewSHA1(paperIDNamespace, []byte(subject+"\x00"+source)).String()
}

// QuestionID derives a stable question identity within a paper from the
// question number and a lowercased text prefix. The extractor already dedups
// on (number, prefix), so the derived IDs are unique within one paper.
func QuestionID(paperID, number, text string) string {
	prefix := strings.ToLower(strings.TrimSpace(text))
	if len(prefix) > idKeyLen {
		prefix = prefix[:idKeyLen]
	}
	return uuid.NewSHA1(questionIDNamespace, []byte(paperID+"\x00"+number+"\x00"+prefix)).String()
}
