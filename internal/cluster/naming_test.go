package cluster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameTopic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips verb lead",
			input:    "Explain the working of a binary search tree",
			expected: "Working of a binary search tree",
		},
		{
			name:     "strips question lead",
			input:    "What is entropy?",
			expected: "Entropy",
		},
		{
			name:     "strips number lead",
			input:    "11a) Derive the Carnot efficiency expression",
			expected: "Carnot efficiency expression",
		},
		{
			name:     "strips trailing instruction",
			input:    "Describe quicksort with example and analysis",
			expected: "Quicksort",
		},
		{
			name:     "keeps first sentence only",
			input:    "Define a deadlock. State the necessary conditions for it.",
			expected: "A deadlock",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NameTopic(tt.input))
		})
	}
}

func TestNameTopic_TruncatesLongText(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("polymorphism ", 20)
	name := NameTopic(long)
	assert.LessOrEqual(t, len(name), maxTopicNameLen+3)
	assert.True(t, strings.HasSuffix(name, "..."))
}

func TestNameTopic_Empty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", NameTopic(""))
}

func TestTruncateAtWord(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateAtWord("short", 10))
	assert.Equal(t, "alpha...", truncateAtWord("alpha bravo charlie", 8))
}
