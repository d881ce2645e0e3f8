package classify

import (
	"fmt"
	"strings"
)

// promptTextLimit truncates question text in prompts.
const promptTextLimit = 200

func questionTypePrompt(text string) string {
	return fmt.Sprintf(`Classify this exam question into ONE type:
- definition
- derivation
- numerical
- theory
- diagram
- comparison

Question: %s

Type:`, clip(text))
}

func difficultyPrompt(text string) string {
	return fmt.Sprintf(`Rate the difficulty of this exam question:
- easy
- medium
- hard

Question: %s

Difficulty:`, clip(text))
}

func bloomPrompt(text string) string {
	return fmt.Sprintf(`Classify this question by Bloom's Taxonomy:
- remember
- understand
- apply
- analyze
- evaluate
- create

Question: %s

Level:`, clip(text))
}

func topicLabelPrompt(samples []string) string {
	var b strings.Builder
	b.WriteString("Given these exam questions, identify the main topic/subject area in 2-5 words:\n\nQuestions:\n")
	for _, s := range samples {
		b.WriteString("- " + clip(s) + "\n")
	}
	b.WriteString("\nTopic name:")
	return b.String()
}

func clip(text string) string {
	if len(text) <= promptTextLimit {
		return text
	}
	return text[:promptTextLimit]
}
