// Package stats computes reporting aggregates for a subject from its
// stored questions and topic clusters. All functions are pure so they
// can run over any store snapshot.
package stats

import (
	"sort"

	"github.com/studydeck/exam-insights/internal/model"
)

// Overview summarizes a subject's question bank at a glance.
type Overview struct {
	Subject             string  `json:"subject"`
	TotalQuestions      int     `json:"total_questions"`
	UniqueQuestions     int     `json:"unique_questions"`
	Duplicates          int     `json:"duplicates"`
	DuplicatePercentage float64 `json:"duplicate_percentage"`
	PapersCount         int     `json:"papers_count"`
	TotalTopics         int     `json:"total_topics"`
	CriticalTopics      int     `json:"critical_topics"` // tier 1 clusters
}

// ModuleCount is one row of the per-module question distribution.
type ModuleCount struct {
	Module int `json:"module"` // 0 = unclassified
	Count  int `json:"count"`
}

// TopTopic is one entry of a most-repeated-topics ranking.
type TopTopic struct {
	Topic     string `json:"topic"`
	Module    int    `json:"module"`
	Frequency int    `json:"frequency"`
	Priority  string `json:"priority"`
	Marks     int    `json:"marks"`
}

// YearCount is one point of the questions-per-year trend.
type YearCount struct {
	Year  string `json:"year"`
	Count int    `json:"count"`
}

// Report bundles every aggregate for a subject.
type Report struct {
	Overview               Overview           `json:"overview"`
	ModuleDistribution     []ModuleCount      `json:"module_distribution"`
	DifficultyDistribution map[string]int     `json:"difficulty_distribution"`
	BloomDistribution      map[string]int     `json:"bloom_distribution"`
	TypeDistribution       map[string]int     `json:"type_distribution"`
	YearTrend              []YearCount        `json:"year_trend"`
	TopTopics              []TopTopic         `json:"top_topics"`
	TopTopicsPerModule     map[int][]TopTopic `json:"top_topics_per_module"`
}

// topTopicsLimit caps the global and per-module rankings.
const (
	topTopicsLimit     = 10
	perModuleTopicsCap = 3
)

// Compute builds the full report for a subject.
func Compute(subject string, papers []model.Paper, questions []model.Question, clusters []model.TopicCluster) Report {
	return Report{
		Overview:               ComputeOverview(subject, papers, questions, clusters),
		ModuleDistribution:     ModuleDistribution(questions),
		DifficultyDistribution: countBy(questions, func(q model.Question) string { return q.Difficulty }),
		BloomDistribution:      countBy(questions, func(q model.Question) string { return q.BloomLevel }),
		TypeDistribution:       countBy(questions, func(q model.Question) string { return q.QuestionType }),
		YearTrend:              YearTrend(questions),
		TopTopics:              TopTopics(clusters, topTopicsLimit),
		TopTopicsPerModule:     TopTopicsPerModule(clusters, perModuleTopicsCap),
	}
}

// ComputeOverview derives headline numbers. A question is counted as a
// duplicate when it repeats a topic already asked in another paper, i.e.
// it is a cluster member beyond the first.
func ComputeOverview(subject string, papers []model.Paper, questions []model.Question, clusters []model.TopicCluster) Overview {
	total := len(questions)

	duplicates := 0
	critical := 0
	for _, c := range clusters {
		if n := c.Size(); n > 1 {
			duplicates += n - 1
		}
		if c.PriorityTier == model.Tier1 {
			critical++
		}
	}

	pct := 0.0
	if total > 0 {
		pct = float64(duplicates) / float64(total) * 100
	}

	return Overview{
		Subject:             subject,
		TotalQuestions:      total,
		UniqueQuestions:     total - duplicates,
		Duplicates:          duplicates,
		DuplicatePercentage: pct,
		PapersCount:         len(papers),
		TotalTopics:         len(clusters),
		CriticalTopics:      critical,
	}
}

// ModuleDistribution counts questions per module, sorted by module
// number with unclassified (module 0) last.
func ModuleDistribution(questions []model.Question) []ModuleCount {
	counts := map[int]int{}
	for _, q := range questions {
		counts[q.ModuleHint]++
	}

	dist := make([]ModuleCount, 0, len(counts))
	for m, n := range counts {
		dist = append(dist, ModuleCount{Module: m, Count: n})
	}
	sort.Slice(dist, func(i, j int) bool {
		// Unclassified sorts after real modules.
		if (dist[i].Module == 0) != (dist[j].Module == 0) {
			return dist[j].Module == 0
		}
		return dist[i].Module < dist[j].Module
	})
	return dist
}

// YearTrend counts questions per source year, ascending. Questions with
// no year are skipped.
func YearTrend(questions []model.Question) []YearCount {
	counts := map[string]int{}
	for _, q := range questions {
		if q.SourceYear == "" {
			continue
		}
		counts[q.SourceYear]++
	}

	trend := make([]YearCount, 0, len(counts))
	for y, n := range counts {
		trend = append(trend, YearCount{Year: y, Count: n})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Year < trend[j].Year })
	return trend
}

// TopTopics ranks clusters by frequency, breaking ties by total marks
// then name so the order is stable.
func TopTopics(clusters []model.TopicCluster, n int) []TopTopic {
	sorted := make([]model.TopicCluster, len(clusters))
	copy(sorted, clusters)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].FrequencyCount != sorted[j].FrequencyCount {
			return sorted[i].FrequencyCount > sorted[j].FrequencyCount
		}
		if sorted[i].TotalMarks != sorted[j].TotalMarks {
			return sorted[i].TotalMarks > sorted[j].TotalMarks
		}
		return sorted[i].TopicName < sorted[j].TopicName
	})

	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	top := make([]TopTopic, 0, len(sorted))
	for _, c := range sorted {
		top = append(top, TopTopic{
			Topic:     c.TopicName,
			Module:    c.Module,
			Frequency: c.FrequencyCount,
			Priority:  c.PriorityTier.Label(),
			Marks:     c.TotalMarks,
		})
	}
	return top
}

// TopTopicsPerModule returns the most repeated topics for each module,
// keyed by module number.
func TopTopicsPerModule(clusters []model.TopicCluster, n int) map[int][]TopTopic {
	byModule := map[int][]model.TopicCluster{}
	for _, c := range clusters {
		byModule[c.Module] = append(byModule[c.Module], c)
	}

	result := make(map[int][]TopTopic, len(byModule))
	for m, cs := range byModule {
		result[m] = TopTopics(cs, n)
	}
	return result
}

func countBy(questions []model.Question, key func(model.Question) string) map[string]int {
	counts := map[string]int{}
	for _, q := range questions {
		k := key(q)
		if k == "" {
			continue
		}
		counts[k]++
	}
	return counts
}
