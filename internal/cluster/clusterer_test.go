package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydeck/exam-insights/internal/model"
	"github.com/studydeck/exam-insights/internal/similarity"
)

func newTestClusterer() *Clusterer {
	return New(similarity.NewEngine(0.3), DefaultThresholds())
}

func TestCluster_GroupsRepeatedTopic(t *testing.T) {
	t.Parallel()

	questions := []model.Question{
		{ID: "q1", Text: "Derive the expression for Carnot cycle efficiency", Marks: 14, SourcePaperID: "p1", SourceYear: "2021"},
		{ID: "q2", Text: "Derive an expression for the efficiency of a Carnot cycle", Marks: 14, SourcePaperID: "p2", SourceYear: "2022"},
		{ID: "q3", Text: "Dijkstra shortest path algorithm for weighted graphs", Marks: 14, SourcePaperID: "p2", SourceYear: "2022"},
	}

	clusters := newTestClusterer().Cluster("thermo", 1, questions)
	require.Len(t, clusters, 2)

	repeated := clusters[0]
	assert.ElementsMatch(t, []string{"q1", "q2"}, repeated.MemberQuestionIDs)
	assert.Equal(t, []string{"2021", "2022"}, repeated.YearsAppeared)
	assert.Equal(t, []string{"p1", "p2"}, repeated.PaperIDsAppeared)
	assert.Equal(t, 2, repeated.FrequencyCount)
	assert.Equal(t, 28, repeated.TotalMarks)
	assert.InDelta(t, 14.0, repeated.AvgMarks, 1e-9)
	assert.Equal(t, model.Tier3, repeated.PriorityTier)

	single := clusters[1]
	assert.Equal(t, []string{"q3"}, single.MemberQuestionIDs)
	assert.Equal(t, 1, single.FrequencyCount)
	assert.Equal(t, model.Tier4, single.PriorityTier)
}

func TestCluster_FrequencyCountsDistinctYears(t *testing.T) {
	t.Parallel()

	// Three appearances but only two distinct years: repetition is
	// measured in exam sittings, so frequency is 2.
	questions := []model.Question{
		{ID: "q1", Text: "Explain the normalization of database relations in detail", SourcePaperID: "p1", SourceYear: "2022"},
		{ID: "q2", Text: "Explain the normalization of database relations with examples", SourcePaperID: "p2", SourceYear: "2022"},
		{ID: "q3", Text: "Explain the normalization of database relations", SourcePaperID: "p3", SourceYear: "2023"},
	}

	clusters := newTestClusterer().Cluster("dbms", 2, questions)
	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].Size())
	assert.Equal(t, 2, clusters[0].FrequencyCount)
	assert.Len(t, clusters[0].PaperIDsAppeared, 3)
}

func TestCluster_RepresentativeIsLongestText(t *testing.T) {
	t.Parallel()

	questions := []model.Question{
		{ID: "q1", Text: "Explain binary search tree insertion operations", SourceYear: "2021"},
		{ID: "q2", Text: "Explain binary search tree insertion operations with a worked example", SourceYear: "2022"},
	}

	clusters := newTestClusterer().Cluster("dsa", 3, questions)
	require.Len(t, clusters, 1)
	assert.Equal(t, questions[1].Text, clusters[0].RepresentativeText)
	assert.NotEmpty(t, clusters[0].NormalizedKey)
}

func TestCluster_DeterministicAcrossRuns(t *testing.T) {
	t.Parallel()

	questions := []model.Question{
		{ID: "q1", Text: "Explain the working of a stack with push and pop operations", SourceYear: "2021"},
		{ID: "q2", Text: "Explain queue operations enqueue and dequeue with examples", SourceYear: "2021"},
		{ID: "q3", Text: "Describe the working of a stack including push and pop operations", SourceYear: "2022"},
	}

	c := newTestClusterer()
	a := c.Cluster("dsa", 1, questions)
	b := c.Cluster("dsa", 1, questions)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].MemberQuestionIDs, b[i].MemberQuestionIDs)
		assert.Equal(t, a[i].TopicName, b[i].TopicName)
		assert.Equal(t, a[i].FrequencyCount, b[i].FrequencyCount)
	}
}

func TestCluster_MarksAverageSkipsUnknown(t *testing.T) {
	t.Parallel()

	questions := []model.Question{
		{ID: "q1", Text: "Explain the principle of mathematical induction with proofs", Marks: 14, SourceYear: "2021"},
		{ID: "q2", Text: "Explain the principle of mathematical induction", Marks: 0, SourceYear: "2022"},
	}

	clusters := newTestClusterer().Cluster("dm", 1, questions)
	require.Len(t, clusters, 1)
	assert.Equal(t, 14, clusters[0].TotalMarks)
	assert.InDelta(t, 14.0, clusters[0].AvgMarks, 1e-9, "unknown marks are excluded from the average")
}

func TestCluster_Empty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, newTestClusterer().Cluster("dsa", 1, nil))
}

func TestCentroid(t *testing.T) {
	t.Parallel()

	members := []model.Question{
		{Embedding: []float64{1, 2}},
		{Embedding: []float64{3, 4}},
		{},                           // no embedding, skipped
		{Embedding: []float64{1, 2, 3}}, // mismatched length, skipped
	}
	assert.Equal(t, []float64{2, 3}, Centroid(members))

	assert.Nil(t, Centroid([]model.Question{{}, {}}), "no embeddings yields nil")
}

func TestTier(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	tests := []struct {
		frequency int
		expected  model.PriorityTier
	}{
		{0, model.Tier4},
		{1, model.Tier4},
		{2, model.Tier3},
		{3, model.Tier2},
		{4, model.Tier1},
		{7, model.Tier1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Tier(tt.frequency, th), "frequency %d", tt.frequency)
	}

	// Tiers are monotone in frequency.
	prev := Tier(0, th)
	for f := 1; f <= 10; f++ {
		cur := Tier(f, th)
		assert.LessOrEqual(t, int(cur), int(prev), "tier must not worsen as frequency grows")
		prev = cur
	}
}
