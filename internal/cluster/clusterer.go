// Package cluster partitions a module's questions into topic clusters and
// derives per-cluster repetition statistics and priority tiers.
package cluster

import (
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studydeck/exam-insights/internal/model"
	"github.com/studydeck/exam-insights/internal/normalize"
	"github.com/studydeck/exam-insights/internal/similarity"
)

// Clusterer groups semantically equivalent questions. Clustering is a
// strictly ordered, stateful scan: given identical input order and an
// identical similarity function the output is fully deterministic.
type Clusterer struct {
	engine     *similarity.Engine
	thresholds Thresholds
}

// New creates a Clusterer from a similarity engine and tier thresholds.
func New(engine *similarity.Engine, thresholds Thresholds) *Clusterer {
	return &Clusterer{engine: engine, thresholds: thresholds}
}

// Cluster partitions questions scoped to one (subject, module) pair using
// greedy seed-only grouping: each unassigned question seeds a cluster and
// claims every remaining question whose similarity to the seed crosses the
// threshold. Members are compared against the seed only, not against each
// other, which can split or merge non-transitive groups depending on seed
// order — a known precision limitation kept for behavioral compatibility.
func (c *Clusterer) Cluster(subject string, module int, questions []model.Question) []model.TopicCluster {
	if len(questions) == 0 {
		return nil
	}

	log := zap.L().With(zap.String("subject", subject), zap.Int("module", module))

	assigned := make([]bool, len(questions))
	var clusters []model.TopicCluster

	for i := range questions {
		if assigned[i] {
			continue
		}

		members := []model.Question{questions[i]}
		assigned[i] = true

		for j := i + 1; j < len(questions); j++ {
			if assigned[j] {
				continue
			}
			if c.engine.Similar(questions[i], questions[j]) {
				members = append(members, questions[j])
				assigned[j] = true
			}
		}

		clusters = append(clusters, c.build(subject, module, members))
	}

	log.Info("cluster: module complete",
		zap.Int("questions", len(questions)),
		zap.Int("clusters", len(clusters)),
	)
	return clusters
}

// build assembles a TopicCluster from its members and computes statistics.
func (c *Clusterer) build(subject string, module int, members []model.Question) model.TopicCluster {
	representative := members[0]
	for _, q := range members[1:] {
		if len(q.Text) > len(representative.Text) {
			representative = q
		}
	}

	years := make(map[string]struct{})
	papers := make(map[string]struct{})
	memberIDs := make([]string, 0, len(members))
	totalMarks := 0
	markedCount := 0

	for _, q := range members {
		memberIDs = append(memberIDs, q.ID)
		if q.SourceYear != "" {
			years[q.SourceYear] = struct{}{}
		}
		if q.SourcePaperID != "" {
			papers[q.SourcePaperID] = struct{}{}
		}
		if q.Marks > 0 {
			totalMarks += q.Marks
			markedCount++
		}
	}

	// Repetition is measured in distinct exam sittings, not repeated
	// sub-parts within one paper.
	frequency := len(years)

	avgMarks := 0.0
	if markedCount > 0 {
		avgMarks = float64(totalMarks) / float64(markedCount)
	}

	cl := model.TopicCluster{
		ID:                 uuid.New().String(),
		Subject:            subject,
		Module:             module,
		TopicName:          NameTopic(representative.Text),
		NormalizedKey:      normalize.TopicKey(representative.Text),
		RepresentativeText: representative.Text,
		MemberQuestionIDs:  memberIDs,
		YearsAppeared:      sortedKeys(years),
		PaperIDsAppeared:   sortedKeys(papers),
		FrequencyCount:     frequency,
		TotalMarks:         totalMarks,
		AvgMarks:           avgMarks,
		PriorityTier:       Tier(frequency, c.thresholds),
	}

	if centroid := Centroid(members); centroid != nil {
		cl.EmbeddingCentroid = centroid
	}

	return cl
}

// Centroid computes the element-wise mean of member embeddings. Members
// without an embedding, or with a mismatched length, are skipped; nil is
// returned when no usable embedding exists.
func Centroid(members []model.Question) []float64 {
	var sum []float64
	count := 0

	for _, q := range members {
		if !q.HasEmbedding() {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(q.Embedding))
		}
		if len(q.Embedding) != len(sum) {
			continue
		}
		for i, v := range q.Embedding {
			sum[i] += v
		}
		count++
	}

	if count == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float64(count)
	}
	return sum
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
