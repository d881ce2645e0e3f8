package model

// PriorityTier ranks a topic's study importance by cross-year repetition.
// Tier 1 is the highest priority.
type PriorityTier int

const (
	// Tier1 means the topic appeared in 4+ distinct exam years (default thresholds).
	Tier1 PriorityTier = 1
	// Tier2 means 3 distinct years.
	Tier2 PriorityTier = 2
	// Tier3 means 2 distinct years.
	Tier3 PriorityTier = 3
	// Tier4 means the topic appeared in a single year.
	Tier4 PriorityTier = 4
)

// Label returns a human-readable name for the tier.
func (t PriorityTier) Label() string {
	switch t {
	case Tier1:
		return "Top Priority"
	case Tier2:
		return "High Priority"
	case Tier3:
		return "Medium Priority"
	default:
		return "Low Priority"
	}
}

// TopicCluster groups semantically equivalent questions recurring across
// papers and years. A cluster is scoped to exactly one (subject, module)
// pair; the full cluster set for a subject is rebuilt from scratch on each
// clustering run.
type TopicCluster struct {
	ID                 string       `json:"id"`
	Subject            string       `json:"subject"`
	Module             int          `json:"module"` // 0 for unclassified questions
	TopicName          string       `json:"topic_name"`
	NormalizedKey      string       `json:"normalized_key"`
	RepresentativeText string       `json:"representative_text"`
	MemberQuestionIDs  []string     `json:"member_question_ids"`
	YearsAppeared      []string     `json:"years_appeared"`
	PaperIDsAppeared   []string     `json:"paper_ids_appeared"`
	FrequencyCount     int          `json:"frequency_count"` // distinct years, not raw members
	TotalMarks         int          `json:"total_marks"`
	AvgMarks           float64      `json:"avg_marks"`
	PriorityTier       PriorityTier `json:"priority_tier"`
	EmbeddingCentroid  []float64    `json:"embedding_centroid,omitempty"`
}

// Size returns the number of member questions.
func (c TopicCluster) Size() int {
	return len(c.MemberQuestionIDs)
}
