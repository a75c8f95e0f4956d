package search

import "time"

// Popularity holds the raw engagement counters for a candidate.
// Counts are non-negative; zero means unknown.
type Popularity struct {
	Views     int64 `json:"views"`
	Uses      int64 `json:"uses"`
	Favorites int64 `json:"favorites"`
}

// Quality holds the moderation and reputation flags for a candidate.
type Quality struct {
	Verified bool `json:"verified"`
	Active   bool `json:"active"`
	Approved bool `json:"approved"`
}

// Candidate is the entity-agnostic projection an adapter produces for
// scoring. Adapters apply visibility rules before a record ever becomes
// a Candidate; the core never re-derives permissions.
type Candidate struct {
	Kind        EntityKind `json:"kind"`
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`

	// CreatedAt is the record's creation timestamp. A zero value means
	// the timestamp is unknown and the candidate scores 0 on recency.
	CreatedAt time.Time `json:"created_at"`

	Popularity Popularity `json:"popularity"`
	Quality    Quality    `json:"quality"`
}

// ScoredResult is a Candidate plus its four sub-scores and the weighted
// composite. Every score is in [0, 1].
type ScoredResult struct {
	Candidate

	TextScore       float64 `json:"text_score"`
	RecencyScore    float64 `json:"recency_score"`
	PopularityScore float64 `json:"popularity_score"`
	QualityScore    float64 `json:"quality_score"`

	// Score is the weighted composite used for relevance ordering.
	Score float64 `json:"score"`
}
