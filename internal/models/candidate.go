package models

import "github.com/google/uuid"

// Candidate source names, also stored on impressions.
const (
	SourcePersonal = "personal"
	SourceTrending = "trending"
	SourceFresh    = "fresh"
)

// Source priorities used during fusion and as the ranking tie-break term.
// Personal beats trending beats fresh when scores are close.
const (
	PriorityPersonal = 3
	PriorityTrending = 2
	PriorityFresh    = 1
)

// Candidate is a video under consideration for one feed page. It exists only
// for the duration of one generation cycle and is never persisted.
type Candidate struct {
	VideoID         uuid.UUID
	SimilarityScore float64
	PopularityScore float64
	Source          string
	Priority        int
	UploaderID      uuid.UUID // resolved by the diversity cap
	CombinedScore   float64
}

// NearestNeighbor is one vector-search result from the embedding store.
type NearestNeighbor struct {
	VideoID uuid.UUID
	Score   float64
}

// TrendingVideo is one row of the trending aggregation: engagement-derived
// scores over a trailing window.
type TrendingVideo struct {
	VideoID         uuid.UUID
	PopularityScore float64
	Watch10sRate    float64
	WatchCount      int64
}
