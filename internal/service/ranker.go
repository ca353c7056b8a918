package service

import (
	"sort"

	"github.com/clipiq/feed/internal/models"
)

// Combined-score weights. Similarity dominates, popularity is the secondary
// signal, and source priority keeps personal items from being starved when
// scores are close.
const (
	similarityWeight = 0.6
	popularityWeight = 0.3
	priorityWeight   = 0.1
)

// ScoreAndRank computes each candidate's combined score, sorts descending by
// it, then applies a session-seeded shuffle. The shuffle is deterministic per
// session, so repeated requests within one session see bounded variety
// without persisted randomness state, while different sessions see different
// orderings.
func ScoreAndRank(candidates []models.Candidate, sessionID string) []models.Candidate {
	ranked := make([]models.Candidate, len(candidates))
	copy(ranked, candidates)

	for i := range ranked {
		ranked[i].CombinedScore = ranked[i].SimilarityScore*similarityWeight +
			ranked[i].PopularityScore*popularityWeight +
			float64(ranked[i].Priority)*priorityWeight
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CombinedScore > ranked[j].CombinedScore
	})

	seededShuffle(ranked, hashString(sessionID))

	return ranked
}

// hashString folds a string into a 32-bit seed (djb2-style shift-add hash).
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = (h << 5) - h + uint32(s[i])
	}

	return h
}

// lcg is a small linear congruential generator emitting floats in [0, 1).
// Tiny period, but the shuffle only needs cheap reproducible variety, not
// statistical quality.
type lcg struct {
	state uint32
}

func (r *lcg) next() float64 {
	r.state = (r.state*9301 + 49297) % 233280

	return float64(r.state) / 233280
}

// seededShuffle is a Fisher-Yates shuffle driven by the seeded generator.
func seededShuffle(candidates []models.Candidate, seed uint32) {
	rng := lcg{state: seed % 233280}

	for i := len(candidates) - 1; i > 0; i-- {
		j := int(rng.next() * float64(i+1))
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
}
