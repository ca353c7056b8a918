package service

import (
	"github.com/google/uuid"

	"github.com/clipiq/feed/internal/models"
)

// MergeCandidates fuses the three source lists into one deduplicated set.
// A video keeps the highest priority of the sources it appeared in, and
// merges scores across sources: a video in both personal and trending ends
// up with priority 3, its similarity score, and its popularity score.
//
// Output order is personal first, then trending, then fresh, preserving each
// source's internal order. The diversity cap depends on this ordering.
func MergeCandidates(personal, trending, fresh []models.Candidate) []models.Candidate {
	merged := make([]models.Candidate, 0, len(personal)+len(trending)+len(fresh))
	index := make(map[uuid.UUID]int, len(personal)+len(trending)+len(fresh))

	for _, c := range personal {
		if _, ok := index[c.VideoID]; ok {
			continue
		}

		index[c.VideoID] = len(merged)
		merged = append(merged, c)
	}

	for _, c := range trending {
		if i, ok := index[c.VideoID]; ok {
			merged[i].PopularityScore = c.PopularityScore

			continue
		}

		index[c.VideoID] = len(merged)
		merged = append(merged, c)
	}

	for _, c := range fresh {
		if _, ok := index[c.VideoID]; ok {
			continue
		}

		index[c.VideoID] = len(merged)
		merged = append(merged, c)
	}

	return merged
}
