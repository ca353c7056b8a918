package models

import "github.com/google/uuid"

// FeedItem is one entry of a served feed page: hydrated video metadata plus
// the impression that records it was shown.
type FeedItem struct {
	Video
	ImpressionID uuid.UUID `json:"impression_id"`
	Position     int       `json:"position"`
	Source       string    `json:"source"`
}

// Feed is one served feed page.
type Feed struct {
	Items      []FeedItem `json:"items"`
	Total      int        `json:"total"`
	HasProfile bool       `json:"has_profile"`
	SessionID  uuid.UUID  `json:"session_id"`
}
