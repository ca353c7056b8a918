package models

import (
	"time"

	"github.com/google/uuid"
)

// Model versions recorded on impressions. Personal is tagged when a profile
// vector existed for the request; trending when the user was cold.
const (
	ModelVersionPersonal = "v1_personal"
	ModelVersionTrending = "v1_trending"
)

// Impression records that a video was shown to a user/session at a feed
// position. Created exactly once per shown item; immutable after creation.
type Impression struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	VideoID      uuid.UUID `json:"video_id"`
	SessionID    uuid.UUID `json:"session_id"`
	Position     int       `json:"position"`
	Source       string    `json:"source"`
	ModelVersion string    `json:"model_version"`
	ShownAt      time.Time `json:"shown_at"`
}

// ImpressionItem is one entry of a batch impression write: the video shown,
// its final page position, and which candidate source produced it.
type ImpressionItem struct {
	VideoID  uuid.UUID
	Position int
	Source   string
}

// WatchEvent records that a user disengaged from a video after watching it
// for some duration. Watches of at least 10 seconds are the positive signal
// that feeds profile building.
type WatchEvent struct {
	ID                   uuid.UUID  `json:"id"`
	UserID               uuid.UUID  `json:"user_id"`
	VideoID              uuid.UUID  `json:"video_id"`
	WatchDurationSeconds int        `json:"watch_duration_seconds"`
	Completed            bool       `json:"completed"`
	ImpressionID         *uuid.UUID `json:"impression_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// PositiveWatch is one row of a user's recent positive watch history:
// the most recent qualifying watch per distinct video.
type PositiveWatch struct {
	VideoID              uuid.UUID
	WatchDurationSeconds int
}

// ImpressionHistoryEntry is one row of a user's impression log, joined with
// the watch outcome when one was recorded against the impression.
type ImpressionHistoryEntry struct {
	ID                   uuid.UUID `json:"id"`
	VideoID              uuid.UUID `json:"video_id"`
	SessionID            uuid.UUID `json:"session_id"`
	Position             int       `json:"position"`
	Source               string    `json:"source"`
	ModelVersion         string    `json:"model_version"`
	ShownAt              time.Time `json:"shown_at"`
	Title                string    `json:"title"`
	WatchDurationSeconds *int      `json:"watch_duration_seconds,omitempty"`
	Completed            *bool     `json:"completed,omitempty"`
}
