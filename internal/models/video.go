package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoStatusActive marks videos eligible for feed candidacy.
const VideoStatusActive = "active"

// Video is the hydrated metadata for one feed item, joined with uploader
// info and engagement counts.
type Video struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	UploaderID      uuid.UUID `json:"uploader_id"`
	UploaderName    string    `json:"uploader_name"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	VideoURL        string    `json:"video_url"`
	DurationSeconds int       `json:"duration_seconds"`
	Views           int64     `json:"views"`
	LikesCount      int64     `json:"likes_count"`
	CommentsCount   int64     `json:"comments_count"`
	UploadedAt      time.Time `json:"uploaded_at"`
}
