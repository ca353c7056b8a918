package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipiq/feed/internal/models"
)

// WatchHistoryRepository persists watch events and serves the positive-watch
// query that drives profile building.
type WatchHistoryRepository struct {
	db *pgxpool.Pool
}

// NewWatchHistoryRepository creates a new watch history repository.
func NewWatchHistoryRepository(db *pgxpool.Pool) *WatchHistoryRepository {
	return &WatchHistoryRepository{db: db}
}

// RecentPositiveWatches returns the user's most recent distinct videos
// watched for at least minSeconds, one row per video with the most recent
// watch winning, up to limit rows. Ordered most-recent-first.
func (r *WatchHistoryRepository) RecentPositiveWatches(
	ctx context.Context, userID uuid.UUID, minSeconds, limit int,
) ([]models.PositiveWatch, error) {
	// DISTINCT ON picks the latest watch per video; the outer sort orders
	// the deduplicated rows by recency.
	rows, err := r.db.Query(ctx, `
		SELECT video_id, watch_duration_seconds FROM (
			SELECT DISTINCT ON (video_id) video_id, watch_duration_seconds, created_at
			FROM watch_events
			WHERE user_id = $1 AND watch_duration_seconds >= $2
			ORDER BY video_id, created_at DESC
		) latest
		ORDER BY created_at DESC
		LIMIT $3`,
		userID, minSeconds, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent positive watches: %w", err)
	}
	defer rows.Close()

	var watches []models.PositiveWatch

	for rows.Next() {
		var w models.PositiveWatch

		if err := rows.Scan(&w.VideoID, &w.WatchDurationSeconds); err != nil {
			return nil, fmt.Errorf("scan positive watch: %w", err)
		}

		watches = append(watches, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating positive watches: %w", err)
	}

	return watches, nil
}

// Insert creates one watch event row and returns it with the generated ID
// and timestamp.
func (r *WatchHistoryRepository) Insert(
	ctx context.Context, userID, videoID uuid.UUID, watchDurationSeconds int, completed bool, impressionID *uuid.UUID,
) (*models.WatchEvent, error) {
	event := &models.WatchEvent{
		ID:                   uuid.Must(uuid.NewV7()),
		UserID:               userID,
		VideoID:              videoID,
		WatchDurationSeconds: watchDurationSeconds,
		Completed:            completed,
		ImpressionID:         impressionID,
		CreatedAt:            time.Now(),
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO watch_events (id, user_id, video_id, watch_duration_seconds, completed, impression_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.UserID, event.VideoID, event.WatchDurationSeconds, event.Completed, event.ImpressionID, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert watch event: %w", err)
	}

	return event, nil
}
