package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipiq/feed/internal/models"
)

// TrendingRepository computes engagement-weighted popularity over a trailing
// window. Popularity rewards hold rate scaled by log volume, so a video with
// a few devoted viewers does not outrank one holding a large audience.
type TrendingRepository struct {
	db *pgxpool.Pool
}

// NewTrendingRepository creates a new trending repository.
func NewTrendingRepository(db *pgxpool.Pool) *TrendingRepository {
	return &TrendingRepository{db: db}
}

// TrendingVideos returns active videos ranked by watch10sRate * ln(1+watchCount)
// over the trailing windowDays. Videos with fewer than minImpressions
// impressions in the window are excluded so thin data cannot dominate.
// Ties on score break toward the higher hold rate.
func (r *TrendingRepository) TrendingVideos(
	ctx context.Context, windowDays, minImpressions, limit int, excludeIDs []uuid.UUID,
) ([]models.TrendingVideo, error) {
	if excludeIDs == nil {
		excludeIDs = []uuid.UUID{}
	}

	rows, err := r.db.Query(ctx, `
		WITH window_stats AS (
			SELECT i.video_id,
			       COUNT(*) AS impression_count,
			       COUNT(w.id) FILTER (WHERE w.watch_duration_seconds >= 10) AS watch_count
			FROM impressions i
			LEFT JOIN watch_events w ON w.impression_id = i.id
			WHERE i.shown_at >= NOW() - make_interval(days => $1)
			GROUP BY i.video_id
		)
		SELECT s.video_id,
		       (s.watch_count::float8 / s.impression_count) * ln(1 + s.watch_count) AS popularity_score,
		       s.watch_count::float8 / s.impression_count AS watch10s_rate,
		       s.watch_count
		FROM window_stats s
		INNER JOIN videos v ON v.id = s.video_id
		WHERE v.status = $2
		  AND s.impression_count >= $3
		  AND NOT (s.video_id = ANY($4))
		ORDER BY popularity_score DESC, watch10s_rate DESC
		LIMIT $5`,
		windowDays, models.VideoStatusActive, minImpressions, excludeIDs, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("trending videos: %w", err)
	}
	defer rows.Close()

	var trending []models.TrendingVideo

	for rows.Next() {
		var t models.TrendingVideo

		if err := rows.Scan(&t.VideoID, &t.PopularityScore, &t.Watch10sRate, &t.WatchCount); err != nil {
			return nil, fmt.Errorf("scan trending video: %w", err)
		}

		trending = append(trending, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trending videos: %w", err)
	}

	return trending, nil
}
