package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipiq/feed/internal/feederrors"
	"github.com/clipiq/feed/internal/models"
)

// ErrVideoNotFound is returned when an operation targets a video that does
// not exist. Matches feederrors.ErrNotFound under errors.Is.
var ErrVideoNotFound = feederrors.NewNotFoundError("video", "video not found")

// VideosRepository reads video metadata and serves the fresh-candidate query.
type VideosRepository struct {
	db *pgxpool.Pool
}

// NewVideosRepository creates a new videos repository.
func NewVideosRepository(db *pgxpool.Pool) *VideosRepository {
	return &VideosRepository{db: db}
}

// FreshVideoIDs returns active videos uploaded within the last freshDays
// days, newest first, excluding the given seen IDs, up to limit.
func (r *VideosRepository) FreshVideoIDs(
	ctx context.Context, freshDays, limit int, excludeIDs []uuid.UUID,
) ([]uuid.UUID, error) {
	if excludeIDs == nil {
		excludeIDs = []uuid.UUID{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT id
		FROM videos
		WHERE status = $1
		  AND uploaded_at >= NOW() - make_interval(days => $2)
		  AND NOT (id = ANY($3))
		ORDER BY uploaded_at DESC
		LIMIT $4`,
		models.VideoStatusActive, freshDays, excludeIDs, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fresh video ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID

		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan fresh video id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fresh video ids: %w", err)
	}

	return ids, nil
}

// UploadersByVideoIDs resolves the uploader of each given video. Unknown IDs
// are absent from the result.
func (r *VideosRepository) UploadersByVideoIDs(
	ctx context.Context, videoIDs []uuid.UUID,
) (map[uuid.UUID]uuid.UUID, error) {
	if len(videoIDs) == 0 {
		return map[uuid.UUID]uuid.UUID{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, uploader_id FROM videos WHERE id = ANY($1)`,
		videoIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("uploaders by video ids: %w", err)
	}
	defer rows.Close()

	uploaders := make(map[uuid.UUID]uuid.UUID, len(videoIDs))

	for rows.Next() {
		var videoID, uploaderID uuid.UUID

		if err := rows.Scan(&videoID, &uploaderID); err != nil {
			return nil, fmt.Errorf("scan uploader mapping: %w", err)
		}

		uploaders[videoID] = uploaderID
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating uploader mappings: %w", err)
	}

	return uploaders, nil
}

// GetByIDs hydrates full video metadata for the given IDs, joined with the
// uploader's display name and engagement counts. Result order is undefined;
// callers reorder by their own ranking.
func (r *VideosRepository) GetByIDs(ctx context.Context, videoIDs []uuid.UUID) (map[uuid.UUID]models.Video, error) {
	if len(videoIDs) == 0 {
		return map[uuid.UUID]models.Video{}, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT v.id, v.title, v.description, v.uploader_id, u.display_name,
		       v.thumbnail_url, v.video_url, v.duration_seconds, v.views,
		       (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id) AS likes_count,
		       (SELECT COUNT(*) FROM comments c WHERE c.video_id = v.id) AS comments_count,
		       v.uploaded_at
		FROM videos v
		INNER JOIN users u ON u.id = v.uploader_id
		WHERE v.id = ANY($1)`,
		videoIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("get videos by ids: %w", err)
	}
	defer rows.Close()

	videos := make(map[uuid.UUID]models.Video, len(videoIDs))

	for rows.Next() {
		var v models.Video

		if err := rows.Scan(
			&v.ID, &v.Title, &v.Description, &v.UploaderID, &v.UploaderName,
			&v.ThumbnailURL, &v.VideoURL, &v.DurationSeconds, &v.Views,
			&v.LikesCount, &v.CommentsCount, &v.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}

		videos[v.ID] = v
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating videos: %w", err)
	}

	return videos, nil
}

// IncrementViews bumps the denormalized view counter by one.
func (r *VideosRepository) IncrementViews(ctx context.Context, videoID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE videos SET views = views + 1 WHERE id = $1`,
		videoID,
	)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("increment views for %s: %w", videoID, ErrVideoNotFound)
	}

	return nil
}
