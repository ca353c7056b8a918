package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipiq/feed/internal/models"
)

// ImpressionsRepository is the write-only append path and exclusion-query
// read path for the impressions table. Impressions are never updated or
// deleted here; "recent" windows are time filters, not deletions.
type ImpressionsRepository struct {
	db *pgxpool.Pool
}

// NewImpressionsRepository creates a new impressions repository.
func NewImpressionsRepository(db *pgxpool.Pool) *ImpressionsRepository {
	return &ImpressionsRepository{db: db}
}

// BatchInsert creates one impression per item in a single statement, so the
// batch is atomic: either every shown item is recorded or none are. IDs are
// generated here (UUIDv7, so they sort by creation time) and shown_at is one
// timestamp for the whole page.
func (r *ImpressionsRepository) BatchInsert(
	ctx context.Context, userID, sessionID uuid.UUID, items []models.ImpressionItem, modelVersion string,
) ([]models.Impression, error) {
	if len(items) == 0 {
		return nil, nil
	}

	var (
		ids       = make([]uuid.UUID, len(items))
		videoIDs  = make([]uuid.UUID, len(items))
		positions = make([]int32, len(items))
		sources   = make([]string, len(items))
	)

	for i, item := range items {
		ids[i] = uuid.Must(uuid.NewV7())
		videoIDs[i] = item.VideoID
		positions[i] = int32(item.Position)
		sources[i] = item.Source
	}

	shownAt := time.Now()

	tag, err := r.db.Exec(ctx, `
		INSERT INTO impressions (id, user_id, video_id, session_id, position, source, model_version, shown_at)
		SELECT t.id, $2, t.video_id, $3, t.position, t.source, $4, $5
		FROM unnest($1::uuid[], $6::uuid[], $7::int[], $8::text[]) AS t(id, video_id, position, source)`,
		ids, userID, sessionID, modelVersion, shownAt, videoIDs, positions, sources,
	)
	if err != nil {
		return nil, fmt.Errorf("batch insert impressions: %w", err)
	}

	if tag.RowsAffected() != int64(len(items)) {
		return nil, fmt.Errorf("batch insert impressions: inserted %d of %d rows", tag.RowsAffected(), len(items))
	}

	impressions := make([]models.Impression, len(items))
	for i, item := range items {
		impressions[i] = models.Impression{
			ID:           ids[i],
			UserID:       userID,
			VideoID:      item.VideoID,
			SessionID:    sessionID,
			Position:     item.Position,
			Source:       item.Source,
			ModelVersion: modelVersion,
			ShownAt:      shownAt,
		}
	}

	return impressions, nil
}

// SeenVideoIDs returns the union of videos shown to this session ever and
// videos shown to this user within the trailing windowHours. When sessionID
// is nil only the time window applies.
func (r *ImpressionsRepository) SeenVideoIDs(
	ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID, windowHours int,
) (map[uuid.UUID]struct{}, error) {
	var (
		query string
		args  []any
	)

	if sessionID != nil {
		query = `
			SELECT DISTINCT video_id
			FROM impressions
			WHERE (user_id = $1 AND shown_at >= NOW() - make_interval(hours => $2))
			   OR session_id = $3`
		args = []any{userID, windowHours, *sessionID}
	} else {
		query = `
			SELECT DISTINCT video_id
			FROM impressions
			WHERE user_id = $1 AND shown_at >= NOW() - make_interval(hours => $2)`
		args = []any{userID, windowHours}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("seen video ids: %w", err)
	}
	defer rows.Close()

	seen := make(map[uuid.UUID]struct{})

	for rows.Next() {
		var id uuid.UUID

		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen video id: %w", err)
		}

		seen[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating seen video ids: %w", err)
	}

	return seen, nil
}

// SessionSeenVideoIDs returns every video ever shown in the given session,
// with no time bound. SeenVideoIDs folds this into its union for the feed
// path; this standalone form serves callers that only care about one session.
func (r *ImpressionsRepository) SessionSeenVideoIDs(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT video_id FROM impressions WHERE session_id = $1`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("session seen video ids: %w", err)
	}
	defer rows.Close()

	seen := make(map[uuid.UUID]struct{})

	for rows.Next() {
		var id uuid.UUID

		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session seen video id: %w", err)
		}

		seen[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session seen video ids: %w", err)
	}

	return seen, nil
}

// ListByUser returns the user's impression log, most recent first, joined
// with video titles and watch outcomes where a watch event referenced the
// impression.
func (r *ImpressionsRepository) ListByUser(
	ctx context.Context, userID uuid.UUID, limit, offset int,
) ([]models.ImpressionHistoryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.video_id, i.session_id, i.position, i.source, i.model_version, i.shown_at,
		       v.title, w.watch_duration_seconds, w.completed
		FROM impressions i
		INNER JOIN videos v ON v.id = i.video_id
		LEFT JOIN watch_events w ON w.impression_id = i.id
		WHERE i.user_id = $1
		ORDER BY i.shown_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list impressions by user: %w", err)
	}
	defer rows.Close()

	var entries []models.ImpressionHistoryEntry

	for rows.Next() {
		var e models.ImpressionHistoryEntry

		if err := rows.Scan(
			&e.ID, &e.VideoID, &e.SessionID, &e.Position, &e.Source, &e.ModelVersion, &e.ShownAt,
			&e.Title, &e.WatchDurationSeconds, &e.Completed,
		); err != nil {
			return nil, fmt.Errorf("scan impression history entry: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating impression history: %w", err)
	}

	return entries, nil
}
