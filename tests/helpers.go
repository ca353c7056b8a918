// Package tests holds integration tests that exercise the repository layer
// against a real PostgreSQL database. The suite is skipped unless
// DATABASE_URL points at a migrated database.
package tests

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/clipiq/feed/pkg/database"
)

// testPool connects to the database named by DATABASE_URL. Everything a test
// seeds through the helpers below is removed again via t.Cleanup, in reverse
// insertion order so foreign keys stay satisfied.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration tests")
	}

	db, err := database.NewPostgresPool(context.Background(), databaseURL)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

// createTestUser inserts a user row and schedules its removal.
func createTestUser(t *testing.T, db *pgxpool.Pool) uuid.UUID {
	t.Helper()

	id := uuid.Must(uuid.NewV7())
	_, err := db.Exec(context.Background(),
		`INSERT INTO users (id, display_name) VALUES ($1, $2)`,
		id, "integration user",
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})

	return id
}

// createTestVideo inserts an active video for the given uploader.
func createTestVideo(t *testing.T, db *pgxpool.Pool, uploaderID uuid.UUID) uuid.UUID {
	t.Helper()

	id := uuid.Must(uuid.NewV7())
	_, err := db.Exec(context.Background(), `
		INSERT INTO videos (id, title, description, uploader_id, thumbnail_url, video_url, duration_seconds, views, status, uploaded_at)
		VALUES ($1, $2, '', $3, '', '', 30, 0, 'active', NOW())`,
		id, "integration video "+id.String()[:8], uploaderID,
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM videos WHERE id = $1`, id)
	})

	return id
}

// newTestSession returns a fresh session ID and schedules removal of any
// impressions written under it, covering rows the repository inserts itself.
func newTestSession(t *testing.T, db *pgxpool.Pool) uuid.UUID {
	t.Helper()

	id := uuid.Must(uuid.NewV7())
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM impressions WHERE session_id = $1`, id)
	})

	return id
}

// insertImpression writes one impression row directly, bypassing the
// repository, so tests can control shown_at.
func insertImpression(
	t *testing.T, db *pgxpool.Pool, userID, sessionID, videoID uuid.UUID, shownAt time.Time,
) uuid.UUID {
	t.Helper()

	id := uuid.Must(uuid.NewV7())
	_, err := db.Exec(context.Background(), `
		INSERT INTO impressions (id, user_id, video_id, session_id, position, source, model_version, shown_at)
		VALUES ($1, $2, $3, $4, 0, 'trending', 'v1_trending', $5)`,
		id, userID, videoID, sessionID, shownAt,
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM impressions WHERE id = $1`, id)
	})

	return id
}

// insertWatchEvent writes one watch event row directly with a fixed created_at.
func insertWatchEvent(
	t *testing.T, db *pgxpool.Pool, userID, videoID uuid.UUID, seconds int, impressionID *uuid.UUID, createdAt time.Time,
) {
	t.Helper()

	id := uuid.Must(uuid.NewV7())
	_, err := db.Exec(context.Background(), `
		INSERT INTO watch_events (id, user_id, video_id, watch_duration_seconds, completed, impression_id, created_at)
		VALUES ($1, $2, $3, $4, false, $5, $6)`,
		id, userID, videoID, seconds, impressionID, createdAt,
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM watch_events WHERE id = $1`, id)
	})
}
