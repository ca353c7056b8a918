package tests

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipiq/feed/internal/models"
	"github.com/clipiq/feed/internal/repository"
)

func TestImpressionsRepository_BatchInsert(t *testing.T) {
	db := testPool(t)
	repo := repository.NewImpressionsRepository(db)
	ctx := context.Background()

	t.Run("writes one row per item with a shared shown_at", func(t *testing.T) {
		userID := createTestUser(t, db)
		videoA := createTestVideo(t, db, userID)
		videoB := createTestVideo(t, db, userID)
		videoC := createTestVideo(t, db, userID)
		sessionID := newTestSession(t, db)

		items := []models.ImpressionItem{
			{VideoID: videoA, Position: 0, Source: models.SourcePersonal},
			{VideoID: videoB, Position: 1, Source: models.SourceTrending},
			{VideoID: videoC, Position: 2, Source: models.SourceFresh},
		}

		impressions, err := repo.BatchInsert(ctx, userID, sessionID, items, models.ModelVersionPersonal)
		require.NoError(t, err)
		require.Len(t, impressions, 3)

		ids := make(map[uuid.UUID]bool)
		for i, imp := range impressions {
			assert.NotEqual(t, uuid.Nil, imp.ID)
			assert.False(t, ids[imp.ID], "duplicate impression ID")
			ids[imp.ID] = true
			assert.Equal(t, i, imp.Position)
			assert.Equal(t, impressions[0].ShownAt, imp.ShownAt)
			assert.Equal(t, models.ModelVersionPersonal, imp.ModelVersion)
		}

		seen, err := repo.SessionSeenVideoIDs(ctx, sessionID)
		require.NoError(t, err)
		assert.Len(t, seen, 3)
	})

	t.Run("a failing item writes nothing", func(t *testing.T) {
		userID := createTestUser(t, db)
		videoA := createTestVideo(t, db, userID)
		sessionID := newTestSession(t, db)

		// The second item references a video that does not exist, so the
		// foreign key rejects the statement. The valid first item must not
		// survive on its own.
		items := []models.ImpressionItem{
			{VideoID: videoA, Position: 0, Source: models.SourceTrending},
			{VideoID: uuid.Must(uuid.NewV7()), Position: 1, Source: models.SourceTrending},
		}

		_, err := repo.BatchInsert(ctx, userID, sessionID, items, models.ModelVersionTrending)
		require.Error(t, err)

		seen, err := repo.SessionSeenVideoIDs(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, seen)
	})
}

func TestImpressionsRepository_SeenVideoIDs(t *testing.T) {
	db := testPool(t)
	repo := repository.NewImpressionsRepository(db)
	ctx := context.Background()

	userID := createTestUser(t, db)
	recentOwn := createTestVideo(t, db, userID)
	recentOther := createTestVideo(t, db, userID)
	oldOther := createTestVideo(t, db, userID)
	oldOwn := createTestVideo(t, db, userID)
	ownSession := newTestSession(t, db)
	otherSession := newTestSession(t, db)

	now := time.Now()
	stale := now.Add(-48 * time.Hour)

	insertImpression(t, db, userID, ownSession, recentOwn, now)
	insertImpression(t, db, userID, otherSession, recentOther, now)
	insertImpression(t, db, userID, otherSession, oldOther, stale)
	insertImpression(t, db, userID, ownSession, oldOwn, stale)

	t.Run("unions the whole session with the recent window", func(t *testing.T) {
		seen, err := repo.SeenVideoIDs(ctx, userID, &ownSession, 6)
		require.NoError(t, err)

		assert.Contains(t, seen, recentOwn)
		assert.Contains(t, seen, recentOther)
		assert.Contains(t, seen, oldOwn, "session history has no time bound")
		assert.NotContains(t, seen, oldOther, "stale impressions outside the session age out")
	})

	t.Run("without a session only the time window applies", func(t *testing.T) {
		seen, err := repo.SeenVideoIDs(ctx, userID, nil, 6)
		require.NoError(t, err)

		assert.Contains(t, seen, recentOwn)
		assert.Contains(t, seen, recentOther)
		assert.NotContains(t, seen, oldOwn)
		assert.NotContains(t, seen, oldOther)
	})
}

func TestImpressionsRepository_SessionSeenVideoIDs(t *testing.T) {
	db := testPool(t)
	repo := repository.NewImpressionsRepository(db)
	ctx := context.Background()

	userID := createTestUser(t, db)
	oldInSession := createTestVideo(t, db, userID)
	newInSession := createTestVideo(t, db, userID)
	elsewhere := createTestVideo(t, db, userID)
	session := newTestSession(t, db)
	otherSession := newTestSession(t, db)

	insertImpression(t, db, userID, session, oldInSession, time.Now().Add(-72*time.Hour))
	insertImpression(t, db, userID, session, newInSession, time.Now())
	insertImpression(t, db, userID, otherSession, elsewhere, time.Now())

	seen, err := repo.SessionSeenVideoIDs(ctx, session)
	require.NoError(t, err)

	assert.Len(t, seen, 2)
	assert.Contains(t, seen, oldInSession, "session reads are not time bounded")
	assert.Contains(t, seen, newInSession)
	assert.NotContains(t, seen, elsewhere)
}

func TestWatchHistoryRepository_RecentPositiveWatches(t *testing.T) {
	db := testPool(t)
	repo := repository.NewWatchHistoryRepository(db)
	ctx := context.Background()

	userID := createTestUser(t, db)
	rewatched := createTestVideo(t, db, userID)
	skimmed := createTestVideo(t, db, userID)
	latest := createTestVideo(t, db, userID)

	base := time.Now().Add(-time.Hour)
	insertWatchEvent(t, db, userID, rewatched, 15, nil, base)
	insertWatchEvent(t, db, userID, rewatched, 40, nil, base.Add(10*time.Minute))
	insertWatchEvent(t, db, userID, skimmed, 5, nil, base.Add(20*time.Minute))
	insertWatchEvent(t, db, userID, latest, 12, nil, base.Add(30*time.Minute))

	watches, err := repo.RecentPositiveWatches(ctx, userID, 10, 20)
	require.NoError(t, err)
	require.Len(t, watches, 2, "sub-threshold watches are excluded")

	assert.Equal(t, latest, watches[0].VideoID, "most recent watch first")
	assert.Equal(t, rewatched, watches[1].VideoID)
	assert.Equal(t, 40, watches[1].WatchDurationSeconds, "latest watch per video wins")
}

func TestTrendingRepository_TrendingVideos(t *testing.T) {
	db := testPool(t)
	repo := repository.NewTrendingRepository(db)
	ctx := context.Background()

	uploaderID := createTestUser(t, db)
	viewerID := createTestUser(t, db)
	popular := createTestVideo(t, db, uploaderID)
	thin := createTestVideo(t, db, uploaderID)
	session := newTestSession(t, db)

	shownAt := time.Now().Add(-time.Hour)

	// 10 impressions, 4 of which were held past 10 seconds:
	// watch10sRate 0.4, popularity 0.4 * ln(5).
	for i := 0; i < 10; i++ {
		impID := insertImpression(t, db, viewerID, session, popular, shownAt)
		if i < 4 {
			insertWatchEvent(t, db, viewerID, popular, 20, &impID, shownAt.Add(time.Minute))
		}
	}

	// 3 impressions, all held: perfect rate but below the impression floor.
	for i := 0; i < 3; i++ {
		impID := insertImpression(t, db, viewerID, session, thin, shownAt)
		insertWatchEvent(t, db, viewerID, thin, 20, &impID, shownAt.Add(time.Minute))
	}

	trending, err := repo.TrendingVideos(ctx, 7, 5, 100, nil)
	require.NoError(t, err)

	var got *models.TrendingVideo
	for i := range trending {
		if trending[i].VideoID == popular {
			got = &trending[i]
		}

		assert.NotEqual(t, thin, trending[i].VideoID, "thin-data videos must not rank")
	}

	require.NotNil(t, got, "seeded video missing from the trending window")
	assert.Equal(t, int64(4), got.WatchCount)
	assert.InDelta(t, 0.4, got.Watch10sRate, 1e-9)
	assert.InDelta(t, 0.4*math.Log(5), got.PopularityScore, 1e-9)
}
