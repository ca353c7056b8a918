package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipiq/feed/internal/models"
)

type mockWatchHistory struct {
	recentFunc func(ctx context.Context, userID uuid.UUID, minSeconds, limit int) ([]models.PositiveWatch, error)
}

func (m *mockWatchHistory) RecentPositiveWatches(
	ctx context.Context, userID uuid.UUID, minSeconds, limit int,
) ([]models.PositiveWatch, error) {
	if m.recentFunc != nil {
		return m.recentFunc(ctx, userID, minSeconds, limit)
	}

	return nil, nil
}

type mockEmbeddings struct {
	getFunc func(ctx context.Context, videoIDs []uuid.UUID) (map[uuid.UUID][]float32, error)
}

func (m *mockEmbeddings) GetEmbeddings(ctx context.Context, videoIDs []uuid.UUID) (map[uuid.UUID][]float32, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, videoIDs)
	}

	return map[uuid.UUID][]float32{}, nil
}

func TestProfileService_BuildProfile(t *testing.T) {
	userID := uuid.MustParse("018e1234-5678-9abc-def0-000000000001")
	videoA := uuid.MustParse("018e1234-5678-9abc-def0-0000000000aa")
	videoB := uuid.MustParse("018e1234-5678-9abc-def0-0000000000bb")

	t.Run("cold user returns nil profile without error", func(t *testing.T) {
		svc := NewProfileService(ProfileServiceParams{
			WatchHistory: &mockWatchHistory{},
			Embeddings:   &mockEmbeddings{},
		})

		profile, err := svc.BuildProfile(context.Background(), userID)
		require.NoError(t, err)
		assert.Nil(t, profile)
	})

	t.Run("passes threshold and limit to watch history query", func(t *testing.T) {
		var gotMinSeconds, gotLimit int

		svc := NewProfileService(ProfileServiceParams{
			WatchHistory: &mockWatchHistory{
				recentFunc: func(_ context.Context, _ uuid.UUID, minSeconds, limit int) ([]models.PositiveWatch, error) {
					gotMinSeconds = minSeconds
					gotLimit = limit

					return nil, nil
				},
			},
			Embeddings: &mockEmbeddings{},
		})

		_, err := svc.BuildProfile(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, MinPositiveWatchSeconds, gotMinSeconds)
		assert.Equal(t, DefaultHistoryLimit, gotLimit)
	})

	t.Run("no resolved embeddings returns nil profile", func(t *testing.T) {
		svc := NewProfileService(ProfileServiceParams{
			WatchHistory: &mockWatchHistory{
				recentFunc: func(context.Context, uuid.UUID, int, int) ([]models.PositiveWatch, error) {
					return []models.PositiveWatch{{VideoID: videoA, WatchDurationSeconds: 15}}, nil
				},
			},
			Embeddings: &mockEmbeddings{},
		})

		profile, err := svc.BuildProfile(context.Background(), userID)
		require.NoError(t, err)
		assert.Nil(t, profile)
	})

	t.Run("weights pooling by watch duration and normalizes", func(t *testing.T) {
		svc := NewProfileService(ProfileServiceParams{
			WatchHistory: &mockWatchHistory{
				recentFunc: func(context.Context, uuid.UUID, int, int) ([]models.PositiveWatch, error) {
					return []models.PositiveWatch{
						{VideoID: videoA, WatchDurationSeconds: 30},
						{VideoID: videoB, WatchDurationSeconds: 10},
					}, nil
				},
			},
			Embeddings: &mockEmbeddings{
				getFunc: func(context.Context, []uuid.UUID) (map[uuid.UUID][]float32, error) {
					return map[uuid.UUID][]float32{
						videoA: {1, 0},
						videoB: {0, 1},
					}, nil
				},
			},
		})

		profile, err := svc.BuildProfile(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, profile, 2)

		// Weights 0.75/0.25 pool to (0.75, 0.25); normalized.
		norm := math.Sqrt(0.75*0.75 + 0.25*0.25)
		assert.InDelta(t, 0.75/norm, float64(profile[0]), 1e-6)
		assert.InDelta(t, 0.25/norm, float64(profile[1]), 1e-6)

		var magnitude float64
		for _, v := range profile {
			magnitude += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(magnitude), 1e-6)
	})

	t.Run("skips videos with missing embeddings", func(t *testing.T) {
		svc := NewProfileService(ProfileServiceParams{
			WatchHistory: &mockWatchHistory{
				recentFunc: func(context.Context, uuid.UUID, int, int) ([]models.PositiveWatch, error) {
					return []models.PositiveWatch{
						{VideoID: videoA, WatchDurationSeconds: 20},
						{VideoID: videoB, WatchDurationSeconds: 40},
					}, nil
				},
			},
			Embeddings: &mockEmbeddings{
				getFunc: func(context.Context, []uuid.UUID) (map[uuid.UUID][]float32, error) {
					return map[uuid.UUID][]float32{videoB: {0.6, 0.8}}, nil
				},
			},
		})

		profile, err := svc.BuildProfile(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, profile, 2)
		assert.InDelta(t, 0.6, float64(profile[0]), 1e-6)
		assert.InDelta(t, 0.8, float64(profile[1]), 1e-6)
	})

	t.Run("watch history error propagates", func(t *testing.T) {
		svc := NewProfileService(ProfileServiceParams{
			WatchHistory: &mockWatchHistory{
				recentFunc: func(context.Context, uuid.UUID, int, int) ([]models.PositiveWatch, error) {
					return nil, errors.New("connection reset")
				},
			},
			Embeddings: &mockEmbeddings{},
		})

		_, err := svc.BuildProfile(context.Background(), userID)
		assert.ErrorContains(t, err, "fetch positive watches")
	})
}
