package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipiq/feed/internal/models"
)

type mockNeighborSearch struct {
	nearestFunc func(ctx context.Context, queryEmbedding []float32, k int, status string, excludeIDs []uuid.UUID) ([]models.NearestNeighbor, error)
}

func (m *mockNeighborSearch) NearestNeighbors(
	ctx context.Context, queryEmbedding []float32, k int, status string, excludeIDs []uuid.UUID,
) ([]models.NearestNeighbor, error) {
	if m.nearestFunc != nil {
		return m.nearestFunc(ctx, queryEmbedding, k, status, excludeIDs)
	}

	return nil, nil
}

type mockTrendingSource struct {
	trendingFunc func(ctx context.Context, windowDays, minImpressions, limit int, excludeIDs []uuid.UUID) ([]models.TrendingVideo, error)
}

func (m *mockTrendingSource) TrendingVideos(
	ctx context.Context, windowDays, minImpressions, limit int, excludeIDs []uuid.UUID,
) ([]models.TrendingVideo, error) {
	if m.trendingFunc != nil {
		return m.trendingFunc(ctx, windowDays, minImpressions, limit, excludeIDs)
	}

	return nil, nil
}

type mockFreshSource struct {
	freshFunc func(ctx context.Context, freshDays, limit int, excludeIDs []uuid.UUID) ([]uuid.UUID, error)
}

func (m *mockFreshSource) FreshVideoIDs(
	ctx context.Context, freshDays, limit int, excludeIDs []uuid.UUID,
) ([]uuid.UUID, error) {
	if m.freshFunc != nil {
		return m.freshFunc(ctx, freshDays, limit, excludeIDs)
	}

	return nil, nil
}

func newTestGenerators(
	embeddings EmbeddingsForPersonal, trending TrendingSource, fresh FreshSource,
) *CandidateGenerators {
	return NewCandidateGenerators(CandidateGeneratorsParams{
		Embeddings: embeddings,
		Trending:   trending,
		Fresh:      fresh,
		Timeout:    time.Second,
	})
}

func TestCandidateGenerators_Generate(t *testing.T) {
	profile := []float32{0.6, 0.8}

	t.Run("nil profile skips personal source", func(t *testing.T) {
		searchCalled := false
		gens := newTestGenerators(
			&mockNeighborSearch{
				nearestFunc: func(context.Context, []float32, int, string, []uuid.UUID) ([]models.NearestNeighbor, error) {
					searchCalled = true

					return nil, nil
				},
			},
			&mockTrendingSource{},
			&mockFreshSource{},
		)

		out := gens.Generate(context.Background(), nil, 20, nil)
		assert.Empty(t, out.Personal)
		assert.False(t, searchCalled)
	})

	t.Run("personal overfetches then trims to limit", func(t *testing.T) {
		var gotK int
		gens := newTestGenerators(
			&mockNeighborSearch{
				nearestFunc: func(_ context.Context, _ []float32, k int, status string, _ []uuid.UUID) ([]models.NearestNeighbor, error) {
					gotK = k

					assert.Equal(t, models.VideoStatusActive, status)

					neighbors := make([]models.NearestNeighbor, k)
					for i := range neighbors {
						neighbors[i] = models.NearestNeighbor{VideoID: uuid.New(), Score: 1 - float64(i)/float64(k)}
					}

					return neighbors, nil
				},
			},
			&mockTrendingSource{},
			&mockFreshSource{},
		)

		out := gens.Generate(context.Background(), profile, 10, nil)
		assert.Equal(t, 20, gotK)
		require.Len(t, out.Personal, 10)
		assert.Equal(t, models.SourcePersonal, out.Personal[0].Source)
		assert.Equal(t, models.PriorityPersonal, out.Personal[0].Priority)
	})

	t.Run("exclusion set reaches every source", func(t *testing.T) {
		seenID := uuid.New()
		seen := map[uuid.UUID]struct{}{seenID: {}}

		var personalExcl, trendingExcl, freshExcl []uuid.UUID

		gens := newTestGenerators(
			&mockNeighborSearch{
				nearestFunc: func(_ context.Context, _ []float32, _ int, _ string, excludeIDs []uuid.UUID) ([]models.NearestNeighbor, error) {
					personalExcl = excludeIDs

					return nil, nil
				},
			},
			&mockTrendingSource{
				trendingFunc: func(_ context.Context, windowDays, minImpressions, _ int, excludeIDs []uuid.UUID) ([]models.TrendingVideo, error) {
					trendingExcl = excludeIDs

					assert.Equal(t, TrendingWindowDays, windowDays)
					assert.Equal(t, TrendingMinImpressions, minImpressions)

					return nil, nil
				},
			},
			&mockFreshSource{
				freshFunc: func(_ context.Context, freshDays, _ int, excludeIDs []uuid.UUID) ([]uuid.UUID, error) {
					freshExcl = excludeIDs

					assert.Equal(t, FreshWindowDays, freshDays)

					return nil, nil
				},
			},
		)

		gens.Generate(context.Background(), profile, 20, seen)

		assert.Equal(t, []uuid.UUID{seenID}, personalExcl)
		assert.Equal(t, []uuid.UUID{seenID}, trendingExcl)
		assert.Equal(t, []uuid.UUID{seenID}, freshExcl)
	})

	t.Run("failed source degrades to empty, others unaffected", func(t *testing.T) {
		freshID := uuid.New()

		gens := newTestGenerators(
			&mockNeighborSearch{
				nearestFunc: func(context.Context, []float32, int, string, []uuid.UUID) ([]models.NearestNeighbor, error) {
					return nil, errors.New("index unavailable")
				},
			},
			&mockTrendingSource{
				trendingFunc: func(context.Context, int, int, int, []uuid.UUID) ([]models.TrendingVideo, error) {
					return []models.TrendingVideo{{VideoID: uuid.New(), PopularityScore: 1.2}}, nil
				},
			},
			&mockFreshSource{
				freshFunc: func(context.Context, int, int, []uuid.UUID) ([]uuid.UUID, error) {
					return []uuid.UUID{freshID}, nil
				},
			},
		)

		out := gens.Generate(context.Background(), profile, 20, nil)
		assert.Empty(t, out.Personal)
		require.Len(t, out.Trending, 1)
		require.Len(t, out.Fresh, 1)
		assert.Equal(t, freshID, out.Fresh[0].VideoID)
		assert.Equal(t, models.SourceFresh, out.Fresh[0].Source)
		assert.Equal(t, models.PriorityFresh, out.Fresh[0].Priority)
	})

	t.Run("trending candidates carry popularity score", func(t *testing.T) {
		videoID := uuid.New()

		gens := newTestGenerators(
			&mockNeighborSearch{},
			&mockTrendingSource{
				trendingFunc: func(context.Context, int, int, int, []uuid.UUID) ([]models.TrendingVideo, error) {
					return []models.TrendingVideo{
						{VideoID: videoID, PopularityScore: 1.847, Watch10sRate: 0.4, WatchCount: 100},
					}, nil
				},
			},
			&mockFreshSource{},
		)

		out := gens.Generate(context.Background(), nil, 20, nil)
		require.Len(t, out.Trending, 1)
		assert.Equal(t, videoID, out.Trending[0].VideoID)
		assert.InDelta(t, 1.847, out.Trending[0].PopularityScore, 1e-9)
		assert.Equal(t, models.PriorityTrending, out.Trending[0].Priority)
	})
}
