// Package service contains the feed engine core: profile building, candidate
// generation, fusion, diversity capping, ranking, and orchestration.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clipiq/feed/internal/models"
	"github.com/clipiq/feed/pkg/vectormath"
)

const (
	// DefaultHistoryLimit bounds how many recent positive watches feed one
	// taste vector.
	DefaultHistoryLimit = 20

	// MinPositiveWatchSeconds is the engagement threshold for a watch to
	// count as positive signal.
	MinPositiveWatchSeconds = 10
)

// WatchHistoryForProfile provides the positive-watch query needed for profile building.
type WatchHistoryForProfile interface {
	RecentPositiveWatches(ctx context.Context, userID uuid.UUID, minSeconds, limit int) ([]models.PositiveWatch, error)
}

// EmbeddingsForProfile provides the embedding lookup needed for profile building.
type EmbeddingsForProfile interface {
	GetEmbeddings(ctx context.Context, videoIDs []uuid.UUID) (map[uuid.UUID][]float32, error)
}

// ProfileService builds a user's taste vector from recent watch history.
type ProfileService struct {
	watchHistory WatchHistoryForProfile
	embeddings   EmbeddingsForProfile
	historyLimit int
	logger       *slog.Logger
}

// ProfileServiceParams configures ProfileService. HistoryLimit <= 0 uses the default.
type ProfileServiceParams struct {
	WatchHistory WatchHistoryForProfile
	Embeddings   EmbeddingsForProfile
	HistoryLimit int
	Logger       *slog.Logger
}

// NewProfileService creates a ProfileService.
func NewProfileService(p ProfileServiceParams) *ProfileService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	historyLimit := p.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}

	return &ProfileService{
		watchHistory: p.WatchHistory,
		embeddings:   p.Embeddings,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// BuildProfile returns the user's normalized taste vector, or nil when the
// user is cold: no positive watches, or none of their watched videos have an
// embedding. A nil profile is an expected state, never an error.
//
// Pooling weights are proportional to watch duration, so strongly-engaged
// videos dominate the taste signal. The pooled vector is normalized here;
// weightedMeanPool itself does not renormalize.
func (s *ProfileService) BuildProfile(ctx context.Context, userID uuid.UUID) ([]float32, error) {
	watches, err := s.watchHistory.RecentPositiveWatches(ctx, userID, MinPositiveWatchSeconds, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch positive watches: %w", err)
	}

	if len(watches) == 0 {
		return nil, nil
	}

	videoIDs := make([]uuid.UUID, len(watches))
	for i, w := range watches {
		videoIDs[i] = w.VideoID
	}

	embeddings, err := s.embeddings.GetEmbeddings(ctx, videoIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch embeddings: %w", err)
	}

	// Keep watch order and skip videos with no embedding; partial resolution
	// still yields a profile.
	var (
		vectors [][]float32
		weights []float32
	)

	for _, w := range watches {
		vec, ok := embeddings[w.VideoID]
		if !ok {
			continue
		}

		vectors = append(vectors, vec)
		weights = append(weights, float32(w.WatchDurationSeconds))
	}

	if len(vectors) == 0 {
		s.logger.DebugContext(ctx, "no embeddings resolved for watch history, treating user as cold",
			"user_id", userID, "watched_videos", len(watches))

		return nil, nil
	}

	profile, err := vectormath.WeightedMeanPool(vectors, weights)
	if err != nil {
		return nil, fmt.Errorf("pool watch embeddings: %w", err)
	}

	if err := vectormath.NormalizeL2(profile); err != nil {
		return nil, fmt.Errorf("normalize profile vector: %w", err)
	}

	return profile, nil
}
