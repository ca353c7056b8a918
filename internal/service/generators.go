package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipiq/feed/internal/feederrors"
	"github.com/clipiq/feed/internal/models"
	"github.com/clipiq/feed/internal/observability"
)

const (
	// TrendingWindowDays is the trailing window for the engagement aggregation.
	TrendingWindowDays = 7

	// TrendingMinImpressions excludes videos with too few impressions in the
	// window from trending, so a lucky 1-for-1 hold rate cannot rank.
	TrendingMinImpressions = 5

	// FreshWindowDays bounds the fresh generator to recent uploads.
	FreshWindowDays = 3

	// overfetchFactor over-requests nearest neighbors so the personal source
	// survives downstream filtering with a full page.
	overfetchFactor = 2
)

// EmbeddingsForPersonal provides the nearest-neighbor search the personal generator needs.
type EmbeddingsForPersonal interface {
	NearestNeighbors(ctx context.Context, queryEmbedding []float32, k int, status string, excludeIDs []uuid.UUID) ([]models.NearestNeighbor, error)
}

// TrendingSource provides the engagement aggregation the trending generator needs.
type TrendingSource interface {
	TrendingVideos(ctx context.Context, windowDays, minImpressions, limit int, excludeIDs []uuid.UUID) ([]models.TrendingVideo, error)
}

// FreshSource provides the recent-uploads query the fresh generator needs.
type FreshSource interface {
	FreshVideoIDs(ctx context.Context, freshDays, limit int, excludeIDs []uuid.UUID) ([]uuid.UUID, error)
}

// CandidateGenerators fans out to the three candidate sources. Each source
// runs concurrently with an independent timeout; a failed or timed-out source
// degrades to an empty list so the feed stays available.
type CandidateGenerators struct {
	embeddings EmbeddingsForPersonal
	trending   TrendingSource
	fresh      FreshSource
	timeout    time.Duration
	metrics    observability.FeedMetrics
	logger     *slog.Logger
}

// CandidateGeneratorsParams configures CandidateGenerators. Metrics may be nil.
type CandidateGeneratorsParams struct {
	Embeddings EmbeddingsForPersonal
	Trending   TrendingSource
	Fresh      FreshSource
	Timeout    time.Duration
	Metrics    observability.FeedMetrics
	Logger     *slog.Logger
}

// NewCandidateGenerators creates a CandidateGenerators.
func NewCandidateGenerators(p CandidateGeneratorsParams) *CandidateGenerators {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &CandidateGenerators{
		embeddings: p.Embeddings,
		trending:   p.Trending,
		fresh:      p.Fresh,
		timeout:    timeout,
		metrics:    p.Metrics,
		logger:     logger,
	}
}

// GeneratorOutput carries the three candidate lists out of one fan-out cycle.
// A degraded source appears as an empty list.
type GeneratorOutput struct {
	Personal []models.Candidate
	Trending []models.Candidate
	Fresh    []models.Candidate
}

// Generate runs all three sources concurrently against the shared exclusion
// set. A nil profile skips the personal source entirely (cold user).
func (g *CandidateGenerators) Generate(
	ctx context.Context, profile []float32, limit int, seen map[uuid.UUID]struct{},
) GeneratorOutput {
	excludeIDs := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		excludeIDs = append(excludeIDs, id)
	}

	var (
		out GeneratorOutput
		wg  sync.WaitGroup
	)

	wg.Add(3)

	go func() {
		defer wg.Done()

		out.Personal = g.run(ctx, models.SourcePersonal, func(ctx context.Context) ([]models.Candidate, error) {
			return g.generatePersonal(ctx, profile, limit, excludeIDs)
		})
	}()

	go func() {
		defer wg.Done()

		out.Trending = g.run(ctx, models.SourceTrending, func(ctx context.Context) ([]models.Candidate, error) {
			return g.generateTrending(ctx, limit, excludeIDs)
		})
	}()

	go func() {
		defer wg.Done()

		out.Fresh = g.run(ctx, models.SourceFresh, func(ctx context.Context) ([]models.Candidate, error) {
			return g.generateFresh(ctx, limit, excludeIDs)
		})
	}()

	wg.Wait()

	return out
}

// run wraps one source with its timeout, metrics, and the degrade-to-empty
// failure policy. Source errors never cross this boundary.
func (g *CandidateGenerators) run(
	ctx context.Context, source string, generate func(ctx context.Context) ([]models.Candidate, error),
) []models.Candidate {
	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()

	candidates, err := generate(genCtx)
	if err != nil {
		srcErr := feederrors.NewSourceUnavailableError(source, err.Error())
		g.logger.WarnContext(ctx, "candidate generator degraded to empty list",
			"source", source, "error", srcErr)

		if g.metrics != nil {
			g.metrics.RecordGeneratorDegraded(ctx, source)
		}

		return nil
	}

	if g.metrics != nil {
		g.metrics.RecordGenerator(ctx, source, len(candidates), time.Since(start))
	}

	return candidates
}

func (g *CandidateGenerators) generatePersonal(
	ctx context.Context, profile []float32, limit int, excludeIDs []uuid.UUID,
) ([]models.Candidate, error) {
	if profile == nil {
		return nil, nil
	}

	neighbors, err := g.embeddings.NearestNeighbors(
		ctx, profile, overfetchFactor*limit, models.VideoStatusActive, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", err)
	}

	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}

	candidates := make([]models.Candidate, len(neighbors))
	for i, n := range neighbors {
		candidates[i] = models.Candidate{
			VideoID:         n.VideoID,
			SimilarityScore: n.Score,
			Source:          models.SourcePersonal,
			Priority:        models.PriorityPersonal,
		}
	}

	return candidates, nil
}

func (g *CandidateGenerators) generateTrending(
	ctx context.Context, limit int, excludeIDs []uuid.UUID,
) ([]models.Candidate, error) {
	trending, err := g.trending.TrendingVideos(ctx, TrendingWindowDays, TrendingMinImpressions, limit, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("trending videos: %w", err)
	}

	candidates := make([]models.Candidate, len(trending))
	for i, t := range trending {
		candidates[i] = models.Candidate{
			VideoID:         t.VideoID,
			PopularityScore: t.PopularityScore,
			Source:          models.SourceTrending,
			Priority:        models.PriorityTrending,
		}
	}

	return candidates, nil
}

func (g *CandidateGenerators) generateFresh(
	ctx context.Context, limit int, excludeIDs []uuid.UUID,
) ([]models.Candidate, error) {
	ids, err := g.fresh.FreshVideoIDs(ctx, FreshWindowDays, limit, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("fresh videos: %w", err)
	}

	candidates := make([]models.Candidate, len(ids))
	for i, id := range ids {
		candidates[i] = models.Candidate{
			VideoID:  id,
			Source:   models.SourceFresh,
			Priority: models.PriorityFresh,
		}
	}

	return candidates, nil
}
