package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clipiq/feed/internal/feederrors"
	"github.com/clipiq/feed/internal/models"
	"github.com/clipiq/feed/internal/observability"
)

const (
	// DefaultFeedLimit is the page size when the caller does not specify one.
	DefaultFeedLimit = 20

	// MaxFeedLimit bounds the page size a caller may request.
	MaxFeedLimit = 50

	// DefaultSeenWindowHours is the anti-repeat window for user-scoped
	// exclusion.
	DefaultSeenWindowHours = 6
)

// ImpressionLedger provides the exclusion reads and the atomic batch write
// the orchestrator needs.
type ImpressionLedger interface {
	SeenVideoIDs(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID, windowHours int) (map[uuid.UUID]struct{}, error)
	BatchInsert(ctx context.Context, userID, sessionID uuid.UUID, items []models.ImpressionItem, modelVersion string) ([]models.Impression, error)
}

// VideoHydrator provides metadata hydration for the final page.
type VideoHydrator interface {
	GetByIDs(ctx context.Context, videoIDs []uuid.UUID) (map[uuid.UUID]models.Video, error)
}

// ProfileBuilder builds the user's taste vector, nil for a cold user.
type ProfileBuilder interface {
	BuildProfile(ctx context.Context, userID uuid.UUID) ([]float32, error)
}

// FeedService is the feed orchestrator: one pass per request, no internal
// retries. Impressions are committed only after the full page is assembled,
// so a cancelled or failed request never logs impressions for videos that
// were not shown.
type FeedService struct {
	ledger          ImpressionLedger
	profiles        ProfileBuilder
	generators      *CandidateGenerators
	capper          *DiversityCapper
	trending        TrendingSource
	videos          VideoHydrator
	seenWindowHours int
	metrics         observability.FeedMetrics
	logger          *slog.Logger
}

// FeedServiceParams configures FeedService. Metrics may be nil;
// SeenWindowHours <= 0 uses the default.
type FeedServiceParams struct {
	Ledger          ImpressionLedger
	Profiles        ProfileBuilder
	Generators      *CandidateGenerators
	Capper          *DiversityCapper
	Trending        TrendingSource
	Videos          VideoHydrator
	SeenWindowHours int
	Metrics         observability.FeedMetrics
	Logger          *slog.Logger
}

// NewFeedService creates a FeedService.
func NewFeedService(p FeedServiceParams) *FeedService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	seenWindowHours := p.SeenWindowHours
	if seenWindowHours <= 0 {
		seenWindowHours = DefaultSeenWindowHours
	}

	return &FeedService{
		ledger:          p.Ledger,
		profiles:        p.Profiles,
		generators:      p.Generators,
		capper:          p.Capper,
		trending:        p.Trending,
		videos:          p.Videos,
		seenWindowHours: seenWindowHours,
		metrics:         p.Metrics,
		logger:          logger,
	}
}

// GeneratePersonalFeed serves one personalized feed page.
//
// Exclusion and profile resolution run first, then the three candidate
// sources fan out concurrently, then fusion, the uploader cap, scoring, and
// the session-seeded shuffle produce the final order. The page is hydrated
// and impressions are written last; either of those failing fails the
// request, since a feed served without recorded impressions would corrupt
// future anti-repeat exclusion.
func (s *FeedService) GeneratePersonalFeed(
	ctx context.Context, userID, sessionID uuid.UUID, limit int,
) (*models.Feed, error) {
	limit = clampLimit(limit)

	seen, err := s.ledger.SeenVideoIDs(ctx, userID, &sessionID, s.seenWindowHours)
	if err != nil {
		return nil, fmt.Errorf("resolve seen videos: %w", err)
	}

	profile, err := s.profiles.BuildProfile(ctx, userID)
	if err != nil {
		// A failed profile build degrades to a cold feed rather than
		// failing the request.
		s.logger.WarnContext(ctx, "profile build failed, serving cold feed", "user_id", userID, "error", err)

		profile = nil
	}

	generated := s.generators.Generate(ctx, profile, limit, seen)

	merged := MergeCandidates(generated.Personal, generated.Trending, generated.Fresh)

	capped, err := s.capper.Apply(ctx, merged)
	if err != nil {
		return nil, fmt.Errorf("apply uploader cap: %w", err)
	}

	ranked := ScoreAndRank(capped, sessionID.String())
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	modelVersion := models.ModelVersionTrending
	if profile != nil {
		modelVersion = models.ModelVersionPersonal
	}

	items, err := s.assemblePage(ctx, userID, sessionID, ranked, modelVersion)
	if err != nil {
		return nil, err
	}

	return &models.Feed{
		Items:      items,
		Total:      len(items),
		HasProfile: profile != nil,
		SessionID:  sessionID,
	}, nil
}

// GenerateTrendingFeed serves a trending-only page: no profile, no personal
// or fresh sources, but the same exclusion, hydration, and impression
// semantics as the personal feed. Always tagged v1_trending.
func (s *FeedService) GenerateTrendingFeed(
	ctx context.Context, userID, sessionID uuid.UUID, limit int,
) (*models.Feed, error) {
	limit = clampLimit(limit)

	seen, err := s.ledger.SeenVideoIDs(ctx, userID, &sessionID, s.seenWindowHours)
	if err != nil {
		return nil, fmt.Errorf("resolve seen videos: %w", err)
	}

	excludeIDs := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		excludeIDs = append(excludeIDs, id)
	}

	// Over-fetch so the uploader cap can still fill a whole page.
	trending, err := s.trending.TrendingVideos(
		ctx, TrendingWindowDays, TrendingMinImpressions, overfetchFactor*limit, excludeIDs)
	if err != nil {
		return nil, feederrors.NewSourceUnavailableError(models.SourceTrending, err.Error())
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

	capped, err := s.capper.Apply(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("apply uploader cap: %w", err)
	}

	if len(capped) > limit {
		capped = capped[:limit]
	}

	items, err := s.assemblePage(ctx, userID, sessionID, capped, models.ModelVersionTrending)
	if err != nil {
		return nil, err
	}

	return &models.Feed{
		Items:      items,
		Total:      len(items),
		HasProfile: false,
		SessionID:  sessionID,
	}, nil
}

// assemblePage hydrates the ranked candidates and records one impression per
// returned item, in final position order. Candidates whose metadata no
// longer resolves (e.g. deleted between generation and hydration) are
// dropped from the page.
func (s *FeedService) assemblePage(
	ctx context.Context, userID, sessionID uuid.UUID, ranked []models.Candidate, modelVersion string,
) ([]models.FeedItem, error) {
	if len(ranked) == 0 {
		return []models.FeedItem{}, nil
	}

	videoIDs := make([]uuid.UUID, len(ranked))
	for i, c := range ranked {
		videoIDs[i] = c.VideoID
	}

	videos, err := s.videos.GetByIDs(ctx, videoIDs)
	if err != nil {
		return nil, feederrors.NewHydrationError(fmt.Sprintf("hydrate %d videos: %v", len(videoIDs), err))
	}

	var (
		final           []models.Candidate
		hydrated        []models.Video
		impressionItems []models.ImpressionItem
	)

	for _, c := range ranked {
		video, ok := videos[c.VideoID]
		if !ok {
			s.logger.DebugContext(ctx, "dropping candidate with no metadata", "video_id", c.VideoID)

			continue
		}

		impressionItems = append(impressionItems, models.ImpressionItem{
			VideoID:  c.VideoID,
			Position: len(final),
			Source:   c.Source,
		})
		final = append(final, c)
		hydrated = append(hydrated, video)
	}

	if len(final) == 0 {
		return []models.FeedItem{}, nil
	}

	impressions, err := s.ledger.BatchInsert(ctx, userID, sessionID, impressionItems, modelVersion)
	if err != nil {
		return nil, feederrors.NewImpressionWriteError(fmt.Sprintf("record %d impressions: %v", len(impressionItems), err))
	}

	if s.metrics != nil {
		s.metrics.RecordImpressionsWritten(ctx, modelVersion, len(impressions))
	}

	items := make([]models.FeedItem, len(final))
	for i, c := range final {
		items[i] = models.FeedItem{
			Video:        hydrated[i],
			ImpressionID: impressions[i].ID,
			Position:     i,
			Source:       c.Source,
		}
	}

	return items, nil
}

// clampLimit applies the default and maximum page size.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultFeedLimit
	}

	if limit > MaxFeedLimit {
		return MaxFeedLimit
	}

	return limit
}
