package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clipiq/feed/internal/models"
	"github.com/clipiq/feed/internal/observability"
	"github.com/clipiq/feed/pkg/cache"
)

const (
	// DefaultMaxPerUploader is the default per-uploader cap for one feed page.
	DefaultMaxPerUploader = 2

	uploaderCacheName = "video_uploader"
)

// UploaderSource resolves the uploader of each video.
type UploaderSource interface {
	UploadersByVideoIDs(ctx context.Context, videoIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
}

// DiversityCapper enforces a per-uploader limit on a candidate list.
// Uploader lookups go through a read-through cache; a video's uploader never
// changes, so cached entries never go stale.
type DiversityCapper struct {
	uploaders      UploaderSource
	uploaderCache  *cache.LoaderCache[uuid.UUID, uuid.UUID]
	maxPerUploader int
	metrics        observability.FeedMetrics
	logger         *slog.Logger
}

// DiversityCapperParams configures DiversityCapper. UploaderCache and
// Metrics may be nil; MaxPerUploader <= 0 uses the default.
type DiversityCapperParams struct {
	Uploaders      UploaderSource
	UploaderCache  *cache.LoaderCache[uuid.UUID, uuid.UUID]
	MaxPerUploader int
	Metrics        observability.FeedMetrics
	Logger         *slog.Logger
}

// NewDiversityCapper creates a DiversityCapper.
func NewDiversityCapper(p DiversityCapperParams) *DiversityCapper {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxPerUploader := p.MaxPerUploader
	if maxPerUploader <= 0 {
		maxPerUploader = DefaultMaxPerUploader
	}

	return &DiversityCapper{
		uploaders:      p.Uploaders,
		uploaderCache:  p.UploaderCache,
		maxPerUploader: maxPerUploader,
		metrics:        p.Metrics,
		logger:         logger,
	}
}

// Apply walks candidates in their current order keeping a running count per
// uploader; a candidate survives only while its uploader is under the cap.
// Earlier candidates win, so this must run after fusion has ordered by
// source priority and before the final ranking reorders the page.
//
// Candidates whose uploader cannot be resolved are kept uncapped rather than
// dropped; losing diversity on a few items beats losing the items.
func (d *DiversityCapper) Apply(ctx context.Context, candidates []models.Candidate) ([]models.Candidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	uploaders, err := d.resolveUploaders(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("resolve uploaders: %w", err)
	}

	kept := make([]models.Candidate, 0, len(candidates))
	perUploader := make(map[uuid.UUID]int)

	for _, c := range candidates {
		uploaderID, ok := uploaders[c.VideoID]
		if !ok {
			d.logger.DebugContext(ctx, "uploader unresolved, keeping candidate uncapped", "video_id", c.VideoID)
			kept = append(kept, c)

			continue
		}

		if perUploader[uploaderID] >= d.maxPerUploader {
			continue
		}

		perUploader[uploaderID]++
		c.UploaderID = uploaderID
		kept = append(kept, c)
	}

	return kept, nil
}

// resolveUploaders serves what it can from cache and batch-loads the rest in
// one query, then backfills the cache.
func (d *DiversityCapper) resolveUploaders(
	ctx context.Context, candidates []models.Candidate,
) (map[uuid.UUID]uuid.UUID, error) {
	resolved := make(map[uuid.UUID]uuid.UUID, len(candidates))

	var missing []uuid.UUID

	for _, c := range candidates {
		if _, ok := resolved[c.VideoID]; ok {
			continue
		}

		if d.uploaderCache != nil {
			if uploaderID, ok := d.uploaderCache.Peek(c.VideoID); ok {
				if d.metrics != nil {
					d.metrics.RecordCacheLookup(ctx, uploaderCacheName, true)
				}

				resolved[c.VideoID] = uploaderID

				continue
			}

			if d.metrics != nil {
				d.metrics.RecordCacheLookup(ctx, uploaderCacheName, false)
			}
		}

		missing = append(missing, c.VideoID)
	}

	if len(missing) == 0 {
		return resolved, nil
	}

	loaded, err := d.uploaders.UploadersByVideoIDs(ctx, missing)
	if err != nil {
		return nil, err
	}

	for videoID, uploaderID := range loaded {
		resolved[videoID] = uploaderID

		if d.uploaderCache != nil {
			d.uploaderCache.Put(videoID, uploaderID)
		}
	}

	return resolved, nil
}
