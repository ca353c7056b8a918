package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/clipiq/feed/internal/models"
)

// WatchEventWriter persists watch events.
type WatchEventWriter interface {
	Insert(ctx context.Context, userID, videoID uuid.UUID, watchDurationSeconds int, completed bool, impressionID *uuid.UUID) (*models.WatchEvent, error)
}

// ImpressionHistoryReader reads a user's impression log.
type ImpressionHistoryReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ImpressionHistoryEntry, error)
}

// ViewCountInserter enqueues view-count jobs (e.g. River client).
type ViewCountInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// ImpressionsService serves the watch-event write path and the impression
// history read path.
type ImpressionsService struct {
	watchEvents WatchEventWriter
	history     ImpressionHistoryReader
	jobs        ViewCountInserter
	logger      *slog.Logger
}

// ImpressionsServiceParams configures ImpressionsService. Jobs may be nil
// (view counters simply stop advancing, watch events still persist).
type ImpressionsServiceParams struct {
	WatchEvents WatchEventWriter
	History     ImpressionHistoryReader
	Jobs        ViewCountInserter
	Logger      *slog.Logger
}

// NewImpressionsService creates an ImpressionsService.
func NewImpressionsService(p ImpressionsServiceParams) *ImpressionsService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ImpressionsService{
		watchEvents: p.WatchEvents,
		history:     p.History,
		jobs:        p.Jobs,
		logger:      logger,
	}
}

// RecordWatchEvent persists the watch event, then enqueues a background
// view-count job. The event write is authoritative; a failed enqueue is
// logged and the event still succeeds, since losing one counter increment
// is preferable to losing the profile-building signal.
func (s *ImpressionsService) RecordWatchEvent(
	ctx context.Context, userID, videoID uuid.UUID, watchDurationSeconds int, completed bool, impressionID *uuid.UUID,
) (*models.WatchEvent, error) {
	event, err := s.watchEvents.Insert(ctx, userID, videoID, watchDurationSeconds, completed, impressionID)
	if err != nil {
		return nil, fmt.Errorf("record watch event: %w", err)
	}

	if s.jobs != nil {
		_, err := s.jobs.Insert(ctx, ViewCountArgs{
			VideoID:      videoID,
			WatchEventID: event.ID,
		}, &river.InsertOpts{Queue: ViewCountQueueName})
		if err != nil {
			s.logger.ErrorContext(ctx, "enqueue view count job failed",
				"video_id", videoID, "watch_event_id", event.ID, "error", err)
		}
	}

	return event, nil
}

// History returns the user's impression log page.
func (s *ImpressionsService) History(
	ctx context.Context, userID uuid.UUID, limit, offset int,
) ([]models.ImpressionHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	if offset < 0 {
		offset = 0
	}

	entries, err := s.history.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("impression history: %w", err)
	}

	if entries == nil {
		entries = []models.ImpressionHistoryEntry{}
	}

	return entries, nil
}
