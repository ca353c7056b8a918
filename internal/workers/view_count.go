// Package workers provides River job workers (view-count increments).
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/clipiq/feed/internal/repository"
	"github.com/clipiq/feed/internal/service"
)

// ViewCountWorker applies one view-count increment per watch event.
type ViewCountWorker struct {
	river.WorkerDefaults[service.ViewCountArgs]

	videos viewCountRepo
}

// viewCountRepo is the minimal repo interface needed by the worker.
type viewCountRepo interface {
	IncrementViews(ctx context.Context, videoID uuid.UUID) error
}

// NewViewCountWorker creates a worker that increments the video's view counter.
func NewViewCountWorker(videos viewCountRepo) *ViewCountWorker {
	return &ViewCountWorker{videos: videos}
}

const viewCountTimeout = 10 * time.Second

// Timeout limits how long a single increment job can run.
func (w *ViewCountWorker) Timeout(*river.Job[service.ViewCountArgs]) time.Duration {
	return viewCountTimeout
}

// Work increments the view counter. A missing video is final (no retry);
// transient database errors are returned so River retries them.
func (w *ViewCountWorker) Work(ctx context.Context, job *river.Job[service.ViewCountArgs]) error {
	args := job.Args

	if err := w.videos.IncrementViews(ctx, args.VideoID); err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			slog.Warn("view count: video gone, dropping job",
				"video_id", args.VideoID,
				"watch_event_id", args.WatchEventID,
			)

			return nil
		}

		return fmt.Errorf("increment views for %s: %w", args.VideoID, err)
	}

	return nil
}
