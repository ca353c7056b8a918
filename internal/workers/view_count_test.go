package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipiq/feed/internal/repository"
	"github.com/clipiq/feed/internal/service"
)

type mockViewCountRepo struct {
	incrementFunc func(ctx context.Context, videoID uuid.UUID) error
}

func (m *mockViewCountRepo) IncrementViews(ctx context.Context, videoID uuid.UUID) error {
	if m.incrementFunc != nil {
		return m.incrementFunc(ctx, videoID)
	}

	return nil
}

func newViewCountJob(videoID uuid.UUID) *river.Job[service.ViewCountArgs] {
	return &river.Job[service.ViewCountArgs]{
		JobRow: &rivertype.JobRow{Attempt: 1, MaxAttempts: 3},
		Args:   service.ViewCountArgs{VideoID: videoID, WatchEventID: uuid.New()},
	}
}

func TestViewCountWorker_Work(t *testing.T) {
	videoID := uuid.MustParse("018e1234-5678-9abc-def0-0000000000aa")

	t.Run("increments views for the job's video", func(t *testing.T) {
		var gotVideoID uuid.UUID

		worker := NewViewCountWorker(&mockViewCountRepo{
			incrementFunc: func(_ context.Context, id uuid.UUID) error {
				gotVideoID = id

				return nil
			},
		})

		err := worker.Work(context.Background(), newViewCountJob(videoID))
		require.NoError(t, err)
		assert.Equal(t, videoID, gotVideoID)
	})

	t.Run("missing video is final, no retry", func(t *testing.T) {
		worker := NewViewCountWorker(&mockViewCountRepo{
			incrementFunc: func(context.Context, uuid.UUID) error {
				return repository.ErrVideoNotFound
			},
		})

		err := worker.Work(context.Background(), newViewCountJob(videoID))
		assert.NoError(t, err)
	})

	t.Run("transient error is returned for retry", func(t *testing.T) {
		worker := NewViewCountWorker(&mockViewCountRepo{
			incrementFunc: func(context.Context, uuid.UUID) error {
				return errors.New("connection reset")
			},
		})

		err := worker.Work(context.Background(), newViewCountJob(videoID))
		assert.ErrorContains(t, err, "increment views")
	})
}
