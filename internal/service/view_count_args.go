package service

import (
	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

const (
	viewCountKind = "video_view_count"

	// ViewCountQueueName is the River queue for view-count increment jobs.
	ViewCountQueueName = "view_counts"
)

// ViewCountArgs is the job payload for incrementing a video's view counter
// after a watch event. Deliberately a background job: the watch-event request
// should not block on, or fail because of, a counter update.
type ViewCountArgs struct {
	VideoID      uuid.UUID `json:"video_id"`
	WatchEventID uuid.UUID `json:"watch_event_id"`
}

// Kind returns the River job kind.
func (ViewCountArgs) Kind() string { return viewCountKind }

var _ river.JobArgs = ViewCountArgs{}
