package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"photomeet/internal/queue"
)

// ClusterScheduler satisfies coordinator.Scheduler over the dedicated
// cluster queue: "schedule a job" is a delayed insert.
type ClusterScheduler struct {
	q queue.Queue[queue.ClusterIfQuietArgs]
}

// NewClusterScheduler builds the scheduler over the cluster queue's adapter.
func NewClusterScheduler(q queue.Queue[queue.ClusterIfQuietArgs]) *ClusterScheduler {
	return &ClusterScheduler{q: q}
}

func (s *ClusterScheduler) ScheduleClusterIfQuiet(ctx context.Context, groupID uuid.UUID, delay time.Duration, attempt int) error {
	_, err := s.q.EnqueueIn(ctx, queue.ClusterIfQuietArgs{GroupID: groupID, Attempt: attempt}, delay)
	return err
}
