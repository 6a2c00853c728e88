package queue

import (
	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// ProcessPhotoArgs is the payload for a JobTypeProcessPhoto job: extract
// metadata, mark the group pending, build a thumbnail, persist.
type ProcessPhotoArgs struct {
	PhotoID  uuid.UUID `json:"photo_id"`
	GroupID  uuid.UUID `json:"group_id"`
	FilePath string    `json:"file_path"`
}

func (ProcessPhotoArgs) Kind() string { return string(JobTypeProcessPhoto) }

// InsertOpts routes per-photo jobs to the default queue, deduplicates an
// already-queued photo, and bounds retries before the job is discarded.
func (ProcessPhotoArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueDefault,
		MaxAttempts: 3,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	}
}

// ClusterIfQuietArgs is the payload for a JobTypeClusterIfQuiet job: the
// debounced reconcile trigger for one group. Attempt counts prior
// reconcile failures; retries are self-rescheduled by the coordinator with
// a fresh payload rather than left to the queue's own retry policy.
type ClusterIfQuietArgs struct {
	GroupID uuid.UUID `json:"group_id"`
	Attempt int       `json:"attempt"`
}

func (ClusterIfQuietArgs) Kind() string { return string(JobTypeClusterIfQuiet) }

// InsertOpts routes reconcile triggers to the dedicated cluster queue so a
// slow reconcile never delays per-photo work.
func (ClusterIfQuietArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueCluster}
}
