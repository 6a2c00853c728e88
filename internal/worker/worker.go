// Package worker implements the durable job consumers: the per-photo
// pipeline job and the per-group debounced reconcile job.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"

	"photomeet/internal/metadata"
	"photomeet/internal/models"
	"photomeet/internal/queue"
	"photomeet/internal/store"
	"photomeet/internal/thumbnail"
)

// ClusterCoordinator is the debounce coordinator surface the worker drives.
// Satisfied by *coordinator.Coordinator.
type ClusterCoordinator interface {
	MarkClusterPending(ctx context.Context, groupID uuid.UUID) error
	ClusterIfQuiet(ctx context.Context, groupID uuid.UUID, attempt int) error
}

// Worker holds the per-photo pipeline's collaborators. Each job run opens
// its own store calls; there is no shared in-process state across jobs.
type Worker struct {
	db          store.WorkerStore
	probe       metadata.Probe
	thumbs      thumbnail.Builder
	coordinator ClusterCoordinator
	thumbOpts   thumbnail.Options
	logger      *zap.Logger
}

// New builds a Worker.
func New(
	db store.WorkerStore,
	probe metadata.Probe,
	thumbs thumbnail.Builder,
	coordinator ClusterCoordinator,
	thumbOpts thumbnail.Options,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		db:          db,
		probe:       probe,
		thumbs:      thumbs,
		coordinator: coordinator,
		thumbOpts:   thumbOpts,
		logger:      logger,
	}
}

// photoTask is the worker's own view of a process_photo payload, mapped off
// the queue args so the pipeline body never touches the wire type.
type photoTask struct {
	PhotoID  uuid.UUID
	GroupID  uuid.UUID
	FilePath string
}

// HandleProcessPhoto is the process_photo job handler: extract metadata,
// mark the group pending, build a thumbnail, persist.
func (w *Worker) HandleProcessPhoto(ctx context.Context, job queue.Job[queue.ProcessPhotoArgs]) error {
	var task photoTask
	if err := copier.Copy(&task, job.Payload()); err != nil {
		return queue.Cancel(fmt.Errorf("map process_photo args: %w", err))
	}
	return w.ProcessPhoto(ctx, task.PhotoID, task.GroupID, task.FilePath)
}

// ProcessPhoto runs the per-photo pipeline. A missing row or missing file is
// fatal for the job — the upload path owns cleanup — while metadata and
// thumbnail failures are logged and the photo still completes processing.
func (w *Worker) ProcessPhoto(ctx context.Context, photoID, groupID uuid.UUID, filePath string) error {
	photo, err := w.db.GetPhoto(ctx, photoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return queue.Cancel(fmt.Errorf("photo %s: %w", photoID, err))
		}
		return fmt.Errorf("load photo %s: %w", photoID, err)
	}
	if _, err := os.Stat(filePath); err != nil {
		return queue.Cancel(fmt.Errorf("photo file %s: %w", filePath, err))
	}

	kind := metadata.MediaImage
	if isVideo(photo.MimeType) {
		kind = metadata.MediaVideo
	}

	result, err := w.probe.Extract(ctx, filePath, kind)
	if err != nil {
		// Extract only errors on unreadable files, which the stat above
		// already screened; a race with deletion still counts as fatal.
		return queue.Cancel(fmt.Errorf("extract metadata: %w", err))
	}
	photo.ShotAt = result.ShotAt
	photo.GPSLat = result.Lat
	photo.GPSLon = result.Lon
	photo.Exif = models.RawMetadata(result.Raw)
	if err := w.db.UpdatePhotoMetadata(ctx, photo); err != nil {
		return fmt.Errorf("persist metadata for %s: %w", photoID, err)
	}

	// Mark pending only after the row carries its extracted timestamp, so
	// the next reconcile is guaranteed to see it.
	if err := w.coordinator.MarkClusterPending(ctx, groupID); err != nil {
		return fmt.Errorf("mark cluster pending for group %s: %w", groupID, err)
	}

	var processingError *string
	thumbName, err := w.thumbs.Build(ctx, filePath, kind == metadata.MediaVideo, w.thumbOpts)
	if err != nil {
		msg := fmt.Sprintf("thumbnail: %v", err)
		processingError = &msg
		if w.logger != nil {
			w.logger.Warn("thumbnail generation failed",
				zap.String("photo_id", photoID.String()),
				zap.Error(err),
			)
		}
	} else {
		if err := w.db.UpdatePhotoThumbnail(ctx, photoID, &thumbName); err != nil {
			return fmt.Errorf("persist thumbnail for %s: %w", photoID, err)
		}
	}

	if err := w.db.MarkPhotoProcessed(ctx, photoID, processingError); err != nil {
		return fmt.Errorf("mark processed %s: %w", photoID, err)
	}

	if w.logger != nil {
		w.logger.Debug("photo processed",
			zap.String("photo_id", photoID.String()),
			zap.Bool("has_shot_at", photo.ShotAt != nil),
			zap.Bool("has_thumbnail", processingError == nil),
		)
	}
	return nil
}

// HandleClusterIfQuiet is the cluster_if_quiet job handler on the cluster
// queue: it simply drives the coordinator's state machine.
func (w *Worker) HandleClusterIfQuiet(ctx context.Context, job queue.Job[queue.ClusterIfQuietArgs]) error {
	args := job.Payload()
	return w.coordinator.ClusterIfQuiet(ctx, args.GroupID, args.Attempt)
}

func isVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/")
}
