// Package ingest is the in-process entrypoint a future HTTP layer calls
// after accepting an upload: store the blob, create the Photo row on
// the group's Default meeting, and enqueue the process_photo job — with no
// orphan file or orphan row left behind if enqueueing fails.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"photomeet/internal/models"
	"photomeet/internal/queue"
	"photomeet/internal/storage"
	"photomeet/internal/store"
	"photomeet/internal/utils/hash"
)

// ErrEnqueueFailed wraps a queue insertion failure after the row and file
// were already cleaned up. The caller can surface it as a retryable upload
// error.
var ErrEnqueueFailed = errors.New("ingest: enqueue processing job failed")

// Enqueuer is the slice of the queue contract ingest needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload queue.ProcessPhotoArgs) (string, error)
}

// Service wires the ingest path's collaborators.
type Service struct {
	db     store.IngestStore
	blobs  storage.BlobStore
	q      Enqueuer
	logger *zap.Logger
}

// New builds a Service.
func New(db store.IngestStore, blobs storage.BlobStore, q Enqueuer, logger *zap.Logger) *Service {
	return &Service{db: db, blobs: blobs, q: q, logger: logger}
}

// Request describes one accepted upload.
type Request struct {
	GroupID    uuid.UUID
	UploaderID uuid.UUID
	Filename   string
	MimeType   string
	Content    io.Reader
}

// Ingest stores the upload and hands it to the pipeline. On any failure
// after the blob or row was written, both are removed before returning, so
// a failed upload leaves no trace.
func (s *Service) Ingest(ctx context.Context, req Request) (models.Photo, error) {
	defaultMeeting, err := s.db.EnsureDefaultMeeting(ctx, req.GroupID)
	if err != nil {
		return models.Photo{}, fmt.Errorf("ensure default meeting: %w", err)
	}

	storedName := uniqueFilename(req.Filename)
	absPath, size, err := s.blobs.Put(ctx, req.GroupID, storedName, req.Content)
	if err != nil {
		return models.Photo{}, fmt.Errorf("store blob: %w", err)
	}

	fileHash, err := hash.File(absPath)
	if err != nil {
		s.cleanupBlob(ctx, req.GroupID, storedName)
		return models.Photo{}, fmt.Errorf("hash blob: %w", err)
	}

	photo := models.Photo{
		GroupID:      req.GroupID,
		UploaderID:   req.UploaderID,
		MeetingID:    &defaultMeeting.ID,
		FilenameOrig: storedName,
		FileSize:     size,
		FileHash:     fileHash,
		MimeType:     req.MimeType,
	}
	if err := s.db.CreatePhoto(ctx, &photo); err != nil {
		s.cleanupBlob(ctx, req.GroupID, storedName)
		return models.Photo{}, fmt.Errorf("create photo row: %w", err)
	}

	_, err = s.q.Enqueue(ctx, queue.ProcessPhotoArgs{
		PhotoID:  photo.ID,
		GroupID:  req.GroupID,
		FilePath: absPath,
	})
	if err != nil {
		if derr := s.db.DeletePhoto(ctx, photo.ID); derr != nil && s.logger != nil {
			s.logger.Error("orphan row cleanup failed",
				zap.String("photo_id", photo.ID.String()),
				zap.Error(derr),
			)
		}
		s.cleanupBlob(ctx, req.GroupID, storedName)
		return models.Photo{}, fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}

	return photo, nil
}

func (s *Service) cleanupBlob(ctx context.Context, groupID uuid.UUID, filename string) {
	if err := s.blobs.Delete(ctx, groupID, filename); err != nil && s.logger != nil {
		s.logger.Error("orphan blob cleanup failed",
			zap.String("group_id", groupID.String()),
			zap.String("filename", filename),
			zap.Error(err),
		)
	}
}

// uniqueFilename keeps the upload's extension but replaces the name with a
// fresh uuid so concurrent uploads of like-named files never collide.
func uniqueFilename(original string) string {
	return uuid.New().String() + filepath.Ext(filepath.Base(original))
}
