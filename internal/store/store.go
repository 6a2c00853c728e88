// Package store declares the narrow, interface-shaped views onto the
// relational store that each pipeline component needs. A single GORM-backed
// implementation (gorm_store.go) satisfies all of them against Postgres; a
// plain in-memory fake (storetest) satisfies them for unit tests, so the
// Reconciler, Worker, and Repair Tool never need a live database to be
// exercised.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"photomeet/internal/models"
)

// ErrNotFound is returned by point lookups that find nothing.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "store: not found" }

// ReconcileStore is everything the Reconciler needs for one group's
// rebuild. An implementation must give the Reconciler a single logical
// transaction: see WithinTransaction.
type ReconcileStore interface {
	// LockGroupMeetings returns every meeting of groupID, row-locked and
	// ordered by id, to minimize deadlock surface against other
	// transactions writing the same group's meeting rows.
	LockGroupMeetings(ctx context.Context, groupID uuid.UUID) ([]models.Meeting, error)

	// LoadReclusterablePhotos returns the group's timestamped photos that
	// are not currently owned by a manual meeting — the set the Reconciler
	// is allowed to move. Ordered by id for deterministic processing.
	LoadReclusterablePhotos(ctx context.Context, groupID uuid.UUID) ([]models.Photo, error)

	// EnsureDefaultMeeting returns the group's sentinel Default meeting,
	// creating it on first use. Safe under concurrent callers: a duplicate
	// insert racing the uniqueness constraint is caught and re-read.
	EnsureDefaultMeeting(ctx context.Context, groupID uuid.UUID) (models.Meeting, error)

	// CountPhotosInMeeting returns the live count of photos whose
	// meeting_id equals meetingID.
	CountPhotosInMeeting(ctx context.Context, meetingID uuid.UUID) (int, error)

	// ReassignPhotos sets meeting_id = meetingID for exactly photoIDs.
	ReassignPhotos(ctx context.Context, photoIDs []uuid.UUID, meetingID uuid.UUID) error

	CreateMeeting(ctx context.Context, m *models.Meeting) error
	UpdateMeeting(ctx context.Context, m *models.Meeting) error
	DeleteMeeting(ctx context.Context, meetingID uuid.UUID) error

	// WithinTransaction runs fn against a store bound to a single
	// transaction; fn's error rolls the transaction back.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx ReconcileStore) error) error
}

// RepairStore is the narrow view the Count Repair Tool needs: point
// reads and point writes per meeting, never a wholesale lock, so it is safe
// to run during live traffic.
type RepairStore interface {
	ListMeetingIDs(ctx context.Context) ([]uuid.UUID, error)
	GetMeeting(ctx context.Context, meetingID uuid.UUID) (models.Meeting, error)
	CountPhotosInMeeting(ctx context.Context, meetingID uuid.UUID) (int, error)
	UpdateMeetingCount(ctx context.Context, meetingID uuid.UUID, count int) error
	DeleteMeeting(ctx context.Context, meetingID uuid.UUID) error
	CountAllPhotos(ctx context.Context) (int, error)
}

// IngestStore is the view the ingest entrypoint needs to create a
// photo row attached to its group's Default meeting, with a cleanup path if
// enqueueing the processing job subsequently fails.
type IngestStore interface {
	EnsureDefaultMeeting(ctx context.Context, groupID uuid.UUID) (models.Meeting, error)
	CreatePhoto(ctx context.Context, photo *models.Photo) error
	DeletePhoto(ctx context.Context, photoID uuid.UUID) error
}

// WorkerStore is the view the per-photo worker job needs.
type WorkerStore interface {
	GetPhoto(ctx context.Context, photoID uuid.UUID) (models.Photo, error)
	UpdatePhotoMetadata(ctx context.Context, photo models.Photo) error
	UpdatePhotoThumbnail(ctx context.Context, photoID uuid.UUID, thumbFilename *string) error
	MarkPhotoProcessed(ctx context.Context, photoID uuid.UUID, processingError *string) error
}

// IncrementalStore is the view the operator-only incremental attach lever
// needs: find-or-create a single photo's meeting without a full
// reconcile.
type IncrementalStore interface {
	EnsureDefaultMeeting(ctx context.Context, groupID uuid.UUID) (models.Meeting, error)
	FindAutoMeetingNear(ctx context.Context, groupID uuid.UUID, shotAt time.Time, gap time.Duration) (*models.Meeting, error)
	CreateMeeting(ctx context.Context, m *models.Meeting) error
	UpdateMeeting(ctx context.Context, m *models.Meeting) error
	AssignPhoto(ctx context.Context, photoID uuid.UUID, meetingID uuid.UUID) error
}
