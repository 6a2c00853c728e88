package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobInfo describes a stored original or thumbnail.
type BlobInfo struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	ModTime     time.Time `json:"mod_time"`
}

// BlobStore is the blob-store contract. Every path is composed as
// <storage_root>/<group_id>/<filename>; callers never build paths
// themselves.
type BlobStore interface {
	// Put streams content into the group's directory under filename and
	// returns the absolute path and byte size of the stored blob.
	Put(ctx context.Context, groupID uuid.UUID, filename string, content io.Reader) (absPath string, size int64, err error)

	// Get opens the stored blob for reading.
	Get(ctx context.Context, groupID uuid.UUID, filename string) (io.ReadCloser, error)

	// Delete removes the blob; deleting an absent blob is not an error.
	Delete(ctx context.Context, groupID uuid.UUID, filename string) error

	// Stat returns metadata about a stored blob.
	Stat(ctx context.Context, groupID uuid.UUID, filename string) (*BlobInfo, error)

	// Exists reports whether the blob is present.
	Exists(ctx context.Context, groupID uuid.UUID, filename string) (bool, error)

	// AbsPath renders the blob's absolute filesystem path without touching
	// the filesystem. The worker hands this to subprocess tools.
	AbsPath(groupID uuid.UUID, filename string) string
}
