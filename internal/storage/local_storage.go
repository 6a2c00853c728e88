// Package storage implements the blob store for originals and thumbnails
// over the local filesystem, laid out as <UPLOAD_DIR>/<group_id>/<filename>.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStorage stores blobs under a single root directory.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates the root directory if needed and returns the
// store.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) AbsPath(groupID uuid.UUID, filename string) string {
	return filepath.Join(s.root, groupID.String(), filepath.Base(filename))
}

func (s *LocalStorage) Put(ctx context.Context, groupID uuid.UUID, filename string, content io.Reader) (string, int64, error) {
	dir := filepath.Join(s.root, groupID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create group directory: %w", err)
	}

	path := s.AbsPath(groupID, filename)
	dst, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create blob: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, content)
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("write blob: %w", err)
	}
	return path, size, nil
}

func (s *LocalStorage) Get(ctx context.Context, groupID uuid.UUID, filename string) (io.ReadCloser, error) {
	f, err := os.Open(s.AbsPath(groupID, filename))
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(ctx context.Context, groupID uuid.UUID, filename string) error {
	if err := os.Remove(s.AbsPath(groupID, filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *LocalStorage) Stat(ctx context.Context, groupID uuid.UUID, filename string) (*BlobInfo, error) {
	path := s.AbsPath(groupID, filename)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat blob: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &BlobInfo{
		Path:        path,
		Size:        info.Size(),
		ContentType: contentType,
		ModTime:     info.ModTime(),
	}, nil
}

func (s *LocalStorage) Exists(ctx context.Context, groupID uuid.UUID, filename string) (bool, error) {
	_, err := os.Stat(s.AbsPath(groupID, filename))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat blob: %w", err)
}
