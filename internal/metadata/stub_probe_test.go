package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubProbe_ReturnsCannedResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	shotAt := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	probe := NewStubProbe().WithResult(path, &Result{ShotAt: &shotAt})

	got, err := probe.Extract(context.Background(), path, MediaImage)
	require.NoError(t, err)
	assert.Equal(t, &shotAt, got.ShotAt)
}

func TestStubProbe_UnregisteredPathReturnsEmptyResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	probe := NewStubProbe()
	got, err := probe.Extract(context.Background(), path, MediaImage)
	require.NoError(t, err)
	assert.Nil(t, got.ShotAt)
	assert.Nil(t, got.Lat)
}

func TestStubProbe_MissingFileIsError(t *testing.T) {
	probe := NewStubProbe()
	_, err := probe.Extract(context.Background(), "/nonexistent/path.jpg", MediaImage)
	assert.Error(t, err)
}
