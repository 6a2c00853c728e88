package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photomeet/internal/logging"
	"photomeet/internal/metadata"
	"photomeet/internal/models"
	"photomeet/internal/queue"
	"photomeet/internal/store/storetest"
	"photomeet/internal/thumbnail"
)

type fakeBuilder struct {
	name    string
	err     error
	calls   int
	isVideo bool
}

func (f *fakeBuilder) Build(ctx context.Context, srcPath string, isVideo bool, opts thumbnail.Options) (string, error) {
	f.calls++
	f.isVideo = isVideo
	return f.name, f.err
}

type fakeCoordinator struct {
	marked    []uuid.UUID
	clustered []uuid.UUID
	markErr   error
}

func (f *fakeCoordinator) MarkClusterPending(ctx context.Context, groupID uuid.UUID) error {
	f.marked = append(f.marked, groupID)
	return f.markErr
}

func (f *fakeCoordinator) ClusterIfQuiet(ctx context.Context, groupID uuid.UUID, attempt int) error {
	f.clustered = append(f.clustered, groupID)
	return nil
}

func writeTempPhoto(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orig.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg bytes"), 0o644))
	return path
}

func seedUnprocessed(db *storetest.MemoryStore, group uuid.UUID) models.Photo {
	return db.SeedPhoto(models.Photo{
		GroupID:      group,
		UploaderID:   uuid.New(),
		FilenameOrig: "orig.jpg",
		FileSize:     10,
		MimeType:     "image/jpeg",
	})
}

func TestProcessPhoto_FullPipeline(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	photo := seedUnprocessed(db, group)
	path := writeTempPhoto(t)

	shotAt := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	lat, lon := 48.2082, 16.3738
	probe := metadata.NewStubProbe().WithResult(path, &metadata.Result{
		ShotAt: &shotAt,
		Lat:    &lat,
		Lon:    &lon,
		Raw:    map[string]interface{}{"Model": "X100V"},
	})
	builder := &fakeBuilder{name: "thumb_abc.jpg"}
	coord := &fakeCoordinator{}

	w := New(db, probe, builder, coord, thumbnail.Options{}, logging.NewNop())
	require.NoError(t, w.ProcessPhoto(context.Background(), photo.ID, group, path))

	got := db.Photo(photo.ID)
	require.NotNil(t, got.ShotAt)
	assert.Equal(t, shotAt, *got.ShotAt)
	assert.True(t, got.HasGPS())
	assert.Equal(t, "X100V", got.Exif["Model"])
	require.NotNil(t, got.FilenameThumb)
	assert.Equal(t, "thumb_abc.jpg", *got.FilenameThumb)
	assert.True(t, got.IsProcessed)
	assert.Nil(t, got.ProcessingError)

	require.Len(t, coord.marked, 1)
	assert.Equal(t, group, coord.marked[0])
}

func TestProcessPhoto_MissingRowIsFatal(t *testing.T) {
	db := storetest.NewMemoryStore()
	coord := &fakeCoordinator{}
	w := New(db, metadata.NewStubProbe(), &fakeBuilder{}, coord, thumbnail.Options{}, logging.NewNop())

	err := w.ProcessPhoto(context.Background(), uuid.New(), uuid.New(), writeTempPhoto(t))
	require.Error(t, err)
	assert.Empty(t, coord.marked)
}

func TestProcessPhoto_MissingFileIsFatal(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	photo := seedUnprocessed(db, group)
	coord := &fakeCoordinator{}
	w := New(db, metadata.NewStubProbe(), &fakeBuilder{}, coord, thumbnail.Options{}, logging.NewNop())

	err := w.ProcessPhoto(context.Background(), photo.ID, group, "/nonexistent/orig.jpg")
	require.Error(t, err)
	assert.Empty(t, coord.marked)
	assert.False(t, db.Photo(photo.ID).IsProcessed)
}

func TestProcessPhoto_NoMetadataStillCompletes(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	photo := seedUnprocessed(db, group)
	path := writeTempPhoto(t)

	coord := &fakeCoordinator{}
	w := New(db, metadata.NewStubProbe(), &fakeBuilder{name: "thumb_x.jpg"}, coord, thumbnail.Options{}, logging.NewNop())
	require.NoError(t, w.ProcessPhoto(context.Background(), photo.ID, group, path))

	got := db.Photo(photo.ID)
	assert.Nil(t, got.ShotAt)
	assert.False(t, got.HasGPS())
	assert.True(t, got.IsProcessed)
	// Pending is still marked: the reconcile leaves undated photos in
	// Default but must run to recount.
	assert.Len(t, coord.marked, 1)
}

func TestProcessPhoto_ThumbnailFailureIsNonFatal(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	photo := seedUnprocessed(db, group)
	path := writeTempPhoto(t)

	builder := &fakeBuilder{err: errors.New("vips choked")}
	w := New(db, metadata.NewStubProbe(), builder, &fakeCoordinator{}, thumbnail.Options{}, logging.NewNop())
	require.NoError(t, w.ProcessPhoto(context.Background(), photo.ID, group, path))

	got := db.Photo(photo.ID)
	assert.Nil(t, got.FilenameThumb)
	assert.True(t, got.IsProcessed)
	require.NotNil(t, got.ProcessingError)
	assert.Contains(t, *got.ProcessingError, "vips choked")
}

type fakeJob[T any] struct {
	payload T
}

func (f fakeJob[T]) ID() string   { return "1" }
func (f fakeJob[T]) Kind() string { return "test" }
func (f fakeJob[T]) Payload() T   { return f.payload }
func (f fakeJob[T]) Attempt() int { return 1 }

func TestHandleProcessPhoto_MapsArgs(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	photo := seedUnprocessed(db, group)
	path := writeTempPhoto(t)

	coord := &fakeCoordinator{}
	w := New(db, metadata.NewStubProbe(), &fakeBuilder{name: "thumb_h.jpg"}, coord, thumbnail.Options{}, logging.NewNop())

	job := fakeJob[queue.ProcessPhotoArgs]{payload: queue.ProcessPhotoArgs{
		PhotoID:  photo.ID,
		GroupID:  group,
		FilePath: path,
	}}
	require.NoError(t, w.HandleProcessPhoto(context.Background(), job))
	assert.True(t, db.Photo(photo.ID).IsProcessed)
	assert.Equal(t, []uuid.UUID{group}, coord.marked)
}

func TestHandleClusterIfQuiet_DrivesCoordinator(t *testing.T) {
	coord := &fakeCoordinator{}
	w := New(storetest.NewMemoryStore(), metadata.NewStubProbe(), &fakeBuilder{}, coord, thumbnail.Options{}, logging.NewNop())

	group := uuid.New()
	job := fakeJob[queue.ClusterIfQuietArgs]{payload: queue.ClusterIfQuietArgs{GroupID: group, Attempt: 2}}
	require.NoError(t, w.HandleClusterIfQuiet(context.Background(), job))
	assert.Equal(t, []uuid.UUID{group}, coord.clustered)
}

func TestProcessPhoto_VideoUsesVideoKind(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	photo := db.SeedPhoto(models.Photo{
		GroupID:      group,
		UploaderID:   uuid.New(),
		FilenameOrig: "clip.mp4",
		FileSize:     10,
		MimeType:     "video/mp4",
	})
	path := writeTempPhoto(t)

	builder := &fakeBuilder{name: "thumb_v.jpg"}
	w := New(db, metadata.NewStubProbe(), builder, &fakeCoordinator{}, thumbnail.Options{}, logging.NewNop())
	require.NoError(t, w.ProcessPhoto(context.Background(), photo.ID, group, path))
	assert.True(t, db.Photo(photo.ID).IsProcessed)
	assert.True(t, builder.isVideo, "video/mp4 must be thumbnailed in video mode")
}
