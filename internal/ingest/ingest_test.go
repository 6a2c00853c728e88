package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photomeet/internal/logging"
	"photomeet/internal/queue"
	"photomeet/internal/storage"
	"photomeet/internal/store/storetest"
)

type fakeEnqueuer struct {
	jobs []queue.ProcessPhotoArgs
	err  error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, payload queue.ProcessPhotoArgs) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, payload)
	return "1", nil
}

func newService(t *testing.T, q Enqueuer) (*Service, *storetest.MemoryStore, *storage.LocalStorage) {
	t.Helper()
	db := storetest.NewMemoryStore()
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return New(db, blobs, q, logging.NewNop()), db, blobs
}

func TestIngest_CreatesRowAndEnqueues(t *testing.T) {
	q := &fakeEnqueuer{}
	svc, db, blobs := newService(t, q)
	group := uuid.New()

	photo, err := svc.Ingest(context.Background(), Request{
		GroupID:    group,
		UploaderID: uuid.New(),
		Filename:   "holiday.jpg",
		MimeType:   "image/jpeg",
		Content:    strings.NewReader("jpeg bytes"),
	})
	require.NoError(t, err)

	got := db.Photo(photo.ID)
	require.NotNil(t, got.MeetingID)
	def, err := db.EnsureDefaultMeeting(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, def.ID, *got.MeetingID, "new photos attach to the Default meeting")
	assert.Equal(t, int64(len("jpeg bytes")), got.FileSize)
	assert.NotEmpty(t, got.FileHash)
	assert.True(t, strings.HasSuffix(got.FilenameOrig, ".jpg"))

	exists, err := blobs.Exists(context.Background(), group, got.FilenameOrig)
	require.NoError(t, err)
	assert.True(t, exists)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, photo.ID, q.jobs[0].PhotoID)
	assert.Equal(t, group, q.jobs[0].GroupID)
	assert.Equal(t, blobs.AbsPath(group, got.FilenameOrig), q.jobs[0].FilePath)
}

func TestIngest_SameHashForIdenticalContent(t *testing.T) {
	svc, db, _ := newService(t, &fakeEnqueuer{})
	group := uuid.New()

	first, err := svc.Ingest(context.Background(), Request{
		GroupID: group, UploaderID: uuid.New(),
		Filename: "a.jpg", MimeType: "image/jpeg",
		Content: strings.NewReader("identical"),
	})
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), Request{
		GroupID: group, UploaderID: uuid.New(),
		Filename: "b.jpg", MimeType: "image/jpeg",
		Content: strings.NewReader("identical"),
	})
	require.NoError(t, err)

	assert.Equal(t, db.Photo(first.ID).FileHash, db.Photo(second.ID).FileHash)
	assert.NotEqual(t, db.Photo(first.ID).FilenameOrig, db.Photo(second.ID).FilenameOrig)
}

func TestIngest_EnqueueFailureLeavesNoOrphans(t *testing.T) {
	root := t.TempDir()
	db := storetest.NewMemoryStore()
	blobs, err := storage.NewLocalStorage(root)
	require.NoError(t, err)
	svc := New(db, blobs, &fakeEnqueuer{err: errors.New("queue down")}, logging.NewNop())
	group := uuid.New()

	_, err = svc.Ingest(context.Background(), Request{
		GroupID:    group,
		UploaderID: uuid.New(),
		Filename:   "holiday.jpg",
		MimeType:   "image/jpeg",
		Content:    strings.NewReader("jpeg bytes"),
	})
	require.ErrorIs(t, err, ErrEnqueueFailed)

	count, err := db.CountAllPhotos(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "no orphan row")

	entries, err := os.ReadDir(filepath.Join(root, group.String()))
	require.NoError(t, err)
	assert.Empty(t, entries, "no orphan file")
}
