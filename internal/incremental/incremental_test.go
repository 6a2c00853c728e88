package incremental

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photomeet/internal/logging"
	"photomeet/internal/models"
	"photomeet/internal/store/storetest"
)

const gap = 18 * time.Hour

func TestAttach_DisabledByDefault(t *testing.T) {
	a := New(storetest.NewMemoryStore(), gap, false, logging.NewNop())
	_, err := a.Attach(context.Background(), models.Photo{ID: uuid.New(), GroupID: uuid.New()})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestAttach_UndatedGoesToDefault(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	photo := db.SeedPhoto(models.Photo{GroupID: group, UploaderID: uuid.New(), FilenameOrig: "p.jpg", FileSize: 1, MimeType: "image/jpeg"})

	a := New(db, gap, true, logging.NewNop())
	meeting, err := a.Attach(context.Background(), photo)
	require.NoError(t, err)

	assert.True(t, meeting.IsDefault())
	got := db.Photo(photo.ID)
	require.NotNil(t, got.MeetingID)
	assert.Equal(t, meeting.ID, *got.MeetingID)
}

func TestAttach_JoinsNearbyAutoMeetingAndExpandsWindow(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()

	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	existing := db.SeedMeeting(models.Meeting{
		GroupID:     group,
		Title:       models.AutoMeetingTitle(date),
		StartTime:   date.Add(9 * time.Hour),
		EndTime:     date.Add(12 * time.Hour),
		MeetingDate: &date,
	})

	shotAt := date.Add(15 * time.Hour)
	photo := db.SeedPhoto(models.Photo{GroupID: group, UploaderID: uuid.New(), FilenameOrig: "p.jpg", FileSize: 1, MimeType: "image/jpeg", ShotAt: &shotAt})

	a := New(db, gap, true, logging.NewNop())
	meeting, err := a.Attach(context.Background(), photo)
	require.NoError(t, err)

	assert.Equal(t, existing.ID, meeting.ID)
	updated := db.Meeting(existing.ID)
	assert.Equal(t, shotAt, updated.EndTime, "window expands to cover the new photo")
	got := db.Photo(photo.ID)
	require.NotNil(t, got.MeetingID)
	assert.Equal(t, existing.ID, *got.MeetingID)
}

func TestAttach_CreatesMeetingWhenNoneNearby(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()

	shotAt := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	photo := db.SeedPhoto(models.Photo{GroupID: group, UploaderID: uuid.New(), FilenameOrig: "p.jpg", FileSize: 1, MimeType: "image/jpeg", ShotAt: &shotAt})

	a := New(db, gap, true, logging.NewNop())
	meeting, err := a.Attach(context.Background(), photo)
	require.NoError(t, err)

	assert.True(t, meeting.IsAuto())
	assert.Equal(t, "Meeting 2025-06-10", meeting.Title)
	assert.Equal(t, shotAt, meeting.StartTime)
	assert.Equal(t, shotAt, meeting.EndTime)
}

func TestAttach_DoesNotTouchPhotoCount(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()

	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	existing := db.SeedMeeting(models.Meeting{
		GroupID:     group,
		Title:       models.AutoMeetingTitle(date),
		StartTime:   date.Add(9 * time.Hour),
		EndTime:     date.Add(12 * time.Hour),
		MeetingDate: &date,
		PhotoCount:  3,
	})

	shotAt := date.Add(10 * time.Hour)
	photo := db.SeedPhoto(models.Photo{GroupID: group, UploaderID: uuid.New(), FilenameOrig: "p.jpg", FileSize: 1, MimeType: "image/jpeg", ShotAt: &shotAt})

	a := New(db, gap, true, logging.NewNop())
	_, err := a.Attach(context.Background(), photo)
	require.NoError(t, err)

	assert.Equal(t, 3, db.Meeting(existing.ID).PhotoCount, "counts belong to reconcile and repair")
}
