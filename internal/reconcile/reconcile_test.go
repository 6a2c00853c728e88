package reconcile

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

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tt, err := time.Parse("2006-01-02T15:04:05", s)
	require.NoError(t, err)
	return tt
}

func newPhoto(groupID uuid.UUID, shotAt *time.Time) models.Photo {
	return models.Photo{
		GroupID:      groupID,
		UploaderID:   uuid.New(),
		FilenameOrig: "orig.jpg",
		FileSize:     1,
		MimeType:     "image/jpeg",
		ShotAt:       shotAt,
	}
}

func TestReconcile_SimpleCluster(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	defaultMeeting, err := db.EnsureDefaultMeeting(context.Background(), group)
	require.NoError(t, err)

	times := []time.Time{
		mustTime(t, "2025-06-10T09:00:00"),
		mustTime(t, "2025-06-10T10:00:00"),
		mustTime(t, "2025-06-10T15:00:00"),
	}
	for _, tt := range times {
		tt := tt
		p := newPhoto(group, &tt)
		p.MeetingID = &defaultMeeting.ID
		db.SeedPhoto(p)
	}

	r := New(db, 18*time.Hour, logging.NewNop())
	require.NoError(t, r.Reconcile(context.Background(), group))

	meetings := db.MeetingsByGroup(group)
	var auto, def *models.Meeting
	for i := range meetings {
		if meetings[i].IsAuto() {
			auto = &meetings[i]
		}
		if meetings[i].IsDefault() {
			def = &meetings[i]
		}
	}
	require.NotNil(t, auto)
	require.NotNil(t, def)
	assert.Equal(t, "Meeting 2025-06-10", auto.Title)
	assert.Equal(t, 3, auto.PhotoCount)
	assert.Equal(t, times[0], auto.StartTime)
	assert.Equal(t, times[2], auto.EndTime)
	assert.Equal(t, 0, def.PhotoCount)
}

func TestReconcile_GapSplit(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	defaultMeeting, _ := db.EnsureDefaultMeeting(context.Background(), group)

	times := []time.Time{
		mustTime(t, "2025-06-10T09:00:00"),
		mustTime(t, "2025-06-10T10:00:00"),
		mustTime(t, "2025-06-11T06:00:00"),
		mustTime(t, "2025-06-11T07:00:00"),
	}
	for _, tt := range times {
		tt := tt
		p := newPhoto(group, &tt)
		p.MeetingID = &defaultMeeting.ID
		db.SeedPhoto(p)
	}

	r := New(db, 18*time.Hour, logging.NewNop())
	require.NoError(t, r.Reconcile(context.Background(), group))

	meetings := db.MeetingsByGroup(group)
	var autos []models.Meeting
	for _, m := range meetings {
		if m.IsAuto() {
			autos = append(autos, m)
		}
	}
	require.Len(t, autos, 2)
	for _, m := range autos {
		assert.Equal(t, 2, m.PhotoCount)
	}
}

func TestReconcile_UndatedPhotoStaysDefault(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	defaultMeeting, _ := db.EnsureDefaultMeeting(context.Background(), group)

	times := []time.Time{
		mustTime(t, "2025-06-10T09:00:00"),
		mustTime(t, "2025-06-10T10:00:00"),
		mustTime(t, "2025-06-10T15:00:00"),
	}
	for _, tt := range times {
		tt := tt
		p := newPhoto(group, &tt)
		p.MeetingID = &defaultMeeting.ID
		db.SeedPhoto(p)
	}
	undated := newPhoto(group, nil)
	undated.MeetingID = &defaultMeeting.ID
	db.SeedPhoto(undated)

	r := New(db, 18*time.Hour, logging.NewNop())
	require.NoError(t, r.Reconcile(context.Background(), group))

	meetings := db.MeetingsByGroup(group)
	var auto, def *models.Meeting
	for i := range meetings {
		if meetings[i].IsAuto() {
			auto = &meetings[i]
		}
		if meetings[i].IsDefault() {
			def = &meetings[i]
		}
	}
	require.NotNil(t, auto)
	require.NotNil(t, def)
	assert.Equal(t, 3, auto.PhotoCount)
	assert.Equal(t, 1, def.PhotoCount)
}

func TestReconcile_ManualMeetingPreserved(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	_, _ = db.EnsureDefaultMeeting(context.Background(), group)

	anniversary := db.SeedMeeting(models.Meeting{GroupID: group, Title: "Anniversary", PhotoCount: 1})
	annPhotoTime := mustTime(t, "2020-01-01T00:00:00")
	annPhoto := newPhoto(group, &annPhotoTime)
	annPhoto.MeetingID = &anniversary.ID
	db.SeedPhoto(annPhoto)

	defaultMeeting, _ := db.EnsureDefaultMeeting(context.Background(), group)
	times := []time.Time{
		mustTime(t, "2025-06-10T09:00:00"),
		mustTime(t, "2025-06-10T10:00:00"),
	}
	for _, tt := range times {
		tt := tt
		p := newPhoto(group, &tt)
		p.MeetingID = &defaultMeeting.ID
		db.SeedPhoto(p)
	}

	r := New(db, 18*time.Hour, logging.NewNop())
	require.NoError(t, r.Reconcile(context.Background(), group))

	updatedAnniversary := db.Meeting(anniversary.ID)
	assert.Equal(t, "Anniversary", updatedAnniversary.Title)
	assert.Equal(t, 1, updatedAnniversary.PhotoCount)

	meetings := db.MeetingsByGroup(group)
	var auto, def *models.Meeting
	for i := range meetings {
		if meetings[i].IsAuto() {
			auto = &meetings[i]
		}
		if meetings[i].IsDefault() {
			def = &meetings[i]
		}
	}
	require.NotNil(t, auto)
	require.NotNil(t, def)
	assert.Equal(t, 2, auto.PhotoCount)
	assert.Equal(t, 0, def.PhotoCount)
}

func TestReconcile_Idempotent(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	defaultMeeting, _ := db.EnsureDefaultMeeting(context.Background(), group)

	times := []time.Time{
		mustTime(t, "2025-06-10T09:00:00"),
		mustTime(t, "2025-06-10T10:00:00"),
		mustTime(t, "2025-06-11T06:00:00"),
	}
	for _, tt := range times {
		tt := tt
		p := newPhoto(group, &tt)
		p.MeetingID = &defaultMeeting.ID
		db.SeedPhoto(p)
	}

	r := New(db, 18*time.Hour, logging.NewNop())
	require.NoError(t, r.Reconcile(context.Background(), group))
	first := db.MeetingsByGroup(group)

	require.NoError(t, r.Reconcile(context.Background(), group))
	second := db.MeetingsByGroup(group)

	// Auto meetings are pruned and recreated with fresh ids on every run, so
	// meetings are paired by title rather than by position.
	require.Equal(t, len(first), len(second))
	secondByTitle := make(map[string]models.Meeting, len(second))
	for _, m := range second {
		secondByTitle[m.Title] = m
	}
	for _, f := range first {
		s, ok := secondByTitle[f.Title]
		require.True(t, ok, "meeting %q missing after second reconcile", f.Title)
		assert.Equal(t, f.PhotoCount, s.PhotoCount)
		assert.Equal(t, f.StartTime, s.StartTime)
		assert.Equal(t, f.EndTime, s.EndTime)
	}
}

func TestReconcile_NoTimestampedPhotosIsNoop(t *testing.T) {
	db := storetest.NewMemoryStore()
	group := uuid.New()
	r := New(db, 18*time.Hour, logging.NewNop())
	assert.NoError(t, r.Reconcile(context.Background(), group))
}
