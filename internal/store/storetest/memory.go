// Package storetest provides an in-memory fake satisfying every interface
// in internal/store, so the Reconciler, Worker, and Repair Tool can be
// exercised in tests without a live Postgres instance.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"photomeet/internal/models"
	"photomeet/internal/store"
)

// MemoryStore is a mutex-guarded, in-memory implementation of every
// internal/store interface.
type MemoryStore struct {
	mu       sync.Mutex
	photos   map[uuid.UUID]models.Photo
	meetings map[uuid.UUID]models.Meeting
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		photos:   make(map[uuid.UUID]models.Photo),
		meetings: make(map[uuid.UUID]models.Meeting),
	}
}

// SeedPhoto inserts a photo directly, bypassing ingest, for test setup.
func (s *MemoryStore) SeedPhoto(p models.Photo) models.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.photos[p.ID] = p
	return p
}

// SeedMeeting inserts a meeting directly, for test setup.
func (s *MemoryStore) SeedMeeting(m models.Meeting) models.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.Kind = models.KindForTitle(m.Title)
	s.meetings[m.ID] = m
	return m
}

// Photo returns the current row for id, for test assertions.
func (s *MemoryStore) Photo(id uuid.UUID) models.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photos[id]
}

// Meeting returns the current row for id, for test assertions.
func (s *MemoryStore) Meeting(id uuid.UUID) models.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meetings[id]
}

// MeetingsByGroup returns a stable-ordered snapshot of a group's meetings.
func (s *MemoryStore) MeetingsByGroup(groupID uuid.UUID) []models.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Meeting
	for _, m := range s.meetings {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func clonePhotos(in map[uuid.UUID]models.Photo) map[uuid.UUID]models.Photo {
	out := make(map[uuid.UUID]models.Photo, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneMeetings(in map[uuid.UUID]models.Meeting) map[uuid.UUID]models.Meeting {
	out := make(map[uuid.UUID]models.Meeting, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// WithinTransaction snapshots state, runs fn, and restores the snapshot if
// fn returns an error — approximating rollback for tests.
func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx store.ReconcileStore) error) error {
	s.mu.Lock()
	photosBackup := clonePhotos(s.photos)
	meetingsBackup := cloneMeetings(s.meetings)
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.photos = photosBackup
		s.meetings = meetingsBackup
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemoryStore) LockGroupMeetings(ctx context.Context, groupID uuid.UUID) ([]models.Meeting, error) {
	return s.MeetingsByGroup(groupID), nil
}

func (s *MemoryStore) LoadReclusterablePhotos(ctx context.Context, groupID uuid.UUID) ([]models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Photo
	for _, p := range s.photos {
		if p.GroupID != groupID || p.ShotAt == nil {
			continue
		}
		if p.MeetingID != nil {
			if m, ok := s.meetings[*p.MeetingID]; ok && m.IsManual() {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *MemoryStore) EnsureDefaultMeeting(ctx context.Context, groupID uuid.UUID) (models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.meetings {
		if m.GroupID == groupID && m.IsDefault() {
			return m, nil
		}
	}
	m := models.Meeting{
		ID:      uuid.New(),
		GroupID: groupID,
		Title:   models.DefaultMeetingTitle(),
		Kind:    models.MeetingKindDefault,
	}
	s.meetings[m.ID] = m
	return m, nil
}

func (s *MemoryStore) CountPhotosInMeeting(ctx context.Context, meetingID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.photos {
		if p.MeetingID != nil && *p.MeetingID == meetingID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ReassignPhotos(ctx context.Context, photoIDs []uuid.UUID, meetingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, id := range photoIDs {
		p := s.photos[id]
		p.MeetingID = &meetingID
		p.UpdatedAt = &now
		s.photos[id] = p
	}
	return nil
}

func (s *MemoryStore) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.Kind = models.KindForTitle(m.Title)
	s.meetings[m.ID] = *m
	return nil
}

func (s *MemoryStore) UpdateMeeting(ctx context.Context, m *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	m.UpdatedAt = &now
	m.Kind = models.KindForTitle(m.Title)
	s.meetings[m.ID] = *m
	return nil
}

func (s *MemoryStore) DeleteMeeting(ctx context.Context, meetingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meetings, meetingID)
	return nil
}

// --- RepairStore ---

func (s *MemoryStore) ListMeetingIDs(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.meetings))
	for id := range s.meetings {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) GetMeeting(ctx context.Context, meetingID uuid.UUID) (models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return models.Meeting{}, store.ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) UpdateMeetingCount(ctx context.Context, meetingID uuid.UUID, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return store.ErrNotFound
	}
	m.PhotoCount = count
	now := time.Now()
	m.UpdatedAt = &now
	s.meetings[meetingID] = m
	return nil
}

func (s *MemoryStore) CountAllPhotos(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.photos), nil
}

// --- IngestStore ---

func (s *MemoryStore) CreatePhoto(ctx context.Context, photo *models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if photo.ID == uuid.Nil {
		photo.ID = uuid.New()
	}
	s.photos[photo.ID] = *photo
	return nil
}

func (s *MemoryStore) DeletePhoto(ctx context.Context, photoID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.photos, photoID)
	return nil
}

// --- WorkerStore ---

func (s *MemoryStore) GetPhoto(ctx context.Context, photoID uuid.UUID) (models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[photoID]
	if !ok {
		return models.Photo{}, store.ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) UpdatePhotoMetadata(ctx context.Context, photo models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[photo.ID]
	if !ok {
		return store.ErrNotFound
	}
	p.ShotAt = photo.ShotAt
	p.GPSLat = photo.GPSLat
	p.GPSLon = photo.GPSLon
	p.Exif = photo.Exif
	now := time.Now()
	p.UpdatedAt = &now
	s.photos[photo.ID] = p
	return nil
}

func (s *MemoryStore) UpdatePhotoThumbnail(ctx context.Context, photoID uuid.UUID, thumbFilename *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[photoID]
	if !ok {
		return store.ErrNotFound
	}
	p.FilenameThumb = thumbFilename
	now := time.Now()
	p.UpdatedAt = &now
	s.photos[photoID] = p
	return nil
}

func (s *MemoryStore) MarkPhotoProcessed(ctx context.Context, photoID uuid.UUID, processingError *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[photoID]
	if !ok {
		return store.ErrNotFound
	}
	p.IsProcessed = true
	p.ProcessingError = processingError
	now := time.Now()
	p.UpdatedAt = &now
	s.photos[photoID] = p
	return nil
}

// --- IncrementalStore ---

func (s *MemoryStore) FindAutoMeetingNear(ctx context.Context, groupID uuid.UUID, shotAt time.Time, gap time.Duration) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.Meeting
	for id, m := range s.meetings {
		if m.GroupID != groupID || !m.IsAuto() {
			continue
		}
		if m.StartTime.Add(-gap).After(shotAt) || m.EndTime.Add(gap).Before(shotAt) {
			continue
		}
		mm := s.meetings[id]
		if best == nil || mm.StartTime.After(best.StartTime) {
			best = &mm
		}
	}
	return best, nil
}

func (s *MemoryStore) AssignPhoto(ctx context.Context, photoID uuid.UUID, meetingID uuid.UUID) error {
	return s.ReassignPhotos(ctx, []uuid.UUID{photoID}, meetingID)
}
