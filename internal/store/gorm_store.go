package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"photomeet/internal/models"
)

// GormStore implements ReconcileStore, RepairStore, IngestStore,
// WorkerStore, and IncrementalStore against a single *gorm.DB. Callers that
// need transactional isolation go through WithinTransaction, which binds a
// fresh GormStore to the transaction's *gorm.DB and hands it to the
// callback — the same repository-over-gorm.DB shape the rest of this
// codebase's adapters use.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an already-connected *gorm.DB.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx ReconcileStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &GormStore{db: tx})
	})
}

func (s *GormStore) LockGroupMeetings(ctx context.Context, groupID uuid.UUID) ([]models.Meeting, error) {
	var meetings []models.Meeting
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("group_id = ?", groupID).
		Order("id").
		Find(&meetings).Error
	return meetings, err
}

// LoadReclusterablePhotos returns timestamped photos not owned by a manual
// meeting: meeting_id is null, or points at the Default/Auto meeting. This
// is what keeps the Park phase from ever touching a manual meeting's
// photos — see DESIGN.md for why "the group's timestamped photos" is
// resolved this way.
func (s *GormStore) LoadReclusterablePhotos(ctx context.Context, groupID uuid.UUID) ([]models.Photo, error) {
	var photos []models.Photo
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND shot_at IS NOT NULL", groupID).
		Where("meeting_id IS NULL OR meeting_id IN (?)",
			s.db.Model(&models.Meeting{}).Select("id").
				Where("group_id = ? AND kind IN ?", groupID, []models.MeetingKind{models.MeetingKindDefault, models.MeetingKindAuto}),
		).
		Order("id").
		Find(&photos).Error
	return photos, err
}

func (s *GormStore) EnsureDefaultMeeting(ctx context.Context, groupID uuid.UUID) (models.Meeting, error) {
	var existing models.Meeting
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND kind = ?", groupID, models.MeetingKindDefault).
		First(&existing).Error
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Meeting{}, err
	}

	fresh := models.Meeting{
		GroupID: groupID,
		Title:   models.DefaultMeetingTitle(),
		Kind:    models.MeetingKindDefault,
	}
	if err := s.db.WithContext(ctx).Create(&fresh).Error; err != nil {
		if isUniqueViolation(err) {
			// Expected race: someone else created it first. Re-read.
			var reread models.Meeting
			if rerr := s.db.WithContext(ctx).
				Where("group_id = ? AND kind = ?", groupID, models.MeetingKindDefault).
				First(&reread).Error; rerr != nil {
				return models.Meeting{}, rerr
			}
			return reread, nil
		}
		return models.Meeting{}, err
	}
	return fresh, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (s *GormStore) CountPhotosInMeeting(ctx context.Context, meetingID uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Photo{}).Where("meeting_id = ?", meetingID).Count(&count).Error
	return int(count), err
}

func (s *GormStore) ReassignPhotos(ctx context.Context, photoIDs []uuid.UUID, meetingID uuid.UUID) error {
	if len(photoIDs) == 0 {
		return nil
	}
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.Photo{}).
		Where("id IN ?", photoIDs).
		Updates(map[string]any{"meeting_id": meetingID, "updated_at": now}).Error
}

func (s *GormStore) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	m.Kind = models.KindForTitle(m.Title)
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *GormStore) UpdateMeeting(ctx context.Context, m *models.Meeting) error {
	m.Kind = models.KindForTitle(m.Title)
	now := time.Now()
	m.UpdatedAt = &now
	return s.db.WithContext(ctx).Save(m).Error
}

func (s *GormStore) DeleteMeeting(ctx context.Context, meetingID uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.Meeting{}, "id = ?", meetingID).Error
}

// --- RepairStore ---

func (s *GormStore) ListMeetingIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Meeting{}).Pluck("id", &ids).Error
	return ids, err
}

func (s *GormStore) GetMeeting(ctx context.Context, meetingID uuid.UUID) (models.Meeting, error) {
	var m models.Meeting
	err := s.db.WithContext(ctx).First(&m, "id = ?", meetingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return m, ErrNotFound
	}
	return m, err
}

func (s *GormStore) UpdateMeetingCount(ctx context.Context, meetingID uuid.UUID, count int) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.Meeting{}).Where("id = ?", meetingID).
		Updates(map[string]any{"photo_count": count, "updated_at": now}).Error
}

func (s *GormStore) CountAllPhotos(ctx context.Context) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Photo{}).Count(&count).Error
	return int(count), err
}

// --- IngestStore ---

func (s *GormStore) CreatePhoto(ctx context.Context, photo *models.Photo) error {
	return s.db.WithContext(ctx).Create(photo).Error
}

func (s *GormStore) DeletePhoto(ctx context.Context, photoID uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.Photo{}, "id = ?", photoID).Error
}

// --- WorkerStore ---

func (s *GormStore) GetPhoto(ctx context.Context, photoID uuid.UUID) (models.Photo, error) {
	var p models.Photo
	err := s.db.WithContext(ctx).First(&p, "id = ?", photoID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *GormStore) UpdatePhotoMetadata(ctx context.Context, photo models.Photo) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.Photo{}).Where("id = ?", photo.ID).
		Updates(map[string]any{
			"shot_at":    photo.ShotAt,
			"gps_lat":    photo.GPSLat,
			"gps_lon":    photo.GPSLon,
			"exif":       photo.Exif,
			"updated_at": now,
		}).Error
}

func (s *GormStore) UpdatePhotoThumbnail(ctx context.Context, photoID uuid.UUID, thumbFilename *string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.Photo{}).Where("id = ?", photoID).
		Updates(map[string]any{"filename_thumb": thumbFilename, "updated_at": now}).Error
}

func (s *GormStore) MarkPhotoProcessed(ctx context.Context, photoID uuid.UUID, processingError *string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.Photo{}).Where("id = ?", photoID).
		Updates(map[string]any{"is_processed": true, "processing_error": processingError, "updated_at": now}).Error
}

// --- IncrementalStore ---

// FindAutoMeetingNear is the incremental attach lever's search-or-create
// lookup: the newest Auto meeting whose [start,end] is within gap of
// shotAt.
func (s *GormStore) FindAutoMeetingNear(ctx context.Context, groupID uuid.UUID, shotAt time.Time, gap time.Duration) (*models.Meeting, error) {
	lower := shotAt.Add(-gap)
	upper := shotAt.Add(gap)
	var m models.Meeting
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND kind = ?", groupID, models.MeetingKindAuto).
		Where("start_time <= ? AND end_time >= ?", upper, lower).
		Order("start_time DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *GormStore) AssignPhoto(ctx context.Context, photoID uuid.UUID, meetingID uuid.UUID) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.Photo{}).Where("id = ?", photoID).
		Updates(map[string]any{"meeting_id": meetingID, "updated_at": now}).Error
}
