package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

func (Photo) TableName() string {
	return "photos"
}

// RawMetadata is the opaque, JSON-serializable bag of fields a MetadataProbe
// returned. Only ShotAt and GPS are promoted to typed columns; everything
// else rides along here for display.
type RawMetadata map[string]interface{}

func (m RawMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *RawMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(b, m)
}

// Photo is the immutable-identity, mutable-derived-metadata record that the
// pipeline extracts, thumbnails, and clusters.
type Photo struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GroupID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_photos_group"`
	UploaderID uuid.UUID  `gorm:"type:uuid;not null"`
	MeetingID  *uuid.UUID `gorm:"type:uuid;index:idx_photos_meeting"`

	FilenameOrig  string  `gorm:"type:varchar(512);not null"`
	FilenameThumb *string `gorm:"type:varchar(512)"`
	FileSize      int64   `gorm:"not null"`
	FileHash      string  `gorm:"type:varchar(64);index"`
	MimeType      string  `gorm:"type:varchar(100);not null"`

	ShotAt *time.Time `gorm:"index:idx_photos_shot_at"`
	GPSLat *float64
	GPSLon *float64
	Exif   RawMetadata `gorm:"type:jsonb"`

	IsProcessed     bool `gorm:"default:false"`
	ProcessingError *string

	UploadedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt  *time.Time
}

// HasGPS reports whether both coordinates were resolved.
func (p Photo) HasGPS() bool {
	return p.GPSLat != nil && p.GPSLon != nil
}
