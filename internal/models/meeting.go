package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func (Meeting) TableName() string {
	return "meetings"
}

// MeetingKind mirrors the category a Meeting's title implies. It is
// maintained alongside Title on every write, never read independently of it,
// so the two can never drift (see the title-prefix fragility note this
// project carries forward from its design notes).
type MeetingKind string

const (
	MeetingKindDefault MeetingKind = "default"
	MeetingKindAuto    MeetingKind = "auto"
	MeetingKindManual  MeetingKind = "manual"
)

const defaultMeetingTitle = "Default Meeting"
const autoMeetingTitlePrefix = "Meeting "
const autoMeetingDateLayout = "2006-01-02"

// Meeting is a group-scoped, time-bounded bucket of photos.
type Meeting struct {
	ID      uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GroupID uuid.UUID   `gorm:"type:uuid;not null;index:idx_meetings_group"`
	Title   string      `gorm:"type:varchar(255);not null"`
	Kind    MeetingKind `gorm:"type:varchar(20);not null;default:manual"`

	StartTime   time.Time
	EndTime     time.Time
	MeetingDate *time.Time `gorm:"type:date;index:idx_meetings_date"`

	PhotoCount int `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt *time.Time
}

// IsDefault reports whether this is the group's sentinel Default meeting.
func (m Meeting) IsDefault() bool {
	return m.Kind == MeetingKindDefault || m.Title == defaultMeetingTitle
}

// IsAuto reports whether this meeting was produced by reconciliation.
func (m Meeting) IsAuto() bool {
	if m.Kind == MeetingKindAuto {
		return true
	}
	return autoMeetingTitleDate(m.Title) != ""
}

// IsManual reports whether this meeting must never be touched by
// reconciliation.
func (m Meeting) IsManual() bool {
	return !m.IsDefault() && !m.IsAuto()
}

// AutoMeetingTitle renders the canonical title for an auto meeting covering
// the given date.
func AutoMeetingTitle(date time.Time) string {
	return fmt.Sprintf("%s%s", autoMeetingTitlePrefix, date.Format(autoMeetingDateLayout))
}

// DefaultMeetingTitle renders the sentinel Default meeting's title.
func DefaultMeetingTitle() string {
	return defaultMeetingTitle
}

// autoMeetingTitleDate returns the date portion of an auto meeting's title,
// or "" if title does not match the "Meeting <date>" pattern.
func autoMeetingTitleDate(title string) string {
	if !strings.HasPrefix(title, autoMeetingTitlePrefix) {
		return ""
	}
	candidate := strings.TrimPrefix(title, autoMeetingTitlePrefix)
	if _, err := time.Parse(autoMeetingDateLayout, candidate); err != nil {
		return ""
	}
	return candidate
}

// KindForTitle derives the Kind that corresponds to title, for use whenever
// a Meeting row is constructed or its title is set.
func KindForTitle(title string) MeetingKind {
	if title == defaultMeetingTitle {
		return MeetingKindDefault
	}
	if autoMeetingTitleDate(title) != "" {
		return MeetingKindAuto
	}
	return MeetingKindManual
}
