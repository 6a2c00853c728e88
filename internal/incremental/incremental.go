// Package incremental is the operator-only fallback clustering path: a
// per-photo search-or-create attach, kept behind a feature flag for
// emergencies where a full reconcile cannot run. It is never called from
// the upload hot path; debounced batch reconciliation is canonical.
package incremental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"photomeet/internal/models"
	"photomeet/internal/store"
)

// ErrDisabled is returned when the feature flag is off.
var ErrDisabled = errors.New("incremental attach is disabled")

// Attacher performs single-photo attaches.
type Attacher struct {
	db      store.IncrementalStore
	gap     time.Duration
	enabled bool
	logger  *zap.Logger
}

// New builds an Attacher. enabled comes from ENABLE_INCREMENTAL_ATTACH; gap
// is the same MEETING_GAP_HOURS the Reconciler uses.
func New(db store.IncrementalStore, gap time.Duration, enabled bool, logger *zap.Logger) *Attacher {
	return &Attacher{db: db, gap: gap, enabled: enabled, logger: logger}
}

// Attach places one photo into an existing Auto meeting whose time range is
// within the gap of the photo's timestamp, creating a fresh Auto meeting if
// none qualifies. Undated photos go to the Default meeting.
//
// photo_count is deliberately not written here — only the Reconciler and
// the repair tool own it. An operator runbook pairs this lever with a
// `repair` run to restore the counts.
func (a *Attacher) Attach(ctx context.Context, photo models.Photo) (models.Meeting, error) {
	if !a.enabled {
		return models.Meeting{}, ErrDisabled
	}

	if photo.ShotAt == nil {
		def, err := a.db.EnsureDefaultMeeting(ctx, photo.GroupID)
		if err != nil {
			return models.Meeting{}, fmt.Errorf("ensure default meeting: %w", err)
		}
		if err := a.db.AssignPhoto(ctx, photo.ID, def.ID); err != nil {
			return models.Meeting{}, fmt.Errorf("assign to default: %w", err)
		}
		return def, nil
	}

	shotAt := *photo.ShotAt
	existing, err := a.db.FindAutoMeetingNear(ctx, photo.GroupID, shotAt, a.gap)
	if err != nil {
		return models.Meeting{}, fmt.Errorf("find auto meeting: %w", err)
	}

	if existing != nil {
		if shotAt.Before(existing.StartTime) {
			existing.StartTime = shotAt
		}
		if shotAt.After(existing.EndTime) {
			existing.EndTime = shotAt
		}
		if err := a.db.UpdateMeeting(ctx, existing); err != nil {
			return models.Meeting{}, fmt.Errorf("expand meeting window: %w", err)
		}
		if err := a.db.AssignPhoto(ctx, photo.ID, existing.ID); err != nil {
			return models.Meeting{}, fmt.Errorf("assign photo: %w", err)
		}
		if a.logger != nil {
			a.logger.Info("incremental attach to existing meeting",
				zap.String("photo_id", photo.ID.String()),
				zap.String("meeting_id", existing.ID.String()),
			)
		}
		return *existing, nil
	}

	date := time.Date(shotAt.Year(), shotAt.Month(), shotAt.Day(), 0, 0, 0, 0, shotAt.Location())
	created := models.Meeting{
		GroupID:     photo.GroupID,
		Title:       models.AutoMeetingTitle(date),
		Kind:        models.MeetingKindAuto,
		StartTime:   shotAt,
		EndTime:     shotAt,
		MeetingDate: &date,
	}
	if err := a.db.CreateMeeting(ctx, &created); err != nil {
		return models.Meeting{}, fmt.Errorf("create auto meeting: %w", err)
	}
	if err := a.db.AssignPhoto(ctx, photo.ID, created.ID); err != nil {
		return models.Meeting{}, fmt.Errorf("assign photo: %w", err)
	}
	if a.logger != nil {
		a.logger.Info("incremental attach created meeting",
			zap.String("photo_id", photo.ID.String()),
			zap.String("meeting_id", created.ID.String()),
		)
	}
	return created, nil
}
