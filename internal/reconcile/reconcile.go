// Package reconcile implements the idempotent rebuild of a group's meeting
// set from its current photos. It is the only writer of Meeting.
// photo_count besides the repair tool — see DESIGN.md's resolution of the
// corresponding open question.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"photomeet/internal/cluster"
	"photomeet/internal/models"
	"photomeet/internal/store"
)

// Reconciler rebuilds a group's meeting set to match the gap-based
// clustering of its current, reclusterable photos.
type Reconciler struct {
	db     store.ReconcileStore
	gap    time.Duration
	logger *zap.Logger
}

// New builds a Reconciler. gap is MEETING_GAP_HOURS, read once at startup.
func New(db store.ReconcileStore, gap time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{db: db, gap: gap, logger: logger}
}

// Reconcile rebuilds groupID's meeting set. It runs inside a single logical
// transaction (internal flushes only); any failure rolls everything back
// and returns an error so the caller can schedule a retry.
func (r *Reconciler) Reconcile(ctx context.Context, groupID uuid.UUID) error {
	return r.db.WithinTransaction(ctx, func(ctx context.Context, tx store.ReconcileStore) error {
		return r.reconcileTx(ctx, tx, groupID)
	})
}

func (r *Reconciler) reconcileTx(ctx context.Context, tx store.ReconcileStore, groupID uuid.UUID) error {
	photos, err := tx.LoadReclusterablePhotos(ctx, groupID)
	if err != nil {
		return fmt.Errorf("load reclusterable photos: %w", err)
	}
	if len(photos) == 0 {
		return nil
	}

	defaultMeeting, err := tx.EnsureDefaultMeeting(ctx, groupID)
	if err != nil {
		return fmt.Errorf("ensure default meeting: %w", err)
	}

	// Acquire the group's meetings before writing, to minimize deadlock
	// surface against other transactions writing this group's meeting rows.
	existingMeetings, err := tx.LockGroupMeetings(ctx, groupID)
	if err != nil {
		return fmt.Errorf("lock group meetings: %w", err)
	}
	autoByDate := make(map[string]models.Meeting, len(existingMeetings))
	for _, m := range existingMeetings {
		if m.IsAuto() && m.MeetingDate != nil {
			autoByDate[m.MeetingDate.Format("2006-01-02")] = m
		}
	}

	// Park phase: every reclusterable photo goes to Default first, so the
	// prune phase below can never hit a foreign-key conflict.
	photoIDs := make([]uuid.UUID, len(photos))
	for i, p := range photos {
		photoIDs[i] = p.ID
	}
	if err := tx.ReassignPhotos(ctx, photoIDs, defaultMeeting.ID); err != nil {
		return fmt.Errorf("park phase: %w", err)
	}

	// Prune phase: delete Auto meetings that are now empty.
	for date, m := range autoByDate {
		count, err := tx.CountPhotosInMeeting(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("count auto meeting %s: %w", date, err)
		}
		if count == 0 {
			if err := tx.DeleteMeeting(ctx, m.ID); err != nil {
				return fmt.Errorf("prune auto meeting %s: %w", date, err)
			}
			delete(autoByDate, date)
		}
	}

	records := make([]cluster.Record, len(photos))
	byID := make(map[string]models.Photo, len(photos))
	for i, p := range photos {
		records[i] = cluster.Record{ID: p.ID.String(), ShotAt: p.ShotAt}
		byID[p.ID.String()] = p
	}
	buckets := cluster.Cluster(records, r.gap)

	// Assign phase.
	for _, bucket := range buckets {
		if bucket.MeetingDate == nil {
			// LoadReclusterablePhotos returns timestamped photos only, so
			// no undated bucket arises here; undated photos are neither
			// parked nor moved and keep the meeting the upload path gave
			// them (Default).
			continue
		}
		dateKey := bucket.MeetingDate.Format("2006-01-02")
		ids := make([]uuid.UUID, len(bucket.Records))
		for i, rec := range bucket.Records {
			ids[i] = byID[rec.ID].ID
		}

		if existing, ok := autoByDate[dateKey]; ok {
			merged := existing
			if bucket.Start.Before(merged.StartTime) {
				merged.StartTime = bucket.Start
			}
			if bucket.End.After(merged.EndTime) {
				merged.EndTime = bucket.End
			}
			merged.PhotoCount += len(bucket.Records)
			if err := tx.UpdateMeeting(ctx, &merged); err != nil {
				return fmt.Errorf("merge auto meeting %s: %w", dateKey, err)
			}
			autoByDate[dateKey] = merged
			if err := tx.ReassignPhotos(ctx, ids, merged.ID); err != nil {
				return fmt.Errorf("assign photos to %s: %w", dateKey, err)
			}
			continue
		}

		date := *bucket.MeetingDate
		created := models.Meeting{
			GroupID:     groupID,
			Title:       models.AutoMeetingTitle(date),
			Kind:        models.MeetingKindAuto,
			StartTime:   bucket.Start,
			EndTime:     bucket.End,
			MeetingDate: &date,
			PhotoCount:  len(bucket.Records),
		}
		if err := tx.CreateMeeting(ctx, &created); err != nil {
			return fmt.Errorf("create auto meeting %s: %w", dateKey, err)
		}
		autoByDate[dateKey] = created
		if err := tx.ReassignPhotos(ctx, ids, created.ID); err != nil {
			return fmt.Errorf("assign photos to new %s: %w", dateKey, err)
		}
	}

	// Recompute the Default meeting's photo_count from live state.
	defaultCount, err := tx.CountPhotosInMeeting(ctx, defaultMeeting.ID)
	if err != nil {
		return fmt.Errorf("count default meeting: %w", err)
	}
	defaultMeeting.PhotoCount = defaultCount
	if err := tx.UpdateMeeting(ctx, &defaultMeeting); err != nil {
		return fmt.Errorf("update default meeting: %w", err)
	}

	if r.logger != nil {
		r.logger.Debug("reconciled group",
			zap.String("group_id", groupID.String()),
			zap.Int("photo_count", len(photos)),
			zap.Int("bucket_count", len(buckets)),
		)
	}
	return nil
}
