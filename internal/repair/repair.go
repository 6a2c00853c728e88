// Package repair implements the count repair tool: an offline sweep
// that recomputes every meeting's photo_count from the photo rows, the only
// writer of photo_count besides the Reconciler.
package repair

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"photomeet/internal/store"
	"photomeet/internal/utils/errgroup"
)

// Options controls one sweep.
type Options struct {
	// DryRun reports mismatches without writing.
	DryRun bool
	// RemoveEmpty additionally deletes Auto meetings whose live photo
	// count is zero.
	RemoveEmpty bool
	// Concurrency bounds the per-meeting fan-out; <= 0 picks a small
	// default safe to run against a live database.
	Concurrency int
}

const defaultConcurrency = 4

// Mismatch records one meeting whose stored count disagreed with the rows.
type Mismatch struct {
	MeetingID uuid.UUID
	Title     string
	Recorded  int
	Actual    int
}

// Report summarizes a sweep.
type Report struct {
	MeetingsChecked int
	Mismatches      []Mismatch
	Fixed           int
	Removed         int
	// TotalPhotoCount is the sum of photo_count over surviving meetings
	// after the sweep (or the would-be sum under DryRun).
	TotalPhotoCount int
	// TotalPhotos is the live photo row count.
	TotalPhotos int
}

// Consistent reports whether the global invariant holds: the sum of
// photo_count equals the number of photo rows.
func (r Report) Consistent() bool {
	return r.TotalPhotoCount == r.TotalPhotos
}

// Repairer runs sweeps against the store.
type Repairer struct {
	db     store.RepairStore
	logger *zap.Logger
}

// New builds a Repairer.
func New(db store.RepairStore, logger *zap.Logger) *Repairer {
	return &Repairer{db: db, logger: logger}
}

// Run performs one sweep. Point reads and point writes per meeting only, so
// it is safe during live traffic; a concurrent reconcile may briefly race a
// count but both converge. Idempotent: a second run right after finds
// nothing to fix.
func (r *Repairer) Run(ctx context.Context, opts Options) (Report, error) {
	ids, err := r.db.ListMeetingIDs(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list meetings: %w", err)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var mu sync.Mutex
	report := Report{}

	g := errgroup.NewFaultTolerant(concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return r.repairMeeting(ctx, id, opts, &mu, &report)
		})
	}
	sweepErrs := g.Wait()

	total, err := r.db.CountAllPhotos(ctx)
	if err != nil {
		return report, fmt.Errorf("count photos: %w", err)
	}
	report.TotalPhotos = total

	if len(sweepErrs) > 0 {
		return report, fmt.Errorf("repair sweep: %w", errors.Join(sweepErrs...))
	}
	return report, nil
}

func (r *Repairer) repairMeeting(ctx context.Context, id uuid.UUID, opts Options, mu *sync.Mutex, report *Report) error {
	m, err := r.db.GetMeeting(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted since listing; a reconcile pruned it. Nothing to do.
			return nil
		}
		return fmt.Errorf("meeting %s: %w", id, err)
	}

	actual, err := r.db.CountPhotosInMeeting(ctx, id)
	if err != nil {
		return fmt.Errorf("count meeting %s: %w", id, err)
	}

	removed := false
	if opts.RemoveEmpty && m.IsAuto() && actual == 0 {
		if !opts.DryRun {
			if err := r.db.DeleteMeeting(ctx, id); err != nil {
				return fmt.Errorf("remove empty meeting %s: %w", id, err)
			}
		}
		removed = true
	}

	mismatch := actual != m.PhotoCount
	if mismatch && !removed && !opts.DryRun {
		if err := r.db.UpdateMeetingCount(ctx, id, actual); err != nil {
			return fmt.Errorf("update meeting %s: %w", id, err)
		}
	}

	if mismatch && r.logger != nil {
		r.logger.Info("photo_count mismatch",
			zap.String("meeting_id", id.String()),
			zap.String("title", m.Title),
			zap.Int("recorded", m.PhotoCount),
			zap.Int("actual", actual),
			zap.Bool("dry_run", opts.DryRun),
		)
	}

	mu.Lock()
	defer mu.Unlock()
	report.MeetingsChecked++
	if removed {
		report.Removed++
	} else {
		report.TotalPhotoCount += actual
	}
	if mismatch {
		report.Mismatches = append(report.Mismatches, Mismatch{
			MeetingID: id,
			Title:     m.Title,
			Recorded:  m.PhotoCount,
			Actual:    actual,
		})
		if !removed && !opts.DryRun {
			report.Fixed++
		}
	}
	return nil
}
