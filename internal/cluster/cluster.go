// Package cluster implements the single-pass, gap-based clustering kernel
// that partitions a group's photos into meetings. It is a pure function:
// no I/O, no store, no clock reads beyond the timestamps it is handed.
//
// This is a one-dimensional specialization of the windowed-grouping idea
// used for geographic photo clustering elsewhere in this corpus (group
// consecutive, sorted records by a maximum gap) — with no location
// attractor step, since GPS never participates in clustering here.
package cluster

import (
	"sort"
	"time"
)

// Record is the minimal shape the kernel needs from a photo: an opaque id
// and a possibly-absent timestamp.
type Record struct {
	ID     string
	ShotAt *time.Time
}

// Bucket is one emitted cluster. Dated buckets carry a MeetingDate; the
// single undated bucket (if any) has MeetingDate == nil.
type Bucket struct {
	MeetingDate *time.Time
	Records     []Record
	Start       time.Time
	End         time.Time
}

// DefaultGap is the fallback gap when none is configured; MEETING_GAP_HOURS
// is the actual single source of truth at runtime.
const DefaultGap = 18 * time.Hour

// Cluster partitions records into time-contiguous buckets. Two adjacent
// (sorted) dated records land in the same bucket when their timestamp delta
// is <= gap; strictly greater starts a new bucket. Undated records are
// passed through untouched as a single trailing bucket with MeetingDate nil.
//
// Deterministic and stable under permutation of the input: dated records are
// stably sorted ascending by timestamp before bucketing, so bucket
// membership, Start, End and MeetingDate depend only on the multiset of
// (id, timestamp) pairs, not the input order. Records with equal timestamps
// keep their input order within a bucket.
func Cluster(records []Record, gap time.Duration) []Bucket {
	if gap <= 0 {
		gap = DefaultGap
	}

	var dated, undated []Record
	for _, r := range records {
		if r.ShotAt == nil {
			undated = append(undated, r)
		} else {
			dated = append(dated, r)
		}
	}

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].ShotAt.Before(*dated[j].ShotAt)
	})

	var buckets []Bucket
	var current []Record
	for i, r := range dated {
		if i == 0 {
			current = []Record{r}
			continue
		}
		prev := dated[i-1]
		delta := r.ShotAt.Sub(*prev.ShotAt)
		if delta <= gap {
			current = append(current, r)
			continue
		}
		buckets = append(buckets, closeBucket(current))
		current = []Record{r}
	}
	if len(current) > 0 {
		buckets = append(buckets, closeBucket(current))
	}

	if len(undated) > 0 {
		buckets = append(buckets, Bucket{Records: undated})
	}

	return buckets
}

func closeBucket(records []Record) Bucket {
	start := *records[0].ShotAt
	end := start
	for _, r := range records {
		if r.ShotAt.Before(start) {
			start = *r.ShotAt
		}
		if r.ShotAt.After(end) {
			end = *r.ShotAt
		}
	}
	date := dateOf(start)
	return Bucket{
		MeetingDate: &date,
		Records:     records,
		Start:       start,
		End:         end,
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
