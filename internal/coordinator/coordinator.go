// Package coordinator implements the debounce coordinator: it
// collapses a burst of per-photo events into at most one reconciliation per
// group, executed only after a quiet period.
package coordinator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"photomeet/internal/kv"
)

// Reconciler is the thing a quiet group gets reconciled against. It is
// satisfied by *reconcile.Reconciler.
type Reconciler interface {
	Reconcile(ctx context.Context, groupID uuid.UUID) error
}

// Scheduler enqueues a cluster_if_quiet job after delay, on the dedicated
// cluster queue. It is satisfied by worker.ClusterScheduler.
type Scheduler interface {
	ScheduleClusterIfQuiet(ctx context.Context, groupID uuid.UUID, delay time.Duration, attempt int) error
}

// Metrics counts the coordinator's lifecycle events. Reads are racy against
// concurrent increments but accurate enough for operational dashboards; a
// nil *Metrics is legal and simply drops all counters.
type Metrics struct {
	scheduled   int64
	rescheduled int64
	runs        int64
}

func (m *Metrics) incScheduled() {
	if m != nil {
		atomic.AddInt64(&m.scheduled, 1)
	}
}

func (m *Metrics) incRescheduled() {
	if m != nil {
		atomic.AddInt64(&m.rescheduled, 1)
	}
}

func (m *Metrics) incRuns() {
	if m != nil {
		atomic.AddInt64(&m.runs, 1)
	}
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() (scheduled, rescheduled, runs int64) {
	if m == nil {
		return 0, 0, 0
	}
	return atomic.LoadInt64(&m.scheduled), atomic.LoadInt64(&m.rescheduled), atomic.LoadInt64(&m.runs)
}

// Coordinator implements the mark_cluster_pending / cluster_if_quiet state
// machine: exactly one reconcile per quiet period.
type Coordinator struct {
	store      kv.Store
	scheduler  Scheduler
	reconciler Reconciler
	logger     *zap.Logger
	metrics    *Metrics

	ttl        time.Duration // quiet window
	delay      time.Duration // first-attempt delay
	retryDelay time.Duration // 2x delay, used on reconcile failure
	maxRetries int
}

// New builds a Coordinator. ttl is CLUSTER_DEBOUNCE_TTL, delay is
// CLUSTER_RETRY_DELAY, and maxRetries is CLUSTER_MAX_RETRIES, all read
// once at startup.
func New(store kv.Store, scheduler Scheduler, reconciler Reconciler, ttl, delay time.Duration, maxRetries int, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:      store,
		scheduler:  scheduler,
		reconciler: reconciler,
		logger:     logger,
		metrics:    &Metrics{},
		ttl:        ttl,
		delay:      delay,
		retryDelay: 2 * delay,
		maxRetries: maxRetries,
	}
}

// Metrics exposes the coordinator's counters for tests and dashboards.
func (c *Coordinator) Metrics() *Metrics { return c.metrics }

func pendingKey(groupID uuid.UUID) string { return fmt.Sprintf("cluster:pending:%s", groupID) }
func jobKey(groupID uuid.UUID) string     { return fmt.Sprintf("cluster:job:%s", groupID) }
func countKey(groupID uuid.UUID) string   { return fmt.Sprintf("cluster:count:%s", groupID) }

// MarkClusterPending refreshes the quiet window for groupID and, if no
// cluster_if_quiet job is already scheduled, schedules one. If the KV store
// is unavailable this degrades to a no-op: the photo stays attached to the
// group's Default meeting and a later batch repair reconciles it.
func (c *Coordinator) MarkClusterPending(ctx context.Context, groupID uuid.UUID) error {
	p, j := pendingKey(groupID), jobKey(groupID)

	if err := c.store.SetEX(ctx, p, "1", c.ttl); err != nil {
		if c.logger != nil {
			c.logger.Warn("coordinator degraded: kv unavailable", zap.Error(err), zap.String("group_id", groupID.String()))
		}
		return nil
	}
	if _, err := c.store.Incr(ctx, countKey(groupID)); err != nil && c.logger != nil {
		c.logger.Warn("coordinator count increment failed", zap.Error(err))
	}

	exists, err := c.store.Exists(ctx, j)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("coordinator degraded: kv unavailable", zap.Error(err), zap.String("group_id", groupID.String()))
		}
		return nil
	}
	if exists {
		return nil
	}

	if err := c.scheduler.ScheduleClusterIfQuiet(ctx, groupID, c.delay, 0); err != nil {
		return fmt.Errorf("schedule cluster_if_quiet: %w", err)
	}
	if err := c.store.SetEX(ctx, j, "1", c.ttl+c.delay+30*time.Second); err != nil && c.logger != nil {
		c.logger.Warn("coordinator job-key setex failed", zap.Error(err))
	}
	c.metrics.incScheduled()
	return nil
}

// ClusterIfQuiet is the cluster_if_quiet(g) handler. attempt counts prior
// reconcile failures for this invocation chain, carried through the job
// payload since retries are self-rescheduled rather than River-native.
func (c *Coordinator) ClusterIfQuiet(ctx context.Context, groupID uuid.UUID, attempt int) error {
	p, j, cnt := pendingKey(groupID), jobKey(groupID), countKey(groupID)

	live, err := c.store.Exists(ctx, p)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("coordinator degraded: kv unavailable", zap.Error(err), zap.String("group_id", groupID.String()))
		}
		return nil
	}
	if live {
		ttl, err := c.store.TTL(ctx, p)
		if err == nil && ttl >= 2*time.Second {
			c.metrics.incRescheduled()
			return c.scheduler.ScheduleClusterIfQuiet(ctx, groupID, c.delay, attempt)
		}
		// ttl < 2s: an edge case to avoid livelock when the burst never
		// quite ends — proceed to reconcile now.
	}

	c.metrics.incRuns()
	if err := c.reconciler.Reconcile(ctx, groupID); err != nil {
		if c.logger != nil {
			c.logger.Error("reconcile failed", zap.Error(err), zap.String("group_id", groupID.String()), zap.Int("attempt", attempt))
		}
		if attempt+1 >= c.maxRetries {
			_ = c.store.Delete(ctx, p, j, cnt)
			return nil
		}
		if schedErr := c.scheduler.ScheduleClusterIfQuiet(ctx, groupID, c.retryDelay, attempt+1); schedErr != nil {
			// Rescheduling also failed: clear keys as a last resort so the
			// group doesn't stay permanently busy.
			_ = c.store.Delete(ctx, p, j, cnt)
		}
		return nil
	}

	return c.store.Delete(ctx, p, j, cnt)
}
