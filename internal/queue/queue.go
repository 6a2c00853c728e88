// Package queue is the durable job-queue adapter: a narrow contract
// over River that the worker, ingest, and coordinator packages depend on
// without knowing the backing client.
package queue

import (
	"context"
	"time"
)

// Kinded is the payload contract: every job payload names its own job kind,
// which is also how the backing queue dispatches to workers.
type Kinded interface {
	Kind() string
}

// Job is a dequeued unit of work as the handler sees it.
type Job[T any] interface {
	ID() string
	Kind() string
	Payload() T
	Attempt() int
}

type JobType string

// The job kinds this pipeline registers.
const (
	// JobTypeProcessPhoto is the per-photo pipeline job: extract metadata,
	// mark the group pending, build a thumbnail, persist.
	JobTypeProcessPhoto JobType = "process_photo"

	// JobTypeClusterIfQuiet is the per-group debounced reconcile job.
	JobTypeClusterIfQuiet JobType = "cluster_if_quiet"
)

// Named queues. Reconcile jobs never share a queue with per-photo jobs, so
// a slow reconcile can't delay thumbnail/EXIF work.
const (
	QueueDefault = "default"
	QueueCluster = "cluster"
)

// DefaultJobTimeout is the hard per-job timeout when a registration does not
// override it.
const DefaultJobTimeout = 300 * time.Second

// WorkerOptions configures a registered worker pool.
type WorkerOptions struct {
	Concurrency int
	JobTimeout  time.Duration
}

// Queue is the durable at-least-once job queue contract. Payloads route to
// their named queue through their own insert options; handlers must be
// idempotent.
type Queue[T Kinded] interface {
	// Enqueue inserts a job to run as soon as a worker is free.
	Enqueue(ctx context.Context, payload T) (jobID string, err error)
	// EnqueueIn inserts a job scheduled to run after delay.
	EnqueueIn(ctx context.Context, payload T, delay time.Duration) (jobID string, err error)

	// RegisterWorker attaches a handler and sizes queueName's worker pool.
	// Must be called before Start.
	RegisterWorker(
		queueName string,
		opts WorkerOptions,
		handler func(ctx context.Context, job Job[T]) error,
	)

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
