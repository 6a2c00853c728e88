package queue

import (
	"context"
	"strconv"
	"time"

	"github.com/riverqueue/river"
)

// jobWrapper adapts a dequeued River job to the Job[T] contract.
type jobWrapper[T Kinded] struct {
	rjob *river.Job[T]
}

func (j *jobWrapper[T]) ID() string {
	return strconv.FormatInt(j.rjob.ID, 10)
}

func (j *jobWrapper[T]) Kind() string {
	return j.rjob.Args.Kind()
}

func (j *jobWrapper[T]) Payload() T {
	return j.rjob.Args
}

func (j *jobWrapper[T]) Attempt() int {
	return j.rjob.Attempt
}

// genericWorker turns a plain handler func into a river.Worker, carrying the
// registration's hard per-job timeout.
type genericWorker[T Kinded] struct {
	river.WorkerDefaults[T]
	handler func(ctx context.Context, job Job[T]) error
	timeout time.Duration
}

func (w *genericWorker[T]) Timeout(job *river.Job[T]) time.Duration {
	if w.timeout > 0 {
		return w.timeout
	}
	return DefaultJobTimeout
}

func (w *genericWorker[T]) Work(ctx context.Context, job *river.Job[T]) error {
	return w.handler(ctx, &jobWrapper[T]{rjob: job})
}
