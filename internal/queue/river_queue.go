package queue

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"
)

// RiverQueue adapts Queue[T] onto a River client. Each instance is bound to
// a single payload type T: the process wires one RiverQueue[ProcessPhotoArgs]
// and one RiverQueue[ClusterIfQuietArgs] over the same pgx pool.
type RiverQueue[T Kinded] struct {
	dbPool       *pgxpool.Pool
	logger       *zap.Logger
	workers      *river.Workers
	queueConfigs map[string]river.QueueConfig
	client       *river.Client[pgx.Tx]
}

// NewRiverQueue builds a queue adapter over an existing pgx pool.
func NewRiverQueue[T Kinded](dbPool *pgxpool.Pool, logger *zap.Logger) *RiverQueue[T] {
	return &RiverQueue[T]{
		dbPool:       dbPool,
		logger:       logger,
		workers:      river.NewWorkers(),
		queueConfigs: make(map[string]river.QueueConfig),
	}
}

// Enqueue inserts a job to run as soon as a worker is free. The payload's
// own InsertOpts pick the queue.
func (r *RiverQueue[T]) Enqueue(ctx context.Context, payload T) (string, error) {
	result, err := r.client.Insert(ctx, asJobArgs(payload), nil)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(result.Job.ID, 10), nil
}

// EnqueueIn inserts a job scheduled to run after delay.
func (r *RiverQueue[T]) EnqueueIn(ctx context.Context, payload T, delay time.Duration) (string, error) {
	opts := &river.InsertOpts{ScheduledAt: time.Now().Add(delay)}
	result, err := r.client.Insert(ctx, asJobArgs(payload), opts)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(result.Job.ID, 10), nil
}

// RegisterWorker attaches handler and sizes queueName's worker pool. River
// dispatches by the payload's Kind(), so one registered worker type serves
// every job this RiverQueue's payload type describes.
func (r *RiverQueue[T]) RegisterWorker(
	queueName string,
	opts WorkerOptions,
	handler func(ctx context.Context, job Job[T]) error,
) {
	r.queueConfigs[queueName] = river.QueueConfig{MaxWorkers: opts.Concurrency}
	river.AddWorker(r.workers, &genericWorker[T]{handler: handler, timeout: opts.JobTimeout})
}

func (r *RiverQueue[T]) Start(ctx context.Context) error {
	cfg := &river.Config{
		Queues:       r.queueConfigs,
		Workers:      r.workers,
		ErrorHandler: &logErrorHandler{logger: r.logger},
	}
	cli, err := river.NewClient(riverpgxv5.New(r.dbPool), cfg)
	if err != nil {
		return err
	}
	r.client = cli
	return r.client.Start(ctx)
}

func (r *RiverQueue[T]) Stop(ctx context.Context) error {
	return r.client.Stop(ctx)
}

// asJobArgs narrows a Kinded payload to river.JobArgs. Every payload type in
// this package satisfies both; the indirection keeps the Queue contract free
// of a River import on the caller's side.
func asJobArgs(payload any) river.JobArgs {
	return payload.(river.JobArgs)
}

// logErrorHandler surfaces failed and panicked jobs through the process
// logger; retry scheduling stays with River's own policy.
type logErrorHandler struct {
	logger *zap.Logger
}

func (h *logErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	if h.logger != nil {
		h.logger.Error("job errored",
			zap.Int64("job_id", job.ID),
			zap.String("kind", job.Kind),
			zap.Int("attempt", job.Attempt),
			zap.Error(err),
		)
	}
	return nil
}

func (h *logErrorHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	if h.logger != nil {
		h.logger.Error("job panicked",
			zap.Int64("job_id", job.ID),
			zap.String("kind", job.Kind),
			zap.Any("panic", panicVal),
		)
	}
	return nil
}
