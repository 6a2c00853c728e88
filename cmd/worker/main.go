// Command worker runs the photo-processing pipeline: the per-photo default
// queue and the per-group cluster queue, against Postgres and the
// coordination store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"photomeet/config"
	"photomeet/internal/coordinator"
	"photomeet/internal/db"
	"photomeet/internal/kv"
	"photomeet/internal/logging"
	"photomeet/internal/metadata"
	"photomeet/internal/queue"
	"photomeet/internal/reconcile"
	"photomeet/internal/store"
	"photomeet/internal/thumbnail"
	"photomeet/internal/worker"
)

func main() {
	config.LoadEnvironment()

	logger, err := logging.New()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("worker exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCfg := config.LoadDatabaseConfig()
	redisCfg := config.LoadRedisConfig()
	clusterCfg := config.LoadClusterConfig()
	thumbCfg := config.LoadThumbnailConfig()
	metaCfg := config.LoadMetadataConfig()
	workerCfg := config.LoadWorkerConfig()

	database, err := db.Connect(ctx, dbCfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.NewMigrator(dbCfg, "migrations", logger).Run(ctx, database.Pool); err != nil {
		return err
	}

	kvStore := kv.NewRedisStore(kv.Dial(redisCfg.Addr, redisCfg.Password, redisCfg.DB))
	gormStore := store.NewGormStore(database.Gorm)

	photoQueue := queue.NewRiverQueue[queue.ProcessPhotoArgs](database.Pool, logger)
	clusterQueue := queue.NewRiverQueue[queue.ClusterIfQuietArgs](database.Pool, logger)

	reconciler := reconcile.New(gormStore, time.Duration(clusterCfg.GapHours*float64(time.Hour)), logger)
	coord := coordinator.New(
		kvStore,
		worker.NewClusterScheduler(clusterQueue),
		reconciler,
		clusterCfg.DebounceTTL,
		clusterCfg.RetryDelay,
		clusterCfg.MaxRetries,
		logger,
	)

	w := worker.New(
		gormStore,
		metadata.NewExifToolProbe(metaCfg.ToolTimeout),
		thumbnail.NewBuilder(),
		coord,
		thumbnail.Options{
			MaxWidth:     thumbCfg.MaxWidth,
			MaxHeight:    thumbCfg.MaxHeight,
			Quality:      thumbCfg.Quality,
			ToolTimeout:  thumbCfg.ToolTimeout,
			VideoFrameAt: thumbCfg.VideoFrameAt,
		},
		logger,
	)

	defaultConcurrency := workerCfg.DefaultQueueConcurrency
	if defaultConcurrency <= 0 {
		defaultConcurrency = worker.AutoConcurrency()
	}

	photoQueue.RegisterWorker(queue.QueueDefault,
		queue.WorkerOptions{Concurrency: defaultConcurrency, JobTimeout: queue.DefaultJobTimeout},
		w.HandleProcessPhoto,
	)
	clusterQueue.RegisterWorker(queue.QueueCluster,
		queue.WorkerOptions{Concurrency: workerCfg.ClusterQueueConcurrency, JobTimeout: queue.DefaultJobTimeout},
		w.HandleClusterIfQuiet,
	)

	if err := photoQueue.Start(ctx); err != nil {
		return err
	}
	if err := clusterQueue.Start(ctx); err != nil {
		return err
	}
	logger.Info("worker started",
		zap.Int("default_concurrency", defaultConcurrency),
		zap.Int("cluster_concurrency", workerCfg.ClusterQueueConcurrency),
	)

	if clusterCfg.MetricsEnabled {
		go logMetrics(ctx, coord, logger)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := photoQueue.Stop(stopCtx); err != nil {
		logger.Warn("default queue stop", zap.Error(err))
	}
	if err := clusterQueue.Stop(stopCtx); err != nil {
		logger.Warn("cluster queue stop", zap.Error(err))
	}
	return nil
}

func logMetrics(ctx context.Context, coord *coordinator.Coordinator, logger *zap.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scheduled, rescheduled, runs := coord.Metrics().Snapshot()
			logger.Info("clustering metrics",
				zap.Int64("scheduled", scheduled),
				zap.Int64("rescheduled", rescheduled),
				zap.Int64("runs", runs),
			)
		}
	}
}
