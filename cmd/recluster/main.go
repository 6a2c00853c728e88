// Command recluster is the operator lever for clustering outside the
// debounced pipeline.
//
//	recluster --group <uuid>                     run a full reconcile now
//	recluster --photo <uuid> --incremental       attach one photo without a
//	                                             full reconcile (requires
//	                                             ENABLE_INCREMENTAL_ATTACH)
//	recluster --list-pending                     show groups with a live
//	                                             quiet window or scheduled
//	                                             reconcile
//
// The incremental path does not maintain photo_count; follow it with a
// `repair` run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"photomeet/config"
	"photomeet/internal/db"
	"photomeet/internal/incremental"
	"photomeet/internal/kv"
	"photomeet/internal/logging"
	"photomeet/internal/models"
	"photomeet/internal/reconcile"
	"photomeet/internal/store"
)

func main() {
	groupArg := flag.String("group", "", "group id to reconcile")
	photoArg := flag.String("photo", "", "photo id to attach (with --incremental)")
	useIncremental := flag.Bool("incremental", false, "use the per-photo attach fallback")
	listPending := flag.Bool("list-pending", false, "list groups with live coordination keys")
	flag.Parse()

	config.LoadEnvironment()

	logger, err := logging.New()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*groupArg, *photoArg, *useIncremental, *listPending, logger); err != nil {
		logger.Error("recluster failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(groupArg, photoArg string, useIncremental, listPending bool, logger *zap.Logger) error {
	ctx := context.Background()
	clusterCfg := config.LoadClusterConfig()
	gap := time.Duration(clusterCfg.GapHours * float64(time.Hour))

	if listPending {
		return printPendingGroups(ctx)
	}

	database, err := db.Connect(ctx, config.LoadDatabaseConfig(), logger)
	if err != nil {
		return err
	}
	defer database.Close()
	gormStore := store.NewGormStore(database.Gorm)

	switch {
	case useIncremental:
		if photoArg == "" {
			return errors.New("--incremental requires --photo")
		}
		photoID, err := models.ParseUUID(photoArg)
		if err != nil {
			return fmt.Errorf("--photo: %w", err)
		}
		photo, err := gormStore.GetPhoto(ctx, photoID)
		if err != nil {
			return fmt.Errorf("load photo: %w", err)
		}
		attacher := incremental.New(gormStore, gap, clusterCfg.IncrementalAttachEnabled, logger)
		meeting, err := attacher.Attach(ctx, photo)
		if err != nil {
			return err
		}
		fmt.Printf("attached %s to meeting %s %q\n", photoID, meeting.ID, meeting.Title)
		fmt.Println("note: run `repair` to restore photo_count")
		return nil

	case groupArg != "":
		groupID, err := models.ParseUUID(groupArg)
		if err != nil {
			return fmt.Errorf("--group: %w", err)
		}
		reconciler := reconcile.New(gormStore, gap, logger)
		if err := reconciler.Reconcile(ctx, groupID); err != nil {
			return err
		}
		fmt.Printf("reconciled group %s\n", groupID)
		return nil

	default:
		return errors.New("one of --group, --photo with --incremental, or --list-pending is required")
	}
}

func printPendingGroups(ctx context.Context) error {
	redisCfg := config.LoadRedisConfig()
	kvStore := kv.NewRedisStore(kv.Dial(redisCfg.Addr, redisCfg.Password, redisCfg.DB))

	for _, pattern := range []string{"cluster:pending:*", "cluster:job:*"} {
		keys, err := kvStore.Keys(ctx, pattern)
		if err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		for _, key := range keys {
			ttl, err := kvStore.TTL(ctx, key)
			if err != nil {
				return fmt.Errorf("ttl %s: %w", key, err)
			}
			fmt.Printf("%s ttl=%s\n", key, ttl.Round(time.Second))
		}
	}
	return nil
}
