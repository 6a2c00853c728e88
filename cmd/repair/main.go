// Command repair recomputes every meeting's photo_count from the photo
// rows. Safe to run during live traffic.
//
//	repair --dry-run        report mismatches, change nothing
//	repair                  apply fixes
//	repair --remove-empty   additionally delete empty Auto meetings
//
// Exit code 0 on success, 1 on unexpected error.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"photomeet/config"
	"photomeet/internal/db"
	"photomeet/internal/logging"
	"photomeet/internal/repair"
	"photomeet/internal/store"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report mismatches without writing")
	removeEmpty := flag.Bool("remove-empty", false, "delete Auto meetings with zero photos")
	concurrency := flag.Int("concurrency", 0, "per-meeting sweep concurrency (0 = default)")
	flag.Parse()

	config.LoadEnvironment()

	logger, err := logging.New()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*dryRun, *removeEmpty, *concurrency, logger); err != nil {
		logger.Error("repair failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(dryRun, removeEmpty bool, concurrency int, logger *zap.Logger) error {
	ctx := context.Background()

	database, err := db.Connect(ctx, config.LoadDatabaseConfig(), logger)
	if err != nil {
		return err
	}
	defer database.Close()

	repairer := repair.New(store.NewGormStore(database.Gorm), logger)
	report, err := repairer.Run(ctx, repair.Options{
		DryRun:      dryRun,
		RemoveEmpty: removeEmpty,
		Concurrency: concurrency,
	})
	if err != nil {
		return err
	}

	fmt.Printf("meetings checked:  %d\n", report.MeetingsChecked)
	fmt.Printf("mismatches found:  %d\n", len(report.Mismatches))
	fmt.Printf("counts fixed:      %d\n", report.Fixed)
	fmt.Printf("meetings removed:  %d\n", report.Removed)
	fmt.Printf("sum(photo_count):  %d\n", report.TotalPhotoCount)
	fmt.Printf("count(photos):     %d\n", report.TotalPhotos)
	for _, m := range report.Mismatches {
		fmt.Printf("  %s %q recorded=%d actual=%d\n", m.MeetingID, m.Title, m.Recorded, m.Actual)
	}

	if !dryRun && !report.Consistent() {
		return fmt.Errorf("totals diverge after repair: sum(photo_count)=%d count(photos)=%d",
			report.TotalPhotoCount, report.TotalPhotos)
	}
	return nil
}
