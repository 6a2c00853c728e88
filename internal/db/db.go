// Package db owns the process-scoped database handles: a gorm.DB for the
// repository layer and a pgx pool for the durable queue. Both are built once
// at startup and injected; no package-level globals.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"photomeet/config"
	"photomeet/internal/models"
)

const (
	connectRetries   = 5
	connectBaseDelay = 2 * time.Second
)

// DB bundles the two connection handles the process needs.
type DB struct {
	Gorm *gorm.DB
	Pool *pgxpool.Pool
}

// Connect opens both handles. The initial gorm connection is retried, which
// is routine in containerized bring-up where Postgres starts alongside us;
// the pgx pool is then created and pinged once, without retry.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	gdb, err := openGorm(cfg, logger)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Gorm: gdb, Pool: pool}, nil
}

func openGorm(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var gdb *gorm.DB
	var err error
	for attempt := 1; attempt <= connectRetries; attempt++ {
		gdb, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
		if err == nil {
			if sqlDB, derr := gdb.DB(); derr == nil {
				err = sqlDB.Ping()
			} else {
				err = derr
			}
		}
		if err == nil {
			break
		}
		if logger != nil {
			logger.Warn("database not ready, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		time.Sleep(connectBaseDelay * time.Duration(attempt))
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// Dev bring-up convenience only; production schemas come from the
	// migrations directory.
	if config.IsDevelopmentMode() {
		if err := gdb.AutoMigrate(&models.Meeting{}, &models.Photo{}); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		gdb.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_meetings_default_per_group
			ON meetings (group_id) WHERE kind = 'default'`)
	}

	return gdb, nil
}

// Close releases both handles.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Gorm != nil {
		if sqlDB, err := db.Gorm.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
