package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	mgpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"

	"photomeet/config"
)

// Migrator applies the schema migrations this module owns and then River's
// own queue tables, so one startup call brings both up to date.
type Migrator struct {
	cfg    config.DatabaseConfig
	dir    string
	logger *zap.Logger
}

// NewMigrator builds a Migrator reading SQL files from dir (usually
// "migrations").
func NewMigrator(cfg config.DatabaseConfig, dir string, logger *zap.Logger) *Migrator {
	if dir == "" {
		dir = "migrations"
	}
	return &Migrator{cfg: cfg, dir: dir, logger: logger}
}

// Run applies pending schema migrations and then River's queue migrations
// against pool. Already-current is not an error.
func (m *Migrator) Run(ctx context.Context, pool *pgxpool.Pool) error {
	if err := m.migrateSchema(ctx); err != nil {
		return err
	}
	return m.migrateRiver(ctx, pool)
}

func (m *Migrator) migrateSchema(ctx context.Context) error {
	absDir, err := filepath.Abs(m.dir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	sourceURL := fmt.Sprintf("file://%s", absDir)

	sqlDB, err := sql.Open("pgx", m.databaseURL())
	if err != nil {
		return fmt.Errorf("sql open: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	driver, err := mgpg.WithInstance(sqlDB, &mgpg.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver instance: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}

	err = migrator.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		if m.logger != nil {
			m.logger.Info("schema is up to date")
		}
	case err != nil:
		return fmt.Errorf("migrate up: %w", err)
	default:
		if m.logger != nil {
			m.logger.Info("schema migrations applied", zap.String("source", sourceURL))
		}
	}
	return nil
}

func (m *Migrator) migrateRiver(ctx context.Context, pool *pgxpool.Pool) error {
	riverMigrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("init river migrator: %w", err)
	}
	res, err := riverMigrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	if m.logger != nil && len(res.Versions) > 0 {
		m.logger.Info("river migrations applied", zap.Int("count", len(res.Versions)))
	}
	return nil
}

func (m *Migrator) databaseURL() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%s/%s?sslmode=%s&search_path=public",
		url.QueryEscape(m.cfg.User),
		url.QueryEscape(m.cfg.Password),
		m.cfg.Host,
		m.cfg.Port,
		m.cfg.DBName,
		m.cfg.SSL,
	)
}
