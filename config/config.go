package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// IsDevelopmentMode reports whether the process is running in development mode.
func IsDevelopmentMode() bool {
	return strings.ToLower(os.Getenv("APP_ENV")) == "development"
}

// LoadEnvironment loads environment variables from the appropriate .env file.
// Call this once at the start of main() in every cmd/ entrypoint.
func LoadEnvironment() {
	envFile := ".env"
	if IsDevelopmentMode() {
		if _, err := os.Stat(".env.development"); err == nil {
			envFile = ".env.development"
		}
	}

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("running without %s, using environment variables", envFile)
	} else {
		log.Printf("environment variables loaded from %s", envFile)
	}
}

// DatabaseConfig holds the relational store connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSL      string
}

// LoadDatabaseConfig loads Postgres connection settings, falling back to
// DATABASE_URL-friendly defaults and allowing per-field overrides.
func LoadDatabaseConfig() DatabaseConfig {
	cfg := DatabaseConfig{
		Host:   "localhost",
		Port:   "5432",
		User:   "postgres",
		DBName: "photomeet",
		SSL:    "disable",
	}
	if IsDevelopmentMode() {
		cfg.Password = "postgres"
	}

	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.DBName = v
	}
	if v := os.Getenv("DB_SSL"); v != "" {
		cfg.SSL = v
	}
	return cfg
}

// DSN renders the libpq connection string used by pgx/gorm.
func (c DatabaseConfig) DSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSL
}

// RedisConfig holds the coordination-store connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoadRedisConfig loads the coordination-store settings.
func LoadRedisConfig() RedisConfig {
	cfg := RedisConfig{Addr: "localhost:6379", DB: 0}

	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Addr = url
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		host := v
		port := "6379"
		if p := os.Getenv("REDIS_PORT"); p != "" {
			port = p
		}
		cfg.Addr = host + ":" + port
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DB = n
		}
	}
	return cfg
}

// StorageConfig controls the local blob store layout.
type StorageConfig struct {
	Root string
}

// LoadStorageConfig loads the blob-store root directory.
func LoadStorageConfig() StorageConfig {
	cfg := StorageConfig{Root: "./data/uploads"}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Root = v
	}
	return cfg
}

// ClusterConfig controls the clustering kernel and debounce coordinator.
type ClusterConfig struct {
	GapHours                 float64
	DebounceTTL              time.Duration
	RetryDelay               time.Duration
	MaxRetries               int
	MetricsEnabled           bool
	IncrementalAttachEnabled bool
}

// LoadClusterConfig loads the meeting-clustering tunables.
func LoadClusterConfig() ClusterConfig {
	cfg := ClusterConfig{
		GapHours:       18,
		DebounceTTL:    5 * time.Second,
		RetryDelay:     3 * time.Second,
		MaxRetries:     3,
		MetricsEnabled: false,
	}

	if v := os.Getenv("MEETING_GAP_HOURS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.GapHours = f
		}
	}
	if v := os.Getenv("CLUSTER_DEBOUNCE_TTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DebounceTTL = clampSeconds(n, 5)
		}
	}
	if v := os.Getenv("CLUSTER_RETRY_DELAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RetryDelay = clampSeconds(n, 3)
		}
	}
	if v := os.Getenv("CLUSTER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRetries = n
		}
	}
	if v := strings.ToLower(os.Getenv("ENABLE_CLUSTERING_METRICS")); v == "true" {
		cfg.MetricsEnabled = true
	}
	if v := strings.ToLower(os.Getenv("ENABLE_INCREMENTAL_ATTACH")); v == "true" {
		cfg.IncrementalAttachEnabled = true
	}

	return cfg
}

func clampSeconds(n, floor int) time.Duration {
	if n < floor {
		n = floor
	}
	return time.Duration(n) * time.Second
}

// ThumbnailConfig controls derived-artifact generation.
type ThumbnailConfig struct {
	MaxWidth     int
	MaxHeight    int
	Quality      int
	ToolTimeout  time.Duration
	VideoFrameAt time.Duration
}

// LoadThumbnailConfig loads the thumbnail-builder tunables.
func LoadThumbnailConfig() ThumbnailConfig {
	cfg := ThumbnailConfig{
		MaxWidth:     512,
		MaxHeight:    512,
		Quality:      85,
		ToolTimeout:  30 * time.Second,
		VideoFrameAt: 1 * time.Second,
	}
	if v := os.Getenv("THUMBNAIL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxWidth, cfg.MaxHeight = n, n
		}
	}
	if v := os.Getenv("THUMBNAIL_QUALITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Quality = n
		}
	}
	if v := os.Getenv("THUMBNAIL_TOOL_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ToolTimeout = time.Duration(n) * time.Second
		}
	}
	return cfg
}

// MetadataConfig controls the metadata-probe subprocess.
type MetadataConfig struct {
	ToolTimeout time.Duration
}

// LoadMetadataConfig loads the metadata-probe tunables.
func LoadMetadataConfig() MetadataConfig {
	cfg := MetadataConfig{ToolTimeout: 15 * time.Second}
	if v := os.Getenv("METADATA_TOOL_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ToolTimeout = time.Duration(n) * time.Second
		}
	}
	return cfg
}

// WorkerConfig controls queue concurrency. A zero DefaultQueueConcurrency
// means "size from available cores and memory at startup".
type WorkerConfig struct {
	DefaultQueueConcurrency int
	ClusterQueueConcurrency int
}

// LoadWorkerConfig loads per-queue concurrency settings.
func LoadWorkerConfig() WorkerConfig {
	cfg := WorkerConfig{ClusterQueueConcurrency: 4}
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultQueueConcurrency = n
		}
	}
	return cfg
}
