package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/planner/internal/backup"
)

// Storage backends for the key-value substrate.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	// Storage
	Backend     string
	DBPath      string
	RedisURL    string
	RedisPrefix string

	// Reconciler
	SweepInterval time.Duration

	// Logging
	LogLevel string

	// Startup
	Seed          bool
	SeedSalt      uint64
	RepairOnStart bool

	// Monitoring
	MetricsAddr string

	// Snapshots. SnapshotInterval of zero disables autosave.
	SnapshotInterval time.Duration
	BackupPath       string
	BackupPassphrase string
	BackupS3         backup.S3Config
}

// LoadDotenv reads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() (*Config, error) {
	cfg := &Config{
		Backend:     getEnv("PLANNER_BACKEND", BackendSQLite),
		DBPath:      getEnv("PLANNER_DB_PATH", "planner.db"),
		RedisURL:    getEnv("PLANNER_REDIS_URL", "localhost:6379"),
		RedisPrefix: getEnv("PLANNER_REDIS_PREFIX", "planner:"),

		SweepInterval: getEnvAsDuration("PLANNER_SWEEP_INTERVAL", "1s"),

		LogLevel: getEnv("PLANNER_LOG_LEVEL", "info"),

		Seed:          getEnvAsBool("PLANNER_SEED", false),
		SeedSalt:      uint64(getEnvAsInt("PLANNER_SEED_VALUE", 1)),
		RepairOnStart: getEnvAsBool("PLANNER_REPAIR_ON_START", false),

		MetricsAddr: getEnv("PLANNER_METRICS_ADDR", ""),

		SnapshotInterval: getEnvAsDuration("PLANNER_SNAPSHOT_INTERVAL", "2s"),
		BackupPath:       getEnv("PLANNER_BACKUP_PATH", ""),
		BackupPassphrase: getEnv("PLANNER_BACKUP_PASSPHRASE", ""),
		BackupS3: backup.S3Config{
			Endpoint:  getEnv("PLANNER_BACKUP_S3_ENDPOINT", ""),
			Bucket:    getEnv("PLANNER_BACKUP_S3_BUCKET", ""),
			Region:    getEnv("PLANNER_BACKUP_S3_REGION", "auto"),
			AccessKey: getEnv("PLANNER_BACKUP_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("PLANNER_BACKUP_S3_SECRET_KEY", ""),
			Prefix:    getEnv("PLANNER_BACKUP_S3_PREFIX", ""),
		},
	}

	switch cfg.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return nil, fmt.Errorf("PLANNER_BACKEND: unknown backend %q", cfg.Backend)
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("PLANNER_SWEEP_INTERVAL must be positive, got %s", cfg.SweepInterval)
	}
	if cfg.SnapshotInterval < 0 {
		return nil, fmt.Errorf("PLANNER_SNAPSHOT_INTERVAL must not be negative, got %s", cfg.SnapshotInterval)
	}
	if (cfg.BackupPath != "" || cfg.BackupS3.Enabled()) && cfg.BackupPassphrase == "" {
		return nil, errors.New("PLANNER_BACKUP_PASSPHRASE is required when backups are enabled")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, defaultValue)); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaultValue)
	return d
}
