package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "planner.db", cfg.DBPath)
	assert.Equal(t, time.Second, cfg.SweepInterval)
	assert.Equal(t, 2*time.Second, cfg.SnapshotInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Seed)
	assert.False(t, cfg.RepairOnStart)
	assert.False(t, cfg.BackupS3.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PLANNER_BACKEND", "redis")
	t.Setenv("PLANNER_REDIS_URL", "redis://cache:6379/2")
	t.Setenv("PLANNER_SWEEP_INTERVAL", "250ms")
	t.Setenv("PLANNER_SNAPSHOT_INTERVAL", "0")
	t.Setenv("PLANNER_SEED", "true")
	t.Setenv("PLANNER_SEED_VALUE", "99")
	t.Setenv("PLANNER_REPAIR_ON_START", "1")
	t.Setenv("PLANNER_BACKUP_S3_BUCKET", "snapshots")
	t.Setenv("PLANNER_BACKUP_S3_ACCESS_KEY", "ak")
	t.Setenv("PLANNER_BACKUP_S3_SECRET_KEY", "sk")
	t.Setenv("PLANNER_BACKUP_PASSPHRASE", "hunter2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, 250*time.Millisecond, cfg.SweepInterval)
	assert.Zero(t, cfg.SnapshotInterval)
	assert.True(t, cfg.Seed)
	assert.Equal(t, uint64(99), cfg.SeedSalt)
	assert.True(t, cfg.RepairOnStart)
	assert.True(t, cfg.BackupS3.Enabled())
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	t.Setenv("PLANNER_SWEEP_INTERVAL", "soon")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.SweepInterval)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"PLANNER_BACKEND": "mongo"}},
		{"negative interval", map[string]string{"PLANNER_SWEEP_INTERVAL": "-1s"}},
		{"negative snapshot interval", map[string]string{"PLANNER_SNAPSHOT_INTERVAL": "-1s"}},
		{"backup without passphrase", map[string]string{"PLANNER_BACKUP_PATH": "/tmp/p.enc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PLANNER_METRICS_ADDR=:9100\nPLANNER_DB_PATH=/data/x.db\n"), 0600))

	// t.Setenv restores the variable after the test; unset it so the file
	// can provide it.
	t.Setenv("PLANNER_METRICS_ADDR", "")
	require.NoError(t, os.Unsetenv("PLANNER_METRICS_ADDR"))
	t.Setenv("PLANNER_DB_PATH", "/already/set.db")
	require.NoError(t, LoadDotenv(path))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, "/already/set.db", cfg.DBPath, "existing variables win")

	require.NoError(t, LoadDotenv(filepath.Join(dir, "missing.env")))
}
