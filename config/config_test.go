package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/krisalay/memocache/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30*time.Second, cfg.Memory.AbsoluteExpiration)
	assert.Equal(t, time.Minute, cfg.Distributed.AbsoluteExpiration)
	assert.Equal(t, time.Minute, cfg.Distributed.SlidingExpiration)
	assert.Equal(t, config.BackendLocal, cfg.Distributed.Backend)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join("testdata", "redis.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Memory.Shards)
	assert.Equal(t, 45*time.Second, cfg.Memory.AbsoluteExpiration)
	assert.Equal(t, time.Minute, cfg.Memory.CleanupInterval, "untouched default")

	assert.Equal(t, config.BackendRedis, cfg.Distributed.Backend)
	assert.Equal(t, "orders:", cfg.Distributed.InstanceName)
	assert.Equal(t, time.Minute, cfg.Distributed.AbsoluteExpiration)
	assert.Equal(t, 2*time.Minute, cfg.Distributed.SlidingExpiration)
	assert.Equal(t, "redis.internal:6379", cfg.Distributed.Redis.Addr)
	assert.Equal(t, 3, cfg.Distributed.Redis.DB)
	assert.Equal(t, 10, cfg.Distributed.Redis.PoolSize)

	assert.False(t, cfg.Serializer.EscapeHTML)
	assert.Equal(t, "cache", cfg.Serializer.TagKey)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadReportsEveryProblem(t *testing.T) {
	_, err := config.Load(filepath.Join("testdata", "invalid.yaml"))
	require.Error(t, err)

	for _, want := range []string{"memory.shards", "distributed.backend", "distributed.codec", "log.format"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("memory: [unclosed"), 0o600))
	_, err = config.Load(bad)
	assert.ErrorContains(t, err, "parse config")
}

func TestValidateBackendRequirements(t *testing.T) {
	cfg := config.Default()
	cfg.Distributed.Backend = config.BackendMemcache
	cfg.Distributed.Memcache.Servers = nil
	assert.ErrorContains(t, cfg.Validate(), "memcache.servers")

	cfg = config.Default()
	cfg.Distributed.Backend = config.BackendRedis
	cfg.Distributed.Redis.Addr = ""
	assert.ErrorContains(t, cfg.Validate(), "redis.addr")
}

func TestNewLogger(t *testing.T) {
	logger, err := config.NewLogger(config.LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = config.NewLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
