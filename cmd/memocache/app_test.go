package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	app.ErrWriter = &buf

	err := app.Run(context.Background(), append([]string{"memocache"}, args...))
	return buf.String(), err
}

func redisConfig(t *testing.T, mr *miniredis.Miniredis) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "memocache.yaml")
	body := fmt.Sprintf(`
distributed:
  backend: redis
  instance_name: "cli:"
  redis:
    addr: %s
log:
  level: error
`, mr.Addr())
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSetGetRemove(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfig(t, mr)

	_, err := run(t, "--config", cfg, "set", "-u", "u1:", "--absolute", "10m", "doc", `{"b":2,"a":[1,"x"]}`)
	require.NoError(t, err)
	assert.True(t, mr.Exists("cli:u1:doc"))
	assert.Equal(t, time.Minute, mr.TTL("cli:u1:doc"), "sliding default caps the key TTL")

	got, err := run(t, "--config", cfg, "get", "-u", "u1:", "doc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":[1,"x"],"b":2}`, got)

	_, err = run(t, "--config", cfg, "refresh", "u1:doc")
	require.NoError(t, err)

	_, err = run(t, "--config", cfg, "rm", "u1:doc")
	require.NoError(t, err)
	assert.False(t, mr.Exists("cli:u1:doc"))

	_, err = run(t, "--config", cfg, "get", "-u", "u1:", "doc")
	assert.ErrorContains(t, err, "not found")
}

func TestSetPlainString(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfig(t, mr)

	_, err := run(t, "--config", cfg, "set", "greeting", "hello world")
	require.NoError(t, err)
	assert.Equal(t, `"hello world"`, mr.HGet("cli:greeting", "data"))
}

func TestArgumentCount(t *testing.T) {
	_, err := run(t, "get")
	assert.ErrorContains(t, err, "expected 1 argument")

	_, err = run(t, "set", "only-key")
	assert.ErrorContains(t, err, "expected 2 argument")
}

func TestBadConfig(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "demo")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDemo(t *testing.T) {
	got, err := run(t, "--log-level", "error", "demo", "--expiry", "20ms")
	require.NoError(t, err)

	assert.Contains(t, got, "CACHE  → x present after expiry = false")
	assert.Contains(t, got, "GOROUTINE-4 → GET b = beta")
	assert.Contains(t, got, "CACHE  → GET tenant-2:name = grace")
	assert.Contains(t, got, "CACHE  → b present after remove = false")
	// one load for "a", one shared load for "b"
	assert.Contains(t, got, "FACTORY    : 2")
}

func TestBench(t *testing.T) {
	got, err := run(t, "--log-level", "error", "bench", "--keys", "100", "--goroutines", "4", "--ops", "250", "--context")
	require.NoError(t, err)

	assert.Contains(t, got, "Total Operations : 1,000")
	assert.Contains(t, got, "Throughput")
}
