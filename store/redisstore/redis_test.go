package redisstore_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/store"
	"github.com/krisalay/memocache/store/redisstore"
	"github.com/krisalay/memocache/types"
)

func setup(t *testing.T) (*redisstore.Store, *miniredis.Miniredis, *clock.Mock) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clk := clock.NewMock()
	clk.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	return redisstore.New(client, redisstore.Options{Clock: clk}), mr, clk
}

func TestSetWritesHashFields(t *testing.T) {
	s, mr, clk := setup(t)
	ctx := context.Background()

	p := expiration.Policy{Absolute: time.Hour, Sliding: 10 * time.Second}
	require.NoError(t, s.Set(ctx, "k", []byte("payload"), p))

	assert.Equal(t, "payload", mr.HGet("k", "data"))
	assert.Equal(t, "10000", mr.HGet("k", "sldexp"))
	assert.Equal(t, clk.Now().Add(time.Hour).UnixMilli(), mustInt(t, mr.HGet("k", "absexp")))
	assert.Equal(t, 10*time.Second, mr.TTL("k"))
}

func TestSetWithoutExpiration(t *testing.T) {
	s, mr, _ := setup(t)

	require.NoError(t, s.Set(context.Background(), "k", []byte("v"), expiration.Policy{}))

	assert.Equal(t, "-1", mr.HGet("k", "absexp"))
	assert.Equal(t, "-1", mr.HGet("k", "sldexp"))
	assert.Zero(t, mr.TTL("k"))
}

func TestSetReplacesForeignKey(t *testing.T) {
	s, mr, _ := setup(t)
	require.NoError(t, mr.Set("k", "plain string"))

	require.NoError(t, s.Set(context.Background(), "k", []byte("v"), expiration.Policy{Absolute: time.Minute}))

	got, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestSetRejectsPastDeadline(t *testing.T) {
	s, mr, clk := setup(t)

	err := s.Set(context.Background(), "k", []byte("v"), expiration.Policy{AbsoluteAt: clk.Now().Add(-time.Second)})
	assert.ErrorIs(t, err, expiration.ErrInvalidPolicy)
	assert.False(t, mr.Exists("k"))
}

func TestGetMiss(t *testing.T) {
	s, _, _ := setup(t)

	_, err := s.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetRenewsSlidingWindow(t *testing.T) {
	s, mr, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), expiration.Policy{Sliding: 10 * time.Second}))

	mr.FastForward(7 * time.Second)
	assert.Equal(t, 3*time.Second, mr.TTL("k"))

	_, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, mr.TTL("k"))
}

func TestRenewCappedByDeadline(t *testing.T) {
	s, mr, clk := setup(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), expiration.Policy{Absolute: 12 * time.Second, Sliding: 10 * time.Second}))

	clk.Add(8 * time.Second)
	mr.FastForward(8 * time.Second)
	require.NoError(t, s.Refresh(ctx, "k"))

	assert.Equal(t, 4*time.Second, mr.TTL("k"))
}

func TestAbsoluteOnlyIsNotRenewed(t *testing.T) {
	s, mr, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), expiration.Policy{Absolute: time.Minute}))
	mr.FastForward(30 * time.Second)

	_, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL("k"))
}

func TestReadAfterReplaceKeepsNewDeadline(t *testing.T) {
	s, mr, clk := setup(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("old"), expiration.Policy{Sliding: 10 * time.Minute}))
	require.NoError(t, s.Set(ctx, "k", []byte("new"), expiration.Policy{Absolute: time.Second}))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	require.NoError(t, s.Refresh(ctx, "k"))
	assert.LessOrEqual(t, mr.TTL("k"), time.Second)

	clk.Add(2 * time.Second)
	mr.FastForward(2 * time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetPastDeadlineWithLiveKey(t *testing.T) {
	s, mr, clk := setup(t)
	ctx := context.Background()

	past := clk.Now().Add(-time.Second).UnixMilli()
	mr.HSet("k", "absexp", strconv.FormatInt(past, 10), "sldexp", "600000", "data", "stale")
	mr.SetTTL("k", 10*time.Minute)

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Refresh(ctx, "k"))
	assert.Equal(t, 10*time.Minute, mr.TTL("k"), "an expired entry must not be renewed")
}

func TestRefreshAndRemoveAbsent(t *testing.T) {
	s, mr, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx, "absent"))
	require.NoError(t, s.Remove(ctx, "absent"))
	assert.False(t, mr.Exists("absent"))
}

func TestRemove(t *testing.T) {
	s, mr, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), expiration.Policy{}))
	require.NoError(t, s.Remove(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestUnavailable(t *testing.T) {
	s, mr, _ := setup(t)
	mr.Close()
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, types.ErrStoreUnavailable)

	err = s.Set(ctx, "k", []byte("v"), expiration.Policy{})
	var serr *types.StoreUnavailableError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "set", serr.Op)
	assert.Equal(t, "k", serr.Key)

	assert.ErrorIs(t, s.Ping(ctx), types.ErrStoreUnavailable)
}

func TestCancelledContext(t *testing.T) {
	s, mr, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, types.ErrStoreUnavailable)

	err = s.Set(ctx, "k", []byte("v"), expiration.Policy{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, types.ErrStoreUnavailable)
	assert.False(t, mr.Exists("k"))

	assert.ErrorIs(t, s.Refresh(ctx, "k"), context.Canceled)
	assert.ErrorIs(t, s.Remove(ctx, "k"), context.Canceled)
}

func mustInt(t *testing.T, s string) int64 {
	t.Helper()

	n, err := strconv.ParseInt(s, 10, 64)
	require.NoError(t, err)
	return n
}
