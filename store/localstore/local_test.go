package localstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/store"
	"github.com/krisalay/memocache/store/localstore"
)

func newStore(t *testing.T) *localstore.Store {
	t.Helper()
	s := localstore.New()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoundTripCopiesBytes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	in := []byte("value")
	require.NoError(t, s.Set(ctx, "k", in, expiration.Policy{}))
	in[0] = 'X'

	out, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), out)

	out[0] = 'Y'
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("value"), again)
	assert.Equal(t, 1, s.Len())
}

func TestMissAndRemove(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), expiration.Policy{}))
	require.NoError(t, s.Remove(ctx, "k"))
	require.NoError(t, s.Remove(ctx, "k"))

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAbsoluteExpiration(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), expiration.Policy{Absolute: 30 * time.Millisecond}))

	assert.Eventually(t, func() bool {
		_, err := s.Get(ctx, "k")
		return err == store.ErrNotFound
	}, time.Second, 5*time.Millisecond)
}

func TestSlidingRenewedByReads(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), expiration.Policy{Sliding: 80 * time.Millisecond}))

	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		_, err := s.Get(ctx, "k")
		require.NoError(t, err, "read %d", i)
	}

	time.Sleep(120 * time.Millisecond)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefreshAbsentIsNoop(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Refresh(context.Background(), "absent"))
	assert.Zero(t, s.Len())
}

func TestRejectsInvalidPolicy(t *testing.T) {
	s := newStore(t)

	err := s.Set(context.Background(), "k", []byte("v"), expiration.Policy{AbsoluteAt: time.Now().Add(-time.Minute)})
	assert.ErrorIs(t, err, expiration.ErrInvalidPolicy)
}

func TestCancelledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Set(ctx, "k", []byte("v"), expiration.Policy{}), context.Canceled)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
