package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/store"
	"github.com/krisalay/memocache/store/localstore"
)

func TestPrefixed(t *testing.T) {
	base := localstore.New()
	ctx := context.Background()

	app := store.Prefixed(base, "app1:")
	require.NoError(t, app.Set(ctx, "k", []byte("v"), expiration.Policy{}))

	got, err := base.Get(ctx, "app1:k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = base.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, app.Refresh(ctx, "k"))
	require.NoError(t, app.Remove(ctx, "k"))
	assert.Zero(t, base.Len())

	closer, ok := app.(interface{ Close() error })
	require.True(t, ok)
	assert.NoError(t, closer.Close())
}

func TestPrefixedEmptyIsIdentity(t *testing.T) {
	base := localstore.New()
	defer base.Close()

	assert.Same(t, base, store.Prefixed(base, ""))
}
