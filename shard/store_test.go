package shard_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/krisalay/memocache/shard"
	"github.com/krisalay/memocache/types"
)

func entry(key string) *types.CacheEntry {
	return types.NewCacheEntry(key, key+"-value", time.Unix(0, 0))
}

func TestCOWStorePutGetDelete(t *testing.T) {
	s := shard.NewCOWStore()

	s.Put("a", entry("a"))
	s.Put("b", entry("b"))
	assert.EqualValues(t, 2, s.Size())

	got, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "a-value", got.Value)

	s.Delete("a")
	s.Delete("missing")
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.EqualValues(t, 1, s.Size())
}

func TestCOWStoreReplace(t *testing.T) {
	s := shard.NewCOWStore()
	first, second := entry("k"), entry("k")

	s.Put("k", first)
	s.Put("k", second)

	got, _ := s.Get("k")
	assert.Same(t, second, got)
	assert.EqualValues(t, 1, s.Size())
}

func TestCOWStoreDeleteIf(t *testing.T) {
	s := shard.NewCOWStore()
	for i := 0; i < 10; i++ {
		s.Put(fmt.Sprint(i), types.NewCacheEntry(fmt.Sprint(i), i, time.Unix(0, 0)))
	}

	removed := s.DeleteIf(func(e *types.CacheEntry) bool { return e.Value.(int)%2 == 0 })

	assert.Equal(t, 5, removed)
	assert.EqualValues(t, 5, s.Size())
	_, ok := s.Get("4")
	assert.False(t, ok)
	_, ok = s.Get("5")
	assert.True(t, ok)
}

func TestHashSelectorIsStable(t *testing.T) {
	shards := []*shard.Shard{shard.NewShard(), shard.NewShard(), shard.NewShard()}
	var sel shard.HashSelector

	for _, key := range []string{"a", "user:42", "", "ünïcode"} {
		assert.Same(t, sel.Select(key, shards), sel.Select(key, shards))
	}
}
