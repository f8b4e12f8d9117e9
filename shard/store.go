package shard

import (
	"sync/atomic"

	"github.com/krisalay/memocache/types"
)

// ShardStore is the interface used by a shard to store and retrieve cache entries.
// Put, Delete and DeleteIf must be called with the shard's WriteMu held.
type ShardStore interface {
	Get(string) (*types.CacheEntry, bool)
	Put(string, *types.CacheEntry)
	Delete(string)

	// DeleteIf removes every entry for which fn returns true and
	// reports how many were removed.
	DeleteIf(fn func(*types.CacheEntry) bool) int

	Size() int64
}

// cowStore is a copy-on-write ShardStore. Readers load an immutable
// snapshot without locking; every write swaps in a new map.
type cowStore struct {
	data atomic.Pointer[map[string]*types.CacheEntry]
	size atomic.Int64
}

func NewCOWStore() *cowStore {
	s := &cowStore{}
	m := make(map[string]*types.CacheEntry)
	s.data.Store(&m)
	return s
}

func (s *cowStore) Get(key string) (*types.CacheEntry, bool) {
	ent, ok := (*s.data.Load())[key]
	return ent, ok
}

func (s *cowStore) Put(key string, ent *types.CacheEntry) {
	old := *s.data.Load()

	n := make(map[string]*types.CacheEntry, len(old)+1)
	for k, v := range old {
		n[k] = v
	}
	n[key] = ent

	s.data.Store(&n)
	s.size.Store(int64(len(n)))
}

// Deleting a missing key leaves the current snapshot untouched.
func (s *cowStore) Delete(key string) {
	old := *s.data.Load()
	if _, ok := old[key]; !ok {
		return
	}

	n := make(map[string]*types.CacheEntry, len(old))
	for k, v := range old {
		if k != key {
			n[k] = v
		}
	}

	s.data.Store(&n)
	s.size.Store(int64(len(n)))
}

// DeleteIf copies the map once, leaving out every entry fn selects.
func (s *cowStore) DeleteIf(fn func(*types.CacheEntry) bool) int {
	old := *s.data.Load()

	n := make(map[string]*types.CacheEntry, len(old))
	for k, v := range old {
		if !fn(v) {
			n[k] = v
		}
	}

	removed := len(old) - len(n)
	if removed == 0 {
		return 0
	}

	s.data.Store(&n)
	s.size.Store(int64(len(n)))
	return removed
}

func (s *cowStore) Size() int64 {
	return s.size.Load()
}
