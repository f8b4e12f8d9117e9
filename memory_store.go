package cache

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/krisalay/memocache/engine"
	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/shard"
	"github.com/krisalay/memocache/types"
)

const defaultShards = 16

// MemoryStoreConfig configures a MemoryStore. Zero values get defaults.
type MemoryStoreConfig struct {
	// Shards is the number of independently locked partitions. Default 16.
	Shards int

	// CleanupInterval, when positive, starts a janitor that drops expired
	// entries nobody reads. Expired entries are always dropped lazily on read.
	CleanupInterval time.Duration

	Clock   clock.Clock
	Metrics types.Metrics
	Logger  *zap.Logger
}

/*
MemoryStore is the in-process key/value table behind Memory facades.
It is meant to be shared process-wide; facades of different value types
can sit on the same store.

It connects:
- shards (lock-free reads, per-shard write lock)
- the engine (clock, expiry strategy, metrics)

Expiry is the only way entries leave on their own; there is no capacity
bound and no eviction order.
*/
type MemoryStore struct {
	// shards are the actual storage units. Each shard is an independent mini-table.
	shards []*shard.Shard

	// engine contains the "rules": clock, expiry, metrics, logging.
	engine *engine.CacheEngine

	// selector decides which shard a key should go to.
	selector shard.Selector

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	n := cfg.Shards
	if n <= 0 {
		n = defaultShards
	}

	s := make([]*shard.Shard, n)
	for i := range s {
		s[i] = shard.NewShard()
	}

	ms := &MemoryStore{
		shards:   s,
		engine:   engine.NewCacheEngine(expiration.PerEntry{}, cfg.Clock, cfg.Metrics, cfg.Logger),
		selector: shard.HashSelector{},
		stop:     make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		ms.wg.Add(1)
		go ms.janitor(cfg.CleanupInterval)
	}

	return ms
}

/*
Get returns the live value for key.

An expired entry is removed and reported as absent. A hit renews the
entry's sliding window, if it has one.
*/
func (s *MemoryStore) Get(key string) (any, bool) {
	sh := s.selector.Select(key, s.shards)

	ent, ok := sh.Store.Get(key)
	if !ok {
		return nil, false
	}

	if s.engine.IsExpired(ent) {
		s.dropExpired(sh, key, ent)
		return nil, false
	}

	s.engine.OnRead(ent)
	return ent.Value, true
}

// dropExpired removes ent only if it is still the published entry, so a
// concurrent Set of a fresh value is never undone.
func (s *MemoryStore) dropExpired(sh *shard.Shard, key string, ent *types.CacheEntry) {
	sh.WriteMu.Lock()
	defer sh.WriteMu.Unlock()

	if cur, ok := sh.Store.Get(key); ok && cur == ent {
		sh.Store.Delete(key)
		s.engine.OnExpire(key)
	}
}

// Set stores value under key with policy p, replacing any entry.
// It fails only when p is invalid.
func (s *MemoryStore) Set(key string, value any, p expiration.Policy) error {
	ent, err := s.engine.NewEntry(key, value, p)
	if err != nil {
		return err
	}

	sh := s.selector.Select(key, s.shards)

	sh.WriteMu.Lock()
	defer sh.WriteMu.Unlock()

	sh.Store.Put(key, ent)
	return nil
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *MemoryStore) Remove(key string) {
	sh := s.selector.Select(key, s.shards)

	sh.WriteMu.Lock()
	defer sh.WriteMu.Unlock()

	sh.Store.Delete(key)
}

// Len returns the number of stored entries, expired ones not yet dropped included.
func (s *MemoryStore) Len() int {
	var n int64
	for _, sh := range s.shards {
		n += sh.Store.Size()
	}
	return int(n)
}

// Sweep drops every expired entry and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	removed := 0
	for _, sh := range s.shards {
		sh.WriteMu.Lock()
		removed += sh.Store.DeleteIf(func(ent *types.CacheEntry) bool {
			if s.engine.IsExpired(ent) {
				s.engine.OnExpire(ent.Key)
				return true
			}
			return false
		})
		sh.WriteMu.Unlock()
	}
	return removed
}

func (s *MemoryStore) janitor(interval time.Duration) {
	defer s.wg.Done()

	ticker := s.engine.Clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.engine.Logger.Debug("swept expired entries", zap.Int("count", n))
			}
		}
	}
}

// Now returns the store's clock time.
func (s *MemoryStore) Now() time.Time {
	return s.engine.Now()
}

/*
Close stops the janitor, if one is running. Stored entries stay readable.
Calling Close more than once is safe.
*/
func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
}
