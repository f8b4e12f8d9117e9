// Package localstore is an in-process store.Store. It gives the
// distributed facade the same absolute and sliding semantics without a
// network service, for single-node deployments and tests.
package localstore

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jellydator/ttlcache/v3"

	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/store"
)

type entry struct {
	data     []byte
	deadline time.Time
	sliding  time.Duration
}

// Store keeps entries in a ttlcache that expires them on its own.
type Store struct {
	// mu orders Set against the re-Set that renews a sliding window, so a
	// renewal never resurrects a value that was just replaced or removed.
	mu    sync.Mutex
	items *ttlcache.Cache[string, entry]
	clock clock.Clock
}

var _ store.Store = (*Store)(nil)

// New starts a Store and its expiry loop. Call Close to stop it.
func New() *Store {
	items := ttlcache.New[string, entry](
		ttlcache.WithDisableTouchOnHit[string, entry](),
	)
	go items.Start()

	return &Store{
		items: items,
		clock: clock.New(),
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, store.ErrNotFound
	}

	e := item.Value()
	s.renew(key, e)
	return append([]byte(nil), e.data...), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, p expiration.Policy) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.clock.Now()
	if err := p.Validate(now); err != nil {
		return err
	}

	e := entry{
		data:     append([]byte(nil), value...),
		deadline: p.Deadline(now),
		sliding:  p.Sliding,
	}

	ttl := ttlcache.NoTTL
	if d, bounded := expiration.Window(now, e.deadline, e.sliding); bounded {
		ttl = d
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items.Set(key, e, ttl)
	return nil
}

func (s *Store) Refresh(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.items.Get(key); item != nil && !item.IsExpired() {
		s.renew(key, item.Value())
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items.Delete(key)
	return nil
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.items.Len()
}

// Close stops the expiry loop.
func (s *Store) Close() error {
	s.items.Stop()
	return nil
}

// renew must be called with mu held.
func (s *Store) renew(key string, e entry) {
	if e.sliding <= 0 {
		return
	}
	ttl, _ := expiration.Window(s.clock.Now(), e.deadline, e.sliding)
	if ttl <= 0 {
		s.items.Delete(key)
		return
	}
	s.items.Set(key, e, ttl)
}
