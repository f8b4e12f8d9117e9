package engine

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/types"
)

/*
CacheEngine is the "brain" of the in-memory store.
It is responsible for the "behavior" of entries, NOT storage.

It decides:
- When an entry is expired
- How expiry moves on reads and writes
- What "now" is
- How store-level events are recorded

It does NOT:
- Store data
- Handle sharding
- Handle locking
- Run factories
*/
type CacheEngine struct {

	// Expiration decides when an entry is “too old”.
	// If nil, entries never expire.
	Expiration expiration.Strategy

	// Clock is the time source. Tests swap in clock.NewMock().
	Clock clock.Clock

	// Metrics records expirations found by the store.
	Metrics types.Metrics

	Logger *zap.Logger
}

/*
NewCacheEngine creates a CacheEngine. Nil collaborators get working
defaults so the rest of the store never checks for nil.
*/
func NewCacheEngine(
	exp expiration.Strategy,
	clk clock.Clock,
	metrics types.Metrics,
	logger *zap.Logger,
) *CacheEngine {
	if clk == nil {
		clk = clock.New()
	}
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CacheEngine{
		Expiration: exp,
		Clock:      clk,
		Metrics:    metrics,
		Logger:     logger,
	}
}

// Now returns the engine's current time.
func (e *CacheEngine) Now() time.Time {
	return e.Clock.Now()
}

// IsExpired delegates to the configured strategy.
func (e *CacheEngine) IsExpired(ent *types.CacheEntry) bool {
	return e.Expiration != nil &&
		e.Expiration.IsExpired(ent, e.Clock.Now())
}

// OnRead is called every time the store returns a live entry.
func (e *CacheEngine) OnRead(ent *types.CacheEntry) {
	if e.Expiration != nil {
		e.Expiration.OnAccess(ent, e.Clock.Now())
	}
}

// OnExpire is called when the store drops an expired entry.
func (e *CacheEngine) OnExpire(key string) {
	e.Metrics.Expire()
	e.Logger.Debug("entry expired", zap.String("key", key))
}

/*
NewEntry builds a fully initialized entry for key under policy p.
The entry is complete before it is returned, so publishing it to a shard
never exposes a value without its expiry.
*/
func (e *CacheEngine) NewEntry(key string, value any, p expiration.Policy) (*types.CacheEntry, error) {
	now := e.Clock.Now()
	if err := p.Validate(now); err != nil {
		return nil, err
	}

	ent := types.NewCacheEntry(key, value, now)
	ent.AbsoluteAt = p.Deadline(now)
	ent.Sliding = p.Sliding

	if e.Expiration != nil {
		e.Expiration.OnWrite(ent, now)
	}
	return ent, nil
}
