// Package redisstore keeps distributed cache entries in Redis.
//
// Each entry is a hash:
//
//	absexp  absolute deadline in unix milliseconds, -1 if none
//	sldexp  sliding window in milliseconds, -1 if none
//	data    the encoded value
//
// The key's own TTL is always min(sliding, absexp - now), so Redis drops
// the entry by itself. Reads and Refresh check absexp against the store's
// clock and push the TTL forward in the same script.
package redisstore

import (
	"context"
	"errors"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/store"
)

const notPresent int64 = -1

// DEL first so a key of another type, or a hash with stale fields, is
// replaced wholesale. The script runs atomically: the entry is either
// fully written with its TTL or not written.
var setScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'absexp', ARGV[1], 'sldexp', ARGV[2], 'data', ARGV[4])
if ARGV[3] ~= '-1' then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// touchScript reads an entry and renews its sliding window in one step,
// so a concurrent Set can never inherit the window of the entry it
// replaced. ARGV[1] is now in unix milliseconds; ARGV[2] is '1' to return
// the data. An entry past its absolute deadline reads as absent.
var touchScript = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'absexp', 'sldexp', 'data')
if not v[3] then
  return false
end
local now = tonumber(ARGV[1])
local abs = tonumber(v[1]) or -1
local sld = tonumber(v[2]) or -1
if abs ~= -1 and now >= abs then
  return false
end
if sld > 0 then
  local ttl = sld
  if abs ~= -1 and abs - now < ttl then
    ttl = abs - now
  end
  redis.call('PEXPIRE', KEYS[1], ttl)
end
if ARGV[2] == '1' then
  return v[3]
end
return 1
`)

// Options configures a Store. Zero values get defaults.
type Options struct {
	Clock  clock.Clock
	Logger *zap.Logger
}

// Store is a store.Store backed by a go-redis client.
type Store struct {
	client redis.UniversalClient
	clock  clock.Clock
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

func New(client redis.UniversalClient, opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		client: client,
		clock:  opts.Clock,
		logger: opts.Logger,
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := touchScript.Run(ctx, s.client, []string{key}, s.clock.Now().UnixMilli(), 1).Text()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, s.fail(ctx, "get", key, err)
	}
	return []byte(data), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, p expiration.Policy) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.clock.Now()
	if err := p.Validate(now); err != nil {
		return err
	}

	abs, sliding, ttl := notPresent, notPresent, notPresent

	deadline := p.Deadline(now)
	if !deadline.IsZero() {
		abs = deadline.UnixMilli()
	}
	if p.Sliding > 0 {
		sliding = p.Sliding.Milliseconds()
	}
	if d, bounded := expiration.Window(now, deadline, p.Sliding); bounded {
		ttl = max(d.Milliseconds(), 1)
	}

	if err := setScript.Run(ctx, s.client, []string{key}, abs, sliding, ttl, value).Err(); err != nil {
		return s.fail(ctx, "set", key, err)
	}
	return nil
}

func (s *Store) Refresh(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := touchScript.Run(ctx, s.client, []string{key}, s.clock.Now().UnixMilli(), 0).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return s.fail(ctx, "refresh", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return s.fail(ctx, "remove", key, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return s.fail(ctx, "ping", "", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// fail reports a cancelled caller as ctx.Err() and anything else as an
// unavailable store.
func (s *Store) fail(ctx context.Context, op, key string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.logger.Warn("redis store call failed",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err))
	return store.Unavailable(op, key, err)
}
