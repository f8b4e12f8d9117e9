// Package memcachestore keeps distributed cache entries in memcached.
//
// Memcached has no fields, so each value carries a one-line header in
// front of the encoded payload:
//
//	"<absexp-unix-ms> <sliding-ms>\n<payload>"
//
// with -1 for an absent part. Item expiration is min(sliding, absexp - now),
// rounded up to whole seconds; reads and Refresh renew it with Touch.
package memcachestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bradfitz/gomemcache/memcache"
	"go.uber.org/zap"

	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/store"
	"github.com/krisalay/memocache/types"
)

// Memcached reads expirations above 30 days as unix timestamps.
const maxRelativeExpiration = 30 * 24 * time.Hour

const notPresent int64 = -1

// Client is the subset of *memcache.Client the store uses.
type Client interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Touch(key string, seconds int32) error
	Delete(key string) error
}

// Options configures a Store. Zero values get defaults.
type Options struct {
	Clock  clock.Clock
	Logger *zap.Logger
}

// Store is a store.Store backed by memcached.
type Store struct {
	client Client
	clock  clock.Clock
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

func New(client Client, opts Options) *Store {
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

// Dial connects to the given memcached servers.
func Dial(servers []string, timeout time.Duration, maxIdle int, opts Options) *Store {
	mc := memcache.New(servers...)
	if timeout > 0 {
		mc.Timeout = timeout
	}
	if maxIdle > 0 {
		mc.MaxIdleConns = maxIdle
	}
	return New(mc, opts)
}

// The memcache client is synchronous; ctx is checked before each call
// so a cancelled caller never starts a write.

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, err := s.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, s.unavailable("get", key, err)
	}

	abs, sliding, payload, err := decodeEnvelope(item.Value)
	if err != nil {
		return nil, &types.SerializationError{Op: "decode", Key: key, Err: err}
	}

	now := s.clock.Now()
	if abs != notPresent && !now.Before(time.UnixMilli(abs)) {
		return nil, store.ErrNotFound
	}

	if err := s.renew(key, abs, sliding, now); err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, p expiration.Policy) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.clock.Now()
	if err := p.Validate(now); err != nil {
		return err
	}

	abs, sliding := notPresent, notPresent
	deadline := p.Deadline(now)
	if !deadline.IsZero() {
		abs = deadline.UnixMilli()
	}
	if p.Sliding > 0 {
		sliding = p.Sliding.Milliseconds()
	}

	var exp int32
	if ttl, bounded := expiration.Window(now, deadline, p.Sliding); bounded {
		exp = expirationSeconds(ttl, now)
	}

	err := s.client.Set(&memcache.Item{
		Key:        key,
		Value:      encodeEnvelope(abs, sliding, value),
		Expiration: exp,
	})
	if err != nil {
		return s.unavailable("set", key, err)
	}
	return nil
}

func (s *Store) Refresh(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	item, err := s.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return s.unavailable("refresh", key, err)
	}

	abs, sliding, _, err := decodeEnvelope(item.Value)
	if err != nil {
		return &types.SerializationError{Op: "decode", Key: key, Err: err}
	}
	return s.renew(key, abs, sliding, s.clock.Now())
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.client.Delete(key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return s.unavailable("remove", key, err)
	}
	return nil
}

func (s *Store) renew(key string, abs, sliding int64, now time.Time) error {
	if sliding == notPresent {
		return nil
	}

	var deadline time.Time
	if abs != notPresent {
		deadline = time.UnixMilli(abs)
	}

	ttl, _ := expiration.Window(now, deadline, time.Duration(sliding)*time.Millisecond)
	if ttl <= 0 {
		return nil
	}

	err := s.client.Touch(key, expirationSeconds(ttl, now))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return s.unavailable("refresh", key, err)
	}
	return nil
}

func (s *Store) unavailable(op, key string, err error) error {
	s.logger.Warn("memcache store call failed",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err))
	return store.Unavailable(op, key, err)
}

// expirationSeconds converts ttl into memcached's expiration field:
// whole seconds rounded up, or a unix timestamp past 30 days.
func expirationSeconds(ttl time.Duration, now time.Time) int32 {
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if secs > int64(maxRelativeExpiration/time.Second) {
		return int32(now.Unix() + secs)
	}
	return int32(secs)
}

func encodeEnvelope(abs, sliding int64, payload []byte) []byte {
	header := strconv.FormatInt(abs, 10) + " " + strconv.FormatInt(sliding, 10) + "\n"
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}

func decodeEnvelope(b []byte) (abs, sliding int64, payload []byte, err error) {
	nl := bytes.IndexByte(b, '\n')
	if nl < 0 {
		return 0, 0, nil, errors.New("missing envelope header")
	}

	fields := bytes.Fields(b[:nl])
	if len(fields) != 2 {
		return 0, 0, nil, fmt.Errorf("malformed envelope header %q", b[:nl])
	}
	if abs, err = strconv.ParseInt(string(fields[0]), 10, 64); err != nil {
		return 0, 0, nil, fmt.Errorf("absolute expiration: %w", err)
	}
	if sliding, err = strconv.ParseInt(string(fields[1]), 10, 64); err != nil {
		return 0, 0, nil, fmt.Errorf("sliding expiration: %w", err)
	}
	return abs, sliding, b[nl+1:], nil
}
