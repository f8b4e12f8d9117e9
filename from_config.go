package cache

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/krisalay/memocache/config"
	"github.com/krisalay/memocache/serializer"
	"github.com/krisalay/memocache/store"
	"github.com/krisalay/memocache/store/localstore"
	"github.com/krisalay/memocache/store/memcachestore"
	"github.com/krisalay/memocache/store/redisstore"
)

// NewMemoryStoreFromConfig creates a MemoryStore from the memory section.
func NewMemoryStoreFromConfig(c config.MemoryConfig, logger *zap.Logger) *MemoryStore {
	return NewMemoryStore(MemoryStoreConfig{
		Shards:          c.Shards,
		CleanupInterval: c.CleanupInterval,
		Logger:          logger,
	})
}

// MemoryOptions turns the memory section into facade Options. A zero
// duration in the file means "none", not "default".
func MemoryOptions(c config.MemoryConfig) Options {
	return Options{
		AbsoluteExpiration: orNone(c.AbsoluteExpiration),
		SlidingExpiration:  orNone(c.SlidingExpiration),
	}
}

// DistributedOptions turns the distributed and serializer sections into
// facade Options.
func DistributedOptions(cfg *config.Config) (Options, error) {
	codec, ok := serializer.ByName(cfg.Distributed.Codec)
	if !ok {
		return Options{}, fmt.Errorf("unknown codec %q", cfg.Distributed.Codec)
	}
	settings := cfg.Serializer

	return Options{
		AbsoluteExpiration: orNone(cfg.Distributed.AbsoluteExpiration),
		SlidingExpiration:  orNone(cfg.Distributed.SlidingExpiration),
		Serializer:         codec,
		SerializerSettings: &settings,
	}, nil
}

/*
OpenStore connects the configured distributed backend. The instance name,
if any, prefixes every key. Stores that hold connections implement
io.Closer.

Connecting does not probe the server; the first call surfaces an
unreachable backend as a StoreUnavailableError.
*/
func OpenStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("backend", cfg.Distributed.Backend))

	var s store.Store
	switch d := cfg.Distributed; d.Backend {
	case config.BackendLocal:
		s = localstore.New()

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         d.Redis.Addr,
			Username:     d.Redis.Username,
			Password:     d.Redis.Password,
			DB:           d.Redis.DB,
			DialTimeout:  d.Redis.DialTimeout,
			ReadTimeout:  d.Redis.ReadTimeout,
			WriteTimeout: d.Redis.WriteTimeout,
			PoolSize:     d.Redis.PoolSize,
		})
		s = redisstore.New(client, redisstore.Options{Logger: logger})

	case config.BackendMemcache:
		s = memcachestore.Dial(d.Memcache.Servers, d.Memcache.Timeout, d.Memcache.MaxIdleConns,
			memcachestore.Options{Logger: logger})

	default:
		return nil, fmt.Errorf("unknown backend %q", d.Backend)
	}

	logger.Info("distributed store opened", zap.String("instance", cfg.Distributed.InstanceName))
	return store.Prefixed(s, cfg.Distributed.InstanceName), nil
}

// NewDistributedFromConfig opens the configured store and wraps it in a
// facade for T. Logger, Metrics, Observer and Clock are taken from extra.
func NewDistributedFromConfig[T any](cfg *config.Config, extra Options) (*Distributed[T], error) {
	opts, err := DistributedOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.Logger = extra.Logger
	opts.Metrics = extra.Metrics
	opts.Observer = extra.Observer
	opts.Clock = extra.Clock

	s, err := OpenStore(cfg, extra.Logger)
	if err != nil {
		return nil, err
	}
	return NewDistributed[T](s, opts), nil
}

func orNone(d time.Duration) time.Duration {
	if d == 0 {
		return NoExpiration
	}
	return d
}
