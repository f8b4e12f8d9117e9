package cache

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/krisalay/memocache/expiration"
	"github.com/krisalay/memocache/observer"
	"github.com/krisalay/memocache/serializer"
	"github.com/krisalay/memocache/types"
)

const (
	DefaultMemoryExpiration              = 30 * time.Second
	DefaultDistributedAbsoluteExpiration = time.Minute
	DefaultDistributedSlidingExpiration  = time.Minute
)

// NoExpiration disables a default expiration when set on Options.
const NoExpiration time.Duration = -1

/*
Options configures a facade. Zero values get the variant's defaults:

	Memory:      30s absolute, no sliding
	Distributed: 1m absolute, 1m sliding, JSON with serializer.Default()
*/
type Options struct {
	AbsoluteExpiration time.Duration
	SlidingExpiration  time.Duration

	// Serializer and SerializerSettings apply to Distributed only.
	// A nil SerializerSettings means serializer.Default() at call time.
	Serializer         serializer.Codec
	SerializerSettings *serializer.Settings

	// Clock checks per-call deadlines before a factory runs. Distributed
	// only; give it the same clock as the store. Memory uses its store's.
	Clock clock.Clock

	Logger   *zap.Logger
	Metrics  types.Metrics
	Observer *observer.Hub
}

func (o Options) policy(absolute, sliding time.Duration) expiration.Policy {
	pick := func(v, def time.Duration) time.Duration {
		switch {
		case v == NoExpiration:
			return 0
		case v == 0:
			return def
		}
		return v
	}
	return expiration.Policy{
		Absolute: pick(o.AbsoluteExpiration, absolute),
		Sliding:  pick(o.SlidingExpiration, sliding),
	}
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = types.NoopMetrics{}
	}
	if o.Serializer == nil {
		o.Serializer = serializer.JSON
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	return o
}
