// Package config loads memocache settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/krisalay/memocache/serializer"
)

// Backend names accepted by distributed.backend.
const (
	BackendLocal    = "local"
	BackendRedis    = "redis"
	BackendMemcache = "memcache"
)

type Config struct {
	Memory      MemoryConfig        `yaml:"memory"`
	Distributed DistributedConfig   `yaml:"distributed"`
	Serializer  serializer.Settings `yaml:"serializer"`
	Log         LogConfig           `yaml:"log"`
}

type MemoryConfig struct {
	Shards             int           `yaml:"shards"`
	AbsoluteExpiration time.Duration `yaml:"absolute_expiration"`
	SlidingExpiration  time.Duration `yaml:"sliding_expiration"`
	CleanupInterval    time.Duration `yaml:"cleanup_interval"`
}

type DistributedConfig struct {
	Backend            string         `yaml:"backend"`
	AbsoluteExpiration time.Duration  `yaml:"absolute_expiration"`
	SlidingExpiration  time.Duration  `yaml:"sliding_expiration"`
	InstanceName       string         `yaml:"instance_name"`
	Codec              string         `yaml:"codec"`
	Redis              RedisConfig    `yaml:"redis"`
	Memcache           MemcacheConfig `yaml:"memcache"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

type MemcacheConfig struct {
	Servers      []string      `yaml:"servers"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when no file overrides them.
func Default() *Config {
	return &Config{
		Memory: MemoryConfig{
			Shards:             16,
			AbsoluteExpiration: 30 * time.Second,
			CleanupInterval:    time.Minute,
		},
		Distributed: DistributedConfig{
			Backend:            BackendLocal,
			AbsoluteExpiration: time.Minute,
			SlidingExpiration:  time.Minute,
			Codec:              "json",
			Redis: RedisConfig{
				Addr:         "localhost:6379",
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
				PoolSize:     10,
			},
			Memcache: MemcacheConfig{
				Servers:      []string{"localhost:11211"},
				Timeout:      500 * time.Millisecond,
				MaxIdleConns: 2,
			},
		},
		Serializer: serializer.DefaultSettings(),
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Memory.Shards < 0 {
		errs = append(errs, errors.New("memory.shards must not be negative"))
	}
	if c.Memory.AbsoluteExpiration < 0 || c.Memory.SlidingExpiration < 0 {
		errs = append(errs, errors.New("memory expirations must not be negative"))
	}
	if c.Distributed.AbsoluteExpiration < 0 || c.Distributed.SlidingExpiration < 0 {
		errs = append(errs, errors.New("distributed expirations must not be negative"))
	}

	switch c.Distributed.Backend {
	case BackendLocal:
	case BackendRedis:
		if c.Distributed.Redis.Addr == "" {
			errs = append(errs, errors.New("distributed.redis.addr is required"))
		}
	case BackendMemcache:
		if len(c.Distributed.Memcache.Servers) == 0 {
			errs = append(errs, errors.New("distributed.memcache.servers is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown distributed.backend %q", c.Distributed.Backend))
	}

	if _, ok := serializer.ByName(c.Distributed.Codec); !ok {
		errs = append(errs, fmt.Errorf("unknown distributed.codec %q", c.Distributed.Codec))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
