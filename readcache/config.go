package readcache

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/viccon/sturdyc"
)

// Config holds the in-process cache settings behind a Memoizer.
type Config struct {
	// Capacity is the maximum number of memoized entries. Must be positive.
	Capacity int

	// NumShards spreads entries over independent shards for concurrent
	// access. Must be positive.
	NumShards int

	// TTL is how long a memoized read stays valid. Must be positive.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when the cache is
	// full, between 1 and 100.
	EvictionPercentage int

	// EarlyRefresh enables background refreshes of frequently read entries
	// before they expire, which keeps hot reads from stampeding the store.
	// Nil disables it.
	EarlyRefresh *EarlyRefreshConfig

	// EvictionInterval sets how often expired entries are collected. Zero
	// uses the underlying default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig bounds the background refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns settings sized for a per-entity memoizer.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return goerr.New("readcache config: capacity must be positive")
	}
	if c.NumShards <= 0 {
		return goerr.New("readcache config: shard count must be positive")
	}
	if c.TTL <= 0 {
		return goerr.New("readcache config: ttl must be positive")
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return goerr.New("readcache config: eviction percentage must be between 1 and 100")
	}
	return nil
}

func (c Config) newClient() *sturdyc.Client[any] {
	var opts []sturdyc.Option
	if c.EarlyRefresh != nil {
		opts = append(opts, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}
	if c.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return sturdyc.New[any](c.Capacity, c.NumShards, c.TTL, c.EvictionPercentage, opts...)
}
