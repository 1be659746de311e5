package cachetier

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/redis/go-redis/v9"
)

// Config holds the connection settings for the cache tier client.
// Zero values fall back to the defaults from DefaultConfig.
type Config struct {
	// Addr is the host:port of the cache service.
	Addr string

	// Password is the optional credential sent on connect.
	Password string

	// DB selects the logical database index.
	DB int

	// MaxRetries bounds per-command retries. Retries back off exponentially
	// between MinRetryBackoff and MaxRetryBackoff.
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration

	// DialTimeout limits connection establishment; ReadTimeout and
	// WriteTimeout limit individual commands.
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// PoolSize caps the number of pooled connections.
	PoolSize int

	// OfflineQueue controls behavior while the connection is down. When
	// false, commands fail fast with ErrUnavailable instead of waiting on
	// the retry loop.
	OfflineQueue bool

	// LazyConnect skips the connectivity probe at construction time. When
	// false, New pings the service and fails if it is unreachable.
	LazyConnect bool
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            "localhost:6379",
		DB:              0,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		PoolSize:        10,
		OfflineQueue:    true,
		LazyConnect:     true,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DB, validation.Min(0)),
		validation.Field(&c.MaxRetries, validation.Min(0)),
		validation.Field(&c.MinRetryBackoff, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxRetryBackoff, validation.Min(time.Duration(0))),
		validation.Field(&c.PoolSize, validation.Min(0)),
	)
}

// options converts the Config into client options for the underlying driver.
func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:            c.Addr,
		Password:        c.Password,
		DB:              c.DB,
		MaxRetries:      c.MaxRetries,
		MinRetryBackoff: c.MinRetryBackoff,
		MaxRetryBackoff: c.MaxRetryBackoff,
		DialTimeout:     c.DialTimeout,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		PoolSize:        c.PoolSize,
	}
}
