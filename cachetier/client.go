package cachetier

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"
)

// ErrUnavailable marks every failure of the cache tier. Callers treat it as a
// cache miss on reads and as a best-effort no-op on writes; it must never be
// allowed to fail the authoritative store path.
var ErrUnavailable = goerr.New("cache unavailable")

// scanBatchSize is the COUNT hint passed to SCAN.
const scanBatchSize = 100

// Client is a thin client over the external key/value service. It supports
// two record shapes: flat field maps (hashes) and JSON documents. A single
// Client is intended to be shared process-wide.
type Client struct {
	rdb *redis.Client
	cfg Config
	log *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger used for connection diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a Client from the given configuration. Unless cfg.LazyConnect
// is set, the service is pinged once and an unreachable service is an error.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid cache config")
	}

	c := &Client{
		rdb: redis.NewClient(cfg.options()),
		cfg: cfg,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if !cfg.LazyConnect {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
		defer cancel()
		if err := c.rdb.Ping(ctx).Err(); err != nil {
			return nil, c.wrap(err, "cache unreachable", goerr.V("addr", cfg.Addr))
		}
	}
	return c, nil
}

// Ready reports current reachability of the cache service. It probes with a
// ping instead of throwing on every call once degraded.
func (c *Client) Ready(ctx context.Context) bool {
	return c.rdb.Ping(ctx).Err() == nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// wrap folds a driver error into the ErrUnavailable taxonomy while keeping
// the cause inspectable through errors.Is/As.
func (c *Client) wrap(err error, msg string, vars ...goerr.Option) error {
	return goerr.Wrap(errors.Join(ErrUnavailable, err), msg, vars...)
}

// gate enforces the offline-queue toggle: with queueing disabled, commands
// against an unreachable service fail fast instead of entering the driver's
// retry loop.
func (c *Client) gate(ctx context.Context) error {
	if c.cfg.OfflineQueue {
		return nil
	}
	if !c.Ready(ctx) {
		return goerr.Wrap(ErrUnavailable, "cache offline and queueing disabled")
	}
	return nil
}

// SetFlat writes a flat record under key with overwrite semantics. A positive
// ttl sets an expiry immediately after the write; a zero ttl leaves the key
// without expiry.
func (c *Client) SetFlat(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	if len(fields) == 0 {
		return nil
	}
	if err := c.gate(ctx); err != nil {
		return err
	}

	args := make(map[string]any, len(fields))
	for name, value := range fields {
		args[name] = value
	}

	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, args)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return c.wrap(err, "flat write failed", goerr.V("key", key))
	}
	return nil
}

// GetFlat returns the flat record stored under key, or nil when the key does
// not exist or holds no fields. A partially expired record is never silently
// treated as present: the whole hash is returned or nothing is.
func (c *Client) GetFlat(ctx context.Context, key string) (map[string]string, error) {
	if err := c.gate(ctx); err != nil {
		return nil, err
	}
	fields, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, c.wrap(err, "flat read failed", goerr.V("key", key))
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

// GetFlatFields returns the values for the named fields, positionally aligned
// with names. Absent fields yield nil entries.
func (c *Client) GetFlatFields(ctx context.Context, key string, names []string) ([]*string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if err := c.gate(ctx); err != nil {
		return nil, err
	}
	raw, err := c.rdb.HMGet(ctx, key, names...).Result()
	if err != nil {
		return nil, c.wrap(err, "flat field read failed", goerr.V("key", key))
	}

	values := make([]*string, len(raw))
	for i, v := range raw {
		if s, ok := v.(string); ok {
			values[i] = &s
		}
	}
	return values, nil
}

// GetManyFlat returns the flat records for the given keys as a key to field
// map, skipping keys that hold no data. Reads are pipelined into a single
// round trip to bound latency under bulk operations.
func (c *Client) GetManyFlat(ctx context.Context, keys []string) (map[string]map[string]string, error) {
	if len(keys) == 0 {
		return map[string]map[string]string{}, nil
	}
	if err := c.gate(ctx); err != nil {
		return nil, err
	}

	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HGetAll(ctx, key)
		}
		return nil
	})
	if err != nil {
		return nil, c.wrap(err, "bulk flat read failed", goerr.V("keys", len(keys)))
	}

	records := make(map[string]map[string]string, len(keys))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		records[keys[i]] = fields
	}
	return records, nil
}

// SetDocument writes a document record as a single JSON value with overwrite
// semantics. A positive ttl sets the expiry atomically with the write.
func (c *Client) SetDocument(ctx context.Context, key string, doc any, ttl time.Duration) error {
	if err := c.gate(ctx); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return goerr.Wrap(err, "document not serializable", goerr.V("key", key))
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return c.wrap(err, "document write failed", goerr.V("key", key))
	}
	return nil
}

// GetDocument reads the whole document under key into dest. It returns false
// when the key is absent. A stored value that no longer matches the record
// shape is treated as a cache miss, not an error.
func (c *Client) GetDocument(ctx context.Context, key string, dest any) (bool, error) {
	if err := c.gate(ctx); err != nil {
		return false, err
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, c.wrap(err, "document read failed", goerr.V("key", key))
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Warn("cached document shape mismatch, treating as miss",
			"key", key, "error", err)
		return false, nil
	}
	return true, nil
}

// GetDocumentPath reads a single path of a document without decoding the
// whole tree. The path uses dotted notation ("metadata.source"). It returns
// false when the key is absent or the path does not exist.
func (c *Client) GetDocumentPath(ctx context.Context, key, path string) (gjson.Result, bool, error) {
	if err := c.gate(ctx); err != nil {
		return gjson.Result{}, false, err
	}
	raw, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return gjson.Result{}, false, nil
	}
	if err != nil {
		return gjson.Result{}, false, c.wrap(err, "document path read failed", goerr.V("key", key))
	}
	result := gjson.Get(raw, path)
	return result, result.Exists(), nil
}

// Delete removes key and reports whether it existed.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	if err := c.gate(ctx); err != nil {
		return false, err
	}
	removed, err := c.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, c.wrap(err, "delete failed", goerr.V("key", key))
	}
	return removed > 0, nil
}

// DeleteMany removes the given keys and returns how many existed.
func (c *Client) DeleteMany(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.gate(ctx); err != nil {
		return 0, err
	}
	removed, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, c.wrap(err, "bulk delete failed", goerr.V("keys", len(keys)))
	}
	return removed, nil
}

// Exists reports whether key currently exists.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if err := c.gate(ctx); err != nil {
		return false, err
	}
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, c.wrap(err, "exists failed", goerr.V("key", key))
	}
	return n > 0, nil
}

// TTL returns the remaining time to live of key. Keys without expiry report a
// negative duration, mirroring the underlying service.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, c.wrap(err, "ttl failed", goerr.V("key", key))
	}
	return ttl, nil
}

// Expire sets a fresh expiry on key and reports whether the key existed.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, c.wrap(err, "expire failed", goerr.V("key", key))
	}
	return ok, nil
}
