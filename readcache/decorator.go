package readcache

import (
	"context"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/viccon/sturdyc"

	"github.com/engramlab/engram/manager"
)

// Memoizer decorates a memory-record manager with in-process read-through
// memoization. Reads, lists, and counts are served from memory within the
// configured TTL; writes pass through to the base manager and invalidate the
// affected entries.
//
// Records and pages returned by a Memoizer may be shared across callers
// until their entry expires. Treat them as read-only; mutate through Update.
type Memoizer[T any, PT manager.MemoryRecordPtr[T], C any, U any] struct {
	base   *manager.BaseMemoryManager[T, PT, C, U]
	client *sturdyc.Client[any]

	// keys tracks every key handed to the client so writes can invalidate
	// by prefix. The underlying cache has no key enumeration of its own.
	keys sync.Map
}

// Wrap decorates base with memoization per cfg.
func Wrap[T any, PT manager.MemoryRecordPtr[T], C any, U any](
	base *manager.BaseMemoryManager[T, PT, C, U],
	cfg Config,
) (*Memoizer[T, PT, C, U], error) {
	if base == nil {
		return nil, goerr.New("readcache: base manager is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Memoizer[T, PT, C, U]{
		base:   base,
		client: cfg.newClient(),
	}, nil
}

// Create passes through and invalidates list and count entries, whose
// membership and totals the new record changes.
func (m *Memoizer[T, PT, C, U]) Create(ctx context.Context, input C, actor *manager.Actor) (PT, error) {
	rec, err := m.base.Create(ctx, input, actor)
	if err == nil {
		m.invalidatePrefix("list")
		m.invalidatePrefix("count")
	}
	return rec, err
}

// Read serves the record from memory when warm, fetching through the base
// manager otherwise.
func (m *Memoizer[T, PT, C, U]) Read(ctx context.Context, id string, actor *manager.Actor, opts *manager.ReadOptions) (PT, error) {
	key := serializeKey("read", id, actor, opts)
	m.track(key)
	return getOrFetch(ctx, m.client, key, func(ctx context.Context) (PT, error) {
		return m.base.Read(ctx, id, actor, opts)
	})
}

// Update passes through and invalidates the record's read entries along with
// lists and counts.
func (m *Memoizer[T, PT, C, U]) Update(ctx context.Context, id string, patch U, actor *manager.Actor) (PT, error) {
	rec, err := m.base.Update(ctx, id, patch, actor)
	if err == nil {
		m.invalidateRecord(id)
	}
	return rec, err
}

// Delete passes through and invalidates the record's entries.
func (m *Memoizer[T, PT, C, U]) Delete(ctx context.Context, id string, actor *manager.Actor) error {
	err := m.base.Delete(ctx, id, actor)
	if err == nil {
		m.invalidateRecord(id)
	}
	return err
}

// HardDelete passes through and invalidates the record's entries.
func (m *Memoizer[T, PT, C, U]) HardDelete(ctx context.Context, id string, actor *manager.Actor) error {
	err := m.base.HardDelete(ctx, id, actor)
	if err == nil {
		m.invalidateRecord(id)
	}
	return err
}

// List serves one page from memory when warm.
func (m *Memoizer[T, PT, C, U]) List(ctx context.Context, actor *manager.Actor, opts *manager.MemoryListOptions) (*manager.Page[PT], error) {
	key := serializeKey("list", actor, opts)
	m.track(key)
	return getOrFetch(ctx, m.client, key, func(ctx context.Context) (*manager.Page[PT], error) {
		return m.base.List(ctx, actor, opts)
	})
}

// Count serves the count from memory when warm.
func (m *Memoizer[T, PT, C, U]) Count(ctx context.Context, actor *manager.Actor, opts *manager.CountOptions) (int, error) {
	key := serializeKey("count", actor, opts)
	m.track(key)
	return getOrFetch(ctx, m.client, key, func(ctx context.Context) (int, error) {
		return m.base.Count(ctx, actor, opts)
	})
}

func (m *Memoizer[T, PT, C, U]) track(key string) {
	m.keys.Store(key, struct{}{})
}

func (m *Memoizer[T, PT, C, U]) invalidateRecord(id string) {
	m.invalidatePrefix("read" + keySeparator + id + keySeparator)
	m.invalidatePrefix("list")
	m.invalidatePrefix("count")
}

func (m *Memoizer[T, PT, C, U]) invalidatePrefix(prefix string) {
	m.keys.Range(func(k, _ any) bool {
		key := k.(string)
		if strings.HasPrefix(key, prefix) {
			m.client.Delete(key)
			m.keys.Delete(key)
		}
		return true
	})
}

// getOrFetch adds type safety on top of the any-valued client: the memoized
// value is asserted back to the fetch function's return type.
func getOrFetch[V any](ctx context.Context, client *sturdyc.Client[any], key string, fetch func(context.Context) (V, error)) (V, error) {
	res, err := client.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, ok := res.(V)
	if !ok {
		var zero V
		return zero, goerr.New("memoized value has unexpected type", goerr.V("key", key))
	}
	return v, nil
}
