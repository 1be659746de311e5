package manager

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/engramlab/engram/cachetier"
	"github.com/engramlab/engram/fieldcodec"
	"github.com/engramlab/engram/store"
)

// BaseManager is the generic cache-aside CRUD mediator every entity-specific
// manager is built from. It is parameterized over the record type T, a
// create-input type C, and an update-input type U; the entity manager
// supplies the store delegate, the cache configuration, and the two
// input-shaping hooks.
type BaseManager[T any, PT RecordPtr[T], C any, U any] struct {
	cfg        Config
	delegate   store.Delegate[T]
	cache      *cachetier.Client
	fromCreate func(C) PT
	applyPatch func(PT, U)
	log        *slog.Logger
	stats      *Stats
}

// NewBase builds a mediator. cache may be nil to disable the cache-aside
// paths entirely. fromCreate turns a create input into a fresh record;
// applyPatch applies an update input onto an existing record.
func NewBase[T any, PT RecordPtr[T], C any, U any](
	cfg Config,
	delegate store.Delegate[T],
	cache *cachetier.Client,
	fromCreate func(C) PT,
	applyPatch func(PT, U),
	opts ...Option,
) (*BaseManager[T, PT, C, U], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if delegate == nil {
		return nil, goerr.New("store delegate is required", goerr.V("entity", cfg.EntityType))
	}
	if fromCreate == nil || applyPatch == nil {
		return nil, goerr.New("input shaping hooks are required", goerr.V("entity", cfg.EntityType))
	}

	s := newSettings(opts)
	return &BaseManager[T, PT, C, U]{
		cfg:        cfg,
		delegate:   delegate,
		cache:      cache,
		fromCreate: fromCreate,
		applyPatch: applyPatch,
		log:        s.log,
		stats:      s.stats,
	}, nil
}

// Stats exposes the cache-path counters.
func (m *BaseManager[T, PT, C, U]) Stats() *Stats {
	return m.stats
}

// Create shapes the input, inserts the record, and opportunistically
// populates the cache. A record without an identifier is assigned one; an
// actor attaches tenant and bookkeeping fields when the input omits them.
func (m *BaseManager[T, PT, C, U]) Create(ctx context.Context, input C, actor *Actor) (PT, error) {
	rec := m.fromCreate(input)
	if rec.GetID() == "" {
		rec.SetID(uuid.NewString())
	}
	if actor != nil && rec.GetOrganizationID() == "" && !m.cfg.TenantAgnostic {
		rec.SetOrganizationID(actor.OrganizationID)
	}
	rec.StampCreated(actor.actorID(), time.Now().UTC())

	created, err := m.delegate.Create(ctx, (*T)(rec))
	if err != nil {
		return nil, m.classify(err, rec.GetID())
	}

	result := PT(created)
	m.cacheWrite(ctx, result)
	return result, nil
}

// Read returns the record by identifier. The cache tier is consulted first
// when enabled; a hit returns without touching the store. On a store hit the
// cache is repopulated. A record outside the actor's tenant reports
// ErrNotFound, indistinguishable from absence.
func (m *BaseManager[T, PT, C, U]) Read(ctx context.Context, id string, actor *Actor, opts *ReadOptions) (PT, error) {
	var o ReadOptions
	if opts != nil {
		o = *opts
	}

	if m.cacheReadable() {
		if rec, ok := m.cacheRead(ctx, id); ok {
			if m.visible(rec, actor, o.IncludeDeleted) {
				return rec, nil
			}
			// Cached but not visible to this actor: fall through to
			// the store so visibility rules stay authoritative.
		}
	}

	q := m.scopedQuery(actor, o.IncludeDeleted).And(store.IDEquals{ID: id})
	rec, err := m.delegate.FindFirst(ctx, q)
	if err != nil {
		return nil, m.classify(err, id)
	}

	result := PT(rec)
	m.cacheWrite(ctx, result)
	return result, nil
}

// Exists reports whether the record is visible to the actor.
func (m *BaseManager[T, PT, C, U]) Exists(ctx context.Context, id string, actor *Actor) (bool, error) {
	_, err := m.Read(ctx, id, actor, nil)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update applies a patch to an existing record. The scoped read doubles as
// the access-control gate: an actor from another tenant gets ErrNotFound.
// The cache entry is refreshed on success.
func (m *BaseManager[T, PT, C, U]) Update(ctx context.Context, id string, patch U, actor *Actor) (PT, error) {
	existing, err := m.Read(ctx, id, actor, nil)
	if err != nil {
		return nil, err
	}

	m.applyPatch(existing, patch)
	existing.StampUpdated(actor.actorID(), time.Now().UTC())

	updated, err := m.delegate.Update(ctx, (*T)(existing))
	if err != nil {
		return nil, m.classify(err, id)
	}

	result := PT(updated)
	m.cacheWrite(ctx, result)
	return result, nil
}

// Delete soft-deletes the record: the store row keeps its data with the
// delete flag set, and the cache entry is removed rather than refreshed so a
// deleted record is never served warm.
func (m *BaseManager[T, PT, C, U]) Delete(ctx context.Context, id string, actor *Actor) error {
	existing, err := m.Read(ctx, id, actor, nil)
	if err != nil {
		return err
	}

	existing.SetDeleted(true)
	existing.StampUpdated(actor.actorID(), time.Now().UTC())

	if _, err := m.delegate.Update(ctx, (*T)(existing)); err != nil {
		return m.classify(err, id)
	}

	m.cachePurge(ctx, id)
	return nil
}

// HardDelete permanently removes the store row and purges the cache entry.
// It also reaches soft-deleted records and is never invoked implicitly.
func (m *BaseManager[T, PT, C, U]) HardDelete(ctx context.Context, id string, actor *Actor) error {
	if _, err := m.Read(ctx, id, actor, &ReadOptions{IncludeDeleted: true}); err != nil {
		return err
	}
	if err := m.delegate.Delete(ctx, id); err != nil {
		return m.classify(err, id)
	}
	m.cachePurge(ctx, id)
	return nil
}

// List returns one cursor page of records visible to the actor. The page
// query requests one extra row to detect a next page; the total is computed
// by a parallel count over the same filter.
func (m *BaseManager[T, PT, C, U]) List(ctx context.Context, actor *Actor, opts *ListOptions) (*Page[PT], error) {
	var o ListOptions
	if opts != nil {
		o = *opts
	}
	if o.Limit <= 0 {
		o.Limit = DefaultPageSize
	}
	sortField := o.SortField
	if sortField == "" {
		sortField = m.cfg.sortField()
	}

	base := m.scopedQuery(actor, o.IncludeDeleted)
	if o.StartDate != nil || o.EndDate != nil {
		base = base.And(store.CreatedBetween{Start: o.StartDate, End: o.EndDate})
	}
	if len(o.Filters) > 0 {
		base = base.And(o.Filters...)
	}

	pageQ := base
	pageQ.Sort = store.Sort{Field: sortField, Desc: !o.Ascending}
	pageQ.Limit = o.Limit + 1
	if o.Cursor != "" {
		cur, err := m.delegate.FindUnique(ctx, o.Cursor)
		if err != nil {
			return nil, m.classify(err, o.Cursor)
		}
		pageQ = pageQ.And(store.CursorAfter{
			SortField: sortField,
			SortValue: sortValue(PT(cur), sortField),
			ID:        o.Cursor,
			Desc:      !o.Ascending,
		})
	}

	var (
		recs  []*T
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recs, err = m.delegate.FindMany(gctx, pageQ)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = m.delegate.Count(gctx, base)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, m.classify(err, "")
	}

	hasMore := len(recs) > o.Limit
	if hasMore {
		recs = recs[:o.Limit]
	}
	items := make([]PT, len(recs))
	for i, rec := range recs {
		items[i] = PT(rec)
	}

	page := &Page[PT]{Items: items, Total: total, HasMore: hasMore}
	if hasMore && len(items) > 0 {
		page.NextCursor = items[len(items)-1].GetID()
	}
	return page, nil
}

// Count returns the number of records visible to the actor. An empty result
// is zero, not an error.
func (m *BaseManager[T, PT, C, U]) Count(ctx context.Context, actor *Actor, opts *CountOptions) (int, error) {
	var o CountOptions
	if opts != nil {
		o = *opts
	}
	n, err := m.delegate.Count(ctx, m.scopedQuery(actor, o.IncludeDeleted))
	if err != nil {
		return 0, m.classify(err, "")
	}
	return n, nil
}

// scopedQuery builds the tenant- and delete-flag-scoped base filter.
func (m *BaseManager[T, PT, C, U]) scopedQuery(actor *Actor, includeDeleted bool) store.Query {
	var q store.Query
	if actor != nil && !m.cfg.TenantAgnostic {
		q = q.And(store.TenantEquals{OrganizationID: actor.OrganizationID})
	}
	if !includeDeleted {
		q = q.And(store.DeletedEquals{Deleted: false})
	}
	return q
}

// visible applies the actor's tenant scope and the delete flag to a record
// served from cache, where no store-side filter ran.
func (m *BaseManager[T, PT, C, U]) visible(rec PT, actor *Actor, includeDeleted bool) bool {
	if rec.GetDeleted() && !includeDeleted {
		return false
	}
	if actor != nil && !m.cfg.TenantAgnostic && rec.GetOrganizationID() != actor.OrganizationID {
		return false
	}
	return true
}

// classify maps store failures onto the domain taxonomy, attaching entity
// and identifier context. Unrecognized store errors are logged with full
// context and re-thrown unchanged.
func (m *BaseManager[T, PT, C, U]) classify(err error, id string) error {
	vars := []goerr.Option{goerr.V("entity", m.cfg.EntityType), goerr.V("id", id)}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return goerr.Wrap(err, m.cfg.EntityType+" not found", vars...)
	case errors.Is(err, store.ErrConflict):
		return goerr.Wrap(err, m.cfg.EntityType+" already exists", vars...)
	case errors.Is(err, store.ErrInvalidReference):
		return goerr.Wrap(err, m.cfg.EntityType+" references a missing record", vars...)
	default:
		m.log.Error("unexpected store error",
			"entity", m.cfg.EntityType, "id", id, "error", err)
		return err
	}
}

// cacheReadable reports whether the read path may consult the cache tier.
func (m *BaseManager[T, PT, C, U]) cacheReadable() bool {
	return m.cfg.CacheEnabled && m.cache != nil
}

// cacheWritable additionally requires a configured TTL: an entity type with
// no TTL is never written to cache.
func (m *BaseManager[T, PT, C, U]) cacheWritable() bool {
	return m.cacheReadable() && m.cfg.CacheTTL > 0
}

func (m *BaseManager[T, PT, C, U]) key(id string) string {
	return m.cfg.CachePrefix + id
}

// cacheRead attempts to serve a record from the cache tier. Any failure,
// including an entry that no longer decodes, counts as a miss.
func (m *BaseManager[T, PT, C, U]) cacheRead(ctx context.Context, id string) (PT, bool) {
	key := m.key(id)

	switch m.cfg.CacheForm {
	case FormDocument:
		rec := new(T)
		found, err := m.cache.GetDocument(ctx, key, rec)
		if err != nil || !found {
			m.stats.incMiss()
			return nil, false
		}
		m.stats.incHit()
		return PT(rec), true
	default:
		fields, err := m.cache.GetFlat(ctx, key)
		if err != nil || fields == nil {
			m.stats.incMiss()
			return nil, false
		}
		rec, err := fieldcodec.DecodeInto[T](fields)
		if err != nil {
			m.log.Warn("cached record no longer decodes, treating as miss",
				"entity", m.cfg.EntityType, "key", key, "error", err)
			m.stats.incMiss()
			return nil, false
		}
		m.stats.incHit()
		return PT(rec), true
	}
}

// cacheWrite populates the cache entry for rec, best effort: failures are
// counted and logged, never propagated.
func (m *BaseManager[T, PT, C, U]) cacheWrite(ctx context.Context, rec PT) {
	if !m.cacheWritable() {
		return
	}
	key := m.key(rec.GetID())

	var err error
	switch m.cfg.CacheForm {
	case FormDocument:
		err = m.cache.SetDocument(ctx, key, rec, m.cfg.CacheTTL)
	default:
		var fields map[string]string
		fields, err = fieldcodec.Encode(rec)
		if err == nil {
			err = m.cache.SetFlat(ctx, key, fields, m.cfg.CacheTTL)
		}
	}
	if err != nil {
		m.stats.incWriteFailure()
		m.log.Warn("best-effort cache write failed",
			"entity", m.cfg.EntityType, "key", key, "error", err)
	}
}

// cachePurge removes the cache entry for id, best effort.
func (m *BaseManager[T, PT, C, U]) cachePurge(ctx context.Context, id string) {
	if !m.cacheReadable() {
		return
	}
	key := m.key(id)
	if _, err := m.cache.Delete(ctx, key); err != nil {
		m.stats.incPurgeFailure()
		m.log.Warn("best-effort cache purge failed",
			"entity", m.cfg.EntityType, "key", key, "error", err)
	}
}
