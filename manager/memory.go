package manager

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/engramlab/engram/store"
)

// MemoryListOptions extends ListOptions with the owning-agent scope every
// memory-record list accepts.
type MemoryListOptions struct {
	ListOptions

	// AgentID restricts the list to one owning agent when non-empty.
	AgentID string
}

// BaseMemoryManager is the mediator variant for the embedding-bearing,
// high-write-volume record kinds. It shares the actor-scoping and pagination
// contract of BaseManager but carries no cache tier dependency: embedding
// vectors are large, and whether a call site pays the cache-population cost
// is the specific memory manager's decision (see the readcache package).
// Its error mapping is also narrower: unique violations and not-found only.
type BaseMemoryManager[T any, PT MemoryRecordPtr[T], C any, U any] struct {
	cfg        Config
	delegate   store.Delegate[T]
	fromCreate func(C) PT
	applyPatch func(PT, U)
	log        *slog.Logger
	stats      *Stats
}

// NewMemory builds a memory-record mediator.
func NewMemory[T any, PT MemoryRecordPtr[T], C any, U any](
	cfg Config,
	delegate store.Delegate[T],
	fromCreate func(C) PT,
	applyPatch func(PT, U),
	opts ...Option,
) (*BaseMemoryManager[T, PT, C, U], error) {
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
	return &BaseMemoryManager[T, PT, C, U]{
		cfg:        cfg,
		delegate:   delegate,
		fromCreate: fromCreate,
		applyPatch: applyPatch,
		log:        s.log,
		stats:      s.stats,
	}, nil
}

// Create shapes the input and inserts the record.
func (m *BaseMemoryManager[T, PT, C, U]) Create(ctx context.Context, input C, actor *Actor) (PT, error) {
	rec := m.fromCreate(input)
	if rec.GetID() == "" {
		rec.SetID(uuid.NewString())
	}
	if actor != nil && rec.GetOrganizationID() == "" {
		rec.SetOrganizationID(actor.OrganizationID)
	}
	rec.StampCreated(actor.actorID(), time.Now().UTC())

	created, err := m.delegate.Create(ctx, (*T)(rec))
	if err != nil {
		return nil, m.classify(err, rec.GetID())
	}
	return PT(created), nil
}

// Read returns the record by identifier, scoped to the actor's tenant.
func (m *BaseMemoryManager[T, PT, C, U]) Read(ctx context.Context, id string, actor *Actor, opts *ReadOptions) (PT, error) {
	var o ReadOptions
	if opts != nil {
		o = *opts
	}
	q := m.scopedQuery(actor, o.IncludeDeleted).And(store.IDEquals{ID: id})
	rec, err := m.delegate.FindFirst(ctx, q)
	if err != nil {
		return nil, m.classify(err, id)
	}
	return PT(rec), nil
}

// Update applies a patch behind the scoped existence check.
func (m *BaseMemoryManager[T, PT, C, U]) Update(ctx context.Context, id string, patch U, actor *Actor) (PT, error) {
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
	return PT(updated), nil
}

// Delete soft-deletes the record.
func (m *BaseMemoryManager[T, PT, C, U]) Delete(ctx context.Context, id string, actor *Actor) error {
	existing, err := m.Read(ctx, id, actor, nil)
	if err != nil {
		return err
	}
	existing.SetDeleted(true)
	existing.StampUpdated(actor.actorID(), time.Now().UTC())
	if _, err := m.delegate.Update(ctx, (*T)(existing)); err != nil {
		return m.classify(err, id)
	}
	return nil
}

// HardDelete permanently removes the record, including soft-deleted ones.
func (m *BaseMemoryManager[T, PT, C, U]) HardDelete(ctx context.Context, id string, actor *Actor) error {
	if _, err := m.Read(ctx, id, actor, &ReadOptions{IncludeDeleted: true}); err != nil {
		return err
	}
	if err := m.delegate.Delete(ctx, id); err != nil {
		return m.classify(err, id)
	}
	return nil
}

// List returns one cursor page, optionally scoped to an owning agent on top
// of the actor's tenant.
func (m *BaseMemoryManager[T, PT, C, U]) List(ctx context.Context, actor *Actor, opts *MemoryListOptions) (*Page[PT], error) {
	var o MemoryListOptions
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
	if o.AgentID != "" {
		base = base.And(store.AgentEquals{AgentID: o.AgentID})
	}
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

// Count returns the number of records visible to the actor.
func (m *BaseMemoryManager[T, PT, C, U]) Count(ctx context.Context, actor *Actor, opts *CountOptions) (int, error) {
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

func (m *BaseMemoryManager[T, PT, C, U]) scopedQuery(actor *Actor, includeDeleted bool) store.Query {
	var q store.Query
	if actor != nil {
		q = q.And(store.TenantEquals{OrganizationID: actor.OrganizationID})
	}
	if !includeDeleted {
		q = q.And(store.DeletedEquals{Deleted: false})
	}
	return q
}

// classify maps store failures for the memory kinds. These have no
// foreign-key-heavy relations at this layer, so only uniqueness and
// not-found are domain conditions; everything else is logged and re-thrown.
func (m *BaseMemoryManager[T, PT, C, U]) classify(err error, id string) error {
	vars := []goerr.Option{goerr.V("entity", m.cfg.EntityType), goerr.V("id", id)}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return goerr.Wrap(err, m.cfg.EntityType+" not found", vars...)
	case errors.Is(err, store.ErrConflict):
		return goerr.Wrap(err, m.cfg.EntityType+" already exists", vars...)
	default:
		m.log.Error("unexpected store error",
			"entity", m.cfg.EntityType, "id", id, "error", err)
		return err
	}
}
