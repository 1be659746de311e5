package manager

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/engramlab/engram/store"
)

// fakeDelegate is an in-memory store.Delegate that evaluates the full
// predicate vocabulary, so the mediators are tested against real query
// semantics instead of canned responses. Call counts per operation let tests
// assert which tier served a read.
type fakeDelegate[T any, PT RecordPtr[T]] struct {
	mu    sync.Mutex
	recs  map[string]*T
	calls map[string]int
	fail  map[string]error
}

func newFakeDelegate[T any, PT RecordPtr[T]]() *fakeDelegate[T, PT] {
	return &fakeDelegate[T, PT]{
		recs:  make(map[string]*T),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

// seed inserts a record directly, bypassing Create bookkeeping.
func (f *fakeDelegate[T, PT]) seed(rec *T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.recs[PT(&cp).GetID()] = &cp
}

// failWith forces the named operation to return err.
func (f *fakeDelegate[T, PT]) failWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeDelegate[T, PT]) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeDelegate[T, PT]) enter(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeDelegate[T, PT]) matches(rec PT, p store.Predicate) bool {
	switch p := p.(type) {
	case store.IDEquals:
		return rec.GetID() == p.ID
	case store.TenantEquals:
		return rec.GetOrganizationID() == p.OrganizationID
	case store.DeletedEquals:
		return rec.GetDeleted() == p.Deleted
	case store.AgentEquals:
		mr, ok := any(rec).(MemoryRecord)
		return ok && mr.GetAgentID() == p.AgentID
	case store.CreatedBetween:
		at := rec.GetCreatedAt()
		if p.Start != nil && at.Before(*p.Start) {
			return false
		}
		if p.End != nil && at.After(*p.End) {
			return false
		}
		return true
	case store.CursorAfter:
		v := sortValue(rec, p.SortField)
		if p.Desc {
			return v.Before(p.SortValue) || (v.Equal(p.SortValue) && rec.GetID() < p.ID)
		}
		return v.After(p.SortValue) || (v.Equal(p.SortValue) && rec.GetID() > p.ID)
	case store.FieldEquals:
		// Not evaluated structurally; the tests that need it use seeded data
		// where the predicate is vacuous.
		return true
	}
	return false
}

func (f *fakeDelegate[T, PT]) filterLocked(q store.Query) []*T {
	var out []*T
	for _, rec := range f.recs {
		ok := true
		for _, p := range q.Where {
			if !f.matches(PT(rec), p) {
				ok = false
				break
			}
		}
		if ok {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := PT(out[i]), PT(out[j])
		av, bv := sortValue(a, q.Sort.Field), sortValue(b, q.Sort.Field)
		if !av.Equal(bv) {
			if q.Sort.Desc {
				return av.After(bv)
			}
			return av.Before(bv)
		}
		if q.Sort.Desc {
			return a.GetID() > b.GetID()
		}
		return a.GetID() < b.GetID()
	})
	return out
}

func (f *fakeDelegate[T, PT]) FindUnique(_ context.Context, id string) (*T, error) {
	if err := f.enter("FindUnique"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeDelegate[T, PT]) FindFirst(_ context.Context, q store.Query) (*T, error) {
	if err := f.enter("FindFirst"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.filterLocked(q)
	if len(out) == 0 {
		return nil, store.ErrNotFound
	}
	return out[0], nil
}

func (f *fakeDelegate[T, PT]) FindMany(_ context.Context, q store.Query) ([]*T, error) {
	if err := f.enter("FindMany"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.filterLocked(q)
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeDelegate[T, PT]) Create(_ context.Context, rec *T) (*T, error) {
	if err := f.enter("Create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := PT(rec).GetID()
	if _, exists := f.recs[id]; exists {
		return nil, store.ErrConflict
	}
	cp := *rec
	f.recs[id] = &cp
	out := cp
	return &out, nil
}

func (f *fakeDelegate[T, PT]) Update(_ context.Context, rec *T) (*T, error) {
	if err := f.enter("Update"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := PT(rec).GetID()
	if _, exists := f.recs[id]; !exists {
		return nil, store.ErrNotFound
	}
	cp := *rec
	f.recs[id] = &cp
	out := cp
	return &out, nil
}

func (f *fakeDelegate[T, PT]) Delete(_ context.Context, id string) error {
	if err := f.enter("Delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.recs[id]; !exists {
		return store.ErrNotFound
	}
	delete(f.recs, id)
	return nil
}

func (f *fakeDelegate[T, PT]) Count(_ context.Context, q store.Query) (int, error) {
	if err := f.enter("Count"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.filterLocked(store.Query{Where: q.Where})), nil
}

var _ store.Delegate[noopRecord] = (*fakeDelegate[noopRecord, *noopRecord])(nil)

// noopRecord only exists to satisfy the interface assertion above.
type noopRecord struct{}

func (*noopRecord) GetID() string                  { return "" }
func (*noopRecord) SetID(string)                   {}
func (*noopRecord) GetOrganizationID() string      { return "" }
func (*noopRecord) SetOrganizationID(string)       {}
func (*noopRecord) GetDeleted() bool               { return false }
func (*noopRecord) SetDeleted(bool)                {}
func (*noopRecord) GetCreatedAt() time.Time        { return time.Time{} }
func (*noopRecord) GetUpdatedAt() time.Time        { return time.Time{} }
func (*noopRecord) StampCreated(string, time.Time) {}
func (*noopRecord) StampUpdated(string, time.Time) {}
