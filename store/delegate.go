package store

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Sentinel errors implementations map driver failures onto. Callers test
// with errors.Is; the mediator layer adds entity and identifier context.
var (
	// ErrNotFound reports an absent record. The mediators also use it for
	// records outside the actor's tenant, deliberately indistinguishable
	// from absence.
	ErrNotFound = goerr.New("record not found")

	// ErrConflict reports a uniqueness violation.
	ErrConflict = goerr.New("unique constraint violation")

	// ErrInvalidReference reports a dangling foreign key.
	ErrInvalidReference = goerr.New("invalid reference")
)

// Delegate is the authoritative store surface for one entity type. The store
// owns record lifecycle; this layer constructs parameters and interprets the
// sentinel errors above.
type Delegate[T any] interface {
	// FindUnique returns the record with the given identifier regardless
	// of tenant or delete flag, or ErrNotFound.
	FindUnique(ctx context.Context, id string) (*T, error)

	// FindFirst returns the first record matching q, or ErrNotFound.
	FindFirst(ctx context.Context, q Query) (*T, error)

	// FindMany returns all records matching q, honoring sort, limit, and
	// offset. An empty result is success, not an error.
	FindMany(ctx context.Context, q Query) ([]*T, error)

	// Create inserts rec and returns the stored row.
	Create(ctx context.Context, rec *T) (*T, error)

	// Update writes rec by primary key and returns the stored row, or
	// ErrNotFound when no row matched.
	Update(ctx context.Context, rec *T) (*T, error)

	// Delete permanently removes the row with the given identifier, or
	// returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Count returns the number of records matching q's filter. Sort,
	// limit, and offset are ignored.
	Count(ctx context.Context, q Query) (int, error)
}

// Predicate is one filter condition of a Query. The closed set of
// implementations below is the whole filter vocabulary the mediators use.
type Predicate interface {
	predicate()
}

// IDEquals filters on the record identifier.
type IDEquals struct {
	ID string
}

// TenantEquals scopes the query to one organization.
type TenantEquals struct {
	OrganizationID string
}

// DeletedEquals filters on the soft-delete flag.
type DeletedEquals struct {
	Deleted bool
}

// AgentEquals scopes memory-record queries to one owning agent.
type AgentEquals struct {
	AgentID string
}

// CreatedBetween bounds the creation timestamp. Either side may be nil.
type CreatedBetween struct {
	Start *time.Time
	End   *time.Time
}

// CursorAfter is a strict keyset predicate: rows ordered after the record
// identified by (SortValue, ID) under the query's sort direction.
type CursorAfter struct {
	SortField string
	SortValue time.Time
	ID        string
	Desc      bool
}

// FieldEquals filters on an arbitrary column. Column names come from entity
// manager code, never from callers.
type FieldEquals struct {
	Column string
	Value  any
}

func (IDEquals) predicate()       {}
func (TenantEquals) predicate()   {}
func (DeletedEquals) predicate()  {}
func (AgentEquals) predicate()    {}
func (CreatedBetween) predicate() {}
func (CursorAfter) predicate()    {}
func (FieldEquals) predicate()    {}

// Sort names the stable sort key of a query.
type Sort struct {
	Field string
	Desc  bool
}

// Query is the parameter block for FindFirst, FindMany, and Count.
type Query struct {
	Where  []Predicate
	Sort   Sort
	Limit  int
	Offset int
}

// And returns a copy of q with additional predicates appended.
func (q Query) And(preds ...Predicate) Query {
	where := make([]Predicate, 0, len(q.Where)+len(preds))
	where = append(where, q.Where...)
	where = append(where, preds...)
	q.Where = where
	return q
}
