// Package bunstore implements the store delegate contract on top of bun.
// Postgres (lib/pq) is the production dialect; sqlite backs the test suites.
package bunstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/engramlab/engram/store"
)

// OpenPostgres opens a postgres-backed bun DB from a lib/pq DSN.
func OpenPostgres(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "open postgres", goerr.V("dsn", dsn))
	}
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// OpenSQLite opens a sqlite-backed bun DB, used by tests and local setups.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "open sqlite", goerr.V("dsn", dsn))
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Store is a bun-backed store.Delegate for one entity type.
type Store[T any] struct {
	db *bun.DB
}

var _ store.Delegate[struct{}] = (*Store[struct{}])(nil)

// New creates a delegate over db for the model type T.
func New[T any](db *bun.DB) *Store[T] {
	return &Store[T]{db: db}
}

// FindUnique implements store.Delegate.
func (s *Store[T]) FindUnique(ctx context.Context, id string) (*T, error) {
	rec := new(T)
	err := s.db.NewSelect().Model(rec).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(store.ErrNotFound, "no row for id", goerr.V("id", id))
	}
	if err != nil {
		return nil, classify(err)
	}
	return rec, nil
}

// FindFirst implements store.Delegate.
func (s *Store[T]) FindFirst(ctx context.Context, q store.Query) (*T, error) {
	rec := new(T)
	sel := s.db.NewSelect().Model(rec).Limit(1)
	sel = applyWhere(sel, q)
	sel = applySort(sel, q)
	err := sel.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(store.ErrNotFound, "no row matches filter")
	}
	if err != nil {
		return nil, classify(err)
	}
	return rec, nil
}

// FindMany implements store.Delegate.
func (s *Store[T]) FindMany(ctx context.Context, q store.Query) ([]*T, error) {
	var recs []*T
	sel := s.db.NewSelect().Model(&recs)
	sel = applyWhere(sel, q)
	sel = applySort(sel, q)
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}
	if q.Offset > 0 {
		sel = sel.Offset(q.Offset)
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, classify(err)
	}
	return recs, nil
}

// Create implements store.Delegate.
func (s *Store[T]) Create(ctx context.Context, rec *T) (*T, error) {
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return nil, classify(err)
	}
	return rec, nil
}

// Update implements store.Delegate.
func (s *Store[T]) Update(ctx context.Context, rec *T) (*T, error) {
	res, err := s.db.NewUpdate().Model(rec).WherePK().Exec(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, goerr.Wrap(store.ErrNotFound, "no row matched update")
	}
	return rec, nil
}

// Delete implements store.Delegate.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*T)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return classify(err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return goerr.Wrap(store.ErrNotFound, "no row matched delete", goerr.V("id", id))
	}
	return nil
}

// Count implements store.Delegate.
func (s *Store[T]) Count(ctx context.Context, q store.Query) (int, error) {
	sel := s.db.NewSelect().Model((*T)(nil))
	sel = applyWhere(sel, q)
	n, err := sel.Count(ctx)
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// applyWhere translates the typed predicates onto the select query.
func applyWhere(sel *bun.SelectQuery, q store.Query) *bun.SelectQuery {
	for _, pred := range q.Where {
		switch p := pred.(type) {
		case store.IDEquals:
			sel = sel.Where("id = ?", p.ID)
		case store.TenantEquals:
			sel = sel.Where("organization_id = ?", p.OrganizationID)
		case store.DeletedEquals:
			sel = sel.Where("is_deleted = ?", p.Deleted)
		case store.AgentEquals:
			sel = sel.Where("agent_id = ?", p.AgentID)
		case store.CreatedBetween:
			if p.Start != nil {
				sel = sel.Where("created_at >= ?", *p.Start)
			}
			if p.End != nil {
				sel = sel.Where("created_at <= ?", *p.End)
			}
		case store.CursorAfter:
			if p.Desc {
				sel = sel.Where("(?, id) < (?, ?)", bun.Ident(p.SortField), p.SortValue, p.ID)
			} else {
				sel = sel.Where("(?, id) > (?, ?)", bun.Ident(p.SortField), p.SortValue, p.ID)
			}
		case store.FieldEquals:
			sel = sel.Where("? = ?", bun.Ident(p.Column), p.Value)
		}
	}
	return sel
}

// applySort orders by the sort field with the identifier as tiebreaker so
// that keyset cursors stay monotonic under colliding sort values.
func applySort(sel *bun.SelectQuery, q store.Query) *bun.SelectQuery {
	field := q.Sort.Field
	if field == "" {
		field = "created_at"
	}
	if q.Sort.Desc {
		return sel.OrderExpr("? DESC, id DESC", bun.Ident(field))
	}
	return sel.OrderExpr("? ASC, id ASC", bun.Ident(field))
}
