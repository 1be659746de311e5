// Package store defines the contract between the mediators and the
// authoritative relational store.
//
// The mediators never issue raw queries. They only ever call the six
// operations of [Delegate] with a [Query] they construct from actor context
// and per-call options. Filters are composed from typed predicates (tenant
// equality, delete-flag equality, date range, keyset cursor, field equality)
// so that an unsupported combination is a construction-time error instead of
// a silently ignored map field.
//
// Implementations classify driver-specific failures into the sentinel errors
// [ErrNotFound], [ErrConflict], and [ErrInvalidReference]; anything else is
// passed through unchanged for the mediator to log and re-throw.
package store
