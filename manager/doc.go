// Package manager provides the generic cache-aside mediators that sit
// between entity callers and the persistence layers. Concrete per-entity
// managers (see the managers package) are thin instantiations of two
// bases:
//
//   - [BaseManager]: the full mediator for simple entities, combining an
//     authoritative [store.Delegate] with the cachetier client. Reads
//     consult the cache first and repopulate it on a store hit; writes go
//     through the store and then refresh the cache; deletes purge it.
//   - [BaseMemoryManager]: the store-only mediator for the memory-record
//     kinds, which carry embedding vectors too large to mirror into the
//     cache wholesale. In-process read memoization for those lives in the
//     readcache package.
//
// # Cache Discipline
//
// The authoritative store is always right. Cache failures on the read path
// degrade to a store read; cache failures on the write path are logged,
// counted on [Stats], and never surfaced to the caller. A record read from
// the cache is re-checked for tenant and soft-delete visibility before it
// is returned, so a stale cache entry cannot leak across tenants or revive
// a deleted record.
//
// A manager with CacheEnabled false, a zero CacheTTL, or a nil cache client
// bypasses the cache entirely and behaves exactly like the store-only base.
//
// # Actor Scoping
//
// Every operation takes an [Actor]. Unless the manager is configured
// TenantAgnostic, all queries are scoped to the actor's organization, and
// soft-deleted records are excluded unless the call opts in. Organization
// managers are the tenant-agnostic case: they are the tenant.
//
// # Pagination
//
// List is keyset-paginated: the cursor is the identifier of the last record
// of the previous page, resolved back to its sort value so the page
// predicate is a strict (sort_value, id) comparison. Records present for the
// whole walk appear exactly once regardless of concurrent inserts. The page
// fetch and the total count run concurrently.
//
// # Errors
//
// Store sentinels are wrapped with entity and identifier context on the way
// out; errors.Is against [ErrNotFound], [ErrConflict], and
// [ErrInvalidReference] keeps working through the wrap. Anything
// unrecognized is logged once here and re-thrown unchanged.
package manager
