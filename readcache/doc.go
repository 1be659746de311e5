// Package readcache adds optional in-process memoization on top of the
// memory-record managers, which carry no external cache tier of their own.
//
// # When To Use It
//
// The memory kinds are written far more often than the simple entities, and
// their embedding payloads make external caching expensive. When one agent's
// working set is read repeatedly in a short window (prompt assembly hitting
// the same episodic and semantic records every turn), wrapping the manager in
// a [Memoizer] turns those repeats into in-memory hits without involving the
// cache tier at all.
//
// Skip it for write-dominated or scan-once access patterns; the memoization
// would only churn.
//
// # Consistency
//
// Memoization is per process. Writes through the same Memoizer invalidate
// the affected entries immediately; writes from other processes are only
// seen after the TTL. Choose the TTL accordingly: this package trades
// bounded staleness for read latency, exactly like the cache tier does for
// the simple entities, just with process scope instead of shared scope.
//
// # Keys
//
// Memoization keys are derived from the method name and every argument,
// including the acting principal, so two actors never share an entry even
// when they ask for the same record.
package readcache
