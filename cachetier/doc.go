// Package cachetier is a thin client over the external key/value service used
// as the fast auxiliary cache in front of the authoritative store.
//
// # Record Shapes
//
// Two physical representations are supported:
//
//   - Flat records: a field name to string map, stored as a hash. Used for
//     simple entities without nested structure. See the fieldcodec package
//     for the string encoding and the reconstruction heuristics.
//   - Document records: a whole JSON value, stored under a single key. Used
//     for embedding-bearing record kinds where string coercion would destroy
//     nested structure and vectors.
//
// Both shapes take an explicit per-write TTL; entity-level TTL policy lives
// with the callers (see the entity package).
//
// # Failure Semantics
//
// Every failing operation wraps [ErrUnavailable]. The mediators in the
// manager package treat this as a cache miss on reads and as a logged,
// best-effort no-op on writes, so a degraded cache can never fail the
// authoritative store path. [Client.Ready] exposes reachability as a
// predicate instead of forcing callers to probe with a throwing command.
//
// Connection-level retries with bounded exponential backoff are configured
// through Config (MaxRetries, MinRetryBackoff, MaxRetryBackoff) and handled
// by the underlying driver. No operation in this package retries above the
// connection level.
//
// # Key Enumeration
//
// [Client.Scan] enumerates keys by pattern in batches through a cursor, which
// keeps large key spaces from blocking the service. Delivery is at-least-once
// under concurrent writes; a key that exists for the whole scan duration is
// never dropped.
//
// # Lifecycle
//
// One Client should exist per process, created once at the composition root
// (see pkg/di) and shared by every mediator, with Close called at shutdown.
package cachetier
