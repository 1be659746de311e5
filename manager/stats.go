package manager

import "github.com/puzpuzpuz/xsync/v3"

// Stats counts cache-path outcomes. Cache writes are best-effort and never
// fail the caller, so their failures surface here (and in logs) instead of
// as returned errors; tests assert on these counters deterministically.
type Stats struct {
	hits          *xsync.Counter
	misses        *xsync.Counter
	writeFailures *xsync.Counter
	purgeFailures *xsync.Counter
}

// NewStats returns a zeroed Stats.
func NewStats() *Stats {
	return &Stats{
		hits:          xsync.NewCounter(),
		misses:        xsync.NewCounter(),
		writeFailures: xsync.NewCounter(),
		purgeFailures: xsync.NewCounter(),
	}
}

// CacheHits is the number of reads served from the cache tier.
func (s *Stats) CacheHits() int64 { return s.hits.Value() }

// CacheMisses is the number of reads that fell through to the store.
func (s *Stats) CacheMisses() int64 { return s.misses.Value() }

// CacheWriteFailures is the number of swallowed cache population failures.
func (s *Stats) CacheWriteFailures() int64 { return s.writeFailures.Value() }

// CachePurgeFailures is the number of swallowed cache invalidation failures.
func (s *Stats) CachePurgeFailures() int64 { return s.purgeFailures.Value() }

func (s *Stats) incHit()          { s.hits.Inc() }
func (s *Stats) incMiss()         { s.misses.Inc() }
func (s *Stats) incWriteFailure() { s.writeFailures.Inc() }
func (s *Stats) incPurgeFailure() { s.purgeFailures.Inc() }
