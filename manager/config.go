package manager

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/engramlab/engram/store"
)

// Form selects the physical cache representation of an entity type.
type Form int

const (
	// FormFlat stores records as field-to-string maps (see fieldcodec).
	FormFlat Form = iota
	// FormDocument stores records as whole JSON documents.
	FormDocument
)

// Supported sort fields for list pagination. The sort key must be one the
// cursor can be resolved against.
const (
	SortFieldCreatedAt = "created_at"
	SortFieldUpdatedAt = "updated_at"
)

// DefaultPageSize is the list page size when the caller does not choose one.
const DefaultPageSize = 50

// Config is the per-entity-type configuration a manager is built from.
type Config struct {
	// EntityType names the entity in errors, logs, and TTL policy.
	EntityType string

	// CacheEnabled turns the cache-aside read/write paths on. The cache
	// tier client must also be non-nil for caching to take effect.
	CacheEnabled bool

	// CachePrefix is prepended to record identifiers to form cache keys.
	CachePrefix string

	// CacheTTL is the lifetime of cache entries. A zero TTL means the
	// entity type is never written to the cache, even when enabled.
	CacheTTL time.Duration

	// CacheForm selects flat or document representation.
	CacheForm Form

	// TenantAgnostic disables tenant scoping; only the tenant entity
	// itself sets this.
	TenantAgnostic bool

	// SortField is the default list sort key; created_at when empty.
	SortField string
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.EntityType == "" {
		return goerr.New("manager config: entity type is required")
	}
	if c.CacheEnabled && c.CachePrefix == "" {
		return goerr.New("manager config: cache prefix is required when caching is enabled",
			goerr.V("entity", c.EntityType))
	}
	switch c.SortField {
	case "", SortFieldCreatedAt, SortFieldUpdatedAt:
	default:
		return goerr.New("manager config: unsupported sort field",
			goerr.V("entity", c.EntityType), goerr.V("sort_field", c.SortField))
	}
	return nil
}

// sortField returns the configured default sort key.
func (c Config) sortField() string {
	if c.SortField == "" {
		return SortFieldCreatedAt
	}
	return c.SortField
}

// settings carries the cross-cutting options shared by both mediators.
type settings struct {
	log   *slog.Logger
	stats *Stats
}

// Option customizes a manager.
type Option func(*settings)

// WithLogger sets the logger used for best-effort cache failures and
// unexpected store errors.
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithStats attaches a Stats sink, making best-effort cache failures
// observable instead of log-only.
func WithStats(stats *Stats) Option {
	return func(s *settings) {
		s.stats = stats
	}
}

func newSettings(opts []Option) settings {
	s := settings{log: slog.Default(), stats: NewStats()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// ReadOptions modifies a single read.
type ReadOptions struct {
	// IncludeDeleted also returns soft-deleted records.
	IncludeDeleted bool
}

// ListOptions modifies a list call. The zero value lists the first page of
// live records, newest first.
type ListOptions struct {
	// Cursor is the identifier of the last record of the previous page,
	// exclusive.
	Cursor string

	// Limit caps the page size; DefaultPageSize when zero.
	Limit int

	// SortField overrides the manager's default sort key.
	SortField string

	// Ascending flips the default newest-first order.
	Ascending bool

	// StartDate and EndDate bound the record creation timestamp.
	StartDate *time.Time
	EndDate   *time.Time

	// IncludeDeleted also lists soft-deleted records.
	IncludeDeleted bool

	// Filters narrows the listing with additional column predicates. They
	// apply to both the page query and the total count.
	Filters []store.Predicate
}

// CountOptions modifies a count call.
type CountOptions struct {
	IncludeDeleted bool
}

// Page is one page of list results. Total is the full filtered count, not
// the page size; NextCursor is set only when HasMore.
type Page[PT any] struct {
	Items      []PT   `json:"items"`
	Total      int    `json:"total"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}
