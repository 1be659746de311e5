// Package di is the composition root: it owns the process-wide cache tier
// client and database handle as lazy singletons and hands out per-entity
// managers wired to them.
package di

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/uptrace/bun"

	"github.com/engramlab/engram/bunstore"
	"github.com/engramlab/engram/cachetier"
	"github.com/engramlab/engram/entity"
	"github.com/engramlab/engram/manager"
	"github.com/engramlab/engram/managers"
	"github.com/engramlab/engram/readcache"
)

// Database drivers the container can open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config aggregates the process-level settings the container builds from.
type Config struct {
	// Cache configures the cache tier client.
	Cache cachetier.Config

	// Driver selects the database driver, DriverPostgres or DriverSQLite.
	Driver string

	// DatabaseDSN is the driver-specific connection string.
	DatabaseDSN string

	// ReadCache configures the in-process memoizers handed out by the
	// Memoized* accessors. Nil uses readcache.DefaultConfig.
	ReadCache *readcache.Config
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return goerr.New("di config: unknown database driver", goerr.V("driver", c.Driver))
	}
	if c.DatabaseDSN == "" {
		return goerr.New("di config: database dsn is required")
	}
	return c.Cache.Validate()
}

// Container hands out the shared infrastructure and the entity managers
// built on it. The cache client and database handle are created once, on
// first use; managers are cheap wiring structs built per call.
type Container struct {
	cfg Config
	log *slog.Logger

	cacheOnce sync.Once
	cache     *cachetier.Client
	cacheErr  error

	dbOnce sync.Once
	db     *bun.DB
	dbErr  error
}

// Option customizes the container.
type Option func(*Container)

// WithLogger sets the logger passed down to every manager.
func WithLogger(log *slog.Logger) Option {
	return func(c *Container) {
		c.log = log
	}
}

// New builds a container. No connection is opened until a component that
// needs one is requested.
func New(cfg Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Container{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Cache returns the process-wide cache tier client, connecting on first use.
func (c *Container) Cache() (*cachetier.Client, error) {
	c.cacheOnce.Do(func() {
		c.cache, c.cacheErr = cachetier.New(c.cfg.Cache)
	})
	return c.cache, c.cacheErr
}

// DB returns the process-wide database handle, opening it on first use.
func (c *Container) DB() (*bun.DB, error) {
	c.dbOnce.Do(func() {
		switch c.cfg.Driver {
		case DriverSQLite:
			c.db, c.dbErr = bunstore.OpenSQLite(c.cfg.DatabaseDSN)
		default:
			c.db, c.dbErr = bunstore.OpenPostgres(c.cfg.DatabaseDSN)
		}
	})
	return c.db, c.dbErr
}

// Close releases the shared connections. Safe to call when nothing was ever
// opened.
func (c *Container) Close() error {
	var errs []error
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Container) opts() []manager.Option {
	return []manager.Option{manager.WithLogger(c.log)}
}

// deps resolves the two shared handles for a cache-aside manager.
func (c *Container) deps() (*bun.DB, *cachetier.Client, error) {
	db, err := c.DB()
	if err != nil {
		return nil, nil, err
	}
	cache, err := c.Cache()
	if err != nil {
		return nil, nil, err
	}
	return db, cache, nil
}

// Organizations builds the tenant manager.
func (c *Container) Organizations() (*managers.OrganizationManager, error) {
	db, cache, err := c.deps()
	if err != nil {
		return nil, err
	}
	return managers.NewOrganizations(bunstore.New[entity.Organization](db), cache, c.opts()...)
}

// Users builds the user manager.
func (c *Container) Users() (*managers.UserManager, error) {
	db, cache, err := c.deps()
	if err != nil {
		return nil, err
	}
	return managers.NewUsers(bunstore.New[entity.User](db), cache, c.opts()...)
}

// Clients builds the client-application manager.
func (c *Container) Clients() (*managers.ClientManager, error) {
	db, cache, err := c.deps()
	if err != nil {
		return nil, err
	}
	return managers.NewClients(bunstore.New[entity.Client](db), cache, c.opts()...)
}

// Agents builds the agent manager.
func (c *Container) Agents() (*managers.AgentManager, error) {
	db, cache, err := c.deps()
	if err != nil {
		return nil, err
	}
	return managers.NewAgents(bunstore.New[entity.Agent](db), cache, c.opts()...)
}

// Tools builds the tool manager.
func (c *Container) Tools() (*managers.ToolManager, error) {
	db, cache, err := c.deps()
	if err != nil {
		return nil, err
	}
	return managers.NewTools(bunstore.New[entity.Tool](db), cache, c.opts()...)
}

// Messages builds the message manager.
func (c *Container) Messages() (*managers.MessageManager, error) {
	db, cache, err := c.deps()
	if err != nil {
		return nil, err
	}
	return managers.NewMessages(bunstore.New[entity.Message](db), cache, c.opts()...)
}

// EpisodicEvents builds the episodic-event manager. Memory managers take no
// cache tier; see the Memoized variants for in-process read caching.
func (c *Container) EpisodicEvents() (*managers.EpisodicManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	return managers.NewEpisodicEvents(bunstore.New[entity.EpisodicEvent](db), c.opts()...)
}

// MemoizedEpisodicEvents builds the episodic-event manager behind a read
// memoizer.
func (c *Container) MemoizedEpisodicEvents() (*managers.MemoizedEpisodicManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	return managers.NewMemoizedEpisodicEvents(bunstore.New[entity.EpisodicEvent](db), c.readCacheConfig(), c.opts()...)
}

// SemanticItems builds the semantic-item manager.
func (c *Container) SemanticItems() (*managers.SemanticManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	return managers.NewSemanticItems(bunstore.New[entity.SemanticItem](db), c.opts()...)
}

// MemoizedSemanticItems builds the semantic-item manager behind a read
// memoizer.
func (c *Container) MemoizedSemanticItems() (*managers.MemoizedSemanticManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	return managers.NewMemoizedSemanticItems(bunstore.New[entity.SemanticItem](db), c.readCacheConfig(), c.opts()...)
}

// ProceduralItems builds the procedural-item manager.
func (c *Container) ProceduralItems() (*managers.ProceduralManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	return managers.NewProceduralItems(bunstore.New[entity.ProceduralItem](db), c.opts()...)
}

// ResourceItems builds the resource-item manager.
func (c *Container) ResourceItems() (*managers.ResourceManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	return managers.NewResourceItems(bunstore.New[entity.ResourceItem](db), c.opts()...)
}

// VaultItems builds the knowledge-vault manager. There is deliberately no
// memoized variant.
func (c *Container) VaultItems() (*managers.VaultManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	return managers.NewVaultItems(bunstore.New[entity.VaultItem](db), c.opts()...)
}

func (c *Container) readCacheConfig() readcache.Config {
	if c.cfg.ReadCache != nil {
		return *c.cfg.ReadCache
	}
	return readcache.DefaultConfig()
}
