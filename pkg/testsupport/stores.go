package testsupport

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/uptrace/bun"

	"github.com/engramlab/engram/bunstore"
	"github.com/engramlab/engram/cachetier"
)

// NewMiniRedis starts an in-process redis server and returns a connected
// cache tier client over it. Both are torn down with the test. The server is
// returned too so tests can inspect keys, advance TTLs, or kill it to
// exercise degraded-cache paths.
func NewMiniRedis(t *testing.T) (*cachetier.Client, *miniredis.Miniredis) {
	t.Helper()

	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(srv.Close)

	cfg := cachetier.DefaultConfig()
	cfg.Addr = srv.Addr()
	cfg.LazyConnect = false

	client, err := cachetier.New(cfg)
	if err != nil {
		t.Fatalf("failed to create cache client: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, srv
}

// NewSQLiteDB opens an in-memory sqlite database and creates tables for the
// given bun models. The single-connection pool keeps every query on the same
// in-memory database.
func NewSQLiteDB(t *testing.T, models ...any) *bun.DB {
	t.Helper()

	db, err := bunstore.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			t.Fatalf("failed to create table for %T: %v", model, err)
		}
	}
	return db
}
