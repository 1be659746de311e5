package manager

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/engramlab/engram/cachetier"
	"github.com/engramlab/engram/entity"
	"github.com/engramlab/engram/store"
)

type userCreate struct {
	Name  string
	Email string
}

type userPatch struct {
	Name  *string
	Email *string
}

func userFromCreate(in userCreate) *entity.User {
	return &entity.User{Name: in.Name, Email: in.Email}
}

func userApplyPatch(u *entity.User, p userPatch) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
}

type userManager = BaseManager[entity.User, *entity.User, userCreate, userPatch]

func newUserManager(t *testing.T, mutate func(*Config)) (*userManager, *fakeDelegate[entity.User, *entity.User], *miniredis.Miniredis) {
	t.Helper()

	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(srv.Close)

	ccfg := cachetier.DefaultConfig()
	ccfg.Addr = srv.Addr()
	ccfg.LazyConnect = false
	cache, err := cachetier.New(ccfg)
	if err != nil {
		t.Fatalf("failed to create cache client: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	cfg := Config{
		EntityType:   entity.TypeUser,
		CacheEnabled: true,
		CachePrefix:  entity.KeyPrefixUser,
		CacheTTL:     time.Minute,
		CacheForm:    FormFlat,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	delegate := newFakeDelegate[entity.User, *entity.User]()
	mgr, err := NewBase[entity.User, *entity.User, userCreate, userPatch](
		cfg, delegate, cache, userFromCreate, userApplyPatch)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return mgr, delegate, srv
}

func testActor(org string) *Actor {
	return &Actor{ID: "actor-1", OrganizationID: org}
}

func TestCreateAssignsIdentityAndPopulatesCache(t *testing.T) {
	mgr, delegate, srv := newUserManager(t, nil)
	ctx := context.Background()
	actor := testActor("org-1")

	u, err := mgr.Create(ctx, userCreate{Name: "ada", Email: "ada@example.com"}, actor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected a minted identifier")
	}
	if u.OrganizationID != "org-1" {
		t.Fatalf("expected tenant org-1, got %q", u.OrganizationID)
	}
	if u.CreatedAt.IsZero() || !u.CreatedAt.Equal(u.UpdatedAt) {
		t.Fatalf("expected matching creation stamps, got %v / %v", u.CreatedAt, u.UpdatedAt)
	}
	if u.CreatedByID != "actor-1" {
		t.Fatalf("expected creator bookkeeping, got %q", u.CreatedByID)
	}

	key := entity.KeyPrefixUser + u.ID
	if !srv.Exists(key) {
		t.Fatalf("expected cache entry at %q after create", key)
	}
	if got := srv.HGet(key, "name"); got != "ada" {
		t.Fatalf("expected cached name %q, got %q", "ada", got)
	}
	if got := delegate.callCount("Create"); got != 1 {
		t.Fatalf("expected 1 store create, got %d", got)
	}
}

func TestReadServedFromCacheSkipsStore(t *testing.T) {
	mgr, delegate, _ := newUserManager(t, nil)
	ctx := context.Background()
	actor := testActor("org-1")

	created, err := mgr.Create(ctx, userCreate{Name: "ada"}, actor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := mgr.Read(ctx, created.ID, actor, nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Name != "ada" {
		t.Fatalf("expected name ada, got %q", got.Name)
	}
	if calls := delegate.callCount("FindFirst"); calls != 0 {
		t.Fatalf("expected cache to serve the read, store saw %d finds", calls)
	}
	if hits := mgr.Stats().CacheHits(); hits != 1 {
		t.Fatalf("expected 1 cache hit, got %d", hits)
	}
}

func TestReadMissFallsThroughAndRepopulates(t *testing.T) {
	mgr, delegate, srv := newUserManager(t, nil)
	ctx := context.Background()
	actor := testActor("org-1")

	created, err := mgr.Create(ctx, userCreate{Name: "ada"}, actor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	srv.FlushAll()

	got, err := mgr.Read(ctx, created.ID, actor, nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected record %q, got %q", created.ID, got.ID)
	}
	if calls := delegate.callCount("FindFirst"); calls != 1 {
		t.Fatalf("expected the store to serve the read, saw %d finds", calls)
	}
	if !srv.Exists(entity.KeyPrefixUser + created.ID) {
		t.Fatal("expected the read to repopulate the cache")
	}
	if misses := mgr.Stats().CacheMisses(); misses != 1 {
		t.Fatalf("expected 1 cache miss, got %d", misses)
	}
}

func TestReadIsTenantScopedEvenWhenCached(t *testing.T) {
	mgr, delegate, _ := newUserManager(t, nil)
	ctx := context.Background()

	created, err := mgr.Create(ctx, userCreate{Name: "ada"}, testActor("org-1"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The record sits warm in the cache; an actor from another tenant must
	// still see not-found.
	_, err = mgr.Read(ctx, created.ID, testActor("org-2"), nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across tenants, got %v", err)
	}
	if calls := delegate.callCount("FindFirst"); calls != 1 {
		t.Fatalf("expected the cache hit to fall through to a scoped store read, saw %d", calls)
	}
}

func TestUpdateRefreshesCache(t *testing.T) {
	mgr, _, srv := newUserManager(t, nil)
	ctx := context.Background()
	actor := testActor("org-1")

	created, err := mgr.Create(ctx, userCreate{Name: "ada"}, actor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	name := "lovelace"
	updated, err := mgr.Update(ctx, created.ID, userPatch{Name: &name}, actor)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "lovelace" {
		t.Fatalf("expected patched name, got %q", updated.Name)
	}
	if !updated.UpdatedAt.After(created.CreatedAt) && !updated.UpdatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected update stamp at or after creation, got %v", updated.UpdatedAt)
	}
	if got := srv.HGet(entity.KeyPrefixUser+created.ID, "name"); got != "lovelace" {
		t.Fatalf("expected refreshed cache entry, got name %q", got)
	}
}

func TestDeleteSoftDeletesAndPurgesCache(t *testing.T) {
	mgr, delegate, srv := newUserManager(t, nil)
	ctx := context.Background()
	actor := testActor("org-1")

	created, err := mgr.Create(ctx, userCreate{Name: "ada"}, actor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := mgr.Delete(ctx, created.ID, actor); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if srv.Exists(entity.KeyPrefixUser + created.ID) {
		t.Fatal("expected delete to purge the cache entry")
	}

	if _, err := mgr.Read(ctx, created.ID, actor, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after soft delete, got %v", err)
	}

	got, err := mgr.Read(ctx, created.ID, actor, &ReadOptions{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("Read with IncludeDeleted failed: %v", err)
	}
	if !got.IsDeleted {
		t.Fatal("expected the delete flag to be set")
	}
	if calls := delegate.callCount("Delete"); calls != 0 {
		t.Fatalf("soft delete must not remove the row, saw %d hard deletes", calls)
	}
}

func TestHardDeleteRemovesRow(t *testing.T) {
	mgr, delegate, _ := newUserManager(t, nil)
	ctx := context.Background()
	actor := testActor("org-1")

	created, err := mgr.Create(ctx, userCreate{Name: "ada"}, actor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := mgr.Delete(ctx, created.ID, actor); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// Hard delete reaches soft-deleted records.
	if err := mgr.HardDelete(ctx, created.ID, actor); err != nil {
		t.Fatalf("HardDelete failed: %v", err)
	}
	if calls := delegate.callCount("Delete"); calls != 1 {
		t.Fatalf("expected 1 row removal, got %d", calls)
	}
	if _, err := mgr.Read(ctx, created.ID, actor, &ReadOptions{IncludeDeleted: true}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected the row to be gone, got %v", err)
	}
}

func TestExists(t *testing.T) {
	mgr, _, _ := newUserManager(t, nil)
	ctx := context.Background()
	actor := testActor("org-1")

	ok, err := mgr.Exists(ctx, "nope", actor)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Fatal("expected absence")
	}

	created, err := mgr.Create(ctx, userCreate{Name: "ada"}, actor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	ok, err = mgr.Exists(ctx, created.ID, actor)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ok {
		t.Fatal("expected presence")
	}
}

func TestListPaginatesEveryRecordExactlyOnce(t *testing.T) {
	mgr, delegate, _ := newUserManager(t, nil)
	ctx := context.Background()
	actor := testActor("org-1")

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	const n = 7
	for i := 0; i < n; i++ {
		u := &entity.User{Name: fmt.Sprintf("user-%d", i)}
		u.ID = fmt.Sprintf("id-%d", i)
		u.OrganizationID = "org-1"
		u.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		u.UpdatedAt = u.CreatedAt
		delegate.seed(u)
	}

	seen := map[string]int{}
	cursor := ""
	pages := 0
	for {
		page, err := mgr.List(ctx, actor, &ListOptions{Limit: 3, Cursor: cursor})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if page.Total != n {
			t.Fatalf("expected total %d on every page, got %d", n, page.Total)
		}
		for _, u := range page.Items {
			seen[u.ID]++
		}
		pages++
		if !page.HasMore {
			if page.NextCursor != "" {
				t.Fatalf("expected empty cursor on the last page, got %q", page.NextCursor)
			}
			break
		}
		if page.NextCursor == "" {
			t.Fatal("expected a cursor when more pages remain")
		}
		cursor = page.NextCursor
	}

	if pages != 3 {
		t.Fatalf("expected 3 pages of 3+3+1, got %d", pages)
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct records, got %d", n, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("record %q appeared %d times", id, count)
		}
	}
}

func TestListNewestFirstByDefault(t *testing.T) {
	mgr, delegate, _ := newUserManager(t, nil)
	ctx := context.Background()
	actor := testActor("org-1")

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		u := &entity.User{Name: fmt.Sprintf("user-%d", i)}
		u.ID = fmt.Sprintf("id-%d", i)
		u.OrganizationID = "org-1"
		u.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		u.UpdatedAt = u.CreatedAt
		delegate.seed(u)
	}

	page, err := mgr.List(ctx, actor, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var got []string
	for _, u := range page.Items {
		got = append(got, u.ID)
	}
	want := []string{"id-2", "id-1", "id-0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestListDateRange(t *testing.T) {
	mgr, delegate, _ := newUserManager(t, nil)
	ctx := context.Background()
	actor := testActor("org-1")

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		u := &entity.User{Name: fmt.Sprintf("user-%d", i)}
		u.ID = fmt.Sprintf("id-%d", i)
		u.OrganizationID = "org-1"
		u.CreatedAt = base.AddDate(0, 0, i)
		u.UpdatedAt = u.CreatedAt
		delegate.seed(u)
	}

	start := base.AddDate(0, 0, 1)
	end := base.AddDate(0, 0, 3)
	page, err := mgr.List(ctx, actor, &ListOptions{StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Items) != 3 || page.Total != 3 {
		t.Fatalf("expected 3 records in range, got %d (total %d)", len(page.Items), page.Total)
	}
}

func TestCountScopesTenant(t *testing.T) {
	mgr, delegate, _ := newUserManager(t, nil)
	ctx := context.Background()

	for i, org := range []string{"org-1", "org-1", "org-2"} {
		u := &entity.User{Name: fmt.Sprintf("user-%d", i)}
		u.ID = fmt.Sprintf("id-%d", i)
		u.OrganizationID = org
		delegate.seed(u)
	}

	n, err := mgr.Count(ctx, testActor("org-1"), nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 records for org-1, got %d", n)
	}
}

func TestZeroTTLNeverWritesCache(t *testing.T) {
	mgr, delegate, srv := newUserManager(t, func(cfg *Config) {
		cfg.CacheTTL = 0
	})
	ctx := context.Background()
	actor := testActor("org-1")

	created, err := mgr.Create(ctx, userCreate{Name: "ada"}, actor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if srv.Exists(entity.KeyPrefixUser + created.ID) {
		t.Fatal("expected no cache entry for a zero-TTL entity type")
	}

	if _, err := mgr.Read(ctx, created.ID, actor, nil); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if calls := delegate.callCount("FindFirst"); calls != 1 {
		t.Fatalf("expected the store to serve the read, saw %d finds", calls)
	}
	if srv.Exists(entity.KeyPrefixUser + created.ID) {
		t.Fatal("expected the read not to repopulate a zero-TTL entity type")
	}
}

func TestDegradedCacheFallsBackToStore(t *testing.T) {
	mgr, delegate, srv := newUserManager(t, nil)
	ctx := context.Background()
	actor := testActor("org-1")

	created, err := mgr.Create(ctx, userCreate{Name: "ada"}, actor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	srv.Close()

	got, err := mgr.Read(ctx, created.ID, actor, nil)
	if err != nil {
		t.Fatalf("Read must survive a degraded cache, got %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected record %q, got %q", created.ID, got.ID)
	}
	if calls := delegate.callCount("FindFirst"); calls != 1 {
		t.Fatalf("expected the store to serve the read, saw %d finds", calls)
	}
	if mgr.Stats().CacheWriteFailures() == 0 {
		t.Fatal("expected the failed repopulation to be counted")
	}

	// Writes keep working too: the store is updated and the cache failure
	// stays invisible.
	name := "lovelace"
	if _, err := mgr.Update(ctx, created.ID, userPatch{Name: &name}, actor); err != nil {
		t.Fatalf("Update must survive a degraded cache, got %v", err)
	}
}

func TestStoreErrorsAreClassified(t *testing.T) {
	mgr, delegate, _ := newUserManager(t, nil)
	ctx := context.Background()
	actor := testActor("org-1")

	delegate.failWith("Create", store.ErrConflict)
	_, err := mgr.Create(ctx, userCreate{Name: "ada"}, actor)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict through the wrap, got %v", err)
	}

	_, err = mgr.Update(ctx, "absent", userPatch{}, actor)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an absent record, got %v", err)
	}
}

func TestTenantAgnosticManagerSkipsScoping(t *testing.T) {
	mgr, delegate, _ := newUserManager(t, func(cfg *Config) {
		cfg.TenantAgnostic = true
	})
	ctx := context.Background()

	u := &entity.User{Name: "ada"}
	u.ID = "id-1"
	u.OrganizationID = "org-other"
	delegate.seed(u)

	got, err := mgr.Read(ctx, "id-1", testActor("org-1"), nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.ID != "id-1" {
		t.Fatalf("expected the record regardless of tenant, got %q", got.ID)
	}
}

func TestDocumentFormRoundTripsNestedFields(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(srv.Close)

	ccfg := cachetier.DefaultConfig()
	ccfg.Addr = srv.Addr()
	ccfg.LazyConnect = false
	cache, err := cachetier.New(ccfg)
	if err != nil {
		t.Fatalf("failed to create cache client: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	type agentCreate struct{ Name string }
	type agentPatch struct{}

	cfg := Config{
		EntityType:   entity.TypeAgent,
		CacheEnabled: true,
		CachePrefix:  entity.KeyPrefixAgent,
		CacheTTL:     time.Minute,
		CacheForm:    FormDocument,
	}
	delegate := newFakeDelegate[entity.Agent, *entity.Agent]()
	mgr, err := NewBase[entity.Agent, *entity.Agent, agentCreate, agentPatch](
		cfg, delegate, cache,
		func(in agentCreate) *entity.Agent {
			return &entity.Agent{
				Name:     in.Name,
				Metadata: map[string]any{"tier": "gold", "limits": map[string]any{"rpm": float64(60)}},
			}
		},
		func(*entity.Agent, agentPatch) {},
	)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	ctx := context.Background()
	actor := testActor("org-1")
	created, err := mgr.Create(ctx, agentCreate{Name: "helper"}, actor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := mgr.Read(ctx, created.ID, actor, nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if calls := delegate.callCount("FindFirst"); calls != 0 {
		t.Fatalf("expected cache to serve the read, store saw %d finds", calls)
	}
	if diff := cmp.Diff(created.Metadata, got.Metadata); diff != "" {
		t.Fatalf("nested metadata changed through the cache (-want +got):\n%s", diff)
	}
}

func TestFlatFormKeepsNumbersNumeric(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(srv.Close)

	ccfg := cachetier.DefaultConfig()
	ccfg.Addr = srv.Addr()
	ccfg.LazyConnect = false
	cache, err := cachetier.New(ccfg)
	if err != nil {
		t.Fatalf("failed to create cache client: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	type orgCreate struct {
		Name    string
		Credits float64
	}
	type orgPatch struct{ Credits *float64 }

	cfg := Config{
		EntityType:     entity.TypeOrganization,
		CacheEnabled:   true,
		CachePrefix:    entity.KeyPrefixOrganization,
		CacheTTL:       time.Minute,
		CacheForm:      FormFlat,
		TenantAgnostic: true,
	}
	delegate := newFakeDelegate[entity.Organization, *entity.Organization]()
	mgr, err := NewBase[entity.Organization, *entity.Organization, orgCreate, orgPatch](
		cfg, delegate, cache,
		func(in orgCreate) *entity.Organization {
			return &entity.Organization{Name: in.Name, Credits: in.Credits}
		},
		func(o *entity.Organization, p orgPatch) {
			if p.Credits != nil {
				o.Credits = *p.Credits
			}
		},
	)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	ctx := context.Background()
	created, err := mgr.Create(ctx, orgCreate{Name: "acme", Credits: 100}, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := mgr.Read(ctx, created.ID, nil, nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if calls := delegate.callCount("FindFirst"); calls != 0 {
		t.Fatalf("expected cache to serve the read, store saw %d finds", calls)
	}
	if got.Credits != 100 {
		t.Fatalf("expected credits to survive the string round trip, got %v", got.Credits)
	}
}
