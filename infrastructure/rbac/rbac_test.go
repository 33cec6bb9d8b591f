package rbac

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"lattice/infrastructure/cache"
	"lattice/infrastructure/sqlite"
)

func TestMatchPathWildcardSegments(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		ok      bool
	}{
		{pattern: "/api/bookings/*", path: "/api/bookings/b1", ok: true},
		{pattern: "/api/customers/*/suppliers", path: "/api/customers/c1/suppliers", ok: true},
		{pattern: "/api/users", path: "/api/users", ok: true},
		{pattern: "/api/users", path: "/api/users/1", ok: false},
		{pattern: "/api/customers/*/suppliers", path: "/api/customers/c1/hauliers", ok: false},
	}

	for _, tc := range cases {
		if got := matchPath(tc.pattern, tc.path); got != tc.ok {
			t.Fatalf("pattern=%s path=%s expected=%v got=%v", tc.pattern, tc.path, tc.ok, got)
		}
	}
}

func TestRequiredPermissionPrefersSpecificRoute(t *testing.T) {
	r := New(cache.NewRbacRolesCache(), nil)
	r.Add(ManageBookings, "delete", "/api/bookings/{id}")
	r.Add(AccessDangerZone, "DELETE", "/api/bookings/all")
	r.Add(ViewSchedule, "GET", "/api/bookings")

	code, ok := r.RequiredPermission("DELETE", "/api/bookings/all")
	require.True(t, ok)
	assert.Equal(t, AccessDangerZone, code)

	code, ok = r.RequiredPermission("DELETE", "/api/bookings/b-42")
	require.True(t, ok)
	assert.Equal(t, ManageBookings, code)

	_, ok = r.RequiredPermission("PATCH", "/api/bookings")
	assert.False(t, ok)
}

func TestCanDeniesOnEmptyGrants(t *testing.T) {
	assert.False(t, Can(nil, RoleAdmin, ManageRoles))
	assert.False(t, Can(map[string][]string{}, RoleAdmin, ManageRoles))
	assert.True(t, Can(DefaultGrants(), RoleAdmin, ManageRoles))
	assert.False(t, Can(DefaultGrants(), RoleManager, ManageRoles))
	assert.True(t, Can(DefaultGrants(), RoleOperator, ManageBookings))
	assert.False(t, Can(DefaultGrants(), RoleOperator, AccessDangerZone))
}

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "rbac.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.ApplyEmbeddedMigrations(context.Background(), db))
	return db
}

func TestEnsureSeededOnlyOnce(t *testing.T) {
	db := openTestDB(t)
	r := New(cache.NewRbacRolesCache(), db)
	ctx := context.Background()

	seeded, err := r.EnsureSeeded(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = r.EnsureSeeded(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	ok, err := r.Allowed(ctx, RoleAdmin, AccessDangerZone)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGrantVisibleAfterInvalidate(t *testing.T) {
	db := openTestDB(t)
	r := New(cache.NewRbacRolesCache(), db)
	ctx := context.Background()

	_, err := r.EnsureSeeded(ctx)
	require.NoError(t, err)

	ok, err := r.Allowed(ctx, RoleOperator, ManageOrders)
	require.NoError(t, err)
	require.False(t, ok)

	grants := DefaultGrants()
	grants[RoleOperator] = append(grants[RoleOperator], ManageOrders)
	require.NoError(t, db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return ReplaceGrants(ctx, tx, grants)
	}))
	r.Invalidate()

	ok, err = r.Allowed(ctx, RoleOperator, ManageOrders)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGrantWrittenDuringLoadIsNotMaskedByCache(t *testing.T) {
	db := openTestDB(t)
	r := New(cache.NewRbacRolesCache(), db)
	ctx := context.Background()
	_, err := r.EnsureSeeded(ctx)
	require.NoError(t, err)
	r.Invalidate()

	// The grant commits after the first load read the old rows but before
	// that load fills the cache.
	grants := DefaultGrants()
	grants[RoleOperator] = append(grants[RoleOperator], ManageOrders)
	r.loaded = func() {
		r.loaded = nil
		require.NoError(t, db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
			return ReplaceGrants(ctx, tx, grants)
		}))
		r.Invalidate()
	}

	ok, err := r.Allowed(ctx, RoleOperator, ManageOrders)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Allowed(ctx, RoleOperator, ManageOrders)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEmptyGrantsDenyEverything(t *testing.T) {
	db := openTestDB(t)
	r := New(cache.NewRbacRolesCache(), db)
	ctx := context.Background()

	require.NoError(t, db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return ReplaceGrants(ctx, tx, map[string][]string{RoleAdmin: nil})
	}))

	for _, p := range AllPermissions {
		ok, err := r.Allowed(ctx, RoleAdmin, p)
		require.NoError(t, err)
		assert.False(t, ok, p)
	}
}
