package rbac

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/uptrace/bun"

	"lattice/infrastructure/cache"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleOperator = "Operator"
)

const (
	ViewDashboard          = "view-dashboard"
	ViewInventory          = "view-inventory"
	ManageInventory        = "manage-inventory"
	ViewSchedule           = "view-schedule"
	ManageBookings         = "manage-bookings"
	ViewOrders             = "view-orders"
	ManageOrders           = "manage-orders"
	ViewCustomers          = "view-customers"
	ManageCustomers        = "manage-customers"
	ManageSuppliers        = "manage-suppliers"
	ManageHauliers         = "manage-hauliers"
	ManageUsers            = "manage-users"
	ManageRoles            = "manage-roles"
	ManageSettings         = "manage-settings"
	ManageScheduleSettings = "manage-schedule-settings"
	AccessDangerZone       = "access-danger-zone"
)

// AllPermissions is the catalog of permission strings, in display order.
var AllPermissions = []string{
	ViewDashboard, ViewInventory, ManageInventory, ViewSchedule, ManageBookings,
	ViewOrders, ManageOrders, ViewCustomers, ManageCustomers, ManageSuppliers,
	ManageHauliers, ManageUsers, ManageRoles, ManageSettings,
	ManageScheduleSettings, AccessDangerZone,
}

// DefaultGrants returns the grants seeded into an empty database.
func DefaultGrants() map[string][]string {
	manager := make([]string, 0, len(AllPermissions))
	for _, p := range AllPermissions {
		switch p {
		case ManageRoles, ManageUsers, AccessDangerZone:
			continue
		}
		manager = append(manager, p)
	}
	return map[string][]string{
		RoleAdmin:   append([]string(nil), AllPermissions...),
		RoleManager: manager,
		RoleOperator: {
			ViewDashboard, ViewInventory, ManageInventory, ViewSchedule,
			ManageBookings, ViewOrders, ViewCustomers,
		},
	}
}

// Can reports whether role holds perm in grants. Unknown roles and an empty
// grant set deny everything.
func Can(grants map[string][]string, role, perm string) bool {
	for _, p := range grants[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// Rbac resolves permission checks against role_permissions through the cache
// and keeps the table of which permission guards which route.
type Rbac struct {
	cache *cache.RbacRolesCache
	db    *sqlite.DB
	load  sync.Mutex

	// loaded runs between the grants read and the cache fill. Tests only.
	loaded func()
}

func New(c *cache.RbacRolesCache, db *sqlite.DB) *Rbac {
	return &Rbac{cache: c, db: db}
}

// Add registers that method+path requires code. chi style {param} segments
// are stored as * wildcards.
func (r *Rbac) Add(code, method, path string) {
	if r == nil || r.cache == nil {
		return
	}
	r.cache.AddResource(cache.Resource{
		PermissionCode: code,
		Method:         strings.ToUpper(method),
		Path:           toPattern(path),
	})
}

// RequiredPermission finds the permission guarding method+path. The most
// specific registered pattern wins, so /api/bookings/all beats /api/bookings/*.
func (r *Rbac) RequiredPermission(method, urlPath string) (string, bool) {
	if r == nil || r.cache == nil {
		return "", false
	}
	return ValidateResourceAccess(r.cache.Resources(), urlPath, method)
}

// Codes lists every permission code referenced by a registered route.
func (r *Rbac) Codes() []string {
	return r.cache.CodesSorted()
}

// Allowed reports whether role holds perm, loading grants on first use.
func (r *Rbac) Allowed(ctx context.Context, role, perm string) (bool, error) {
	if has, ok := r.cache.Has(role, perm); ok {
		return has, nil
	}
	grants, err := r.Grants(ctx)
	if err != nil {
		return false, err
	}
	return Can(grants, role, perm), nil
}

// Grants returns role to permissions, loading from the database when the
// cache is cold.
func (r *Rbac) Grants(ctx context.Context) (map[string][]string, error) {
	if grants, ok := r.cache.Grants(); ok {
		return grants, nil
	}
	r.load.Lock()
	defer r.load.Unlock()
	if grants, ok := r.cache.Grants(); ok {
		return grants, nil
	}

	gen := r.cache.Generation()
	grants, err := r.readGrants(ctx)
	if err != nil {
		return nil, err
	}
	if r.loaded != nil {
		r.loaded()
	}
	if !r.cache.SetGrants(gen, grants) {
		// A writer invalidated while the read was in flight, so it may
		// predate the commit. Read again and leave the cache cold.
		return r.readGrants(ctx)
	}
	return grants, nil
}

func (r *Rbac) readGrants(ctx context.Context) (map[string][]string, error) {
	var rows []models.RolePermission
	err := r.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&rows).Order("role ASC", "permission ASC").Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}
	grants := make(map[string][]string)
	for _, row := range rows {
		grants[row.Role] = append(grants[row.Role], row.Permission)
	}
	return grants, nil
}

// Invalidate drops cached grants so the next check sees the latest rows.
func (r *Rbac) Invalidate() {
	r.cache.Invalidate()
}

// EnsureSeeded writes DefaultGrants when both roles and role_permissions are
// empty. It returns true when it seeded.
func (r *Rbac) EnsureSeeded(ctx context.Context) (bool, error) {
	seeded := false
	err := r.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		roles, err := tx.NewSelect().Model((*models.Role)(nil)).Count(ctx)
		if err != nil {
			return err
		}
		perms, err := tx.NewSelect().Model((*models.RolePermission)(nil)).Count(ctx)
		if err != nil {
			return err
		}
		if roles > 0 || perms > 0 {
			return nil
		}
		seeded = true
		return ReplaceGrants(ctx, tx, DefaultGrants())
	})
	if err != nil {
		return false, fmt.Errorf("seed role permissions: %w", err)
	}
	if seeded {
		r.Invalidate()
	}
	return seeded, nil
}

// ReplaceGrants rewrites role_permissions to exactly grants inside tx and
// creates any missing roles. Roles absent from grants keep existing with no
// permissions.
func ReplaceGrants(ctx context.Context, tx bun.Tx, grants map[string][]string) error {
	if _, err := tx.NewDelete().Model((*models.RolePermission)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return err
	}
	roles := make([]string, 0, len(grants))
	for role := range grants {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		if _, err := tx.NewInsert().Model(&models.Role{Name: role}).On("CONFLICT (name) DO NOTHING").Exec(ctx); err != nil {
			return err
		}
		seen := make(map[string]struct{})
		rows := make([]models.RolePermission, 0, len(grants[role]))
		for _, p := range grants[role] {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			rows = append(rows, models.RolePermission{Role: role, Permission: p})
		}
		if len(rows) == 0 {
			continue
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ValidateResourceAccess returns the permission code of the most specific
// resource matching method+urlPath.
func ValidateResourceAccess(resources []cache.Resource, urlPath, method string) (string, bool) {
	method = strings.ToUpper(method)
	best := -1
	code := ""
	for _, res := range resources {
		if res.Method != method {
			continue
		}
		if !matchPath(res.Path, urlPath) {
			continue
		}
		score := specificity(res.Path)
		if score > best {
			best = score
			code = res.PermissionCode
		}
	}
	return code, best >= 0
}

func specificity(pattern string) int {
	score := 0
	for _, seg := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if seg != "*" {
			score++
		}
	}
	return score
}

func toPattern(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			segs[i] = "*"
		}
	}
	return strings.Join(segs, "/")
}

func matchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}

	pattern = strings.Trim(pattern, "/")
	path = strings.Trim(path, "/")

	patternSeg := strings.Split(pattern, "/")
	pathSeg := strings.Split(path, "/")

	// Segment wildcard matching: /a/*/c and /a/*/*/d.
	if len(patternSeg) == len(pathSeg) {
		for i := range patternSeg {
			if patternSeg[i] == "*" {
				continue
			}
			if patternSeg[i] != pathSeg[i] {
				return false
			}
		}
		return true
	}

	return false
}
