package permissions

import (
	"context"
	"sort"
	"strings"

	"github.com/uptrace/bun"

	"lattice/infrastructure/apperr"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/rbac"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

// ListRoles returns every role name, sorted.
func ListRoles(ctx context.Context, db *sqlite.DB) ([]string, error) {
	names := make([]string, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model((*models.Role)(nil)).Column("name").Order("name ASC").Scan(ctx, &names)
	})
	return names, err
}

// CreateRole adds an empty role. Grants are assigned through ReplacePermissions.
func CreateRole(ctx context.Context, db *sqlite.DB, r *rbac.Rbac, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Validation("name is required")
	}
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&models.Role{Name: name}).Exec(ctx)
		return err
	})
	if err != nil {
		return apperr.FromStorage(err)
	}
	r.Invalidate()
	return nil
}

// ReplacePermissions rewrites the whole grant table in one transaction and
// drops the cached copy so the next check sees it.
func ReplacePermissions(ctx context.Context, db *sqlite.DB, r *rbac.Rbac, auditSvc *audit.Service, actorID string, grants map[string][]string) error {
	if err := validateGrants(grants); err != nil {
		return err
	}
	before, err := r.Grants(ctx)
	if err != nil {
		return err
	}
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := rbac.ReplaceGrants(ctx, tx, grants); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, audit.ActionReplace, "role_permissions", "*", before, grants)
	})
	r.Invalidate()
	if err != nil {
		return apperr.FromStorage(err)
	}
	return nil
}

func validateGrants(grants map[string][]string) error {
	if len(grants) == 0 {
		return apperr.Validation("at least one role is required")
	}
	known := make(map[string]struct{}, len(rbac.AllPermissions))
	for _, p := range rbac.AllPermissions {
		known[p] = struct{}{}
	}
	roles := make([]string, 0, len(grants))
	for role := range grants {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		if strings.TrimSpace(role) == "" {
			return apperr.Validation("role name must not be empty")
		}
		for _, p := range grants[role] {
			if _, ok := known[p]; !ok {
				return apperr.Validation("unknown permission %q for role %s", p, role)
			}
		}
	}
	return nil
}
