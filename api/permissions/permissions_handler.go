package permissions

import (
	"net/http"

	"go.uber.org/zap"

	reqctx "lattice/api/shared/context"
	"lattice/api/shared/response"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/rbac"
	"lattice/infrastructure/sqlite"
)

type roleRequest struct {
	Name string `json:"name"`
}

// GetPermissionsHandler returns role to permission list.
func GetPermissionsHandler(r *rbac.Rbac) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		grants, err := r.Grants(req.Context())
		if err != nil {
			zap.L().Error("permissions: load failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, grants)
	}
}

func ReplacePermissionsHandler(db *sqlite.DB, r *rbac.Rbac, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var grants map[string][]string
		if err := response.DecodeJSON(req, &grants); err != nil {
			response.Error(w, err)
			return
		}
		identity, _ := reqctx.GetIdentityFromContext(req.Context())
		if err := ReplacePermissions(req.Context(), db, r, auditSvc, identity.ID, grants); err != nil {
			response.Error(w, err)
			return
		}
		zap.L().Info("permissions: replaced", zap.String("user_id", identity.ID), zap.Int("roles", len(grants)))
		response.JSON(w, http.StatusOK, grants)
	}
}

// CatalogHandler lists every permission string the server knows.
func CatalogHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, rbac.AllPermissions)
}

func ListRolesHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		roles, err := ListRoles(req.Context(), db)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, roles)
	}
}

func CreateRoleHandler(db *sqlite.DB, r *rbac.Rbac) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body roleRequest
		if err := response.DecodeJSON(req, &body); err != nil {
			response.Error(w, err)
			return
		}
		if err := CreateRole(req.Context(), db, r, body.Name); err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, roleRequest{Name: body.Name})
	}
}
