package users

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	reqctx "lattice/api/shared/context"
	"lattice/api/shared/response"
	"lattice/infrastructure/apperr"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/rbac"
	"lattice/infrastructure/sqlite"
)

// Authorizer answers role permission checks.
type Authorizer interface {
	Allowed(ctx context.Context, role, perm string) (bool, error)
}

func ListUsersHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := ListUsers(r.Context(), db)
		if err != nil {
			zap.L().Error("users: list failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, users)
	}
}

func CreateUserHandler(db *sqlite.DB, enforcePolicy bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in UserInput
		if err := response.DecodeJSON(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		user, err := CreateUser(r.Context(), db, in, enforcePolicy)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, user)
	}
}

func UpdateUserHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in UserInput
		if err := response.DecodeJSON(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		user, err := UpdateUser(r.Context(), db, chi.URLParam(r, "id"), in)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, user)
	}
}

func DeleteUserHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := reqctx.GetIdentityFromContext(r.Context())
		if err := DeleteUser(r.Context(), db, auditSvc, identity.ID, chi.URLParam(r, "id")); err != nil {
			response.Error(w, err)
			return
		}
		response.NoContent(w)
	}
}

// SetPasswordHandler lets a user change their own password. Changing anyone
// else's requires manage-users.
func SetPasswordHandler(db *sqlite.DB, auditSvc *audit.Service, authz Authorizer, enforcePolicy bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := reqctx.GetIdentityFromContext(r.Context())
		if !ok {
			response.Error(w, apperr.Unauthorized("Authentication required"))
			return
		}
		id := chi.URLParam(r, "id")
		if identity.ID != id {
			allowed, err := authz.Allowed(r.Context(), identity.Role, rbac.ManageUsers)
			if err != nil {
				zap.L().Error("users: permission lookup failed", zap.Error(err))
				response.Error(w, err)
				return
			}
			if !allowed {
				response.Error(w, apperr.Forbidden("Forbidden"))
				return
			}
		}

		var in PasswordInput
		if err := response.DecodeJSON(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		if err := SetPassword(r.Context(), db, auditSvc, identity.ID, id, in.Password, enforcePolicy); err != nil {
			response.Error(w, err)
			return
		}
		response.NoContent(w)
	}
}
