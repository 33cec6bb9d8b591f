package partners

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	reqctx "lattice/api/shared/context"
	"lattice/api/shared/response"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/sqlite"
)

func ListHandler[T any](k Kind[T], db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := k.List(r.Context(), db)
		if err != nil {
			zap.L().Error("partners: list failed", zap.String("table", k.Table), zap.Error(err))
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, list)
	}
}

func CreateHandler[T any](k Kind[T], db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in PartnerInput
		if err := response.DecodeJSON(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		row, err := k.Create(r.Context(), db, in)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, row)
	}
}

func UpdateHandler[T any](k Kind[T], db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in PartnerInput
		if err := response.DecodeJSON(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		row, err := k.Update(r.Context(), db, chi.URLParam(r, "id"), in)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, row)
	}
}

func DeleteHandler[T any](k Kind[T], db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := k.Delete(r.Context(), db, chi.URLParam(r, "id")); err != nil {
			response.Error(w, err)
			return
		}
		response.NoContent(w)
	}
}

func DeleteAllHandler[T any](k Kind[T], db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := reqctx.GetIdentityFromContext(r.Context())
		n, err := k.DeleteAll(r.Context(), db, auditSvc, identity.ID)
		if err != nil {
			zap.L().Error("partners: delete all failed", zap.String("table", k.Table), zap.Error(err))
			response.Error(w, err)
			return
		}
		zap.L().Warn("partners: deleted all", zap.String("table", k.Table), zap.Int64("deleted", n))
		response.Deleted(w, n)
	}
}
