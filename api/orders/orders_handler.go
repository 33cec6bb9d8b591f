package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	reqctx "lattice/api/shared/context"
	"lattice/api/shared/response"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/sqlite"
)

func ListOrdersHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ListOrders(r.Context(), db)
		if err != nil {
			zap.L().Error("orders: list failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, list)
	}
}

func CreateOrderHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in OrderInput
		if err := response.DecodeJSON(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		o, err := CreateOrder(r.Context(), db, in)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, o)
	}
}

func UpdateOrderHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in OrderInput
		if err := response.DecodeJSON(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		o, err := UpdateOrder(r.Context(), db, chi.URLParam(r, "id"), in)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, o)
	}
}

func DeleteOrderHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := DeleteOrder(r.Context(), db, chi.URLParam(r, "id")); err != nil {
			response.Error(w, err)
			return
		}
		response.NoContent(w)
	}
}

func DeleteAllOrdersHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := reqctx.GetIdentityFromContext(r.Context())
		n, err := DeleteAllOrders(r.Context(), db, auditSvc, identity.ID)
		if err != nil {
			zap.L().Error("orders: delete all failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		zap.L().Warn("orders: deleted all", zap.Int64("deleted", n), zap.String("user_id", identity.ID))
		response.Deleted(w, n)
	}
}
