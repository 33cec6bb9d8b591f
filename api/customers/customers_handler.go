package customers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	reqctx "lattice/api/shared/context"
	"lattice/api/shared/response"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/sqlite"
)

func ListCustomersHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ListCustomers(r.Context(), db)
		if err != nil {
			zap.L().Error("customers: list failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, list)
	}
}

func CreateCustomerHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in CustomerInput
		if err := response.DecodeJSON(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		c, err := CreateCustomer(r.Context(), db, in)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, c)
	}
}

func UpdateCustomerHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in CustomerInput
		if err := response.DecodeJSON(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		identity, _ := reqctx.GetIdentityFromContext(r.Context())
		c, err := UpdateCustomer(r.Context(), db, auditSvc, identity.ID, chi.URLParam(r, "id"), in)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, c)
	}
}

func DeleteCustomerHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := reqctx.GetIdentityFromContext(r.Context())
		if err := DeleteCustomer(r.Context(), db, auditSvc, identity.ID, chi.URLParam(r, "id")); err != nil {
			response.Error(w, err)
			return
		}
		response.NoContent(w)
	}
}

func ListCustomerSuppliersHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ListCustomerSuppliers(r.Context(), db, chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, list)
	}
}

func ListCustomerHauliersHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ListCustomerHauliers(r.Context(), db, chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, list)
	}
}

func ListCustomerContractsHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ListCustomerContracts(r.Context(), db, chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, list)
	}
}

func ReplaceCustomerSuppliersHandler(db *sqlite.DB) http.HandlerFunc {
	return replaceHandler(db, ReplaceSuppliers)
}

func ReplaceCustomerHauliersHandler(db *sqlite.DB) http.HandlerFunc {
	return replaceHandler(db, ReplaceHauliers)
}

func replaceHandler(db *sqlite.DB, replace func(ctx context.Context, db *sqlite.DB, customerID string, ids []string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ids []string
		if err := response.DecodeJSON(r, &ids); err != nil {
			response.Error(w, err)
			return
		}
		if err := replace(r.Context(), db, chi.URLParam(r, "id"), ids); err != nil {
			response.Error(w, err)
			return
		}
		response.NoContent(w)
	}
}
