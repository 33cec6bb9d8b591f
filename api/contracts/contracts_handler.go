package contracts

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"lattice/api/shared/response"
	"lattice/infrastructure/sqlite"
)

func ListContractsHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ListContracts(r.Context(), db)
		if err != nil {
			zap.L().Error("contracts: list failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, list)
	}
}

func CreateContractHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in ContractInput
		if err := response.DecodeJSON(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		c, err := CreateContract(r.Context(), db, in)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, c)
	}
}

func UpdateContractHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in ContractInput
		if err := response.DecodeJSON(r, &in); err != nil {
			response.Error(w, err)
			return
		}
		c, err := UpdateContract(r.Context(), db, chi.URLParam(r, "id"), in)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, c)
	}
}

func DeleteContractHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := DeleteContract(r.Context(), db, chi.URLParam(r, "id")); err != nil {
			response.Error(w, err)
			return
		}
		response.NoContent(w)
	}
}
