package settings

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lattice/api/shared/response"
	"lattice/infrastructure/sqlite"
)

func GetSettingHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := GetSetting(r.Context(), db, chi.URLParam(r, "key"))
		if err != nil {
			response.Error(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	}
}

func SaveSettingHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var raw json.RawMessage
		if err := response.DecodeJSON(r, &raw); err != nil {
			response.Error(w, err)
			return
		}
		if err := SaveSetting(r.Context(), db, chi.URLParam(r, "key"), raw); err != nil {
			response.Error(w, err)
			return
		}
		response.Message(w, http.StatusOK, "Settings updated")
	}
}
