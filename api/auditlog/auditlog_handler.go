// Package auditlog exposes the audit trail written by admin operations.
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"lattice/api/shared/response"
	"lattice/infrastructure/apperr"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ListAuditLogHandler returns the newest audit rows, optionally filtered by
// ?entity= and capped by ?limit=.
func ListAuditLogHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxLimit {
				response.Error(w, apperr.Validation("limit must be between 1 and %d", maxLimit))
				return
			}
			limit = n
		}
		entity := r.URL.Query().Get("entity")

		var rows []models.AuditLog
		err := db.WithReadTx(r.Context(), func(ctx context.Context, tx bun.Tx) error {
			var err error
			rows, err = auditSvc.Recent(ctx, tx, entity, limit)
			return err
		})
		if err != nil {
			zap.L().Error("auditlog: list failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		if rows == nil {
			rows = []models.AuditLog{}
		}
		response.JSON(w, http.StatusOK, rows)
	}
}
