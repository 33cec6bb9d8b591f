package inventory

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	reqctx "lattice/api/shared/context"
	"lattice/api/shared/response"
	"lattice/infrastructure/apperr"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/labels"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

const maxImportBytes = 10 << 20

func ListInventoryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ListInventory(r.Context(), db)
		if err != nil {
			zap.L().Error("inventory: list failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, list)
	}
}

func CreateInventoryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var item models.InventoryItem
		if err := response.DecodeJSON(r, &item); err != nil {
			response.Error(w, err)
			return
		}
		created, err := CreateInventoryItem(r.Context(), db, item)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, created)
	}
}

func UpdateInventoryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var item models.InventoryItem
		if err := response.DecodeJSON(r, &item); err != nil {
			response.Error(w, err)
			return
		}
		updated, err := UpdateInventoryItem(r.Context(), db, chi.URLParam(r, "id"), item)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, updated)
	}
}

func DeleteInventoryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := DeleteInventoryItem(r.Context(), db, chi.URLParam(r, "id")); err != nil {
			response.Error(w, err)
			return
		}
		response.NoContent(w)
	}
}

// BulkInventoryHandler inserts a JSON array all-or-nothing.
func BulkInventoryHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := response.DecodeArray[models.InventoryItem](r, "Request body must be a non-empty array of inventory items.")
		if err != nil {
			response.Error(w, err)
			return
		}
		identity, _ := reqctx.GetIdentityFromContext(r.Context())
		inserted, err := InsertInventory(r.Context(), db, auditSvc, identity.ID, rows)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusCreated, ImportSummary{Inserted: len(inserted)})
	}
}

// ImportInventoryHandler reads a multipart CSV upload in field "file" with
// an optional JSON column mapping in field "mapping".
func ImportInventoryHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			response.Error(w, apperr.Validation("invalid upload: %v", err))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			response.Error(w, apperr.Validation("file is required"))
			return
		}
		defer file.Close()

		mapping := Mapping{}
		if raw := strings.TrimSpace(r.FormValue("mapping")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
				response.Error(w, apperr.Validation("mapping must be a JSON object: %v", err))
				return
			}
		}

		rows, err := ParseCSV(file, mapping, time.Now())
		if err != nil {
			response.Error(w, err)
			return
		}
		identity, _ := reqctx.GetIdentityFromContext(r.Context())
		inserted, err := InsertInventory(r.Context(), db, auditSvc, identity.ID, rows)
		if err != nil {
			response.Error(w, err)
			return
		}
		zap.L().Info("inventory: csv imported", zap.Int("rows", len(inserted)), zap.String("user_id", identity.ID))
		response.JSON(w, http.StatusCreated, ImportSummary{Inserted: len(inserted)})
	}
}

func ExportInventoryCSVHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ListInventory(r.Context(), db)
		if err != nil {
			zap.L().Error("inventory: export failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		var buf bytes.Buffer
		if err := WriteCSV(&buf, list); err != nil {
			zap.L().Error("inventory: write csv", zap.Error(err))
			response.Error(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=inventory.csv")
		_, _ = w.Write(buf.Bytes())
	}
}

// InventoryLabelHandler renders the pallet label PDF for one item.
func InventoryLabelHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := GetInventoryItem(r.Context(), db, chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, err)
			return
		}
		pdf, err := labels.RenderInventoryLabelsPDF([]labels.InventoryLabel{{
			StockNumber:      item.StockNumber,
			Description:      item.Description,
			Location:         item.Location,
			CustomerName:     item.CustomerName,
			InboundReference: item.InboundReference,
			InboundDate:      item.InboundDate,
			Quantity:         item.Quantity,
		}}, time.Now())
		if err != nil {
			zap.L().Error("inventory: render label", zap.String("id", item.ID), zap.Error(err))
			response.Error(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "inline; filename=label-"+item.ID+".pdf")
		_, _ = w.Write(pdf)
	}
}

func DeleteAllInventoryHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := reqctx.GetIdentityFromContext(r.Context())
		n, err := DeleteAllInventory(r.Context(), db, auditSvc, identity.ID)
		if err != nil {
			zap.L().Error("inventory: delete all failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		zap.L().Warn("inventory: deleted all", zap.Int64("deleted", n), zap.String("user_id", identity.ID))
		response.Deleted(w, n)
	}
}
