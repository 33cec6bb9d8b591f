package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/uptrace/bun"

	"lattice/models"
)

// Actions recorded by admin operations.
const (
	ActionUpdate      = "update"
	ActionDelete      = "delete"
	ActionDeleteAll   = "delete_all"
	ActionImport      = "import"
	ActionReplace     = "replace"
	ActionPasswordSet = "password_set"
)

// Service writes audit records inside the caller transaction so the record
// commits or rolls back together with the change it describes.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Write(ctx context.Context, tx bun.Tx, userID, action, entityType, entityID string, before, after any) error {
	beforeJSON, err := marshal(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshal(after)
	if err != nil {
		return err
	}
	log := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		BeforeJSON: beforeJSON,
		AfterJSON:  afterJSON,
		CreatedAt:  time.Now().UTC(),
	}
	_, err = tx.NewInsert().Model(log).Exec(ctx)
	return err
}

// Recent returns the newest audit rows for an entity type, newest first.
func (s *Service) Recent(ctx context.Context, tx bun.Tx, entityType string, limit int) ([]models.AuditLog, error) {
	var rows []models.AuditLog
	q := tx.NewSelect().Model(&rows).Order("id DESC").Limit(limit)
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func marshal(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
