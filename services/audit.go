package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/utils"
)

// AuditService records every ledger write in the audit_logs table. With a
// nil database it is a no-op, so the API runs without one.
type AuditService struct {
	db  *sql.DB
	now func() time.Time
}

func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db, now: time.Now}
}

func (s *AuditService) Enabled() bool {
	return s != nil && s.db != nil
}

// Record stores one entry. changes is marshalled to JSON.
func (s *AuditService) Record(ctx context.Context, action, entity, entityID, actor string, changes interface{}) error {
	if !s.Enabled() {
		return nil
	}

	var payload []byte
	if changes != nil {
		var err error
		if payload, err = json.Marshal(changes); err != nil {
			return fmt.Errorf("failed to encode audit changes: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, action, entity, entity_id, actor, changes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), action, entity, entityID, actor, string(payload), s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first. entity filters when
// not empty.
func (s *AuditService) List(ctx context.Context, entity string, limit int) ([]models.AuditEntry, error) {
	if !s.Enabled() {
		return []models.AuditEntry{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, action, entity, entity_id, actor, changes, created_at
		FROM audit_logs
		WHERE ($1 = '' OR entity = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, entity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		var entityID, actor, changes sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.Entity, &entityID, &actor, &changes, &e.CreatedAt); err != nil {
			utils.SafeWarn("Skipping unreadable audit row: %v", err)
			continue
		}
		e.EntityID, e.Actor, e.Changes = entityID.String, actor.String, changes.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
