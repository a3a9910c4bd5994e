package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"virtualexpo/internal/domain"
)

type auditRepository struct {
	DB *sql.DB
}

// NewAuditRepository returns an AuditSink that appends to the audit_logs table.
func NewAuditRepository(db *sql.DB) domain.AuditSink {
	return &auditRepository{DB: db}
}

func (r *auditRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	query := `
		INSERT INTO audit_logs (actor_id, action, entity, entity_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.DB.ExecContext(ctx, query, entry.ActorID, entry.Action, entry.Entity, entry.EntityID, raw, ts.UTC())
	return err
}
