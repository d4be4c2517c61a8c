package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// AuditRepository provides data access for the audit_log table.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new AuditRepository with the provided database connection.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert writes one audit event.
func (r *AuditRepository) Insert(ctx context.Context, e model.AuditEvent) error {
	var metadata any
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		metadata = string(b)
	}

	query := `
		INSERT INTO audit_log (id, event_type, performed_by, target_entity, target_id, action, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.EventType,
		e.PerformedBy,
		e.TargetEntity,
		e.TargetID,
		e.Action,
		metadata,
		FormatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit_log: %w", err)
	}
	return nil
}

// ListByTarget returns the audit trail of one entity, oldest first.
func (r *AuditRepository) ListByTarget(ctx context.Context, targetEntity, targetID string) ([]model.AuditEvent, error) {
	query := `
		SELECT id, event_type, performed_by, target_entity, target_id, action, metadata, created_at
		FROM audit_log
		WHERE target_entity = ? AND target_id = ?
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, targetEntity, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit_log table: %w", err)
	}
	defer rows.Close()

	events := []model.AuditEvent{}
	for rows.Next() {
		var e model.AuditEvent
		var metadata sql.NullString
		var createdStr string

		if err := rows.Scan(&e.ID, &e.EventType, &e.PerformedBy, &e.TargetEntity, &e.TargetID, &e.Action, &metadata, &createdStr); err != nil {
			return nil, fmt.Errorf("failed to scan audit_log results: %w", err)
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to parse audit metadata: %w", err)
			}
		}
		if e.CreatedAt, err = ParseTime(createdStr); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit_log table: %w", err)
	}
	return events, nil
}
