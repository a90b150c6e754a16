package store

import (
	"context"
	"database/sql"
	"log/slog"
)

// AuditLog writes lifecycle events to the audit_events table. Failures are
// logged and swallowed here, at the edge: an audit write can never fail the
// operation that produced the event.
type AuditLog struct {
	DB *sql.DB
}

func (a *AuditLog) RecordEvent(ctx context.Context, eventType string, entityID int64, status, detail string) {
	_, err := a.DB.ExecContext(ctx,
		`INSERT INTO audit_events (event_type, entity_id, status, detail, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		eventType, entityID, status, detail)
	if err != nil {
		slog.WarnContext(ctx, "audit event write failed",
			"event_type", eventType, "entity_id", entityID, "error", err)
	}
}
