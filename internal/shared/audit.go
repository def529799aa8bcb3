package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEvent represents a record stored in audit_logs.
type AuditEvent struct {
	Actor  string
	Action string
	Meta   map[string]any
	At     time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the event.
func (l *AuditLogger) Record(ctx context.Context, ev AuditEvent) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if ev.Actor == "" || ev.Action == "" {
		return errors.New("audit event requires actor/action")
	}
	metaJSON, err := json.Marshal(ev.Meta)
	if err != nil {
		return err
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor, action, meta, occurred_at) VALUES ($1, $2, $3, $4)`, ev.Actor, ev.Action, metaJSON, at)
	return err
}
