package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vantage-intel/vantage-intel/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAuditRecord is the task type for persisting audit events.
	TaskTypeAuditRecord = "audit:record"
)

// AuditRecordPayload carries an audit event through the queue.
type AuditRecordPayload struct {
	Actor  string         `json:"actor"`
	Action string         `json:"action"`
	Meta   map[string]any `json:"meta,omitempty"`
	At     time.Time      `json:"at"`
}

// NewAuditRecordTask constructs an Asynq task for an audit event.
func NewAuditRecordTask(payload AuditRecordPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditRecord, data), nil
}

// NewAuditRecordHandler returns the handler that writes queued audit
// events into audit_logs. Malformed payloads are dropped, not retried.
func NewAuditRecordHandler(auditLogger *shared.AuditLogger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditRecordPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		return auditLogger.Record(ctx, shared.AuditEvent{
			Actor:  payload.Actor,
			Action: payload.Action,
			Meta:   payload.Meta,
			At:     payload.At,
		})
	}
}
