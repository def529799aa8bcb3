package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// AuditEmitter enqueues audit events for asynchronous persistence. A
// failed enqueue degrades to a log line; the auth path never blocks on
// the queue.
type AuditEmitter struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewAuditEmitter constructs an emitter backed by an Asynq client.
func NewAuditEmitter(logger *slog.Logger, redisOpts asynq.RedisClientOpt) *AuditEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditEmitter{client: asynq.NewClient(redisOpts), logger: logger}
}

// Emit queues an audit event.
func (e *AuditEmitter) Emit(ctx context.Context, actor, action string, meta map[string]any) {
	task, err := NewAuditRecordTask(AuditRecordPayload{
		Actor:  actor,
		Action: action,
		Meta:   meta,
		At:     time.Now(),
	})
	if err != nil {
		e.logger.Warn("audit task marshal failed", slog.Any("error", err))
		return
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		e.logger.Warn("audit enqueue failed", slog.String("action", action), slog.Any("error", err))
	}
}

// Close releases client resources.
func (e *AuditEmitter) Close() error {
	return e.client.Close()
}
