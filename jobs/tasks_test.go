package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestAuditRecordTaskCarriesPayload(t *testing.T) {
	payload := AuditRecordPayload{
		Actor:  "alice",
		Action: "user.login",
		Meta:   map[string]any{"role": "cyber"},
		At:     time.Now(),
	}
	task, err := NewAuditRecordTask(payload)
	require.NoError(t, err)
	require.Equal(t, TaskTypeAuditRecord, task.Type())

	var decoded AuditRecordPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, "alice", decoded.Actor)
	require.Equal(t, "user.login", decoded.Action)
}

func TestAuditRecordHandlerSkipsMalformedPayload(t *testing.T) {
	handler := NewAuditRecordHandler(nil)

	err := handler(context.Background(), asynq.NewTask(TaskTypeAuditRecord, []byte("not json")))
	require.True(t, errors.Is(err, asynq.SkipRetry), "malformed payloads must not be retried")
}
