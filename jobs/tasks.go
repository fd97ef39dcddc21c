package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/jetenv/quoteflow/internal/webhooks"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeQuoteSync is the task type for cloud backup deliveries.
	TaskTypeQuoteSync = "quote:sync"
)

// NewQuoteSyncTask constructs an Asynq task carrying one sync payload.
func NewQuoteSyncTask(payload webhooks.SyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeQuoteSync, data, asynq.MaxRetry(5)), nil
}

// QuoteSyncJob delivers queued sync payloads to the cloud backup webhook.
type QuoteSyncJob struct {
	Sync   *webhooks.SyncClient
	Logger *slog.Logger
}

// NewQuoteSyncJob initialises the sync delivery handler.
func NewQuoteSyncJob(sync *webhooks.SyncClient, logger *slog.Logger) *QuoteSyncJob {
	return &QuoteSyncJob{Sync: sync, Logger: logger}
}

// Handle processes TaskTypeQuoteSync tasks. Delivery errors are returned so
// Asynq retries with its backoff; malformed payloads are dropped.
func (j *QuoteSyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sync == nil {
		return errors.New("quote sync: handler not configured")
	}
	var payload webhooks.SyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	return j.Sync.Deliver(ctx, payload)
}
