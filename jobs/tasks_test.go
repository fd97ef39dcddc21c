package jobs

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetenv/quoteflow/internal/webhooks"
)

func TestQuoteSyncHandleDelivers(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sync := webhooks.NewSyncClient(srv.URL, 5*time.Second, nil, slog.New(slog.DiscardHandler))
	job := NewQuoteSyncJob(sync, slog.New(slog.DiscardHandler))

	task, err := NewQuoteSyncTask(webhooks.SyncPayload{Mode: "create", QuoteNumber: "J-25-06001"})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeQuoteSync, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, hits)
}

func TestQuoteSyncHandleDropsMalformedPayload(t *testing.T) {
	sync := webhooks.NewSyncClient("http://unused", 5*time.Second, nil, slog.New(slog.DiscardHandler))
	job := NewQuoteSyncJob(sync, slog.New(slog.DiscardHandler))

	task := asynq.NewTask(TaskTypeQuoteSync, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
