// Package webhooks holds the outbound HTTP integrations. Every delivery goes
// through an n8n workflow endpoint; this package only speaks plain JSON.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jetenv/quoteflow/internal/observability"
	"github.com/jetenv/quoteflow/internal/quotes"
)

// SyncPayload is what the cloud backup workflow receives on every quote
// mutation. Mode is one of create, update, version, delete.
type SyncPayload struct {
	Mode        string `json:"mode"`
	QuoteNumber string `json:"quoteNumber"`
	ProjectName string `json:"projectName,omitempty"`
	ClientName  string `json:"clientName,omitempty"`
	GrandTotal  int64  `json:"grandTotal,omitempty"`
	Filename    string `json:"filename,omitempty"`
	QuoteHTML   string `json:"quoteHtml,omitempty"`
}

// SyncClient delivers quote snapshots to the cloud backup webhook.
type SyncClient struct {
	url     string
	client  *http.Client
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSyncClient constructs a sync client. url may be empty, in which case
// deliveries are silently skipped.
func NewSyncClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *SyncClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncClient{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: metrics,
	}
}

// Deliver posts one sync payload. The worker retries on error per its own
// policy, so this does a single attempt.
func (c *SyncClient) Deliver(ctx context.Context, p SyncPayload) error {
	if c.url == "" {
		return nil
	}
	err := postJSON(ctx, c.client, c.url, p)
	c.metrics.RecordWebhook("sync", err == nil)
	if err != nil {
		c.logger.Warn("cloud sync delivery failed",
			"mode", p.Mode, "quote_number", p.QuoteNumber, "error", err)
		return err
	}
	c.logger.Info("cloud sync delivered", "mode", p.Mode, "quote_number", p.QuoteNumber)
	return nil
}

// PayloadFor builds the sync payload for a quotation mutation.
func PayloadFor(mode string, q *quotes.Quotation, html, filename string) SyncPayload {
	p := SyncPayload{
		Mode:        mode,
		QuoteNumber: q.QuoteNumber,
	}
	if mode != "delete" {
		p.ProjectName = q.ProjectName
		p.ClientName = q.ClientName
		p.GrandTotal = q.GrandTotal
		p.Filename = filename
		p.QuoteHTML = html
	}
	return p
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
