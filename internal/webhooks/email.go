package webhooks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jetenv/quoteflow/internal/observability"
	"github.com/jetenv/quoteflow/internal/quotes"
)

type emailPayload struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	QuoteNumber string `json:"quoteNumber"`
	Filename    string `json:"filename"`
	QuoteHTML   string `json:"quoteHtml"`
}

// EmailClient dispatches rendered quotations through the mail webhook.
// Implements quotes.EmailSender.
type EmailClient struct {
	url         string
	companyName string
	client      *http.Client
	logger      *slog.Logger
	metrics     *observability.Metrics
}

func NewEmailClient(url, companyName string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *EmailClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailClient{
		url:         url,
		companyName: companyName,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
		metrics:     metrics,
	}
}

// SendQuotation posts the document to the mail workflow and waits for it to
// accept. A non-2xx answer is an error; the caller decides what that means
// for the quotation status.
func (c *EmailClient) SendQuotation(ctx context.Context, q *quotes.Quotation, html, filename, recipient, message string) error {
	if c.url == "" {
		return fmt.Errorf("email webhook is not configured")
	}
	body := message
	if body == "" {
		body = defaultEmailBody(c.companyName, q)
	}
	payload := emailPayload{
		To:          recipient,
		Subject:     fmt.Sprintf("%s 報價單 %s", c.companyName, q.QuoteNumber),
		Body:        body,
		QuoteNumber: q.QuoteNumber,
		Filename:    filename,
		QuoteHTML:   html,
	}
	err := postJSON(ctx, c.client, c.url, payload)
	c.metrics.RecordWebhook("email", err == nil)
	if err != nil {
		return fmt.Errorf("email dispatch for %s: %w", q.QuoteNumber, err)
	}
	c.logger.Info("quotation emailed", "quote_number", q.QuoteNumber, "to", recipient)
	return nil
}

func defaultEmailBody(companyName string, q *quotes.Quotation) string {
	return fmt.Sprintf(
		"%s 您好：\n\n附件為本公司報價單 %s（%s），請查收。\n報價有效期限至 %s。\n如有任何問題，歡迎與我們聯繫。\n\n%s 敬上",
		q.ClientName, q.QuoteNumber, q.ProjectName,
		q.ValidUntil.Format("2006-01-02"), companyName,
	)
}
