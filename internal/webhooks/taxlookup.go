package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jetenv/quoteflow/internal/customers"
	"github.com/jetenv/quoteflow/internal/observability"
)

// TaxLookupClient resolves unified business numbers through the government
// registry workflow (MOEA data behind n8n). Results are cached in Redis
// because registry data changes rarely and the upstream is slow.
// Implements customers.TaxRegistryLookup.
type TaxLookupClient struct {
	url     string
	client  *http.Client
	cache   *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewTaxLookupClient(lookupURL string, timeout time.Duration, cache *redis.Client, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *TaxLookupClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaxLookupClient{
		url:     lookupURL,
		client:  &http.Client{Timeout: timeout},
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

type taxLookupResponse struct {
	Found bool `json:"found"`
	Data  struct {
		Name           string `json:"name"`
		Address        string `json:"address"`
		Representative string `json:"representative"`
	} `json:"data"`
}

func cacheKey(taxID string) string {
	return "taxlookup:" + taxID
}

// Lookup returns the company profile for a unified business number. Cache
// failures are logged and treated as misses.
func (c *TaxLookupClient) Lookup(ctx context.Context, taxID string) (*customers.CompanyProfile, error) {
	if c.url == "" {
		return nil, fmt.Errorf("tax lookup webhook is not configured")
	}

	if c.cache != nil {
		raw, err := c.cache.Get(ctx, cacheKey(taxID)).Result()
		if err == nil {
			var profile customers.CompanyProfile
			if err := json.Unmarshal([]byte(raw), &profile); err == nil {
				return &profile, nil
			}
		} else if err != redis.Nil {
			c.logger.Warn("tax lookup cache read failed", "error", err)
		}
	}

	profile, err := c.fetch(ctx, taxID)
	c.metrics.RecordWebhook("tax_lookup", err == nil)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(profile); err == nil {
			if err := c.cache.Set(ctx, cacheKey(taxID), raw, c.ttl).Err(); err != nil {
				c.logger.Warn("tax lookup cache write failed", "error", err)
			}
		}
	}
	return profile, nil
}

func (c *TaxLookupClient) fetch(ctx context.Context, taxID string) (*customers.CompanyProfile, error) {
	u := c.url + "?taxId=" + url.QueryEscape(taxID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tax lookup returned %d", resp.StatusCode)
	}

	var body taxLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode tax lookup response: %w", err)
	}
	return &customers.CompanyProfile{
		Found:          body.Found,
		Name:           body.Data.Name,
		Address:        body.Data.Address,
		Representative: body.Data.Representative,
	}, nil
}
