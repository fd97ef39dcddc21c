package webhooks

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetenv/quoteflow/internal/quotes"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testQuotation() *quotes.Quotation {
	return &quotes.Quotation{
		QuoteNumber: "J-25-06001",
		ProjectName: "廠房廢水檢測",
		ClientName:  "大同精密股份有限公司",
		ValidUntil:  time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
		GrandTotal:  2625,
	}
}

func TestSyncDeliver(t *testing.T) {
	var got SyncPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewSyncClient(srv.URL, 5*time.Second, nil, testLogger())
	p := PayloadFor("create", testQuotation(), "<html></html>", "報價單_J-25-06001.html")
	require.NoError(t, c.Deliver(context.Background(), p))

	assert.Equal(t, "create", got.Mode)
	assert.Equal(t, "J-25-06001", got.QuoteNumber)
	assert.Equal(t, int64(2625), got.GrandTotal)
	assert.Equal(t, "<html></html>", got.QuoteHTML)
}

func TestSyncDeliverFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewSyncClient(srv.URL, 5*time.Second, nil, testLogger())
	err := c.Deliver(context.Background(), SyncPayload{Mode: "create", QuoteNumber: "J-25-06001"})
	assert.Error(t, err)
}

func TestSyncDeliverSkipsWhenUnconfigured(t *testing.T) {
	c := NewSyncClient("", 5*time.Second, nil, testLogger())
	assert.NoError(t, c.Deliver(context.Background(), SyncPayload{Mode: "create"}))
}

func TestDeletePayloadOmitsDocument(t *testing.T) {
	p := PayloadFor("delete", testQuotation(), "<html></html>", "x.html")
	assert.Equal(t, "J-25-06001", p.QuoteNumber)
	assert.Empty(t, p.QuoteHTML)
	assert.Empty(t, p.Filename)
}

func TestEmailSendQuotation(t *testing.T) {
	var got emailPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewEmailClient(srv.URL, "傑太環境工程有限公司", 5*time.Second, nil, testLogger())
	err := c.SendQuotation(context.Background(), testQuotation(),
		"<html></html>", "報價單_J-25-06001.html", "client@example.com.tw", "")
	require.NoError(t, err)

	assert.Equal(t, "client@example.com.tw", got.To)
	assert.Contains(t, got.Subject, "J-25-06001")
	// the default body addresses the client and carries the validity date
	assert.Contains(t, got.Body, "大同精密股份有限公司")
	assert.Contains(t, got.Body, "2025-07-15")
}

func TestEmailCustomMessage(t *testing.T) {
	var got emailPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := NewEmailClient(srv.URL, "傑太環境工程有限公司", 5*time.Second, nil, testLogger())
	err := c.SendQuotation(context.Background(), testQuotation(), "", "", "a@b.tw", "如附件，請查收。")
	require.NoError(t, err)
	assert.Equal(t, "如附件，請查收。", got.Body)
}

func TestTaxLookupCachesResult(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "12345678", r.URL.Query().Get("taxId"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"found": true,
			"data": map[string]string{
				"name":           "宏遠紡織股份有限公司",
				"address":        "台南市山上區明和里256號",
				"representative": "葉清來",
			},
		})
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewTaxLookupClient(srv.URL, 5*time.Second, cache, 24*time.Hour, nil, testLogger())

	profile, err := c.Lookup(context.Background(), "12345678")
	require.NoError(t, err)
	assert.True(t, profile.Found)
	assert.Equal(t, "宏遠紡織股份有限公司", profile.Name)

	// second lookup is served from Redis
	profile, err = c.Lookup(context.Background(), "12345678")
	require.NoError(t, err)
	assert.Equal(t, "宏遠紡織股份有限公司", profile.Name)
	assert.Equal(t, int32(1), calls.Load())

	// cache entry expires after the TTL
	mr.FastForward(25 * time.Hour)
	_, err = c.Lookup(context.Background(), "12345678")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTaxLookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"found": false})
	}))
	defer srv.Close()

	c := NewTaxLookupClient(srv.URL, 5*time.Second, nil, time.Hour, nil, testLogger())
	profile, err := c.Lookup(context.Background(), "00000000")
	require.NoError(t, err)
	assert.False(t, profile.Found)
	assert.Empty(t, profile.Name)
}
