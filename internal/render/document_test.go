package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetenv/quoteflow/internal/quotes"
)

func testCompany() CompanyInfo {
	return CompanyInfo{
		Name:    "傑太環境工程有限公司",
		Contact: "張惟荏",
		Phone:   "02-6609-5888 #103",
	}
}

func testQuotation() *quotes.Quotation {
	return &quotes.Quotation{
		QuoteNumber: "J-25-06001",
		Version:     1,
		Status:      quotes.StatusDraft,
		ProjectName: "廠房廢水檢測",
		QuoteDate:   time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		ValidUntil:  time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
		ClientName:  "大同精密股份有限公司",
		ClientTaxID: "12345678",
		Subtotal:    1234500,
		Tax:         61725,
		GrandTotal:  1296225,
		Items: []quotes.Item{
			{Name: "水質採樣", Unit: "次", Price: 1000, Qty: 2},
			{Name: "重金屬分析", Unit: "項", Price: 500.5, Qty: 1},
		},
	}
}

func TestRenderQuotation(t *testing.T) {
	r, err := NewRenderer(testCompany())
	require.NoError(t, err)

	html, filename, err := r.RenderQuotation(testQuotation())
	require.NoError(t, err)

	assert.Equal(t, "報價單_J-25-06001_大同精密股份有限公司.html", filename)
	assert.Contains(t, html, "J-25-06001")
	assert.Contains(t, html, "傑太環境工程有限公司")
	assert.Contains(t, html, "大同精密股份有限公司")
	assert.Contains(t, html, "水質採樣")
	// totals are grouped
	assert.Contains(t, html, "NT$ 1,234,500")
	assert.Contains(t, html, "NT$ 1,296,225")
	// fractional unit price keeps two decimals
	assert.Contains(t, html, "500.50")
}

func TestFilenameStripsSlashes(t *testing.T) {
	q := testQuotation()
	q.ClientName = "台塑/南亞"
	assert.Equal(t, "報價單_J-25-06001_台塑-南亞.html", Filename(q))
}

func TestRenderFallsBackToCompanyContact(t *testing.T) {
	r, err := NewRenderer(testCompany())
	require.NoError(t, err)

	q := testQuotation()
	q.CompanyContact = ""
	html, _, err := r.RenderQuotation(q)
	require.NoError(t, err)
	assert.Contains(t, html, "張惟荏")
}
