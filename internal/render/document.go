// Package render produces the printable HTML quotation document.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jetenv/quoteflow/internal/quotes"
)

// CompanyInfo is the issuer block printed on every document.
type CompanyInfo struct {
	Name    string
	Contact string
	Phone   string
	Site    string
}

// Renderer renders quotations into self-contained HTML documents suitable
// for printing or PDF conversion downstream.
type Renderer struct {
	company CompanyInfo
	tmpl    *template.Template
	printer *message.Printer
}

// NewRenderer constructs a renderer for the given issuer.
func NewRenderer(company CompanyInfo) (*Renderer, error) {
	r := &Renderer{
		company: company,
		printer: message.NewPrinter(language.TraditionalChinese),
	}
	tmpl, err := template.New("quotation").Funcs(template.FuncMap{
		"ntd":    r.ntd,
		"amount": r.amount,
		"inc":    func(i int) int { return i + 1 },
		"line":   func(it quotes.Item) string { return r.amount(it.Price * it.Qty) },
	}).Parse(documentTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse quotation template: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// ntd formats an integer NT$ amount with thousands grouping.
func (r *Renderer) ntd(n int64) string {
	return "NT$ " + r.printer.Sprintf("%d", n)
}

// amount formats a unit price or quantity, dropping the fraction when whole.
func (r *Renderer) amount(f float64) string {
	if f == math.Trunc(f) {
		return r.printer.Sprintf("%d", int64(f))
	}
	return r.printer.Sprintf("%.2f", f)
}

// Filename derives the download name for a quotation document.
func Filename(q *quotes.Quotation) string {
	name := fmt.Sprintf("報價單_%s", q.QuoteNumber)
	if q.ClientName != "" {
		name += "_" + q.ClientName
	}
	// slashes would break the download path
	name = strings.NewReplacer("/", "-", "\\", "-").Replace(name)
	return name + ".html"
}

type documentData struct {
	Company CompanyInfo
	Quote   *quotes.Quotation
}

// RenderQuotation implements quotes.DocumentRenderer.
func (r *Renderer) RenderQuotation(q *quotes.Quotation) (string, string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, documentData{Company: r.company, Quote: q}); err != nil {
		return "", "", fmt.Errorf("render quotation %s: %w", q.QuoteNumber, err)
	}
	return buf.String(), Filename(q), nil
}

const documentTemplate = `<!DOCTYPE html>
<html lang="zh-Hant">
<head>
<meta charset="utf-8">
<title>報價單 {{.Quote.QuoteNumber}}</title>
<style>
  body { font-family: "Noto Sans TC", "Microsoft JhengHei", sans-serif; margin: 40px; color: #1a1a1a; }
  h1 { text-align: center; letter-spacing: 8px; margin-bottom: 4px; }
  .company { text-align: center; color: #555; margin-bottom: 24px; }
  .meta { display: flex; justify-content: space-between; margin-bottom: 16px; }
  .meta td { padding: 2px 12px 2px 0; }
  table.items { width: 100%; border-collapse: collapse; margin-bottom: 16px; }
  table.items th, table.items td { border: 1px solid #999; padding: 6px 8px; font-size: 14px; }
  table.items th { background: #f0f4f0; }
  td.num { text-align: right; white-space: nowrap; }
  .totals { width: 40%; margin-left: auto; border-collapse: collapse; }
  .totals td { padding: 4px 8px; }
  .totals tr.grand td { font-weight: bold; border-top: 2px solid #333; }
  .notes { white-space: pre-wrap; border: 1px solid #ccc; padding: 12px; font-size: 13px; }
  .footer { margin-top: 32px; font-size: 13px; color: #555; }
</style>
</head>
<body>
<h1>報　價　單</h1>
<div class="company">{{.Company.Name}}　TEL: {{.Company.Phone}}{{if .Company.Site}}　{{.Company.Site}}{{end}}</div>

<div class="meta">
<table>
  <tr><td>客戶名稱</td><td>{{.Quote.ClientName}}</td></tr>
  {{if .Quote.ClientTaxID}}<tr><td>統一編號</td><td>{{.Quote.ClientTaxID}}</td></tr>{{end}}
  {{if .Quote.ClientContact}}<tr><td>聯絡人</td><td>{{.Quote.ClientContact}}</td></tr>{{end}}
  {{if .Quote.ClientPhone}}<tr><td>電話</td><td>{{.Quote.ClientPhone}}</td></tr>{{end}}
  {{if .Quote.ClientAddress}}<tr><td>地址</td><td>{{.Quote.ClientAddress}}</td></tr>{{end}}
</table>
<table>
  <tr><td>報價單號</td><td>{{.Quote.QuoteNumber}}</td></tr>
  <tr><td>報價日期</td><td>{{.Quote.QuoteDate.Format "2006-01-02"}}</td></tr>
  <tr><td>有效期限</td><td>{{.Quote.ValidUntil.Format "2006-01-02"}}</td></tr>
  {{if .Quote.ProjectName}}<tr><td>專案名稱</td><td>{{.Quote.ProjectName}}</td></tr>{{end}}
  <tr><td>承辦人</td><td>{{if .Quote.CompanyContact}}{{.Quote.CompanyContact}}{{else}}{{.Company.Contact}}{{end}}</td></tr>
</table>
</div>

<table class="items">
<tr><th>項次</th><th>項目名稱</th><th>規格</th><th>單位</th><th>單價</th><th>數量</th><th>頻率</th><th>金額</th><th>備註</th></tr>
{{range $i, $item := .Quote.Items}}
<tr>
  <td class="num">{{inc $i}}</td>
  <td>{{$item.Name}}</td>
  <td>{{$item.Spec}}</td>
  <td>{{$item.Unit}}</td>
  <td class="num">{{amount $item.Price}}</td>
  <td class="num">{{amount $item.Qty}}</td>
  <td>{{$item.Frequency}}</td>
  <td class="num">{{line $item}}</td>
  <td>{{$item.Note}}</td>
</tr>
{{end}}
</table>

<table class="totals">
  <tr><td>小計</td><td class="num">{{ntd .Quote.Subtotal}}</td></tr>
  <tr><td>營業稅 (5%)</td><td class="num">{{ntd .Quote.Tax}}</td></tr>
  <tr class="grand"><td>總計</td><td class="num">{{ntd .Quote.GrandTotal}}</td></tr>
</table>

{{if .Quote.Notes}}<div class="notes">{{.Quote.Notes}}</div>{{end}}

<div class="footer">
  {{if .Quote.PaymentMethod}}付款方式：{{.Quote.PaymentMethod}}<br>{{end}}
  {{if .Quote.PaymentTerms}}付款條件：{{.Quote.PaymentTerms}}<br>{{end}}
  本報價單由 {{.Company.Name}} 開立。
</div>
</body>
</html>`
