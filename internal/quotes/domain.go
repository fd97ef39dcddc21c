package quotes

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TaxRate is the statutory business tax applied on top of the subtotal.
const TaxRate = 0.05

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusConfirmed Status = "confirmed"
	StatusOrdered   Status = "ordered"
	StatusCancelled Status = "cancelled"
	StatusDeleted   Status = "deleted"
)

// Valid reports whether s is one of the known workflow states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusConfirmed, StatusOrdered, StatusCancelled, StatusDeleted:
		return true
	}
	return false
}

// Item is a single quotation line. Insertion order is meaningful and is
// preserved through LineOrder.
type Item struct {
	ID          int64     `json:"id" db:"id"`
	QuotationID uuid.UUID `json:"quotation_id" db:"quotation_id"`
	Name        string    `json:"name" db:"name"`
	Spec        string    `json:"spec" db:"spec"`
	Unit        string    `json:"unit" db:"unit"`
	Price       float64   `json:"price" db:"price"`
	Qty         float64   `json:"qty" db:"qty"`
	Frequency   string    `json:"frequency" db:"frequency"`
	Note        string    `json:"note" db:"note"`
	LineOrder   int       `json:"line_order" db:"line_order"`
}

// Quotation is the primary entity. Customer and product data are copied by
// value at creation time; there is no referential link back to the masters.
type Quotation struct {
	ID          uuid.UUID `json:"id" db:"id"`
	QuoteNumber string    `json:"quote_number" db:"quote_number"`
	Version     int       `json:"version" db:"version"`
	Status      Status    `json:"status" db:"status"`
	ProjectName string    `json:"project_name" db:"project_name"`

	QuoteDate  time.Time `json:"quote_date" db:"quote_date"`
	ValidUntil time.Time `json:"valid_until" db:"valid_until"`

	CompanyContact string `json:"company_contact" db:"company_contact"`
	CompanyPhone   string `json:"company_phone" db:"company_phone"`

	ClientName    string `json:"client_name" db:"client_name"`
	ClientTaxID   string `json:"client_tax_id" db:"client_tax_id"`
	ClientContact string `json:"client_contact" db:"client_contact"`
	ClientPhone   string `json:"client_phone" db:"client_phone"`
	ClientFax     string `json:"client_fax" db:"client_fax"`
	ClientAddress string `json:"client_address" db:"client_address"`
	ClientEmail   string `json:"client_email" db:"client_email"`

	PaymentMethod string `json:"payment_method" db:"payment_method"`
	PaymentTerms  string `json:"payment_terms" db:"payment_terms"`
	Notes         string `json:"notes" db:"notes"`

	Subtotal   int64 `json:"subtotal" db:"subtotal"`
	Tax        int64 `json:"tax" db:"tax"`
	GrandTotal int64 `json:"grand_total" db:"grand_total"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`

	Items []Item `json:"items,omitempty" db:"-"`
}

// Counter is the singleton sequence record backing the allocator.
type Counter struct {
	CurrentSeq  int64     `json:"current_seq" db:"current_seq"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// ComputeTotals derives the monetary fields from the line items. Totals are
// never trusted from the caller; every save path recomputes them here.
func ComputeTotals(items []Item) (subtotal, tax, grandTotal int64) {
	var sum float64
	for _, item := range items {
		sum += item.Price * item.Qty
	}
	subtotal = int64(math.Round(sum))
	tax = int64(math.Round(float64(subtotal) * TaxRate))
	grandTotal = subtotal + tax
	return subtotal, tax, grandTotal
}

// Stats aggregates dashboard counters per workflow bucket. "Active" covers
// draft, sent and confirmed quotations.
type Stats struct {
	ActiveCount    int   `json:"active_count"`
	ActiveTotal    int64 `json:"active_total"`
	OrderedCount   int   `json:"ordered_count"`
	OrderedTotal   int64 `json:"ordered_total"`
	CancelledCount int   `json:"cancelled_count"`
	CancelledTotal int64 `json:"cancelled_total"`
	DeletedCount   int   `json:"deleted_count"`
	AllTotal       int64 `json:"all_total"`
}

type ItemInput struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Spec      string  `json:"spec,omitempty"`
	Unit      string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	Price     float64 `json:"price" validate:"gte=0"`
	Qty       float64 `json:"qty" validate:"gte=0"`
	Frequency string  `json:"frequency,omitempty" validate:"omitempty,max=50"`
	Note      string  `json:"note,omitempty"`
}

type CreateQuotationRequest struct {
	ProjectName    string      `json:"project_name" validate:"max=200"`
	QuoteDate      string      `json:"quote_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ValidUntil     string      `json:"valid_until,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CompanyContact string      `json:"company_contact,omitempty" validate:"omitempty,max=100"`
	CompanyPhone   string      `json:"company_phone,omitempty" validate:"omitempty,max=50"`
	ClientName     string      `json:"client_name,omitempty" validate:"omitempty,max=200"`
	ClientTaxID    string      `json:"client_tax_id,omitempty" validate:"omitempty,len=8,numeric"`
	ClientContact  string      `json:"client_contact,omitempty" validate:"omitempty,max=100"`
	ClientPhone    string      `json:"client_phone,omitempty" validate:"omitempty,max=50"`
	ClientFax      string      `json:"client_fax,omitempty" validate:"omitempty,max=50"`
	ClientAddress  string      `json:"client_address,omitempty" validate:"omitempty,max=300"`
	ClientEmail    string      `json:"client_email,omitempty" validate:"omitempty,email"`
	PaymentMethod  string      `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	PaymentTerms   string      `json:"payment_terms,omitempty" validate:"omitempty,max=200"`
	Notes          string      `json:"notes,omitempty"`
	Items          []ItemInput `json:"items" validate:"required,min=1,dive"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

type SendRequest struct {
	// To overrides the recipient; the quotation's client email is used when
	// empty.
	To      string `json:"to,omitempty" validate:"omitempty,email"`
	Message string `json:"message,omitempty" validate:"omitempty,max=2000"`
}

type ListQuotationsRequest struct {
	Status *Status `json:"status,omitempty"`
	Client string  `json:"client,omitempty"`
	Search string  `json:"search,omitempty"`
	// Tab selects a dashboard bucket: active (default), ordered, cancelled,
	// deleted, or all.
	Tab    string `json:"tab,omitempty"`
	Limit  int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset int    `json:"offset" validate:"gte=0"`
}
