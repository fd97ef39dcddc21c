// Package customers manages the client master data backing quotations.
package customers

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Customer is a client master record, keyed by company name. Quotations copy
// these fields by value; editing a customer never changes issued quotes.
type Customer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	TaxID     string    `json:"tax_id" db:"tax_id"`
	Contact   string    `json:"contact" db:"contact"`
	Phone     string    `json:"phone" db:"phone"`
	Fax       string    `json:"fax" db:"fax"`
	Address   string    `json:"address" db:"address"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CompanyProfile is what the government registry lookup returns for a
// unified business number.
type CompanyProfile struct {
	Found          bool   `json:"found"`
	Name           string `json:"name,omitempty"`
	Address        string `json:"address,omitempty"`
	Representative string `json:"representative,omitempty"`
}

// TaxRegistryLookup resolves a unified business number to company details.
type TaxRegistryLookup interface {
	Lookup(ctx context.Context, taxID string) (*CompanyProfile, error)
}

type CustomerInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	TaxID   string `json:"tax_id,omitempty" validate:"omitempty,len=8,numeric"`
	Contact string `json:"contact,omitempty" validate:"omitempty,max=100"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Fax     string `json:"fax,omitempty" validate:"omitempty,max=50"`
	Address string `json:"address,omitempty" validate:"omitempty,max=300"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
}
