// Package products manages the service-item catalog offered on quotations.
package products

import (
	"time"

	"github.com/google/uuid"
)

// Product is a reusable service item. Quotation lines copy these fields at
// edit time; price changes never touch issued quotes.
type Product struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Spec      string    `json:"spec" db:"spec"`
	Unit      string    `json:"unit" db:"unit"`
	Price     float64   `json:"price" db:"price"`
	Frequency string    `json:"frequency" db:"frequency"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ProductInput struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Spec      string  `json:"spec,omitempty"`
	Unit      string  `json:"unit,omitempty" validate:"omitempty,max=20"`
	Price     float64 `json:"price" validate:"gte=0"`
	Frequency string  `json:"frequency,omitempty" validate:"omitempty,max=50"`
}
