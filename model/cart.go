package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart status values.
const (
	CartStatusActive     = "active"
	CartStatusCheckedOut = "checked_out"
)

// Cart is one user's cart. At most one cart per user is active; historical
// carts stay around as checked_out.
type Cart struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLine is one (product, variant) entry in a cart. Lines are unique per
// (cart, product, variant); adding the same pair again merges quantities.
type CartLine struct {
	ID        uuid.UUID `json:"id"`
	CartID    uuid.UUID `json:"cart_id"`
	ProductID uuid.UUID `json:"product_id"`
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Join fields, populated on reads.
	ProductName  string          `json:"product_name,omitempty"`
	ProductImage string          `json:"product_image,omitempty"`
	VariantColor string          `json:"variant_color,omitempty"`
	VariantName  string          `json:"variant_name,omitempty"`
	Capacity     string          `json:"capacity,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
}

// GuestLine is the serialized shape of a guest-cart entry held in the
// device-local store before sign-in.
type GuestLine struct {
	ProductID uuid.UUID `json:"product_id"`
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}
