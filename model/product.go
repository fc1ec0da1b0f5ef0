package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Price is the base display price; the price
// actually charged always comes from the selected Variant.
type Product struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Slug            string          `json:"slug"`
	Description     string          `json:"description"`
	Brand           string          `json:"brand"`
	Price           decimal.Decimal `json:"price"`
	Features        []string        `json:"features"`
	Images          []string        `json:"images"`
	IsPopular       bool            `json:"is_popular"`
	ViewCount       int64           `json:"view_count"`
	PurchaseCount   int64           `json:"purchase_count"`
	PopularityScore int64           `json:"popularity_score"`
	Variants        []Variant       `json:"variants,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Variant is a purchasable configuration (color x capacity) of a Product,
// with its own price and stock. Stock 0 means visible but not sellable.
type Variant struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Color     string          `json:"color"`
	ColorName string          `json:"color_name"`
	Capacity  string          `json:"capacity"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
}

// Color is a selectable color option derived from a product's variants.
// InStock is false when every variant of this color is at zero stock.
type Color struct {
	Color     string `json:"color"`
	ColorName string `json:"color_name"`
	InStock   bool   `json:"in_stock"`
}
