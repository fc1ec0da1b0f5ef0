package store

import (
	"context"

	"github.com/google/uuid"

	"storefront/model"
)

// ProductFilter narrows ListProducts. The zero value lists everything.
type ProductFilter struct {
	Brand       string
	Search      string // substring match on name
	PopularOnly bool
	RecentFirst bool
	Limit       int
}

// OrderFilter narrows ListOrders. The zero value lists everything, newest first.
type OrderFilter struct {
	UserID uuid.UUID
	Status model.OrderStatus
}

// Store is the data gateway every service component talks to. PostgresStore
// backs it in production; MemoryStore backs it in tests.
type Store interface {
	// Catalog
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (model.Product, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) error

	// Variants
	GetVariant(ctx context.Context, id uuid.UUID) (model.Variant, error)
	GetVariantStock(ctx context.Context, id uuid.UUID) (int, error)
	SetVariantStock(ctx context.Context, id uuid.UUID, stock int) error

	// Cart. Line mutations are scoped by the owning cart: a line id from a
	// different cart behaves as if it did not exist.
	GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	GetCartLines(ctx context.Context, cartID uuid.UUID) ([]model.CartLine, error)
	UpsertCartLine(ctx context.Context, cartID, productID, variantID uuid.UUID, qty int) (model.CartLine, bool, error)
	UpdateLineQuantity(ctx context.Context, cartID, lineID uuid.UUID, qty int) error
	DeleteLine(ctx context.Context, cartID, lineID uuid.UUID) error
	ClearCart(ctx context.Context, cartID uuid.UUID) error
	CountCartItems(ctx context.Context, cartID uuid.UUID) (int, error)

	// Orders. PlaceOrder writes the order header and items, decrements stock
	// per line and retires the cart in one transaction; it fails with
	// *StockChangedError when any line exceeds current stock.
	PlaceOrder(ctx context.Context, o model.Order, cartID uuid.UUID) (model.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error

	Close() error
}
