package service

import (
	"context"

	"github.com/google/uuid"

	"storefront/model"
	"storefront/store"
)

// ServiceInterface is what the HTTP layer depends on.
type ServiceInterface interface {
	// Catalog
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, f store.ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (model.Product, error)
	GetVariantStock(ctx context.Context, id uuid.UUID) (int, error)
	SetVariantStock(ctx context.Context, id uuid.UUID, stock int) error

	// Cart
	GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	GetCart(ctx context.Context, userID uuid.UUID) (CartView, error)
	AddLine(ctx context.Context, userID, productID, variantID uuid.UUID, qty int) (AddResult, error)
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, qty int) error
	RemoveLine(ctx context.Context, userID, lineID uuid.UUID) error
	CartItemCount(ctx context.Context, userID uuid.UUID) (int, error)
	SubscribeCartCount(userID uuid.UUID) (<-chan int, func())

	// Guest cart
	GuestLines(deviceID string) ([]model.GuestLine, error)
	AddGuestLine(deviceID string, productID, variantID uuid.UUID, qty int) error
	RemoveGuestLine(deviceID string, productID, variantID uuid.UUID) error
	MergeGuestCart(ctx context.Context, deviceID string, userID uuid.UUID) (MergeResult, error)

	// Checkout and orders
	Quote(ctx context.Context, userID uuid.UUID) (Breakdown, error)
	Checkout(ctx context.Context, userID uuid.UUID, addr model.ShippingAddress, paymentMethod string) (model.Order, error)
	ListOrders(ctx context.Context, f store.OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
	CancelOrder(ctx context.Context, id uuid.UUID) error
}

var _ ServiceInterface = (*Service)(nil)
