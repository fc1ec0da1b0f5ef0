package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/model"
	"storefront/store"
)

// Breakdown is the charge computed from a resolved cart snapshot.
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotal is the pure checkout calculator: subtotal over variant prices
// plus the configured flat shipping fee.
func ComputeTotal(lines []model.CartLine, shippingFee decimal.Decimal) Breakdown {
	sub := ComputeSubtotal(lines)
	return Breakdown{Subtotal: sub, Shipping: shippingFee, Total: sub.Add(shippingFee)}
}

// Quote returns the charge breakdown for the user's current cart without
// committing anything.
func (s *Service) Quote(ctx context.Context, userID uuid.UUID) (Breakdown, error) {
	view, err := s.GetCart(ctx, userID)
	if err != nil {
		return Breakdown{}, err
	}
	return ComputeTotal(view.Lines, s.shippingFee), nil
}

// Checkout turns the user's active cart into an order.
//
// Stock is re-fetched for every line before anything is written: a line over
// current stock fails the attempt with *store.StockChangedError listing the
// offenders, sending the shopper back to the cart instead of silently
// adjusting. The order header, its items, the stock decrements and the cart
// clear are then applied atomically by the gateway; a concurrent stock drop
// between the pre-check and the commit surfaces as the same error, with
// nothing written.
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID, addr model.ShippingAddress, paymentMethod string) (model.Order, error) {
	if !model.ValidPaymentMethod(paymentMethod) {
		return model.Order{}, ErrInvalidPaymentMethod
	}
	if strings.TrimSpace(addr.FullName) == "" || strings.TrimSpace(addr.Address) == "" {
		return model.Order{}, ErrInvalidAddress
	}

	cartID, err := s.store.GetOrCreateActiveCart(ctx, userID)
	if err != nil {
		return model.Order{}, err
	}
	lines, err := s.store.GetCartLines(ctx, cartID)
	if err != nil {
		return model.Order{}, err
	}
	if len(lines) == 0 {
		return model.Order{}, ErrCartEmpty
	}

	// Re-check stock against the live catalog, not the cart snapshot.
	var conflicts []uuid.UUID
	items := make([]model.OrderItem, 0, len(lines))
	fresh := make([]model.CartLine, 0, len(lines))
	for _, l := range lines {
		v, err := s.store.GetVariant(ctx, l.VariantID)
		if err != nil {
			return model.Order{}, err
		}
		if l.Quantity > v.Stock {
			conflicts = append(conflicts, v.ID)
			continue
		}
		items = append(items, model.OrderItem{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			Price:     v.Price,
		})
		l.Price = v.Price
		fresh = append(fresh, l)
	}
	if len(conflicts) > 0 {
		return model.Order{}, &store.StockChangedError{VariantIDs: conflicts}
	}

	breakdown := ComputeTotal(fresh, s.shippingFee)
	order := model.Order{
		UserID:          userID,
		CustomerName:    addr.FullName,
		ShippingAddress: addr,
		PaymentMethod:   paymentMethod,
		Subtotal:        breakdown.Subtotal,
		ShippingFee:     breakdown.Shipping,
		Total:           breakdown.Total,
		Status:          model.OrderPending,
		Items:           items,
	}

	placed, err := s.store.PlaceOrder(ctx, order, cartID)
	if err != nil {
		return model.Order{}, err
	}
	s.log.Info("order placed",
		zap.String("order", placed.ID.String()),
		zap.String("user", userID.String()),
		zap.String("total", placed.Total.String()))
	s.publishCartCount(ctx, userID)
	return placed, nil
}
