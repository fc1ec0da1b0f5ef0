package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/model"
)

// CartView is the aggregate handed to the presentation layer.
type CartView struct {
	CartID    uuid.UUID        `json:"cart_id"`
	Lines     []model.CartLine `json:"lines"`
	ItemCount int              `json:"item_count"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
}

// AddResult reports what AddLine actually committed. Clamped is the
// non-fatal StockExceeded notice: the stored quantity was reduced to the
// variant's current stock, and the caller should tell the shopper.
type AddResult struct {
	Line    model.CartLine `json:"line"`
	Clamped bool           `json:"clamped"`
}

// GetOrCreateActiveCart returns the user's single active cart, creating it
// if needed. The store closes the get-or-create race with a conditional
// insert, so concurrent calls converge on one cart.
func (s *Service) GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	return s.store.GetOrCreateActiveCart(ctx, userID)
}

// GetCart loads the user's active cart with lines and derived aggregates.
func (s *Service) GetCart(ctx context.Context, userID uuid.UUID) (CartView, error) {
	cartID, err := s.store.GetOrCreateActiveCart(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	lines, err := s.store.GetCartLines(ctx, cartID)
	if err != nil {
		return CartView{}, err
	}
	view := CartView{CartID: cartID, Lines: lines, Subtotal: ComputeSubtotal(lines)}
	for _, l := range lines {
		view.ItemCount += l.Quantity
	}
	return view, nil
}

// ComputeSubtotal sums variant price x quantity over the lines. The variant
// price is the only price used: the product's base price cannot reflect
// capacity or color deltas. Invariant under reordering of lines.
func ComputeSubtotal(lines []model.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// AddLine puts qty of (product, variant) into the user's active cart. An
// existing line for the same pair has its quantity incremented instead of a
// duplicate being inserted; the committed quantity is clamped to current
// stock, reported via AddResult.Clamped.
func (s *Service) AddLine(ctx context.Context, userID, productID, variantID uuid.UUID, qty int) (AddResult, error) {
	if qty < 1 {
		return AddResult{}, ErrInvalidQuantity
	}
	cartID, err := s.store.GetOrCreateActiveCart(ctx, userID)
	if err != nil {
		return AddResult{}, err
	}
	line, clamped, err := s.store.UpsertCartLine(ctx, cartID, productID, variantID, qty)
	if err != nil {
		return AddResult{}, err
	}
	if clamped {
		s.log.Info("cart add clamped to stock",
			zap.String("user", userID.String()),
			zap.String("variant", variantID.String()),
			zap.Int("quantity", line.Quantity))
	}
	s.publishCartCount(ctx, userID)
	return AddResult{Line: line, Clamped: clamped}, nil
}

// UpdateQuantity sets an absolute quantity on a line in the user's own
// active cart. Fails with ErrInvalidQuantity below 1, with
// store.ErrStockExceeded above the variant's current stock (re-checked at
// call time) and with store.ErrNotFound for a line outside the caller's
// cart; on failure the line is unchanged.
func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	cartID, err := s.store.GetOrCreateActiveCart(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.UpdateLineQuantity(ctx, cartID, lineID, qty); err != nil {
		return err
	}
	s.publishCartCount(ctx, userID)
	return nil
}

// RemoveLine deletes a line from the user's own active cart. Idempotent:
// removing a line that no longer exists, or that sits in someone else's
// cart, is a no-op.
func (s *Service) RemoveLine(ctx context.Context, userID, lineID uuid.UUID) error {
	cartID, err := s.store.GetOrCreateActiveCart(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteLine(ctx, cartID, lineID); err != nil {
		return err
	}
	s.publishCartCount(ctx, userID)
	return nil
}

// CartItemCount returns the total quantity across the active cart's lines.
func (s *Service) CartItemCount(ctx context.Context, userID uuid.UUID) (int, error) {
	cartID, err := s.store.GetOrCreateActiveCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.store.CountCartItems(ctx, cartID)
}
