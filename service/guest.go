package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/model"
	"storefront/store"
)

// Guest carts: an unauthenticated shopper's lines live in the device-local
// store under the device's opaque ID, with the same (product, variant, qty)
// shape as server lines. At sign-in MergeGuestCart folds them into the
// server cart.

func guestKey(deviceID string) string { return "guestcart:" + deviceID }

// deviceLock returns the mutex serializing writes for one device. Guest
// mutations are read-modify-write on the local store; without this, two
// concurrent adds for the same device could lose one of them.
func (s *Service) deviceLock(deviceID string) *sync.Mutex {
	s.guestMu.Lock()
	defer s.guestMu.Unlock()
	l, ok := s.guestLocks[deviceID]
	if !ok {
		l = &sync.Mutex{}
		s.guestLocks[deviceID] = l
	}
	return l
}

// GuestLines returns the device's guest cart, empty when none was saved.
func (s *Service) GuestLines(deviceID string) ([]model.GuestLine, error) {
	return s.loadGuestLines(deviceID)
}

func (s *Service) loadGuestLines(deviceID string) ([]model.GuestLine, error) {
	raw, ok, err := s.local.Get(guestKey(deviceID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.GuestLine{}, nil
	}
	var lines []model.GuestLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("corrupt guest cart: %w", err)
	}
	return lines, nil
}

func (s *Service) saveGuestLines(deviceID string, lines []model.GuestLine) error {
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.local.Put(guestKey(deviceID), raw)
}

// AddGuestLine merges qty into the device's guest cart by (product, variant)
// key. Stock is not consulted here; the clamp happens when the guest cart is
// merged into the server cart at sign-in.
func (s *Service) AddGuestLine(deviceID string, productID, variantID uuid.UUID, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	mu := s.deviceLock(deviceID)
	mu.Lock()
	defer mu.Unlock()

	lines, err := s.loadGuestLines(deviceID)
	if err != nil {
		return err
	}
	for i := range lines {
		if lines[i].ProductID == productID && lines[i].VariantID == variantID {
			lines[i].Quantity += qty
			return s.saveGuestLines(deviceID, lines)
		}
	}
	lines = append(lines, model.GuestLine{ProductID: productID, VariantID: variantID, Quantity: qty})
	return s.saveGuestLines(deviceID, lines)
}

// RemoveGuestLine drops a (product, variant) entry. Idempotent.
func (s *Service) RemoveGuestLine(deviceID string, productID, variantID uuid.UUID) error {
	mu := s.deviceLock(deviceID)
	mu.Lock()
	defer mu.Unlock()

	lines, err := s.loadGuestLines(deviceID)
	if err != nil {
		return err
	}
	out := lines[:0]
	for _, l := range lines {
		if l.ProductID == productID && l.VariantID == variantID {
			continue
		}
		out = append(out, l)
	}
	return s.saveGuestLines(deviceID, out)
}

// MergeResult reports what the guest-cart merge did.
type MergeResult struct {
	Merged  int         `json:"merged"`  // lines folded into the server cart
	Clamped int         `json:"clamped"` // lines whose quantity hit the stock clamp
	Dropped []uuid.UUID `json:"dropped"` // variant IDs no longer in the catalog
}

// MergeGuestCart folds the device's guest cart into the user's server cart:
// quantities for matching (product, variant) pairs are summed and clamped to
// current stock, then the local copy is cleared. Lines whose variant no
// longer exists (or has zero stock with no server line to keep) are dropped
// and reported, never failed on: the merge must leave the shopper with the
// best cart the catalog still supports.
func (s *Service) MergeGuestCart(ctx context.Context, deviceID string, userID uuid.UUID) (MergeResult, error) {
	mu := s.deviceLock(deviceID)
	mu.Lock()
	defer mu.Unlock()

	var res MergeResult
	lines, err := s.loadGuestLines(deviceID)
	if err != nil {
		return res, err
	}
	if len(lines) == 0 {
		return res, nil
	}

	cartID, err := s.store.GetOrCreateActiveCart(ctx, userID)
	if err != nil {
		return res, err
	}
	for _, l := range lines {
		_, clamped, err := s.store.UpsertCartLine(ctx, cartID, l.ProductID, l.VariantID, l.Quantity)
		switch {
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrStockExceeded):
			// Variant gone or nothing left to sell and nothing already in
			// the cart; drop rather than fail the whole merge.
			res.Dropped = append(res.Dropped, l.VariantID)
			continue
		case err != nil:
			return res, err
		}
		res.Merged++
		if clamped {
			res.Clamped++
		}
	}

	if err := s.local.Delete(guestKey(deviceID)); err != nil {
		return res, err
	}
	s.log.Info("guest cart merged",
		zap.String("user", userID.String()),
		zap.Int("merged", res.Merged),
		zap.Int("clamped", res.Clamped),
		zap.Int("dropped", len(res.Dropped)))
	s.publishCartCount(ctx, userID)
	return res, nil
}
