package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrStockExceeded is returned when a requested quantity cannot be satisfied
// by the variant's current stock and clamping is not permitted.
var ErrStockExceeded = errors.New("stock exceeded")

// ErrGatewayUnavailable wraps transport-level failures talking to the
// backing database. Callers treat it as retryable.
var ErrGatewayUnavailable = errors.New("gateway unavailable")

// StockChangedError is returned by PlaceOrder when stock dropped below a
// committed cart line's quantity between cart time and checkout time. The
// order is not created; the shopper has to adjust the cart and retry.
type StockChangedError struct {
	VariantIDs []uuid.UUID
}

func (e *StockChangedError) Error() string {
	ids := make([]string, len(e.VariantIDs))
	for i, id := range e.VariantIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("stock changed for variants: %s", strings.Join(ids, ", "))
}

// gatewayErr tags a driver error as a gateway failure while keeping the
// cause in the chain.
func gatewayErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrGatewayUnavailable, err)
}
