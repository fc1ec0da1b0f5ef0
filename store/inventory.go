package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// SetVariantStock sets the absolute stock for a variant (admin operation).
func (s *PostgresStore) SetVariantStock(ctx context.Context, id uuid.UUID, stock int) error {
	if stock < 0 {
		return errors.New("stock cannot be negative")
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE product_variants SET stock=$1 WHERE id=$2`, stock, id)
	if err != nil {
		return gatewayErr("set stock", err)
	}
	if ra, _ := res.RowsAffected(); ra == 0 {
		return ErrNotFound
	}
	return nil
}

// GetVariantStock returns the current stock for a variant.
func (s *PostgresStore) GetVariantStock(ctx context.Context, id uuid.UUID) (int, error) {
	var stock int
	err := s.DB.QueryRowContext(ctx,
		`SELECT stock FROM product_variants WHERE id=$1`, id).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, gatewayErr("get stock", err)
	}
	return stock, nil
}
