package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/model"
)

func newMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &PostgresStore{DB: db}, mock
}

func TestGetOrCreateActiveCart_ConditionalInsert(t *testing.T) {
	s, mock := newMock(t)
	userID := uuid.New()
	cartID := uuid.New()

	// conditional insert first, never read-then-write
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO carts (id, user_id, status) VALUES ($1,$2,'active')`)).
		WithArgs(sqlmock.AnyArg(), userID).
		WillReturnResult(sqlmock.NewResult(0, 0)) // lost the race: no row inserted

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM carts WHERE user_id=$1 AND status='active'`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(cartID))

	got, err := s.GetOrCreateActiveCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetOrCreateActiveCart failed: %v", err)
	}
	if got != cartID {
		t.Fatalf("expected winner's cart %s, got %s", cartID, got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertCartLine_ClampsToStock(t *testing.T) {
	s, mock := newMock(t)
	cartID, productID, variantID, lineID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT stock FROM product_variants WHERE id=$1 FOR UPDATE`)).
		WithArgs(variantID).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(4))
	// existing line qty 3; requesting 3 more clamps at stock 4
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT quantity FROM cart_items`)).
		WithArgs(cartID, productID, variantID).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO cart_items (id, cart_id, product_id, variant_id, quantity)`)).
		WithArgs(sqlmock.AnyArg(), cartID, productID, variantID, 4).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM cart_items WHERE cart_id=$1`)).
		WithArgs(cartID, productID, variantID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(lineID))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT ci\.id, ci\.cart_id`).
		WithArgs(lineID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "cart_id", "product_id", "variant_id", "quantity",
			"created_at", "updated_at", "name", "image",
			"color", "color_name", "capacity", "price", "stock",
		}).AddRow(lineID, cartID, productID, variantID, 4,
			now, now, "Phone X", "img.jpg", "#000", "Black", "128GB", "250.00", 4))

	line, clamped, err := s.UpsertCartLine(context.Background(), cartID, productID, variantID, 3)
	if err != nil {
		t.Fatalf("UpsertCartLine failed: %v", err)
	}
	if !clamped {
		t.Fatalf("expected clamp notice")
	}
	if line.Quantity != 4 || !line.Price.Equal(decimal.RequireFromString("250.00")) {
		t.Fatalf("unexpected line: %+v", line)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateLineQuantity_StockExceeded(t *testing.T) {
	s, mock := newMock(t)
	cartID, lineID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT v.stock`)).
		WithArgs(lineID, cartID).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(2))
	mock.ExpectRollback()

	err := s.UpdateLineQuantity(context.Background(), cartID, lineID, 5)
	if !errors.Is(err, ErrStockExceeded) {
		t.Fatalf("expected ErrStockExceeded, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateLineQuantity_WrongCart(t *testing.T) {
	s, mock := newMock(t)
	cartID, lineID := uuid.New(), uuid.New()

	// line exists under a different cart: the scoped read sees nothing
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT v.stock`)).
		WithArgs(lineID, cartID).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}))
	mock.ExpectRollback()

	err := s.UpdateLineQuantity(context.Background(), cartID, lineID, 2)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteLine_Idempotent(t *testing.T) {
	s, mock := newMock(t)
	cartID, lineID := uuid.New(), uuid.New()

	// zero rows affected is still success
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE id=$1 AND cart_id=$2`)).
		WithArgs(lineID, cartID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteLine(context.Background(), cartID, lineID); err != nil {
		t.Fatalf("expected no-op success, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPlaceOrder_StockConflictRollsBack(t *testing.T) {
	s, mock := newMock(t)
	cartID, variantID := uuid.New(), uuid.New()
	o := model.Order{
		UserID:        uuid.New(),
		PaymentMethod: model.PaymentCreditCard,
		Status:        model.OrderPending,
		Items: []model.OrderItem{{
			ProductID: uuid.New(),
			VariantID: variantID,
			Quantity:  5,
			Price:     decimal.RequireFromString("10.00"),
		}},
	}

	mock.ExpectBegin()
	// compare-and-decrement misses: stock < 5
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE product_variants SET stock = stock - $1 WHERE id = $2 AND stock >= $1`)).
		WithArgs(5, variantID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.PlaceOrder(context.Background(), o, cartID)
	var stockChanged *StockChangedError
	if !errors.As(err, &stockChanged) {
		t.Fatalf("expected StockChangedError, got %v", err)
	}
	if len(stockChanged.VariantIDs) != 1 || stockChanged.VariantIDs[0] != variantID {
		t.Fatalf("unexpected conflict list: %v", stockChanged.VariantIDs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	s, mock := newMock(t)
	cartID := uuid.New()
	orderID, itemID := uuid.New(), uuid.New()
	productID, variantID := uuid.New(), uuid.New()
	o := model.Order{
		ID:            orderID,
		UserID:        uuid.New(),
		CustomerName:  "Somchai J.",
		PaymentMethod: model.PaymentCreditCard,
		Subtotal:      decimal.RequireFromString("250.00"),
		ShippingFee:   decimal.RequireFromString("50.00"),
		Total:         decimal.RequireFromString("300.00"),
		Status:        model.OrderPending,
		Items: []model.OrderItem{{
			ID:        itemID,
			ProductID: productID,
			VariantID: variantID,
			Quantity:  1,
			Price:     decimal.RequireFromString("250.00"),
		}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE product_variants SET stock = stock - $1 WHERE id = $2 AND stock >= $1`)).
		WithArgs(1, variantID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO orders`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO order_items`))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WithArgs(itemID, orderID, productID, variantID, 1, o.Items[0].Price).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE products`)).
		WithArgs(1, productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM cart_items WHERE cart_id=$1`)).
		WithArgs(cartID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE carts SET status='checked_out' WHERE id=$1`)).
		WithArgs(cartID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	placed, err := s.PlaceOrder(context.Background(), o, cartID)
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if placed.ID != orderID || len(placed.Items) != 1 {
		t.Fatalf("unexpected order result: %+v", placed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetVariantStock(t *testing.T) {
	s, mock := newMock(t)
	variantID := uuid.New()

	// negative stock rejected before any DB call
	if err := s.SetVariantStock(context.Background(), variantID, -1); err == nil {
		t.Fatalf("expected error for negative stock")
	}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE product_variants SET stock=$1 WHERE id=$2`)).
		WithArgs(0, variantID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.SetVariantStock(context.Background(), variantID, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetVariantStock(t *testing.T) {
	s, mock := newMock(t)
	variantID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT stock FROM product_variants WHERE id=$1`)).
		WithArgs(variantID).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(7))

	stock, err := s.GetVariantStock(context.Background(), variantID)
	if err != nil {
		t.Fatalf("GetVariantStock failed: %v", err)
	}
	if stock != 7 {
		t.Fatalf("expected stock 7, got %d", stock)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT stock FROM product_variants WHERE id=$1`)).
		WithArgs(variantID).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}))

	if _, err := s.GetVariantStock(context.Background(), variantID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
