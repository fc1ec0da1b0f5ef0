package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/model"
)

func seedMem(t *testing.T, mem *MemoryStore, stock int) (model.Product, model.Variant) {
	t.Helper()
	p := model.Product{
		Name:  "Phone X",
		Slug:  "phone-x",
		Brand: "Acme",
		Price: decimal.RequireFromString("900.00"),
		Variants: []model.Variant{{
			Color:     "#000",
			ColorName: "Black",
			Capacity:  "128GB",
			Price:     decimal.RequireFromString("950.00"),
			Stock:     stock,
		}},
	}
	if err := mem.CreateProduct(context.Background(), &p); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	return p, p.Variants[0]
}

func TestMemoryGetOrCreateActiveCart_Concurrent(t *testing.T) {
	mem := NewMemoryStore()
	user := uuid.New()
	ctx := context.Background()

	const callers = 32
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := mem.GetOrCreateActiveCart(ctx, user)
			if err != nil {
				t.Errorf("GetOrCreateActiveCart: %v", err)
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("two active carts created: %s and %s", ids[0], id)
		}
	}
}

func TestMemoryUpsertZeroStockNewLine(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()
	p, variant := seedMem(t, mem, 0)

	cartID, err := mem.GetOrCreateActiveCart(ctx, uuid.New())
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	_, _, err = mem.UpsertCartLine(ctx, cartID, p.ID, variant.ID, 1)
	if !errors.Is(err, ErrStockExceeded) {
		t.Fatalf("expected ErrStockExceeded for zero-stock new line, got %v", err)
	}
}

func TestMemoryPlaceOrderAllOrNothing(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()
	pA, vA := seedMem(t, mem, 5)
	pB := model.Product{
		Name: "Phone Y", Slug: "phone-y",
		Price:    decimal.RequireFromString("500.00"),
		Variants: []model.Variant{{Color: "#fff", Capacity: "64GB", Price: decimal.RequireFromString("500.00"), Stock: 1}},
	}
	if err := mem.CreateProduct(ctx, &pB); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	vB := pB.Variants[0]

	user := uuid.New()
	cartID, _ := mem.GetOrCreateActiveCart(ctx, user)

	o := model.Order{
		UserID: user,
		Status: model.OrderPending,
		Items: []model.OrderItem{
			{ProductID: pA.ID, VariantID: vA.ID, Quantity: 2, Price: vA.Price},
			{ProductID: pB.ID, VariantID: vB.ID, Quantity: 3, Price: vB.Price}, // only 1 in stock
		},
	}
	_, err := mem.PlaceOrder(ctx, o, cartID)
	var stockChanged *StockChangedError
	if !errors.As(err, &stockChanged) {
		t.Fatalf("expected StockChangedError, got %v", err)
	}

	// nothing applied: variant A untouched despite being satisfiable
	got, _ := mem.GetVariant(ctx, vA.ID)
	if got.Stock != 5 {
		t.Fatalf("partial decrement leaked: stock=%d", got.Stock)
	}
	if orders, _ := mem.ListOrders(ctx, OrderFilter{UserID: user}); len(orders) != 0 {
		t.Fatalf("order created despite conflict")
	}
}

func TestMemoryProductFilters(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()
	seedMem(t, mem, 1)

	byBrand, err := mem.ListProducts(ctx, ProductFilter{Brand: "Acme"})
	if err != nil || len(byBrand) != 1 {
		t.Fatalf("brand filter: %v %d", err, len(byBrand))
	}
	bySearch, err := mem.ListProducts(ctx, ProductFilter{Search: "phone"})
	if err != nil || len(bySearch) != 1 {
		t.Fatalf("search filter: %v %d", err, len(bySearch))
	}
	none, err := mem.ListProducts(ctx, ProductFilter{Brand: "Other"})
	if err != nil || len(none) != 0 {
		t.Fatalf("brand mismatch should filter out: %v %d", err, len(none))
	}
}
