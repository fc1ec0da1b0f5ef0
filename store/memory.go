package store

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/model"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It mirrors PostgresStore semantics, including the single-active-cart
// invariant and compare-and-decrement stock on PlaceOrder. Safe for
// concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]model.Product
	variants map[uuid.UUID]model.Variant
	carts    map[uuid.UUID]model.Cart
	lines    map[uuid.UUID]model.CartLine
	orders   map[uuid.UUID]model.Order
	seq      int64 // insertion order for stable listings
	lineSeq  map[uuid.UUID]int64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[uuid.UUID]model.Product),
		variants: make(map[uuid.UUID]model.Variant),
		carts:    make(map[uuid.UUID]model.Cart),
		lines:    make(map[uuid.UUID]model.CartLine),
		orders:   make(map[uuid.UUID]model.Order),
		lineSeq:  make(map[uuid.UUID]int64),
	}
}

func (s *MemoryStore) Close() error { return nil }

// --- Catalog ---

func (s *MemoryStore) CreateProduct(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.ProductID = p.ID
		s.variants[v.ID] = *v
	}
	stored := *p
	stored.Variants = nil
	s.products[p.ID] = stored
	return nil
}

func (s *MemoryStore) UpdateProduct(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	keep := map[uuid.UUID]bool{}
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.ProductID = p.ID
		s.variants[v.ID] = *v
		keep[v.ID] = true
	}
	for id, v := range s.variants {
		if v.ProductID == p.ID && !keep[id] {
			delete(s.variants, id)
		}
	}
	stored := *p
	stored.CreatedAt = old.CreatedAt
	stored.ViewCount = old.ViewCount
	stored.PurchaseCount = old.PurchaseCount
	stored.PopularityScore = old.PopularityScore
	stored.Variants = nil
	s.products[p.ID] = stored
	return nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	for vid, v := range s.variants {
		if v.ProductID == id {
			delete(s.variants, vid)
		}
	}
	return nil
}

func (s *MemoryStore) variantsOf(productID uuid.UUID) []model.Variant {
	out := []model.Variant{}
	for _, v := range s.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Color != out[j].Color {
			return out[i].Color < out[j].Color
		}
		return out[i].Capacity < out[j].Capacity
	})
	return out
}

func (s *MemoryStore) ListProducts(_ context.Context, f ProductFilter) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Product{}
	for _, p := range s.products {
		if f.Brand != "" && p.Brand != f.Brand {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.PopularOnly && !p.IsPopular {
			continue
		}
		p.Variants = s.variantsOf(p.ID)
		out = append(out, p)
	}
	if f.RecentFirst {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id uuid.UUID) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	p.Variants = s.variantsOf(id)
	return p, nil
}

func (s *MemoryStore) GetProductBySlug(_ context.Context, slug string) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.Slug == slug {
			p.Variants = s.variantsOf(p.ID)
			return p, nil
		}
	}
	return model.Product{}, ErrNotFound
}

func (s *MemoryStore) IncrementViewCount(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil
	}
	p.ViewCount++
	p.PopularityScore++
	s.products[id] = p
	return nil
}

// --- Variants ---

func (s *MemoryStore) GetVariant(_ context.Context, id uuid.UUID) (model.Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[id]
	if !ok {
		return model.Variant{}, ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) GetVariantStock(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[id]
	if !ok {
		return 0, ErrNotFound
	}
	return v.Stock, nil
}

func (s *MemoryStore) SetVariantStock(_ context.Context, id uuid.UUID, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[id]
	if !ok {
		return ErrNotFound
	}
	v.Stock = stock
	s.variants[id] = v
	return nil
}

// --- Cart ---

func (s *MemoryStore) GetOrCreateActiveCart(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.carts {
		if c.UserID == userID && c.Status == model.CartStatusActive {
			return c.ID, nil
		}
	}
	c := model.Cart{ID: uuid.New(), UserID: userID, Status: model.CartStatusActive, CreatedAt: time.Now()}
	s.carts[c.ID] = c
	return c.ID, nil
}

func (s *MemoryStore) joinLine(l model.CartLine) model.CartLine {
	if p, ok := s.products[l.ProductID]; ok {
		l.ProductName = p.Name
		if len(p.Images) > 0 {
			l.ProductImage = p.Images[0]
		}
	}
	if v, ok := s.variants[l.VariantID]; ok {
		l.VariantColor = v.Color
		l.VariantName = v.ColorName
		l.Capacity = v.Capacity
		l.Price = v.Price
		l.Stock = v.Stock
	}
	return l
}

func (s *MemoryStore) GetCartLines(_ context.Context, cartID uuid.UUID) ([]model.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.CartLine{}
	for _, l := range s.lines {
		if l.CartID == cartID {
			out = append(out, s.joinLine(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.lineSeq[out[i].ID] < s.lineSeq[out[j].ID] })
	return out, nil
}

func (s *MemoryStore) UpsertCartLine(_ context.Context, cartID, productID, variantID uuid.UUID, qty int) (model.CartLine, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[variantID]
	if !ok {
		return model.CartLine{}, false, ErrNotFound
	}

	var existing *model.CartLine
	for id := range s.lines {
		l := s.lines[id]
		if l.CartID == cartID && l.ProductID == productID && l.VariantID == variantID {
			existing = &l
			break
		}
	}

	target := qty
	if existing != nil {
		target += existing.Quantity
	}
	clamped := false
	if target > v.Stock {
		target = v.Stock
		clamped = true
	}
	if target < 1 {
		return model.CartLine{}, false, ErrStockExceeded
	}

	now := time.Now()
	var line model.CartLine
	if existing != nil {
		existing.Quantity = target
		existing.UpdatedAt = now
		s.lines[existing.ID] = *existing
		line = *existing
	} else {
		line = model.CartLine{
			ID: uuid.New(), CartID: cartID, ProductID: productID, VariantID: variantID,
			Quantity: target, CreatedAt: now, UpdatedAt: now,
		}
		s.seq++
		s.lineSeq[line.ID] = s.seq
		s.lines[line.ID] = line
	}
	return s.joinLine(line), clamped, nil
}

func (s *MemoryStore) UpdateLineQuantity(_ context.Context, cartID, lineID uuid.UUID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[lineID]
	if !ok || l.CartID != cartID {
		return ErrNotFound
	}
	v, ok := s.variants[l.VariantID]
	if !ok {
		return ErrNotFound
	}
	if qty > v.Stock {
		return ErrStockExceeded
	}
	l.Quantity = qty
	l.UpdatedAt = time.Now()
	s.lines[lineID] = l
	return nil
}

func (s *MemoryStore) DeleteLine(_ context.Context, cartID, lineID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lines[lineID]; !ok || l.CartID != cartID {
		return nil
	}
	delete(s.lines, lineID)
	delete(s.lineSeq, lineID)
	return nil
}

func (s *MemoryStore) ClearCart(_ context.Context, cartID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCartLocked(cartID)
	return nil
}

func (s *MemoryStore) clearCartLocked(cartID uuid.UUID) {
	for id, l := range s.lines {
		if l.CartID == cartID {
			delete(s.lines, id)
			delete(s.lineSeq, id)
		}
	}
}

func (s *MemoryStore) CountCartItems(_ context.Context, cartID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		if l.CartID == cartID {
			n += l.Quantity
		}
	}
	return n, nil
}

// --- Orders ---

func (s *MemoryStore) PlaceOrder(_ context.Context, o model.Order, cartID uuid.UUID) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := append([]model.OrderItem(nil), o.Items...)
	sort.Slice(items, func(i, j int) bool {
		return bytes.Compare(items[i].VariantID[:], items[j].VariantID[:]) < 0
	})

	var conflicts []uuid.UUID
	for _, it := range items {
		v, ok := s.variants[it.VariantID]
		if !ok || v.Stock < it.Quantity {
			conflicts = append(conflicts, it.VariantID)
		}
	}
	if len(conflicts) > 0 {
		return model.Order{}, &StockChangedError{VariantIDs: conflicts}
	}

	// All checks passed; apply every effect.
	for _, it := range items {
		v := s.variants[it.VariantID]
		v.Stock -= it.Quantity
		s.variants[it.VariantID] = v
		if p, ok := s.products[it.ProductID]; ok {
			p.PurchaseCount += int64(it.Quantity)
			p.PopularityScore += int64(it.Quantity) * 5
			s.products[it.ProductID] = p
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = time.Now()
	for i := range o.Items {
		if o.Items[i].ID == uuid.Nil {
			o.Items[i].ID = uuid.New()
		}
		o.Items[i].OrderID = o.ID
	}
	s.orders[o.ID] = o

	s.clearCartLocked(cartID)
	if c, ok := s.carts[cartID]; ok {
		c.Status = model.CartStatusCheckedOut
		s.carts[cartID] = c
	}
	return o, nil
}

func (s *MemoryStore) ListOrders(_ context.Context, f OrderFilter) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Order{}
	for _, o := range s.orders {
		if f.UserID != uuid.Nil && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id uuid.UUID) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, id uuid.UUID, status model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	s.orders[id] = o
	return nil
}

var _ Store = (*MemoryStore)(nil)
