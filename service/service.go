package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/model"
	"storefront/store"
)

// LocalStore is the device-scoped key-value store holding guest cart lines.
type LocalStore interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Service wires the variant resolver, cart aggregator and checkout
// calculator over the data gateway.
type Service struct {
	store       store.Store
	local       LocalStore
	shippingFee decimal.Decimal
	log         *zap.Logger
	badges      *badgeHub

	// guest cart writes are read-modify-write on the local store, so they
	// are serialized per device
	guestMu    sync.Mutex
	guestLocks map[string]*sync.Mutex
}

// NewService returns a Service. log may be nil.
func NewService(st store.Store, local LocalStore, shippingFee decimal.Decimal, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:       st,
		local:       local,
		shippingFee: shippingFee,
		log:         log,
		badges:      newBadgeHub(),
		guestLocks:  make(map[string]*sync.Mutex),
	}
}

// --- Catalog ---

func (s *Service) CreateProduct(ctx context.Context, p *model.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name required")
	}
	if p.Price.IsNegative() {
		return errors.New("price must be >= 0")
	}
	if p.Slug == "" {
		p.Slug = slugify(p.Name)
	}
	for _, v := range p.Variants {
		if v.Stock < 0 {
			return errors.New("variant stock cannot be negative")
		}
		if v.Price.IsNegative() {
			return errors.New("variant price must be >= 0")
		}
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return err
	}
	s.log.Info("product created", zap.String("id", p.ID.String()), zap.String("slug", p.Slug))
	return nil
}

func (s *Service) UpdateProduct(ctx context.Context, p *model.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name required")
	}
	if p.Price.IsNegative() {
		return errors.New("price must be >= 0")
	}
	return s.store.UpdateProduct(ctx, p)
}

func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, f store.ProductFilter) ([]model.Product, error) {
	return s.store.ListProducts(ctx, f)
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (model.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// GetProductBySlug fetches a product for its detail page and bumps the view
// counter. A failed bump is logged, not surfaced: the page still renders.
func (s *Service) GetProductBySlug(ctx context.Context, slug string) (model.Product, error) {
	p, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		return model.Product{}, err
	}
	if err := s.store.IncrementViewCount(ctx, p.ID); err != nil {
		s.log.Warn("view count bump failed", zap.String("product", p.ID.String()), zap.Error(err))
	}
	return p, nil
}

func (s *Service) GetVariantStock(ctx context.Context, id uuid.UUID) (int, error) {
	return s.store.GetVariantStock(ctx, id)
}

func (s *Service) SetVariantStock(ctx context.Context, id uuid.UUID, stock int) error {
	if stock < 0 {
		return errors.New("stock cannot be negative")
	}
	return s.store.SetVariantStock(ctx, id, stock)
}

// --- Orders (read/admin side; checkout lives in checkout.go) ---

func (s *Service) ListOrders(ctx context.Context, f store.OrderFilter) ([]model.Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, errors.New("unknown order status")
	}
	return s.store.ListOrders(ctx, f)
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *Service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	if !status.Valid() {
		return errors.New("unknown order status")
	}
	return s.store.UpdateOrderStatus(ctx, id, status)
}

// CancelOrder marks an order cancelled. Stock is not restored; cancelled
// orders are handled by back-office restock.
func (s *Service) CancelOrder(ctx context.Context, id uuid.UUID) error {
	return s.store.UpdateOrderStatus(ctx, id, model.OrderCancelled)
}

func slugify(name string) string {
	out := make([]rune, 0, len(name))
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			lastDash = false
		default:
			if !lastDash {
				out = append(out, '-')
				lastDash = true
			}
		}
	}
	return strings.Trim(string(out), "-")
}
