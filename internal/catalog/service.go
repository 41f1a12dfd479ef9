package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/seekweb/pos-api/internal/common"
)

// Service orchestrates product lookups with a read-through cache. Barcode and
// id lookups are the hot path at the register, so both are cached.
type Service struct {
	store        Store
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        Store
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = 20
	}
	max := cfg.MaxLimit
	if max <= 0 {
		max = 100
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, defaultLimit: limit, maxLimit: max}
}

func cacheKeyID(id uuid.UUID) string     { return "catalog:product:id:" + id.String() }
func cacheKeyBarcode(code string) string { return "catalog:product:barcode:" + code }

// Lookup resolves a product by barcode first, falling back to a uuid lookup
// when the code parses as one. This mirrors how the register scans: a raw
// barcode most of the time, an id when picked from search results.
func (s *Service) Lookup(ctx context.Context, code string) (Product, error) {
	if code == "" {
		return Product{}, common.NewAppError("VALIDATION", "product code is required", http.StatusBadRequest, nil)
	}
	p, err := s.ByBarcode(ctx, code)
	if err == nil {
		return p, nil
	}
	if !isNotFound(err) {
		return Product{}, err
	}
	if id, parseErr := uuid.Parse(code); parseErr == nil {
		return s.ByID(ctx, id)
	}
	return Product{}, err
}

// ByID returns a product by id, reading through the cache.
func (s *Service) ByID(ctx context.Context, id uuid.UUID) (Product, error) {
	var p Product
	if ok, _ := s.cache.GetJSON(ctx, cacheKeyID(id), &p); ok {
		return p, nil
	}
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Product{}, s.wrapNotFound(err, id.String())
	}
	_ = s.cache.SetJSON(ctx, cacheKeyID(id), p)
	return p, nil
}

// ByBarcode returns a product by barcode, reading through the cache.
func (s *Service) ByBarcode(ctx context.Context, barcode string) (Product, error) {
	var p Product
	if ok, _ := s.cache.GetJSON(ctx, cacheKeyBarcode(barcode), &p); ok {
		return p, nil
	}
	p, err := s.store.FindByBarcode(ctx, barcode)
	if err != nil {
		return Product{}, s.wrapNotFound(err, barcode)
	}
	_ = s.cache.SetJSON(ctx, cacheKeyBarcode(barcode), p)
	return p, nil
}

// CheckStock reports whether a product can currently cover qty units. It
// always hits the store, never the cache, since a stale stock figure is
// exactly what the caller is trying to rule out.
func (s *Service) CheckStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, common.NewAppError("VALIDATION", "quantity must be positive", http.StatusBadRequest, nil)
	}
	return s.store.CheckStock(ctx, id, qty)
}

// Search lists active products by name or barcode fragment. Results are not
// cached since the query space is unbounded.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	items, err := s.store.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Product{}
	}
	return items, nil
}

// Create registers a new product.
func (s *Service) Create(ctx context.Context, input ProductInput) (Product, error) {
	if err := validateInput(input); err != nil {
		return Product{}, err
	}
	return s.store.Create(ctx, input)
}

// Update replaces the editable fields of a product and drops stale cache entries.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input ProductInput) (Product, error) {
	if err := validateInput(input); err != nil {
		return Product{}, err
	}
	p, err := s.store.Update(ctx, id, input)
	if err != nil {
		return Product{}, s.wrapNotFound(err, id.String())
	}
	s.invalidate(ctx, p)
	return p, nil
}

// Deactivate soft-deletes a product.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return s.wrapNotFound(err, id.String())
	}
	if err := s.store.Deactivate(ctx, id); err != nil {
		return s.wrapNotFound(err, id.String())
	}
	s.invalidate(ctx, p)
	return nil
}

func (s *Service) invalidate(ctx context.Context, p Product) {
	keys := []string{cacheKeyID(p.ID)}
	if p.Barcode != nil {
		keys = append(keys, cacheKeyBarcode(*p.Barcode))
	}
	_ = s.cache.Invalidate(ctx, keys...)
}

func (s *Service) wrapNotFound(err error, ref string) error {
	if errors.Is(err, ErrNotFound) {
		return common.NewAppError("NOT_FOUND", fmt.Sprintf("product %q not found", ref), http.StatusNotFound, err)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || common.CodeOf(err) == "NOT_FOUND"
}

func validateInput(input ProductInput) error {
	switch {
	case input.Name == "":
		return common.NewAppError("VALIDATION", "product name is required", http.StatusBadRequest, nil)
	case input.SalePrice.IsNegative() || input.PurchasePrice.IsNegative():
		return common.NewAppError("VALIDATION", "prices must not be negative", http.StatusBadRequest, nil)
	case input.Stock < 0:
		return common.NewAppError("VALIDATION", "stock must not be negative", http.StatusBadRequest, nil)
	case input.TaxRateID == uuid.Nil:
		return common.NewAppError("VALIDATION", "tax rate is required", http.StatusBadRequest, nil)
	}
	return nil
}
