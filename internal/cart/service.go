package cart

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/seekweb/pos-api/internal/catalog"
	"github.com/seekweb/pos-api/internal/common"
)

type productResolver interface {
	Lookup(ctx context.Context, code string) (catalog.Product, error)
	CheckStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

type customerResolver interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service drives cart mutations for the registers. Every mutation loads the
// session, applies the change, and saves it back.
type Service struct {
	Sessions  *SessionStore
	Products  productResolver
	Customers customerResolver
}

// View is a cart together with its computed totals.
type View struct {
	Cart   *Cart  `json:"cart"`
	Totals Totals `json:"totals"`
}

// Get returns the current cart of a register.
func (s *Service) Get(ctx context.Context, registerID string) (View, error) {
	c, err := s.Sessions.Load(ctx, registerID)
	if err != nil {
		return View{}, err
	}
	return View{Cart: c, Totals: c.Totals()}, nil
}

// Add scans a product into the cart by barcode or id. The catalog is read at
// add time so the line carries a price snapshot and the current stock bounds
// the merged quantity. The merged quantity is also checked against live stock,
// since the lookup may have been served from cache.
func (s *Service) Add(ctx context.Context, registerID, code string, qty int) (View, error) {
	p, err := s.Products.Lookup(ctx, code)
	if err != nil {
		return View{}, err
	}
	c, err := s.Sessions.Load(ctx, registerID)
	if err != nil {
		return View{}, err
	}
	if qty > 0 {
		want := c.Qty(p.ID) + qty
		ok, err := s.Products.CheckStock(ctx, p.ID, want)
		if err != nil {
			return View{}, err
		}
		if !ok {
			return View{}, &common.AppError{
				Code:       "INSUFFICIENT_STOCK",
				Message:    fmt.Sprintf("not enough stock for %q", p.Name),
				HTTPStatus: http.StatusConflict,
				Details:    map[string]any{"requested": want},
			}
		}
	}
	if err := c.Add(p.ID, p.Name, p.Barcode, p.SalePrice, p.TaxRate, qty, p.Stock); err != nil {
		return View{}, err
	}
	if err := s.Sessions.Save(ctx, c); err != nil {
		return View{}, err
	}
	return View{Cart: c, Totals: c.Totals()}, nil
}

// Remove drops a product line from the cart.
func (s *Service) Remove(ctx context.Context, registerID string, productID uuid.UUID) (View, error) {
	c, err := s.Sessions.Load(ctx, registerID)
	if err != nil {
		return View{}, err
	}
	c.Remove(productID)
	if err := s.Sessions.Save(ctx, c); err != nil {
		return View{}, err
	}
	return View{Cart: c, Totals: c.Totals()}, nil
}

// AttachCustomer links a customer to the open cart before checkout.
func (s *Service) AttachCustomer(ctx context.Context, registerID string, customerID uuid.UUID) (View, error) {
	if s.Customers != nil {
		ok, err := s.Customers.Exists(ctx, customerID)
		if err != nil {
			return View{}, err
		}
		if !ok {
			return View{}, common.NewAppError("CUSTOMER_NOT_FOUND", "customer not found", http.StatusNotFound, nil)
		}
	}
	c, err := s.Sessions.Load(ctx, registerID)
	if err != nil {
		return View{}, err
	}
	c.CustomerID = &customerID
	if err := s.Sessions.Save(ctx, c); err != nil {
		return View{}, err
	}
	return View{Cart: c, Totals: c.Totals()}, nil
}

// Clear empties the register's cart.
func (s *Service) Clear(ctx context.Context, registerID string) error {
	return s.Sessions.Delete(ctx, registerID)
}
