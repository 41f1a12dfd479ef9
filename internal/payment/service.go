package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/seekweb/pos-api/internal/obs"
)

// Service drives payment collection for the registers. The amount due comes
// from the caller, so the checkout flow decides when a collection opens.
type Service struct {
	Sessions *SessionStore
	Methods  *Methods
}

// Status is the collector together with its derived amounts.
type Status struct {
	Collector *Collector      `json:"collector"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Change    decimal.Decimal `json:"change"`
}

func status(c *Collector) Status {
	return Status{Collector: c, Paid: c.Paid(), Remaining: c.Remaining(), Change: c.Change()}
}

// Open starts a collection for the given amount due, replacing any stale
// open collection on the register.
func (s *Service) Open(ctx context.Context, registerID string, due decimal.Decimal) (Status, error) {
	c, err := NewCollector(registerID, due)
	if err != nil {
		return Status{}, err
	}
	if err := s.Sessions.Save(ctx, c); err != nil {
		return Status{}, err
	}
	return status(c), nil
}

// Get returns the open collection of a register.
func (s *Service) Get(ctx context.Context, registerID string) (Status, error) {
	c, err := s.Sessions.Load(ctx, registerID)
	if err != nil {
		return Status{}, err
	}
	return status(c), nil
}

// AddTender resolves the method and records a tender on the open collection.
// The reference travels with the tender onto the committed sale payment.
func (s *Service) AddTender(ctx context.Context, registerID, methodCode string, tendered decimal.Decimal, reference *string) (Status, error) {
	method, err := s.Methods.Resolve(ctx, methodCode)
	if err != nil {
		return Status{}, err
	}
	c, err := s.Sessions.Load(ctx, registerID)
	if err != nil {
		return Status{}, err
	}
	if _, err := c.AddTender(method, tendered, reference, s.Methods.IsCash(method)); err != nil {
		return Status{}, err
	}
	if err := s.Sessions.Save(ctx, c); err != nil {
		return Status{}, err
	}
	if obs.TendersTotal != nil {
		obs.TendersTotal.WithLabelValues(method.Code).Inc()
	}
	return status(c), nil
}

// RemoveTender voids a recorded tender.
func (s *Service) RemoveTender(ctx context.Context, registerID string, tenderID uuid.UUID) (Status, error) {
	c, err := s.Sessions.Load(ctx, registerID)
	if err != nil {
		return Status{}, err
	}
	if err := c.RemoveTender(tenderID); err != nil {
		return Status{}, err
	}
	if err := s.Sessions.Save(ctx, c); err != nil {
		return Status{}, err
	}
	return status(c), nil
}

// Cancel abandons the open collection.
func (s *Service) Cancel(ctx context.Context, registerID string) error {
	c, err := s.Sessions.Load(ctx, registerID)
	if err != nil {
		return err
	}
	if err := c.Cancel(); err != nil {
		return err
	}
	return s.Sessions.Delete(ctx, registerID)
}

// Finalize locks the open collection for commit and returns it. The caller
// owns deleting the session once the sale is durably recorded.
func (s *Service) Finalize(ctx context.Context, registerID string) (*Collector, error) {
	c, err := s.Sessions.Load(ctx, registerID)
	if err != nil {
		return nil, err
	}
	if err := c.Finalize(); err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Release drops the stored collection once its sale has been committed.
func (s *Service) Release(ctx context.Context, registerID string) error {
	return s.Sessions.Delete(ctx, registerID)
}
