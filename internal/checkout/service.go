package checkout

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seekweb/pos-api/internal/cart"
	"github.com/seekweb/pos-api/internal/common"
	"github.com/seekweb/pos-api/internal/events"
	"github.com/seekweb/pos-api/internal/money"
	"github.com/seekweb/pos-api/internal/payment"
	"github.com/seekweb/pos-api/internal/queue"
	"github.com/seekweb/pos-api/internal/sale"
)

type customerLedger interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	AddPoints(ctx context.Context, id uuid.UUID, points int) error
}

type taskEnqueuer interface {
	Enqueue(ctx context.Context, t queue.Task) error
}

// Service walks a register through checkout: open payment collection for the
// cart total, then commit the finished sale as one unit.
type Service struct {
	Carts           *cart.Service
	Payments        *payment.Service
	Committer       *sale.Committer
	Customers       customerLedger
	Events          *events.Bus
	Tasks           taskEnqueuer
	ReceiptTaskKind string
	Log             zerolog.Logger
}

// Start opens payment collection for the register's current cart total.
func (s *Service) Start(ctx context.Context, registerID string) (payment.Status, error) {
	view, err := s.Carts.Get(ctx, registerID)
	if err != nil {
		return payment.Status{}, err
	}
	if view.Cart.Empty() {
		return payment.Status{}, common.NewAppError("EMPTY_CART", "cart has no lines", http.StatusUnprocessableEntity, nil)
	}
	return s.Payments.Open(ctx, registerID, view.Totals.Total)
}

// Commit finalizes the open payment collection and writes the sale. On
// success the cart and payment sessions are released and post-sale work is
// handed off, none of which can fail the already durable sale.
func (s *Service) Commit(ctx context.Context, registerID string, operatorID *uuid.UUID) (sale.Result, error) {
	view, err := s.Carts.Get(ctx, registerID)
	if err != nil {
		return sale.Result{}, err
	}
	if view.Cart.Empty() {
		return sale.Result{}, common.NewAppError("EMPTY_CART", "cart has no lines", http.StatusUnprocessableEntity, nil)
	}

	if view.Cart.CustomerID != nil {
		ok, err := s.Customers.Exists(ctx, *view.Cart.CustomerID)
		if err != nil {
			return sale.Result{}, err
		}
		if !ok {
			return sale.Result{}, common.NewAppError("CUSTOMER_NOT_FOUND", "customer not found", http.StatusNotFound, nil)
		}
	}

	collector, err := s.Payments.Finalize(ctx, registerID)
	if err != nil {
		return sale.Result{}, err
	}
	// the collection was opened for a specific total; a cart edited since
	// then must be re-collected
	if !collector.Due.Equal(view.Totals.Total) {
		return sale.Result{}, &common.AppError{
			Code:       "CART_CHANGED",
			Message:    "cart changed after payment collection started",
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"collected": collector.Due.String(), "current": view.Totals.Total.String()},
		}
	}

	in := sale.CommitInput{
		RegisterID: registerID,
		OperatorID: operatorID,
		CustomerID: view.Cart.CustomerID,
		Change:     collector.Change(),
	}
	for _, l := range view.Cart.Lines {
		in.Lines = append(in.Lines, sale.Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			TaxRate:   l.TaxRate,
			Qty:       l.Qty,
		})
	}
	for _, t := range collector.Tenders {
		in.Payments = append(in.Payments, sale.Payment{
			MethodID:   t.MethodID,
			MethodCode: t.MethodCode,
			Amount:     t.Amount,
			Change:     t.Change,
			Reference:  t.Reference,
		})
	}

	result, err := s.Committer.Commit(ctx, in)
	if err != nil {
		return sale.Result{}, err
	}

	s.afterCommit(ctx, registerID, view, result)
	return result, nil
}

// afterCommit runs the post-sale side effects. Failures are logged and
// dropped; the sale is committed either way.
func (s *Service) afterCommit(ctx context.Context, registerID string, view cart.View, result sale.Result) {
	if err := s.Carts.Clear(ctx, registerID); err != nil {
		s.Log.Error().Err(err).Str("register_id", registerID).Msg("clearing cart after commit failed")
	}
	if err := s.Payments.Release(ctx, registerID); err != nil {
		s.Log.Error().Err(err).Str("register_id", registerID).Msg("releasing payment session failed")
	}

	if view.Cart.CustomerID != nil {
		points := money.LoyaltyPoints(result.Sale.Total)
		if err := s.Customers.AddPoints(ctx, *view.Cart.CustomerID, points); err != nil {
			s.Log.Error().Err(err).
				Str("sale_number", result.Sale.Number).
				Msg("loyalty accrual failed")
		} else if points > 0 && s.Events != nil {
			_, _ = s.Events.Emit(ctx, events.TopicPointsAccrued, *view.Cart.CustomerID, map[string]any{
				"saleNumber": result.Sale.Number,
				"points":     points,
			})
		}
	}

	if s.Events != nil {
		_, err := s.Events.Emit(ctx, events.TopicSaleCommitted, result.Sale.ID, map[string]any{
			"number":     result.Sale.Number,
			"registerId": registerID,
			"total":      result.Sale.Total.String(),
		})
		if err != nil {
			s.Log.Error().Err(err).Str("sale_number", result.Sale.Number).Msg("emitting sale event failed")
		}
		for _, w := range result.Warnings {
			_, _ = s.Events.Emit(ctx, events.TopicStockWarning, result.Sale.ID, map[string]any{
				"number":  result.Sale.Number,
				"warning": w.Message,
			})
		}
	}

	if s.Tasks != nil && s.ReceiptTaskKind != "" {
		err := s.Tasks.Enqueue(ctx, queue.Task{
			Kind:           s.ReceiptTaskKind,
			Payload:        []byte(result.Sale.Number),
			IdempotencyKey: result.Sale.Number,
		})
		if err != nil {
			s.Log.Error().Err(err).Str("sale_number", result.Sale.Number).Msg("enqueueing receipt task failed")
		}
	}
}
