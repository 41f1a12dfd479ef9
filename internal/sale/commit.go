package sale

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/seekweb/pos-api/internal/common"
	"github.com/seekweb/pos-api/internal/money"
	"github.com/seekweb/pos-api/internal/obs"
)

// Stages of the commit protocol, used to tag failures.
const (
	StageHeader   = "header"
	StageLines    = "lines"
	StagePayments = "payments"
	StageCommit   = "commit"
)

// CommitError reports which stage of the commit protocol failed. Whatever
// the stage, the sale is guaranteed to be fully absent afterwards.
type CommitError struct {
	Stage string
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("sale commit failed at %s: %v", e.Stage, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

type stockDecrementer interface {
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

// CommitInput is everything a finished checkout hands to the committer. The
// lines carry the cart's price snapshots and the payments come from a
// finalized collector.
type CommitInput struct {
	RegisterID string
	OperatorID *uuid.UUID
	CustomerID *uuid.UUID
	Lines      []Line
	Payments   []Payment
	Change     decimal.Decimal
}

// Warning describes a post-commit step that could not be completed. The sale
// itself is durable; warnings only flag follow-up work for the back office.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of a successful commit.
type Result struct {
	Sale     Sale      `json:"sale"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Committer runs the sale commit protocol: header, lines, and payments are
// written inside one transaction, and a failed commit additionally deletes
// whatever might have landed, so a sale is either fully present or fully
// absent. Stock decrement happens after the commit and is best effort.
type Committer struct {
	Store   Store
	Stock   stockDecrementer
	Numbers *NumberGenerator
	Log     zerolog.Logger
	Now     func() time.Time
}

// Commit writes the sale. Totals are recomputed here from the line
// snapshots; client-sent totals are never trusted.
func (c *Committer) Commit(ctx context.Context, in CommitInput) (Result, error) {
	if err := validateInput(in); err != nil {
		return Result{}, err
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	started := now()

	subtotal, tax := decimal.Zero, decimal.Zero
	for i := range in.Lines {
		// no pricing path grants discounts yet; committed lines record zero
		in.Lines[i].Discount = decimal.Zero
		in.Lines[i].Subtotal = in.Lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(in.Lines[i].Qty)))
		in.Lines[i].Tax = money.LineTax(in.Lines[i].UnitPrice, in.Lines[i].Qty, in.Lines[i].TaxRate)
		in.Lines[i].Total = in.Lines[i].Subtotal.Add(in.Lines[i].Tax)
		subtotal = subtotal.Add(in.Lines[i].Subtotal)
		tax = tax.Add(in.Lines[i].Tax)
	}
	total := subtotal.Add(tax)

	paid := decimal.Zero
	for _, p := range in.Payments {
		paid = paid.Add(p.Amount)
	}
	if paid.LessThan(total) {
		return Result{}, &common.AppError{
			Code:       "INSUFFICIENT_PAYMENT",
			Message:    "recorded payments do not cover the sale total",
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    map[string]any{"total": total.String(), "paid": paid.String()},
		}
	}

	s := Sale{
		ID:         uuid.New(),
		Number:     c.Numbers.Next(),
		RegisterID: in.RegisterID,
		OperatorID: in.OperatorID,
		CustomerID: in.CustomerID,
		Status:     StatusPaid,
		Subtotal:   subtotal,
		Tax:        tax,
		Total:      total,
		Paid:       paid,
		Change:     in.Change,
		CreatedAt:  started.UTC(),
	}

	if err := c.write(ctx, s, in.Lines, in.Payments); err != nil {
		if obs.SalesCommittedTotal != nil {
			obs.SalesCommittedTotal.WithLabelValues("error").Inc()
		}
		return Result{}, err
	}

	if obs.SalesCommittedTotal != nil {
		obs.SalesCommittedTotal.WithLabelValues("ok").Inc()
	}
	if obs.SaleCommitLatency != nil {
		obs.SaleCommitLatency.Observe(obs.DurationMillis(now().Sub(started)))
	}

	res := Result{Sale: s, Warnings: c.decrementStock(ctx, s.Number, in.Lines)}
	return res, nil
}

// write runs the transactional part of the protocol. A failed stage rolls
// the transaction back and also deletes by sale id, so partial rows cannot
// survive even outside a working transaction.
func (c *Committer) write(ctx context.Context, s Sale, lines []Line, payments []Payment) error {
	tx, err := c.Store.Begin(ctx)
	if err != nil {
		return &CommitError{Stage: StageHeader, Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.InsertHeader(ctx, s); err != nil {
		return c.fail(ctx, s, StageHeader, err)
	}
	if err := tx.InsertLines(ctx, s.ID, lines); err != nil {
		return c.fail(ctx, s, StageLines, err)
	}
	if err := tx.InsertPayments(ctx, s.ID, payments); err != nil {
		return c.fail(ctx, s, StagePayments, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return c.fail(ctx, s, StageCommit, err)
	}
	return nil
}

func (c *Committer) fail(ctx context.Context, s Sale, stage string, err error) error {
	c.Log.Error().Err(err).
		Str("sale_number", s.Number).
		Str("stage", stage).
		Msg("sale commit failed, removing partial sale")
	if obs.SaleRollbacksTotal != nil {
		obs.SaleRollbacksTotal.WithLabelValues(stage).Inc()
	}
	if delErr := c.Store.DeleteSale(ctx, s.ID); delErr != nil {
		c.Log.Error().Err(delErr).Str("sale_number", s.Number).Msg("partial sale cleanup failed")
	}
	return &CommitError{Stage: stage, Err: err}
}

// decrementStock applies the committed quantities to the catalog. A line
// whose stock ran out between cart and commit is skipped with a warning
// instead of failing the already durable sale.
func (c *Committer) decrementStock(ctx context.Context, number string, lines []Line) []Warning {
	if c.Stock == nil {
		return nil
	}
	var warnings []Warning
	for _, l := range lines {
		ok, err := c.Stock.DecrementStock(ctx, l.ProductID, l.Qty)
		if err == nil && ok {
			continue
		}
		if obs.StockWarningsTotal != nil {
			obs.StockWarningsTotal.Inc()
		}
		w := Warning{
			Code:    "STOCK_NOT_DECREMENTED",
			Message: fmt.Sprintf("stock for %q was not decremented", l.Name),
		}
		warnings = append(warnings, w)
		c.Log.Warn().
			Str("sale_number", number).
			Str("product_id", l.ProductID.String()).
			Int("qty", l.Qty).
			Err(err).
			Msg("stock decrement skipped")
	}
	return warnings
}

func validateInput(in CommitInput) error {
	if in.RegisterID == "" {
		return common.NewAppError("VALIDATION", "register id is required", http.StatusBadRequest, nil)
	}
	if len(in.Lines) == 0 {
		return common.NewAppError("VALIDATION", "sale has no lines", http.StatusBadRequest, nil)
	}
	for _, l := range in.Lines {
		if l.Qty <= 0 {
			return common.NewAppError("VALIDATION", "line quantity must be positive", http.StatusBadRequest, nil)
		}
		if l.UnitPrice.IsNegative() || l.TaxRate.IsNegative() {
			return common.NewAppError("VALIDATION", "line amounts must not be negative", http.StatusBadRequest, nil)
		}
	}
	if len(in.Payments) == 0 {
		return common.NewAppError("VALIDATION", "sale has no payments", http.StatusBadRequest, nil)
	}
	for _, p := range in.Payments {
		if p.Amount.IsNegative() {
			return common.NewAppError("VALIDATION", "payment amounts must not be negative", http.StatusBadRequest, nil)
		}
	}
	if in.Change.IsNegative() {
		return common.NewAppError("VALIDATION", "change must not be negative", http.StatusBadRequest, nil)
	}
	return nil
}
