package payment

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/seekweb/pos-api/internal/common"
	"github.com/seekweb/pos-api/internal/money"
)

// State tracks the lifecycle of a payment collection.
type State string

const (
	StateOpen      State = "open"
	StateSettled   State = "settled"
	StateFinalized State = "finalized"
	StateCancelled State = "cancelled"
)

// Tender is one recorded payment. For cash the recorded Amount is what the
// sale keeps and Change is what goes back to the customer. Tendered preserves
// what the customer actually handed over. Reference holds the slip or
// transaction code the operator typed for card and transfer tenders.
type Tender struct {
	ID         uuid.UUID       `json:"id"`
	MethodID   uuid.UUID       `json:"methodId"`
	MethodCode string          `json:"methodCode"`
	MethodName string          `json:"methodName"`
	Tendered   decimal.Decimal `json:"tendered"`
	Amount     decimal.Decimal `json:"amount"`
	Change     decimal.Decimal `json:"change"`
	Reference  *string         `json:"reference,omitempty"`
	Cash       bool            `json:"cash"`
}

// Collector accumulates tenders against a fixed amount due. It moves from
// open to settled when the due amount is covered, and only a settled
// collector can be finalized. Mutations after finalize are rejected.
type Collector struct {
	RegisterID string          `json:"registerId"`
	Due        decimal.Decimal `json:"due"`
	Tenders    []Tender        `json:"tenders"`
	State      State           `json:"state"`
}

// NewCollector opens a collection for the given amount due.
func NewCollector(registerID string, due decimal.Decimal) (*Collector, error) {
	if due.IsNegative() {
		return nil, common.NewAppError("VALIDATION", "amount due must not be negative", http.StatusBadRequest, nil)
	}
	c := &Collector{RegisterID: registerID, Due: due, State: StateOpen}
	c.reconcile()
	return c, nil
}

// Paid is the sum of recorded tender amounts. Change already clamped out of
// cash tenders does not count towards it.
func (c *Collector) Paid() decimal.Decimal {
	paid := decimal.Zero
	for _, t := range c.Tenders {
		paid = paid.Add(t.Amount)
	}
	return paid
}

// Remaining is the amount still owed, never negative.
func (c *Collector) Remaining() decimal.Decimal {
	r := c.Due.Sub(c.Paid())
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Change is the total change owed to the customer across cash tenders.
func (c *Collector) Change() decimal.Decimal {
	change := decimal.Zero
	for _, t := range c.Tenders {
		change = change.Add(t.Change)
	}
	return change
}

// AddTender records a payment. Cash over the remaining balance is clamped
// and the excess becomes change. Any other method must not exceed the
// remaining balance. The reference is optional and kept verbatim.
func (c *Collector) AddTender(method Method, tendered decimal.Decimal, reference *string, cash bool) (Tender, error) {
	if err := c.mutable(); err != nil {
		return Tender{}, err
	}
	if !tendered.IsPositive() {
		return Tender{}, common.NewAppError("VALIDATION", "tender amount must be positive", http.StatusBadRequest, nil)
	}
	remaining := c.Remaining()
	if remaining.IsZero() {
		return Tender{}, common.NewAppError("ALREADY_SETTLED", "sale is already fully paid", http.StatusConflict, nil)
	}

	amount := tendered
	change := decimal.Zero
	if cash {
		if tendered.GreaterThan(remaining) {
			amount = remaining
			change = money.Change(tendered, remaining)
		}
	} else if tendered.GreaterThan(remaining) {
		return Tender{}, &common.AppError{
			Code:       "OVERPAYMENT",
			Message:    "tender exceeds the remaining balance",
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    map[string]any{"remaining": remaining.String(), "tendered": tendered.String()},
		}
	}

	t := Tender{
		ID:         uuid.New(),
		MethodID:   method.ID,
		MethodCode: method.Code,
		MethodName: method.Name,
		Tendered:   tendered,
		Amount:     amount,
		Change:     change,
		Reference:  normalizeReference(reference),
		Cash:       cash,
	}
	c.Tenders = append(c.Tenders, t)
	c.reconcile()
	return t, nil
}

// RemoveTender voids a recorded tender and recomputes the state.
func (c *Collector) RemoveTender(id uuid.UUID) error {
	if err := c.mutable(); err != nil {
		return err
	}
	for i := range c.Tenders {
		if c.Tenders[i].ID == id {
			c.Tenders = append(c.Tenders[:i], c.Tenders[i+1:]...)
			c.reconcile()
			return nil
		}
	}
	return common.NewAppError("NOT_FOUND", "tender not found", http.StatusNotFound, nil)
}

// Finalize locks the collector for commit. It fails while the due amount is
// not fully covered.
func (c *Collector) Finalize() error {
	if c.State == StateFinalized {
		return nil
	}
	if c.State == StateCancelled {
		return common.NewAppError("CANCELLED", "payment collection was cancelled", http.StatusConflict, nil)
	}
	if c.Remaining().IsPositive() {
		return &common.AppError{
			Code:       "INSUFFICIENT_PAYMENT",
			Message:    "sale is not fully paid",
			HTTPStatus: http.StatusUnprocessableEntity,
			Details:    map[string]any{"remaining": c.Remaining().String()},
		}
	}
	c.State = StateFinalized
	return nil
}

// Cancel abandons the collection.
func (c *Collector) Cancel() error {
	if c.State == StateFinalized {
		return common.NewAppError("FINALIZED", "payment collection is already finalized", http.StatusConflict, nil)
	}
	c.State = StateCancelled
	return nil
}

func normalizeReference(reference *string) *string {
	if reference == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reference)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (c *Collector) mutable() error {
	switch c.State {
	case StateFinalized:
		return common.NewAppError("FINALIZED", "payment collection is already finalized", http.StatusConflict, nil)
	case StateCancelled:
		return common.NewAppError("CANCELLED", "payment collection was cancelled", http.StatusConflict, nil)
	}
	return nil
}

// reconcile derives open/settled from the recorded tenders. Removing a
// tender can move a settled collector back to open.
func (c *Collector) reconcile() {
	if c.State == StateFinalized || c.State == StateCancelled {
		return
	}
	if c.Remaining().IsZero() && c.Due.IsPositive() {
		c.State = StateSettled
		return
	}
	if c.Due.IsZero() {
		c.State = StateSettled
		return
	}
	c.State = StateOpen
}
