package sale

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusPaid is the only status a committed sale can carry. Sales are
// written once, fully paid, and never updated afterwards.
const StatusPaid = "paid"

// Sale is the committed sale header.
type Sale struct {
	ID         uuid.UUID       `json:"id"`
	Number     string          `json:"number"`
	RegisterID string          `json:"registerId"`
	OperatorID *uuid.UUID      `json:"operatorId,omitempty"`
	CustomerID *uuid.UUID      `json:"customerId,omitempty"`
	Status     string          `json:"status"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	Paid       decimal.Decimal `json:"paid"`
	Change     decimal.Decimal `json:"change"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Line is one committed sale line. Amounts are the snapshots the cart
// carried, denormalised so the sale reads back without touching the catalog.
// Discount is recorded on every line but no pricing path fills it yet, so
// committed sales always carry zero.
type Line struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	Qty       int             `json:"qty"`
	Discount  decimal.Decimal `json:"discount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

// Payment is one committed tender. Reference carries the slip or transaction
// code recorded for card and transfer tenders.
type Payment struct {
	MethodID   uuid.UUID       `json:"methodId"`
	MethodCode string          `json:"methodCode"`
	Amount     decimal.Decimal `json:"amount"`
	Change     decimal.Decimal `json:"change"`
	Reference  *string         `json:"reference,omitempty"`
}

// Record is the full readback aggregate of a committed sale.
type Record struct {
	Sale     Sale      `json:"sale"`
	Lines    []Line    `json:"lines"`
	Payments []Payment `json:"payments"`
}

// NumberGenerator issues human-readable sale numbers of the form
// V20260901153005. Same-second collisions on one process get a numeric
// suffix; across processes the unique index on sales.number is the backstop.
type NumberGenerator struct {
	Now func() time.Time

	mu   sync.Mutex
	last string
	seq  int
}

// Next returns the next sale number.
func (g *NumberGenerator) Next() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	base := "V" + now().UTC().Format("20060102150405")

	g.mu.Lock()
	defer g.mu.Unlock()
	if base == g.last {
		g.seq++
		return fmt.Sprintf("%s-%d", base, g.seq)
	}
	g.last = base
	g.seq = 0
	return base
}
