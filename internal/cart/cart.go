package cart

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/seekweb/pos-api/internal/common"
	"github.com/seekweb/pos-api/internal/money"
)

// Line is a cart entry. UnitPrice and TaxRate are snapshots taken when the
// line was first added; later catalog edits never change an open cart.
type Line struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Barcode   *string         `json:"barcode,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	Qty       int             `json:"qty"`
}

// Subtotal is the net amount of the line.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Tax is the tax amount of the line.
func (l Line) Tax() decimal.Decimal {
	return money.LineTax(l.UnitPrice, l.Qty, l.TaxRate)
}

// Total is the gross amount of the line.
func (l Line) Total() decimal.Decimal {
	return l.Subtotal().Add(l.Tax())
}

// Cart holds the open sale of one register. Registers are single-writer so
// the cart itself needs no locking.
type Cart struct {
	RegisterID string     `json:"registerId"`
	CustomerID *uuid.UUID `json:"customerId,omitempty"`
	Lines      []Line     `json:"lines"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// New returns an empty cart for a register.
func New(registerID string) *Cart {
	return &Cart{RegisterID: registerID}
}

// Add merges qty units of a product into the cart. The available stock is
// checked against the merged quantity, so scanning the same item repeatedly
// cannot overshoot what the shelf holds. The first add snapshots price and
// tax rate; merges keep the original snapshot.
func (c *Cart) Add(productID uuid.UUID, name string, barcode *string, unitPrice, taxRate decimal.Decimal, qty, stock int) error {
	if qty <= 0 {
		return common.NewAppError("VALIDATION", "quantity must be positive", http.StatusBadRequest, nil)
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			if c.Lines[i].Qty+qty > stock {
				return insufficientStock(name, stock, c.Lines[i].Qty+qty)
			}
			c.Lines[i].Qty += qty
			return nil
		}
	}
	if qty > stock {
		return insufficientStock(name, stock, qty)
	}
	c.Lines = append(c.Lines, Line{
		ProductID: productID,
		Name:      name,
		Barcode:   barcode,
		UnitPrice: unitPrice,
		TaxRate:   taxRate,
		Qty:       qty,
	})
	return nil
}

// Qty returns the quantity currently held for a product, zero if absent.
func (c *Cart) Qty(productID uuid.UUID) int {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l.Qty
		}
	}
	return 0
}

// Remove drops the line for a product. Removing an absent product is a no-op.
func (c *Cart) Remove(productID uuid.UUID) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart and detaches the customer.
func (c *Cart) Clear() {
	c.Lines = nil
	c.CustomerID = nil
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Totals summarises a cart. All amounts derive from the line snapshots, so
// recomputing is idempotent for an unchanged cart.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Items    int             `json:"items"`
}

// Totals computes the cart summary from the line snapshots.
func (c *Cart) Totals() Totals {
	t := Totals{Subtotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
	for _, l := range c.Lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal())
		t.Tax = t.Tax.Add(l.Tax())
		t.Items += l.Qty
	}
	t.Total = t.Subtotal.Add(t.Tax)
	return t
}

func insufficientStock(name string, stock, wanted int) error {
	return &common.AppError{
		Code:       "INSUFFICIENT_STOCK",
		Message:    fmt.Sprintf("not enough stock for %q", name),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"available": stock, "requested": wanted},
	}
}
