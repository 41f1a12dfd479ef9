package receipt

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/seekweb/pos-api/internal/money"
	"github.com/seekweb/pos-api/internal/sale"
)

// Renderer turns a committed sale into the plain-text receipt handed to the
// customer. With TaxInclusive set, line prices are printed gross and the tax
// appears as an informational footer instead of a separate charge.
type Renderer struct {
	StoreName    string
	Currency     string
	TaxInclusive bool
}

const width = 40

// Render produces the receipt text for a sale record.
func (r Renderer) Render(record sale.Record) string {
	var b strings.Builder

	name := r.StoreName
	if name == "" {
		name = "POS"
	}
	center(&b, name)
	center(&b, record.Sale.CreatedAt.Format("2006-01-02 15:04:05"))
	center(&b, "Sale "+record.Sale.Number)
	rule(&b)

	for _, l := range record.Lines {
		unit := l.UnitPrice
		if r.TaxInclusive {
			unit = money.Gross(l.UnitPrice, l.TaxRate)
		}
		fmt.Fprintf(&b, "%s\n", l.Name)
		fmt.Fprintf(&b, "  %d x %s%*s\n", l.Qty, r.amount(unit),
			width-4-len(fmt.Sprintf("%d x %s", l.Qty, r.amount(unit))), r.amount(l.Total))
	}
	rule(&b)

	if r.TaxInclusive {
		row(&b, "TOTAL", r.amount(record.Sale.Total))
		row(&b, "Included tax", r.amount(record.Sale.Tax))
	} else {
		row(&b, "Subtotal", r.amount(record.Sale.Subtotal))
		row(&b, "Tax", r.amount(record.Sale.Tax))
		row(&b, "TOTAL", r.amount(record.Sale.Total))
	}
	rule(&b)

	for _, p := range record.Payments {
		row(&b, p.MethodCode, r.amount(p.Amount))
	}
	if record.Sale.Change.IsPositive() {
		row(&b, "Change", r.amount(record.Sale.Change))
	}
	rule(&b)
	center(&b, "Thank you for your purchase")

	return b.String()
}

func (r Renderer) amount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if r.Currency == "" {
		return s
	}
	return s + " " + r.Currency
}

func center(b *strings.Builder, s string) {
	pad := (width - len(s)) / 2
	if pad < 0 {
		pad = 0
	}
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(s)
	b.WriteByte('\n')
}

func row(b *strings.Builder, label, value string) {
	pad := width - len(label) - len(value)
	if pad < 1 {
		pad = 1
	}
	b.WriteString(label)
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(value)
	b.WriteByte('\n')
}

func rule(b *strings.Builder) {
	b.WriteString(strings.Repeat("-", width))
	b.WriteByte('\n')
}
