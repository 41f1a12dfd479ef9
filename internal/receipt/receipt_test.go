package receipt_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/seekweb/pos-api/internal/queue"
	"github.com/seekweb/pos-api/internal/receipt"
	"github.com/seekweb/pos-api/internal/sale"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type stubSales struct {
	records map[string]sale.Record
	calls   int
}

func (s *stubSales) FindByNumber(_ context.Context, number string) (sale.Record, error) {
	s.calls++
	r, ok := s.records[number]
	if !ok {
		return sale.Record{}, sale.ErrNotFound
	}
	return r, nil
}

func sampleRecord() sale.Record {
	return sale.Record{
		Sale: sale.Sale{
			ID:        uuid.New(),
			Number:    "V20260901153005",
			Status:    sale.StatusPaid,
			Subtotal:  dec("250.00"),
			Tax:       dec("28.00"),
			Total:     dec("278.00"),
			Paid:      dec("278.00"),
			Change:    dec("22.00"),
			CreatedAt: time.Date(2026, 9, 1, 15, 30, 5, 0, time.UTC),
		},
		Lines: []sale.Line{
			{Name: "Coffee", UnitPrice: dec("100.00"), TaxRate: dec("14"), Qty: 2,
				Subtotal: dec("200.00"), Tax: dec("28.00"), Total: dec("228.00")},
			{Name: "Sugar", UnitPrice: dec("50.00"), TaxRate: dec("0"), Qty: 1,
				Subtotal: dec("50.00"), Tax: dec("0"), Total: dec("50.00")},
		},
		Payments: []sale.Payment{
			{MethodCode: "CASH", Amount: dec("278.00"), Change: dec("22.00")},
		},
	}
}

func TestRenderContainsAmounts(t *testing.T) {
	r := receipt.Renderer{StoreName: "Seekweb Market", Currency: "AOA"}
	text := r.Render(sampleRecord())

	require.Contains(t, text, "Seekweb Market")
	require.Contains(t, text, "V20260901153005")
	require.Contains(t, text, "Coffee")
	require.Contains(t, text, "250.00 AOA")
	require.Contains(t, text, "28.00 AOA")
	require.Contains(t, text, "278.00 AOA")
	require.Contains(t, text, "22.00 AOA")
	require.Contains(t, text, "CASH")
}

func TestRenderTaxInclusive(t *testing.T) {
	r := receipt.Renderer{StoreName: "Seekweb Market", Currency: "AOA", TaxInclusive: true}
	text := r.Render(sampleRecord())

	// line prices print gross, tax becomes an informational footer
	require.Contains(t, text, "114.00 AOA")
	require.Contains(t, text, "Included tax")
	require.Contains(t, text, "28.00 AOA")
	require.NotContains(t, text, "Subtotal")
	require.Contains(t, text, "278.00 AOA")
}

func TestRenderOmitsZeroChange(t *testing.T) {
	record := sampleRecord()
	record.Sale.Change = decimal.Zero
	record.Payments[0].Change = decimal.Zero

	text := receipt.Renderer{}.Render(record)
	require.NotContains(t, text, "Change")
}

func newService(t *testing.T, sales *stubSales) *receipt.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &receipt.Service{
		Sales:    sales,
		Renderer: receipt.Renderer{StoreName: "Seekweb Market"},
		Client:   client,
		Log:      zerolog.Nop(),
	}
}

func TestGetCachesRenderedReceipt(t *testing.T) {
	sales := &stubSales{records: map[string]sale.Record{"V20260901153005": sampleRecord()}}
	svc := newService(t, sales)
	ctx := context.Background()

	first, err := svc.Get(ctx, "V20260901153005")
	require.NoError(t, err)
	second, err := svc.Get(ctx, "V20260901153005")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, sales.calls)
}

func TestTaskPreRenders(t *testing.T) {
	sales := &stubSales{records: map[string]sale.Record{"V20260901153005": sampleRecord()}}
	svc := newService(t, sales)
	ctx := context.Background()

	err := svc.HandleTask(ctx, queue.Task{Kind: "receipt.generate", Payload: []byte("V20260901153005")})
	require.NoError(t, err)
	require.Equal(t, 1, sales.calls)

	// the endpoint now serves from cache
	text, err := svc.Get(ctx, "V20260901153005")
	require.NoError(t, err)
	require.True(t, strings.Contains(text, "V20260901153005"))
	require.Equal(t, 1, sales.calls)
}

func TestTaskUnknownSaleFails(t *testing.T) {
	svc := newService(t, &stubSales{records: map[string]sale.Record{}})

	err := svc.HandleTask(context.Background(), queue.Task{Kind: "receipt.generate", Payload: []byte("V404")})
	require.Error(t, err)
}
