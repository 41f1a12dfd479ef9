package sale_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/seekweb/pos-api/internal/sale"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memStore keeps committed sales in memory and can be told to fail a stage.
type memStore struct {
	mu       sync.Mutex
	sales    map[uuid.UUID]sale.Record
	byNumber map[string]uuid.UUID
	failAt   string
	deletes  int
}

func newMemStore() *memStore {
	return &memStore{
		sales:    map[uuid.UUID]sale.Record{},
		byNumber: map[string]uuid.UUID{},
	}
}

type memTx struct {
	store     *memStore
	record    sale.Record
	committed bool
}

func (s *memStore) Begin(_ context.Context) (sale.Tx, error) {
	return &memTx{store: s}, nil
}

func (t *memTx) InsertHeader(_ context.Context, s sale.Sale) error {
	if t.store.failAt == sale.StageHeader {
		return errors.New("header insert refused")
	}
	t.record.Sale = s
	return nil
}

func (t *memTx) InsertLines(_ context.Context, _ uuid.UUID, lines []sale.Line) error {
	if t.store.failAt == sale.StageLines {
		return errors.New("line insert refused")
	}
	t.record.Lines = lines
	return nil
}

func (t *memTx) InsertPayments(_ context.Context, _ uuid.UUID, payments []sale.Payment) error {
	if t.store.failAt == sale.StagePayments {
		return errors.New("payment insert refused")
	}
	t.record.Payments = payments
	return nil
}

func (t *memTx) Commit(_ context.Context) error {
	if t.store.failAt == sale.StageCommit {
		return errors.New("commit refused")
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.sales[t.record.Sale.ID] = t.record
	t.store.byNumber[t.record.Sale.Number] = t.record.Sale.ID
	t.committed = true
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if !t.committed {
		t.record = sale.Record{}
	}
	return nil
}

func (s *memStore) DeleteSale(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if r, ok := s.sales[id]; ok {
		delete(s.byNumber, r.Sale.Number)
		delete(s.sales, id)
	}
	return nil
}

func (s *memStore) FindByNumber(_ context.Context, number string) (sale.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byNumber[number]
	if !ok {
		return sale.Record{}, sale.ErrNotFound
	}
	return s.sales[id], nil
}

func (s *memStore) ListRecent(_ context.Context, _ int) ([]sale.Sale, error) {
	return nil, nil
}

// memStock is a concurrency-safe in-memory stock ledger with the same
// conditional decrement the database performs.
type memStock struct {
	mu    sync.Mutex
	stock map[uuid.UUID]int
}

func (m *memStock) DecrementStock(_ context.Context, id uuid.UUID, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stock[id] < qty {
		return false, nil
	}
	m.stock[id] -= qty
	return true, nil
}

func newCommitter(store sale.Store, stock *memStock) *sale.Committer {
	c := &sale.Committer{
		Store:   store,
		Numbers: &sale.NumberGenerator{},
		Log:     zerolog.Nop(),
	}
	if stock != nil {
		c.Stock = stock
	}
	return c
}

func referenceInput() sale.CommitInput {
	coffee := uuid.New()
	sugar := uuid.New()
	method := uuid.New()
	return sale.CommitInput{
		RegisterID: "reg-1",
		Lines: []sale.Line{
			{ProductID: coffee, Name: "Coffee", UnitPrice: dec("100.00"), TaxRate: dec("14"), Qty: 2},
			{ProductID: sugar, Name: "Sugar", UnitPrice: dec("50.00"), TaxRate: dec("0"), Qty: 1},
		},
		Payments: []sale.Payment{
			{MethodID: method, MethodCode: "CASH", Amount: dec("278.00"), Change: dec("22.00")},
		},
		Change: dec("22.00"),
	}
}

func TestCommitRecomputesTotals(t *testing.T) {
	store := newMemStore()
	c := newCommitter(store, nil)

	res, err := c.Commit(context.Background(), referenceInput())
	require.NoError(t, err)

	require.Equal(t, "250", res.Sale.Subtotal.String())
	require.Equal(t, "28", res.Sale.Tax.String())
	require.Equal(t, "278", res.Sale.Total.String())
	require.Equal(t, "278", res.Sale.Paid.String())
	require.Equal(t, "22", res.Sale.Change.String())
	require.Equal(t, sale.StatusPaid, res.Sale.Status)
	require.Empty(t, res.Warnings)

	record, err := store.FindByNumber(context.Background(), res.Sale.Number)
	require.NoError(t, err)
	require.Len(t, record.Lines, 2)
	require.Len(t, record.Payments, 1)
}

func TestCommitRejectsUnderpayment(t *testing.T) {
	store := newMemStore()
	c := newCommitter(store, nil)

	in := referenceInput()
	in.Payments = []sale.Payment{{MethodID: uuid.New(), MethodCode: "CARD", Amount: dec("200.00")}}

	_, err := c.Commit(context.Background(), in)
	require.Error(t, err)
	require.Empty(t, store.sales)
}

func TestRollbackLeavesNoSale(t *testing.T) {
	for _, stage := range []string{sale.StageHeader, sale.StageLines, sale.StagePayments, sale.StageCommit} {
		t.Run(stage, func(t *testing.T) {
			store := newMemStore()
			store.failAt = stage
			c := newCommitter(store, nil)

			_, err := c.Commit(context.Background(), referenceInput())

			var commitErr *sale.CommitError
			require.ErrorAs(t, err, &commitErr)
			require.Equal(t, stage, commitErr.Stage)
			require.Empty(t, store.sales, "no sale may survive a failed %s stage", stage)
			require.Equal(t, 1, store.deletes)
		})
	}
}

func TestCommitDecrementsStock(t *testing.T) {
	store := newMemStore()
	in := referenceInput()
	stock := &memStock{stock: map[uuid.UUID]int{
		in.Lines[0].ProductID: 5,
		in.Lines[1].ProductID: 5,
	}}
	c := newCommitter(store, stock)

	res, err := c.Commit(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	require.Equal(t, 3, stock.stock[in.Lines[0].ProductID])
	require.Equal(t, 4, stock.stock[in.Lines[1].ProductID])
}

func TestStockShortfallWarnsWithoutFailing(t *testing.T) {
	store := newMemStore()
	in := referenceInput()
	stock := &memStock{stock: map[uuid.UUID]int{
		in.Lines[0].ProductID: 1, // less than the committed qty of 2
		in.Lines[1].ProductID: 5,
	}}
	c := newCommitter(store, stock)

	res, err := c.Commit(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, "STOCK_NOT_DECREMENTED", res.Warnings[0].Code)
	require.Equal(t, 1, stock.stock[in.Lines[0].ProductID], "short stock is left untouched")
	require.Equal(t, 4, stock.stock[in.Lines[1].ProductID])

	_, err = store.FindByNumber(context.Background(), res.Sale.Number)
	require.NoError(t, err, "the sale stays committed despite the warning")
}

func TestConcurrentSalesOneWarning(t *testing.T) {
	productID := uuid.New()
	stock := &memStock{stock: map[uuid.UUID]int{productID: 1}}
	store := newMemStore()
	c := newCommitter(store, stock)

	input := func() sale.CommitInput {
		return sale.CommitInput{
			RegisterID: "reg-1",
			Lines: []sale.Line{
				{ProductID: productID, Name: "Last unit", UnitPrice: dec("10.00"), TaxRate: dec("0"), Qty: 1},
			},
			Payments: []sale.Payment{
				{MethodID: uuid.New(), MethodCode: "CASH", Amount: dec("10.00")},
			},
			Change: decimal.Zero,
		}
	}

	var wg sync.WaitGroup
	results := make([]sale.Result, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Commit(context.Background(), input())
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Len(t, store.sales, 2, "both sales commit")

	warned := 0
	for _, r := range results {
		warned += len(r.Warnings)
	}
	require.Equal(t, 1, warned, "exactly one sale hits the stock shortfall")
	require.Equal(t, 0, stock.stock[productID])
}

func TestNumberGeneratorSuffixesSameSecond(t *testing.T) {
	fixed := time.Date(2026, 9, 1, 15, 30, 5, 0, time.UTC)
	g := &sale.NumberGenerator{Now: func() time.Time { return fixed }}

	first := g.Next()
	second := g.Next()
	third := g.Next()

	require.Equal(t, "V20260901153005", first)
	require.Equal(t, "V20260901153005-1", second)
	require.Equal(t, "V20260901153005-2", third)
}

func TestNumberGeneratorAdvances(t *testing.T) {
	current := time.Date(2026, 9, 1, 15, 30, 5, 0, time.UTC)
	g := &sale.NumberGenerator{Now: func() time.Time { return current }}

	first := g.Next()
	current = current.Add(time.Second)
	second := g.Next()

	require.Equal(t, "V20260901153005", first)
	require.Equal(t, "V20260901153006", second)
}

func TestCommitValidation(t *testing.T) {
	c := newCommitter(newMemStore(), nil)
	ctx := context.Background()

	in := referenceInput()
	in.Lines = nil
	_, err := c.Commit(ctx, in)
	require.Error(t, err)

	in = referenceInput()
	in.Lines[0].Qty = 0
	_, err = c.Commit(ctx, in)
	require.Error(t, err)

	in = referenceInput()
	in.Lines[0].UnitPrice = dec("-1")
	_, err = c.Commit(ctx, in)
	require.Error(t, err)

	in = referenceInput()
	in.Payments = nil
	_, err = c.Commit(ctx, in)
	require.Error(t, err)
}
