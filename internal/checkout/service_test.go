package checkout_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/seekweb/pos-api/internal/cart"
	"github.com/seekweb/pos-api/internal/catalog"
	"github.com/seekweb/pos-api/internal/checkout"
	"github.com/seekweb/pos-api/internal/common"
	"github.com/seekweb/pos-api/internal/events"
	"github.com/seekweb/pos-api/internal/payment"
	"github.com/seekweb/pos-api/internal/queue"
	"github.com/seekweb/pos-api/internal/sale"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type stubCatalog struct {
	products map[string]catalog.Product
}

func (s *stubCatalog) Lookup(_ context.Context, code string) (catalog.Product, error) {
	p, ok := s.products[code]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (s *stubCatalog) CheckStock(_ context.Context, id uuid.UUID, qty int) (bool, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p.Stock >= qty, nil
		}
	}
	return false, nil
}

type stubMethods struct {
	methods []payment.Method
}

func (s *stubMethods) ListActive(_ context.Context) ([]payment.Method, error) {
	return s.methods, nil
}

func (s *stubMethods) FindByCode(_ context.Context, code string) (payment.Method, error) {
	for _, m := range s.methods {
		if m.Code == code {
			return m, nil
		}
	}
	return payment.Method{}, common.NewAppError("UNKNOWN_METHOD", "unknown payment method", http.StatusBadRequest, nil)
}

type memSaleStore struct {
	records map[string]sale.Record
}

type memSaleTx struct {
	store  *memSaleStore
	record sale.Record
}

func (s *memSaleStore) Begin(_ context.Context) (sale.Tx, error) {
	return &memSaleTx{store: s}, nil
}

func (t *memSaleTx) InsertHeader(_ context.Context, s sale.Sale) error { t.record.Sale = s; return nil }
func (t *memSaleTx) InsertLines(_ context.Context, _ uuid.UUID, lines []sale.Line) error {
	t.record.Lines = lines
	return nil
}
func (t *memSaleTx) InsertPayments(_ context.Context, _ uuid.UUID, payments []sale.Payment) error {
	t.record.Payments = payments
	return nil
}
func (t *memSaleTx) Commit(_ context.Context) error {
	t.store.records[t.record.Sale.Number] = t.record
	return nil
}
func (t *memSaleTx) Rollback(_ context.Context) error { return nil }

func (s *memSaleStore) DeleteSale(_ context.Context, id uuid.UUID) error {
	for number, r := range s.records {
		if r.Sale.ID == id {
			delete(s.records, number)
		}
	}
	return nil
}

func (s *memSaleStore) FindByNumber(_ context.Context, number string) (sale.Record, error) {
	r, ok := s.records[number]
	if !ok {
		return sale.Record{}, sale.ErrNotFound
	}
	return r, nil
}

func (s *memSaleStore) ListRecent(_ context.Context, _ int) ([]sale.Sale, error) { return nil, nil }

type memStock struct {
	stock map[uuid.UUID]int
}

func (m *memStock) DecrementStock(_ context.Context, id uuid.UUID, qty int) (bool, error) {
	if m.stock[id] < qty {
		return false, nil
	}
	m.stock[id] -= qty
	return true, nil
}

type memCustomers struct {
	known  map[uuid.UUID]bool
	points map[uuid.UUID]int
}

func (m *memCustomers) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return m.known[id], nil
}

func (m *memCustomers) AddPoints(_ context.Context, id uuid.UUID, points int) error {
	m.points[id] += points
	return nil
}

type memEventStore struct {
	events []events.Event
}

func (m *memEventStore) InsertDomainEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	ev := events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}
	m.events = append(m.events, ev)
	return ev, nil
}

type memEnqueuer struct {
	tasks []queue.Task
}

func (m *memEnqueuer) Enqueue(_ context.Context, t queue.Task) error {
	m.tasks = append(m.tasks, t)
	return nil
}

type fixture struct {
	svc       *checkout.Service
	carts     *cart.Service
	saleStore *memSaleStore
	stock     *memStock
	customers *memCustomers
	eventLog  *memEventStore
	enqueuer  *memEnqueuer
	coffee    catalog.Product
	sugar     catalog.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	coffeeCode, sugarCode := "100", "200"
	coffee := catalog.Product{ID: uuid.New(), Name: "Coffee", Barcode: &coffeeCode,
		SalePrice: dec("100.00"), TaxRate: dec("14"), Stock: 10, Active: true}
	sugar := catalog.Product{ID: uuid.New(), Name: "Sugar", Barcode: &sugarCode,
		SalePrice: dec("50.00"), TaxRate: dec("0"), Stock: 10, Active: true}

	customers := &memCustomers{known: map[uuid.UUID]bool{}, points: map[uuid.UUID]int{}}
	carts := &cart.Service{
		Sessions:  cart.NewSessionStore(client, time.Hour),
		Products:  &stubCatalog{products: map[string]catalog.Product{coffeeCode: coffee, sugarCode: sugar}},
		Customers: customers,
	}
	payments := &payment.Service{
		Sessions: payment.NewSessionStore(client, time.Hour),
		Methods: payment.NewMethods(&stubMethods{methods: []payment.Method{
			{ID: uuid.New(), Code: "CASH", Name: "Cash", AllowsChange: true, Active: true},
			{ID: uuid.New(), Code: "CARD", Name: "Debit card", Active: true},
		}}, client, time.Minute, "CASH"),
	}
	saleStore := &memSaleStore{records: map[string]sale.Record{}}
	stock := &memStock{stock: map[uuid.UUID]int{coffee.ID: 10, sugar.ID: 10}}
	eventLog := &memEventStore{}
	enqueuer := &memEnqueuer{}

	svc := &checkout.Service{
		Carts:    carts,
		Payments: payments,
		Committer: &sale.Committer{
			Store:   saleStore,
			Stock:   stock,
			Numbers: &sale.NumberGenerator{},
			Log:     zerolog.Nop(),
		},
		Customers:       customers,
		Events:          &events.Bus{Store: eventLog},
		Tasks:           enqueuer,
		ReceiptTaskKind: "receipt.generate",
		Log:             zerolog.Nop(),
	}
	return &fixture{
		svc: svc, carts: carts, saleStore: saleStore, stock: stock,
		customers: customers, eventLog: eventLog, enqueuer: enqueuer,
		coffee: coffee, sugar: sugar,
	}
}

func TestCheckoutEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, "reg-1", "100", 2)
	require.NoError(t, err)
	_, err = f.carts.Add(ctx, "reg-1", "200", 1)
	require.NoError(t, err)

	st, err := f.svc.Start(ctx, "reg-1")
	require.NoError(t, err)
	require.Equal(t, "278", st.Collector.Due.String())

	st, err = f.svc.Payments.AddTender(ctx, "reg-1", "CASH", dec("300.00"), nil)
	require.NoError(t, err)
	require.Equal(t, "22", st.Change.String())

	result, err := f.svc.Commit(ctx, "reg-1", nil)
	require.NoError(t, err)
	require.Equal(t, "250", result.Sale.Subtotal.String())
	require.Equal(t, "28", result.Sale.Tax.String())
	require.Equal(t, "278", result.Sale.Total.String())
	require.Equal(t, "22", result.Sale.Change.String())
	require.Empty(t, result.Warnings)

	// sale is durable and readable by number
	record, err := f.saleStore.FindByNumber(ctx, result.Sale.Number)
	require.NoError(t, err)
	require.Len(t, record.Lines, 2)
	require.Len(t, record.Payments, 1)
	require.Equal(t, "278", record.Payments[0].Amount.String())

	// stock was decremented
	require.Equal(t, 8, f.stock.stock[f.coffee.ID])
	require.Equal(t, 9, f.stock.stock[f.sugar.ID])

	// sessions are gone
	view, err := f.carts.Get(ctx, "reg-1")
	require.NoError(t, err)
	require.True(t, view.Cart.Empty())
	_, err = f.svc.Payments.Get(ctx, "reg-1")
	require.Error(t, err)

	// receipt task and committed event went out
	require.Len(t, f.enqueuer.tasks, 1)
	require.Equal(t, result.Sale.Number, string(f.enqueuer.tasks[0].Payload))
	topics := make([]string, 0, len(f.eventLog.events))
	for _, ev := range f.eventLog.events {
		topics = append(topics, ev.Topic)
	}
	require.Contains(t, topics, events.TopicSaleCommitted)
}

func TestCommitRecordsTenderReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, "reg-1", "100", 1)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, "reg-1")
	require.NoError(t, err)

	ref := "MCX-20260901-18"
	_, err = f.svc.Payments.AddTender(ctx, "reg-1", "CARD", dec("114.00"), &ref)
	require.NoError(t, err)

	result, err := f.svc.Commit(ctx, "reg-1", nil)
	require.NoError(t, err)

	record, err := f.saleStore.FindByNumber(ctx, result.Sale.Number)
	require.NoError(t, err)
	require.Len(t, record.Payments, 1)
	require.NotNil(t, record.Payments[0].Reference)
	require.Equal(t, ref, *record.Payments[0].Reference)

	// no pricing path grants discounts yet, so committed lines carry zero
	require.Len(t, record.Lines, 1)
	require.True(t, record.Lines[0].Discount.IsZero())
}

func TestCommitRequiresSettledPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, "reg-1", "100", 1)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, "reg-1")
	require.NoError(t, err)
	_, err = f.svc.Payments.AddTender(ctx, "reg-1", "CARD", dec("50.00"), nil)
	require.NoError(t, err)

	_, err = f.svc.Commit(ctx, "reg-1", nil)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INSUFFICIENT_PAYMENT", appErr.Code)
	require.Empty(t, f.saleStore.records)
}

func TestCommitRejectsChangedCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.Add(ctx, "reg-1", "100", 1)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, "reg-1")
	require.NoError(t, err)
	_, err = f.svc.Payments.AddTender(ctx, "reg-1", "CASH", dec("114.00"), nil)
	require.NoError(t, err)

	// another scan lands after the collection opened
	_, err = f.carts.Add(ctx, "reg-1", "200", 1)
	require.NoError(t, err)

	_, err = f.svc.Commit(ctx, "reg-1", nil)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CART_CHANGED", appErr.Code)
	require.Empty(t, f.saleStore.records)
}

func TestCommitAccruesLoyaltyPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	f.customers.known[customerID] = true

	_, err := f.carts.Add(ctx, "reg-1", "100", 2)
	require.NoError(t, err)
	_, err = f.carts.AttachCustomer(ctx, "reg-1", customerID)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, "reg-1")
	require.NoError(t, err)
	_, err = f.svc.Payments.AddTender(ctx, "reg-1", "CASH", dec("228.00"), nil)
	require.NoError(t, err)

	result, err := f.svc.Commit(ctx, "reg-1", nil)
	require.NoError(t, err)
	require.Equal(t, "228", result.Sale.Total.String())
	require.Equal(t, 2, f.customers.points[customerID])
}

func TestCommitWithUnknownCustomerFailsBeforeWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customerID := uuid.New()
	f.customers.known[customerID] = true

	_, err := f.carts.Add(ctx, "reg-1", "100", 1)
	require.NoError(t, err)
	_, err = f.carts.AttachCustomer(ctx, "reg-1", customerID)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, "reg-1")
	require.NoError(t, err)
	_, err = f.svc.Payments.AddTender(ctx, "reg-1", "CASH", dec("114.00"), nil)
	require.NoError(t, err)

	// customer record disappears between attach and commit
	f.customers.known[customerID] = false

	_, err = f.svc.Commit(ctx, "reg-1", nil)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CUSTOMER_NOT_FOUND", appErr.Code)
	require.Empty(t, f.saleStore.records)
}

func TestStartWithEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Start(context.Background(), "reg-1")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "EMPTY_CART", appErr.Code)
}
