package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/seekweb/pos-api/internal/cart"
	"github.com/seekweb/pos-api/internal/catalog"
	"github.com/seekweb/pos-api/internal/common"
)

type stubCatalog struct {
	products map[string]catalog.Product
	// liveStock overrides the snapshot stock for CheckStock, mimicking a
	// cached lookup that has gone stale against the shelf.
	liveStock map[uuid.UUID]int
}

func (s *stubCatalog) Lookup(_ context.Context, code string) (catalog.Product, error) {
	p, ok := s.products[code]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (s *stubCatalog) CheckStock(_ context.Context, id uuid.UUID, qty int) (bool, error) {
	if live, ok := s.liveStock[id]; ok {
		return live >= qty, nil
	}
	for _, p := range s.products {
		if p.ID == id {
			return p.Stock >= qty, nil
		}
	}
	return false, nil
}

type stubCustomers struct {
	known map[uuid.UUID]bool
}

func (s *stubCustomers) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return s.known[id], nil
}

func product(name, barcode, price, rate string, stock int) catalog.Product {
	return catalog.Product{
		ID:        uuid.New(),
		Name:      name,
		Barcode:   &barcode,
		SalePrice: decimal.RequireFromString(price),
		TaxRate:   decimal.RequireFromString(rate),
		Stock:     stock,
		Active:    true,
	}
}

func newService(t *testing.T, products ...catalog.Product) *cart.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	byCode := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byCode[*p.Barcode] = p
	}
	return &cart.Service{
		Sessions:  cart.NewSessionStore(client, time.Hour),
		Products:  &stubCatalog{products: byCode},
		Customers: &stubCustomers{known: map[uuid.UUID]bool{}},
	}
}

func TestAddComputesTotals(t *testing.T) {
	coffee := product("Coffee", "100", "100.00", "14", 10)
	sugar := product("Sugar", "200", "50.00", "0", 10)
	svc := newService(t, coffee, sugar)
	ctx := context.Background()

	_, err := svc.Add(ctx, "reg-1", "100", 2)
	require.NoError(t, err)
	view, err := svc.Add(ctx, "reg-1", "200", 1)
	require.NoError(t, err)

	require.Equal(t, "250", view.Totals.Subtotal.String())
	require.Equal(t, "28", view.Totals.Tax.String())
	require.Equal(t, "278", view.Totals.Total.String())
	require.Equal(t, 3, view.Totals.Items)
}

func TestAddMergesLines(t *testing.T) {
	coffee := product("Coffee", "100", "100.00", "14", 10)
	svc := newService(t, coffee)
	ctx := context.Background()

	_, err := svc.Add(ctx, "reg-1", "100", 1)
	require.NoError(t, err)
	view, err := svc.Add(ctx, "reg-1", "100", 2)
	require.NoError(t, err)

	require.Len(t, view.Cart.Lines, 1)
	require.Equal(t, 3, view.Cart.Lines[0].Qty)
}

func TestAddRejectsMergedOvershoot(t *testing.T) {
	coffee := product("Coffee", "100", "100.00", "14", 3)
	svc := newService(t, coffee)
	ctx := context.Background()

	_, err := svc.Add(ctx, "reg-1", "100", 2)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "reg-1", "100", 2)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)

	// the failed add must not dirty the stored cart
	view, err := svc.Get(ctx, "reg-1")
	require.NoError(t, err)
	require.Equal(t, 2, view.Cart.Lines[0].Qty)
}

func TestAddRejectsStaleSnapshotStock(t *testing.T) {
	coffee := product("Coffee", "100", "100.00", "14", 10)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	// the snapshot says ten on hand, but the shelf is down to one
	svc := &cart.Service{
		Sessions: cart.NewSessionStore(client, time.Hour),
		Products: &stubCatalog{
			products:  map[string]catalog.Product{"100": coffee},
			liveStock: map[uuid.UUID]int{coffee.ID: 1},
		},
		Customers: &stubCustomers{known: map[uuid.UUID]bool{}},
	}
	ctx := context.Background()

	_, err := svc.Add(ctx, "reg-1", "100", 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "reg-1", "100", 1)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	require.Equal(t, 2, details["requested"])
}

func TestTotalsIdempotent(t *testing.T) {
	coffee := product("Coffee", "100", "100.00", "14", 10)
	svc := newService(t, coffee)
	ctx := context.Background()

	_, err := svc.Add(ctx, "reg-1", "100", 2)
	require.NoError(t, err)

	first, err := svc.Get(ctx, "reg-1")
	require.NoError(t, err)
	second, err := svc.Get(ctx, "reg-1")
	require.NoError(t, err)
	require.True(t, first.Totals.Total.Equal(second.Totals.Total))
	require.True(t, first.Totals.Tax.Equal(second.Totals.Tax))
}

func TestRemoveLine(t *testing.T) {
	coffee := product("Coffee", "100", "100.00", "14", 10)
	sugar := product("Sugar", "200", "50.00", "0", 10)
	svc := newService(t, coffee, sugar)
	ctx := context.Background()

	_, err := svc.Add(ctx, "reg-1", "100", 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "reg-1", "200", 1)
	require.NoError(t, err)

	view, err := svc.Remove(ctx, "reg-1", coffee.ID)
	require.NoError(t, err)
	require.Len(t, view.Cart.Lines, 1)
	require.Equal(t, sugar.ID, view.Cart.Lines[0].ProductID)
}

func TestAttachUnknownCustomer(t *testing.T) {
	svc := newService(t)

	_, err := svc.AttachCustomer(context.Background(), "reg-1", uuid.New())
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CUSTOMER_NOT_FOUND", appErr.Code)
}

func TestCartsIsolatedPerRegister(t *testing.T) {
	coffee := product("Coffee", "100", "100.00", "14", 10)
	svc := newService(t, coffee)
	ctx := context.Background()

	_, err := svc.Add(ctx, "reg-1", "100", 1)
	require.NoError(t, err)

	view, err := svc.Get(ctx, "reg-2")
	require.NoError(t, err)
	require.True(t, view.Cart.Empty())
}
