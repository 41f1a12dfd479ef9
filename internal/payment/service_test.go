package payment_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/seekweb/pos-api/internal/common"
	"github.com/seekweb/pos-api/internal/payment"
)

type stubMethodStore struct {
	methods       []payment.Method
	calls         int
	findByCodeHit int
}

func (s *stubMethodStore) ListActive(_ context.Context) ([]payment.Method, error) {
	s.calls++
	return s.methods, nil
}

func (s *stubMethodStore) FindByCode(_ context.Context, code string) (payment.Method, error) {
	s.findByCodeHit++
	for _, m := range s.methods {
		if m.Code == code {
			return m, nil
		}
	}
	return payment.Method{}, common.NewAppError("UNKNOWN_METHOD", "unknown payment method", http.StatusBadRequest, nil)
}

func newPaymentService(t *testing.T) (*payment.Service, *stubMethodStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &stubMethodStore{methods: []payment.Method{
		{ID: uuid.New(), Code: "CASH", Name: "Cash", AllowsChange: true, Active: true},
		{ID: uuid.New(), Code: "CARD", Name: "Debit card", Active: true},
	}}
	svc := &payment.Service{
		Sessions: payment.NewSessionStore(client, time.Hour),
		Methods:  payment.NewMethods(store, client, time.Minute, "CASH"),
	}
	return svc, store
}

func TestTenderFlowAcrossRequests(t *testing.T) {
	svc, _ := newPaymentService(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "reg-1", dec("278.00"))
	require.NoError(t, err)

	st, err := svc.AddTender(ctx, "reg-1", "cash", dec("300.00"), nil)
	require.NoError(t, err)
	require.Equal(t, "22", st.Change.String())
	require.True(t, st.Remaining.IsZero())
	require.Equal(t, payment.StateSettled, st.Collector.State)

	// a fresh load sees the same settled state
	again, err := svc.Get(ctx, "reg-1")
	require.NoError(t, err)
	require.Equal(t, payment.StateSettled, again.Collector.State)
	require.Len(t, again.Collector.Tenders, 1)
}

func TestMethodsCached(t *testing.T) {
	svc, store := newPaymentService(t)
	ctx := context.Background()

	_, err := svc.Methods.List(ctx)
	require.NoError(t, err)
	_, err = svc.Methods.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, store.calls)
}

func TestResolveMissesCacheForNewMethod(t *testing.T) {
	svc, store := newPaymentService(t)
	ctx := context.Background()

	// warm the cached list before the method exists
	_, err := svc.Methods.List(ctx)
	require.NoError(t, err)

	store.methods = append(store.methods, payment.Method{
		ID: uuid.New(), Code: "TRANSFER", Name: "Bank transfer", Active: true,
	})

	method, err := svc.Methods.Resolve(ctx, "transfer")
	require.NoError(t, err)
	require.Equal(t, "TRANSFER", method.Code)
	require.Equal(t, 1, store.findByCodeHit)
}

func TestTenderReferenceSurvivesReload(t *testing.T) {
	svc, _ := newPaymentService(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "reg-1", dec("100"))
	require.NoError(t, err)

	ref := "MCX-0042"
	_, err = svc.AddTender(ctx, "reg-1", "CARD", dec("100"), &ref)
	require.NoError(t, err)

	st, err := svc.Get(ctx, "reg-1")
	require.NoError(t, err)
	require.Len(t, st.Collector.Tenders, 1)
	require.NotNil(t, st.Collector.Tenders[0].Reference)
	require.Equal(t, "MCX-0042", *st.Collector.Tenders[0].Reference)
}

func TestUnknownMethodRejected(t *testing.T) {
	svc, _ := newPaymentService(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "reg-1", dec("100"))
	require.NoError(t, err)

	_, err = svc.AddTender(ctx, "reg-1", "CHECK", dec("100"), nil)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "UNKNOWN_METHOD", appErr.Code)
}

func TestGetWithoutOpenCollection(t *testing.T) {
	svc, _ := newPaymentService(t)

	_, err := svc.Get(context.Background(), "reg-9")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NO_OPEN_PAYMENT", appErr.Code)
}

func TestFinalizePersistsLock(t *testing.T) {
	svc, _ := newPaymentService(t)
	ctx := context.Background()

	_, err := svc.Open(ctx, "reg-1", dec("100"))
	require.NoError(t, err)
	_, err = svc.AddTender(ctx, "reg-1", "CARD", dec("100"), nil)
	require.NoError(t, err)

	c, err := svc.Finalize(ctx, "reg-1")
	require.NoError(t, err)
	require.Equal(t, payment.StateFinalized, c.State)

	_, err = svc.AddTender(ctx, "reg-1", "CASH", dec("10"), nil)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "FINALIZED", appErr.Code)
}
