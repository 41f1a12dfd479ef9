package payment_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/seekweb/pos-api/internal/common"
	"github.com/seekweb/pos-api/internal/payment"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cashMethod() payment.Method {
	return payment.Method{ID: uuid.New(), Code: "CASH", Name: "Cash", AllowsChange: true, Active: true}
}

func cardMethod() payment.Method {
	return payment.Method{ID: uuid.New(), Code: "CARD", Name: "Debit card", Active: true}
}

func TestCashClampedToRemaining(t *testing.T) {
	c, err := payment.NewCollector("reg-1", dec("1200"))
	require.NoError(t, err)

	tender, err := c.AddTender(cashMethod(), dec("1500"), nil, true)
	require.NoError(t, err)

	require.Equal(t, "1200", tender.Amount.String())
	require.Equal(t, "300", tender.Change.String())
	require.Equal(t, "1500", tender.Tendered.String())
	require.Equal(t, payment.StateSettled, c.State)
	require.True(t, c.Remaining().IsZero())
}

func TestNonCashOverpaymentRejected(t *testing.T) {
	c, err := payment.NewCollector("reg-1", dec("1200"))
	require.NoError(t, err)

	_, err = c.AddTender(cardMethod(), dec("1500"), nil, false)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "OVERPAYMENT", appErr.Code)
	require.Len(t, c.Tenders, 0)
	require.Equal(t, payment.StateOpen, c.State)
}

func TestSplitTender(t *testing.T) {
	c, err := payment.NewCollector("reg-1", dec("278.00"))
	require.NoError(t, err)

	_, err = c.AddTender(cardMethod(), dec("200.00"), nil, false)
	require.NoError(t, err)
	require.Equal(t, "78", c.Remaining().String())

	tender, err := c.AddTender(cashMethod(), dec("100.00"), nil, true)
	require.NoError(t, err)
	require.Equal(t, "78", tender.Amount.String())
	require.Equal(t, "22", tender.Change.String())
	require.Equal(t, payment.StateSettled, c.State)
}

func TestRemoveTenderReopens(t *testing.T) {
	c, err := payment.NewCollector("reg-1", dec("100"))
	require.NoError(t, err)

	tender, err := c.AddTender(cashMethod(), dec("100"), nil, true)
	require.NoError(t, err)
	require.Equal(t, payment.StateSettled, c.State)

	require.NoError(t, c.RemoveTender(tender.ID))
	require.Equal(t, payment.StateOpen, c.State)
	require.Equal(t, "100", c.Remaining().String())
}

func TestFinalizeRequiresFullPayment(t *testing.T) {
	c, err := payment.NewCollector("reg-1", dec("100"))
	require.NoError(t, err)

	_, err = c.AddTender(cardMethod(), dec("60"), nil, false)
	require.NoError(t, err)

	err = c.Finalize()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INSUFFICIENT_PAYMENT", appErr.Code)

	_, err = c.AddTender(cardMethod(), dec("40"), nil, false)
	require.NoError(t, err)
	require.NoError(t, c.Finalize())
	require.Equal(t, payment.StateFinalized, c.State)
}

func TestFinalizedCollectorRejectsMutation(t *testing.T) {
	c, err := payment.NewCollector("reg-1", dec("50"))
	require.NoError(t, err)

	tender, err := c.AddTender(cashMethod(), dec("50"), nil, true)
	require.NoError(t, err)
	require.NoError(t, c.Finalize())

	_, err = c.AddTender(cashMethod(), dec("10"), nil, true)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "FINALIZED", appErr.Code)

	err = c.RemoveTender(tender.ID)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "FINALIZED", appErr.Code)
}

func TestTenderMustBePositive(t *testing.T) {
	c, err := payment.NewCollector("reg-1", dec("50"))
	require.NoError(t, err)

	_, err = c.AddTender(cashMethod(), dec("0"), nil, true)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION", appErr.Code)

	_, err = c.AddTender(cashMethod(), dec("-5"), nil, true)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION", appErr.Code)
}

func TestTenderKeepsReference(t *testing.T) {
	c, err := payment.NewCollector("reg-1", dec("100"))
	require.NoError(t, err)

	ref := "  MCX-20260901-77 "
	tender, err := c.AddTender(cardMethod(), dec("100"), &ref, false)
	require.NoError(t, err)
	require.NotNil(t, tender.Reference)
	require.Equal(t, "MCX-20260901-77", *tender.Reference)
}

func TestBlankReferenceDropped(t *testing.T) {
	c, err := payment.NewCollector("reg-1", dec("50"))
	require.NoError(t, err)

	blank := "   "
	tender, err := c.AddTender(cashMethod(), dec("50"), &blank, true)
	require.NoError(t, err)
	require.Nil(t, tender.Reference)
}

func TestNegativeDueRejected(t *testing.T) {
	_, err := payment.NewCollector("reg-1", dec("-1"))
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION", appErr.Code)
}
