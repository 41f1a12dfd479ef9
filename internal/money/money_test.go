package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTaxZeroRate(t *testing.T) {
	got := Tax(dec("123.45"), decimal.Zero)
	if !got.IsZero() {
		t.Fatalf("expected zero tax, got %s", got)
	}
}

func TestGrossEqualsAmountPlusTax(t *testing.T) {
	cases := []struct {
		amount string
		rate   string
	}{
		{"100.00", "14"},
		{"250.00", "14"},
		{"50.00", "0"},
		{"0.01", "7"},
		{"999999.99", "23"},
	}
	for _, tc := range cases {
		amount, rate := dec(tc.amount), dec(tc.rate)
		gross := Gross(amount, rate)
		want := amount.Add(Tax(amount, rate))
		if !gross.Equal(want) {
			t.Fatalf("gross(%s,%s) = %s, want %s", tc.amount, tc.rate, gross, want)
		}
	}
}

func TestTaxNoPennyDrift(t *testing.T) {
	// Summing 1000 line taxes must equal the tax of the summed amount.
	unit := dec("0.07")
	rate := dec("14")
	var sum decimal.Decimal
	for i := 0; i < 1000; i++ {
		sum = sum.Add(Tax(unit, rate))
	}
	total := Tax(unit.Mul(decimal.NewFromInt(1000)), rate)
	if !sum.Equal(total) {
		t.Fatalf("accumulated tax %s != bulk tax %s", sum, total)
	}
}

func TestLineGross(t *testing.T) {
	got := LineGross(dec("100.00"), 2, dec("14"))
	if !got.Equal(dec("228")) {
		t.Fatalf("expected 228, got %s", got)
	}
}

func TestDiscount(t *testing.T) {
	if got := Discount(dec("200"), dec("25")); !got.Equal(dec("150")) {
		t.Fatalf("expected 150, got %s", got)
	}
	if got := Discount(dec("200"), decimal.Zero); !got.Equal(dec("200")) {
		t.Fatalf("zero discount must be identity, got %s", got)
	}
}

func TestChange(t *testing.T) {
	if got := Change(dec("300"), dec("278")); !got.Equal(dec("22")) {
		t.Fatalf("expected change 22, got %s", got)
	}
	if got := Change(dec("100"), dec("278")); !got.IsZero() {
		t.Fatalf("underpayment must give zero change, got %s", got)
	}
}

func TestLoyaltyPoints(t *testing.T) {
	if got := LoyaltyPoints(dec("278.00")); got != 2 {
		t.Fatalf("expected 2 points, got %d", got)
	}
	if got := LoyaltyPoints(dec("99.99")); got != 0 {
		t.Fatalf("expected 0 points, got %d", got)
	}
}
