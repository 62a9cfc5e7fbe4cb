package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"estoque/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestUnitLineTotalsAndProfit(t *testing.T) {
	a := domain.Product{StockQuantity: 5, SalePrice: d("10"), PurchasePrice: d("6")}
	totals := Sum([]Line{{Product: a, Item: Item{Mode: ModeUnit, Quantity: 2}}})

	if !totals.Total.Equal(d("20")) {
		t.Fatalf("expected total 20, got %s", totals.Total)
	}
	if !totals.Profit.Equal(d("8")) {
		t.Fatalf("expected profit 8, got %s", totals.Profit)
	}
}

func TestWeightLineUsesWeighedValueAndMass(t *testing.T) {
	b := domain.Product{StockQuantity: 3, SalePrice: d("12"), PurchasePrice: d("4")}
	it := Item{Mode: ModeWeight, Quantity: 1, WeighedValue: d("15"), WeighedMass: d("1.5")}

	if got := Charge(b, it); !got.Equal(d("15")) {
		t.Fatalf("expected charge 15, got %s", got)
	}
	if got := Profit(b, it); !got.Equal(d("9")) {
		t.Fatalf("expected profit 9, got %s", got)
	}
	if got := UnitPrice(b, it); !got.Equal(d("15")) {
		t.Fatalf("expected unit price 15, got %s", got)
	}
}

func TestWeightUnitPriceAveragesOverQuantity(t *testing.T) {
	p := domain.Product{SalePrice: d("5")}
	it := Item{Mode: ModeWeight, Quantity: 4, WeighedValue: d("10")}
	if got := UnitPrice(p, it); !got.Equal(d("2.5")) {
		t.Fatalf("expected 2.5, got %s", got)
	}
}

func TestWeightProfitWithoutMassFallsBackToQuantity(t *testing.T) {
	p := domain.Product{SalePrice: d("5"), PurchasePrice: d("3")}
	it := Item{Mode: ModeWeight, Quantity: 2, WeighedValue: d("11")}
	if got := Profit(p, it); !got.Equal(d("5")) {
		t.Fatalf("expected 5, got %s", got)
	}
}

func TestSumMixesModes(t *testing.T) {
	lines := []Line{
		{Product: domain.Product{SalePrice: d("3.33"), PurchasePrice: d("1")}, Item: Item{Mode: ModeUnit, Quantity: 3}},
		{Product: domain.Product{SalePrice: d("9"), PurchasePrice: d("2")}, Item: Item{Mode: ModeWeight, Quantity: 1, WeighedValue: d("7.015"), WeighedMass: d("0.5")}},
	}
	totals := Sum(lines)
	if !totals.Total.Equal(d("17.005")) {
		t.Fatalf("expected unrounded total 17.005, got %s", totals.Total)
	}
	if Display(totals.Total) != "17.01" {
		t.Fatalf("expected display 17.01, got %s", Display(totals.Total))
	}
}

func TestChange(t *testing.T) {
	cases := []struct {
		name string
		pay  Payment
		want string
	}{
		{"cash with change", Payment{Method: domain.PaymentCash, NeedsChange: true, AmountReceived: d("25")}, "5"},
		{"cash short never negative", Payment{Method: domain.PaymentCash, NeedsChange: true, AmountReceived: d("15")}, "0"},
		{"cash without change request", Payment{Method: domain.PaymentCash, AmountReceived: d("50")}, "0"},
		{"pix", Payment{Method: domain.PaymentPix, NeedsChange: true, AmountReceived: d("50")}, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Change(tc.pay, d("20")); !got.Equal(d(tc.want)) {
				t.Fatalf("expected change %s, got %s", tc.want, got)
			}
		})
	}
}

func TestFormatBRL(t *testing.T) {
	cases := map[string]string{
		"0":       "R$ 0,00",
		"5":       "R$ 5,00",
		"1234.5":  "R$ 1.234,50",
		"1234567": "R$ 1.234.567,00",
		"-42.129": "-R$ 42,13",
		"999.999": "R$ 1.000,00",
	}
	for in, want := range cases {
		if got := FormatBRL(d(in)); got != want {
			t.Fatalf("FormatBRL(%s) = %q, want %q", in, got, want)
		}
	}
}
