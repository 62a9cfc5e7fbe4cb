package filter

import (
	"testing"

	"github.com/shopspring/decimal"

	"estoque/internal/domain"
)

func TestProductsMatchCategoryAndTerm(t *testing.T) {
	list := []domain.Product{
		{ID: 1, Category: "Carnes", Brand: "Friboi", Description: "Picanha kg"},
		{ID: 2, Category: "Bebidas", Brand: "Heineken", Description: "Cerveja Long Neck"},
		{ID: 3, Category: "Bebidas", Brand: "Guaraná Antarctica", Description: "Refrigerante 2L"},
	}

	cases := []struct {
		name string
		f    ProductFilter
		want []int64
	}{
		{"all", ProductFilter{Category: "todas"}, []int64{1, 2, 3}},
		{"empty category matches all", ProductFilter{}, []int64{1, 2, 3}},
		{"category", ProductFilter{Category: "bebidas"}, []int64{2, 3}},
		{"term on description", ProductFilter{Term: "PICANHA"}, []int64{1}},
		{"term on brand", ProductFilter{Term: "heine"}, []int64{2}},
		{"category and term", ProductFilter{Category: "Carnes", Term: "cerveja"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Products(list, tc.f)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d products, got %d", len(tc.want), len(got))
			}
			for i, p := range got {
				if p.ID != tc.want[i] {
					t.Fatalf("position %d: expected id %d, got %d", i, tc.want[i], p.ID)
				}
			}
		})
	}
}

func TestSalesMatchPeriodAcrossDateFormats(t *testing.T) {
	list := []domain.Sale{
		{ID: 1, Category: "Doces", SaleDate: "2025-03-14T18:30:00"},
		{ID: 2, Category: "Doces", SaleDate: "02/03/2025"},
		{ID: 3, Category: "Frios", SaleDate: "2025-04-01"},
		{ID: 4, Category: "Frios", SaleDate: "2026-03-10"},
		{ID: 5, Category: "Frios", SaleDate: "sem data"},
	}

	cases := []struct {
		name string
		f    PeriodFilter
		want int
	}{
		{"no criteria keeps unparseable dates", PeriodFilter{Category: "todas"}, 5},
		{"march 2025", PeriodFilter{Year: 2025, Month: 3}, 2},
		{"year only", PeriodFilter{Year: 2025}, 3},
		{"month only", PeriodFilter{Month: 3}, 3},
		{"category and year", PeriodFilter{Category: "frios", Year: 2025}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := len(Sales(list, tc.f)); got != tc.want {
				t.Fatalf("expected %d sales, got %d", tc.want, got)
			}
		})
	}
}

func TestReposicoesUseProductCategoryAndEntryDate(t *testing.T) {
	list := []domain.Reposicao{
		{ID: 1, Product: domain.Product{Category: "Carnes"}, EntryDate: "2025-01-05"},
		{ID: 2, Product: domain.Product{Category: "Temperos"}, EntryDate: "05/02/2025"},
	}
	got := Reposicoes(list, PeriodFilter{Category: "Temperos", Month: 2})
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected reposicao 2, got %+v", got)
	}
}

func TestParsePeriod(t *testing.T) {
	f, err := ParsePeriod("2025", "todos")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Year != 2025 || f.Month != 0 {
		t.Fatalf("unexpected period %+v", f)
	}
	if _, err := ParsePeriod("", "13"); err == nil {
		t.Fatalf("expected month 13 to be rejected")
	}
}

func TestMonthlyTotals(t *testing.T) {
	profit := decimal.RequireFromString("9")
	sales := []domain.Sale{
		{SaleDate: "2025-03-01", SalePrice: decimal.RequireFromString("10"), PurchasePrice: decimal.RequireFromString("6"), QuantitySold: 2},
		{SaleDate: "15/03/2025", SalePrice: decimal.RequireFromString("7.5"), PurchasePrice: decimal.RequireFromString("4"), QuantitySold: 2, Profit: &profit},
		{SaleDate: "2024-03-01", SalePrice: decimal.RequireFromString("100"), QuantitySold: 1},
	}

	totals := MonthlyTotals(sales, 2025)
	if len(totals) != 12 {
		t.Fatalf("expected 12 months, got %d", len(totals))
	}
	march := totals[2]
	if !march.Sold.Equal(decimal.RequireFromString("35")) {
		t.Fatalf("expected sold 35, got %s", march.Sold)
	}
	if !march.Cost.Equal(decimal.RequireFromString("18")) {
		t.Fatalf("expected cost 18, got %s", march.Cost)
	}
	if !march.Profit.Equal(decimal.RequireFromString("17")) {
		t.Fatalf("expected profit 17, got %s", march.Profit)
	}
	if !totals[0].Sold.IsZero() {
		t.Fatalf("expected empty january")
	}
}

func TestMonthlyTotalsWeighedSale(t *testing.T) {
	profit := decimal.RequireFromString("4")
	sales := []domain.Sale{{
		SaleDate:      "2025-06-02",
		SalePrice:     decimal.RequireFromString("10").Div(decimal.NewFromInt(3)),
		PurchasePrice: decimal.RequireFromString("4"),
		QuantitySold:  3,
		Profit:        &profit,
	}}

	june := MonthlyTotals(sales, 2025)[5]
	if !june.Sold.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected sold 10, got %s", june.Sold)
	}
	if !june.Sold.Sub(june.Cost).Equal(june.Profit) {
		t.Fatalf("sold - cost must equal profit, got %+v", june)
	}
}
