// Package filter narrows product, sale and reposição lists for display.
// Every criterion left at its zero value or at the "all" sentinel matches
// everything.
package filter

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"estoque/internal/domain"
)

type ProductFilter struct {
	Category string
	Term     string
}

func (f ProductFilter) Match(p domain.Product) bool {
	if !matchCategory(f.Category, p.Category) {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Description), term) ||
		strings.Contains(strings.ToLower(p.Brand), term)
}

func Products(list []domain.Product, f ProductFilter) []domain.Product {
	out := make([]domain.Product, 0, len(list))
	for _, p := range list {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// PeriodFilter matches records by category and by the year and month of
// their date. Year and Month are ignored when zero.
type PeriodFilter struct {
	Category string
	Year     int
	Month    int
}

func (f PeriodFilter) match(category string, date string) bool {
	if !matchCategory(f.Category, category) {
		return false
	}
	if f.Year == 0 && f.Month == 0 {
		return true
	}
	t, ok := domain.ParseDate(date)
	if !ok {
		return false
	}
	if f.Year != 0 && t.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(t.Month()) != f.Month {
		return false
	}
	return true
}

func (f PeriodFilter) MatchSale(s domain.Sale) bool {
	return f.match(s.Category, s.SaleDate)
}

func (f PeriodFilter) MatchReposicao(r domain.Reposicao) bool {
	return f.match(r.Product.Category, r.EntryDate)
}

func Sales(list []domain.Sale, f PeriodFilter) []domain.Sale {
	out := make([]domain.Sale, 0, len(list))
	for _, s := range list {
		if f.MatchSale(s) {
			out = append(out, s)
		}
	}
	return out
}

func Reposicoes(list []domain.Reposicao, f PeriodFilter) []domain.Reposicao {
	out := make([]domain.Reposicao, 0, len(list))
	for _, r := range list {
		if f.MatchReposicao(r) {
			out = append(out, r)
		}
	}
	return out
}

// ParsePeriod reads year and month selector values. Empty strings and the
// "all" sentinels yield zero.
func ParsePeriod(year string, month string) (PeriodFilter, error) {
	var f PeriodFilter
	var err error
	if f.Year, err = parseSelector(year, 1, 9999); err != nil {
		return PeriodFilter{}, err
	}
	if f.Month, err = parseSelector(month, 1, 12); err != nil {
		return PeriodFilter{}, err
	}
	return f, nil
}

func parseSelector(raw string, min int, max int) (int, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "todos", "todas", "all":
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, strconv.ErrRange
	}
	return n, nil
}

// MonthlyTotals returns twelve entries, January first, with the sold, cost
// and profit amounts of the sales dated in year.
func MonthlyTotals(sales []domain.Sale, year int) []domain.MonthlyTotals {
	out := make([]domain.MonthlyTotals, 12)
	for i := range out {
		out[i] = domain.MonthlyTotals{Month: i + 1, Sold: decimal.Zero, Cost: decimal.Zero, Profit: decimal.Zero}
	}
	for _, s := range sales {
		t, ok := domain.ParseDate(s.SaleDate)
		if !ok || t.Year() != year {
			continue
		}
		m := &out[int(t.Month())-1]
		m.Sold = m.Sold.Add(s.Revenue())
		m.Cost = m.Cost.Add(s.Cost())
		m.Profit = m.Profit.Add(s.LineProfit())
	}
	return out
}

func matchCategory(want string, got string) bool {
	if domain.IsAllCategory(want) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
}
