// Package pricing holds the sale arithmetic. Amounts stay unrounded until
// they are displayed.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"estoque/internal/domain"
)

type Mode string

const (
	ModeUnit   Mode = "unit"
	ModeWeight Mode = "weight"
)

// Item is what the operator entered for one product.
type Item struct {
	Mode         Mode
	Quantity     int
	WeighedValue decimal.Decimal
	WeighedMass  decimal.Decimal
}

type Line struct {
	Product domain.Product
	Item    Item
}

type Totals struct {
	Total  decimal.Decimal
	Profit decimal.Decimal
}

type Payment struct {
	Method         domain.PaymentMethod
	NeedsChange    bool
	AmountReceived decimal.Decimal
}

func qty(it Item) decimal.Decimal {
	return decimal.NewFromInt(int64(it.Quantity))
}

// Charge is the amount billed for the line.
func Charge(p domain.Product, it Item) decimal.Decimal {
	if it.Mode == ModeWeight {
		return it.WeighedValue
	}
	return p.SalePrice.Mul(qty(it))
}

// UnitPrice is the price per unit recorded on the sale. Weighed lines spread
// the charged amount over the quantity.
func UnitPrice(p domain.Product, it Item) decimal.Decimal {
	if it.Mode == ModeWeight {
		if it.Quantity < 1 {
			return it.WeighedValue
		}
		return it.WeighedValue.Div(qty(it))
	}
	return p.SalePrice
}

// Profit of a weighed line is priced on the mass actually weighed; without a
// mass it falls back to the quantity.
func Profit(p domain.Product, it Item) decimal.Decimal {
	if it.Mode == ModeWeight {
		basis := it.WeighedMass
		if !basis.IsPositive() {
			basis = qty(it)
		}
		return it.WeighedValue.Sub(p.PurchasePrice.Mul(basis))
	}
	return p.SalePrice.Sub(p.PurchasePrice).Mul(qty(it))
}

// Floor is the least a weighed line may charge under the strict policy.
func Floor(p domain.Product, it Item) decimal.Decimal {
	return p.SalePrice.Mul(qty(it))
}

func Sum(lines []Line) Totals {
	totals := Totals{Total: decimal.Zero, Profit: decimal.Zero}
	for _, l := range lines {
		totals.Total = totals.Total.Add(Charge(l.Product, l.Item))
		totals.Profit = totals.Profit.Add(Profit(l.Product, l.Item))
	}
	return totals
}

// Change is only due for cash payments where the customer asked for it.
func Change(pay Payment, total decimal.Decimal) decimal.Decimal {
	if !pay.Method.IsCash() || !pay.NeedsChange {
		return decimal.Zero
	}
	change := pay.AmountReceived.Sub(total)
	if change.IsNegative() {
		return decimal.Zero
	}
	return change
}

// Display rounds to cents for presentation.
func Display(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatBRL renders d as Brazilian currency, e.g. R$ 1.234,56.
func FormatBRL(d decimal.Decimal) string {
	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "R$ " + b.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}
