package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The store speaks plain JSON numbers for money.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	CategoryAll     = "todas"
	CategoryMeat    = "Carnes"
	CategorySpices  = "Temperos"
	CategoryDrinks  = "Bebidas"
	CategoryDeli    = "Frios"
	CategorySweets  = "Doces"
	DateLayout      = "2006-01-02"
	DisplayDateForm = "02/01/2006"
)

var Categories = []string{CategoryMeat, CategorySpices, CategoryDrinks, CategoryDeli, CategorySweets}

// IsAllCategory reports whether value is one of the "match everything" sentinels.
func IsAllCategory(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", CategoryAll, "all":
		return true
	}
	return false
}

func IsKnownCategory(value string) bool {
	for _, c := range Categories {
		if strings.EqualFold(c, strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "dinheiro"
	PaymentPix    PaymentMethod = "pix"
	PaymentDebit  PaymentMethod = "debito"
	PaymentCredit PaymentMethod = "credito"
)

func (m PaymentMethod) IsCash() bool {
	return m == PaymentCash
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentPix, PaymentDebit, PaymentCredit:
		return true
	}
	return false
}

type Product struct {
	ID            int64           `json:"id,omitempty"`
	Category      string          `json:"categoria"`
	Brand         string          `json:"marca"`
	Description   string          `json:"detalhe"`
	PurchasePrice decimal.Decimal `json:"precoCompra"`
	SalePrice     decimal.Decimal `json:"precoVenda"`
	StockQuantity int             `json:"quantidadeEstoque"`
	Expiration    string          `json:"vencimento,omitempty"`
	Version       int             `json:"versao"`
}

// Name is the label used for the product on sale records and messages.
func (p Product) Name() string {
	return strings.TrimSpace(p.Description)
}

type Sale struct {
	ID            int64            `json:"id,omitempty"`
	ProductID     int64            `json:"produtoId,omitempty"`
	SaleDate      string           `json:"dataVenda"`
	Category      string           `json:"categoria"`
	ProductName   string           `json:"produto"`
	Brand         string           `json:"marca"`
	PurchasePrice decimal.Decimal  `json:"precoCompra"`
	SalePrice     decimal.Decimal  `json:"precoVenda"`
	QuantitySold  int              `json:"quantidadeVendida"`
	PaymentMethod PaymentMethod    `json:"formaPagamento"`
	Profit        *decimal.Decimal `json:"lucro,omitempty"`
}

// LineProfit returns the stored profit, or (salePrice - purchasePrice) x qty
// when the record was created without one.
func (s Sale) LineProfit() decimal.Decimal {
	if s.Profit != nil {
		return *s.Profit
	}
	return s.SalePrice.Sub(s.PurchasePrice).Mul(decimal.NewFromInt(int64(s.QuantitySold)))
}

// Revenue is salePrice x qty rounded to cents. Weighed sales store the
// per-unit share of the weighed value, so the raw product can be off by a
// fraction of a cent.
func (s Sale) Revenue() decimal.Decimal {
	return s.SalePrice.Mul(decimal.NewFromInt(int64(s.QuantitySold))).Round(2)
}

// Cost is revenue minus the stored profit when there is one, which keeps
// revenue - cost equal to LineProfit for weighed sales.
func (s Sale) Cost() decimal.Decimal {
	if s.Profit != nil {
		return s.Revenue().Sub(*s.Profit)
	}
	return s.PurchasePrice.Mul(decimal.NewFromInt(int64(s.QuantitySold)))
}

type SalesSummary struct {
	TotalSold    decimal.Decimal `json:"totalVendido"`
	TotalCost    decimal.Decimal `json:"totalComprado"`
	GrossProfit  decimal.Decimal `json:"lucroBruto"`
	ProfitMargin decimal.Decimal `json:"margemLucro"`
}

type MonthlyTotals struct {
	Month  int             `json:"mes"`
	Sold   decimal.Decimal `json:"vendido"`
	Cost   decimal.Decimal `json:"comprado"`
	Profit decimal.Decimal `json:"lucro"`
}

type Reposicao struct {
	ID         int64   `json:"id,omitempty"`
	Product    Product `json:"produto"`
	Quantity   int     `json:"quantidade"`
	EntryDate  string  `json:"dataEntrada"`
	Expiration string  `json:"vencimento,omitempty"`
}

// Today returns the current calendar date in loc formatted for sale records.
func Today(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc).Format(DateLayout)
}

var dateLayouts = []string{DateLayout, DisplayDateForm}

// ParseDate reads a calendar date written as an ISO timestamp, dd/mm/yyyy or
// yyyy-mm-dd. The result is midnight in time.Local.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if idx := strings.IndexByte(value, 'T'); idx > 0 {
		value = value[:idx]
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate rewrites any accepted date form as yyyy-mm-dd. Unparseable
// input is returned unchanged.
func NormalizeDate(value string) string {
	if t, ok := ParseDate(value); ok {
		return t.Format(DateLayout)
	}
	return value
}
