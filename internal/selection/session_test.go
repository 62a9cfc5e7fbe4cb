package selection

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estoque/internal/domain"
	"estoque/internal/pricing"
)

func catalog() []domain.Product {
	return []domain.Product{
		{ID: 1, Description: "A", StockQuantity: 5, SalePrice: decimal.RequireFromString("10"), PurchasePrice: decimal.RequireFromString("6")},
		{ID: 2, Description: "B", StockQuantity: 3, SalePrice: decimal.RequireFromString("12"), PurchasePrice: decimal.RequireFromString("4")},
		{ID: 3, Description: "C", StockQuantity: 0, SalePrice: decimal.RequireFromString("2")},
	}
}

func TestNewSessionSeedsDefaults(t *testing.T) {
	s := NewSession(catalog())
	require.Equal(t, 3, s.Len())

	for _, e := range s.Entries() {
		assert.False(t, e.Selected)
		assert.Equal(t, pricing.ModeUnit, e.Mode)
		assert.Equal(t, 1, e.Quantity)
		assert.True(t, e.WeighedValue.IsZero())
	}
	assert.Empty(t, s.Selected())
}

func TestSelectedFollowsCatalogOrder(t *testing.T) {
	s := NewSession(catalog())
	_, err := s.Toggle(2)
	require.NoError(t, err)
	_, err = s.Toggle(1)
	require.NoError(t, err)

	lines := s.Selected()
	require.Len(t, lines, 2)
	assert.Equal(t, int64(1), lines[0].Product.ID)
	assert.Equal(t, int64(2), lines[1].Product.ID)
}

func TestSnapshotPairsLinesWithPayment(t *testing.T) {
	s := NewSession(catalog())
	require.NoError(t, s.Select(2, true))
	s.SetPayment(pricing.Payment{Method: domain.PaymentPix})

	snap := s.Snapshot()
	s.SetPayment(pricing.Payment{Method: domain.PaymentCredit})
	require.NoError(t, s.Select(1, true))

	require.Len(t, snap.Lines, 1)
	assert.Equal(t, int64(2), snap.Lines[0].Product.ID)
	assert.Equal(t, domain.PaymentPix, snap.Payment.Method)
}

func TestSelectedIsASnapshot(t *testing.T) {
	s := NewSession(catalog())
	require.NoError(t, s.Select(1, true))

	lines := s.Selected()
	lines[0].Item.Quantity = 99

	e, ok := s.Entry(1)
	require.True(t, ok)
	assert.Equal(t, 1, e.Quantity)
}

func TestMutationsValidateInput(t *testing.T) {
	s := NewSession(catalog())

	assert.ErrorIs(t, s.SetQuantity(1, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, s.SetQuantity(42, 2), ErrUnknownProduct)
	assert.ErrorIs(t, s.SetMode(1, "kg"), ErrInvalidMode)
	assert.ErrorIs(t, s.SetWeight(1, decimal.NewFromInt(-1), decimal.Zero), ErrInvalidWeight)
	_, err := s.Toggle(42)
	assert.True(t, errors.Is(err, ErrUnknownProduct))
}

func TestTotalsAndChangePreview(t *testing.T) {
	s := NewSession(catalog())
	require.NoError(t, s.Select(1, true))
	require.NoError(t, s.SetQuantity(1, 2))
	require.NoError(t, s.Select(2, true))
	require.NoError(t, s.SetMode(2, pricing.ModeWeight))
	require.NoError(t, s.SetWeight(2, decimal.RequireFromString("15"), decimal.RequireFromString("1.5")))

	totals := s.Totals()
	assert.True(t, totals.Total.Equal(decimal.RequireFromString("35")), totals.Total.String())
	assert.True(t, totals.Profit.Equal(decimal.RequireFromString("17")), totals.Profit.String())

	s.SetPayment(pricing.Payment{Method: domain.PaymentCash, NeedsChange: true, AmountReceived: decimal.RequireFromString("50")})
	assert.True(t, s.Change().Equal(decimal.RequireFromString("15")))
}

func TestResetKeepsMembership(t *testing.T) {
	s := NewSession(catalog())
	require.NoError(t, s.Select(1, true))
	require.NoError(t, s.SetQuantity(1, 4))
	s.SetPayment(pricing.Payment{Method: domain.PaymentCash, NeedsChange: true, AmountReceived: decimal.NewFromInt(100)})

	s.Reset()

	assert.Equal(t, 3, s.Len())
	assert.Empty(t, s.Selected())
	e, _ := s.Entry(1)
	assert.Equal(t, 1, e.Quantity)
	assert.False(t, s.Payment().NeedsChange)
}

func TestReseedReplacesCatalog(t *testing.T) {
	s := NewSession(catalog())
	require.NoError(t, s.Select(1, true))

	refreshed := catalog()[:2]
	refreshed[0].StockQuantity = 3
	s.Reseed(refreshed)

	assert.Equal(t, 2, s.Len())
	assert.Empty(t, s.Selected())
	require.NoError(t, s.Select(1, true))
	assert.Equal(t, 3, s.Selected()[0].Product.StockQuantity)
}

func TestPaymentDefaultsToCashWithoutChange(t *testing.T) {
	s := NewSession(catalog())
	pay := s.Payment()
	assert.Equal(t, domain.PaymentCash, pay.Method)
	assert.False(t, pay.NeedsChange)
	assert.True(t, pay.AmountReceived.IsZero())
}
