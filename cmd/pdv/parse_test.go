package main

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estoque/internal/domain"
	"estoque/internal/pricing"
	"estoque/internal/selection"
)

func TestParseUnitItem(t *testing.T) {
	item, err := parseUnitItem("3:2")
	require.NoError(t, err)
	assert.Equal(t, unitItem{ProductID: 3, Quantity: 2}, item)

	item, err = parseUnitItem("7")
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)

	for _, bad := range []string{"", "x", "3:0", "3:2:1", "-1"} {
		_, err := parseUnitItem(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseWeightItem(t *testing.T) {
	item, err := parseWeightItem("1:25,50:0.75")
	require.NoError(t, err)
	assert.Equal(t, int64(1), item.ProductID)
	assert.True(t, item.Value.Equal(decimal.RequireFromString("25.5")))
	assert.True(t, item.Mass.Equal(decimal.RequireFromString("0.75")))
	assert.Equal(t, 1, item.Quantity)

	item, err = parseWeightItem("1:10:1:3")
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)

	for _, bad := range []string{"1:10", "1:x:1", "1:10:-1", "1:10:1:0"} {
		_, err := parseWeightItem(bad)
		assert.Error(t, err, bad)
	}
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := parsePaymentMethod("")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCash, m)

	m, err = parsePaymentMethod(" PIX ")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPix, m)

	_, err = parsePaymentMethod("cheque")
	assert.Error(t, err)
}

func TestFillSession(t *testing.T) {
	s := selection.NewSession([]domain.Product{
		{ID: 1, SalePrice: decimal.RequireFromString("10")},
		{ID: 2, SalePrice: decimal.RequireFromString("5")},
	})
	pay := pricing.Payment{Method: domain.PaymentPix}
	require.NoError(t, fillSession(s, []string{"2:3"}, []string{"1:12:1.2"}, pay))

	lines := s.Selected()
	require.Len(t, lines, 2)
	assert.Equal(t, pricing.ModeWeight, lines[0].Item.Mode)
	assert.Equal(t, 3, lines[1].Item.Quantity)
	assert.True(t, s.Totals().Total.Equal(decimal.RequireFromString("27")))
	assert.Equal(t, domain.PaymentPix, s.Payment().Method)

	err := fillSession(s, []string{"9"}, nil, pay)
	assert.True(t, errors.Is(err, selection.ErrUnknownProduct))
}
