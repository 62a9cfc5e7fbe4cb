package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"estoque/internal/domain"
	"estoque/internal/pricing"
	"estoque/internal/selection"
)

type unitItem struct {
	ProductID int64
	Quantity  int
}

type weightItem struct {
	ProductID int64
	Value     decimal.Decimal
	Mass      decimal.Decimal
	Quantity  int
}

// parseUnitItem reads "id" or "id:qty".
func parseUnitItem(raw string) (unitItem, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) > 2 {
		return unitItem{}, fmt.Errorf("item %q: want id[:quantidade]", raw)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id < 1 {
		return unitItem{}, fmt.Errorf("item %q: invalid product id", raw)
	}
	item := unitItem{ProductID: id, Quantity: 1}
	if len(parts) == 2 {
		qty, err := strconv.Atoi(parts[1])
		if err != nil || qty < 1 {
			return unitItem{}, fmt.Errorf("item %q: invalid quantity", raw)
		}
		item.Quantity = qty
	}
	return item, nil
}

// parseWeightItem reads "id:valor:massa" or "id:valor:massa:qty". Decimals
// accept a comma as separator.
func parseWeightItem(raw string) (weightItem, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 3 || len(parts) > 4 {
		return weightItem{}, fmt.Errorf("peso %q: want id:valor:massa[:quantidade]", raw)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id < 1 {
		return weightItem{}, fmt.Errorf("peso %q: invalid product id", raw)
	}
	value, err := parseAmount(parts[1])
	if err != nil {
		return weightItem{}, fmt.Errorf("peso %q: valor: %w", raw, err)
	}
	mass, err := parseAmount(parts[2])
	if err != nil {
		return weightItem{}, fmt.Errorf("peso %q: massa: %w", raw, err)
	}
	item := weightItem{ProductID: id, Value: value, Mass: mass, Quantity: 1}
	if len(parts) == 4 {
		qty, err := strconv.Atoi(parts[3])
		if err != nil || qty < 1 {
			return weightItem{}, fmt.Errorf("peso %q: invalid quantity", raw)
		}
		item.Quantity = qty
	}
	return item, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("must not be negative")
	}
	return d, nil
}

func parsePaymentMethod(raw string) (domain.PaymentMethod, error) {
	m := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	if m == "" {
		return domain.PaymentCash, nil
	}
	if !m.Valid() {
		return "", fmt.Errorf("unknown payment method %q", raw)
	}
	return m, nil
}

// fillSession applies the command line entries to a fresh session.
func fillSession(s *selection.Session, units []string, weights []string, pay pricing.Payment) error {
	for _, raw := range units {
		item, err := parseUnitItem(raw)
		if err != nil {
			return err
		}
		if err := s.Select(item.ProductID, true); err != nil {
			return fmt.Errorf("item %d: %w", item.ProductID, err)
		}
		if err := s.SetQuantity(item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("item %d: %w", item.ProductID, err)
		}
	}
	for _, raw := range weights {
		item, err := parseWeightItem(raw)
		if err != nil {
			return err
		}
		if err := s.Select(item.ProductID, true); err != nil {
			return fmt.Errorf("peso %d: %w", item.ProductID, err)
		}
		if err := s.SetMode(item.ProductID, pricing.ModeWeight); err != nil {
			return err
		}
		if err := s.SetQuantity(item.ProductID, item.Quantity); err != nil {
			return err
		}
		if err := s.SetWeight(item.ProductID, item.Value, item.Mass); err != nil {
			return fmt.Errorf("peso %d: %w", item.ProductID, err)
		}
	}
	s.SetPayment(pay)
	return nil
}
