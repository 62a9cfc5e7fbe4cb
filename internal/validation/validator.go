package validation

import (
	"fmt"
	"strings"

	"estoque/internal/pricing"
	"estoque/internal/selection"
)

type Kind string

const (
	KindEmptySelection   Kind = "empty_selection"
	KindOutOfStock       Kind = "out_of_stock"
	KindBelowFloor       Kind = "below_weight_floor"
	KindInsufficientCash Kind = "insufficient_payment"
)

type ValidationError struct {
	Kind    Kind
	Product string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Policy holds the checks that can be switched off.
type Policy struct {
	// WeightFloor rejects weighed lines charged below salePrice x quantity.
	WeightFloor bool
}

// ParsePolicy reads the WEIGHT_FLOOR_POLICY setting.
func ParsePolicy(raw string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "off", "disabled", "false":
		return Policy{}, nil
	case "enforce", "on", "enabled", "true":
		return Policy{WeightFloor: true}, nil
	}
	return Policy{}, fmt.Errorf("unknown weight floor policy %q", raw)
}

type Validator struct {
	policy Policy
}

func New(policy Policy) *Validator {
	return &Validator{policy: policy}
}

func (v *Validator) Policy() Policy {
	return v.policy
}

func (v *Validator) Validate(s *selection.Session) error {
	return v.Check(s.Snapshot())
}

// Check stops at the first failing check: empty selection, then zero
// stock, then the weight floor, then cash tendered. Requested quantities are
// not compared with stock.
func (v *Validator) Check(snap selection.Snapshot) error {
	lines := snap.Lines
	if len(lines) == 0 {
		return &ValidationError{Kind: KindEmptySelection, Message: "select at least one product"}
	}

	for _, l := range lines {
		if l.Product.StockQuantity == 0 {
			name := l.Product.Name()
			return &ValidationError{
				Kind:    KindOutOfStock,
				Product: name,
				Message: fmt.Sprintf("product %q is out of stock", name),
			}
		}
	}

	if v.policy.WeightFloor {
		for _, l := range lines {
			if l.Item.Mode != pricing.ModeWeight {
				continue
			}
			floor := pricing.Floor(l.Product, l.Item)
			if l.Item.WeighedValue.LessThan(floor) {
				name := l.Product.Name()
				return &ValidationError{
					Kind:    KindBelowFloor,
					Product: name,
					Message: fmt.Sprintf("amount charged for %q (%s) is below the minimum of %s", name, pricing.Display(l.Item.WeighedValue), pricing.Display(floor)),
				}
			}
		}
	}

	pay := snap.Payment
	if pay.Method.IsCash() && pay.NeedsChange {
		total := pricing.Sum(lines).Total
		if pay.AmountReceived.LessThan(total) {
			return &ValidationError{
				Kind:    KindInsufficientCash,
				Message: fmt.Sprintf("insufficient payment: received %s, total is %s", pricing.Display(pay.AmountReceived), pricing.Display(total)),
			}
		}
	}
	return nil
}
