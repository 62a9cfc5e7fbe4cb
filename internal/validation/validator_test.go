package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"estoque/internal/domain"
	"estoque/internal/pricing"
	"estoque/internal/selection"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newSession() *selection.Session {
	return selection.NewSession([]domain.Product{
		{ID: 1, Description: "Produto A", StockQuantity: 5, SalePrice: d("10"), PurchasePrice: d("6")},
		{ID: 2, Description: "Produto B", StockQuantity: 3, SalePrice: d("12"), PurchasePrice: d("4")},
		{ID: 3, Description: "Produto C", StockQuantity: 0, SalePrice: d("2")},
	})
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return verr.Kind
}

func TestEmptySelectionIsRejectedFirst(t *testing.T) {
	s := newSession()
	s.SetPayment(pricing.Payment{Method: domain.PaymentCash, NeedsChange: true})

	err := New(Policy{WeightFloor: true}).Validate(s)
	if kindOf(t, err) != KindEmptySelection {
		t.Fatalf("expected empty selection, got %v", err)
	}
	if err.Error() != "select at least one product" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestZeroStockNamesProduct(t *testing.T) {
	s := newSession()
	_ = s.Select(1, true)
	_ = s.Select(3, true)

	err := New(Policy{}).Validate(s)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Kind != KindOutOfStock {
		t.Fatalf("expected out of stock, got %v", err)
	}
	if verr.Product != "Produto C" {
		t.Fatalf("expected product C to be named, got %q", verr.Product)
	}
}

func TestQuantityAboveStockIsNotRejected(t *testing.T) {
	s := newSession()
	_ = s.Select(2, true)
	_ = s.SetQuantity(2, 50)

	if err := New(Policy{WeightFloor: true}).Validate(s); err != nil {
		t.Fatalf("expected oversell beyond zero boundary to pass, got %v", err)
	}
}

func TestWeightFloorIsConfigurable(t *testing.T) {
	s := newSession()
	_ = s.Select(2, true)
	_ = s.SetMode(2, pricing.ModeWeight)
	_ = s.SetQuantity(2, 2)
	_ = s.SetWeight(2, d("20"), d("1.7"))

	if err := New(Policy{}).Validate(s); err != nil {
		t.Fatalf("floor disabled: expected pass, got %v", err)
	}
	if kind := kindOf(t, New(Policy{WeightFloor: true}).Validate(s)); kind != KindBelowFloor {
		t.Fatalf("floor enabled: expected below floor, got %s", kind)
	}

	_ = s.SetWeight(2, d("24"), d("2"))
	if err := New(Policy{WeightFloor: true}).Validate(s); err != nil {
		t.Fatalf("charge equal to floor must pass, got %v", err)
	}
}

func TestCashTendered(t *testing.T) {
	s := newSession()
	_ = s.Select(1, true)
	_ = s.SetQuantity(1, 2)

	s.SetPayment(pricing.Payment{Method: domain.PaymentCash, NeedsChange: true, AmountReceived: d("15")})
	if kind := kindOf(t, New(Policy{}).Validate(s)); kind != KindInsufficientCash {
		t.Fatalf("expected insufficient payment, got %s", kind)
	}

	s.SetPayment(pricing.Payment{Method: domain.PaymentCash, NeedsChange: true, AmountReceived: d("25")})
	if err := New(Policy{}).Validate(s); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
	if !s.Change().Equal(d("5")) {
		t.Fatalf("expected change 5, got %s", s.Change())
	}

	s.SetPayment(pricing.Payment{Method: domain.PaymentCash, NeedsChange: false, AmountReceived: d("0")})
	if err := New(Policy{}).Validate(s); err != nil {
		t.Fatalf("cash without change request must not check tender, got %v", err)
	}
}

func TestCheckJudgesTheSnapshotItIsGiven(t *testing.T) {
	s := newSession()
	_ = s.Select(1, true)
	s.SetPayment(pricing.Payment{Method: domain.PaymentCash, NeedsChange: true, AmountReceived: d("10")})
	snap := s.Snapshot()

	// Later edits to the session must not leak into the snapshot under check.
	_ = s.SetQuantity(1, 5)
	_ = s.Select(3, true)

	if err := New(Policy{}).Check(snap); err != nil {
		t.Fatalf("expected snapshot to pass, got %v", err)
	}
	if kind := kindOf(t, New(Policy{}).Validate(s)); kind != KindOutOfStock {
		t.Fatalf("expected live session to fail on stock, got %s", kind)
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("enforce")
	if err != nil || !p.WeightFloor {
		t.Fatalf("expected enforce to enable floor, got %+v %v", p, err)
	}
	p, err = ParsePolicy("")
	if err != nil || p.WeightFloor {
		t.Fatalf("expected default off, got %+v %v", p, err)
	}
	if _, err := ParsePolicy("maybe"); err == nil {
		t.Fatalf("expected unknown policy error")
	}
}
