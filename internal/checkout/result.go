package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"estoque/internal/domain"
	"estoque/internal/pricing"
	"estoque/internal/store"
	"estoque/internal/validation"
)

// ErrSubmissionTimeout means the batch deadline passed before every item
// answered. Items may or may not have been recorded.
var ErrSubmissionTimeout = errors.New("sale submission timed out")

type Outcome struct {
	Line pricing.Line
	Sale *domain.Sale
	Err  error
}

func (o Outcome) OK() bool {
	return o.Err == nil && o.Sale != nil
}

// Snapshot is the state reloaded after a successful sale.
type Snapshot struct {
	Products []domain.Product
	Sales    []domain.Sale
	Summary  domain.SalesSummary
}

// Result reports every item of a batch. There is no rollback, so a failed
// batch can still have committed items.
type Result struct {
	BatchID  string
	Outcomes []Outcome
	Totals   pricing.Totals
	Change   decimal.Decimal

	Snapshot     *Snapshot
	ReconcileErr error
}

func (r *Result) OK() bool {
	for _, o := range r.Outcomes {
		if !o.OK() {
			return false
		}
	}
	return len(r.Outcomes) > 0
}

func (r *Result) Committed() []Outcome {
	out := make([]Outcome, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.OK() {
			out = append(out, o)
		}
	}
	return out
}

func (r *Result) Failed() []Outcome {
	out := make([]Outcome, 0)
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// BatchError is returned when at least one item of the batch failed.
type BatchError struct {
	Result *Result
	Fatal  bool
	Err    error
}

func (e *BatchError) Error() string {
	failed := len(e.Result.Failed())
	total := len(e.Result.Outcomes)
	if e.Fatal {
		return fmt.Sprintf("sale batch %s timed out: %d of %d items unconfirmed: %v", e.Result.BatchID, failed, total, e.Err)
	}
	return fmt.Sprintf("sale batch %s failed: %d of %d items failed: %v", e.Result.BatchID, failed, total, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

const (
	genericFailureMessage = "The sale was not completed. Please try again."
	timeoutMessage        = "The sale timed out. Check the sales ledger before trying again."
	stockMessage          = "Not enough stock to complete the sale."
)

// UserMessage turns an error from Submit into the text shown to the operator.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	if errors.Is(err, ErrSubmissionTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return timeoutMessage
	}
	var conflict *store.ConflictError
	if errors.As(err, &conflict) {
		return conflict.Message
	}
	if errors.Is(err, store.ErrInsufficientStock) {
		return stockMessage
	}
	return genericFailureMessage
}
