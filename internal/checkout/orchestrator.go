package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"estoque/internal/domain"
	"estoque/internal/events"
	"estoque/internal/pricing"
	"estoque/internal/selection"
	"estoque/internal/validation"
	"estoque/internal/xid"
)

// Store is the part of the product and sale store a checkout needs.
type Store interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error)
	ListSales(ctx context.Context, category string) ([]domain.Sale, error)
	SalesSummary(ctx context.Context) (domain.SalesSummary, error)
}

type Options struct {
	// Timeout bounds the whole batch. Zero means 15 seconds.
	Timeout time.Duration
	// Concurrency caps in-flight submissions. Zero sends every item at once.
	Concurrency int
	Location    *time.Location
	// Bus receives one sale.created per committed batch. Leave it nil when
	// the Store already publishes per sale, as service.Service does, or
	// subscribers refresh once more than needed.
	Bus    events.Bus
	Logger *zap.Logger
}

type Orchestrator struct {
	store       Store
	validator   *validation.Validator
	timeout     time.Duration
	concurrency int
	loc         *time.Location
	bus         events.Bus
	logger      *zap.Logger
}

func New(store Store, validator *validation.Validator, opts Options) *Orchestrator {
	if validator == nil {
		validator = validation.New(validation.Policy{})
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Orchestrator{
		store:       store,
		validator:   validator,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		loc:         opts.Location,
		bus:         opts.Bus,
		logger:      opts.Logger,
	}
}

// BuildSale turns a selected line into the record sent to the store.
func BuildSale(l pricing.Line, method domain.PaymentMethod, date string) domain.Sale {
	profit := pricing.Profit(l.Product, l.Item)
	return domain.Sale{
		ProductID:     l.Product.ID,
		SaleDate:      date,
		Category:      l.Product.Category,
		ProductName:   l.Product.Name(),
		Brand:         l.Product.Brand,
		PurchasePrice: l.Product.PurchasePrice,
		SalePrice:     pricing.UnitPrice(l.Product, l.Item),
		QuantitySold:  l.Item.Quantity,
		PaymentMethod: method,
		Profit:        &profit,
	}
}

// Submit validates the session and records one sale per selected product.
//
// A validation failure returns a *validation.ValidationError before anything
// is sent. Otherwise all items are sent concurrently and the returned Result
// lists each outcome. If any item failed the error is a *BatchError and the
// session is left as it was. On success the catalog, ledger and summary are
// reloaded and the session is reseeded from the new catalog.
func (o *Orchestrator) Submit(ctx context.Context, s *selection.Session) (*Result, error) {
	snap := s.Snapshot()
	if err := o.validator.Check(snap); err != nil {
		return nil, err
	}

	lines := snap.Lines
	pay := snap.Payment
	totals := pricing.Sum(lines)
	result := &Result{
		BatchID:  xid.New("batch"),
		Outcomes: make([]Outcome, len(lines)),
		Totals:   totals,
		Change:   pricing.Change(pay, totals.Total),
	}
	date := domain.Today(o.loc)

	batchCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	startedAt := time.Now()
	for i, line := range lines {
		i := i
		result.Outcomes[i].Line = line
		sale := BuildSale(line, pay.Method, date)
		g.Go(func() error {
			created, err := o.store.CreateSale(batchCtx, sale)
			if err != nil {
				result.Outcomes[i].Err = err
				return nil
			}
			result.Outcomes[i].Sale = &created
			return nil
		})
	}
	_ = g.Wait()

	failed := result.Failed()
	if len(failed) > 0 {
		fatal := errors.Is(batchCtx.Err(), context.DeadlineExceeded)
		cause := failed[0].Err
		if fatal {
			cause = fmt.Errorf("%w after %s: %w", ErrSubmissionTimeout, o.timeout, cause)
		}
		o.logger.Error("sale batch failed",
			zap.String("batch_id", result.BatchID),
			zap.Int("items", len(lines)),
			zap.Int("failed", len(failed)),
			zap.Int("committed", len(lines)-len(failed)),
			zap.Bool("fatal", fatal),
			zap.Error(cause))
		return result, &BatchError{Result: result, Fatal: fatal, Err: cause}
	}

	o.logger.Info("sale batch committed",
		zap.String("batch_id", result.BatchID),
		zap.Int("items", len(lines)),
		zap.String("total", pricing.Display(totals.Total)),
		zap.Duration("elapsed", time.Since(startedAt)))

	// Batch level event for stores that do not publish themselves.
	if o.bus != nil {
		if err := o.bus.Publish(ctx, events.New(events.KindSaleCreated)); err != nil {
			o.logger.Warn("sale event publish failed", zap.String("batch_id", result.BatchID), zap.Error(err))
		}
	}

	snapshot, err := o.Reconcile(ctx)
	if err != nil {
		result.ReconcileErr = err
		o.logger.Warn("reload after sale failed", zap.String("batch_id", result.BatchID), zap.Error(err))
		s.Reset()
		return result, nil
	}
	result.Snapshot = snapshot
	s.Reseed(snapshot.Products)
	return result, nil
}

// Reconcile reloads the catalog, the full sales ledger and the summary.
func (o *Orchestrator) Reconcile(ctx context.Context) (*Snapshot, error) {
	products, err := o.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload products: %w", err)
	}
	sales, err := o.store.ListSales(ctx, domain.CategoryAll)
	if err != nil {
		return nil, fmt.Errorf("reload sales: %w", err)
	}
	summary, err := o.store.SalesSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload summary: %w", err)
	}
	return &Snapshot{Products: products, Sales: sales, Summary: summary}, nil
}
