// Package view keeps filtered, paginated copies of the store's lists and
// reloads them when a change event arrives.
package view

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"estoque/internal/domain"
	"estoque/internal/events"
	"estoque/internal/filter"
	"estoque/internal/paging"
)

const (
	PickerPageSize    = 5
	ProductPageSize   = 10
	SalesPageSize     = 10
	ReposicaoPageSize = 15
)

type ProductSource interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

type SaleSource interface {
	ListSales(ctx context.Context, category string) ([]domain.Sale, error)
	SalesSummary(ctx context.Context) (domain.SalesSummary, error)
}

type ReposicaoSource interface {
	ListReposicoes(ctx context.Context) ([]domain.Reposicao, error)
}

// attach subscribes refresh to kinds. Failed refreshes keep the old data.
func attach(bus events.Bus, logger *zap.Logger, name string, refresh func(context.Context) error, kinds ...events.Kind) func() {
	return bus.Subscribe(events.Only(func(ctx context.Context, ev events.Event) {
		if err := refresh(ctx); err != nil {
			logger.Warn("view refresh failed", zap.String("view", name), zap.String("event", string(ev.Kind)), zap.Error(err))
		}
	}, kinds...))
}

type ProductsView struct {
	mu       sync.RWMutex
	src      ProductSource
	logger   *zap.Logger
	all      []domain.Product
	filtered []domain.Product
	filter   filter.ProductFilter
	pager    *paging.Pager
}

func NewProductsView(src ProductSource, pageSize int, logger *zap.Logger) *ProductsView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductsView{src: src, logger: logger, pager: paging.NewPager(pageSize)}
}

func (v *ProductsView) Refresh(ctx context.Context) error {
	products, err := v.src.ListProducts(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.all = products
	v.apply()
	return nil
}

// SetFilter changes the filter and goes back to page 1.
func (v *ProductsView) SetFilter(f filter.ProductFilter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = f
	v.pager.Reset()
	v.apply()
}

func (v *ProductsView) apply() {
	v.filtered = filter.Products(v.all, v.filter)
	v.pager.SetCount(len(v.filtered))
}

func (v *ProductsView) Goto(page int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pager.Goto(page)
}

func (v *ProductsView) Page() paging.Page[domain.Product] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return paging.Paginate(v.filtered, v.pager.Size(), v.pager.Current())
}

// All is the unfiltered catalog from the last refresh.
func (v *ProductsView) All() []domain.Product {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]domain.Product(nil), v.all...)
}

func (v *ProductsView) Attach(bus events.Bus) func() {
	return attach(bus, v.logger, "products", v.Refresh,
		events.KindProductChanged, events.KindSaleCreated, events.KindSaleDeleted, events.KindReposicaoChanged)
}

// SalesView holds the ledger and the store's summary. The summary always
// covers every sale regardless of the filter.
type SalesView struct {
	mu       sync.RWMutex
	src      SaleSource
	logger   *zap.Logger
	all      []domain.Sale
	filtered []domain.Sale
	summary  domain.SalesSummary
	filter   filter.PeriodFilter
	pager    *paging.Pager
}

func NewSalesView(src SaleSource, pageSize int, logger *zap.Logger) *SalesView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalesView{src: src, logger: logger, pager: paging.NewPager(pageSize)}
}

func (v *SalesView) Refresh(ctx context.Context) error {
	sales, err := v.src.ListSales(ctx, domain.CategoryAll)
	if err != nil {
		return err
	}
	summary, err := v.src.SalesSummary(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.all = sales
	v.summary = summary
	v.apply()
	return nil
}

func (v *SalesView) SetFilter(f filter.PeriodFilter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = f
	v.pager.Reset()
	v.apply()
}

func (v *SalesView) apply() {
	v.filtered = filter.Sales(v.all, v.filter)
	v.pager.SetCount(len(v.filtered))
}

func (v *SalesView) Goto(page int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pager.Goto(page)
}

func (v *SalesView) Page() paging.Page[domain.Sale] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return paging.Paginate(v.filtered, v.pager.Size(), v.pager.Current())
}

func (v *SalesView) Summary() domain.SalesSummary {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.summary
}

func (v *SalesView) Attach(bus events.Bus) func() {
	return attach(bus, v.logger, "sales", v.Refresh, events.KindSaleCreated, events.KindSaleDeleted)
}

type ReposicoesView struct {
	mu       sync.RWMutex
	src      ReposicaoSource
	logger   *zap.Logger
	all      []domain.Reposicao
	filtered []domain.Reposicao
	filter   filter.PeriodFilter
	pager    *paging.Pager
}

func NewReposicoesView(src ReposicaoSource, pageSize int, logger *zap.Logger) *ReposicoesView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReposicoesView{src: src, logger: logger, pager: paging.NewPager(pageSize)}
}

func (v *ReposicoesView) Refresh(ctx context.Context) error {
	reps, err := v.src.ListReposicoes(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.all = reps
	v.apply()
	return nil
}

func (v *ReposicoesView) SetFilter(f filter.PeriodFilter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = f
	v.pager.Reset()
	v.apply()
}

func (v *ReposicoesView) apply() {
	v.filtered = filter.Reposicoes(v.all, v.filter)
	v.pager.SetCount(len(v.filtered))
}

func (v *ReposicoesView) Goto(page int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pager.Goto(page)
}

func (v *ReposicoesView) Page() paging.Page[domain.Reposicao] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return paging.Paginate(v.filtered, v.pager.Size(), v.pager.Current())
}

func (v *ReposicoesView) Attach(bus events.Bus) func() {
	return attach(bus, v.logger, "reposicoes", v.Refresh, events.KindReposicaoChanged, events.KindProductChanged)
}
