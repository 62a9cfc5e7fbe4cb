package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"estoque/internal/cache"
	"estoque/internal/domain"
	"estoque/internal/events"
	"estoque/internal/filter"
	"estoque/internal/metrics"
	"estoque/internal/store"
)

const summaryCacheKey = "sales:summary"

type Options struct {
	Cache      cache.SummaryCache
	SummaryTTL time.Duration
	Bus        events.Bus
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	Location   *time.Location
}

type Service struct {
	repo       store.Repository
	cache      cache.SummaryCache
	summaryTTL time.Duration
	bus        events.Bus
	metrics    *metrics.Metrics
	logger     *zap.Logger
	loc        *time.Location
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NoopSummaryCache{}
	}
	if opts.SummaryTTL <= 0 {
		opts.SummaryTTL = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	return &Service{
		repo:       repo,
		cache:      opts.Cache,
		summaryTTL: opts.SummaryTTL,
		bus:        opts.Bus,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		loc:        opts.Location,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	product, err := normalizeProduct(product)
	if err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("product created", zap.Int64("product_id", created.ID), zap.String("product", created.Name()))
	s.publish(ctx, events.KindProductChanged)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, product domain.Product) (domain.Product, error) {
	if id < 1 {
		return domain.Product{}, store.ErrInvalid
	}
	product, err := normalizeProduct(product)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = id

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.logger.Warn("product update conflict", zap.Int64("product_id", id), zap.Int("version", product.Version), zap.Error(err))
		}
		return domain.Product{}, err
	}

	s.publish(ctx, events.KindProductChanged)
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.Int64("product_id", id))
	s.publish(ctx, events.KindProductChanged)
	return nil
}

func (s *Service) ListSales(ctx context.Context, category string) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, strings.TrimSpace(category))
}

func (s *Service) CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	sale, err := s.normalizeSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			s.metrics.StockRejected()
			s.logger.Warn("sale refused, not enough stock",
				zap.Int64("product_id", sale.ProductID),
				zap.Int("quantity", sale.QuantitySold))
		}
		return domain.Sale{}, err
	}

	s.metrics.SaleCreated(created.Category, string(created.PaymentMethod))
	s.invalidateSummary(ctx)
	s.logger.Info("sale created",
		zap.Int64("sale_id", created.ID),
		zap.Int64("product_id", created.ProductID),
		zap.Int("quantity", created.QuantitySold),
		zap.String("sale_price", created.SalePrice.String()),
		zap.String("payment_method", string(created.PaymentMethod)))
	s.publish(ctx, events.KindSaleCreated)
	return *created, nil
}

func (s *Service) DeleteSale(ctx context.Context, id int64) error {
	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return err
	}
	s.invalidateSummary(ctx)
	s.logger.Info("sale deleted", zap.Int64("sale_id", id))
	s.publish(ctx, events.KindSaleDeleted)
	return nil
}

func (s *Service) SalesSummary(ctx context.Context) (domain.SalesSummary, error) {
	cached, ok, err := s.cache.Get(ctx, summaryCacheKey)
	if err != nil {
		s.logger.Warn("summary cache read failed", zap.Error(err))
	}
	s.metrics.SummaryCache(ok)
	if ok && cached != nil {
		return *cached, nil
	}

	sales, err := s.repo.ListSales(ctx, domain.CategoryAll)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	summary := Summarize(sales)

	if err := s.cache.Set(ctx, summaryCacheKey, &summary, s.summaryTTL); err != nil {
		s.logger.Warn("summary cache write failed", zap.Error(err))
	}
	return summary, nil
}

func (s *Service) MonthlyTotals(ctx context.Context, year int) ([]domain.MonthlyTotals, error) {
	if year < 1 {
		year = time.Now().In(s.loc).Year()
	}
	sales, err := s.repo.ListSales(ctx, domain.CategoryAll)
	if err != nil {
		return nil, err
	}
	return filter.MonthlyTotals(sales, year), nil
}

func (s *Service) ListReposicoes(ctx context.Context) ([]domain.Reposicao, error) {
	return s.repo.ListReposicoes(ctx)
}

func (s *Service) ListReposicoesByProduct(ctx context.Context, productID int64) ([]domain.Reposicao, error) {
	return s.repo.ListReposicoesByProduct(ctx, productID)
}

func (s *Service) GetReposicao(ctx context.Context, id int64) (domain.Reposicao, error) {
	rep, err := s.repo.GetReposicao(ctx, id)
	if err != nil {
		return domain.Reposicao{}, err
	}
	return *rep, nil
}

func (s *Service) CreateReposicao(ctx context.Context, rep domain.Reposicao) (domain.Reposicao, error) {
	rep, err := s.normalizeReposicao(rep)
	if err != nil {
		return domain.Reposicao{}, err
	}

	created, err := s.repo.CreateReposicao(ctx, rep)
	if err != nil {
		return domain.Reposicao{}, err
	}

	s.logger.Info("reposicao created",
		zap.Int64("reposicao_id", created.ID),
		zap.Int64("product_id", created.Product.ID),
		zap.Int("quantity", created.Quantity))
	s.publish(ctx, events.KindReposicaoChanged)
	return *created, nil
}

func (s *Service) UpdateReposicao(ctx context.Context, id int64, rep domain.Reposicao) (domain.Reposicao, error) {
	if id < 1 {
		return domain.Reposicao{}, store.ErrInvalid
	}
	rep, err := s.normalizeReposicao(rep)
	if err != nil {
		return domain.Reposicao{}, err
	}
	rep.ID = id

	updated, err := s.repo.UpdateReposicao(ctx, rep)
	if err != nil {
		return domain.Reposicao{}, err
	}
	s.publish(ctx, events.KindReposicaoChanged)
	return *updated, nil
}

func (s *Service) DeleteReposicao(ctx context.Context, id int64) error {
	if err := s.repo.DeleteReposicao(ctx, id); err != nil {
		return err
	}
	s.logger.Info("reposicao deleted", zap.Int64("reposicao_id", id))
	s.publish(ctx, events.KindReposicaoChanged)
	return nil
}

// Summarize aggregates the sales ledger. Margin is gross profit over total
// sold, as a percentage rounded to two places.
func Summarize(sales []domain.Sale) domain.SalesSummary {
	summary := domain.SalesSummary{
		TotalSold:    decimal.Zero,
		TotalCost:    decimal.Zero,
		GrossProfit:  decimal.Zero,
		ProfitMargin: decimal.Zero,
	}
	for _, sale := range sales {
		summary.TotalSold = summary.TotalSold.Add(sale.Revenue())
		summary.TotalCost = summary.TotalCost.Add(sale.Cost())
		summary.GrossProfit = summary.GrossProfit.Add(sale.LineProfit())
	}
	if summary.TotalSold.IsPositive() {
		summary.ProfitMargin = summary.GrossProfit.Div(summary.TotalSold).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return summary
}

func (s *Service) normalizeSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	if sale.QuantitySold < 1 {
		return domain.Sale{}, fmt.Errorf("%w: quantidadeVendida must be at least 1", store.ErrInvalid)
	}
	sale.PaymentMethod = domain.PaymentMethod(strings.ToLower(strings.TrimSpace(string(sale.PaymentMethod))))
	if !sale.PaymentMethod.Valid() {
		return domain.Sale{}, fmt.Errorf("%w: unsupported formaPagamento %q", store.ErrInvalid, sale.PaymentMethod)
	}
	if sale.SalePrice.IsNegative() || sale.PurchasePrice.IsNegative() {
		return domain.Sale{}, fmt.Errorf("%w: prices must not be negative", store.ErrInvalid)
	}

	if sale.ProductID != 0 && (sale.ProductName == "" || sale.Category == "") {
		product, err := s.repo.GetProduct(ctx, sale.ProductID)
		if err != nil {
			return domain.Sale{}, err
		}
		if sale.ProductName == "" {
			sale.ProductName = product.Name()
		}
		if sale.Category == "" {
			sale.Category = product.Category
		}
		if sale.Brand == "" {
			sale.Brand = product.Brand
		}
	}
	sale.ProductName = strings.TrimSpace(sale.ProductName)
	sale.Category = strings.TrimSpace(sale.Category)
	if sale.ProductName == "" || sale.Category == "" {
		return domain.Sale{}, fmt.Errorf("%w: produto and categoria are required", store.ErrInvalid)
	}

	if strings.TrimSpace(sale.SaleDate) == "" {
		sale.SaleDate = domain.Today(s.loc)
	}
	if _, ok := domain.ParseDate(sale.SaleDate); !ok {
		return domain.Sale{}, fmt.Errorf("%w: invalid dataVenda %q", store.ErrInvalid, sale.SaleDate)
	}
	sale.SaleDate = domain.NormalizeDate(sale.SaleDate)

	if sale.Profit == nil {
		profit := sale.LineProfit()
		sale.Profit = &profit
	}
	return sale, nil
}

func (s *Service) normalizeReposicao(rep domain.Reposicao) (domain.Reposicao, error) {
	if rep.Product.ID < 1 {
		return domain.Reposicao{}, fmt.Errorf("%w: produto is required", store.ErrInvalid)
	}
	if rep.Quantity < 1 {
		return domain.Reposicao{}, fmt.Errorf("%w: quantidade must be at least 1", store.ErrInvalid)
	}
	if strings.TrimSpace(rep.EntryDate) == "" {
		rep.EntryDate = domain.Today(s.loc)
	}
	if _, ok := domain.ParseDate(rep.EntryDate); !ok {
		return domain.Reposicao{}, fmt.Errorf("%w: invalid dataEntrada %q", store.ErrInvalid, rep.EntryDate)
	}
	rep.EntryDate = domain.NormalizeDate(rep.EntryDate)
	rep.Expiration = domain.NormalizeDate(strings.TrimSpace(rep.Expiration))
	return rep, nil
}

func normalizeProduct(product domain.Product) (domain.Product, error) {
	product.Category = strings.TrimSpace(product.Category)
	product.Brand = strings.TrimSpace(product.Brand)
	product.Description = strings.TrimSpace(product.Description)

	if !domain.IsKnownCategory(product.Category) {
		return domain.Product{}, fmt.Errorf("%w: unknown categoria %q", store.ErrInvalid, product.Category)
	}
	for _, c := range domain.Categories {
		if strings.EqualFold(c, product.Category) {
			product.Category = c
		}
	}
	if product.Brand == "" || product.Description == "" {
		return domain.Product{}, fmt.Errorf("%w: marca and detalhe are required", store.ErrInvalid)
	}
	if product.PurchasePrice.IsNegative() || product.SalePrice.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: prices must not be negative", store.ErrInvalid)
	}
	if product.StockQuantity < 0 {
		return domain.Product{}, fmt.Errorf("%w: quantidadeEstoque must not be negative", store.ErrInvalid)
	}
	if product.Expiration != "" {
		if _, ok := domain.ParseDate(product.Expiration); !ok {
			return domain.Product{}, fmt.Errorf("%w: invalid vencimento %q", store.ErrInvalid, product.Expiration)
		}
		product.Expiration = domain.NormalizeDate(product.Expiration)
	}
	return product, nil
}

func (s *Service) invalidateSummary(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, summaryCacheKey); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, kind events.Kind) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, events.New(kind)); err != nil {
		s.logger.Warn("event publish failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}
