package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"estoque/internal/domain"
	"estoque/internal/store"
)

type reposicaoRow struct {
	id         int64
	productID  int64
	quantity   int
	entryDate  string
	expiration string
}

type Store struct {
	mu            sync.RWMutex
	products      map[int64]domain.Product
	sales         map[int64]domain.Sale
	reposicoes    map[int64]reposicaoRow
	nextProductID int64
	nextSaleID    int64
	nextRepID     int64
}

func New() *Store {
	return &Store{
		products:   make(map[int64]domain.Product),
		sales:      make(map[int64]domain.Sale),
		reposicoes: make(map[int64]reposicaoRow),
	}
}

func NewSeeded() *Store {
	s := New()
	expiration := time.Now().AddDate(0, 3, 0).Format(domain.DateLayout)
	products := []domain.Product{
		{Category: domain.CategoryMeat, Brand: "Friboi", Description: "Picanha kg", PurchasePrice: dec("49.90"), SalePrice: dec("79.90"), StockQuantity: 12, Expiration: expiration},
		{Category: domain.CategoryMeat, Brand: "Seara", Description: "Linguiça Toscana kg", PurchasePrice: dec("14.50"), SalePrice: dec("24.90"), StockQuantity: 20, Expiration: expiration},
		{Category: domain.CategorySpices, Brand: "Kitano", Description: "Orégano 10g", PurchasePrice: dec("2.10"), SalePrice: dec("4.50"), StockQuantity: 40},
		{Category: domain.CategorySpices, Brand: "Cisne", Description: "Sal Grosso 1kg", PurchasePrice: dec("3.20"), SalePrice: dec("6.90"), StockQuantity: 25},
		{Category: domain.CategoryDrinks, Brand: "Guaraná Antarctica", Description: "Refrigerante 2L", PurchasePrice: dec("5.80"), SalePrice: dec("9.99"), StockQuantity: 36},
		{Category: domain.CategoryDrinks, Brand: "Heineken", Description: "Cerveja Long Neck 330ml", PurchasePrice: dec("4.40"), SalePrice: dec("7.50"), StockQuantity: 48},
		{Category: domain.CategoryDeli, Brand: "Sadia", Description: "Presunto Fatiado kg", PurchasePrice: dec("22.00"), SalePrice: dec("36.90"), StockQuantity: 8, Expiration: expiration},
		{Category: domain.CategoryDeli, Brand: "Tirolez", Description: "Queijo Mussarela kg", PurchasePrice: dec("29.00"), SalePrice: dec("47.90"), StockQuantity: 0, Expiration: expiration},
		{Category: domain.CategorySweets, Brand: "Nestlé", Description: "Leite Condensado 395g", PurchasePrice: dec("4.90"), SalePrice: dec("8.49"), StockQuantity: 30},
		{Category: domain.CategorySweets, Brand: "Garoto", Description: "Bombom Sortido 250g", PurchasePrice: dec("9.50"), SalePrice: dec("15.90"), StockQuantity: 15},
	}
	for _, p := range products {
		s.nextProductID++
		p.ID = s.nextProductID
		p.Version = 1
		s.products[p.ID] = p
	}
	return s
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.duplicateLocked(product, 0) {
		return nil, store.Conflict(store.DuplicateProductMessage)
	}
	s.nextProductID++
	product.ID = s.nextProductID
	product.Version = 1
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if product.Version != 0 && product.Version != existing.Version {
		return nil, store.Conflict(store.StaleProductMessage)
	}
	if s.duplicateLocked(product, product.ID) {
		return nil, store.Conflict(store.DuplicateProductMessage)
	}
	product.Version = existing.Version + 1
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	for _, rep := range s.reposicoes {
		if rep.productID == id {
			return store.Conflict(store.ProductInUseMessage)
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) ListSales(_ context.Context, category string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if !domain.IsAllCategory(category) && !strings.EqualFold(sale.Category, category) {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return sales, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.QuantitySold < 1 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ProductID != 0 {
		product, ok := s.products[sale.ProductID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if product.StockQuantity < sale.QuantitySold {
			return nil, store.ErrInsufficientStock
		}
		product.StockQuantity -= sale.QuantitySold
		product.Version++
		s.products[product.ID] = product
	}

	s.nextSaleID++
	sale.ID = s.nextSaleID
	s.sales[sale.ID] = cloneSale(sale)
	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) DeleteSale(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.sales, id)
	return nil
}

func (s *Store) ListReposicoes(_ context.Context) ([]domain.Reposicao, error) {
	return s.listReposicoes(func(reposicaoRow) bool { return true }), nil
}

func (s *Store) ListReposicoesByProduct(_ context.Context, productID int64) ([]domain.Reposicao, error) {
	return s.listReposicoes(func(row reposicaoRow) bool { return row.productID == productID }), nil
}

func (s *Store) GetReposicao(_ context.Context, id int64) (*domain.Reposicao, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.reposicoes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	rep := s.toReposicaoLocked(row)
	return &rep, nil
}

func (s *Store) CreateReposicao(_ context.Context, rep domain.Reposicao) (*domain.Reposicao, error) {
	if rep.Quantity < 1 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adjustStockLocked(rep.Product.ID, rep.Quantity); err != nil {
		return nil, err
	}
	s.nextRepID++
	row := reposicaoRow{
		id:         s.nextRepID,
		productID:  rep.Product.ID,
		quantity:   rep.Quantity,
		entryDate:  rep.EntryDate,
		expiration: rep.Expiration,
	}
	s.reposicoes[row.id] = row
	created := s.toReposicaoLocked(row)
	return &created, nil
}

func (s *Store) UpdateReposicao(_ context.Context, rep domain.Reposicao) (*domain.Reposicao, error) {
	if rep.Quantity < 1 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.reposicoes[rep.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.products[rep.Product.ID]; !ok {
		return nil, store.ErrNotFound
	}

	if row.productID == rep.Product.ID {
		if delta := rep.Quantity - row.quantity; delta != 0 {
			if err := s.adjustStockLocked(row.productID, delta); err != nil {
				return nil, err
			}
		}
	} else {
		if err := s.adjustStockLocked(row.productID, -row.quantity); err != nil {
			return nil, err
		}
		if err := s.adjustStockLocked(rep.Product.ID, rep.Quantity); err != nil {
			_ = s.adjustStockLocked(row.productID, row.quantity)
			return nil, err
		}
	}

	row.productID = rep.Product.ID
	row.quantity = rep.Quantity
	row.entryDate = rep.EntryDate
	row.expiration = rep.Expiration
	s.reposicoes[row.id] = row
	updated := s.toReposicaoLocked(row)
	return &updated, nil
}

func (s *Store) DeleteReposicao(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.reposicoes[id]
	if !ok {
		return store.ErrNotFound
	}
	if err := s.adjustStockLocked(row.productID, -row.quantity); err != nil {
		return err
	}
	delete(s.reposicoes, id)
	return nil
}

func (s *Store) listReposicoes(keep func(reposicaoRow) bool) []domain.Reposicao {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Reposicao, 0, len(s.reposicoes))
	for _, row := range s.reposicoes {
		if keep(row) {
			out = append(out, s.toReposicaoLocked(row))
		}
	}
	slices.SortFunc(out, func(a, b domain.Reposicao) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *Store) toReposicaoLocked(row reposicaoRow) domain.Reposicao {
	product := s.products[row.productID]
	if product.ID == 0 {
		product.ID = row.productID
	}
	return domain.Reposicao{
		ID:         row.id,
		Product:    product,
		Quantity:   row.quantity,
		EntryDate:  row.entryDate,
		Expiration: row.expiration,
	}
}

func (s *Store) adjustStockLocked(productID int64, delta int) error {
	product, ok := s.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	if product.StockQuantity+delta < 0 {
		return store.ErrInsufficientStock
	}
	product.StockQuantity += delta
	product.Version++
	s.products[productID] = product
	return nil
}

func (s *Store) duplicateLocked(product domain.Product, ignoreID int64) bool {
	for id, existing := range s.products {
		if id == ignoreID {
			continue
		}
		if strings.EqualFold(existing.Category, product.Category) &&
			strings.EqualFold(strings.TrimSpace(existing.Brand), strings.TrimSpace(product.Brand)) &&
			strings.EqualFold(existing.Name(), product.Name()) {
			return true
		}
	}
	return false
}

func cloneSale(src domain.Sale) domain.Sale {
	dst := src
	if src.Profit != nil {
		profit := *src.Profit
		dst.Profit = &profit
	}
	return dst
}
