package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"estoque/internal/domain"
	"estoque/internal/store"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

func ParseDialect(raw string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", raw)
}

func (d Dialect) driverName() string {
	if d == MySQL {
		return "mysql"
	}
	return "pgx"
}

type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(ctx context.Context, dialect Dialect, databaseURL string) (*Store, error) {
	dsn := databaseURL
	if dialect == MySQL {
		cfg, err := mysql.ParseDSN(databaseURL)
		if err != nil {
			return nil, err
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		dsn = cfg.FormatDSN()
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rebind rewrites ? placeholders as $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, q queryer, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, q queryer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.rebind(query), args...)
}

// insert runs an INSERT and returns the generated id.
func (s *Store) insert(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	if s.dialect == Postgres {
		var id int64
		if err := s.queryRow(ctx, q, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := s.exec(ctx, q, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

const productColumns = `p.id, p.categoria, p.marca, p.detalhe, p.preco_compra, p.preco_venda, p.quantidade_estoque, p.vencimento, p.versao`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var expiration sql.NullTime
	if err := row.Scan(&p.ID, &p.Category, &p.Brand, &p.Description, &p.PurchasePrice, &p.SalePrice, &p.StockQuantity, &expiration, &p.Version); err != nil {
		return domain.Product{}, err
	}
	p.Expiration = formatDate(expiration)
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+productColumns+` FROM produtos p ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.getProduct(ctx, s.db, id)
}

func (s *Store) getProduct(ctx context.Context, q queryer, id int64) (*domain.Product, error) {
	p, err := scanProduct(s.queryRow(ctx, q, `SELECT `+productColumns+` FROM produtos p WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	id, err := s.insert(ctx, s.db, `
		INSERT INTO produtos (categoria, marca, detalhe, preco_compra, preco_venda, quantidade_estoque, vencimento, versao)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		product.Category, product.Brand, product.Description, product.PurchasePrice, product.SalePrice, product.StockQuantity, dateArg(product.Expiration))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.Conflict(store.DuplicateProductMessage)
		}
		return nil, err
	}
	product.ID = id
	product.Version = 1
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	var updated *domain.Product
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, `
			UPDATE produtos
			SET categoria = ?, marca = ?, detalhe = ?, preco_compra = ?, preco_venda = ?,
				quantidade_estoque = ?, vencimento = ?, versao = versao + 1
			WHERE id = ? AND (? = 0 OR versao = ?)`,
			product.Category, product.Brand, product.Description, product.PurchasePrice, product.SalePrice,
			product.StockQuantity, dateArg(product.Expiration), product.ID, product.Version, product.Version)
		if err != nil {
			if isUniqueViolation(err) {
				return store.Conflict(store.DuplicateProductMessage)
			}
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			if _, err := s.getProduct(ctx, tx, product.ID); err != nil {
				return err
			}
			return store.Conflict(store.StaleProductMessage)
		}
		updated, err = s.getProduct(ctx, tx, product.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM produtos WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.Conflict(store.ProductInUseMessage)
		}
		return err
	}
	return expectAffected(res)
}

const saleColumns = `id, produto_id, data_venda, categoria, produto, marca, preco_compra, preco_venda, quantidade_vendida, forma_pagamento, lucro`

func (s *Store) ListSales(ctx context.Context, category string) ([]domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM vendas`
	args := []any{}
	if !domain.IsAllCategory(category) {
		query += ` WHERE LOWER(categoria) = LOWER(?)`
		args = append(args, category)
	}
	query += ` ORDER BY id`

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 128)
	for rows.Next() {
		var sale domain.Sale
		var productID sql.NullInt64
		var saleDate sql.NullTime
		var method string
		var profit decimal.NullDecimal
		if err := rows.Scan(&sale.ID, &productID, &saleDate, &sale.Category, &sale.ProductName, &sale.Brand,
			&sale.PurchasePrice, &sale.SalePrice, &sale.QuantitySold, &method, &profit); err != nil {
			return nil, err
		}
		sale.ProductID = productID.Int64
		sale.SaleDate = formatDate(saleDate)
		sale.PaymentMethod = domain.PaymentMethod(method)
		if profit.Valid {
			value := profit.Decimal
			sale.Profit = &value
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.QuantitySold < 1 {
		return nil, store.ErrInvalid
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var productID any
		if sale.ProductID != 0 {
			productID = sale.ProductID
			if err := s.decrementStock(ctx, tx, sale.ProductID, sale.QuantitySold); err != nil {
				return err
			}
		}

		var profit any
		if sale.Profit != nil {
			profit = *sale.Profit
		}
		id, err := s.insert(ctx, tx, `
			INSERT INTO vendas (produto_id, data_venda, categoria, produto, marca, preco_compra, preco_venda, quantidade_vendida, forma_pagamento, lucro)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			productID, dateArg(sale.SaleDate), sale.Category, sale.ProductName, sale.Brand,
			sale.PurchasePrice, sale.SalePrice, sale.QuantitySold, string(sale.PaymentMethod), profit)
		if err != nil {
			return err
		}
		sale.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM vendas WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) decrementStock(ctx context.Context, q queryer, productID int64, qty int) error {
	res, err := s.exec(ctx, q, `
		UPDATE produtos
		SET quantidade_estoque = quantidade_estoque - ?, versao = versao + 1
		WHERE id = ? AND quantidade_estoque >= ?`, qty, productID, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := s.getProduct(ctx, q, productID); err != nil {
			return err
		}
		return store.ErrInsufficientStock
	}
	return nil
}

func (s *Store) incrementStock(ctx context.Context, q queryer, productID int64, qty int) error {
	res, err := s.exec(ctx, q, `
		UPDATE produtos
		SET quantidade_estoque = quantidade_estoque + ?, versao = versao + 1
		WHERE id = ?`, qty, productID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

const reposicaoSelect = `SELECT r.id, r.quantidade, r.data_entrada, r.vencimento, ` + productColumns + `
	FROM reposicoes r JOIN produtos p ON p.id = r.produto_id`

func scanReposicao(row rowScanner) (domain.Reposicao, error) {
	var rep domain.Reposicao
	var entry, expiration, productExpiration sql.NullTime
	var p domain.Product
	err := row.Scan(&rep.ID, &rep.Quantity, &entry, &expiration,
		&p.ID, &p.Category, &p.Brand, &p.Description, &p.PurchasePrice, &p.SalePrice, &p.StockQuantity, &productExpiration, &p.Version)
	if err != nil {
		return domain.Reposicao{}, err
	}
	p.Expiration = formatDate(productExpiration)
	rep.Product = p
	rep.EntryDate = formatDate(entry)
	rep.Expiration = formatDate(expiration)
	return rep, nil
}

func (s *Store) listReposicoes(ctx context.Context, where string, args ...any) ([]domain.Reposicao, error) {
	rows, err := s.query(ctx, s.db, reposicaoSelect+where+` ORDER BY r.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Reposicao, 0, 64)
	for rows.Next() {
		rep, err := scanReposicao(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListReposicoes(ctx context.Context) ([]domain.Reposicao, error) {
	return s.listReposicoes(ctx, "")
}

func (s *Store) ListReposicoesByProduct(ctx context.Context, productID int64) ([]domain.Reposicao, error) {
	return s.listReposicoes(ctx, ` WHERE r.produto_id = ?`, productID)
}

func (s *Store) GetReposicao(ctx context.Context, id int64) (*domain.Reposicao, error) {
	return s.getReposicao(ctx, s.db, id)
}

func (s *Store) getReposicao(ctx context.Context, q queryer, id int64) (*domain.Reposicao, error) {
	rep, err := scanReposicao(s.queryRow(ctx, q, reposicaoSelect+` WHERE r.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &rep, nil
}

func (s *Store) CreateReposicao(ctx context.Context, rep domain.Reposicao) (*domain.Reposicao, error) {
	if rep.Quantity < 1 {
		return nil, store.ErrInvalid
	}

	var created *domain.Reposicao
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.incrementStock(ctx, tx, rep.Product.ID, rep.Quantity); err != nil {
			return err
		}
		id, err := s.insert(ctx, tx, `
			INSERT INTO reposicoes (produto_id, quantidade, data_entrada, vencimento)
			VALUES (?, ?, ?, ?)`,
			rep.Product.ID, rep.Quantity, dateArg(rep.EntryDate), dateArg(rep.Expiration))
		if err != nil {
			return err
		}
		created, err = s.getReposicao(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateReposicao(ctx context.Context, rep domain.Reposicao) (*domain.Reposicao, error) {
	if rep.Quantity < 1 {
		return nil, store.ErrInvalid
	}

	var updated *domain.Reposicao
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.getReposicao(ctx, tx, rep.ID)
		if err != nil {
			return err
		}
		if err := s.moveRestock(ctx, tx, existing, rep); err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, `
			UPDATE reposicoes
			SET produto_id = ?, quantidade = ?, data_entrada = ?, vencimento = ?
			WHERE id = ?`,
			rep.Product.ID, rep.Quantity, dateArg(rep.EntryDate), dateArg(rep.Expiration), rep.ID); err != nil {
			return err
		}
		updated, err = s.getReposicao(ctx, tx, rep.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// moveRestock applies the stock side of a restock edit. Same product edits
// apply only the net difference, so units sold since the entry do not block it.
func (s *Store) moveRestock(ctx context.Context, q queryer, existing *domain.Reposicao, rep domain.Reposicao) error {
	if existing.Product.ID == rep.Product.ID {
		delta := rep.Quantity - existing.Quantity
		switch {
		case delta > 0:
			return s.incrementStock(ctx, q, rep.Product.ID, delta)
		case delta < 0:
			return s.decrementStock(ctx, q, rep.Product.ID, -delta)
		}
		return nil
	}
	if err := s.decrementStock(ctx, q, existing.Product.ID, existing.Quantity); err != nil {
		return err
	}
	return s.incrementStock(ctx, q, rep.Product.ID, rep.Quantity)
}

func (s *Store) DeleteReposicao(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.getReposicao(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.decrementStock(ctx, tx, existing.Product.ID, existing.Quantity); err != nil {
			return err
		}
		res, err := s.exec(ctx, tx, `DELETE FROM reposicoes WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return expectAffected(res)
	})
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func dateArg(value string) any {
	t, ok := domain.ParseDate(value)
	if !ok {
		return nil
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatDate(value sql.NullTime) string {
	if !value.Valid {
		return ""
	}
	return value.Time.Format(domain.DateLayout)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1451
	}
	return false
}
