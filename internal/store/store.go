package store

import (
	"context"
	"errors"

	"estoque/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalid           = errors.New("invalid record")
	ErrConflict          = errors.New("conflict")
)

const (
	DuplicateProductMessage = "Já existe um produto com esta categoria, marca e detalhe."
	StaleProductMessage     = "O produto foi alterado por outra operação. Recarregue a lista e tente novamente."
	ProductInUseMessage     = "O produto possui reposições registradas e não pode ser excluído."
)

// ConflictError carries a message meant to be shown to the user as is.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func Conflict(message string) error {
	return &ConflictError{Message: message}
}

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListSales(ctx context.Context, category string) ([]domain.Sale, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	DeleteSale(ctx context.Context, id int64) error

	ListReposicoes(ctx context.Context) ([]domain.Reposicao, error)
	ListReposicoesByProduct(ctx context.Context, productID int64) ([]domain.Reposicao, error)
	GetReposicao(ctx context.Context, id int64) (*domain.Reposicao, error)
	CreateReposicao(ctx context.Context, rep domain.Reposicao) (*domain.Reposicao, error)
	UpdateReposicao(ctx context.Context, rep domain.Reposicao) (*domain.Reposicao, error)
	DeleteReposicao(ctx context.Context, id int64) error
}
