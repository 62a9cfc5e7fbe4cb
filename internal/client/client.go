// Package client talks to the estoque HTTP API. It satisfies checkout.Store
// so the terminal can run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"estoque/internal/domain"
	"estoque/internal/store"
)

const (
	defaultTimeout   = 10 * time.Second
	transportMessage = "Não foi possível comunicar com o servidor."
)

// TransportError is any failure other than a conflict: network errors,
// unexpected statuses and undecodable bodies. Message is safe to show.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("estoque api: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("estoque api: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	err := c.do(ctx, http.MethodGet, "/produtos", nil, &out)
	return out, err
}

func (c *Client) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, http.MethodPost, "/produtos", p, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, p domain.Product) (domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, http.MethodPut, "/produtos/"+strconv.FormatInt(id, 10), p, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/produtos/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) ListSales(ctx context.Context, category string) ([]domain.Sale, error) {
	path := "/vendas"
	if !domain.IsAllCategory(category) {
		path += "?" + url.Values{"categoria": {category}}.Encode()
	}
	var out []domain.Sale
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	var out domain.Sale
	err := c.do(ctx, http.MethodPost, "/vendas", sale, &out)
	return out, err
}

func (c *Client) DeleteSale(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/vendas/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) SalesSummary(ctx context.Context) (domain.SalesSummary, error) {
	var out domain.SalesSummary
	err := c.do(ctx, http.MethodGet, "/vendas/resumo", nil, &out)
	return out, err
}

func (c *Client) MonthlyTotals(ctx context.Context, year int) ([]domain.MonthlyTotals, error) {
	var out []domain.MonthlyTotals
	err := c.do(ctx, http.MethodGet, "/vendas/mensal?ano="+strconv.Itoa(year), nil, &out)
	return out, err
}

func (c *Client) ListReposicoes(ctx context.Context) ([]domain.Reposicao, error) {
	var out []domain.Reposicao
	err := c.do(ctx, http.MethodGet, "/reposicoes", nil, &out)
	return out, err
}

func (c *Client) ListReposicoesByProduct(ctx context.Context, productID int64) ([]domain.Reposicao, error) {
	var out []domain.Reposicao
	err := c.do(ctx, http.MethodGet, "/reposicoes/produto/"+strconv.FormatInt(productID, 10), nil, &out)
	return out, err
}

func (c *Client) CreateReposicao(ctx context.Context, rep domain.Reposicao) (domain.Reposicao, error) {
	var out domain.Reposicao
	err := c.do(ctx, http.MethodPost, "/reposicoes", rep, &out)
	return out, err
}

func (c *Client) UpdateReposicao(ctx context.Context, id int64, rep domain.Reposicao) (domain.Reposicao, error) {
	var out domain.Reposicao
	err := c.do(ctx, http.MethodPut, "/reposicoes/"+strconv.FormatInt(id, 10), rep, &out)
	return out, err
}

func (c *Client) DeleteReposicao(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/reposicoes/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) do(ctx context.Context, method string, path string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Message: transportMessage, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Message: transportMessage, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return store.Conflict(readErrorMessage(resp.Body))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readErrorMessage(resp.Body)
		return &TransportError{
			Status:  resp.StatusCode,
			Message: transportMessage,
			Err:     statusError(resp.StatusCode, msg),
		}
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &TransportError{Status: resp.StatusCode, Message: transportMessage, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// statusError keeps the store sentinels reachable through errors.Is.
func statusError(status int, msg string) error {
	var sentinel error
	switch status {
	case http.StatusNotFound:
		sentinel = store.ErrNotFound
	case http.StatusBadRequest:
		sentinel = store.ErrInvalid
	case http.StatusUnprocessableEntity:
		sentinel = store.ErrInsufficientStock
	default:
		return errors.New(msg)
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
