package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"estoque/internal/domain"
	"estoque/internal/metrics"
	"estoque/internal/service"
	"estoque/internal/store"
	"estoque/internal/store/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestAPI wires the real service over a seeded in-memory store so handler
// tests exercise the whole request path.
func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc := service.New(memory.NewSeeded(), service.Options{Logger: logger})
	return New(svc, "*", metrics.New(), logger).Handler()
}

func do(t *testing.T, h http.Handler, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v (body: %s)", err, rec.Body.String())
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	h := newTestAPI(t)
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers")
	}
}

func TestListProducts(t *testing.T) {
	h := newTestAPI(t)
	rec := do(t, h, http.MethodGet, "/produtos", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	products := decode[[]domain.Product](t, rec)
	if len(products) != 10 {
		t.Fatalf("expected 10 seeded products, got %d", len(products))
	}
	if !strings.Contains(rec.Body.String(), `"precoVenda"`) {
		t.Fatalf("expected portuguese field names in %s", rec.Body.String())
	}
}

func TestCreateSaleFillsSnapshotAndUpdatesSummary(t *testing.T) {
	h := newTestAPI(t)
	rec := do(t, h, http.MethodPost, "/vendas", map[string]any{
		"produtoId":         1,
		"precoCompra":       49.90,
		"precoVenda":        79.90,
		"quantidadeVendida": 2,
		"formaPagamento":    "pix",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	sale := decode[domain.Sale](t, rec)
	if sale.ID == 0 || sale.ProductName != "Picanha kg" || sale.Category != domain.CategoryMeat {
		t.Fatalf("expected snapshot filled from product, got %+v", sale)
	}

	rec = do(t, h, http.MethodGet, "/vendas/resumo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	summary := decode[domain.SalesSummary](t, rec)
	if summary.TotalSold.String() != "159.8" {
		t.Fatalf("expected total 159.8, got %s", summary.TotalSold)
	}
	if summary.GrossProfit.String() != "60" {
		t.Fatalf("expected profit 60, got %s", summary.GrossProfit)
	}

	rec = do(t, h, http.MethodGet, "/vendas?categoria=Bebidas", nil)
	if got := decode[[]domain.Sale](t, rec); len(got) != 0 {
		t.Fatalf("expected no drink sales, got %d", len(got))
	}
	rec = do(t, h, http.MethodGet, "/vendas?categoria=todas", nil)
	if got := decode[[]domain.Sale](t, rec); len(got) != 1 {
		t.Fatalf("expected one sale, got %d", len(got))
	}
}

func TestCreateSaleOversellIs422(t *testing.T) {
	h := newTestAPI(t)
	rec := do(t, h, http.MethodPost, "/vendas", map[string]any{
		"produtoId":         8,
		"precoVenda":        47.90,
		"quantidadeVendida": 1,
		"formaPagamento":    "dinheiro",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCreateSaleRejectsBadPayload(t *testing.T) {
	h := newTestAPI(t)
	cases := []struct {
		name string
		body any
	}{
		{"zero quantity", map[string]any{"produtoId": 1, "quantidadeVendida": 0, "formaPagamento": "pix"}},
		{"unknown payment", map[string]any{"produtoId": 1, "quantidadeVendida": 1, "formaPagamento": "cheque"}},
		{"not json", "nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/vendas", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUpdateProductStaleVersionReturnsVerbatimConflict(t *testing.T) {
	h := newTestAPI(t)
	product := decode[[]domain.Product](t, do(t, h, http.MethodGet, "/produtos", nil))[1]

	fresh := product
	fresh.StockQuantity = 50
	rec := do(t, h, http.MethodPut, "/produtos/2", fresh)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	stale := product
	stale.Brand = "Perdigão"
	rec = do(t, h, http.MethodPut, "/produtos/2", stale)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["error"] != store.StaleProductMessage {
		t.Fatalf("expected verbatim conflict message, got %q", body["error"])
	}
}

func TestCreateDuplicateProductIsConflict(t *testing.T) {
	h := newTestAPI(t)
	rec := do(t, h, http.MethodPost, "/produtos", map[string]any{
		"categoria":  "Temperos",
		"marca":      "kitano",
		"detalhe":    "orégano 10g",
		"precoVenda": 4.5,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if body := decode[map[string]string](t, rec); body["error"] != store.DuplicateProductMessage {
		t.Fatalf("unexpected message %q", body["error"])
	}
}

func TestProductNotFoundAndBadID(t *testing.T) {
	h := newTestAPI(t)
	if rec := do(t, h, http.MethodDelete, "/produtos/999", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/produtos/abc", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReposicaoRoutes(t *testing.T) {
	h := newTestAPI(t)
	rec := do(t, h, http.MethodPost, "/reposicoes", map[string]any{
		"produto":     map[string]any{"id": 8},
		"quantidade":  5,
		"dataEntrada": "10/05/2025",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	rep := decode[domain.Reposicao](t, rec)
	if rep.EntryDate != "2025-05-10" {
		t.Fatalf("expected normalized entry date, got %q", rep.EntryDate)
	}
	if rep.Product.StockQuantity != 5 {
		t.Fatalf("expected restocked product, got %+v", rep.Product)
	}

	rec = do(t, h, http.MethodGet, "/reposicoes/produto/8", nil)
	if got := decode[[]domain.Reposicao](t, rec); len(got) != 1 {
		t.Fatalf("expected one reposicao for product 8, got %d", len(got))
	}

	if rec := do(t, h, http.MethodDelete, "/produtos/8", nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected in-use conflict, got %d", rec.Code)
	}
}

func TestMonthlyTotals(t *testing.T) {
	h := newTestAPI(t)
	rec := do(t, h, http.MethodGet, "/vendas/mensal?ano=2025", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[[]domain.MonthlyTotals](t, rec); len(got) != 12 {
		t.Fatalf("expected 12 months, got %d", len(got))
	}
	if rec := do(t, h, http.MethodGet, "/vendas/mensal?ano=x", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad year, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestAPI(t)
	do(t, h, http.MethodGet, "/produtos", nil)
	rec := do(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "estoque_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	if got := mapErrorToStatus(errFake); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	writeError(c, http.StatusInternalServerError, errFake)
	if !strings.Contains(rec.Body.String(), "internal server error") || strings.Contains(rec.Body.String(), "pq:") {
		t.Fatalf("expected generic message, got %s", rec.Body.String())
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const errFake = fakeErr("pq: relation vendas does not exist")
