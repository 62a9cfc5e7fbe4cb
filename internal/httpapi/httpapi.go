package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"estoque/internal/domain"
	"estoque/internal/metrics"
	"estoque/internal/service"
	"estoque/internal/store"
)

const maxBodyBytes = 1 << 20

type API struct {
	service       *service.Service
	allowedOrigin string
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

func New(svc *service.Service, allowedOrigin string, m *metrics.Metrics, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(allowedOrigin) == "" {
		allowedOrigin = "*"
	}
	return &API{
		service:       svc,
		allowedOrigin: allowedOrigin,
		metrics:       m,
		logger:        logger,
	}
}

func (a *API) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), a.withMiddleware())

	r.GET("/healthz", a.handleHealth)
	if a.metrics != nil {
		r.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	}

	r.GET("/produtos", a.handleListProducts)
	r.POST("/produtos", a.handleCreateProduct)
	r.PUT("/produtos/:id", a.handleUpdateProduct)
	r.DELETE("/produtos/:id", a.handleDeleteProduct)

	r.GET("/vendas", a.handleListSales)
	r.POST("/vendas", a.handleCreateSale)
	r.GET("/vendas/resumo", a.handleSummary)
	r.GET("/vendas/mensal", a.handleMonthly)
	r.DELETE("/vendas/:id", a.handleDeleteSale)

	r.GET("/reposicoes", a.handleListReposicoes)
	r.POST("/reposicoes", a.handleCreateReposicao)
	r.GET("/reposicoes/produto/:id", a.handleReposicoesByProduct)
	r.GET("/reposicoes/:id", a.handleGetReposicao)
	r.PUT("/reposicoes/:id", a.handleUpdateReposicao)
	r.DELETE("/reposicoes/:id", a.handleDeleteReposicao)

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, errors.New("route not found"))
	})
	return r
}

func (a *API) withMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Access-Control-Allow-Origin", a.allowedOrigin)
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		h.Set("Vary", "Origin")

		req := c.Request
		if req.Method == http.MethodPost || req.Method == http.MethodPut {
			req.Body = http.MaxBytesReader(c.Writer, req.Body, maxBodyBytes)
		}
		if req.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		c.Next()
		elapsed := time.Since(startedAt)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		a.metrics.ObserveRequest(route, req.Method, strconv.Itoa(status), elapsed.Seconds())
		a.logger.Debug("request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed))
	}
}

func (a *API) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleListProducts(c *gin.Context) {
	products, err := a.service.ListProducts(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, products)
}

func (a *API) handleCreateProduct(c *gin.Context) {
	var req domain.Product
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.CreateProduct(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, product)
}

func (a *API) handleUpdateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req domain.Product
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, product)
}

func (a *API) handleDeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := a.service.DeleteProduct(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleListSales(c *gin.Context) {
	sales, err := a.service.ListSales(c.Request.Context(), c.Query("categoria"))
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sales)
}

func (a *API) handleCreateSale(c *gin.Context) {
	var req domain.Sale
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.CreateSale(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, sale)
}

func (a *API) handleDeleteSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := a.service.DeleteSale(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleSummary(c *gin.Context) {
	summary, err := a.service.SalesSummary(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, summary)
}

func (a *API) handleMonthly(c *gin.Context) {
	year := time.Now().Year()
	if raw := strings.TrimSpace(c.Query("ano")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(c, http.StatusBadRequest, errors.New("ano must be a positive year"))
			return
		}
		year = parsed
	}
	totals, err := a.service.MonthlyTotals(c.Request.Context(), year)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, totals)
}

func (a *API) handleListReposicoes(c *gin.Context) {
	reps, err := a.service.ListReposicoes(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, reps)
}

func (a *API) handleReposicoesByProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	reps, err := a.service.ListReposicoesByProduct(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, reps)
}

func (a *API) handleGetReposicao(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rep, err := a.service.GetReposicao(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rep)
}

func (a *API) handleCreateReposicao(c *gin.Context) {
	var req domain.Reposicao
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	rep, err := a.service.CreateReposicao(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, rep)
}

func (a *API) handleUpdateReposicao(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req domain.Reposicao
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	rep, err := a.service.UpdateReposicao(c.Request.Context(), id, req)
	if err != nil {
		a.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rep)
}

func (a *API) handleDeleteReposicao(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := a.service.DeleteReposicao(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	writeError(c, status, err)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id < 1 {
		writeError(c, http.StatusBadRequest, errors.New("invalid id"))
		return 0, false
	}
	return id, true
}

func decodeJSON(c *gin.Context, dest any) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

// writeError hides the cause of 5xx responses. Conflict messages are written
// unchanged so the client can show them as they are.
func writeError(c *gin.Context, status int, err error) {
	msg := err.Error()
	var conflict *store.ConflictError
	switch {
	case status >= http.StatusInternalServerError:
		msg = "internal server error"
	case errors.As(err, &conflict):
		msg = conflict.Message
	}
	writeJSON(c, status, gin.H{"error": msg})
}

func writeJSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}
