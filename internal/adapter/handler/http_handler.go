package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/core/service"
	"github.com/rl1809/visio/internal/obs"
)

// ActorHeader carries the id of the employee acting on the request.
const ActorHeader = "X-Actor-ID"

// Services bundles the core services exposed over HTTP and gRPC.
type Services struct {
	Orders  *service.OrderService
	Catalog *service.CatalogService
	Ledger  *service.LedgerService
	Reports *service.ReportService
	Exports *service.ExportService
}

type HTTPHandler struct {
	svc     Services
	metrics *obs.Metrics
	loc     *time.Location
}

type CreateOrderHTTPRequest struct {
	RequestID  string            `json:"request_id"`
	CustomerID int64             `json:"customer_id" binding:"required"`
	Items      []domain.LineItem `json:"items" binding:"required"`
}

type SetStatusHTTPRequest struct {
	Status string `json:"status" binding:"required"`
}

type AdjustStockHTTPRequest struct {
	Adjustment int `json:"adjustment"`
}

type RecordTransactionHTTPRequest struct {
	Type        string          `json:"transaction_type" binding:"required"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
	Date        string          `json:"date"` // YYYY-MM-DD, defaults to today
}

type ErrorHTTPResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NewHTTPHandler serves svc. Date-only query bounds are read in loc.
func NewHTTPHandler(svc Services, metrics *obs.Metrics, loc *time.Location) *HTTPHandler {
	if loc == nil {
		loc = time.Local
	}
	return &HTTPHandler{svc: svc, metrics: metrics, loc: loc}
}

type RouterConfig struct {
	ServiceName    string
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
}

// NewRouter builds the gin engine with tracing, request metrics, /metrics and
// every API route.
func NewRouter(h *HTTPHandler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(h.observe)
	if cfg.RequestTimeout > 0 {
		r.Use(requestTimeout(cfg.RequestTimeout))
	}

	r.GET("/health", h.HealthCheck)
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	h.Register(r.Group("/api"))
	return r
}

func (h *HTTPHandler) Register(api gin.IRouter) {
	api.POST("/orders", h.CreateOrder)
	api.GET("/orders", h.ListOrders)
	api.GET("/orders/:id", h.GetOrder)
	api.POST("/orders/:id/status", h.SetOrderStatus)
	api.DELETE("/orders/:id", h.DeleteOrder)

	api.GET("/products", h.ListProducts)
	api.GET("/products/search", h.SearchProducts)
	api.POST("/products", h.CreateProduct)
	api.POST("/products/:id/adjust-stock", h.AdjustStock)

	api.GET("/transactions", h.ListTransactions)
	api.POST("/transactions", h.RecordTransaction)

	api.GET("/dashboard", h.Overview)
	api.GET("/dashboard/stats", h.DashboardStats)

	reports := api.Group("/reports")
	reports.GET("/daily-sales", report(h.svc.Reports.DailySales))
	reports.GET("/order-status", report(h.svc.Reports.OrderStatusBreakdown))
	reports.GET("/top-products", report(h.svc.Reports.TopProducts))
	reports.GET("/revenue-by-category", report(h.svc.Reports.RevenueByCategory))
	reports.GET("/monthly-revenue", report(h.svc.Reports.MonthlyRevenue))
	reports.GET("/expense-by-category", report(h.svc.Reports.ExpenseByCategory))
	reports.GET("/employees-by-department", report(h.svc.Reports.EmployeesByDepartment))
	reports.GET("/income-vs-expense", report(h.svc.Reports.IncomeVsExpense))
	reports.GET("/sales", h.SalesReport)
	reports.GET("/inventory", report(h.svc.Reports.InventoryReport))
	reports.GET("/financial", report(h.svc.Reports.FinancialReport))
	reports.POST("/:kind/export", h.ExportReport)
	reports.GET("/:kind/exports", h.ListExports)
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	result, err := h.svc.Orders.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		RequestID:  req.RequestID,
		CustomerID: req.CustomerID,
		Items:      req.Items,
		CreatedBy:  actor,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *HTTPHandler) ListOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListOrders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *HTTPHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.svc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *HTTPHandler) SetOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req SetStatusHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	status, _ := domain.ParseOrderStatus(req.Status)
	order, err := h.svc.Orders.SetStatus(c.Request.Context(), id, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *HTTPHandler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Orders.DeleteOrder(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) ListProducts(c *gin.Context) {
	products, err := h.svc.Catalog.ListProducts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *HTTPHandler) SearchProducts(c *gin.Context) {
	products, err := h.svc.Catalog.SearchProducts(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *HTTPHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	product, err := h.svc.Catalog.CreateProduct(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *HTTPHandler) AdjustStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req AdjustStockHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	product, err := h.svc.Catalog.AdjustStock(c.Request.Context(), id, req.Adjustment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *HTTPHandler) ListTransactions(c *gin.Context) {
	txns, err := h.svc.Ledger.ListTransactions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

func (h *HTTPHandler) RecordTransaction(c *gin.Context) {
	var req RecordTransactionHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}

	in := service.RecordTransactionInput{
		Type:        domain.TransactionType(strings.ToLower(req.Type)),
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
		Reference:   req.Reference,
		CreatedBy:   actor,
	}
	if req.Date != "" {
		date, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			badRequest(c, "invalid date", err)
			return
		}
		in.Date = &date
	}

	txn, err := h.svc.Ledger.RecordTransaction(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (h *HTTPHandler) Overview(c *gin.Context) {
	overview, err := h.svc.Reports.Overview(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *HTTPHandler) DashboardStats(c *gin.Context) {
	stats, err := h.svc.Reports.Dashboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SalesReport accepts optional from/to bounds as RFC 3339 timestamps or dates.
// A date-only "to" covers the whole day.
func (h *HTTPHandler) SalesReport(c *gin.Context) {
	from, err := h.parseBound(c.Query("from"), false)
	if err != nil {
		badRequest(c, "invalid from", err)
		return
	}
	to, err := h.parseBound(c.Query("to"), true)
	if err != nil {
		badRequest(c, "invalid to", err)
		return
	}

	sales, err := h.svc.Reports.SalesReport(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *HTTPHandler) ExportReport(c *gin.Context) {
	kind, err := service.ParseExportKind(c.Param("kind"))
	if err != nil {
		writeError(c, err)
		return
	}
	info, err := h.svc.Exports.Export(c.Request.Context(), kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// ListExports lists stored exports of one kind, or of every kind for "all".
func (h *HTTPHandler) ListExports(c *gin.Context) {
	var kind service.ExportKind
	if k := c.Param("kind"); k != "all" {
		parsed, err := service.ParseExportKind(k)
		if err != nil {
			writeError(c, err)
			return
		}
		kind = parsed
	}
	infos, err := h.svc.Exports.ListExports(c.Request.Context(), kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

func (h *HTTPHandler) parseBound(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, h.loc)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

// observe records one request in the HTTP metrics under its route pattern.
func (h *HTTPHandler) observe(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	h.metrics.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
}

func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func report[T any](fn func(context.Context) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := fn(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id", err)
		return 0, false
	}
	return id, true
}

// actorID reads the optional actor header. A malformed value aborts the request.
func actorID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader(ActorHeader)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		badRequest(c, "invalid "+ActorHeader, err)
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, message string, err error) {
	resp := ErrorHTTPResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

func writeError(c *gin.Context, err error) {
	status, message := httpStatus(err)
	c.AbortWithStatusJSON(status, ErrorHTTPResponse{Error: message, Details: err.Error()})
}

func httpStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation failed"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate request"
	case errors.Is(err, domain.ErrConsistency), errors.Is(err, domain.ErrOrderNumberExhausted):
		return http.StatusServiceUnavailable, "storage unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
