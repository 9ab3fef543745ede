package handler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/visio/internal/adapter/blob"
	"github.com/rl1809/visio/internal/adapter/storage"
	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/core/service"
	"github.com/rl1809/visio/internal/obs"
)

type fixture struct {
	repo     *storage.SQLAdapter
	svc      Services
	metrics  *obs.Metrics
	registry *prometheus.Registry
	customer domain.Customer
	a, b     domain.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.OpenSQL(ctx, storage.SQLConfig{
		Dialect: storage.SQLite,
		DSN:     storage.SQLiteDSN(filepath.Join(t.TempDir(), "visio.db")),
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	blobs, err := blob.NewFilesystem(t.TempDir())
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	metrics := obs.NewMetrics(registry)
	opts := []service.Option{service.WithLocation(time.UTC), service.WithMetrics(metrics)}

	reports := service.NewReportService(repo, opts...)
	f := &fixture{
		repo: repo,
		svc: Services{
			Orders:  service.NewOrderService(repo, storage.NewMemoryCache(), opts...),
			Catalog: service.NewCatalogService(repo, opts...),
			Ledger:  service.NewLedgerService(repo, opts...),
			Reports: reports,
			Exports: service.NewExportService(reports, blobs, opts...),
		},
		metrics:  metrics,
		registry: registry,
	}

	f.customer = domain.Customer{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, repo.CreateCustomer(ctx, &f.customer))
	f.a = f.product(t, "A", "10.00", 100)
	f.b = f.product(t, "B", "5.00", 100)
	return f
}

func (f *fixture) product(t *testing.T, sku, price string, stock int) domain.Product {
	t.Helper()
	p := domain.Product{
		SKU:           sku,
		Name:          "Product " + sku,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		MinStockLevel: domain.DefaultMinStockLevel,
	}
	require.NoError(t, f.repo.CreateProduct(context.Background(), &p))
	return p
}

func (f *fixture) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHTTPHandler(f.svc, f.metrics, time.UTC)
	return NewRouter(h, RouterConfig{Gatherer: f.registry})
}
