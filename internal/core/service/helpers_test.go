package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/visio/internal/adapter/storage"
	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/port"
)

// Mock CacheRepository
type mockCacheRepo struct {
	mu       sync.Mutex
	keys     map[string]bool
	failSet  bool
	released []string
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{keys: make(map[string]bool)}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSet {
		return false, errors.New("cache unavailable")
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.keys, key)
	m.released = append(m.released, key)
	return nil
}

func (m *mockCacheRepo) held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key]
}

// failingRepo wraps a real repository and breaks one write inside transactions.
type failingRepo struct {
	port.DatabaseRepository
	failOn string
}

func (f *failingRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx port.TxRepository) error) error {
	return f.DatabaseRepository.RunInTx(ctx, func(ctx context.Context, tx port.TxRepository) error {
		return fn(ctx, &failingTx{TxRepository: tx, failOn: f.failOn})
	})
}

type failingTx struct {
	port.TxRepository
	failOn string
}

var errDiskFull = errors.New("disk full")

func (f *failingTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	if f.failOn == "transaction" {
		return errDiskFull
	}
	return f.TxRepository.InsertTransaction(ctx, txn)
}

func (f *failingTx) InsertOrderItem(ctx context.Context, item *domain.OrderItem) error {
	if f.failOn == "item" {
		return errDiskFull
	}
	return f.TxRepository.InsertOrderItem(ctx, item)
}

func openRepo(t *testing.T) *storage.SQLAdapter {
	t.Helper()
	repo, err := storage.OpenSQL(context.Background(), storage.SQLConfig{
		Dialect: storage.SQLite,
		DSN:     storage.SQLiteDSN(filepath.Join(t.TempDir(), "visio.db")),
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func addCustomer(t *testing.T, repo port.DatabaseRepository, email string) domain.Customer {
	t.Helper()
	c := domain.Customer{Name: email, Email: email}
	require.NoError(t, repo.CreateCustomer(context.Background(), &c))
	return c
}

func addProduct(t *testing.T, repo port.DatabaseRepository, sku, category, price string, stock int) domain.Product {
	t.Helper()
	p := domain.Product{
		SKU:           sku,
		Name:          "Product " + sku,
		Category:      category,
		Price:         decimal.RequireFromString(price),
		Cost:          decimal.Zero,
		StockQuantity: stock,
		MinStockLevel: domain.DefaultMinStockLevel,
	}
	require.NoError(t, repo.CreateProduct(context.Background(), &p))
	return p
}

func stockOf(t *testing.T, repo port.DatabaseRepository, id int64) int {
	t.Helper()
	p, err := repo.GetProduct(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.StockQuantity
}

func fixedClock(now *time.Time) Option {
	return WithClock(func() time.Time { return *now })
}
