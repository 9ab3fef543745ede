package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/visio/internal/adapter/storage"
	"github.com/rl1809/visio/internal/core/domain"
)

func TestCreateOrder_TotalsAndLedger(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	customer := addCustomer(t, repo, "a@example.com")
	a := addProduct(t, repo, "A", "Tools", "10.00", 20)
	b := addProduct(t, repo, "B", "Toys", "5.00", 20)

	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	svc := NewOrderService(repo, newMockCacheRepo(), fixedClock(&now), WithLocation(time.UTC))

	result, err := svc.CreateOrder(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []domain.LineItem{{ProductID: a.ID, Quantity: 3}, {ProductID: b.ID, Quantity: 2}},
		CreatedBy:  7,
	})
	require.NoError(t, err)

	order := result.Order
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(40)), "total %s", order.TotalAmount)
	assert.True(t, order.TotalAmount.Equal(order.ItemsTotal()))
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Regexp(t, regexp.MustCompile(`^ORD-20260315-\d{4}$`), order.OrderNumber)
	require.Len(t, order.Items, 2)
	assert.Equal(t, a.ID, order.Items[0].ProductID)
	assert.Equal(t, b.ID, order.Items[1].ProductID)

	txn := result.Transaction
	assert.Equal(t, domain.TransactionIncome, txn.Type)
	assert.Equal(t, domain.SalesCategory, txn.Category)
	assert.Equal(t, order.OrderNumber, txn.Reference)
	assert.Equal(t, "Order "+order.OrderNumber, txn.Description)
	assert.True(t, txn.Amount.Equal(order.TotalAmount))
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), txn.Date)
	assert.Equal(t, int64(7), txn.CreatedBy)

	assert.Equal(t, 17, stockOf(t, repo, a.ID))
	assert.Equal(t, 18, stockOf(t, repo, b.ID))

	stored, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)))

	ledger, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, ledger, 1, "exactly one ledger entry per order")
	assert.Equal(t, order.OrderNumber, ledger[0].Reference)
}

func TestCreateOrder_UnitPriceIsSnapshot(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	customer := addCustomer(t, repo, "a@example.com")
	a := addProduct(t, repo, "A", "", "2.50", 10)
	svc := NewOrderService(repo, newMockCacheRepo())

	result, err := svc.CreateOrder(ctx, CreateOrderInput{CustomerID: customer.ID, Items: []domain.LineItem{{ProductID: a.ID, Quantity: 2}}})
	require.NoError(t, err)

	_, err = repo.DB().Exec(`UPDATE products SET price = '99.00' WHERE id = ?`, a.ID)
	require.NoError(t, err)

	stored, err := svc.GetOrder(ctx, result.Order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(5)))
}

func TestCreateOrder_StockFloorsAtZero(t *testing.T) {
	repo := openRepo(t)
	customer := addCustomer(t, repo, "a@example.com")
	a := addProduct(t, repo, "A", "", "1.00", 2)
	svc := NewOrderService(repo, newMockCacheRepo())

	result, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []domain.LineItem{{ProductID: a.ID, Quantity: 5}},
	})
	require.NoError(t, err, "orders are not rejected for low stock")
	assert.True(t, result.Order.TotalAmount.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 0, stockOf(t, repo, a.ID))
}

func TestCreateOrder_RepeatedProductAccumulates(t *testing.T) {
	repo := openRepo(t)
	customer := addCustomer(t, repo, "a@example.com")
	a := addProduct(t, repo, "A", "", "1.00", 10)
	svc := NewOrderService(repo, newMockCacheRepo())

	result, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []domain.LineItem{{ProductID: a.ID, Quantity: 3}, {ProductID: a.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Len(t, result.Order.Items, 2)
	assert.Equal(t, 3, stockOf(t, repo, a.ID))
}

func TestCreateOrder_MissingProductSkipped(t *testing.T) {
	repo := openRepo(t)
	customer := addCustomer(t, repo, "a@example.com")
	a := addProduct(t, repo, "A", "", "4.00", 10)
	svc := NewOrderService(repo, newMockCacheRepo())

	result, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []domain.LineItem{{ProductID: 9999, Quantity: 1}, {ProductID: a.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, result.Order.Items, 1)
	assert.Equal(t, a.ID, result.Order.Items[0].ProductID)
	assert.True(t, result.Order.TotalAmount.Equal(decimal.NewFromInt(8)))
}

func TestCreateOrder_AllProductsMissing(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	customer := addCustomer(t, repo, "a@example.com")
	svc := NewOrderService(repo, newMockCacheRepo())

	_, err := svc.CreateOrder(ctx, CreateOrderInput{
		CustomerID: customer.ID,
		Items:      []domain.LineItem{{ProductID: 9999, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	orders, _ := repo.ListOrders(ctx)
	assert.Empty(t, orders)
	ledger, _ := repo.ListTransactions(ctx)
	assert.Empty(t, ledger)
}

func TestCreateOrder_Validation(t *testing.T) {
	repo := openRepo(t)
	svc := NewOrderService(repo, newMockCacheRepo())

	cases := map[string]CreateOrderInput{
		"no customer":   {Items: []domain.LineItem{{ProductID: 1, Quantity: 1}}},
		"no items":      {CustomerID: 1},
		"zero quantity": {CustomerID: 1, Items: []domain.LineItem{{ProductID: 1, Quantity: 0}}},
		"negative qty":  {CustomerID: 1, Items: []domain.LineItem{{ProductID: 1, Quantity: -2}}},
		"bad product":   {CustomerID: 1, Items: []domain.LineItem{{ProductID: 0, Quantity: 1}}},
		"huge qty":      {CustomerID: 1, Items: []domain.LineItem{{ProductID: 1, Quantity: domain.MaxQuantity + 1}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateOrder(context.Background(), in)
			var verr *domain.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestCreateOrder_UnknownCustomer(t *testing.T) {
	repo := openRepo(t)
	a := addProduct(t, repo, "A", "", "1.00", 10)
	svc := NewOrderService(repo, newMockCacheRepo())

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 404,
		Items:      []domain.LineItem{{ProductID: a.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 10, stockOf(t, repo, a.ID))
}

func TestCreateOrder_RollsBackOnStorageFailure(t *testing.T) {
	for _, failOn := range []string{"item", "transaction"} {
		t.Run(failOn, func(t *testing.T) {
			repo := openRepo(t)
			ctx := context.Background()
			customer := addCustomer(t, repo, "a@example.com")
			a := addProduct(t, repo, "A", "", "10.00", 5)
			cache := newMockCacheRepo()
			svc := NewOrderService(&failingRepo{DatabaseRepository: repo, failOn: failOn}, cache)

			_, err := svc.CreateOrder(ctx, CreateOrderInput{
				RequestID:  "req-1",
				CustomerID: customer.ID,
				Items:      []domain.LineItem{{ProductID: a.ID, Quantity: 3}},
			})
			assert.ErrorIs(t, err, domain.ErrConsistency)
			assert.ErrorIs(t, err, errDiskFull)

			assert.Equal(t, 5, stockOf(t, repo, a.ID), "stock must not move without an order")
			orders, _ := repo.ListOrders(ctx)
			assert.Empty(t, orders)
			ledger, _ := repo.ListTransactions(ctx)
			assert.Empty(t, ledger)

			assert.False(t, cache.held("order-request:req-1"), "failed requests may be retried")
			require.Len(t, cache.released, 2)
			assert.Regexp(t, `^order-number:ORD-\d{8}-\d{4}$`, cache.released[0], "the order number goes back to the pool")
			assert.False(t, cache.held(cache.released[0]))
		})
	}
}

func TestCreateOrder_DuplicateRequest(t *testing.T) {
	repo := openRepo(t)
	customer := addCustomer(t, repo, "a@example.com")
	a := addProduct(t, repo, "A", "", "1.00", 10)
	svc := NewOrderService(repo, newMockCacheRepo())
	in := CreateOrderInput{
		RequestID:  "req-1",
		CustomerID: customer.ID,
		Items:      []domain.LineItem{{ProductID: a.ID, Quantity: 1}},
	}

	_, err := svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.CreateOrder(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrDuplicateRequest)

	// Stock should only be decremented once
	assert.Equal(t, 9, stockOf(t, repo, a.ID))
}

func TestCreateOrder_CacheUnavailable(t *testing.T) {
	repo := openRepo(t)
	cache := newMockCacheRepo()
	cache.failSet = true
	svc := NewOrderService(repo, cache)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 1,
		Items:      []domain.LineItem{{ProductID: 1, Quantity: 1}},
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrConsistency))
}

func TestCreateOrder_ConcurrentOrdersNeverOversell(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	customer := addCustomer(t, repo, "a@example.com")
	a := addProduct(t, repo, "A", "", "1.00", 50)
	svc := NewOrderService(repo, storage.NewMemoryCache())

	const workers = 20
	var failures atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(ctx, CreateOrderInput{
				CustomerID: customer.ID,
				Items:      []domain.LineItem{{ProductID: a.ID, Quantity: 2}},
			})
			if err != nil {
				failures.Add(1)
				t.Errorf("create order: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Zero(t, failures.Load())
	assert.Equal(t, 10, stockOf(t, repo, a.ID), "no decrement may be lost")

	orders, err := repo.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, workers)

	seen := make(map[string]bool)
	for _, o := range orders {
		assert.False(t, seen[o.OrderNumber], "duplicate order number %s", o.OrderNumber)
		seen[o.OrderNumber] = true
	}
}

func TestCreateOrder_ConcurrentOrdersFloorAtZero(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	customer := addCustomer(t, repo, "a@example.com")
	a := addProduct(t, repo, "A", "", "1.00", 5)
	svc := NewOrderService(repo, storage.NewMemoryCache())

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(ctx, CreateOrderInput{
				CustomerID: customer.ID,
				Items:      []domain.LineItem{{ProductID: a.ID, Quantity: 1}},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, stockOf(t, repo, a.ID))
}

func TestOrderNumbers_FormatAndRetry(t *testing.T) {
	cache := newMockCacheRepo()
	gen := NewOrderNumbers(cache)
	suffixes := []int{1234, 1234, 5678}
	gen.suffix = func() int {
		s := suffixes[0]
		suffixes = suffixes[1:]
		return s
	}
	day := time.Date(2026, 1, 2, 23, 0, 0, 0, time.UTC)

	first, err := gen.Next(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260102-1234", first)

	second, err := gen.Next(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260102-5678", second, "collisions draw again")
}

func TestOrderNumbers_Exhausted(t *testing.T) {
	cache := newMockCacheRepo()
	gen := NewOrderNumbers(cache)
	gen.suffix = func() int { return 4242 }
	day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := gen.Next(context.Background(), day)
	require.NoError(t, err)
	_, err = gen.Next(context.Background(), day)
	assert.ErrorIs(t, err, domain.ErrOrderNumberExhausted)
}

func TestOrderNumbers_ClaimAndRelease(t *testing.T) {
	ctx := context.Background()
	gen := NewOrderNumbers(newMockCacheRepo())

	ok, err := gen.Claim(ctx, "ORD-20260102-1234")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = gen.Claim(ctx, "ORD-20260102-1234")
	require.NoError(t, err)
	assert.False(t, ok, "a held number cannot be claimed twice")

	require.NoError(t, gen.Release(ctx, "ORD-20260102-1234"))
	ok, err = gen.Claim(ctx, "ORD-20260102-1234")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOrderNumbers_DefaultSuffixRange(t *testing.T) {
	gen := NewOrderNumbers(newMockCacheRepo())
	for i := 0; i < 1000; i++ {
		s := gen.suffix()
		require.GreaterOrEqual(t, s, 1000)
		require.LessOrEqual(t, s, 9999)
	}
}
