package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/visio/internal/adapter/storage"
	"github.com/rl1809/visio/internal/core/domain"
)

type integrationEnv struct {
	repo  *storage.SQLAdapter
	cache *storage.RedisAdapter
}

// setupIntegrationEnv connects to the MySQL and Redis named by MYSQL_DSN and
// REDIS_ADDR, skipping when either is unset or unreachable.
func setupIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()
	dsn, addr := os.Getenv("MYSQL_DSN"), os.Getenv("REDIS_ADDR")
	if dsn == "" || addr == "" {
		t.Skip("MYSQL_DSN and REDIS_ADDR not set")
	}
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })

	repo, err := storage.OpenSQL(ctx, storage.SQLConfig{Dialect: storage.MySQL, DSN: dsn, MaxOpenConns: 20})
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return &integrationEnv{repo: repo, cache: storage.NewRedisAdapter(rdb)}
}

func TestIntegration_ConcurrentOrders(t *testing.T) {
	env := setupIntegrationEnv(t)
	ctx := context.Background()
	run := uuid.NewString()[:8]

	customer := addCustomer(t, env.repo, "it-"+run+"@example.com")
	product := addProduct(t, env.repo, "IT-"+run, "", "2.50", 10)
	svc := NewOrderService(env.repo, env.cache)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(ctx, CreateOrderInput{
				RequestID:  uuid.NewString(),
				CustomerID: customer.ID,
				Items:      []domain.LineItem{{ProductID: product.ID, Quantity: 1}},
			})
			if err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), successCount.Load(), "orders past the stock still commit")
	assert.Equal(t, 0, stockOf(t, env.repo, product.ID))
}

func TestIntegration_IdempotencyPreventsDoubleOrder(t *testing.T) {
	env := setupIntegrationEnv(t)
	ctx := context.Background()
	run := uuid.NewString()[:8]

	customer := addCustomer(t, env.repo, "it-"+run+"@example.com")
	product := addProduct(t, env.repo, "IT-"+run, "", "2.50", 10)
	svc := NewOrderService(env.repo, env.cache)

	in := CreateOrderInput{
		RequestID:  uuid.NewString(),
		CustomerID: customer.ID,
		Items:      []domain.LineItem{{ProductID: product.ID, Quantity: 1}},
	}
	_, err := svc.CreateOrder(ctx, in)
	require.NoError(t, err)

	_, err = svc.CreateOrder(ctx, in)
	assert.True(t, errors.Is(err, domain.ErrDuplicateRequest), "got %v", err)
	assert.Equal(t, 9, stockOf(t, env.repo, product.ID))
}
