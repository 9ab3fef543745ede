package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rl1809/visio/internal/core/domain"
	"github.com/rl1809/visio/internal/port"
)

const (
	orderNumberAttempts = 10
	orderNumberTTL      = 48 * time.Hour
)

// OrderNumbers draws ORD-YYYYMMDD-NNNN numbers and reserves each one in the cache
// so two concurrent orders on the same day do not pick the same suffix.
type OrderNumbers struct {
	cache  port.CacheRepository
	suffix func() int
}

func NewOrderNumbers(cache port.CacheRepository) *OrderNumbers {
	return &OrderNumbers{
		cache:  cache,
		suffix: func() int { return 1000 + rand.IntN(9000) },
	}
}

func FormatOrderNumber(day time.Time, suffix int) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), suffix)
}

// Next reserves a number dated on day.
func (g *OrderNumbers) Next(ctx context.Context, day time.Time) (string, error) {
	for i := 0; i < orderNumberAttempts; i++ {
		number := FormatOrderNumber(day, g.suffix())

		ok, err := g.Claim(ctx, number)
		if err != nil {
			return "", err
		}
		if ok {
			return number, nil
		}
	}
	return "", domain.ErrOrderNumberExhausted
}

// Claim reserves number and reports false when someone already holds it.
func (g *OrderNumbers) Claim(ctx context.Context, number string) (bool, error) {
	ok, err := g.cache.SetIdempotency(ctx, orderNumberKey(number), orderNumberTTL)
	if err != nil {
		return false, fmt.Errorf("reserve order number: %w", err)
	}
	return ok, nil
}

// Release frees a number whose order was never committed.
func (g *OrderNumbers) Release(ctx context.Context, number string) error {
	if err := g.cache.ReleaseIdempotency(ctx, orderNumberKey(number)); err != nil {
		return fmt.Errorf("release order number: %w", err)
	}
	return nil
}

func orderNumberKey(number string) string {
	return "order-number:" + number
}
