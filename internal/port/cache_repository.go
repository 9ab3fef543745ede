package port

import (
	"context"
	"time"
)

type CacheRepository interface {
	// SetIdempotency claims key for ttl, returns false if it is already claimed
	SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// ReleaseIdempotency drops a claim so the request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}
