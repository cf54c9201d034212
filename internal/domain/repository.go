package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// IDExtractor defines the interface for mining candidate product identifiers
// out of merchant URLs. Implementations are bounded in time and result count
// and must never fail the caller: on any problem they return what they have.
type IDExtractor interface {
	Extract(ctx context.Context, rawURL, storeID string) []string
}
