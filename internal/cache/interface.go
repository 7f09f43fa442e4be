package cache

import (
	"context"
	"time"
)

// NoExpiry passed as a ttl keeps the entry until it is replaced.
const NoExpiry time.Duration = -1

type Cache interface {
	Get(ctx context.Context, key string, value any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

func Key(prefix string, id string) string {
	return prefix + ":" + id
}

const (
	VariantPriceKeyPrefix = "variant_price"
	CurrencyKeyPrefix     = "currency"
	CartCountKeyPrefix    = "cart_count"
)

// RateCacheKey holds the last known exchange rate with its timestamp.
var RateCacheKey = Key(CurrencyKeyPrefix, "solar_usd_rate")
