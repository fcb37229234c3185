// Package cache keeps Place Details responses in Redis so repeated searches over the same area
// do not pay for the same lookups twice.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"leadfinder/internal/types"
)

const (
	keyPrefix  = "leadfinder:details:"
	DefaultTTL = 24 * time.Hour
)

// DetailSource is anything that can fetch a place's contact record.
type DetailSource interface {
	Details(ctx context.Context, placeID string) (types.LeadRecord, error)
}

// DetailCache is a read-through cache in front of a DetailSource. Redis problems are logged
// and never fail a lookup; only errors from the wrapped source do.
type DetailCache struct {
	rdb  redis.Cmdable
	next DetailSource
	ttl  time.Duration
	log  zerolog.Logger
}

// NewRedisClient connects to addr ("host:port").
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewDetailCache wraps next. A non-positive ttl means DefaultTTL.
func NewDetailCache(rdb redis.Cmdable, next DetailSource, ttl time.Duration, log zerolog.Logger) *DetailCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DetailCache{rdb: rdb, next: next, ttl: ttl, log: log}
}

// Key is the Redis key for a place.
func Key(placeID string) string {
	return keyPrefix + placeID
}

// Details returns the cached record or fetches and stores it.
func (c *DetailCache) Details(ctx context.Context, placeID string) (types.LeadRecord, error) {
	key := Key(placeID)

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var lead types.LeadRecord
		jerr := json.Unmarshal([]byte(raw), &lead)
		if jerr == nil {
			return lead, nil
		}
		c.log.Warn().Err(jerr).Str("key", key).Msg("Discarding unreadable cached details")
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn().Err(err).Str("key", key).Msg("Redis get failed, fetching details directly")
	}

	lead, err := c.next.Details(ctx, placeID)
	if err != nil {
		return types.LeadRecord{}, err
	}

	data, err := json.Marshal(lead)
	if err != nil {
		return lead, nil
	}
	if err := c.rdb.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Redis set failed")
	}
	return lead, nil
}
