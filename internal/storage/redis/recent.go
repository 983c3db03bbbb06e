// Package redis holds the Redis-backed stores of the storefront.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront/internal/domain/recent"
)

const (
	keyNamespace = "storefront"
	recentPrefix = "recent"
)

// DefaultRecentTTL expires the list of a user who stopped browsing.
const DefaultRecentTTL = 30 * 24 * time.Hour

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// NewClient parses a redis:// URL and verifies connectivity.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return raw, nil
}

var _ recent.Tracker = (*RecentStore)(nil)

// RecentStore keeps each user's recently viewed products in a capped list.
type RecentStore struct {
	store cmdable
	ttl   time.Duration
}

// NewRecentStore returns a RecentStore over client. A zero ttl means
// DefaultRecentTTL.
func NewRecentStore(client cmdable, ttl time.Duration) *RecentStore {
	if ttl <= 0 {
		ttl = DefaultRecentTTL
	}
	return &RecentStore{store: client, ttl: ttl}
}

func recentKey(userID string) string {
	return keyNamespace + ":" + recentPrefix + ":" + userID
}

// Touch moves productID to the head of the list and trims it to
// recent.Limit entries.
func (s *RecentStore) Touch(ctx context.Context, userID, productID string) error {
	key := recentKey(userID)
	_, err := s.store.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, key, 0, productID)
		p.LPush(ctx, key, productID)
		p.LTrim(ctx, key, 0, recent.Limit-1)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("touching recent %q: %w", productID, err)
	}
	return nil
}

// List returns the product IDs, most recent first.
func (s *RecentStore) List(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.store.LRange(ctx, recentKey(userID), 0, recent.Limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing recent: %w", err)
	}
	return ids, nil
}

// Ping checks connectivity for health probes.
func (s *RecentStore) Ping(ctx context.Context) error {
	return s.store.Ping(ctx).Err()
}
