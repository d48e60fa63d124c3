package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const balanceKeyPrefix = "billing:balance:"

// BalanceCache keeps a short-lived copy of account balances. The database
// stays authoritative: every read miss or cache error falls through to it,
// and a credit grant deletes the entry.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBalanceCache(client *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl}
}

func balanceKey(userID string) string {
	return balanceKeyPrefix + userID
}

func (c *BalanceCache) Get(ctx context.Context, userID string) (int64, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	v, err := c.client.Get(ctx, balanceKey(userID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debugf("[BalanceCache] get %s: %v", userID, err)
		}
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *BalanceCache) Set(ctx context.Context, userID string, credits int64) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, balanceKey(userID), credits, c.ttl).Err(); err != nil {
		log.Debugf("[BalanceCache] set %s: %v", userID, err)
	}
}

func (c *BalanceCache) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, balanceKey(userID)).Err(); err != nil {
		log.Warnf("[BalanceCache] invalidate %s: %v", userID, err)
	}
}
