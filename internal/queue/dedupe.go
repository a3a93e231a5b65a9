package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultUpdateTTL = 6 * time.Hour

// UpdateDeduplicator remembers Telegram update ids so a redelivered update is
// not ingested twice. Shared by every bot process pointing at the same Redis.
type UpdateDeduplicator struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

func NewUpdateDeduplicator(rdb *redis.Client, ttl time.Duration) *UpdateDeduplicator {
	if ttl <= 0 {
		ttl = defaultUpdateTTL
	}
	return &UpdateDeduplicator{redis: rdb, ttl: ttl, prefix: "labelops:update:"}
}

// MarkFirst reports whether this is the first time updateID was seen.
func (d *UpdateDeduplicator) MarkFirst(ctx context.Context, updateID int64) (bool, error) {
	key := fmt.Sprintf("%s%d", d.prefix, updateID)
	ok, err := d.redis.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe setnx: %w", err)
	}
	return ok, nil
}
