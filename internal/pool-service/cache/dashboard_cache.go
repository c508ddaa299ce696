package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyDashboard = "pool:dashboard"

// Cache guarda o dashboard calculado no Redis até a próxima mutação (ou TTL)
type Cache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *Cache { return &Cache{R: r, TTL: ttl} }

func (c *Cache) GetDashboard(ctx context.Context, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyDashboard).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) SetDashboard(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyDashboard, b, c.TTL).Err()
}

// Invalidate remove o dashboard; chamado após cada mutação
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.R.Del(ctx, keyDashboard).Err()
}
