package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// AcquireOfferLock is the single-use guard on a waiting-list offer: the first
// checkout attempt wins the key, concurrent attempts for the same offer lose.
func (c *Cache) AcquireOfferLock(ctx context.Context, reservationID string, ttl time.Duration) (bool, error) {
	res := c.client.SetNX(ctx, "offer:"+reservationID, "1", ttl)
	return res.Val(), res.Err()
}

func (c *Cache) ReleaseOfferLock(ctx context.Context, reservationID string) error {
	return c.client.Del(ctx, "offer:"+reservationID).Err()
}
