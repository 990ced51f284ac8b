package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the redis connection used for cross-process coordination.
type Client struct {
	client *redis.Client
}

func NewClient(addr string) *Client {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password by default
		DB:       0,  // use default DB
	})
	return &Client{client: client}
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *Client) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// StampDay marks an owner-day as counted. Returns true when this call set
// the stamp, false when it already existed. Implements the usage
// aggregator's DayStamper.
func (c *Client) StampDay(ctx context.Context, ownerID uint, day string) (bool, error) {
	key := fmt.Sprintf("usage:day:%d:%s", ownerID, day)
	return c.client.SetNX(ctx, key, 1, 48*time.Hour).Result()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
