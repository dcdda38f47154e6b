package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yourorg/rentradar/internal/budget"
)

const budgetKey = "rentradar:budget"

type Client struct{ Rdb *redis.Client }

func New(addr string, password string, db int) *Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &Client{Rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Rdb.Ping(ctx).Err()
}

func (c *Client) Close() error { return c.Rdb.Close() }

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.Rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, val string, ttl time.Duration) error {
	return c.Rdb.Set(ctx, key, val, ttl).Err()
}

// SAdd reports whether member was newly added to the set.
func (c *Client) SAdd(ctx context.Context, key, member string) (bool, error) {
	n, err := c.Rdb.SAdd(ctx, key, member).Result()
	return n == 1, err
}

func (c *Client) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return c.Rdb.SIsMember(ctx, key, member).Result()
}

func (c *Client) SCard(ctx context.Context, key string) (int64, error) {
	return c.Rdb.SCard(ctx, key).Result()
}

// LoadBudget and SaveBudget let the send budget survive restarts.
func (c *Client) LoadBudget(ctx context.Context) (budget.State, bool, error) {
	var s budget.State
	val, err := c.Get(ctx, budgetKey)
	if errors.Is(err, redis.Nil) {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return s, false, err
	}
	return s, true, nil
}

func (c *Client) SaveBudget(ctx context.Context, s budget.State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	// kept for two days so yesterday's count is still visible after midnight
	return c.Set(ctx, budgetKey, string(b), 48*time.Hour)
}
