package ledger

import (
	"context"
	"fmt"

	"github.com/yourorg/rentradar/internal/redisx"
)

const DefaultRedisKey = "rentradar:seen"

// Redis keeps the ledger in a Redis set so it is shared across restarts and
// hosts.
type Redis struct {
	c   *redisx.Client
	key string
}

func NewRedis(c *redisx.Client, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{c: c, key: key}
}

func (r *Redis) Seen(ctx context.Context, id string) (bool, error) {
	ok, err := r.c.SIsMember(ctx, r.key, id)
	if err != nil {
		return false, fmt.Errorf("ledger: redis seen %s: %w", id, err)
	}
	return ok, nil
}

func (r *Redis) MarkSeen(ctx context.Context, id string) error {
	if _, err := r.c.SAdd(ctx, r.key, id); err != nil {
		return fmt.Errorf("ledger: redis mark %s: %w", id, err)
	}
	return nil
}
