package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Dedup remembers processed event ids per service.
type Dedup struct {
	rdb     *redis.Client
	service string
}

func NewDedup(rdb *redis.Client, service string) *Dedup {
	return &Dedup{rdb: rdb, service: service}
}

func (d *Dedup) key(id string) string { return fmt.Sprintf(KeyDedup, d.service, id) }

// Claim marks id as in flight. It reports false when another delivery already
// claimed or completed it.
func (d *Dedup) Claim(ctx context.Context, id string) (bool, error) {
	return d.rdb.SetNX(ctx, d.key(id), "claimed", TTLClaim).Result()
}

// Done keeps the claim for TTLDedup so redeliveries are skipped.
func (d *Dedup) Done(ctx context.Context, id string) error {
	return d.rdb.Set(ctx, d.key(id), "done", TTLDedup).Err()
}

// Release drops a claim so a later delivery may retry.
func (d *Dedup) Release(ctx context.Context, id string) error {
	return d.rdb.Del(ctx, d.key(id)).Err()
}
