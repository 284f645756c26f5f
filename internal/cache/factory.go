package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options selects and sizes a cache backend.
type Options struct {
	Backend   string // memory, ristretto or redis
	Size      int
	TTL       time.Duration
	Namespace string
	Redis     redis.UniversalClient
}

// New builds a cache for the configured backend.
func New[T any](opts Options) (Cache[T], error) {
	switch opts.Backend {
	case "", "memory":
		return NewLRUCache[T](opts.Size, opts.TTL), nil
	case "ristretto":
		c, err := NewRistrettoCache[T](opts.Size, opts.TTL)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "redis":
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis cache %q: no client", opts.Namespace)
		}
		return NewRedisCache[T](opts.Redis, opts.Namespace, opts.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// NewRedisClient connects to redis and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}
