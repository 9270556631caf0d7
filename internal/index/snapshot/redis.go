package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "navassist:snapshot:"

// Redis stores snapshots as binary values with an expiry.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a store backed by the Redis server at addr.
func NewRedis(addr, password string, db int, ttl time.Duration) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: rdb, ttl: ttl}
}

// Load returns the vectors stored under key.
func (r *Redis) Load(ctx context.Context, key string) ([][]float64, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	vectors, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return vectors, true, nil
}

// Save stores vectors under key, replacing an existing snapshot.
func (r *Redis) Save(ctx context.Context, key string, vectors [][]float64) error {
	data, err := encode(vectors)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err()
}

// Close releases the client connections.
func (r *Redis) Close() error { return r.client.Close() }
