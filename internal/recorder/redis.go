package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"SectorPulse/internal/model"
)

// RedisRecorder stores the latest snapshot JSON under a single key.
type RedisRecorder struct {
	client *redis.Client
	key    string
}

// NewRedisRecorder connects to addr and checks the connection.
func NewRedisRecorder(ctx context.Context, addr, password string, db int, key string) (*RedisRecorder, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisRecorder{client: client, key: key}, nil
}

func (r *RedisRecorder) SaveSnapshot(ctx context.Context, _ string, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisRecorder) LatestSnapshot(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return data, nil
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
