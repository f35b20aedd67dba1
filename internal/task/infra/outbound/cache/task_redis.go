package cache

import (
	"context"
	"encoding/json"
	"time"

	sharedCache "github.com/davicafu/taskboard/internal/shared/infra/platform/cache"
	"github.com/go-redis/redis/v8"
)

// RedisTaskCache implementa la caché compartida sobre Redis. Las tareas se
// serializan a JSON, igual que en el resto de adaptadores.
type RedisTaskCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTaskCache(client *redis.Client, ttl time.Duration) *RedisTaskCache {
	return &RedisTaskCache{client: client, ttl: ttl}
}

func (c *RedisTaskCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil // cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisTaskCache) Set(ctx context.Context, key string, val interface{}, ttlSecs int) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	ttl := c.ttl
	if ttlSecs > 0 {
		ttl = time.Duration(ttlSecs) * time.Second
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *RedisTaskCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Verificación estática de la interfaz compartida.
var _ sharedCache.Cache = (*RedisTaskCache)(nil)
