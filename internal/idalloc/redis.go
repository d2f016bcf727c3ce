package idalloc

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultRedisKeyPrefix = "incident-seq"

// RedisAllocator держит счётчик года в ключе Redis и увеличивает его через INCR.
// Ключ засевается (SETNX) наибольшим номером из базы, поэтому потеря ключа
// не приводит к повтору номеров. Номер, взятый откатившейся транзакцией, пропадает.
type RedisAllocator struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisAllocator(client redis.UniversalClient) *RedisAllocator {
	return &RedisAllocator{client: client, keyPrefix: defaultRedisKeyPrefix}
}

// NewRedisAllocatorFromURL разбирает URL вида redis://host:6379/0 и проверяет соединение.
func NewRedisAllocatorFromURL(ctx context.Context, url string) (*RedisAllocator, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisAllocator(client), nil
}

func (a *RedisAllocator) key(year int) string {
	return fmt.Sprintf("%s:%d", a.keyPrefix, year)
}

func (a *RedisAllocator) Next(ctx context.Context, tx *gorm.DB, year int) (int64, error) {
	key := a.key(year)

	exists, err := a.client.Exists(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis exists %s: %w", key, err)
	}
	if exists == 0 {
		floor, err := HighestIssued(tx.WithContext(ctx), year)
		if err != nil {
			return 0, err
		}
		if err := a.client.SetNX(ctx, key, floor, 0).Err(); err != nil {
			return 0, fmt.Errorf("redis setnx %s: %w", key, err)
		}
	}

	seq, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return seq, nil
}

func (a *RedisAllocator) Close() error {
	return a.client.Close()
}
