package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JiHungLin/Skalds/internal/app/core"
	"github.com/JiHungLin/Skalds/internal/components/redis"
	"github.com/JiHungLin/Skalds/internal/consts"
)

// CacheDao is the typed surface over the shared cache. A missing string key
// or hash field comes back as ErrNotFound; a missing hash or list reads as
// empty. Everything else is a retriable transport error.
type CacheDao interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	GetHashField(ctx context.Context, key, field string) (string, error)
	SetHashField(ctx context.Context, key, field, value string, fieldTTL time.Duration) error
	GetAllHashFields(ctx context.Context, key string) (map[string]string, error)
	PushList(ctx context.Context, key, value string, ttl time.Duration) error
	ReadList(ctx context.Context, key string, start, end int64) ([]string, error)
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Reachable() bool
}

// RedisCacheDao implements CacheDao on the redis component.
type RedisCacheDao struct {
	*core.BaseComponent
	Redis *redis.RedisComponent `infra:"dep:redis"`
}

func NewRedisCacheDao() *RedisCacheDao {
	return &RedisCacheDao{
		BaseComponent: core.NewBaseComponent(consts.COMP_DAO_CACHE, consts.COMPONENT_REDIS),
	}
}

func (d *RedisCacheDao) client() goredis.UniversalClient {
	if d.Redis == nil {
		return nil
	}
	return d.Redis.Client()
}

// opCtx applies the configured per-operation deadline.
func (d *RedisCacheDao) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Second
	if d.Redis != nil {
		timeout = d.Redis.OpTimeout()
	}
	return context.WithTimeout(ctx, timeout)
}

func (d *RedisCacheDao) GetString(ctx context.Context, key string) (string, error) {
	c := d.client()
	if c == nil {
		return "", fmt.Errorf("cache not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	v, err := c.Get(opCtx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cache get %s: %w", key, err)
	}
	return v, nil
}

func (d *RedisCacheDao) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	c := d.client()
	if c == nil {
		return fmt.Errorf("cache not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	if err := c.Set(opCtx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (d *RedisCacheDao) GetHashField(ctx context.Context, key, field string) (string, error) {
	c := d.client()
	if c == nil {
		return "", fmt.Errorf("cache not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	v, err := c.HGet(opCtx, key, field).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cache hget %s.%s: %w", key, field, err)
	}
	return v, nil
}

// SetHashField writes a hash field with its own TTL (HEXPIRE), which the
// skald registration hashes require.
func (d *RedisCacheDao) SetHashField(ctx context.Context, key, field, value string, fieldTTL time.Duration) error {
	c := d.client()
	if c == nil {
		return fmt.Errorf("cache not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	if err := c.HSet(opCtx, key, field, value).Err(); err != nil {
		return fmt.Errorf("cache hset %s.%s: %w", key, field, err)
	}
	if fieldTTL > 0 {
		if err := c.HExpire(opCtx, key, fieldTTL, field).Err(); err != nil {
			return fmt.Errorf("cache hexpire %s.%s: %w", key, field, err)
		}
	}
	return nil
}

func (d *RedisCacheDao) GetAllHashFields(ctx context.Context, key string) (map[string]string, error) {
	c := d.client()
	if c == nil {
		return nil, fmt.Errorf("cache not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	m, err := c.HGetAll(opCtx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cache hgetall %s: %w", key, err)
	}
	return m, nil
}

func (d *RedisCacheDao) PushList(ctx context.Context, key, value string, ttl time.Duration) error {
	c := d.client()
	if c == nil {
		return fmt.Errorf("cache not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	if err := c.RPush(opCtx, key, value).Err(); err != nil {
		return fmt.Errorf("cache rpush %s: %w", key, err)
	}
	if ttl > 0 {
		if err := c.Expire(opCtx, key, ttl).Err(); err != nil {
			return fmt.Errorf("cache expire %s: %w", key, err)
		}
	}
	return nil
}

func (d *RedisCacheDao) ReadList(ctx context.Context, key string, start, end int64) ([]string, error) {
	c := d.client()
	if c == nil {
		return nil, fmt.Errorf("cache not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	vals, err := c.LRange(opCtx, key, start, end).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lrange %s: %w", key, err)
	}
	return vals, nil
}

func (d *RedisCacheDao) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	c := d.client()
	if c == nil {
		return fmt.Errorf("cache not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	if err := c.Del(opCtx, keys...).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}

// DeleteByPattern scans for matching keys and deletes them; used by the
// skald monitor's eviction sweep.
func (d *RedisCacheDao) DeleteByPattern(ctx context.Context, pattern string) error {
	c := d.client()
	if c == nil {
		return fmt.Errorf("cache not connected")
	}
	opCtx, cancel := d.opCtx(ctx)
	defer cancel()
	iter := c.Scan(opCtx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(opCtx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.Del(opCtx, keys...).Err(); err != nil {
		return fmt.Errorf("cache del by pattern %s: %w", pattern, err)
	}
	return nil
}

func (d *RedisCacheDao) Reachable() bool {
	return d.Redis != nil && d.Redis.HealthCheck() == nil
}
