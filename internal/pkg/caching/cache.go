// Package caching — кэш чтения поверх Redis (go-redis/cache, msgpack).
// Кэш — только ускорение: любая его ошибка логируется и запрос идёт в хранилище.
package caching

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ErrCacheMiss — ключа нет в кэше.
var ErrCacheMiss = cache.ErrCacheMiss

type ReadOnlyCache interface {
	Get(ctx context.Context, key string, target any) error
}

type Cache interface {
	ReadOnlyCache
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// UseCache читает key из кэша, а при промахе (или сбое кэша) вызывает callback
// и кладёт результат в кэш.
func UseCache[T any](ctx context.Context, cash Cache, key string, ttl time.Duration, callback func() (T, error)) (T, error) {
	var v T
	err := cash.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.WithError(err).WithField("key", key).Warn("Кэш недоступен, читаем из хранилища")
	}

	v, err = callback()
	if err != nil {
		return v, err
	}

	if err := cash.Set(ctx, key, v, ttl); err != nil {
		log.WithError(err).WithField("key", key).Debug("Не удалось записать в кэш")
	}
	return v, nil
}

type CacheRedis struct {
	instance *cache.Cache
}

func (c *CacheRedis) Get(ctx context.Context, key string, target any) error {
	return c.instance.Get(ctx, key, target)
}

func (c *CacheRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.instance.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: value,
		TTL:   ttl,
	})
}

func (c *CacheRedis) Delete(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := c.instance.Delete(ctx, key); err != nil && !errors.Is(err, ErrCacheMiss) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewCacheRedis создаёт кэш. withLocalCache добавляет локальный TinyLFU-слой
// на минуту: годится только для данных, которые терпят минутное отставание.
func NewCacheRedis(client redis.UniversalClient, withLocalCache bool) *CacheRedis {
	var localCache cache.LocalCache
	if withLocalCache {
		localCache = cache.NewTinyLFU(10000, time.Minute)
	}
	return &CacheRedis{cache.New(&cache.Options{
		Redis:      client,
		LocalCache: localCache,
	})}
}

// Noop — кэш, который всегда промахивается. Используется, когда Redis выключен.
type Noop struct{}

func (Noop) Get(context.Context, string, any) error { return ErrCacheMiss }

func (Noop) Set(context.Context, string, any, time.Duration) error { return nil }

func (Noop) Delete(context.Context, ...string) error { return nil }
