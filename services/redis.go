package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	appContext.DefaultService
	redis *redis.Client
}

const REDIS_SVC = "redis_svc"

var errRedisNotInitialized = errors.New("redis client not initialized")

func (svc RedisService) Id() string {
	return REDIS_SVC
}

func (svc *RedisService) Configure(ctx *appContext.Context) error {
	svc.initRedisClient()
	return svc.DefaultService.Configure(ctx)
}

func (svc *RedisService) Start() error {
	if svc.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := svc.redis.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}
	return nil
}

func (svc *RedisService) Shutdown() {
	if svc.redis != nil {
		_ = svc.redis.Close()
	}
}

func (svc *RedisService) initRedisClient() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")

	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}

	svc.redis = redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
}

func (svc *RedisService) GetClient() *redis.Client {
	return svc.redis
}

func (svc *RedisService) Get(ctx context.Context, key string) (string, error) {
	if svc.redis == nil {
		return "", errRedisNotInitialized
	}

	result, err := svc.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return result, err
}

func (svc *RedisService) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if svc.redis == nil {
		return errRedisNotInitialized
	}
	return svc.redis.Set(ctx, key, value, expiration).Err()
}

func (svc *RedisService) Delete(ctx context.Context, keys ...string) error {
	if svc.redis == nil {
		return errRedisNotInitialized
	}
	return svc.redis.Del(ctx, keys...).Err()
}

func (svc *RedisService) TTL(ctx context.Context, key string) (time.Duration, error) {
	if svc.redis == nil {
		return 0, errRedisNotInitialized
	}
	return svc.redis.TTL(ctx, key).Result()
}

// IncrementWindow bumps a fixed-window counter and starts its expiry on the first hit.
// It returns the count and the time left in the window.
func (svc *RedisService) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if svc.redis == nil {
		return 0, 0, errRedisNotInitialized
	}

	pipe := svc.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	left := ttl.Val()
	if left < 0 {
		left = window
	}
	return incr.Val(), left, nil
}

// Enqueue appends a message to a list used as a work queue.
func (svc *RedisService) Enqueue(ctx context.Context, queue string, message []byte) error {
	if svc.redis == nil {
		return errRedisNotInitialized
	}
	return svc.redis.RPush(ctx, queue, message).Err()
}

// Dequeue blocks up to timeout for the next queued message. It returns nil when the
// queue stayed empty.
func (svc *RedisService) Dequeue(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	if svc.redis == nil {
		return nil, errRedisNotInitialized
	}

	result, err := svc.redis.BLPop(ctx, timeout, queue).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BLPOP answers [key, value].
	return []byte(result[1]), nil
}

func (svc *RedisService) Publish(ctx context.Context, channel string, message []byte) error {
	if svc.redis == nil {
		return errRedisNotInitialized
	}
	return svc.redis.Publish(ctx, channel, message).Err()
}

func (svc *RedisService) Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error) {
	if svc.redis == nil {
		return nil, errRedisNotInitialized
	}

	sub := svc.redis.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	return sub, nil
}
