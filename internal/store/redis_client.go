package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tuan6100/audio-pipeline/internal/logger"
	"github.com/tuan6100/audio-pipeline/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// RedisClient wraps redis.Client with connection pooling and instrumentation.
// It is the low-level primitive underneath Store; Store adds job-state semantics.
type RedisClient struct {
	client *redis.Client
}

var globalRedis *RedisClient

// NewRedisClient creates and initializes a Redis client with connection pooling.
func NewRedisClient(host, port, password string) (*RedisClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("failed to connect to redis", err)
		return nil, err
	}

	rc := &RedisClient{client: client}
	globalRedis = rc

	logger.Log.Info("redis client connected",
		zap.String("address", addr),
	)

	return rc, nil
}

// GetRedisClient returns the global Redis client instance, if one has been created.
func GetRedisClient() *RedisClient {
	return globalRedis
}

// Close closes the Redis connection gracefully.
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

func (rc *RedisClient) Get(ctx context.Context, key string) (string, error) {
	_, span := otel.Tracer("store").Start(ctx, "redis.get")
	defer span.End()
	span.SetAttributes(
		attribute.String("store.key_pattern", extractKeyPattern(key)),
		attribute.String("store.operation", "get"),
	)

	start := time.Now()
	result, err := rc.client.Get(ctx, key).Result()
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		if err == redis.Nil {
			status = "miss"
		} else {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}
	}
	recordStoreOp("get", extractKeyPattern(key), duration, status)
	return result, err
}

func (rc *RedisClient) Set(ctx context.Context, key string, value interface{}) error {
	_, span := otel.Tracer("store").Start(ctx, "redis.set")
	defer span.End()

	start := time.Now()
	err := rc.client.Set(ctx, key, value, 0).Err()
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	recordStoreOp("set", extractKeyPattern(key), duration, status)
	return err
}

func (rc *RedisClient) SetEx(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	_, span := otel.Tracer("store").Start(ctx, "redis.setex")
	defer span.End()
	span.SetAttributes(attribute.Int64("store.ttl_seconds", int64(ttl.Seconds())))

	start := time.Now()
	err := rc.client.Set(ctx, key, value, ttl).Err()
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	recordStoreOp("setex", extractKeyPattern(key), duration, status)
	return err
}

func (rc *RedisClient) Del(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := rc.client.Del(ctx, keys...).Err()
	duration := time.Since(start)

	pattern := "del"
	if len(keys) > 0 {
		pattern = extractKeyPattern(keys[0])
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	recordStoreOp("del", pattern, duration, status)
	return err
}

func (rc *RedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	return rc.client.Exists(ctx, keys...).Result()
}

func (rc *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return rc.client.Incr(ctx, key).Result()
}

func (rc *RedisClient) Decr(ctx context.Context, key string) (int64, error) {
	return rc.client.Decr(ctx, key).Result()
}

func (rc *RedisClient) IncrBy(ctx context.Context, key string, increment int64) (int64, error) {
	return rc.client.IncrBy(ctx, key, increment).Result()
}

func (rc *RedisClient) GetInt(ctx context.Context, key string) (int64, error) {
	return rc.client.Get(ctx, key).Int64()
}

func (rc *RedisClient) RPush(ctx context.Context, key string, values ...interface{}) error {
	return rc.client.RPush(ctx, key, values...).Err()
}

func (rc *RedisClient) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return rc.client.LRange(ctx, key, start, stop).Result()
}

func (rc *RedisClient) LLen(ctx context.Context, key string) (int64, error) {
	return rc.client.LLen(ctx, key).Result()
}

func (rc *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return rc.client.Expire(ctx, key, ttl).Err()
}

func (rc *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rc.client.TTL(ctx, key).Result()
}

func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	return rc.client.Keys(ctx, pattern).Result()
}

func (rc *RedisClient) HSet(ctx context.Context, key string, values ...interface{}) error {
	return rc.client.HSet(ctx, key, values...).Err()
}

func (rc *RedisClient) HGet(ctx context.Context, key string, field string) (string, error) {
	return rc.client.HGet(ctx, key, field).Result()
}

func (rc *RedisClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return rc.client.HGetAll(ctx, key).Result()
}

func (rc *RedisClient) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	return rc.client.HIncrBy(ctx, key, field, incr).Result()
}

func (rc *RedisClient) HSetNX(ctx context.Context, key, field string, value interface{}) (bool, error) {
	return rc.client.HSetNX(ctx, key, field, value).Result()
}

// Publish publishes a message to a pub/sub channel.
func (rc *RedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return rc.client.Publish(ctx, channel, message).Err()
}

// Subscribe subscribes to a pub/sub channel, returning the underlying PubSub handle.
func (rc *RedisClient) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return rc.client.Subscribe(ctx, channel)
}

func recordStoreOp(operation, keyPattern string, duration time.Duration, status string) {
	m := metrics.Get()
	m.RedisOperationDuration.WithLabelValues(operation, keyPattern).Observe(duration.Seconds())
	m.RedisOperationsTotal.WithLabelValues(operation, status).Inc()
}

// extractKeyPattern groups job-state-store keys by prefix for low-cardinality metrics labels,
// e.g. "job:3fae2c-...:status" -> "job:*"
func extractKeyPattern(key string) string {
	if len(key) == 0 {
		return "other"
	}

	patterns := []string{"job:", "job_steps:", "job_segments:", "job_progress:", "rate_limit:"}
	for _, prefix := range patterns {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			return prefix + "*"
		}
	}
	return "other"
}
