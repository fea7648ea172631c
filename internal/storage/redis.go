package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/config"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/constants"
)

// Redis backs the decoded-text dedup cache: a set of MD5 digests of every
// document text already pushed through the pipeline.
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter connects and instruments the client with OpenTelemetry.
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,
	}

	client := redis.NewClient(opt)
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("instrumenting redis with opentelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close closes the client connection pool.
func (r *Redis) Close() error {
	return r.Client.Close()
}

// IsTextSeen reports whether a decoded text with this MD5 was already
// processed.
func (r *Redis) IsTextSeen(ctx context.Context, textMD5 string) (bool, error) {
	seen, err := r.Client.SIsMember(ctx, constants.TextMD5SetKey, textMD5).Result()
	if err != nil {
		return false, fmt.Errorf("checking text md5 set: %w", err)
	}
	return seen, nil
}

// MarkTextSeen records a decoded text MD5 and refreshes the set expiry. The
// expiry is on the whole set: the dedup window slides with activity.
func (r *Redis) MarkTextSeen(ctx context.Context, textMD5 string) error {
	pipe := r.Client.TxPipeline()
	pipe.SAdd(ctx, constants.TextMD5SetKey, textMD5)
	pipe.Expire(ctx, constants.TextMD5SetKey, constants.TextMD5Expire)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording text md5: %w", err)
	}
	return nil
}
