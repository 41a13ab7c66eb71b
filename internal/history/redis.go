package history

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
)

// RedisConfig configures the Redis tracker.
type RedisConfig struct {
	Address   string        `yaml:"address"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// Redis tracks targets as keys with an optional TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    logger.Logger
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig, log logger.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Address, err)
	}
	return NewRedisWithClient(client, cfg.KeyPrefix, cfg.TTL, log), nil
}

func NewRedisWithClient(client *redis.Client, prefix string, ttl time.Duration, log logger.Logger) *Redis {
	if prefix == "" {
		prefix = "outreach"
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, log: log}
}

func (r *Redis) key(t models.Target) string {
	return fmt.Sprintf("%s:processed:%s:%s", r.prefix, t.Platform, t.ID)
}

func (r *Redis) Seen(ctx context.Context, t models.Target) (bool, error) {
	key := r.key(t)
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.log.Error("Redis error checking target", logger.String("redis_key", key), logger.Error(err))
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	return n == 1, nil
}

func (r *Redis) Mark(ctx context.Context, t models.Target, outcome string) error {
	key := r.key(t)
	if err := r.client.Set(ctx, key, outcome, r.ttl).Err(); err != nil {
		r.log.Error("Redis error marking target", logger.String("redis_key", key), logger.Error(err))
		return fmt.Errorf("mark %s: %w", key, err)
	}
	r.log.Debug("Target marked", logger.String("redis_key", key), logger.Duration("ttl", r.ttl))
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
