package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Compile-time check that RedisLocker implements Locker
var _ Locker = (*RedisLocker)(nil)

// RedisConfig holds Redis lock configuration.
type RedisConfig struct {
	// Addr is the Redis server address (e.g., "localhost:6379")
	Addr string
	// Password for Redis authentication (empty for no auth)
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// TTL bounds how long a crashed holder can keep a key locked
	TTL time.Duration
	// RetryInterval is the poll interval while waiting for a held key
	RetryInterval time.Duration
	// KeyPrefix is prepended to all lock keys
	KeyPrefix string
}

// RedisConfigDefaults returns sensible defaults for the Redis lock.
func RedisConfigDefaults() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		TTL:           10 * time.Second,
		RetryInterval: 25 * time.Millisecond,
		KeyPrefix:     "minibroker:lock",
	}
}

// releaseScript deletes the key only if it still holds our token, so a
// holder whose TTL expired cannot release somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker backed by SET NX PX on a shared Redis.
type RedisLocker struct {
	client    *redis.Client
	ttl       time.Duration
	retry     time.Duration
	keyPrefix string
	logger    *slog.Logger
}

// NewRedisLocker creates a new Redis-backed locker.
func NewRedisLocker(cfg RedisConfig, logger *slog.Logger) (*RedisLocker, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("lock ttl must be positive, got %s", cfg.TTL)
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = RedisConfigDefaults().RetryInterval
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if logger == nil {
		logger = slog.Default()
	}

	return &RedisLocker{
		client:    client,
		ttl:       cfg.TTL,
		retry:     cfg.RetryInterval,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger.With("component", "redis-lock"),
	}, nil
}

// Ping checks the Redis connection.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

func (l *RedisLocker) key(k string) string {
	if l.keyPrefix == "" {
		return k
	}
	return l.keyPrefix + ":" + k
}

// Lock polls SET NX until the key is acquired or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.key(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", redisKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled.
			rctx, cancel := context.WithTimeout(context.Background(), l.ttl)
			defer cancel()

			if err := releaseScript.Run(rctx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				l.logger.Error("failed to release lock", "key", redisKey, "error", err)
			}
		})
	}, nil
}
