package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/config"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fleet:lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 1 * time.Second,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		PoolSize:        10,
		MinIdleConns:    2,
		ConnMaxIdleTime: 5 * time.Minute,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisLocker leases keys with SET NX PX so every server and fleetctl run
// sharing one Redis sees the same locks.
type RedisLocker struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisLocker(client *redis.Client, log *logger.Logger) *RedisLocker {
	return &RedisLocker{client: client, log: log}
}

var _ ports.Locker = (*RedisLocker)(nil)

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	full := keyPrefix + key

	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{full}, token).Err(); err != nil {
			l.log.Warnw("lock_release_failed", "key", key, "error", err)
		}
	}, true, nil
}
