package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKey is the redis key guarding the inventory sync run
const DefaultKey = "equipsync:lease:inventory_sync"

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease implements Lease with SET NX PX on a single key
type RedisLease struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

var _ Lease = (*RedisLease)(nil)

// NewRedisLease creates a lease on key. An empty key uses DefaultKey.
func NewRedisLease(client *redis.Client, key string, logger *zap.Logger) *RedisLease {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLease{
		client: client,
		key:    key,
		logger: logger.Named("redis_lease"),
	}
}

// Acquire implements Lease
func (l *RedisLease) Acquire(ctx context.Context, ttl time.Duration) (func(context.Context) error, error) {
	token := newToken()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lease: acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}
	l.logger.Debug("Lease acquired", zap.String("key", l.key), zap.Duration("ttl", ttl))

	released := false
	return func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true
		n, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
		if err != nil {
			return fmt.Errorf("lease: release %s: %w", l.key, err)
		}
		if n == 0 {
			l.logger.Warn("Lease expired before release", zap.String("key", l.key))
		}
		return nil
	}, nil
}
