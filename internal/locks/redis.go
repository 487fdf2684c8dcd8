// Package locks provides a cross-process lock used to serialize model pulls
// between gateway instances that share one runtime
package locks

import (
	"context"
	"errors"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/manifold-inc/manifold-sdk/lib/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "extract-gateway:provision:"

var ErrNotAcquired = errors.New("lock not acquired")

// releaseScript only deletes the key if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	log    *zap.SugaredLogger
	ttl    time.Duration
	poll   time.Duration
}

func NewRedisLocker(client *redis.Client, log *zap.SugaredLogger, ttl, poll time.Duration) *RedisLocker {
	return &RedisLocker{client: client, log: log, ttl: ttl, poll: poll}
}

// Lock blocks until key is acquired or ctx is done. The lock expires after
// the configured ttl even if unlock is never called.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := nanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 21)
	if err != nil {
		return nil, utils.Wrap("failed generating lock token", err)
	}
	key = keyPrefix + key

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, utils.Wrap("failed acquiring provisioning lock", err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.log.Warnw("Failed releasing provisioning lock", "key", key, "error", err.Error())
	}
}
