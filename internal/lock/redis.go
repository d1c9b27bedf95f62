package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisRetryDelay = 50 * time.Millisecond

// RedisLocker serializes access to keys across processes with redsync mutexes.
type RedisLocker struct {
	redsync *redsync.Redsync
	timeout time.Duration
	expiry  time.Duration
	log     *zap.Logger
}

func NewRedisLocker(rdb goredislib.UniversalClient, timeout, expiry time.Duration, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		redsync: redsync.New(goredis.NewPool(rdb)),
		timeout: timeout,
		expiry:  expiry,
		log:     log,
	}
}

func buildLockKey(key string) string {
	return "lock:account:" + key
}

func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (Release, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	tries := int(l.timeout/redisRetryDelay) + 1
	ordered := orderKeys(keys)
	held := make([]*redsync.Mutex, 0, len(ordered))

	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			unlockCtx, cancel := context.WithTimeout(context.Background(), l.expiry)
			if ok, err := held[i].UnlockContext(unlockCtx); !ok || err != nil {
				l.log.Warn("failed to release account lock",
					zap.String("lock_key", held[i].Name()), zap.Bool("unlock_ok", ok), zap.Error(err))
			}
			cancel()
		}
	}

	for _, key := range ordered {
		m := l.redsync.NewMutex(buildLockKey(key),
			redsync.WithExpiry(l.expiry),
			redsync.WithTries(tries),
			redsync.WithRetryDelay(redisRetryDelay),
		)
		if err := m.LockContext(ctx); err != nil {
			releaseHeld()
			return nil, fmt.Errorf("%w: key %s: %v", ErrTimeout, key, err)
		}
		held = append(held, m)
	}

	var once sync.Once
	return func() { once.Do(releaseHeld) }, nil
}
