package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"qserveu/utils"
)

// OfficeLocker serializes ticket allocation per office. The lowest-free-number
// scan is a read-then-write sequence; without mutual exclusion two visitors
// can observe the same used set and pick the same number.
type OfficeLocker interface {
	Acquire(ctx context.Context, officeID string) (release func(), err error)
}

const lockRetryDelay = 50 * time.Millisecond

// releaseLockScript deletes the lock only when it still holds our token, so
// an expired lock taken over by another session is never released by us.
const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker implements OfficeLocker on a shared Redis instance, which makes
// the exclusion hold across every client process of one deployment.
type RedisLocker struct {
	redis *redis.Client
	ttl   time.Duration

	// newToken is swapped out in tests.
	newToken func() string
}

func NewRedisLocker(redisClient *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{redis: redisClient, ttl: ttl, newToken: utils.NewRecordID}
}

func (l *RedisLocker) Acquire(ctx context.Context, officeID string) (func(), error) {
	key := "alloc:lock:" + officeID
	token := l.newToken()

	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		l.redis.Eval(ctx, releaseLockScript, []string{key}, token)
	}
	return release, nil
}

// LocalLocker is the in-process fallback used when no Redis is configured.
// It only guards allocations made by this process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) Acquire(_ context.Context, officeID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[officeID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[officeID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
