package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a response stays locked for longer than
// the caller is willing to wait
var ErrLockTimeout = errors.New("response is locked by another request")

// ResponseLocker serializes saves and submits of one response across
// server instances
type ResponseLocker interface {
	Acquire(ctx context.Context, token string) (release func(), err error)
}

// releaseScript deletes the lock only if we still own it
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type responseLock struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewResponseLock creates a Redis backed locker. ttl bounds how long a crashed
// holder can block a response.
func NewResponseLock(client *redis.Client, ttl time.Duration) ResponseLocker {
	return &responseLock{
		client: client,
		ttl:    ttl,
		wait:   ttl,
		retry:  25 * time.Millisecond,
	}
}

func (l *responseLock) key(token string) string {
	return fmt.Sprintf("response:%s:lock", token)
}

func (l *responseLock) Acquire(ctx context.Context, token string) (func(), error) {
	key := l.key(token)
	owner := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(key, owner) }, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// release deletes key only while owner still holds it
func (l *responseLock) release(key, owner string) {
	// detached so a cancelled request still unlocks
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, owner).Err(); err != nil {
		log.Printf("Failed to release response lock, held until expiry: %v", err)
	}
}
