package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock held by another operation")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// PeriodLockKey builds the redis key guarding liquidation of one period.
func PeriodLockKey(periodID int64) string {
	return fmt.Sprintf("payroll:period:%d:lock", periodID)
}

// AutosaveLockKey builds the redis key serialising draft saves of one period.
func AutosaveLockKey(periodID int64) string {
	return fmt.Sprintf("payroll:period:%d:autosave", periodID)
}

// Locker hands out token-owned redis locks.
type Locker struct {
	client *redis.Client
	poll   time.Duration
}

// NewLocker constructs a Locker backed by client.
func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client, poll: 50 * time.Millisecond}
}

// Lock is a held lock; Release only deletes the key while the token matches.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes the lock once or fails with ErrLockHeld.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("locker not initialised")
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{client: l.client, key: key, token: token}, nil
}

// AcquireWait retries Acquire until the lock is free or wait elapses.
func (l *Locker) AcquireWait(ctx context.Context, key string, ttl, wait time.Duration) (*Lock, error) {
	deadline := time.Now().Add(wait)
	for {
		lock, err := l.Acquire(ctx, key, ttl)
		if !errors.Is(err, ErrLockHeld) {
			return lock, err
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Release frees the lock if it is still owned by this holder.
func (k *Lock) Release(ctx context.Context) error {
	if k == nil {
		return nil
	}
	return releaseScript.Run(ctx, k.client, []string{k.key}, k.token).Err()
}
