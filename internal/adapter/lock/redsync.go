package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

// RedsyncManager implements Manager on top of Redis using the RedLock
// algorithm. The lease expiry bounds how long a crashed holder can starve
// other workers.
type RedsyncManager struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

var _ Manager = (*RedsyncManager)(nil)

// NewRedsyncManager creates a distributed lock manager backed by the given
// Redis client. expiry is the lock lease duration.
func NewRedsyncManager(client *goredislib.Client, expiry time.Duration) *RedsyncManager {
	return &RedsyncManager{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: expiry,
	}
}

// TryLock attempts a single acquisition of the named lock
func (m *RedsyncManager) TryLock(ctx context.Context, key string) (Handle, bool, error) {
	mutex := m.rs.NewMutex(key,
		redsync.WithExpiry(m.expiry),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		// Contention is expected behavior, not a failure
		if errors.Is(err, redsync.ErrFailed) {
			return nil, false, nil
		}
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	return &redsyncHandle{mutex: mutex}, true, nil
}

type redsyncHandle struct {
	mutex *redsync.Mutex
}

func (h *redsyncHandle) Unlock(ctx context.Context) error {
	ok, err := h.mutex.UnlockContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if !ok {
		return errors.New("lock was not held or already expired")
	}
	return nil
}
