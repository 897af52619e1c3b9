package lock

import "context"

// Handle represents an acquired lock. Unlock must be called on every exit
// path that followed a successful acquisition.
type Handle interface {
	Unlock(ctx context.Context) error
}

// Manager provides named, time-bounded mutual exclusion across coordinator
// instances. Locks are leased: a crashed holder cannot block a key past the
// lease expiry.
//
// TryLock attempts a single acquisition and returns the handle and true on
// success, or nil and false when the key is held elsewhere. It never blocks
// past the configured acquisition timeout.
type Manager interface {
	TryLock(ctx context.Context, key string) (Handle, bool, error)
}
