package resilience

import "golang.org/x/sync/semaphore"

// Bulkhead bounds how many batch cycles may be in flight at once.
// TryAcquire never blocks: a saturated bulkhead means the caller skips the
// cycle and tries again on the next tick.
type Bulkhead struct {
	sem *semaphore.Weighted
}

// NewBulkhead creates a bulkhead admitting up to capacity concurrent holders
func NewBulkhead(capacity int64) *Bulkhead {
	if capacity < 1 {
		capacity = 1
	}
	return &Bulkhead{sem: semaphore.NewWeighted(capacity)}
}

// TryAcquire claims a slot without blocking
func (b *Bulkhead) TryAcquire() bool {
	return b.sem.TryAcquire(1)
}

// Release returns a previously acquired slot
func (b *Bulkhead) Release() {
	b.sem.Release(1)
}
