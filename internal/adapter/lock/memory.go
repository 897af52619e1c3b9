package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryManager implements Manager for tests and single-process deployments.
// It honors the same lease semantics as the Redis-backed manager: a held key
// becomes acquirable again once its lease expires.
type MemoryManager struct {
	mu     sync.Mutex
	held   map[string]time.Time // key -> lease deadline
	expiry time.Duration
}

var _ Manager = (*MemoryManager)(nil)

// NewMemoryManager creates an in-process lock manager with the given lease expiry
func NewMemoryManager(expiry time.Duration) *MemoryManager {
	return &MemoryManager{
		held:   make(map[string]time.Time),
		expiry: expiry,
	}
}

// TryLock attempts a single acquisition of the named lock
func (m *MemoryManager) TryLock(ctx context.Context, key string) (Handle, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if deadline, ok := m.held[key]; ok && time.Now().Before(deadline) {
		return nil, false, nil
	}

	m.held[key] = time.Now().Add(m.expiry)
	return &memoryHandle{manager: m, key: key}, true, nil
}

type memoryHandle struct {
	manager *MemoryManager
	key     string
}

func (h *memoryHandle) Unlock(_ context.Context) error {
	h.manager.mu.Lock()
	defer h.manager.mu.Unlock()
	delete(h.manager.held, h.key)
	return nil
}
