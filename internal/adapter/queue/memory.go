package queue

import (
	"context"
	"sync"

	"github.com/corebank/banking-backend/internal/domain"
)

// MemoryQueue implements domain.WorkQueue in process memory.
// FIFO per step kind, safe for concurrent use.
type MemoryQueue struct {
	mu    sync.Mutex
	items map[domain.StepKind][]domain.WorkItem
}

var _ domain.WorkQueue = (*MemoryQueue)(nil)

// NewMemoryQueue creates an empty in-memory work queue
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{items: make(map[domain.StepKind][]domain.WorkItem)}
}

// Push appends a work item to the tail of its step-kind queue
func (q *MemoryQueue) Push(ctx context.Context, item domain.WorkItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items[item.Step] = append(q.items[item.Step], item)
	return nil
}

// Pop takes a work item from the head of the step-kind queue.
// Returns false when the queue is empty.
func (q *MemoryQueue) Pop(ctx context.Context, kind domain.StepKind) (domain.WorkItem, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.WorkItem{}, false, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.items[kind]
	if len(pending) == 0 {
		return domain.WorkItem{}, false, nil
	}

	item := pending[0]
	q.items[kind] = pending[1:]
	return item, true, nil
}

// Len reports the number of queued items for a step kind
func (q *MemoryQueue) Len(kind domain.StepKind) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items[kind])
}
