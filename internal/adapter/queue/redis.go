// Package queue provides WorkQueue backends: a Redis list queue for
// multi-instance deployments and an in-memory queue for tests and
// single-process mode.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/corebank/banking-backend/internal/domain"
)

const (
	debitQueueKey  = "transfer:debit:queue"
	creditQueueKey = "transfer:credit:queue"
)

// RedisQueue implements domain.WorkQueue on Redis lists, one list per step
// kind. Push appends to the tail, Pop takes from the head, giving
// best-effort FIFO across coordinator instances.
type RedisQueue struct {
	client *redis.Client
}

var _ domain.WorkQueue = (*RedisQueue)(nil)

// NewRedisQueue creates a work queue backed by the given Redis client
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// Push appends a work item to the tail of its step-kind queue
func (q *RedisQueue) Push(ctx context.Context, item domain.WorkItem) error {
	key, err := queueKey(item.Step)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal work item: %w", err)
	}

	if err := q.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("%w: push to %s: %v", domain.ErrQueueUnavailable, key, err)
	}
	return nil
}

// Pop takes a work item from the head of the step-kind queue.
// Returns false when the queue is empty.
func (q *RedisQueue) Pop(ctx context.Context, kind domain.StepKind) (domain.WorkItem, bool, error) {
	key, err := queueKey(kind)
	if err != nil {
		return domain.WorkItem{}, false, err
	}

	payload, err := q.client.LPop(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.WorkItem{}, false, nil
	}
	if err != nil {
		return domain.WorkItem{}, false, fmt.Errorf("%w: pop from %s: %v", domain.ErrQueueUnavailable, key, err)
	}

	var item domain.WorkItem
	if err := json.Unmarshal(payload, &item); err != nil {
		return domain.WorkItem{}, false, fmt.Errorf("failed to unmarshal work item: %w", err)
	}
	return item, true, nil
}

func queueKey(kind domain.StepKind) (string, error) {
	switch kind {
	case domain.StepDebit:
		return debitQueueKey, nil
	case domain.StepCredit:
		return creditQueueKey, nil
	default:
		return "", fmt.Errorf("unknown step kind: %s", kind)
	}
}
