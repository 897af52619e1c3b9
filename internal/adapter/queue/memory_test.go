package queue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebank/banking-backend/internal/domain"
)

func TestMemoryQueue_FIFOPerStepKind(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	first := domain.WorkItem{TransferID: uuid.New(), Step: domain.StepDebit}
	second := domain.WorkItem{TransferID: uuid.New(), Step: domain.StepDebit}
	credit := domain.WorkItem{TransferID: uuid.New(), Step: domain.StepCredit}

	require.NoError(t, q.Push(ctx, first))
	require.NoError(t, q.Push(ctx, second))
	require.NoError(t, q.Push(ctx, credit))

	// Debit queue drains in insertion order
	item, ok, err := q.Pop(ctx, domain.StepDebit)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.TransferID, item.TransferID)

	item, ok, err = q.Pop(ctx, domain.StepDebit)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.TransferID, item.TransferID)

	// The credit queue is independent of the debit queue
	item, ok, err = q.Pop(ctx, domain.StepCredit)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, credit.TransferID, item.TransferID)
}

func TestMemoryQueue_PopEmpty(t *testing.T) {
	q := NewMemoryQueue()

	_, ok, err := q.Pop(context.Background(), domain.StepDebit)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryQueue_RequeuedItemMovesToTail(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	failing := domain.WorkItem{TransferID: uuid.New(), Step: domain.StepCredit}
	later := domain.WorkItem{TransferID: uuid.New(), Step: domain.StepCredit}

	require.NoError(t, q.Push(ctx, failing))
	require.NoError(t, q.Push(ctx, later))

	// Simulate a retry: the failed item is re-enqueued with a bumped count
	// and must be overtaken by the item that was behind it.
	item, _, err := q.Pop(ctx, domain.StepCredit)
	require.NoError(t, err)
	item.RetryCount++
	require.NoError(t, q.Push(ctx, item))

	next, _, err := q.Pop(ctx, domain.StepCredit)
	require.NoError(t, err)
	assert.Equal(t, later.TransferID, next.TransferID)

	retried, _, err := q.Pop(ctx, domain.StepCredit)
	require.NoError(t, err)
	assert.Equal(t, failing.TransferID, retried.TransferID)
	assert.Equal(t, 1, retried.RetryCount)
}
