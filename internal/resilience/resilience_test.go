package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebank/banking-backend/internal/domain"
)

func TestPolicy_RetriesTransientFailures(t *testing.T) {
	policy := NewPolicy(3, time.Millisecond)

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return domain.ErrConcurrencyConflict
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_DoesNotRetryBusinessFailures(t *testing.T) {
	policy := NewPolicy(3, time.Millisecond)

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return domain.ErrInsufficientFunds
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, 1, calls)
}

func TestPolicy_ExhaustionReturnsLastError(t *testing.T) {
	policy := NewPolicy(3, time.Millisecond)

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return domain.ErrGatewayUnavailable
	})

	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Equal(t, 3, calls)
}

func TestPolicy_RespectsContextCancellation(t *testing.T) {
	policy := NewPolicy(5, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Do(ctx, func(ctx context.Context) error {
		calls++
		return domain.ErrGatewayUnavailable
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBulkhead_BoundsConcurrency(t *testing.T) {
	bulkhead := NewBulkhead(2)

	require.True(t, bulkhead.TryAcquire())
	require.True(t, bulkhead.TryAcquire())
	assert.False(t, bulkhead.TryAcquire())

	bulkhead.Release()
	assert.True(t, bulkhead.TryAcquire())
}

// flakyGateway fails every call with the configured error
type flakyGateway struct {
	err   error
	calls int
}

func (g *flakyGateway) ValidateBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string) (bool, error) {
	g.calls++
	return false, g.err
}

func (g *flakyGateway) Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string, transferID uuid.UUID) error {
	g.calls++
	return g.err
}

func (g *flakyGateway) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string, transferID uuid.UUID) error {
	g.calls++
	return g.err
}

func TestGatewayBreaker_OpensAfterConsecutiveTransientFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flakyGateway{err: domain.ErrGatewayUnavailable}
	breaker := NewGatewayBreaker(inner, BreakerSettings{ConsecutiveFailures: 3, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		err := breaker.Debit(ctx, uuid.New(), decimal.NewFromInt(1), "USD", uuid.New())
		assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	}
	assert.Equal(t, 3, inner.calls)

	// Circuit is open: the gateway is no longer called, the rejection is
	// still classified retryable so items get requeued rather than failed.
	err := breaker.Debit(ctx, uuid.New(), decimal.NewFromInt(1), "USD", uuid.New())
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, 3, inner.calls)
}

func TestGatewayBreaker_BusinessRejectionsDoNotTrip(t *testing.T) {
	ctx := context.Background()
	inner := &flakyGateway{err: domain.ErrInsufficientFunds}
	breaker := NewGatewayBreaker(inner, BreakerSettings{ConsecutiveFailures: 2, Cooldown: time.Minute})

	for i := 0; i < 5; i++ {
		err := breaker.Debit(ctx, uuid.New(), decimal.NewFromInt(1), "USD", uuid.New())
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	}
	// Every call reached the gateway; the breaker never opened
	assert.Equal(t, 5, inner.calls)
}

func TestGatewayBreaker_PassesThroughSuccess(t *testing.T) {
	ctx := context.Background()
	inner := &flakyGateway{err: nil}
	breaker := NewGatewayBreaker(inner, BreakerSettings{ConsecutiveFailures: 3, Cooldown: time.Minute})

	ok, err := breaker.ValidateBalance(ctx, uuid.New(), decimal.NewFromInt(1), "USD")
	require.NoError(t, err)
	assert.False(t, ok) // flakyGateway always answers false

	require.NoError(t, breaker.Credit(ctx, uuid.New(), decimal.NewFromInt(1), "USD", uuid.New()))
	assert.Equal(t, 2, inner.calls)
}

func TestJitteredBackoff_StaysWithinBound(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		delay := jitteredBackoff(100*time.Millisecond, attempt)
		assert.GreaterOrEqual(t, delay, time.Duration(0))
		assert.Less(t, delay, 100*time.Millisecond<<uint(attempt))
	}
	assert.Equal(t, time.Duration(0), jitteredBackoff(0, 3))
}

func TestSleepWithContext(t *testing.T) {
	require.NoError(t, sleepWithContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(sleepWithContext(ctx, time.Minute), context.Canceled))
}
