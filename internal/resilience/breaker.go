package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/corebank/banking-backend/internal/domain"
)

// BreakerSettings configures the gateway circuit breaker
type BreakerSettings struct {
	// ConsecutiveFailures opens the circuit once this many calls in a row fail
	ConsecutiveFailures uint32
	// Cooldown is how long the circuit stays open before a probe is allowed
	Cooldown time.Duration
}

// GatewayBreaker decorates an AccountGateway with a circuit breaker. After a
// run of transient failures the circuit opens and further calls are
// short-circuited as ErrGatewayUnavailable for the cooldown window, shielding
// the account subsystem during an outage.
//
// Business rejections (insufficient funds, inactive account) do not count as
// failures: the gateway answered, the answer was no.
type GatewayBreaker struct {
	inner   domain.AccountGateway
	breaker *gobreaker.CircuitBreaker
}

var _ domain.AccountGateway = (*GatewayBreaker)(nil)

// NewGatewayBreaker wraps the gateway with a circuit breaker
func NewGatewayBreaker(inner domain.AccountGateway, settings BreakerSettings) *GatewayBreaker {
	threshold := settings.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	return &GatewayBreaker{
		inner: inner,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "account-gateway",
			MaxRequests: 1,
			Timeout:     settings.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || !domain.IsRetryable(err)
			},
		}),
	}
}

// ValidateBalance reports whether the account can cover the amount
func (g *GatewayBreaker) ValidateBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string) (bool, error) {
	result, err := g.breaker.Execute(func() (any, error) {
		return g.inner.ValidateBalance(ctx, accountID, amount, currency)
	})
	if err != nil {
		return false, g.translate(err)
	}
	return result.(bool), nil
}

// Debit subtracts amount from the account balance
func (g *GatewayBreaker) Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string, transferID uuid.UUID) error {
	_, err := g.breaker.Execute(func() (any, error) {
		return nil, g.inner.Debit(ctx, accountID, amount, currency, transferID)
	})
	return g.translate(err)
}

// Credit adds amount to the account balance
func (g *GatewayBreaker) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string, transferID uuid.UUID) error {
	_, err := g.breaker.Execute(func() (any, error) {
		return nil, g.inner.Credit(ctx, accountID, amount, currency, transferID)
	})
	return g.translate(err)
}

// translate maps open-circuit rejections to the retryable gateway sentinel
func (g *GatewayBreaker) translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit open", domain.ErrGatewayUnavailable)
	}
	return err
}
