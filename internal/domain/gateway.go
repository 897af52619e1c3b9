package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountGateway is the balance capability exposed by the account subsystem.
// The saga coordinator consumes it and never touches account state directly.
// Debit and Credit must be safe under concurrent calls for the same account;
// the transferID identifies the saga step for audit purposes.
type AccountGateway interface {
	// ValidateBalance reports whether the account is active and can cover the amount
	ValidateBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string) (bool, error)

	// Debit subtracts amount from the account balance.
	// Fails with ErrAccountNotFound, ErrAccountNotActive or ErrInsufficientFunds.
	Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string, transferID uuid.UUID) error

	// Credit adds amount to the account balance.
	// Fails with ErrAccountNotFound or ErrAccountNotActive.
	Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string, transferID uuid.UUID) error
}
