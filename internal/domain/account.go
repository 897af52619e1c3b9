package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType represents the kind of account
type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeSavings  AccountType = "SAVINGS"
)

// AccountStatus represents the lifecycle state of an account
type AccountStatus string

const (
	AccountStatusPendingActivation AccountStatus = "PENDING_ACTIVATION"
	AccountStatusActive            AccountStatus = "ACTIVE"
	AccountStatusBlocked           AccountStatus = "BLOCKED"
)

// Account represents a customer account holding a single-currency balance.
// Balance mutations go through the account service only and are written
// under the same optimistic version guard as transfers.
type Account struct {
	ID             uuid.UUID
	AccountNumber  string
	DocumentNumber string
	HolderName     string
	Type           AccountType
	Status         AccountStatus
	Balance        decimal.Decimal
	Currency       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int64
}

// NewAccount creates an account pending activation with a zero balance
func NewAccount(documentNumber, holderName string, accountType AccountType, currency string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:             uuid.New(),
		AccountNumber:  generateAccountNumber(),
		DocumentNumber: documentNumber,
		HolderName:     holderName,
		Type:           accountType,
		Status:         AccountStatusPendingActivation,
		Balance:        decimal.Zero,
		Currency:       currency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// generateAccountNumber produces a 10-digit account number
func generateAccountNumber() string {
	return fmt.Sprintf("%010d", time.Now().UnixNano()%10_000_000_000)
}

// Validate ensures the account adheres to domain rules
func (a *Account) Validate() error {
	if a.DocumentNumber == "" {
		return errors.New("account document number cannot be empty")
	}
	if a.HolderName == "" {
		return errors.New("account holder name cannot be empty")
	}
	if a.Type != AccountTypeChecking && a.Type != AccountTypeSavings {
		return errors.New("account type must be CHECKING or SAVINGS")
	}
	if a.Currency == "" {
		return errors.New("account currency cannot be empty")
	}
	return nil
}

// Activate transitions PENDING_ACTIVATION -> ACTIVE
func (a *Account) Activate() error {
	if a.Status != AccountStatusPendingActivation {
		return fmt.Errorf("account %s cannot be activated - current status: %s: %w", a.ID, a.Status, ErrInvalidState)
	}
	a.Status = AccountStatusActive
	a.UpdatedAt = time.Now().UTC()
	return nil
}
