package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/corebank/banking-backend/internal/domain"
)

// CreateAccountInput represents the input for opening an account
type CreateAccountInput struct {
	DocumentNumber string
	HolderName     string
	Type           domain.AccountType
	Currency       string
}

// AccountService handles account lifecycle and balance operations.
// It implements domain.AccountGateway: the transfer saga debits and credits
// balances exclusively through this service.
type AccountService struct {
	Repo   domain.AccountRepository
	Logger *zap.Logger
}

var _ domain.AccountGateway = (*AccountService)(nil)

// NewAccountService creates a new AccountService instance
func NewAccountService(repo domain.AccountRepository, logger *zap.Logger) *AccountService {
	return &AccountService{Repo: repo, Logger: logger}
}

// Create opens a new account pending activation
func (s *AccountService) Create(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	exists, err := s.Repo.ExistsByDocumentNumber(ctx, input.DocumentNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check document number: %w", err)
	}
	if exists {
		return nil, domain.ErrAccountExists
	}

	account := domain.NewAccount(input.DocumentNumber, input.HolderName, input.Type, input.Currency)
	if err := account.Validate(); err != nil {
		return nil, err
	}

	if err := s.Repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.Logger.Info("account created",
		zap.String("account_id", account.ID.String()),
		zap.String("account_number", account.AccountNumber))
	return account, nil
}

// Activate transitions a pending account to ACTIVE
func (s *AccountService) Activate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := account.Activate(); err != nil {
		return nil, err
	}

	if err := s.Repo.Update(ctx, account); err != nil {
		return nil, err
	}

	s.Logger.Info("account activated", zap.String("account_id", account.ID.String()))
	return account, nil
}

// Deposit adds funds to an active account
func (s *AccountService) Deposit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*domain.Account, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	account, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.setBalance(ctx, account, account.Balance.Add(amount)); err != nil {
		return nil, err
	}
	return account, nil
}

// GetByID retrieves an account by its ID
func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.Repo.GetByID(ctx, id)
}

// List retrieves all accounts
func (s *AccountService) List(ctx context.Context) ([]*domain.Account, error) {
	return s.Repo.List(ctx)
}

// ValidateBalance reports whether the account is active, holds the currency
// and can cover the amount
func (s *AccountService) ValidateBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string) (bool, error) {
	account, err := s.Repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}

	ok := account.Status == domain.AccountStatusActive &&
		account.Currency == currency &&
		account.Balance.GreaterThanOrEqual(amount)
	return ok, nil
}

// Debit subtracts amount from the account balance.
// Never drives a balance below zero.
func (s *AccountService) Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string, transferID uuid.UUID) error {
	account, err := s.Repo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	newBalance := account.Balance.Sub(amount)
	if newBalance.IsNegative() {
		return fmt.Errorf("debit of %s %s on account %s: %w", amount, currency, accountID, domain.ErrInsufficientFunds)
	}

	if err := s.setBalance(ctx, account, newBalance); err != nil {
		return err
	}

	s.Logger.Info("account debited",
		zap.String("account_id", accountID.String()),
		zap.String("transfer_id", transferID.String()),
		zap.String("amount", amount.String()))
	return nil
}

// Credit adds amount to the account balance
func (s *AccountService) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string, transferID uuid.UUID) error {
	account, err := s.Repo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	if err := s.setBalance(ctx, account, account.Balance.Add(amount)); err != nil {
		return err
	}

	s.Logger.Info("account credited",
		zap.String("account_id", accountID.String()),
		zap.String("transfer_id", transferID.String()),
		zap.String("amount", amount.String()))
	return nil
}

// setBalance writes a new balance under the version guard.
// The version CAS in the repository serializes concurrent debits/credits on
// the same account: the loser gets ErrConcurrencyConflict and retries.
func (s *AccountService) setBalance(ctx context.Context, account *domain.Account, newBalance decimal.Decimal) error {
	if account.Status != domain.AccountStatusActive {
		return fmt.Errorf("account %s has status %s: %w", account.ID, account.Status, domain.ErrAccountNotActive)
	}
	if newBalance.IsNegative() {
		return domain.ErrInsufficientFunds
	}

	account.Balance = newBalance
	account.UpdatedAt = time.Now().UTC()
	return s.Repo.Update(ctx, account)
}
