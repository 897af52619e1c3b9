package seeder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/banking-backend/internal/domain"
)

// Fixed UUIDs so reseeding a wiped database yields the same demo accounts
var (
	DemoCheckingAccount = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	DemoSavingsAccount  = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)

// demoAccount defines the structure for a demo account to be seeded
type demoAccount struct {
	ID             uuid.UUID
	AccountNumber  string
	DocumentNumber string
	HolderName     string
	Type           domain.AccountType
	Balance        decimal.Decimal
}

// DemoSeeder creates well-known demo accounts for local development
type DemoSeeder struct {
	repo domain.AccountRepository
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(repo domain.AccountRepository) *DemoSeeder {
	return &DemoSeeder{
		repo: repo,
	}
}

// Seed ensures the demo accounts exist, creating any that are missing.
// Existing accounts are left untouched, so it is safe to run on every boot.
func (s *DemoSeeder) Seed(ctx context.Context) error {
	demoAccounts := []demoAccount{
		{
			ID:             DemoCheckingAccount,
			AccountNumber:  "0000000001",
			DocumentNumber: "00000000001",
			HolderName:     "Demo Checking",
			Type:           domain.AccountTypeChecking,
			Balance:        decimal.NewFromInt(1000),
		},
		{
			ID:             DemoSavingsAccount,
			AccountNumber:  "0000000002",
			DocumentNumber: "00000000002",
			HolderName:     "Demo Savings",
			Type:           domain.AccountTypeSavings,
			Balance:        decimal.NewFromInt(500),
		},
	}

	for _, demo := range demoAccounts {
		_, err := s.repo.GetByID(ctx, demo.ID)
		if err == nil {
			continue
		}

		now := time.Now().UTC()
		account := &domain.Account{
			ID:             demo.ID,
			AccountNumber:  demo.AccountNumber,
			DocumentNumber: demo.DocumentNumber,
			HolderName:     demo.HolderName,
			Type:           demo.Type,
			Status:         domain.AccountStatusActive,
			Balance:        demo.Balance,
			Currency:       "BRL",
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := account.Validate(); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, account); err != nil {
			return err
		}
	}

	return nil
}
