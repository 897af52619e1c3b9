package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/corebank/banking-backend/internal/domain"
)

// AccountRepository is an in-memory domain.AccountRepository.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

// NewAccountRepository creates an empty in-memory account repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[uuid.UUID]*domain.Account)}
}

// Create stores the account at version 1.
func (r *AccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account.Version = 1
	stored := *account
	r.accounts[account.ID] = &stored
	return nil
}

// GetByID returns a copy of the stored account.
func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	copied := *stored
	return &copied, nil
}

// ExistsByDocumentNumber reports whether any account carries the document number.
func (r *AccountRepository) ExistsByDocumentNumber(_ context.Context, documentNumber string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, stored := range r.accounts {
		if stored.DocumentNumber == documentNumber {
			return true, nil
		}
	}
	return false, nil
}

// Update applies the write only when the caller's version matches the
// stored version.
func (r *AccountRepository) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[account.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if stored.Version != account.Version {
		return fmt.Errorf("account %s at version %d: %w", account.ID, account.Version, domain.ErrConcurrencyConflict)
	}

	account.Version++
	updated := *account
	r.accounts[account.ID] = &updated
	return nil
}

// List returns all accounts ordered by creation time.
func (r *AccountRepository) List(_ context.Context) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]*domain.Account, 0, len(r.accounts))
	for _, stored := range r.accounts {
		copied := *stored
		accounts = append(accounts, &copied)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}
