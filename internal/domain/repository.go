package domain

import (
	"context"

	"github.com/google/uuid"
)

// TransferRepository defines the interface for transfer ledger persistence.
// The ledger is the single source of truth for saga state: Update must be a
// compare-and-swap on the version counter and return ErrConcurrencyConflict
// when the stored version no longer matches, so a stale in-memory copy can
// never silently overwrite a concurrent transition.
type TransferRepository interface {
	// Create persists a new transfer with version 1
	Create(ctx context.Context, transfer *Transfer) error

	// GetByID retrieves a transfer by its ID, or ErrTransferNotFound
	GetByID(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// Update writes the transfer if the stored version matches transfer.Version,
	// incrementing the version on success. Returns ErrConcurrencyConflict on a
	// version mismatch.
	Update(ctx context.Context, transfer *Transfer) error

	// List retrieves all transfers, newest first
	List(ctx context.Context) ([]*Transfer, error)

	// ListByStatus retrieves transfers in any of the given statuses.
	// Used by the reconciliation sweep to re-derive lost work items.
	ListByStatus(ctx context.Context, statuses ...TransferStatus) ([]*Transfer, error)
}

// AccountRepository defines the interface for account persistence operations.
// Update follows the same version compare-and-swap contract as transfers.
type AccountRepository interface {
	// Create persists a new account with version 1
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by its ID, or ErrAccountNotFound
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// ExistsByDocumentNumber reports whether an account exists for the document number
	ExistsByDocumentNumber(ctx context.Context, documentNumber string) (bool, error)

	// Update writes the account under the version guard, incrementing the
	// version on success. Returns ErrConcurrencyConflict on a mismatch.
	Update(ctx context.Context, account *Account) error

	// List retrieves all accounts
	List(ctx context.Context) ([]*Account, error)
}
