package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/banking-backend/internal/domain"
)

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) domain.AccountRepository {
	return &accountRepository{db: db}
}

// Create persists a new account with version 1
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, account_number, document_number, holder_name, type, status, balance, currency, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
	`

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.AccountNumber,
		account.DocumentNumber,
		account.HolderName,
		string(account.Type),
		string(account.Status),
		account.Balance.String(),
		account.Currency,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	account.Version = 1
	return nil
}

// GetByID retrieves an account by its ID
func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, account_number, document_number, holder_name, type, status, balance, currency, created_at, updated_at, version
		FROM accounts
		WHERE id = $1
	`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return account, nil
}

// ExistsByDocumentNumber reports whether an account exists for the document number
func (r *accountRepository) ExistsByDocumentNumber(ctx context.Context, documentNumber string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE document_number = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, documentNumber).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check document number: %w", err)
	}
	return exists, nil
}

// Update writes the account under the optimistic version guard.
// Concurrent debits and credits on the same account serialize here: the
// losing writer gets ErrConcurrencyConflict and re-reads.
func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET status = $2, balance = $3, updated_at = $4, version = version + 1
		WHERE id = $1 AND version = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		account.ID,
		string(account.Status),
		account.Balance.String(),
		account.UpdatedAt,
		account.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %s at version %d: %w", account.ID, account.Version, domain.ErrConcurrencyConflict)
	}

	account.Version++
	return nil
}

// List retrieves all accounts
func (r *accountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	query := `
		SELECT id, account_number, document_number, holder_name, type, status, balance, currency, created_at, updated_at, version
		FROM accounts
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		account     domain.Account
		balance     string
		accountType string
		status      string
	)

	err := row.Scan(
		&account.ID,
		&account.AccountNumber,
		&account.DocumentNumber,
		&account.HolderName,
		&accountType,
		&status,
		&balance,
		&account.Currency,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.Version,
	)
	if err != nil {
		return nil, err
	}

	account.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account balance: %w", err)
	}
	account.Type = domain.AccountType(accountType)
	account.Status = domain.AccountStatus(status)
	return &account, nil
}
