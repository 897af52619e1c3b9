package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/corebank/banking-backend/internal/domain"
)

// transferRepository implements domain.TransferRepository
type transferRepository struct {
	db *DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *DB) domain.TransferRepository {
	return &transferRepository{db: db}
}

// Create persists a new transfer with version 1
func (r *transferRepository) Create(ctx context.Context, transfer *domain.Transfer) error {
	query := `
		INSERT INTO transfers (id, source_account_id, target_account_id, amount, currency, status, description, requested_at, completed_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
	`

	_, err := r.db.ExecContext(ctx, query,
		transfer.ID,
		transfer.SourceAccountID,
		transfer.TargetAccountID,
		transfer.Amount.String(),
		transfer.Currency,
		string(transfer.Status),
		transfer.Description,
		transfer.RequestedAt,
		transfer.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	transfer.Version = 1
	return nil
}

// GetByID retrieves a transfer by its ID
func (r *transferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	query := `
		SELECT id, source_account_id, target_account_id, amount, currency, status, description, requested_at, completed_at, version
		FROM transfers
		WHERE id = $1
	`

	transfer, err := scanTransfer(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer: %w", err)
	}
	return transfer, nil
}

// Update writes the transfer under the optimistic version guard.
// The WHERE clause is the compare-and-swap: zero rows affected means another
// worker advanced the transfer first. Ledger rows are never deleted, so a
// miss can only be a version conflict.
func (r *transferRepository) Update(ctx context.Context, transfer *domain.Transfer) error {
	query := `
		UPDATE transfers
		SET status = $2, description = $3, completed_at = $4, version = version + 1
		WHERE id = $1 AND version = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		transfer.ID,
		string(transfer.Status),
		transfer.Description,
		transfer.CompletedAt,
		transfer.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transfer %s at version %d: %w", transfer.ID, transfer.Version, domain.ErrConcurrencyConflict)
	}

	transfer.Version++
	return nil
}

// List retrieves all transfers, newest first
func (r *transferRepository) List(ctx context.Context) ([]*domain.Transfer, error) {
	query := `
		SELECT id, source_account_id, target_account_id, amount, currency, status, description, requested_at, completed_at, version
		FROM transfers
		ORDER BY requested_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	return collectTransfers(rows)
}

// ListByStatus retrieves transfers in any of the given statuses
func (r *transferRepository) ListByStatus(ctx context.Context, statuses ...domain.TransferStatus) ([]*domain.Transfer, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	query := `
		SELECT id, source_account_id, target_account_id, amount, currency, status, description, requested_at, completed_at, version
		FROM transfers
		WHERE status = ANY($1)
		ORDER BY requested_at
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(values))
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers by status: %w", err)
	}
	defer rows.Close()

	return collectTransfers(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (*domain.Transfer, error) {
	var (
		transfer    domain.Transfer
		amount      string
		status      string
		completedAt sql.NullTime
	)

	err := row.Scan(
		&transfer.ID,
		&transfer.SourceAccountID,
		&transfer.TargetAccountID,
		&amount,
		&transfer.Currency,
		&status,
		&transfer.Description,
		&transfer.RequestedAt,
		&completedAt,
		&transfer.Version,
	)
	if err != nil {
		return nil, err
	}

	transfer.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transfer amount: %w", err)
	}
	transfer.Status = domain.TransferStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		transfer.CompletedAt = &t
	}
	return &transfer, nil
}

func collectTransfers(rows *sql.Rows) ([]*domain.Transfer, error) {
	transfers := make([]*domain.Transfer, 0)
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}
	return transfers, nil
}
