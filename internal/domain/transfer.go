package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus represents the saga state of a transfer
type TransferStatus string

const (
	StatusPending     TransferStatus = "PENDING"
	StatusDebited     TransferStatus = "DEBITED"     // Source account debited
	StatusCompleted   TransferStatus = "COMPLETED"   // Target account credited
	StatusFailed      TransferStatus = "FAILED"      // Something went wrong
	StatusCompensated TransferStatus = "COMPENSATED" // Failure occurred and was compensated
)

// Transfer represents a money transfer moving through the debit/credit saga.
// It is an audit record: rows are never deleted, and every state transition
// is written under the optimistic version guard.
type Transfer struct {
	ID              uuid.UUID
	SourceAccountID uuid.UUID
	TargetAccountID uuid.UUID
	Amount          decimal.Decimal
	Currency        string
	Status          TransferStatus
	Description     string // free text; holds the failure reason on FAILED/COMPENSATED
	RequestedAt     time.Time
	CompletedAt     *time.Time
	Version         int64
}

// NewTransfer creates a PENDING transfer for the given request.
// Request validation (same account, non-positive amount, balance check)
// happens in the coordinator before this is called.
func NewTransfer(sourceID, targetID uuid.UUID, amount decimal.Decimal, currency, description string) *Transfer {
	return &Transfer{
		ID:              uuid.New(),
		SourceAccountID: sourceID,
		TargetAccountID: targetID,
		Amount:          amount,
		Currency:        currency,
		Status:          StatusPending,
		Description:     description,
		RequestedAt:     time.Now().UTC(),
	}
}

// MarkDebited transitions PENDING -> DEBITED
func (t *Transfer) MarkDebited() error {
	if t.Status != StatusPending {
		return ErrInvalidState
	}
	t.Status = StatusDebited
	return nil
}

// Complete transitions DEBITED -> COMPLETED and stamps the completion time
func (t *Transfer) Complete() error {
	if t.Status != StatusDebited {
		return ErrInvalidState
	}
	now := time.Now().UTC()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	return nil
}

// MarkCompensated records that the debit was reversed after a credit
// failure. Transitions DEBITED -> COMPENSATED; the transfer is terminal
// afterwards.
func (t *Transfer) MarkCompensated(reason string) error {
	if t.Status != StatusDebited {
		return ErrInvalidState
	}
	now := time.Now().UTC()
	t.Status = StatusCompensated
	t.Description = reason
	t.CompletedAt = &now
	return nil
}

// Fail drives a non-terminal transfer to the FAILED terminal state with the
// given reason
func (t *Transfer) Fail(reason string) error {
	if t.IsTerminal() {
		return ErrInvalidState
	}
	now := time.Now().UTC()
	t.Status = StatusFailed
	t.Description = reason
	t.CompletedAt = &now
	return nil
}

// IsTerminal reports whether the transfer has reached a final state
func (t *Transfer) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusFailed, StatusCompensated:
		return true
	}
	return false
}

// Validate ensures the transfer adheres to domain rules
func (t *Transfer) Validate() error {
	if t.SourceAccountID == t.TargetAccountID {
		return ErrSameAccount
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}
