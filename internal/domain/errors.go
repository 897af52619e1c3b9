package domain

import "errors"

var (
	// ErrSameAccount is returned when a transfer names the same account as source and target.
	ErrSameAccount = errors.New("source and target accounts must be different")
	// ErrInvalidAmount is returned when a transfer or deposit amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientFunds is returned when the source account cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransferNotFound is returned when no transfer exists for the given id.
	ErrTransferNotFound = errors.New("transfer not found")
	// ErrAccountNotFound is returned when no account exists for the given id.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountNotActive is returned when an operation requires an active account.
	ErrAccountNotActive = errors.New("account not active")
	// ErrAccountExists is returned when an account already exists for a document number.
	ErrAccountExists = errors.New("account already exists for document number")
	// ErrInvalidState is returned when a transition is attempted from the wrong status.
	ErrInvalidState = errors.New("transfer is not in the required state")
	// ErrConcurrencyConflict is returned when an optimistic-version write loses a race.
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
	// ErrGatewayUnavailable is returned when the account gateway is unreachable or its
	// circuit breaker is open.
	ErrGatewayUnavailable = errors.New("account gateway unavailable")
	// ErrLockTimeout is returned when a step or batch lock could not be acquired in time.
	ErrLockTimeout = errors.New("lock acquisition timed out")
	// ErrQueueUnavailable is returned when the work queue cannot accept or serve items.
	ErrQueueUnavailable = errors.New("work queue unavailable")
	// ErrCompensationFailed is returned when the reversing credit after a failed credit
	// also fails. Funds remain debited; the transfer needs manual intervention.
	ErrCompensationFailed = errors.New("compensation failed")
)

// IsRetryable reports whether an error is transient and worth another attempt.
// Validation and business-rule rejections are final and must not be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) ||
		errors.Is(err, ErrGatewayUnavailable) ||
		errors.Is(err, ErrLockTimeout) ||
		errors.Is(err, ErrQueueUnavailable)
}

// IsValidation reports whether an error is a malformed-request rejection.
func IsValidation(err error) bool {
	return errors.Is(err, ErrSameAccount) || errors.Is(err, ErrInvalidAmount)
}
