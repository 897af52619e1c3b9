package transfer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/corebank/banking-backend/internal/domain"
	"github.com/corebank/banking-backend/internal/resilience"
)

// CreateTransferInput represents a transfer request
type CreateTransferInput struct {
	SourceAccountID uuid.UUID
	TargetAccountID uuid.UUID
	Amount          decimal.Decimal
	Currency        string
	Description     string
}

// TransferService coordinates the debit/credit saga. It owns every mutation
// of the transfer ledger and drives each transfer through the state machine:
//
//	PENDING --debit success--> DEBITED --credit success--> COMPLETED
//	PENDING --debit failure--> FAILED
//	DEBITED --credit failure--> COMPENSATED (debit reversed)
//	DEBITED --credit failure, compensation failure--> FAILED (manual intervention)
//
// Steps execute asynchronously: Create enqueues a DEBIT work item and the
// batcher calls ProcessDebit/ProcessCredit as items drain. Retryable errors
// (gateway transients, version conflicts) are returned to the caller for
// requeueing; business failures are routed to HandleFailure here.
type TransferService struct {
	Transfers domain.TransferRepository
	Gateway   domain.AccountGateway
	Queue     domain.WorkQueue
	Retry     *resilience.Policy
	Logger    *zap.Logger
}

// NewTransferService creates a new TransferService instance
func NewTransferService(
	transfers domain.TransferRepository,
	gateway domain.AccountGateway,
	queue domain.WorkQueue,
	retry *resilience.Policy,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		Transfers: transfers,
		Gateway:   gateway,
		Queue:     queue,
		Retry:     retry,
		Logger:    logger,
	}
}

// Create validates the request, persists a PENDING transfer and enqueues its
// debit step. This is the only entry point that starts a saga.
func (s *TransferService) Create(ctx context.Context, input CreateTransferInput) (*domain.Transfer, error) {
	transfer := domain.NewTransfer(
		input.SourceAccountID,
		input.TargetAccountID,
		input.Amount,
		input.Currency,
		input.Description,
	)
	if err := transfer.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.Gateway.ValidateBalance(ctx, input.SourceAccountID, input.Amount, input.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to validate balance: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("source account %s cannot cover %s %s: %w",
			input.SourceAccountID, input.Amount, input.Currency, domain.ErrInsufficientFunds)
	}

	if err := s.Transfers.Create(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to persist transfer: %w", err)
	}

	s.Logger.Info("transfer initiated",
		zap.String("transfer_id", transfer.ID.String()),
		zap.String("amount", transfer.Amount.String()),
		zap.String("currency", transfer.Currency))

	s.enqueue(ctx, domain.WorkItem{TransferID: transfer.ID, Step: domain.StepDebit})
	return transfer, nil
}

// ProcessDebit advances a PENDING transfer by debiting the source account.
// On success the transfer moves to DEBITED and its credit step is enqueued.
// Retryable failures are returned untouched so the batcher can requeue;
// business failures drive the transfer to FAILED here.
func (s *TransferService) ProcessDebit(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error) {
	transfer, err := s.Transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.Status != domain.StatusPending {
		// Another worker already advanced this transfer
		return nil, fmt.Errorf("transfer %s has status %s: %w", transferID, transfer.Status, domain.ErrInvalidState)
	}

	if err := s.Gateway.Debit(ctx, transfer.SourceAccountID, transfer.Amount, transfer.Currency, transfer.ID); err != nil {
		if domain.IsRetryable(err) {
			return nil, fmt.Errorf("debit for transfer %s: %w", transferID, err)
		}
		reason := "debit failed: " + err.Error()
		if ferr := s.HandleFailure(ctx, transferID, reason); ferr != nil {
			s.Logger.Error("failed to record debit failure",
				zap.String("transfer_id", transferID.String()), zap.Error(ferr))
		}
		return nil, err
	}

	if err := transfer.MarkDebited(); err != nil {
		return nil, err
	}
	if err := s.Transfers.Update(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to persist debit transition for %s: %w", transferID, err)
	}

	s.Logger.Info("transfer debited", zap.String("transfer_id", transferID.String()))

	// The credit item only exists once the debit transition is durable,
	// which is what orders the steps.
	s.enqueue(ctx, domain.WorkItem{TransferID: transfer.ID, Step: domain.StepCredit})
	return transfer, nil
}

// ProcessCredit advances a DEBITED transfer by crediting the target account.
// On success the transfer is COMPLETED. A non-retryable credit failure
// triggers compensation: the source account is credited back and the
// transfer ends COMPENSATED, or FAILED if the reversal itself fails.
func (s *TransferService) ProcessCredit(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error) {
	transfer, err := s.Transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.Status != domain.StatusDebited {
		return nil, fmt.Errorf("transfer %s has status %s: %w", transferID, transfer.Status, domain.ErrInvalidState)
	}

	// Claim the step before any money moves: a worker and a synchronous
	// Complete call can both read DEBITED, and only the version bump
	// serializes them. The loser gets a conflict here, before its gateway
	// call, instead of crediting the target a second time.
	if err := s.Transfers.Update(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to claim credit step for %s: %w", transferID, err)
	}

	if err := s.Gateway.Credit(ctx, transfer.TargetAccountID, transfer.Amount, transfer.Currency, transfer.ID); err != nil {
		if domain.IsRetryable(err) {
			return nil, fmt.Errorf("credit for transfer %s: %w", transferID, err)
		}
		if cerr := s.compensate(ctx, transfer, "credit failed: "+err.Error()); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}

	if err := transfer.Complete(); err != nil {
		return nil, err
	}
	if err := s.Transfers.Update(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to persist completion for %s: %w", transferID, err)
	}

	s.Logger.Info("transfer completed", zap.String("transfer_id", transferID.String()))
	return transfer, nil
}

// Complete synchronously finishes a DEBITED transfer on behalf of a client
func (s *TransferService) Complete(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error) {
	transfer, err := s.Transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.Status != domain.StatusDebited {
		return nil, fmt.Errorf("transfer %s has status %s: %w", transferID, transfer.Status, domain.ErrInvalidState)
	}
	return s.ProcessCredit(ctx, transferID)
}

// HandleFailure records a failure reason and drives the transfer to a
/// terminal state. Idempotent: a transfer that is already terminal is left
// untouched. A transfer that was DEBITED is compensated first.
func (s *TransferService) HandleFailure(ctx context.Context, transferID uuid.UUID, reason string) error {
	transfer, err := s.Transfers.GetByID(ctx, transferID)
	if err != nil {
		return err
	}
	if transfer.IsTerminal() {
		return nil
	}

	if transfer.Status == domain.StatusDebited {
		return s.compensate(ctx, transfer, reason)
	}

	if err := transfer.Fail(reason); err != nil {
		return err
	}
	if err := s.Transfers.Update(ctx, transfer); err != nil {
		return fmt.Errorf("failed to persist failure for %s: %w", transferID, err)
	}

	s.Logger.Warn("transfer failed",
		zap.String("transfer_id", transferID.String()),
		zap.String("reason", reason))
	return nil
}

// compensate reverses the debit of a DEBITED transfer by crediting the
// amount back to the source account. If the reversing credit fails even
// after retries, funds are stuck outside both accounts: the transfer is
// flagged FAILED for manual intervention and the event logged at error
// level. This is the one path that cannot self-heal.
func (s *TransferService) compensate(ctx context.Context, transfer *domain.Transfer, reason string) error {
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		return s.Gateway.Credit(ctx, transfer.SourceAccountID, transfer.Amount, transfer.Currency, transfer.ID)
	})
	if err != nil {
		if ferr := transfer.Fail(reason + "; compensation failed: " + err.Error() + " - manual intervention required"); ferr != nil {
			return ferr
		}
		if uerr := s.Transfers.Update(ctx, transfer); uerr != nil {
			s.Logger.Error("failed to persist compensation failure",
				zap.String("transfer_id", transfer.ID.String()), zap.Error(uerr))
		}
		s.Logger.Error("compensation failed - manual intervention required",
			zap.String("transfer_id", transfer.ID.String()),
			zap.String("source_account_id", transfer.SourceAccountID.String()),
			zap.String("amount", transfer.Amount.String()),
			zap.Error(err))
		return fmt.Errorf("%w for transfer %s: %v", domain.ErrCompensationFailed, transfer.ID, err)
	}

	if err := transfer.MarkCompensated(reason + "; debit reversed"); err != nil {
		return err
	}
	if err := s.Transfers.Update(ctx, transfer); err != nil {
		return fmt.Errorf("failed to persist compensation for %s: %w", transfer.ID, err)
	}

	s.Logger.Warn("transfer compensated",
		zap.String("transfer_id", transfer.ID.String()),
		zap.String("reason", reason))
	return nil
}

// GetByID retrieves a transfer by its ID
func (s *TransferService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	return s.Transfers.GetByID(ctx, id)
}

// List retrieves all transfers
func (s *TransferService) List(ctx context.Context) ([]*domain.Transfer, error) {
	return s.Transfers.List(ctx)
}

// Reconcile re-derives work items from transfer status. The queue is
// at-least-once, not a system of record: items lost between enqueue and
// persistence are recovered here by sweeping non-terminal transfers.
// Run at startup; duplicate items are harmless because each step re-checks
// the transfer status under its lock before acting.
func (s *TransferService) Reconcile(ctx context.Context) error {
	pending, err := s.Transfers.ListByStatus(ctx, domain.StatusPending, domain.StatusDebited)
	if err != nil {
		return fmt.Errorf("failed to sweep non-terminal transfers: %w", err)
	}

	requeued := 0
	for _, transfer := range pending {
		step := domain.StepDebit
		if transfer.Status == domain.StatusDebited {
			step = domain.StepCredit
		}
		s.enqueue(ctx, domain.WorkItem{TransferID: transfer.ID, Step: step})
		requeued++
	}

	if requeued > 0 {
		s.Logger.Info("reconciliation sweep requeued pending steps", zap.Int("count", requeued))
	}
	return nil
}

// enqueue pushes a work item with bounded retries. A push that still fails
// is logged and dropped: the reconciliation sweep re-derives it from the
// transfer status, so no transfer is silently lost.
func (s *TransferService) enqueue(ctx context.Context, item domain.WorkItem) {
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		return s.Queue.Push(ctx, item)
	})
	if err != nil {
		s.Logger.Error("failed to enqueue work item; reconciliation will recover it",
			zap.String("transfer_id", item.TransferID.String()),
			zap.String("step", string(item.Step)),
			zap.Error(err))
	}
}
