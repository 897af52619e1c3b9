// Package worker drains the step queues in bounded batches, advancing each
// transfer under its distributed step lock.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/corebank/banking-backend/internal/adapter/lock"
	"github.com/corebank/banking-backend/internal/domain"
	"github.com/corebank/banking-backend/internal/resilience"
)

const lockKeyPrefix = "transfer:lock:"

// StepExecutor is the coordinator surface the batcher drives
type StepExecutor interface {
	ProcessDebit(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error)
	ProcessCredit(ctx context.Context, transferID uuid.UUID) (*domain.Transfer, error)
	HandleFailure(ctx context.Context, transferID uuid.UUID, reason string) error
}

// Config holds the batcher tuning knobs
type Config struct {
	// MaxBatchSize bounds how many items one cycle drains per step kind
	MaxBatchSize int
	// PollInterval is the fixed delay between batch cycles
	PollInterval time.Duration
	// MaxRetries bounds how often an item is requeued before escalation
	MaxRetries int
}

// Batcher periodically drains the debit and credit queues in bounded
// batches. One cycle per step kind runs at a time within the process
// (non-blocking guard), a cluster-wide batch lock keeps two instances from
// draining the same queue concurrently, and the bulkhead caps how many
// cycles are in flight across both kinds.
type Batcher struct {
	executor StepExecutor
	queue    domain.WorkQueue
	locks    lock.Manager
	bulkhead *resilience.Bulkhead
	cfg      Config
	logger   *zap.Logger

	running map[domain.StepKind]*atomic.Bool
	wg      sync.WaitGroup
}

// NewBatcher creates a batcher for both step kinds
func NewBatcher(
	executor StepExecutor,
	queue domain.WorkQueue,
	locks lock.Manager,
	bulkhead *resilience.Bulkhead,
	cfg Config,
	logger *zap.Logger,
) *Batcher {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 10
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return &Batcher{
		executor: executor,
		queue:    queue,
		locks:    locks,
		bulkhead: bulkhead,
		cfg:      cfg,
		logger:   logger,
		running: map[domain.StepKind]*atomic.Bool{
			domain.StepDebit:  {},
			domain.StepCredit: {},
		},
	}
}

// Start launches one polling goroutine per step kind.
// The goroutines stop when ctx is cancelled; Stop waits for them.
func (b *Batcher) Start(ctx context.Context) {
	for _, kind := range []domain.StepKind{domain.StepDebit, domain.StepCredit} {
		b.wg.Add(1)
		go func(kind domain.StepKind) {
			defer b.wg.Done()
			ticker := time.NewTicker(b.cfg.PollInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					b.RunCycle(ctx, kind)
				}
			}
		}(kind)
	}
}

// Stop blocks until the polling goroutines have exited
func (b *Batcher) Stop() {
	b.wg.Wait()
}

// RunCycle drains up to MaxBatchSize items for the step kind. It is a no-op
// when a cycle for the kind is already running, the bulkhead is saturated,
// or another instance holds the batch lock.
func (b *Batcher) RunCycle(ctx context.Context, kind domain.StepKind) {
	if !b.running[kind].CompareAndSwap(false, true) {
		return
	}
	defer b.running[kind].Store(false)

	if !b.bulkhead.TryAcquire() {
		b.logger.Debug("bulkhead saturated, skipping batch cycle", zap.String("step", string(kind)))
		return
	}
	defer b.bulkhead.Release()

	handle, acquired, err := b.locks.TryLock(ctx, lockKeyPrefix+"batch:"+string(kind))
	if err != nil {
		b.logger.Warn("failed to acquire batch lock", zap.String("step", string(kind)), zap.Error(err))
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := handle.Unlock(ctx); err != nil {
			b.logger.Warn("failed to release batch lock", zap.String("step", string(kind)), zap.Error(err))
		}
	}()

	// Snapshot the batch before processing anything: items requeued while we
	// work land at the tail and wait for the next cycle, so a retried item
	// cannot burn through its whole retry budget within one cycle.
	items := make([]domain.WorkItem, 0, b.cfg.MaxBatchSize)
	for len(items) < b.cfg.MaxBatchSize {
		item, ok, err := b.queue.Pop(ctx, kind)
		if err != nil {
			b.logger.Warn("failed to pop work item", zap.String("step", string(kind)), zap.Error(err))
			break
		}
		if !ok {
			break
		}
		items = append(items, item)
	}

	for _, item := range items {
		b.processItem(ctx, item)
	}
}

// processItem advances one transfer by one step under its per-transfer lock
func (b *Batcher) processItem(ctx context.Context, item domain.WorkItem) {
	handle, acquired, err := b.locks.TryLock(ctx, lockKeyPrefix+"process:"+item.TransferID.String())
	if err != nil {
		b.logger.Warn("failed to attempt step lock",
			zap.String("transfer_id", item.TransferID.String()), zap.Error(err))
		b.requeue(ctx, item)
		return
	}
	if !acquired {
		// Another worker is on this transfer right now. Requeue without
		// touching the retry count: contention is not a step failure, and
		// escalating here would invoke the failure path for a transfer we
		// never locked. If the holder already advanced it, the stale item is
		// dropped on the next attempt.
		b.requeue(ctx, item)
		return
	}
	defer func() {
		if err := handle.Unlock(ctx); err != nil {
			b.logger.Warn("failed to release step lock",
				zap.String("transfer_id", item.TransferID.String()), zap.Error(err))
		}
	}()

	switch item.Step {
	case domain.StepDebit:
		_, err = b.executor.ProcessDebit(ctx, item.TransferID)
	case domain.StepCredit:
		_, err = b.executor.ProcessCredit(ctx, item.TransferID)
	default:
		b.logger.Error("dropping work item with unknown step", zap.String("step", string(item.Step)))
		return
	}

	switch {
	case err == nil:
		b.logger.Debug("processed step",
			zap.String("step", string(item.Step)),
			zap.String("transfer_id", item.TransferID.String()))
	case errors.Is(err, domain.ErrInvalidState):
		// A racing worker already advanced this transfer; the item is stale
		b.logger.Debug("transfer already advanced, dropping item",
			zap.String("step", string(item.Step)),
			zap.String("transfer_id", item.TransferID.String()))
	case errors.Is(err, domain.ErrTransferNotFound):
		b.logger.Warn("work item references unknown transfer, dropping",
			zap.String("transfer_id", item.TransferID.String()))
	case domain.IsRetryable(err):
		b.logger.Warn("transient step failure",
			zap.String("step", string(item.Step)),
			zap.String("transfer_id", item.TransferID.String()),
			zap.Int("retry_count", item.RetryCount),
			zap.Error(err))
		b.requeueOrEscalate(ctx, item, "max retries exceeded: "+err.Error())
	default:
		// The coordinator already routed the transfer to its failure path
		b.logger.Error("step failed",
			zap.String("step", string(item.Step)),
			zap.String("transfer_id", item.TransferID.String()),
			zap.Error(err))
	}
}

// requeue re-enqueues the item at the tail unchanged, for contention cases
// that are not step failures
func (b *Batcher) requeue(ctx context.Context, item domain.WorkItem) {
	if err := b.queue.Push(ctx, item); err != nil {
		b.logger.Error("failed to requeue work item; reconciliation will recover it",
			zap.String("transfer_id", item.TransferID.String()), zap.Error(err))
	}
}

// requeueOrEscalate re-enqueues the item at the tail with a bumped retry
// count, or hands the transfer to the failure path once the bound is hit.
// Callers hold the per-transfer lock, so the failure path never races the
// step that just failed.
func (b *Batcher) requeueOrEscalate(ctx context.Context, item domain.WorkItem, failureReason string) {
	if item.RetryCount < b.cfg.MaxRetries {
		retry := domain.WorkItem{
			TransferID: item.TransferID,
			Step:       item.Step,
			RetryCount: item.RetryCount + 1,
		}
		if err := b.queue.Push(ctx, retry); err != nil {
			b.logger.Error("failed to requeue work item; reconciliation will recover it",
				zap.String("transfer_id", item.TransferID.String()), zap.Error(err))
		}
		return
	}

	if err := b.executor.HandleFailure(ctx, item.TransferID, failureReason); err != nil {
		b.logger.Error("failed to escalate exhausted work item",
			zap.String("transfer_id", item.TransferID.String()), zap.Error(err))
	}
}
