// Package integration exercises the full transfer saga end to end: the
// coordinator, the account gateway, the work queues, the step locks, and
// the batch workers, wired over the in-memory adapters so the suite is
// hermetic and deterministic.
package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/corebank/banking-backend/internal/adapter/lock"
	"github.com/corebank/banking-backend/internal/adapter/queue"
	"github.com/corebank/banking-backend/internal/adapter/repository/memory"
	"github.com/corebank/banking-backend/internal/domain"
	"github.com/corebank/banking-backend/internal/resilience"
	"github.com/corebank/banking-backend/internal/usecase/account"
	"github.com/corebank/banking-backend/internal/usecase/transfer"
	"github.com/corebank/banking-backend/internal/worker"
)

type harness struct {
	accounts  *account.AccountService
	accRepo   *memory.AccountRepository
	transfers *transfer.TransferService
	queue     *queue.MemoryQueue
	batcher   *worker.Batcher
}

// newHarness wires the saga stack over in-memory adapters. gateway lets a
// test interpose failures between the coordinator and the account service;
// pass nil to use the account service directly.
func newHarness(t *testing.T, gateway domain.AccountGateway) *harness {
	t.Helper()

	logger := zap.NewNop()
	accRepo := memory.NewAccountRepository()
	accounts := account.NewAccountService(accRepo, logger)
	if gateway == nil {
		gateway = accounts
	}

	workQueue := queue.NewMemoryQueue()
	transfers := transfer.NewTransferService(
		memory.NewTransferRepository(),
		gateway,
		workQueue,
		resilience.NewPolicy(3, time.Millisecond),
		logger,
	)

	batcher := worker.NewBatcher(
		transfers,
		workQueue,
		lock.NewMemoryManager(10*time.Second),
		resilience.NewBulkhead(2),
		worker.Config{MaxBatchSize: 10, PollInterval: time.Second, MaxRetries: 3},
		logger,
	)

	return &harness{
		accounts:  accounts,
		accRepo:   accRepo,
		transfers: transfers,
		queue:     workQueue,
		batcher:   batcher,
	}
}

func (h *harness) openAccount(t *testing.T, document, balance string) *domain.Account {
	t.Helper()
	ctx := context.Background()

	created, err := h.accounts.Create(ctx, account.CreateAccountInput{
		DocumentNumber: document,
		HolderName:     "Holder " + document,
		Type:           domain.AccountTypeChecking,
		Currency:       "BRL",
	})
	require.NoError(t, err)

	_, err = h.accounts.Activate(ctx, created.ID)
	require.NoError(t, err)

	amount := decimal.RequireFromString(balance)
	if amount.IsPositive() {
		_, err = h.accounts.Deposit(ctx, created.ID, amount)
		require.NoError(t, err)
	}
	return created
}

// drain runs batch cycles until both queues are empty, bounded so a
// requeue loop cannot hang the test.
func (h *harness) drain(ctx context.Context) {
	for i := 0; i < 20; i++ {
		h.batcher.RunCycle(ctx, domain.StepDebit)
		h.batcher.RunCycle(ctx, domain.StepCredit)
		if h.queue.Len(domain.StepDebit) == 0 && h.queue.Len(domain.StepCredit) == 0 {
			return
		}
	}
}

func (h *harness) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	acct, err := h.accounts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return acct.Balance
}

func TestTransferCompletesAndConservesMoney(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	source := h.openAccount(t, "11111111111", "100.00")
	target := h.openAccount(t, "22222222222", "10.00")

	created, err := h.transfers.Create(ctx, transfer.CreateTransferInput{
		SourceAccountID: source.ID,
		TargetAccountID: target.ID,
		Amount:          decimal.RequireFromString("50.00"),
		Currency:        "BRL",
		Description:     "rent",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, created.Status)

	h.drain(ctx)

	final, err := h.transfers.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, final.Status)
	require.NotNil(t, final.CompletedAt)

	assert.True(t, h.balance(t, source.ID).Equal(decimal.RequireFromString("50.00")))
	assert.True(t, h.balance(t, target.ID).Equal(decimal.RequireFromString("60.00")))
}

func TestTransferRejectedWhenFundsInsufficient(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	source := h.openAccount(t, "11111111111", "10.00")
	target := h.openAccount(t, "22222222222", "0.00")

	_, err := h.transfers.Create(ctx, transfer.CreateTransferInput{
		SourceAccountID: source.ID,
		TargetAccountID: target.ID,
		Amount:          decimal.RequireFromString("50.00"),
		Currency:        "BRL",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Nothing was persisted and no money moved.
	transfers, err := h.transfers.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, transfers)
	assert.True(t, h.balance(t, source.ID).Equal(decimal.RequireFromString("10.00")))
}

func TestTransferCompensatedWhenCreditCannotSucceed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	source := h.openAccount(t, "11111111111", "100.00")
	target := h.openAccount(t, "22222222222", "0.00")

	created, err := h.transfers.Create(ctx, transfer.CreateTransferInput{
		SourceAccountID: source.ID,
		TargetAccountID: target.ID,
		Amount:          decimal.RequireFromString("30.00"),
		Currency:        "BRL",
	})
	require.NoError(t, err)

	// Block the target after the balance check so the debit lands but the
	// credit is rejected with a non-retryable error.
	blocked, err := h.accRepo.GetByID(ctx, target.ID)
	require.NoError(t, err)
	blocked.Status = domain.AccountStatusBlocked
	require.NoError(t, h.accRepo.Update(ctx, blocked))

	h.drain(ctx)

	final, err := h.transfers.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompensated, final.Status)

	// The debit was reversed: the source is whole and the target got nothing.
	assert.True(t, h.balance(t, source.ID).Equal(decimal.RequireFromString("100.00")))
	assert.True(t, h.balance(t, target.ID).Equal(decimal.RequireFromString("0.00")))
}

// flakyGateway fails the first n credit calls with a transient error, then
// delegates. It models a gateway that recovers while items are requeued.
type flakyGateway struct {
	domain.AccountGateway

	mu       sync.Mutex
	failures int
}

func (g *flakyGateway) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, currency string, transferID uuid.UUID) error {
	g.mu.Lock()
	if g.failures > 0 {
		g.failures--
		g.mu.Unlock()
		return domain.ErrGatewayUnavailable
	}
	g.mu.Unlock()
	return g.AccountGateway.Credit(ctx, accountID, amount, currency, transferID)
}

func TestTransferRecoversFromTransientCreditFailures(t *testing.T) {
	ctx := context.Background()

	// The harness wires the flaky gateway between coordinator and accounts;
	// the inner gateway is filled in after construction.
	flaky := &flakyGateway{failures: 2}
	h := newHarness(t, flaky)
	flaky.AccountGateway = h.accounts

	source := h.openAccount(t, "11111111111", "100.00")
	target := h.openAccount(t, "22222222222", "0.00")

	created, err := h.transfers.Create(ctx, transfer.CreateTransferInput{
		SourceAccountID: source.ID,
		TargetAccountID: target.ID,
		Amount:          decimal.RequireFromString("25.00"),
		Currency:        "BRL",
	})
	require.NoError(t, err)

	h.drain(ctx)

	final, err := h.transfers.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.True(t, h.balance(t, source.ID).Equal(decimal.RequireFromString("75.00")))
	assert.True(t, h.balance(t, target.ID).Equal(decimal.RequireFromString("25.00")))
}

func TestRacingCreditAdvancesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	source := h.openAccount(t, "11111111111", "100.00")
	target := h.openAccount(t, "22222222222", "0.00")

	created, err := h.transfers.Create(ctx, transfer.CreateTransferInput{
		SourceAccountID: source.ID,
		TargetAccountID: target.ID,
		Amount:          decimal.RequireFromString("40.00"),
		Currency:        "BRL",
	})
	require.NoError(t, err)

	// Drive the debit step, then race a duplicate credit item against the
	// real one. The status guard drops the loser.
	h.batcher.RunCycle(ctx, domain.StepDebit)
	require.NoError(t, h.queue.Push(ctx, domain.WorkItem{TransferID: created.ID, Step: domain.StepCredit}))

	h.drain(ctx)

	final, err := h.transfers.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, final.Status)

	// A double credit would leave the target at 80.
	assert.True(t, h.balance(t, target.ID).Equal(decimal.RequireFromString("40.00")))
}

func TestConcurrentCompleteCreditsTargetOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	source := h.openAccount(t, "11111111111", "100.00")
	target := h.openAccount(t, "22222222222", "0.00")

	created, err := h.transfers.Create(ctx, transfer.CreateTransferInput{
		SourceAccountID: source.ID,
		TargetAccountID: target.ID,
		Amount:          decimal.RequireFromString("40.00"),
		Currency:        "BRL",
	})
	require.NoError(t, err)

	h.batcher.RunCycle(ctx, domain.StepDebit)

	// A synchronous Complete call racing the credit worker: both observe
	// DEBITED, but only one may claim the step and move money. The loser
	// must back off before its gateway call.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.transfers.Complete(ctx, created.ID)
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range errs {
		if err == nil {
			successes++
		}
	}
	assert.Equal(t, 1, successes)

	final, err := h.transfers.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.True(t, h.balance(t, source.ID).Equal(decimal.RequireFromString("60.00")))
	assert.True(t, h.balance(t, target.ID).Equal(decimal.RequireFromString("40.00")))
}

func TestReconcileRequeuesOpenTransfers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	source := h.openAccount(t, "11111111111", "100.00")
	target := h.openAccount(t, "22222222222", "0.00")

	created, err := h.transfers.Create(ctx, transfer.CreateTransferInput{
		SourceAccountID: source.ID,
		TargetAccountID: target.ID,
		Amount:          decimal.RequireFromString("15.00"),
		Currency:        "BRL",
	})
	require.NoError(t, err)

	// Simulate a lost work item: empty the queue, then reconcile.
	popped, ok, err := h.queue.Pop(ctx, domain.StepDebit)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, created.ID, popped.TransferID)
	require.Equal(t, 0, h.queue.Len(domain.StepDebit))

	require.NoError(t, h.transfers.Reconcile(ctx))
	require.Equal(t, 1, h.queue.Len(domain.StepDebit))

	h.drain(ctx)

	final, err := h.transfers.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, final.Status)
}
