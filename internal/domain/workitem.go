package domain

import (
	"context"

	"github.com/google/uuid"
)

// StepKind identifies which saga step a work item advances
type StepKind string

const (
	StepDebit  StepKind = "DEBIT"
	StepCredit StepKind = "CREDIT"
)

// WorkItem is a queued instruction to advance one transfer by one step.
// Items are ephemeral: if the queue loses them they are re-derived from the
// transfer status by the reconciliation sweep, so the queue is an ordering
// and batching optimization, not a system of record.
type WorkItem struct {
	TransferID uuid.UUID `json:"transferId"`
	Step       StepKind  `json:"step"`
	RetryCount int       `json:"retryCount"`
}

// WorkQueue decouples "transfer needs a step executed" from "step is
// executed now". Implementations must be safe for concurrent use from
// multiple processes. Pop is non-blocking: the second return value is false
// when the queue for that step kind is empty.
type WorkQueue interface {
	Push(ctx context.Context, item WorkItem) error
	Pop(ctx context.Context, kind StepKind) (WorkItem, bool, error)
}
