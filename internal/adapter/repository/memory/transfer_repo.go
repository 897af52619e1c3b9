// Package memory provides in-memory repository implementations with the
// same optimistic-versioning semantics as the postgres adapters. They back
// unit and end-to-end tests that need real concurrency behavior without a
// database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/corebank/banking-backend/internal/domain"
)

// TransferRepository is an in-memory domain.TransferRepository.
type TransferRepository struct {
	mu        sync.RWMutex
	transfers map[uuid.UUID]*domain.Transfer
}

// NewTransferRepository creates an empty in-memory transfer repository.
func NewTransferRepository() *TransferRepository {
	return &TransferRepository{transfers: make(map[uuid.UUID]*domain.Transfer)}
}

// Create stores the transfer at version 1.
func (r *TransferRepository) Create(_ context.Context, transfer *domain.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	transfer.Version = 1
	stored := *transfer
	r.transfers[transfer.ID] = &stored
	return nil
}

// GetByID returns a copy of the stored transfer.
func (r *TransferRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	copied := *stored
	return &copied, nil
}

// Update applies the write only when the caller's version matches the
// stored version, mirroring the database CAS.
func (r *TransferRepository) Update(_ context.Context, transfer *domain.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.transfers[transfer.ID]
	if !ok {
		return domain.ErrTransferNotFound
	}
	if stored.Version != transfer.Version {
		return fmt.Errorf("transfer %s at version %d: %w", transfer.ID, transfer.Version, domain.ErrConcurrencyConflict)
	}

	transfer.Version++
	updated := *transfer
	r.transfers[transfer.ID] = &updated
	return nil
}

// List returns all transfers, newest first.
func (r *TransferRepository) List(_ context.Context) ([]*domain.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transfers := make([]*domain.Transfer, 0, len(r.transfers))
	for _, stored := range r.transfers {
		copied := *stored
		transfers = append(transfers, &copied)
	}
	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].RequestedAt.After(transfers[j].RequestedAt)
	})
	return transfers, nil
}

// ListByStatus returns transfers in any of the given statuses.
func (r *TransferRepository) ListByStatus(_ context.Context, statuses ...domain.TransferStatus) ([]*domain.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[domain.TransferStatus]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}

	transfers := make([]*domain.Transfer, 0)
	for _, stored := range r.transfers {
		if _, ok := wanted[stored.Status]; ok {
			copied := *stored
			transfers = append(transfers, &copied)
		}
	}
	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].RequestedAt.After(transfers[j].RequestedAt)
	})
	return transfers, nil
}
