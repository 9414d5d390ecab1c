package repository

import (
	"context"

	"ridebook/internal/domain"
)

// TransferRepository defines the persistence operations for ledger transfers.
type TransferRepository interface {
	// Create persists a new transfer. A duplicate reference fails with ErrDuplicate.
	Create(ctx context.Context, transfer *domain.Transfer) error

	// GetByReference retrieves a transfer by its unique reference.
	// Returns nil if no transfer exists with the given reference.
	GetByReference(ctx context.Context, reference string) (*domain.Transfer, error)
}
