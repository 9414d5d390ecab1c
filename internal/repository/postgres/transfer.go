package postgres

import (
	"context"
	"database/sql"
	"errors"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

// TransferRepository is a PostgreSQL implementation of repository.TransferRepository.
type TransferRepository struct {
	q Querier
}

// Create persists a new transfer.
func (r *TransferRepository) Create(ctx context.Context, transfer *domain.Transfer) error {
	query := `
		INSERT INTO transfers (id, ride_id, from_user_id, to_user_id, amount, from_balance_after, to_balance_after, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		transfer.ID,
		nullString(transfer.RideID),
		transfer.FromUserID,
		transfer.ToUserID,
		transfer.Amount,
		transfer.FromBalanceAfter,
		transfer.ToBalanceAfter,
		transfer.Reference,
		transfer.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetByReference retrieves a transfer by its reference.
// Returns nil if no transfer exists with the given reference.
func (r *TransferRepository) GetByReference(ctx context.Context, reference string) (*domain.Transfer, error) {
	query := `
		SELECT id, COALESCE(ride_id::text, ''), from_user_id, to_user_id, amount, from_balance_after, to_balance_after, reference, created_at
		FROM transfers WHERE reference = $1
	`

	var transfer domain.Transfer
	err := r.q.QueryRowContext(ctx, query, reference).Scan(
		&transfer.ID,
		&transfer.RideID,
		&transfer.FromUserID,
		&transfer.ToUserID,
		&transfer.Amount,
		&transfer.FromBalanceAfter,
		&transfer.ToBalanceAfter,
		&transfer.Reference,
		&transfer.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &transfer, nil
}

// Ensure TransferRepository implements repository.TransferRepository.
var _ repository.TransferRepository = (*TransferRepository)(nil)
