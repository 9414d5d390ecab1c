package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
)

// UserRepository defines the persistence operations for users.
type UserRepository interface {
	// Create adds a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByIDForUpdate retrieves a user by ID and locks the row for the
	// rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// List retrieves users, optionally filtered by role, newest first.
	List(ctx context.Context, role domain.Role) ([]*domain.User, error)

	// UpdateBalance overwrites the stored balance of a user.
	UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error
}
