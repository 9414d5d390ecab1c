package repository

import (
	"context"

	"ridebook/internal/domain"
)

// RideFilter narrows a ride listing. Zero values mean "any".
type RideFilter struct {
	CustomerID string
	RiderID    string
	Status     domain.RideStatus
	Unassigned bool // only rides without a rider
	Limit      int
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetByIDForUpdate retrieves a ride by ID and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error)

	// List retrieves rides matching the filter, newest first.
	List(ctx context.Context, filter RideFilter) ([]*domain.Ride, error)

	// Update updates an existing ride.
	Update(ctx context.Context, ride *domain.Ride) error

	// Delete removes a ride and, by cascade, its events.
	Delete(ctx context.Context, id string) error
}
