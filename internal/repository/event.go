package repository

import (
	"context"

	"ridebook/internal/domain"
)

// RideEventRepository is the append-only log of ride lifecycle events.
type RideEventRepository interface {
	// Append stores a new event. Events are never updated.
	Append(ctx context.Context, event *domain.RideEvent) error

	// ListByRide returns the events of a ride, oldest first.
	ListByRide(ctx context.Context, rideID string) ([]*domain.RideEvent, error)

	// Recent returns the newest events across all rides.
	Recent(ctx context.Context, limit int) ([]*domain.RideEvent, error)
}
