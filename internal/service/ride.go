package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/redis"
	"ridebook/internal/repository"
)

// DefaultFareFloor is the minimum ride price when none is configured.
var DefaultFareFloor = decimal.NewFromInt(50)

// RouteInput carries the route and price of a ride being requested or edited.
type RouteInput struct {
	Pickup      domain.Location
	Destination domain.Location
	Price       decimal.Decimal
	Distance    *decimal.Decimal // nil estimates it from the catalogue coordinates
}

// RideService owns ride records outside the lifecycle transitions: reads,
// route edits and deletion of rides nobody has accepted yet.
type RideService struct {
	store     repository.Store
	cache     redis.StatusCacheInterface
	fareFloor decimal.Decimal
	logger    *slog.Logger
	now       func() time.Time
}

// NewRideService creates a new RideService. cache may be nil.
func NewRideService(store repository.Store, cache redis.StatusCacheInterface, fareFloor decimal.Decimal, logger *slog.Logger) *RideService {
	if fareFloor.IsZero() {
		fareFloor = DefaultFareFloor
	}
	return &RideService{
		store:     store,
		cache:     cache,
		fareFloor: fareFloor,
		logger:    logger,
		now:       time.Now,
	}
}

// GetRide returns a ride the actor may see: their own rides, any ride for staff,
// and open requests for riders.
func (s *RideService) GetRide(ctx context.Context, actor domain.Actor, rideID string) (*domain.Ride, error) {
	if err := checkRideID(rideID); err != nil {
		return nil, err
	}

	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !canView(ride, actor) {
		return nil, fmt.Errorf("%w: ride %s", ErrForbidden, rideID)
	}
	return ride, nil
}

// ListRides returns the actor's rides, newest first. Staff see every ride.
// An empty status matches all statuses.
func (s *RideService) ListRides(ctx context.Context, actor domain.Actor, status domain.RideStatus) ([]*domain.Ride, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	filter := repository.RideFilter{Status: status}
	switch {
	case actor.Staff():
	case actor.Role == domain.RoleRider:
		filter.RiderID = actor.UserID
	case actor.Role == domain.RoleCustomer:
		filter.CustomerID = actor.UserID
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, actor.Role)
	}

	return s.store.Rides().List(ctx, filter)
}

// ListAvailableRides returns pending rides without a rider.
func (s *RideService) ListAvailableRides(ctx context.Context, actor domain.Actor) ([]*domain.Ride, error) {
	if actor.Role != domain.RoleRider && !actor.Staff() {
		return nil, fmt.Errorf("%w: only riders can browse available rides", ErrForbidden)
	}

	return s.store.Rides().List(ctx, repository.RideFilter{
		Status:     domain.RideStatusPending,
		Unassigned: true,
	})
}

// UpdateRoute changes the route and price of a pending ride. Only the customer
// who requested it, or staff, may edit it. No event is recorded.
func (s *RideService) UpdateRoute(ctx context.Context, actor domain.Actor, rideID string, input RouteInput) (*domain.Ride, error) {
	if err := checkRideID(rideID); err != nil {
		return nil, err
	}
	distance, err := validateRoute(input, s.fareFloor)
	if err != nil {
		return nil, err
	}

	var updated *domain.Ride
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ride, err := lockEditable(ctx, repos, actor, rideID)
		if err != nil {
			return err
		}

		ride.Pickup = input.Pickup
		ride.Destination = input.Destination
		ride.Price = input.Price
		ride.TotalDistance = distance
		ride.UpdatedAt = s.now()

		if err := repos.Rides().Update(ctx, ride); err != nil {
			return err
		}
		updated = ride
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, rideID)
	s.logger.InfoContext(ctx, "ride route updated",
		"ride_id", rideID,
		"actor_id", actor.UserID,
		"pickup", updated.Pickup,
		"destination", updated.Destination,
		"price", updated.Price.StringFixed(2),
	)
	return updated, nil
}

// DeleteRide removes a pending ride together with its events.
func (s *RideService) DeleteRide(ctx context.Context, actor domain.Actor, rideID string) error {
	if err := checkRideID(rideID); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := lockEditable(ctx, repos, actor, rideID); err != nil {
			return err
		}
		return repos.Rides().Delete(ctx, rideID)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, rideID)
	s.logger.InfoContext(ctx, "ride deleted", "ride_id", rideID, "actor_id", actor.UserID)
	return nil
}

func (s *RideService) invalidate(ctx context.Context, rideID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, rideID); err != nil {
		s.logger.WarnContext(ctx, "status cache invalidation failed", "ride_id", rideID, "error", err)
	}
}

// lockEditable locks a ride that the actor owns (or staff) and that is still pending.
func lockEditable(ctx context.Context, repos repository.Repositories, actor domain.Actor, rideID string) (*domain.Ride, error) {
	ride, err := repos.Rides().GetByIDForUpdate(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !actor.Staff() && ride.CustomerID != actor.UserID {
		return nil, fmt.Errorf("%w: ride %s belongs to another customer", ErrForbidden, rideID)
	}
	if ride.Status != domain.RideStatusPending {
		return nil, fmt.Errorf("%w: ride %s is %s, only pending rides can be changed",
			ErrInvalidTransition, rideID, ride.Status)
	}
	return ride, nil
}

// validateRoute checks a route and price and returns the distance to store.
func validateRoute(input RouteInput, fareFloor decimal.Decimal) (decimal.Decimal, error) {
	if !input.Pickup.Valid() {
		return decimal.Zero, fmt.Errorf("%w: pickup %q", ErrUnknownLocation, input.Pickup)
	}
	if !input.Destination.Valid() {
		return decimal.Zero, fmt.Errorf("%w: destination %q", ErrUnknownLocation, input.Destination)
	}
	if input.Pickup == input.Destination {
		return decimal.Zero, fmt.Errorf("%w: both ends are %s", ErrInvalidRoute, input.Pickup)
	}
	if input.Price.LessThan(fareFloor) {
		return decimal.Zero, fmt.Errorf("%w: %s is below %s",
			ErrPriceTooLow, input.Price.StringFixed(2), fareFloor.StringFixed(2))
	}
	if !input.Price.Equal(input.Price.Round(2)) {
		return decimal.Zero, fmt.Errorf("%w: price %s has more than two decimal places", ErrInvalidAmount, input.Price.String())
	}

	if input.Distance == nil {
		return domain.EstimateDistance(input.Pickup, input.Destination), nil
	}
	if input.Distance.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidDistance, input.Distance.String())
	}
	return input.Distance.Round(2), nil
}

func canView(ride *domain.Ride, actor domain.Actor) bool {
	if actor.Staff() || ride.Involves(actor.UserID) {
		return true
	}
	return actor.Role == domain.RoleRider && ride.Status == domain.RideStatusPending && !ride.HasRider()
}

// checkRideID rejects ids that cannot name a ride. Ride ids are UUIDs, so a
// malformed one is reported as not found.
func checkRideID(rideID string) error {
	if rideID == "" {
		return ErrInvalidRideID
	}
	if _, err := uuid.Parse(rideID); err != nil {
		return fmt.Errorf("ride %q: %w", rideID, repository.ErrNotFound)
	}
	return nil
}

// RideStats summarises one user's finished rides. Amount is what a rider
// earned or a customer spent on completed rides.
type RideStats struct {
	UserID         string
	Role           domain.Role
	CompletedRides int
	CancelledRides int
	Amount         decimal.Decimal
	TotalDistance  decimal.Decimal
}

// Stats reports a user's ride history. Users see their own; staff see anyone's.
func (s *RideService) Stats(ctx context.Context, actor domain.Actor, userID string) (*RideStats, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if actor.UserID != userID && !actor.Staff() {
		return nil, fmt.Errorf("%w: stats of user %s", ErrForbidden, userID)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &RideStats{UserID: user.ID, Role: user.Role}
	var filter repository.RideFilter
	switch user.Role {
	case domain.RoleRider:
		filter.RiderID = user.ID
	case domain.RoleCustomer:
		filter.CustomerID = user.ID
	default:
		return stats, nil
	}

	rides, err := s.store.Rides().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, ride := range rides {
		switch ride.Status {
		case domain.RideStatusCompleted:
			stats.CompletedRides++
			stats.Amount = stats.Amount.Add(ride.Price)
			stats.TotalDistance = stats.TotalDistance.Add(ride.TotalDistance)
		case domain.RideStatusCancelled:
			stats.CancelledRides++
		}
	}
	return stats, nil
}
