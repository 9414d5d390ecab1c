package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/redis"
	"ridebook/internal/repository"
)

// StatusReport is the current state of a ride as seen by one actor.
type StatusReport struct {
	Ride        *domain.Ride
	Status      domain.RideStatus
	LatestEvent *domain.RideEvent
	EventCount  int

	// Set only when the ride is completed.
	CustomerBalance *decimal.Decimal
	RiderBalance    *decimal.Decimal

	AllowedActions []domain.Action

	// HistoryConsistent reports whether replaying the event steps leads to Status.
	HistoryConsistent bool
}

// GetStatus reports a ride's status, its latest event and, once completed, the
// balances of both parties.
func (s *LifecycleService) GetStatus(ctx context.Context, actor domain.Actor, rideID string) (*StatusReport, error) {
	if err := checkRideID(rideID); err != nil {
		return nil, err
	}

	snapshot, err := s.snapshot(ctx, rideID)
	if err != nil {
		return nil, err
	}
	ride := snapshot.Ride
	if !canView(ride, actor) {
		return nil, fmt.Errorf("%w: ride %s", ErrForbidden, rideID)
	}

	report := &StatusReport{
		Ride:              ride,
		Status:            ride.Status,
		LatestEvent:       snapshot.LatestEvent,
		EventCount:        snapshot.EventCount,
		AllowedActions:    domain.AllowedActions(ride, actor),
		HistoryConsistent: snapshot.HistoryConsistent,
	}

	if ride.Status == domain.RideStatusCompleted {
		customer, err := s.store.Users().GetByID(ctx, ride.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("customer %s: %w", ride.CustomerID, err)
		}
		rider, err := s.store.Users().GetByID(ctx, ride.RiderID)
		if err != nil {
			return nil, fmt.Errorf("rider %s: %w", ride.RiderID, err)
		}
		report.CustomerBalance = &customer.Balance
		report.RiderBalance = &rider.Balance
	}

	return report, nil
}

// snapshot loads the actor-independent part of a status report, from the cache
// when possible. The ride and its events are read under the ride lock, so a
// snapshot never pairs a status with events from another transition.
func (s *LifecycleService) snapshot(ctx context.Context, rideID string) (*redis.CachedRideStatus, error) {
	var generation int64
	cacheable := s.cache != nil
	if cacheable {
		cached, err := s.cache.Get(ctx, rideID)
		if err != nil {
			s.logger.WarnContext(ctx, "status cache read failed", "ride_id", rideID, "error", err)
		} else if cached != nil {
			return cached, nil
		}

		// Read before the database so that any later invalidation blocks the write.
		generation, err = s.cache.Generation(ctx, rideID)
		if err != nil {
			s.logger.WarnContext(ctx, "status cache generation read failed", "ride_id", rideID, "error", err)
			cacheable = false
		}
	}

	var snapshot *redis.CachedRideStatus
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ride, err := repos.Rides().GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		events, err := repos.Events().ListByRide(ctx, rideID)
		if err != nil {
			return err
		}

		snapshot = &redis.CachedRideStatus{
			Ride:              ride,
			EventCount:        len(events),
			HistoryConsistent: historyMatches(ride.Status, events),
		}
		if len(events) > 0 {
			snapshot.LatestEvent = events[len(events)-1]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cacheable {
		stored, err := s.cache.Set(ctx, snapshot, generation)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "status cache write failed", "ride_id", rideID, "error", err)
		case !stored:
			s.logger.DebugContext(ctx, "status snapshot superseded, not cached", "ride_id", rideID)
		}
	}
	return snapshot, nil
}

func historyMatches(status domain.RideStatus, events []*domain.RideEvent) bool {
	steps := make([]domain.EventStep, len(events))
	for i, e := range events {
		steps[i] = e.Step
	}
	replayed, err := domain.ReplaySteps(steps)
	return err == nil && replayed == status
}
