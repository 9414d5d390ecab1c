package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/redis"
	"ridebook/internal/repository"
)

const defaultRecentEvents = 20

// TransitionResult is the committed outcome of a lifecycle operation.
type TransitionResult struct {
	Ride     *domain.Ride
	Event    *domain.RideEvent
	Transfer *domain.Transfer // set only on completion
}

// RequestRideInput contains the parameters for requesting a ride.
type RequestRideInput struct {
	RouteInput
	Description string
}

// LifecycleService drives rides through their lifecycle. Each operation locks the
// ride row, applies the transition, appends its event and, on completion, pays the
// rider, all in one transaction.
type LifecycleService struct {
	store     repository.Store
	notifier  *NotificationService
	cache     redis.StatusCacheInterface
	nrApp     *newrelic.Application
	fareFloor decimal.Decimal
	logger    *slog.Logger
	now       func() time.Time
}

// NewLifecycleService creates a new LifecycleService. notifier, cache and nrApp
// may be nil.
func NewLifecycleService(
	store repository.Store,
	notifier *NotificationService,
	cache redis.StatusCacheInterface,
	nrApp *newrelic.Application,
	fareFloor decimal.Decimal,
	logger *slog.Logger,
) *LifecycleService {
	if fareFloor.IsZero() {
		fareFloor = DefaultFareFloor
	}
	return &LifecycleService{
		store:     store,
		notifier:  notifier,
		cache:     cache,
		nrApp:     nrApp,
		fareFloor: fareFloor,
		logger:    logger,
		now:       time.Now,
	}
}

// RequestRide creates a pending ride for a customer and records its first event.
func (s *LifecycleService) RequestRide(ctx context.Context, actor domain.Actor, input RequestRideInput) (*TransitionResult, error) {
	if actor.UserID == "" {
		return nil, ErrInvalidUserID
	}
	if actor.Role != domain.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers can request rides", ErrInvalidTransition)
	}
	distance, err := validateRoute(input.RouteInput, s.fareFloor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ride := &domain.Ride{
		ID:            uuid.New().String(),
		CustomerID:    actor.UserID,
		Pickup:        input.Pickup,
		Destination:   input.Destination,
		TotalDistance: distance,
		Price:         input.Price,
		Status:        domain.RideStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	event := domain.NewRideEvent(uuid.New().String(), ride.ID, domain.StepRequested, input.Description, now)

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users().GetByID(ctx, actor.UserID); err != nil {
			return fmt.Errorf("customer %s: %w", actor.UserID, err)
		}
		if err := repos.Rides().Create(ctx, ride); err != nil {
			return err
		}
		return repos.Events().Append(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	result := &TransitionResult{Ride: ride, Event: event}
	s.afterCommit(ctx, actor, "request", result)
	return result, nil
}

// AcceptRide assigns the acting rider to a pending ride.
func (s *LifecycleService) AcceptRide(ctx context.Context, actor domain.Actor, rideID, description string) (*TransitionResult, error) {
	return s.apply(ctx, actor, rideID, domain.ActionAccept, description)
}

// AdvanceRide records the rider's arrival at pickup or the start of the journey.
func (s *LifecycleService) AdvanceRide(ctx context.Context, actor domain.Actor, rideID string, action domain.Action, description string) (*TransitionResult, error) {
	if action != domain.ActionArrive && action != domain.ActionStart {
		return nil, fmt.Errorf("%w: %q is not an advance action", ErrInvalidTransition, action)
	}
	return s.apply(ctx, actor, rideID, action, description)
}

// CompleteRide finishes an ongoing ride and moves its price from the customer to
// the rider. If the customer cannot pay, nothing changes.
func (s *LifecycleService) CompleteRide(ctx context.Context, actor domain.Actor, rideID, description string) (*TransitionResult, error) {
	return s.apply(ctx, actor, rideID, domain.ActionComplete, description)
}

// CancelRide cancels a ride that has not finished.
func (s *LifecycleService) CancelRide(ctx context.Context, actor domain.Actor, rideID, description string) (*TransitionResult, error) {
	return s.apply(ctx, actor, rideID, domain.ActionCancel, description)
}

// DropRide cancels an accepted or ongoing ride on behalf of one of its participants.
// The default description names who dropped it.
func (s *LifecycleService) DropRide(ctx context.Context, actor domain.Actor, rideID, description string) (*TransitionResult, error) {
	return s.apply(ctx, actor, rideID, domain.ActionDrop, description)
}

func (s *LifecycleService) apply(ctx context.Context, actor domain.Actor, rideID string, action domain.Action, description string) (*TransitionResult, error) {
	if err := checkRideID(rideID); err != nil {
		return nil, err
	}

	var result *TransitionResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ride, err := repos.Rides().GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return err
		}

		t, err := domain.Plan(ride, actor, action)
		if err != nil {
			return err
		}

		if action == domain.ActionDrop && description == "" {
			description, err = dropDescription(ctx, repos, ride, actor)
			if err != nil {
				return err
			}
		}

		now := s.now()
		if t.AssignRider {
			ride.RiderID = actor.UserID
		}
		ride.Status = t.To
		ride.UpdatedAt = now

		var transfer *domain.Transfer
		if t.TransferPayout {
			transfer, err = transferWithin(ctx, repos, transferRequest{
				RideID:     ride.ID,
				FromUserID: ride.CustomerID,
				ToUserID:   ride.RiderID,
				Amount:     ride.Price,
				Reference:  domain.RidePayoutReference(ride.ID),
			}, now)
			if err != nil {
				return err
			}
		}

		if err := repos.Rides().Update(ctx, ride); err != nil {
			return err
		}

		event := domain.NewRideEvent(uuid.New().String(), ride.ID, t.Step, description, now)
		if err := repos.Events().Append(ctx, event); err != nil {
			return err
		}

		result = &TransitionResult{Ride: ride, Event: event, Transfer: transfer}
		return nil
	})
	if err != nil {
		s.logger.DebugContext(ctx, "ride transition rejected",
			"ride_id", rideID,
			"action", action,
			"actor_id", actor.UserID,
			"error", err,
		)
		return nil, err
	}

	s.afterCommit(ctx, actor, string(action), result)
	return result, nil
}

// afterCommit runs the side effects of a committed transition. Failures are logged
// and never reach the caller; the transition itself already happened.
func (s *LifecycleService) afterCommit(ctx context.Context, actor domain.Actor, action string, result *TransitionResult) {
	ride := result.Ride

	s.logger.InfoContext(ctx, "ride transition",
		"ride_id", ride.ID,
		"action", action,
		"actor_id", actor.UserID,
		"status", ride.Status,
		"step", int(result.Event.Step),
	)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ride.ID); err != nil {
			s.logger.WarnContext(ctx, "status cache invalidation failed", "ride_id", ride.ID, "error", err)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyRideEvent(ctx, ride, result.Event, actor); err != nil {
			s.logger.WarnContext(ctx, "ride notification failed", "ride_id", ride.ID, "error", err)
		}
	}

	if s.nrApp != nil {
		attrs := map[string]any{
			"rideId": ride.ID,
			"action": action,
			"status": string(ride.Status),
			"step":   int(result.Event.Step),
			"price":  ride.Price.InexactFloat64(),
		}
		if result.Transfer != nil {
			attrs["transferId"] = result.Transfer.ID
		}
		s.nrApp.RecordCustomEvent("RideTransition", attrs)
	}
}

func dropDescription(ctx context.Context, repos repository.Repositories, ride *domain.Ride, actor domain.Actor) (string, error) {
	user, err := repos.Users().GetByID(ctx, actor.UserID)
	if err != nil {
		return "", fmt.Errorf("actor %s: %w", actor.UserID, err)
	}

	who := "staff"
	switch actor.UserID {
	case ride.RiderID:
		who = "rider"
	case ride.CustomerID:
		who = "customer"
	}
	return fmt.Sprintf("Ride dropped by %s %s", who, user.FullName()), nil
}

// ListEvents returns the history of a ride, oldest first.
func (s *LifecycleService) ListEvents(ctx context.Context, actor domain.Actor, rideID string) ([]*domain.RideEvent, error) {
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
	return s.store.Events().ListByRide(ctx, rideID)
}

// RecentEvents returns the newest events across all rides. Staff only.
func (s *LifecycleService) RecentEvents(ctx context.Context, actor domain.Actor, limit int) ([]*domain.RideEvent, error) {
	if !actor.Staff() {
		return nil, fmt.Errorf("%w: recent activity is staff only", ErrForbidden)
	}
	if limit <= 0 {
		limit = defaultRecentEvents
	}
	return s.store.Events().Recent(ctx, limit)
}
