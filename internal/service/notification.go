package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ridebook/internal/domain"
)

// Publisher delivers a message to the event bus under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg any) error
}

// Notification is the message published for every committed ride event.
type Notification struct {
	EventID     string            `json:"event_id"`
	RideID      string            `json:"ride_id"`
	Step        domain.EventStep  `json:"step"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	Status      domain.RideStatus `json:"status"`
	CustomerID  string            `json:"customer_id"`
	RiderID     string            `json:"rider_id,omitempty"`
	ActorID     string            `json:"actor_id"`
	Price       string            `json:"price"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// RoutingKey returns the topic the notification is published under,
// e.g. "ride.event.journey_started".
func (n Notification) RoutingKey() string {
	label := strings.ToLower(strings.ReplaceAll(n.Label, " ", "_"))
	return "ride.event." + label
}

// NotificationService fans out committed ride events. Without a publisher it
// only logs them.
type NotificationService struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewNotificationService creates a new NotificationService. publisher may be nil.
func NewNotificationService(publisher Publisher, logger *slog.Logger) *NotificationService {
	return &NotificationService{publisher: publisher, logger: logger}
}

// NotifyRideEvent publishes the event of a committed transition.
func (s *NotificationService) NotifyRideEvent(ctx context.Context, ride *domain.Ride, event *domain.RideEvent, actor domain.Actor) error {
	n := Notification{
		EventID:     event.ID,
		RideID:      ride.ID,
		Step:        event.Step,
		Label:       event.Step.Label(),
		Description: event.Description,
		Status:      ride.Status,
		CustomerID:  ride.CustomerID,
		RiderID:     ride.RiderID,
		ActorID:     actor.UserID,
		Price:       ride.Price.StringFixed(2),
		OccurredAt:  event.CreatedAt,
	}
	return s.send(ctx, n)
}

func (s *NotificationService) send(ctx context.Context, n Notification) error {
	s.logger.InfoContext(ctx, "ride notification",
		"routing_key", n.RoutingKey(),
		"ride_id", n.RideID,
		"step", int(n.Step),
		"status", n.Status,
	)

	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Publish(ctx, n.RoutingKey(), n); err != nil {
		return fmt.Errorf("publish ride event %s: %w", n.EventID, err)
	}
	return nil
}
