package domain

import "time"

// EventStep identifies a lifecycle milestone of a ride.
type EventStep int

const (
	StepRequested        EventStep = 1
	StepAccepted         EventStep = 2
	StepArrivedAtPickup  EventStep = 3
	StepJourneyStarted   EventStep = 4
	StepJourneyCompleted EventStep = 5
	StepCancelled        EventStep = 6
)

var stepLabels = map[EventStep]string{
	StepRequested:        "Ride Requested",
	StepAccepted:         "Rider Accepted",
	StepArrivedAtPickup:  "Rider Arrived at Pickup",
	StepJourneyStarted:   "Journey Started",
	StepJourneyCompleted: "Journey Completed",
	StepCancelled:        "Ride Cancelled",
}

// Valid reports whether s is within 1..6.
func (s EventStep) Valid() bool {
	_, ok := stepLabels[s]
	return ok
}

// Label returns the display label of the step.
func (s EventStep) Label() string {
	if label, ok := stepLabels[s]; ok {
		return label
	}
	return "Unknown Step"
}

// RideEvent is an immutable record of one lifecycle milestone.
type RideEvent struct {
	ID          string
	RideID      string
	Step        EventStep
	Description string
	CreatedAt   time.Time
}

// NewRideEvent builds an event, defaulting the description to the step label.
func NewRideEvent(id, rideID string, step EventStep, description string, at time.Time) *RideEvent {
	if description == "" {
		description = step.Label()
	}
	return &RideEvent{
		ID:          id,
		RideID:      rideID,
		Step:        step,
		Description: description,
		CreatedAt:   at,
	}
}
