package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusPending   RideStatus = "PENDING"
	RideStatusAccepted  RideStatus = "ACCEPTED"
	RideStatusOngoing   RideStatus = "ONGOING"
	RideStatusCompleted RideStatus = "COMPLETED"
	RideStatusCancelled RideStatus = "CANCELLED"
)

// Valid reports whether s is one of the five ride statuses.
func (s RideStatus) Valid() bool {
	switch s {
	case RideStatusPending, RideStatusAccepted, RideStatusOngoing,
		RideStatusCompleted, RideStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s RideStatus) Terminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// DisplayName returns the label shown to users, e.g. "Ongoing".
func (s RideStatus) DisplayName() string {
	switch s {
	case RideStatusPending:
		return "Pending"
	case RideStatusAccepted:
		return "Accepted"
	case RideStatusOngoing:
		return "Ongoing"
	case RideStatusCompleted:
		return "Completed"
	case RideStatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// Ride represents a transport request between two catalogue locations.
type Ride struct {
	ID            string
	CustomerID    string
	RiderID       string // empty until a rider accepts
	Pickup        Location
	Destination   Location
	TotalDistance decimal.Decimal // kilometres
	Price         decimal.Decimal
	Status        RideStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasRider reports whether a rider has been assigned.
func (r *Ride) HasRider() bool {
	return r.RiderID != ""
}

// Involves reports whether the user is the ride's customer or assigned rider.
func (r *Ride) Involves(userID string) bool {
	return userID != "" && (r.CustomerID == userID || r.RiderID == userID)
}
