package domain

import "errors"

var (
	// ErrInvalidTransition is returned when the ride status or the actor's role
	// does not permit the requested lifecycle action.
	ErrInvalidTransition = errors.New("invalid ride transition")

	// ErrAlreadyAccepted is returned when accepting a ride that already has a rider.
	ErrAlreadyAccepted = errors.New("ride already accepted")

	// ErrForbidden is returned when the actor has no relationship to the ride.
	ErrForbidden = errors.New("forbidden")
)
