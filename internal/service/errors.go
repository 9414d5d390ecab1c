package service

import (
	"errors"

	"ridebook/internal/domain"
)

var (
	// ErrInvalidTransition is returned when the ride status or the actor's role
	// does not permit the requested operation.
	ErrInvalidTransition = domain.ErrInvalidTransition

	// ErrAlreadyAccepted is returned when accepting a ride that already has a rider.
	ErrAlreadyAccepted = domain.ErrAlreadyAccepted

	// ErrForbidden is returned when the actor has no relationship to the ride.
	ErrForbidden = domain.ErrForbidden

	// ErrInvalidRoute is returned when pickup and destination are the same location.
	ErrInvalidRoute = errors.New("pickup and destination must differ")

	// ErrPriceTooLow is returned when a ride price is below the fare floor.
	ErrPriceTooLow = errors.New("price below fare floor")

	// ErrInsufficientBalance is returned when a debit exceeds the available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned when an amount is not positive or has more than two decimals.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnknownLocation is returned for a location code outside the catalogue.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrInvalidDistance is returned when a ride distance is negative.
	ErrInvalidDistance = errors.New("invalid distance")

	// ErrInvalidStatus is returned for a status filter outside the five ride statuses.
	ErrInvalidStatus = errors.New("invalid ride status")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidUserID is returned when user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidUser is returned when a user registration is incomplete.
	ErrInvalidUser = errors.New("invalid user")
)
