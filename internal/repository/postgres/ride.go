package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

const (
	rideColumns      = `id, customer_id, rider_id, pickup, destination, total_distance, price, status, created_at, updated_at`
	defaultListLimit = 100
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, customer_id, rider_id, pickup, destination, total_distance, price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.CustomerID,
		nullString(ride.RiderID),
		ride.Pickup,
		ride.Destination,
		ride.TotalDistance,
		ride.Price,
		ride.Status,
		ride.CreatedAt,
		ride.UpdatedAt,
	)
	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return scanRide(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a ride by ID and holds a row lock on it.
// Concurrent transitions on the same ride queue behind this lock.
func (r *RideRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1 FOR UPDATE`
	return scanRide(r.q.QueryRowContext(ctx, query, id))
}

// List retrieves rides matching the filter, newest first.
func (r *RideRepository) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.CustomerID != "" {
		add("customer_id = $%d", filter.CustomerID)
	}
	if filter.RiderID != "" {
		add("rider_id = $%d", filter.RiderID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Unassigned {
		where = append(where, "rider_id IS NULL")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + rideColumns + ` FROM rides`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// Update updates an existing ride.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET rider_id = $1, pickup = $2, destination = $3, total_distance = $4, price = $5, status = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(ride.RiderID),
		ride.Pickup,
		ride.Destination,
		ride.TotalDistance,
		ride.Price,
		ride.Status,
		ride.UpdatedAt,
		ride.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result, repository.ErrNotFound)
}

// Delete removes a ride. ride_events rows go with it (ON DELETE CASCADE).
func (r *RideRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM rides WHERE id = $1`, id)
	if isNoRow(err) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	return expectOneRow(result, repository.ErrNotFound)
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var riderID sql.NullString

	err := row.Scan(
		&ride.ID,
		&ride.CustomerID,
		&riderID,
		&ride.Pickup,
		&ride.Destination,
		&ride.TotalDistance,
		&ride.Price,
		&ride.Status,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		if isNoRow(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if riderID.Valid {
		ride.RiderID = riderID.String
	}
	return &ride, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Ensure RideRepository implements repository.RideRepository.
var _ repository.RideRepository = (*RideRepository)(nil)
