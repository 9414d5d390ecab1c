package postgres

import (
	"context"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

const eventColumns = `id, ride_id, step, description, created_at`

// RideEventRepository is a PostgreSQL implementation of repository.RideEventRepository.
type RideEventRepository struct {
	q Querier
}

// Append stores a new event.
func (r *RideEventRepository) Append(ctx context.Context, event *domain.RideEvent) error {
	query := `
		INSERT INTO ride_events (id, ride_id, step, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.ExecContext(ctx, query,
		event.ID,
		event.RideID,
		event.Step,
		event.Description,
		event.CreatedAt,
	)
	return err
}

// ListByRide returns the events of a ride in creation order.
// seq breaks ties between events written within the same clock tick.
func (r *RideEventRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.RideEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM ride_events WHERE ride_id = $1 ORDER BY created_at ASC, seq ASC`
	return r.list(ctx, query, rideID)
}

// Recent returns the newest events across all rides.
func (r *RideEventRepository) Recent(ctx context.Context, limit int) ([]*domain.RideEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + eventColumns + ` FROM ride_events ORDER BY created_at DESC, seq DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *RideEventRepository) list(ctx context.Context, query string, args ...any) ([]*domain.RideEvent, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.RideEvent
	for rows.Next() {
		var event domain.RideEvent
		if err := rows.Scan(
			&event.ID,
			&event.RideID,
			&event.Step,
			&event.Description,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// Ensure RideEventRepository implements repository.RideEventRepository.
var _ repository.RideEventRepository = (*RideEventRepository)(nil)
