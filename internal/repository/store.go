package repository

import "context"

// Repositories groups the repositories that share one connection or transaction.
type Repositories interface {
	Users() UserRepository
	Rides() RideRepository
	Events() RideEventRepository
	Transfers() TransferRepository
}

// Store gives access to repositories outside and inside a transaction.
type Store interface {
	Repositories

	// WithinTx runs fn inside a single transaction. The transaction commits when
	// fn returns nil and rolls back otherwise, leaving no partial writes.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
