package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ridebook/internal/repository"
)

// repos bundles repositories bound to the same Querier.
type repos struct {
	users     *UserRepository
	rides     *RideRepository
	events    *RideEventRepository
	transfers *TransferRepository
}

func newRepos(q Querier) repos {
	return repos{
		users:     &UserRepository{q: q},
		rides:     &RideRepository{q: q},
		events:    &RideEventRepository{q: q},
		transfers: &TransferRepository{q: q},
	}
}

func (r repos) Users() repository.UserRepository { return r.users }
func (r repos) Rides() repository.RideRepository { return r.rides }
func (r repos) Events() repository.RideEventRepository { return r.events }
func (r repos) Transfers() repository.TransferRepository { return r.transfers }

// Store implements repository.Store on a PostgreSQL connection pool.
type Store struct {
	repos
	db *sql.DB
}

// NewStore creates a new Store.
func NewStore(db *sql.DB) *Store {
	return &Store{repos: newRepos(db), db: db}
}

// WithinTx runs fn in a READ COMMITTED transaction. Row locks taken with
// SELECT ... FOR UPDATE inside fn are held until commit or rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, newRepos(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)
