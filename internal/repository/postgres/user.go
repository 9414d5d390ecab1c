package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

const userColumns = `id, username, first_name, middle_name, last_name, role, is_staff, balance, created_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	q Querier
}

// Create adds a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, first_name, middle_name, last_name, role, is_staff, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.FirstName,
		user.MiddleName,
		user.LastName,
		user.Role,
		user.IsStaff,
		user.Balance,
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a user by ID, locking the row.
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(r.q.QueryRowContext(ctx, query, id))
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.q.QueryRowContext(ctx, query, username))
}

// List retrieves users, optionally filtered by role.
func (r *UserRepository) List(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateBalance overwrites the stored balance of a user.
func (r *UserRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	query := `UPDATE users SET balance = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, balance, id)
	if err != nil {
		return err
	}
	return expectOneRow(result, repository.ErrNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.MiddleName,
		&user.LastName,
		&user.Role,
		&user.IsStaff,
		&user.Balance,
		&user.CreatedAt,
	)
	if err != nil {
		if isNoRow(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Ensure UserRepository implements repository.UserRepository.
var _ repository.UserRepository = (*UserRepository)(nil)
