package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

// RegisterUserInput contains the parameters for creating an account.
type RegisterUserInput struct {
	Username   string
	FirstName  string
	MiddleName string
	LastName   string
	Role       domain.Role
	IsStaff    bool
	Balance    decimal.Decimal // opening balance, zero by default
}

// UserService handles the staff-side administration of accounts.
type UserService struct {
	store  repository.Store
	ledger *LedgerService
	logger *slog.Logger
	now    func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(store repository.Store, ledger *LedgerService, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		ledger: ledger,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates a user. Staff only.
func (s *UserService) Register(ctx context.Context, actor domain.Actor, input RegisterUserInput) (*domain.User, error) {
	if !actor.Staff() {
		return nil, fmt.Errorf("%w: only staff can register users", ErrForbidden)
	}

	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" || input.FirstName == "" || input.LastName == "" {
		return nil, fmt.Errorf("%w: username, first and last name are required", ErrInvalidUser)
	}
	if !input.Role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidUser, input.Role)
	}
	if input.Balance.IsNegative() || !input.Balance.Equal(input.Balance.Round(2)) {
		return nil, fmt.Errorf("%w: opening balance %s", ErrInvalidAmount, input.Balance.String())
	}

	user := &domain.User{
		ID:         uuid.New().String(),
		Username:   input.Username,
		FirstName:  input.FirstName,
		MiddleName: input.MiddleName,
		LastName:   input.LastName,
		Role:       input.Role,
		IsStaff:    input.IsStaff || input.Role == domain.RoleStaff,
		Balance:    input.Balance,
		CreatedAt:  s.now(),
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("username %q: %w", user.Username, err)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role, "actor_id", actor.UserID)
	return user, nil
}

// ListUsers returns users, optionally filtered by role. Staff only.
func (s *UserService) ListUsers(ctx context.Context, actor domain.Actor, role domain.Role) ([]*domain.User, error) {
	if !actor.Staff() {
		return nil, fmt.Errorf("%w: only staff can list users", ErrForbidden)
	}
	if role != "" && !role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidUser, role)
	}
	return s.store.Users().List(ctx, role)
}

// GetUser returns a user. Users may read their own account; staff may read any.
func (s *UserService) GetUser(ctx context.Context, actor domain.Actor, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if !actor.Staff() && actor.UserID != userID {
		return nil, fmt.Errorf("%w: user %s", ErrForbidden, userID)
	}
	return s.store.Users().GetByID(ctx, userID)
}

// TopUp credits a user's balance. Staff only.
func (s *UserService) TopUp(ctx context.Context, actor domain.Actor, userID string, amount decimal.Decimal) (*domain.User, error) {
	if !actor.Staff() {
		return nil, fmt.Errorf("%w: only staff can add balance", ErrForbidden)
	}
	return s.ledger.Credit(ctx, userID, amount)
}
