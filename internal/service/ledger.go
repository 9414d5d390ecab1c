package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

// LedgerService owns user balances. Every operation runs in its own transaction
// and locks the affected user rows before reading a balance.
type LedgerService struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(store repository.Store, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Balance returns the current balance of a user.
func (s *LedgerService) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if userID == "" {
		return decimal.Zero, ErrInvalidUserID
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}

// Credit adds amount to the user's balance.
func (s *LedgerService) Credit(ctx context.Context, userID string, amount decimal.Decimal) (*domain.User, error) {
	return s.adjust(ctx, userID, amount, false)
}

// Debit subtracts amount from the user's balance. The balance never goes negative.
func (s *LedgerService) Debit(ctx context.Context, userID string, amount decimal.Decimal) (*domain.User, error) {
	return s.adjust(ctx, userID, amount, true)
}

func (s *LedgerService) adjust(ctx context.Context, userID string, amount decimal.Decimal, debit bool) (*domain.User, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var updated *domain.User
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		user, err := repos.Users().GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		balance := user.Balance.Add(amount)
		if debit {
			if user.Balance.LessThan(amount) {
				return fmt.Errorf("%w: user %s has %s, needs %s",
					ErrInsufficientBalance, userID, user.Balance.StringFixed(2), amount.StringFixed(2))
			}
			balance = user.Balance.Sub(amount)
		}

		if err := repos.Users().UpdateBalance(ctx, userID, balance); err != nil {
			return err
		}
		user.Balance = balance
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "balance adjusted",
		"user_id", userID,
		"debit", debit,
		"amount", amount.StringFixed(2),
		"balance", updated.Balance.StringFixed(2),
	)
	return updated, nil
}

// Transfer moves amount from one user to another. Either both balances change or
// neither does. An empty reference gets a generated one.
func (s *LedgerService) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, reference string) (*domain.Transfer, error) {
	if fromID == "" || toID == "" {
		return nil, ErrInvalidUserID
	}
	if reference == "" {
		reference = "transfer:" + uuid.New().String()
	}

	var transfer *domain.Transfer
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		transfer, err = transferWithin(ctx, repos, transferRequest{
			FromUserID: fromID,
			ToUserID:   toID,
			Amount:     amount,
			Reference:  reference,
		}, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "transfer recorded",
		"transfer_id", transfer.ID,
		"from", fromID,
		"to", toID,
		"amount", amount.StringFixed(2),
	)
	return transfer, nil
}

type transferRequest struct {
	RideID     string
	FromUserID string
	ToUserID   string
	Amount     decimal.Decimal
	Reference  string
}

// transferWithin runs a transfer inside the caller's transaction. Both user rows
// are locked in ascending ID order so two opposing transfers cannot deadlock.
func transferWithin(ctx context.Context, repos repository.Repositories, req transferRequest, now time.Time) (*domain.Transfer, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.FromUserID == req.ToUserID {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", ErrInvalidAmount)
	}

	users, err := lockUsers(ctx, repos, req.FromUserID, req.ToUserID)
	if err != nil {
		return nil, err
	}
	from, to := users[req.FromUserID], users[req.ToUserID]

	if from.Balance.LessThan(req.Amount) {
		return nil, fmt.Errorf("%w: user %s has %s, needs %s",
			ErrInsufficientBalance, from.ID, from.Balance.StringFixed(2), req.Amount.StringFixed(2))
	}

	fromBalance := from.Balance.Sub(req.Amount)
	toBalance := to.Balance.Add(req.Amount)

	if err := repos.Users().UpdateBalance(ctx, from.ID, fromBalance); err != nil {
		return nil, fmt.Errorf("debit %s: %w", from.ID, err)
	}
	if err := repos.Users().UpdateBalance(ctx, to.ID, toBalance); err != nil {
		return nil, fmt.Errorf("credit %s: %w", to.ID, err)
	}

	transfer := &domain.Transfer{
		ID:               uuid.New().String(),
		RideID:           req.RideID,
		FromUserID:       from.ID,
		ToUserID:         to.ID,
		Amount:           req.Amount,
		FromBalanceAfter: fromBalance,
		ToBalanceAfter:   toBalance,
		Reference:        req.Reference,
		CreatedAt:        now,
	}
	if err := repos.Transfers().Create(ctx, transfer); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: transfer %s already recorded", ErrInvalidTransition, req.Reference)
		}
		return nil, err
	}
	return transfer, nil
}

func lockUsers(ctx context.Context, repos repository.Repositories, a, b string) (map[string]*domain.User, error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}

	users := make(map[string]*domain.User, 2)
	for _, id := range []string{first, second} {
		user, err := repos.Users().GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lock user %s: %w", id, err)
		}
		users[id] = user
	}
	return users, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s is not positive", ErrInvalidAmount, amount.String())
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: %s has more than two decimal places", ErrInvalidAmount, amount.String())
	}
	return nil
}
