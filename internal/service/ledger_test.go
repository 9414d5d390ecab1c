package service_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
	"ridebook/internal/service"
	"ridebook/internal/tests"
)

func newLedger(t *testing.T) (*service.LedgerService, *tests.MockStore) {
	t.Helper()
	store := tests.NewMockStore()
	store.AddUser("alice", domain.RoleCustomer, "100.00")
	store.AddUser("bob", domain.RoleRider, "10.00")
	return service.NewLedgerService(store, tests.DiscardLogger()), store
}

func assertFixed(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if got.StringFixed(2) != want {
		t.Errorf("expected %s %s, got %s", what, want, got.StringFixed(2))
	}
}

func TestLedger_AmountValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		amount  string
		wantErr error
	}{
		{name: "positive two places", amount: "12.34"},
		{name: "whole number", amount: "5"},
		{name: "zero", amount: "0", wantErr: service.ErrInvalidAmount},
		{name: "negative", amount: "-1.00", wantErr: service.ErrInvalidAmount},
		{name: "three places", amount: "1.001", wantErr: service.ErrInvalidAmount},
		{name: "trailing zero third place", amount: "1.010"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ledger, _ := newLedger(t)

			_, err := ledger.Credit(context.Background(), "alice", decimal.RequireFromString(tt.amount))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLedger_CreditAndDebit(t *testing.T) {
	t.Parallel()
	ledger, store := newLedger(t)
	ctx := context.Background()

	user, err := ledger.Credit(ctx, "alice", decimal.RequireFromString("0.10"))
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	assertFixed(t, "balance after credit", user.Balance, "100.10")

	user, err = ledger.Debit(ctx, "alice", decimal.RequireFromString("100.10"))
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !user.Balance.IsZero() {
		t.Errorf("debit of the full balance should leave zero, got %s", user.Balance)
	}

	_, err = ledger.Debit(ctx, "alice", decimal.RequireFromString("0.01"))
	if !errors.Is(err, service.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if !store.Balance("alice").IsZero() {
		t.Errorf("failed debit must not touch the balance, got %s", store.Balance("alice"))
	}
}

func TestLedger_RepeatedSmallCreditsDoNotDrift(t *testing.T) {
	t.Parallel()
	ledger, store := newLedger(t)

	for i := 0; i < 100; i++ {
		if _, err := ledger.Credit(context.Background(), "bob", decimal.RequireFromString("0.10")); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}
	assertFixed(t, "bob balance", store.Balance("bob"), "20.00")
}

func TestLedger_Transfer(t *testing.T) {
	t.Parallel()
	ledger, store := newLedger(t)
	ctx := context.Background()

	transfer, err := ledger.Transfer(ctx, "alice", "bob", decimal.RequireFromString("99.99"), "")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if transfer.Reference == "" {
		t.Error("expected a generated reference")
	}
	assertFixed(t, "sender balance after", transfer.FromBalanceAfter, "0.01")
	assertFixed(t, "recipient balance after", transfer.ToBalanceAfter, "109.99")
	if want := []string{"alice", "bob"}; !reflect.DeepEqual(store.LockedUserIDs, want) {
		t.Errorf("expected lock order %v, got %v", want, store.LockedUserIDs)
	}

	_, err = ledger.Transfer(ctx, "alice", "bob", decimal.RequireFromString("0.02"), "")
	if !errors.Is(err, service.ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	assertFixed(t, "alice balance", store.Balance("alice"), "0.01")
	assertFixed(t, "bob balance", store.Balance("bob"), "109.99")
}

func TestLedger_TransferRejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("same account", func(t *testing.T) {
		ledger, _ := newLedger(t)
		_, err := ledger.Transfer(ctx, "alice", "alice", decimal.NewFromInt(1), "")
		if !errors.Is(err, service.ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("unknown recipient", func(t *testing.T) {
		ledger, store := newLedger(t)
		_, err := ledger.Transfer(ctx, "alice", "nobody", decimal.NewFromInt(1), "")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		assertFixed(t, "alice balance", store.Balance("alice"), "100.00")
	})

	t.Run("duplicate reference", func(t *testing.T) {
		ledger, store := newLedger(t)
		if _, err := ledger.Transfer(ctx, "alice", "bob", decimal.NewFromInt(1), "ref-1"); err != nil {
			t.Fatalf("first transfer: %v", err)
		}

		if _, err := ledger.Transfer(ctx, "alice", "bob", decimal.NewFromInt(1), "ref-1"); err == nil {
			t.Error("expected second transfer with the same reference to fail")
		}
		assertFixed(t, "alice balance", store.Balance("alice"), "99.00")
		if store.TransferCount() != 1 {
			t.Errorf("expected 1 transfer, got %d", store.TransferCount())
		}
	})

	t.Run("credit failure rolls back debit", func(t *testing.T) {
		ledger, store := newLedger(t)
		store.CreateTransferError = errors.New("journal unavailable")

		if _, err := ledger.Transfer(ctx, "alice", "bob", decimal.NewFromInt(30), ""); err == nil {
			t.Error("expected error, got nil")
		}
		assertFixed(t, "alice balance", store.Balance("alice"), "100.00")
		assertFixed(t, "bob balance", store.Balance("bob"), "10.00")
	})
}

func TestLedger_BalanceRequiresUser(t *testing.T) {
	t.Parallel()
	ledger, _ := newLedger(t)

	if _, err := ledger.Balance(context.Background(), ""); !errors.Is(err, service.ErrInvalidUserID) {
		t.Errorf("expected ErrInvalidUserID, got %v", err)
	}

	balance, err := ledger.Balance(context.Background(), "bob")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	assertFixed(t, "bob balance", balance, "10.00")
}
