package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/store"
	"github.com/google/uuid"
)

// CreateAccountRequest represents the input for account creation.
type CreateAccountRequest struct {
	Username       string   `json:"username" validate:"required,username"`
	Email          string   `json:"email" validate:"required,email"`
	FullName       string   `json:"full_name" validate:"max=128"`
	InitialBalance *float64 `json:"initial_balance" validate:"omitempty,gte=0"`
}

// AccountService creates accounts and moves cash in and out of them.
type AccountService struct {
	accounts       store.AccountRepository
	ledger         store.Ledger
	initialBalance int64
	logger         *slog.Logger
}

// NewAccountService creates a new AccountService. initialBalance is in
// cents and applies when a request carries no balance.
func NewAccountService(repos *store.Repositories, initialBalance int64, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		accounts:       repos.Accounts,
		ledger:         repos.Ledger,
		initialBalance: initialBalance,
		logger:         logger.With("component", "accounts"),
	}
}

// Create validates the request and opens a new account.
func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest) (*domain.Account, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	balance := s.initialBalance
	if req.InitialBalance != nil {
		cents, err := parseCents("initial_balance", *req.InitialBalance)
		if err != nil {
			return nil, err
		}
		balance = cents
	}

	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:   uuid.New().String(),
		Username:    req.Username,
		Email:       req.Email,
		FullName:    req.FullName,
		CashBalance: balance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("account created", "account_id", a.AccountID, "username", a.Username)
	return a, nil
}

// Get returns an account by ID.
func (s *AccountService) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.accounts.Get(ctx, accountID)
}

// Deposit adds amount dollars to the account's cash.
func (s *AccountService) Deposit(ctx context.Context, accountID string, amount float64) (*domain.Account, error) {
	cents, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	return s.adjust(ctx, accountID, cents)
}

// Withdraw removes amount dollars from the account's cash. It returns
// ErrInsufficientFunds if the balance would go negative.
func (s *AccountService) Withdraw(ctx context.Context, accountID string, amount float64) (*domain.Account, error) {
	cents, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	return s.adjust(ctx, accountID, -cents)
}

func (s *AccountService) adjust(ctx context.Context, accountID string, delta int64) (*domain.Account, error) {
	var result *domain.Account
	err := s.ledger.WithAccount(ctx, accountID, func(tx store.LedgerTx) error {
		a := tx.Account()
		if delta < 0 && !a.CanAfford(-delta) {
			return domain.ErrInsufficientFunds
		}
		balance, ok := domain.CheckedAdd(a.CashBalance, delta)
		if !ok {
			return &domain.ValidationError{Message: "amount would exceed the maximum cash balance"}
		}
		a.CashBalance = balance
		a.UpdatedAt = time.Now().UTC()
		if err := tx.SaveAccount(ctx, a); err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func parseAmount(amount float64) (int64, error) {
	if amount <= 0 {
		return 0, &domain.ValidationError{Message: "amount must be greater than 0"}
	}
	return parseCents("amount", amount)
}
