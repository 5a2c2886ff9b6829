package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/store"
)

// Compile-time check that AccountRepository implements store.AccountRepository
var _ store.AccountRepository = (*AccountRepository)(nil)

const accountColumns = `account_id, username, email, full_name, cash_balance, created_at, updated_at`

// AccountRepository is the SQL implementation of store.AccountRepository.
type AccountRepository struct {
	s *Store
}

// Create inserts an account, mapping unique violations to
// domain.ErrAccountAlreadyExists.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		a.AccountID, a.Username, a.Email, a.FullName, a.CashBalance, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// Get loads an account by ID.
func (r *AccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	return getAccount(ctx, r.s, r.s.db, id, "")
}

func getAccount(ctx context.Context, s *Store, q queryer, id, suffix string) (*domain.Account, error) {
	var a domain.Account
	err := q.QueryRowContext(ctx, s.rebind(`SELECT `+accountColumns+` FROM accounts WHERE account_id = ?`+suffix), id).
		Scan(&a.AccountID, &a.Username, &a.Email, &a.FullName, &a.CashBalance, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}
