package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/store"
)

// Compile-time check that Ledger implements store.Ledger
var _ store.Ledger = (*Ledger)(nil)

// Ledger runs each unit of work in a transaction that starts by locking the
// account row (SELECT ... FOR UPDATE on PostgreSQL, BEGIN IMMEDIATE on SQLite).
type Ledger struct {
	s *Store
}

// WithAccount runs fn inside a transaction holding the account lock.
func (l *Ledger) WithAccount(ctx context.Context, accountID string, fn func(tx store.LedgerTx) error) error {
	return l.s.txm.WithTransaction(ctx, func(tx *sql.Tx) error {
		acct, err := getAccount(ctx, l.s, tx, accountID, l.s.forUpdate())
		if err != nil {
			return err
		}
		return fn(&ledgerTx{s: l.s, tx: tx, account: acct})
	})
}

type ledgerTx struct {
	s       *Store
	tx      *sql.Tx
	account *domain.Account
}

func (t *ledgerTx) Account() *domain.Account {
	c := *t.account
	return &c
}

func (t *ledgerTx) SaveAccount(ctx context.Context, a *domain.Account) error {
	_, err := t.tx.ExecContext(ctx, t.s.rebind(`UPDATE accounts SET cash_balance = ?, updated_at = ? WHERE account_id = ?`),
		a.CashBalance, a.UpdatedAt, t.account.AccountID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	c := *a
	c.AccountID = t.account.AccountID
	t.account = &c
	return nil
}

func (t *ledgerTx) Holding(ctx context.Context, symbol string) (*domain.Holding, error) {
	return getHolding(ctx, t.s, t.tx, t.account.AccountID, symbol)
}

func (t *ledgerTx) Holdings(ctx context.Context) ([]*domain.Holding, error) {
	return listHoldings(ctx, t.s, t.tx, t.account.AccountID)
}

func (t *ledgerTx) SaveHolding(ctx context.Context, h *domain.Holding) error {
	c := *h
	c.AccountID = t.account.AccountID
	return saveHolding(ctx, t.s, t.tx, &c)
}

func (t *ledgerTx) Order(ctx context.Context, id string) (*domain.Order, error) {
	o, err := getOrder(ctx, t.s, t.tx, id)
	if err != nil {
		return nil, err
	}
	if o.AccountID != t.account.AccountID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (t *ledgerTx) SaveOrder(ctx context.Context, o *domain.Order) error {
	c := *o
	c.AccountID = t.account.AccountID
	return saveOrder(ctx, t.s, t.tx, &c)
}
