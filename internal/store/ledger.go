package store

import (
	"context"
	"sort"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/lock"
)

// Compile-time check that MemoryLedger implements Ledger
var _ Ledger = (*MemoryLedger)(nil)

// MemoryLedger serializes units of work per account with a keyed mutex.
// Writes are staged on the unit and applied to the stores only when the
// unit succeeds, so a failed unit leaves no trace.
type MemoryLedger struct {
	locks    *lock.KeyedMutex
	accounts *AccountStore
	holdings *HoldingStore
	orders   *OrderStore
}

// NewMemoryLedger creates a ledger over the given stores.
func NewMemoryLedger(accounts *AccountStore, holdings *HoldingStore, orders *OrderStore) *MemoryLedger {
	return &MemoryLedger{
		locks:    lock.NewKeyedMutex(),
		accounts: accounts,
		holdings: holdings,
		orders:   orders,
	}
}

// WithAccount runs fn while holding the account's mutex.
func (l *MemoryLedger) WithAccount(ctx context.Context, accountID string, fn func(tx LedgerTx) error) error {
	unlock, err := l.locks.Lock(ctx, accountID)
	if err != nil {
		return err
	}
	defer unlock()

	acct, err := l.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}

	tx := &memTx{
		ledger:   l,
		account:  acct,
		holdings: make(map[string]*domain.Holding),
		orders:   make(map[string]*domain.Order),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	ledger       *MemoryLedger
	account      *domain.Account
	accountDirty bool
	holdings     map[string]*domain.Holding // staged, keyed by symbol
	holdingOrder []string
	orders       map[string]*domain.Order // staged, keyed by order_id
	orderOrder   []string
}

func (t *memTx) Account() *domain.Account {
	c := *t.account
	return &c
}

func (t *memTx) SaveAccount(_ context.Context, a *domain.Account) error {
	c := *a
	t.account = &c
	t.accountDirty = true
	return nil
}

func (t *memTx) Holding(ctx context.Context, symbol string) (*domain.Holding, error) {
	if h, ok := t.holdings[symbol]; ok {
		if h.Quantity == 0 {
			return nil, domain.ErrHoldingNotFound
		}
		c := *h
		return &c, nil
	}
	return t.ledger.holdings.Get(ctx, t.account.AccountID, symbol)
}

func (t *memTx) Holdings(ctx context.Context) ([]*domain.Holding, error) {
	stored, err := t.ledger.holdings.ListByAccount(ctx, t.account.AccountID)
	if err != nil {
		return nil, err
	}
	result := make([]*domain.Holding, 0, len(stored)+len(t.holdings))
	for _, h := range stored {
		if _, staged := t.holdings[h.Symbol]; !staged {
			result = append(result, h)
		}
	}
	for _, h := range t.holdings {
		if h.Quantity > 0 {
			c := *h
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Symbol < result[b].Symbol })
	return result, nil
}

func (t *memTx) SaveHolding(_ context.Context, h *domain.Holding) error {
	if _, ok := t.holdings[h.Symbol]; !ok {
		t.holdingOrder = append(t.holdingOrder, h.Symbol)
	}
	c := *h
	c.AccountID = t.account.AccountID
	t.holdings[h.Symbol] = &c
	return nil
}

func (t *memTx) Order(ctx context.Context, id string) (*domain.Order, error) {
	if o, ok := t.orders[id]; ok {
		c := *o
		return &c, nil
	}
	o, err := t.ledger.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.AccountID != t.account.AccountID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (t *memTx) SaveOrder(_ context.Context, o *domain.Order) error {
	if _, ok := t.orders[o.OrderID]; !ok {
		t.orderOrder = append(t.orderOrder, o.OrderID)
	}
	c := *o
	c.AccountID = t.account.AccountID
	t.orders[o.OrderID] = &c
	return nil
}

func (t *memTx) commit() {
	if t.accountDirty {
		t.ledger.accounts.put(t.account)
	}
	for _, sym := range t.holdingOrder {
		t.ledger.holdings.put(t.holdings[sym])
	}
	for _, id := range t.orderOrder {
		t.ledger.orders.put(t.orders[id])
	}
}
