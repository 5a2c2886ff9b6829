// Package store defines the persistence ports used by the services and
// provides their thread-safe in-memory implementations. SQL-backed
// implementations live in the sqlstore subpackage.
package store

import (
	"context"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
)

// AccountRepository persists accounts. Balance changes go through Ledger.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, id string) (*domain.Account, error)
}

// InstrumentRepository is the market data store: the authoritative current
// price per symbol.
type InstrumentRepository interface {
	Upsert(ctx context.Context, i *domain.Instrument) error
	Get(ctx context.Context, symbol string) (*domain.Instrument, error)
	// List returns all instruments ordered by symbol.
	List(ctx context.Context) ([]*domain.Instrument, error)
	// Search matches q case-insensitively against symbol and name.
	Search(ctx context.Context, q string) ([]*domain.Instrument, error)
	// Prices returns the current price of each known symbol. Unknown
	// symbols are absent from the result.
	Prices(ctx context.Context, symbols []string) (map[string]int64, error)
	// Update applies fn to the instrument atomically and returns the result.
	Update(ctx context.Context, symbol string, fn func(*domain.Instrument) error) (*domain.Instrument, error)
}

// HoldingRepository is the read side of holdings. Writes go through Ledger.
type HoldingRepository interface {
	// ListByAccount returns holdings ordered by symbol.
	ListByAccount(ctx context.Context, accountID string) ([]*domain.Holding, error)
	Get(ctx context.Context, accountID, symbol string) (*domain.Holding, error)
}

// OrderRepository is the read side of orders. Writes go through Ledger.
type OrderRepository interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	// ListByAccount returns orders newest first. If status is non-nil only
	// matching orders are included. Pagination is 1-based; the int result
	// is the total count before pagination.
	ListByAccount(ctx context.Context, accountID string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int, error)
	// ListPending returns every pending order, oldest first.
	ListPending(ctx context.Context) ([]*domain.Order, error)
}

// AlertRepository persists price alerts.
type AlertRepository interface {
	Create(ctx context.Context, a *domain.Alert) error
	Get(ctx context.Context, id string) (*domain.Alert, error)
	// ListByAccount returns alerts newest first. With activeOnly, only
	// pending (active and untriggered) alerts are returned.
	ListByAccount(ctx context.Context, accountID string, activeOnly bool) ([]*domain.Alert, error)
	// ListPending returns the account's active, untriggered alerts.
	ListPending(ctx context.Context, accountID string) ([]*domain.Alert, error)
	SetActive(ctx context.Context, id string, active bool) (*domain.Alert, error)
	// MarkTriggered transitions each listed alert that is still active and
	// untriggered, in one atomic batch, and returns the ids that actually
	// transitioned. Alerts already triggered by someone else are skipped.
	MarkTriggered(ctx context.Context, ids []string, at time.Time) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// WatchlistRepository persists watchlist items.
type WatchlistRepository interface {
	// Add returns domain.ErrAlreadyWatched for a duplicate (account, symbol).
	Add(ctx context.Context, item *domain.WatchlistItem) error
	// List returns the account's items newest first.
	List(ctx context.Context, accountID string) ([]*domain.WatchlistItem, error)
	Remove(ctx context.Context, accountID, symbol string) error
}

// WebhookRepository persists webhook subscriptions keyed by (account, event).
type WebhookRepository interface {
	// Upsert creates or updates the subscription for w's (account, event)
	// pair. It returns the stored subscription and whether it was created.
	Upsert(ctx context.Context, w *domain.Webhook) (*domain.Webhook, bool, error)
	Get(ctx context.Context, id string) (*domain.Webhook, error)
	// ListByAccount returns subscriptions ordered by event.
	ListByAccount(ctx context.Context, accountID string) ([]*domain.Webhook, error)
	// GetByAccountEvent returns nil, nil when no subscription exists.
	GetByAccountEvent(ctx context.Context, accountID, event string) (*domain.Webhook, error)
	Delete(ctx context.Context, id string) error
}

// Ledger runs read-modify-write units of work against a single account's
// balance, holdings and orders. Units for the same account are serialized.
type Ledger interface {
	// WithAccount runs fn with exclusive access to the account. Writes made
	// through tx become visible only if fn returns nil. It returns
	// domain.ErrAccountNotFound if the account does not exist.
	WithAccount(ctx context.Context, accountID string, fn func(tx LedgerTx) error) error
}

// LedgerTx is the view of one account inside a Ledger unit of work.
type LedgerTx interface {
	// Account returns the account as of the start of the unit, including
	// changes saved so far.
	Account() *domain.Account
	SaveAccount(ctx context.Context, a *domain.Account) error
	Holding(ctx context.Context, symbol string) (*domain.Holding, error)
	// Holdings returns every holding of the account ordered by symbol,
	// including changes saved so far.
	Holdings(ctx context.Context) ([]*domain.Holding, error)
	// SaveHolding inserts or updates h, deleting it when its quantity is zero.
	SaveHolding(ctx context.Context, h *domain.Holding) error
	// Order returns an order owned by the account.
	Order(ctx context.Context, id string) (*domain.Order, error)
	SaveOrder(ctx context.Context, o *domain.Order) error
}

// Repositories bundles every port a backend provides.
type Repositories struct {
	Accounts    AccountRepository
	Instruments InstrumentRepository
	Holdings    HoldingRepository
	Orders      OrderRepository
	Alerts      AlertRepository
	Watchlist   WatchlistRepository
	Webhooks    WebhookRepository
	Ledger      Ledger
}

// NewMemory wires the in-memory stores into a Repositories bundle.
func NewMemory() *Repositories {
	accounts := NewAccountStore()
	holdings := NewHoldingStore()
	orders := NewOrderStore()

	return &Repositories{
		Accounts:    accounts,
		Instruments: NewInstrumentStore(),
		Holdings:    holdings,
		Orders:      orders,
		Alerts:      NewAlertStore(),
		Watchlist:   NewWatchlistStore(),
		Webhooks:    NewWebhookStore(),
		Ledger:      NewMemoryLedger(accounts, holdings, orders),
	}
}
