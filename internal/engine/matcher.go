package engine

import (
	"context"
	"log/slog"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/telemetry"
)

// Settler executes a pending limit order at a price. It returns nil once
// the order has reached a terminal state (filled, rejected, or already
// closed by someone else). A non-nil error means the attempt did not
// happen and the order should stay on the book.
type Settler interface {
	SettlePending(ctx context.Context, orderID string, price int64) error
}

// Matcher keeps pending limit orders indexed by symbol and settles them
// when a price change makes them reachable.
type Matcher struct {
	books   *Books
	settler Settler
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewMatcher creates a Matcher. The settler may be set later with
// SetSettler to break the construction cycle with the order service.
func NewMatcher(books *Books, settler Settler, metrics *telemetry.Metrics, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		books:   books,
		settler: settler,
		metrics: metrics,
		logger:  logger.With("component", "matcher"),
	}
}

// SetSettler sets the settler used by OnPrice.
func (m *Matcher) SetSettler(s Settler) {
	m.settler = s
}

// Books returns the underlying books.
func (m *Matcher) Books() *Books {
	return m.books
}

// Add rests a pending limit order on its symbol's book.
func (m *Matcher) Add(ctx context.Context, o *domain.Order) {
	if o.Type != domain.OrderTypeLimit || o.Status != domain.OrderStatusPending {
		return
	}
	m.books.GetOrCreate(o.Symbol).Insert(EntryFor(o))
	m.metrics.AddPendingLimitOrders(ctx, 1)
}

// Remove takes an order off the book, if present.
func (m *Matcher) Remove(ctx context.Context, symbol, orderID string) {
	book := m.books.Get(symbol)
	if book == nil {
		return
	}
	if book.Remove(orderID) {
		m.metrics.AddPendingLimitOrders(ctx, -1)
	}
}

// Restore rebuilds the books from persisted pending orders.
func (m *Matcher) Restore(ctx context.Context, orders []*domain.Order) {
	for _, o := range orders {
		m.Add(ctx, o)
	}
	if len(orders) > 0 {
		m.logger.Info("restored pending limit orders", "count", len(orders))
	}
}

// OnPrice settles every order on symbol's book that is reachable at
// price. Orders whose settlement fails are put back.
func (m *Matcher) OnPrice(ctx context.Context, symbol string, price int64) int {
	book := m.books.Get(symbol)
	if book == nil || m.settler == nil {
		return 0
	}

	crossed := book.TakeCrossing(price)
	settled := 0
	for _, entry := range crossed {
		if err := m.settler.SettlePending(ctx, entry.OrderID, price); err != nil {
			m.logger.Error("failed to settle pending order",
				"order_id", entry.OrderID,
				"symbol", symbol,
				"price", price,
				"error", err,
			)
			book.Insert(entry)
			continue
		}
		settled++
	}
	m.metrics.AddPendingLimitOrders(ctx, -int64(settled))
	return settled
}
