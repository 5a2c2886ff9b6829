package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/engine"
	"github.com/efreitasn/minibroker/internal/store"
	"github.com/efreitasn/minibroker/internal/telemetry"
	"github.com/google/uuid"
)

// Compile-time check that OrderService settles pending limit orders for the matcher
var _ engine.Settler = (*OrderService)(nil)

// PlaceOrderRequest represents the input for order placement.
type PlaceOrderRequest struct {
	Symbol     string
	Side       domain.OrderSide
	Type       domain.OrderType
	Quantity   int64
	LimitPrice *float64 // dollars, limit orders only
}

// OrderService validates, prices and settles orders.
type OrderService struct {
	ledger      store.Ledger
	accounts    store.AccountRepository
	orders      store.OrderRepository
	instruments store.InstrumentRepository
	matcher     *engine.Matcher
	webhookSvc  *WebhookService
	metrics     *telemetry.Metrics
	logger      *slog.Logger
}

// NewOrderService creates a new OrderService. webhookSvc and metrics may be nil.
func NewOrderService(
	repos *store.Repositories,
	matcher *engine.Matcher,
	webhookSvc *WebhookService,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		ledger:      repos.Ledger,
		accounts:    repos.Accounts,
		orders:      repos.Orders,
		instruments: repos.Instruments,
		matcher:     matcher,
		webhookSvc:  webhookSvc,
		metrics:     metrics,
		logger:      logger.With("component", "orders"),
	}
}

// PlaceOrder validates the request and executes it against the current
// price. A reachable order is settled immediately; an unreachable limit
// order is stored as pending and filled later by the matcher.
//
// When the account cannot cover the order it is stored as rejected and
// returned together with ErrInsufficientFunds or ErrInsufficientShares.
// A fill whose amounts do not fit in int64 cents is rejected the same way
// with ErrAmountOutOfRange.
func (s *OrderService) PlaceOrder(ctx context.Context, accountID string, req PlaceOrderRequest) (*domain.Order, error) {
	req.Symbol = domain.NormalizeSymbol(req.Symbol)
	if !domain.ValidSymbol(req.Symbol) {
		return nil, &domain.ValidationError{
			Message: "symbol must match ^[A-Z]{1,10}$",
		}
	}
	if req.Side != domain.OrderSideBuy && req.Side != domain.OrderSideSell {
		return nil, &domain.ValidationError{
			Message: "side must be 'buy' or 'sell'",
		}
	}
	if req.Type != domain.OrderTypeMarket && req.Type != domain.OrderTypeLimit {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown order type: %s. Must be one of: limit, market", req.Type),
		}
	}
	if req.Quantity <= 0 {
		return nil, &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}

	var limitCents int64
	if req.Type == domain.OrderTypeLimit {
		if req.LimitPrice == nil {
			return nil, &domain.ValidationError{
				Message: "limit_price is required for limit orders",
			}
		}
		if *req.LimitPrice <= 0 {
			return nil, &domain.ValidationError{
				Message: "limit_price must be greater than 0",
			}
		}
		cents, err := parseCents("limit_price", *req.LimitPrice)
		if err != nil {
			return nil, err
		}
		limitCents = cents
	} else if req.LimitPrice != nil {
		return nil, &domain.ValidationError{
			Message: "market orders must not include limit_price",
		}
	}

	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}

	// The price is read before the ledger unit starts; the unit must only
	// touch its own transaction.
	inst, err := s.instruments.Get(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		OrderID:    uuid.New().String(),
		AccountID:  accountID,
		Symbol:     req.Symbol,
		Type:       req.Type,
		Side:       req.Side,
		Quantity:   req.Quantity,
		LimitPrice: limitCents,
		Status:     domain.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if !order.Reachable(inst.CurrentPrice) {
		err := s.ledger.WithAccount(ctx, accountID, func(tx store.LedgerTx) error {
			return tx.SaveOrder(ctx, order)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store pending order: %w", err)
		}
		s.matcher.Add(ctx, order)
		s.metrics.RecordOrder(ctx, string(order.Status), string(order.Side))
		s.logger.Info("limit order pending",
			"order_id", order.OrderID,
			"account_id", accountID,
			"symbol", order.Symbol,
			"limit_price", order.LimitPrice,
			"current_price", inst.CurrentPrice,
		)
		return s.recheckPending(ctx, order), nil
	}

	var rejection error
	err = s.ledger.WithAccount(ctx, accountID, func(tx store.LedgerTx) error {
		var err error
		rejection, err = s.settle(ctx, tx, order, inst.CurrentPrice, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterSettle(ctx, order)
	if rejection != nil {
		return order, rejection
	}
	return order, nil
}

// recheckPending settles o right away if the price moved to cross it
// between the first price read and o reaching the book; the tick that
// moved it ran before o was there. It returns the order's current state.
func (s *OrderService) recheckPending(ctx context.Context, o *domain.Order) *domain.Order {
	inst, err := s.instruments.Get(ctx, o.Symbol)
	if err != nil || !o.Reachable(inst.CurrentPrice) {
		return o
	}
	s.matcher.OnPrice(ctx, o.Symbol, inst.CurrentPrice)
	cur, err := s.orders.Get(ctx, o.OrderID)
	if err != nil {
		return o
	}
	return cur
}

// settle executes o at price inside a ledger unit. An insufficient
// funds or shares outcome, or an amount out of range, is not a failure of
// the unit: the order is saved as rejected and the cause is returned as
// rejection.
func (s *OrderService) settle(ctx context.Context, tx store.LedgerTx, o *domain.Order, price int64, now time.Time) (rejection, err error) {
	err = s.execute(ctx, tx, o, price, now)
	if !isRejection(err) {
		return nil, err
	}
	if rerr := o.Reject(err.Error(), now); rerr != nil {
		return nil, rerr
	}
	if serr := tx.SaveOrder(ctx, o); serr != nil {
		return nil, fmt.Errorf("failed to store rejected order: %w", serr)
	}
	return err, nil
}

// execute checks and moves cash and shares for a fill of o at price. Every
// check happens before the first write.
func (s *OrderService) execute(ctx context.Context, tx store.LedgerTx, o *domain.Order, price int64, now time.Time) error {
	acct := tx.Account()
	amount, amountOK := domain.CheckedMul(price, o.Quantity)

	holding, err := tx.Holding(ctx, o.Symbol)
	if err != nil && !errors.Is(err, domain.ErrHoldingNotFound) {
		return fmt.Errorf("failed to load holding: %w", err)
	}

	switch o.Side {
	case domain.OrderSideBuy:
		// A cost beyond int64 cents is beyond any balance.
		if !amountOK || !acct.CanAfford(amount) {
			return domain.ErrInsufficientFunds
		}
		if holding == nil {
			holding = &domain.Holding{
				AccountID: acct.AccountID,
				Symbol:    o.Symbol,
				CreatedAt: now,
			}
		}
		if _, ok := domain.CheckedAdd(holding.Quantity, o.Quantity); !ok {
			return domain.ErrAmountOutOfRange
		}
		holding.ApplyBuy(o.Quantity, price)
		acct.CashBalance -= amount

	case domain.OrderSideSell:
		if holding == nil {
			return domain.ErrInsufficientShares
		}
		if err := holding.ApplySell(o.Quantity); err != nil {
			return err
		}
		balance, ok := domain.CheckedAdd(acct.CashBalance, amount)
		if !amountOK || !ok {
			return domain.ErrAmountOutOfRange
		}
		acct.CashBalance = balance
	}

	holding.UpdatedAt = now
	acct.UpdatedAt = now

	if err := o.Fill(price, now); err != nil {
		return err
	}
	if err := tx.SaveAccount(ctx, acct); err != nil {
		return err
	}
	if err := tx.SaveHolding(ctx, holding); err != nil {
		return fmt.Errorf("failed to store holding: %w", err)
	}
	if err := tx.SaveOrder(ctx, o); err != nil {
		return fmt.Errorf("failed to store order: %w", err)
	}
	return nil
}

func isRejection(err error) bool {
	return errors.Is(err, domain.ErrInsufficientFunds) ||
		errors.Is(err, domain.ErrInsufficientShares) ||
		errors.Is(err, domain.ErrAmountOutOfRange)
}

// afterSettle emits the webhook, metric and log line for a settled order.
func (s *OrderService) afterSettle(ctx context.Context, o *domain.Order) {
	s.metrics.RecordOrder(ctx, string(o.Status), string(o.Side))

	switch o.Status {
	case domain.OrderStatusFilled:
		s.logger.Info("order filled",
			"order_id", o.OrderID,
			"account_id", o.AccountID,
			"symbol", o.Symbol,
			"side", o.Side,
			"quantity", o.Quantity,
			"price", o.FilledPrice,
		)
		s.dispatch(ctx, domain.EventOrderFilled, o)
	case domain.OrderStatusRejected:
		s.logger.Info("order rejected",
			"order_id", o.OrderID,
			"account_id", o.AccountID,
			"symbol", o.Symbol,
			"reason", o.RejectReason,
		)
		s.dispatch(ctx, domain.EventOrderRejected, o)
	}
}

func (s *OrderService) dispatch(ctx context.Context, event string, o *domain.Order) {
	if s.webhookSvc == nil {
		return
	}
	s.webhookSvc.DispatchOrderEvent(ctx, event, o)
}

// SettlePending fills or rejects a pending limit order at price. It is
// called by the matcher when price crosses the order's limit. Orders that
// are no longer pending are left alone.
func (s *OrderService) SettlePending(ctx context.Context, orderID string, price int64) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.IsTerminal() {
		return nil
	}

	now := time.Now().UTC()
	settled := false
	err = s.ledger.WithAccount(ctx, o.AccountID, func(tx store.LedgerTx) error {
		// Re-read under the account lock; a cancel may have won the race.
		cur, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if cur.IsTerminal() {
			return nil
		}
		o = cur
		settled = true
		_, err = s.settle(ctx, tx, o, price, now)
		return err
	})
	if err != nil {
		return err
	}

	if settled {
		s.afterSettle(ctx, o)
	}
	return nil
}

// GetOrder retrieves an order owned by the account.
func (s *OrderService) GetOrder(ctx context.Context, accountID, orderID string) (*domain.Order, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.AccountID != accountID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// CancelOrder cancels a pending order. Orders in any other state return
// ErrInvalidStateTransition.
func (s *OrderService) CancelOrder(ctx context.Context, accountID, orderID string) (*domain.Order, error) {
	var order *domain.Order
	err := s.ledger.WithAccount(ctx, accountID, func(tx store.LedgerTx) error {
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.Cancel(time.Now().UTC()); err != nil {
			return err
		}
		order = o
		return tx.SaveOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.matcher.Remove(ctx, order.Symbol, order.OrderID)
	s.metrics.RecordOrder(ctx, string(order.Status), string(order.Side))
	s.dispatch(ctx, domain.EventOrderCancelled, order)

	return order, nil
}

// ListOrders returns a paginated list of orders for an account with optional
// status filtering.
func (s *OrderService) ListOrders(ctx context.Context, accountID string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, 0, err
	}

	if status != nil {
		if !domain.ValidOrderStatuses[*status] {
			return nil, 0, &domain.ValidationError{
				Message: fmt.Sprintf("Invalid status filter: '%s'. Must be one of: pending, filled, rejected, cancelled", *status),
			}
		}
	}

	if page < 1 {
		return nil, 0, &domain.ValidationError{
			Message: "page must be >= 1",
		}
	}
	if limit < 1 || limit > 100 {
		return nil, 0, &domain.ValidationError{
			Message: "limit must be between 1 and 100",
		}
	}

	return s.orders.ListByAccount(ctx, accountID, status, page, limit)
}
