package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/engine"
	"github.com/efreitasn/minibroker/internal/store"
)

// tHelper is satisfied by both *testing.T and *rapid.T.
type tHelper interface {
	Helper()
	Fatalf(format string, args ...any)
}

// testEnv wires every service over the in-memory stores with the built-in
// instruments seeded at their default prices.
type testEnv struct {
	repos     *store.Repositories
	matcher   *engine.Matcher
	market    *MarketService
	accounts  *AccountService
	orders    *OrderService
	alerts    *AlertService
	portfolio *PortfolioService
	watchlist *WatchlistService
	webhooks  *WebhookService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t tHelper) *testEnv {
	return newTestEnvWithAlerts(t, AlertServiceConfigDefaults())
}

func newTestEnvWithAlerts(t tHelper, alertCfg AlertServiceConfig) *testEnv {
	t.Helper()
	logger := discardLogger()
	repos := store.NewMemory()
	matcher := engine.NewMatcher(engine.NewBooks(), nil, nil, logger)
	webhooks := NewWebhookService(repos.Webhooks, repos.Accounts, 5*time.Second, nil, logger)
	orders := NewOrderService(repos, matcher, webhooks, nil, logger)
	matcher.SetSettler(orders)

	env := &testEnv{
		repos:     repos,
		matcher:   matcher,
		market:    NewMarketService(repos.Instruments, matcher, nil, logger),
		accounts:  NewAccountService(repos, 1_000_000, logger),
		orders:    orders,
		alerts:    NewAlertService(alertCfg, repos, nil, webhooks, nil, logger),
		portfolio: NewPortfolioService(repos),
		watchlist: NewWatchlistService(repos),
		webhooks:  webhooks,
	}
	if _, err := env.market.Seed(context.Background(), DefaultInstruments); err != nil {
		t.Fatalf("failed to seed instruments: %v", err)
	}
	return env
}

var accountSeq atomic.Int64

func (env *testEnv) createAccount(t tHelper, balance float64) *domain.Account {
	t.Helper()
	a, err := env.accounts.Create(context.Background(), CreateAccountRequest{
		Username:       fmt.Sprintf("user_%d", accountSeq.Add(1)),
		Email:          "user@example.com",
		InitialBalance: &balance,
	})
	if err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	return a
}

// setPrice moves an instrument to price and publishes it to the matcher,
// the way a simulated tick does.
func (env *testEnv) setPrice(t tHelper, symbol string, price int64) {
	t.Helper()
	ctx := context.Background()
	inst, err := env.repos.Instruments.Update(ctx, symbol, func(i *domain.Instrument) error {
		i.ApplyPrice(price, 0, time.Now().UTC())
		return nil
	})
	if err != nil {
		t.Fatalf("failed to set price: %v", err)
	}
	env.matcher.OnPrice(ctx, symbol, inst.CurrentPrice)
}

func (env *testEnv) balance(t tHelper, accountID string) int64 {
	t.Helper()
	a, err := env.repos.Accounts.Get(context.Background(), accountID)
	if err != nil {
		t.Fatalf("failed to load account: %v", err)
	}
	return a.CashBalance
}

func floatPtr(f float64) *float64 {
	return &f
}

func marketBuy(symbol string, qty int64) PlaceOrderRequest {
	return PlaceOrderRequest{Symbol: symbol, Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Quantity: qty}
}

func marketSell(symbol string, qty int64) PlaceOrderRequest {
	return PlaceOrderRequest{Symbol: symbol, Side: domain.OrderSideSell, Type: domain.OrderTypeMarket, Quantity: qty}
}

func limitOrder(side domain.OrderSide, symbol string, qty int64, price float64) PlaceOrderRequest {
	return PlaceOrderRequest{Symbol: symbol, Side: side, Type: domain.OrderTypeLimit, Quantity: qty, LimitPrice: floatPtr(price)}
}
