package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/efreitasn/minibroker/internal/domain"
)

func TestSeed_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	list, err := env.market.ListInstruments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != len(DefaultInstruments) {
		t.Fatalf("got %d instruments, want %d", len(list), len(DefaultInstruments))
	}

	env.setPrice(t, "AAPL", 20000)
	added, err := env.market.Seed(ctx, DefaultInstruments)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if added != 0 {
		t.Errorf("reseed added %d instruments, want 0", added)
	}
	inst, _ := env.market.GetInstrument(ctx, "AAPL")
	if inst.CurrentPrice != 20000 {
		t.Errorf("reseed overwrote price: %d", inst.CurrentPrice)
	}
}

func TestSeed_RejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.market.Seed(ctx, []InstrumentSeed{{Symbol: "BAD1", Price: 1}}); err == nil {
		t.Error("expected error for invalid symbol")
	}
	if _, err := env.market.Seed(ctx, []InstrumentSeed{{Symbol: "NEW", Price: 0}}); err == nil {
		t.Error("expected error for zero price")
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	data := `[{"symbol":"ACME","name":"Acme Corp","price":12.34,"sector":"Industrials","market_cap":1000000}]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	seeds, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(seeds) != 1 || seeds[0].Symbol != "ACME" || seeds[0].Price != 12.34 {
		t.Fatalf("unexpected seeds: %+v", seeds)
	}

	env := newTestEnv(t)
	if added, err := env.market.Seed(context.Background(), seeds); err != nil || added != 1 {
		t.Fatalf("seed from file: added=%d err=%v", added, err)
	}
	inst, err := env.market.GetInstrument(context.Background(), "acme")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if inst.CurrentPrice != 1234 || inst.PreviousClose != 1234 {
		t.Errorf("got price %d / close %d, want 1234", inst.CurrentPrice, inst.PreviousClose)
	}

	if _, err := LoadSeedFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSimulatePrice_StaysWithinTwoPercent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		before, _ := env.market.GetInstrument(ctx, "NVDA")
		after, err := env.market.SimulatePrice(ctx, "nvda")
		if err != nil {
			t.Fatalf("simulate: %v", err)
		}

		// Allow one cent of rounding on either side.
		limit := before.CurrentPrice*2/100 + 1
		diff := after.CurrentPrice - before.CurrentPrice
		if diff > limit || diff < -limit {
			t.Fatalf("step %d moved %d cents from %d, limit %d", i, diff, before.CurrentPrice, limit)
		}

		added := after.Volume - before.Volume
		if added < 1000 || added > 100_000 {
			t.Fatalf("volume grew by %d", added)
		}
		if after.DayHigh < after.CurrentPrice || after.DayLow > after.CurrentPrice {
			t.Fatalf("price %d outside day range [%d, %d]", after.CurrentPrice, after.DayLow, after.DayHigh)
		}
		if after.PreviousClose != 87530 {
			t.Fatalf("previous close changed to %d", after.PreviousClose)
		}
	}
}

func TestSimulatePrice_UnknownSymbol(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.market.SimulatePrice(context.Background(), "ZZZZ"); !errors.Is(err, domain.ErrInstrumentNotFound) {
		t.Errorf("got %v, want ErrInstrumentNotFound", err)
	}
}

func TestSimulateAll_TouchesEveryInstrument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	before, _ := env.market.ListInstruments(ctx)
	if err := env.market.SimulateAll(ctx); err != nil {
		t.Fatalf("simulate all: %v", err)
	}
	after, _ := env.market.ListInstruments(ctx)

	for i := range after {
		if after[i].Volume <= before[i].Volume {
			t.Errorf("%s volume did not grow", after[i].Symbol)
		}
	}
}

func TestSimulatePrice_SettlesPendingOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.createAccount(t, 10000.00)

	// One cent under the current price: the first downward step fills it.
	order, err := env.orders.PlaceOrder(ctx, acct.AccountID, limitOrder(domain.OrderSideBuy, "AAPL", 1, 178.49))
	if err != nil || order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending order, got %+v, %v", order, err)
	}

	for i := 0; i < 500; i++ {
		inst, err := env.market.SimulatePrice(ctx, "AAPL")
		if err != nil {
			t.Fatalf("simulate: %v", err)
		}
		o, _ := env.repos.Orders.Get(ctx, order.OrderID)
		if inst.CurrentPrice <= 17849 {
			if o.Status != domain.OrderStatusFilled {
				t.Fatalf("price %d crossed the limit but order is %s", inst.CurrentPrice, o.Status)
			}
			if o.FilledPrice != inst.CurrentPrice {
				t.Fatalf("filled at %d, want %d", o.FilledPrice, inst.CurrentPrice)
			}
			return
		}
		if o.Status != domain.OrderStatusPending {
			t.Fatalf("order settled at %d above its limit", inst.CurrentPrice)
		}
	}
	t.Skip("random walk never crossed the limit")
}

func TestSearchAndQuote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	results, err := env.market.Search(ctx, "apple")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Symbol != "AAPL" {
		t.Fatalf("unexpected results: %+v", results)
	}

	results, _ = env.market.Search(ctx, "am")
	found := map[string]bool{}
	for _, r := range results {
		found[r.Symbol] = true
	}
	if !found["AMZN"] || !found["AMD"] {
		t.Errorf("expected AMZN and AMD in %v", found)
	}

	var ve *domain.ValidationError
	if _, err := env.market.Search(ctx, "  "); !errors.As(err, &ve) {
		t.Errorf("got %v, want ValidationError", err)
	}

	env.setPrice(t, "AAPL", 18207)
	q, err := env.market.Quote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Price != 18207 || q.Change != 357 || q.ChangePercent != 2 {
		t.Errorf("unexpected quote: %+v", q)
	}
}

func TestBook_AggregatesPendingOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := env.createAccount(t, 10000.00)

	if _, err := env.orders.PlaceOrder(ctx, acct.AccountID, marketBuy("AAPL", 5)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	for _, req := range []PlaceOrderRequest{
		limitOrder(domain.OrderSideBuy, "AAPL", 2, 170.00),
		limitOrder(domain.OrderSideBuy, "AAPL", 3, 170.00),
		limitOrder(domain.OrderSideBuy, "AAPL", 1, 160.00),
		limitOrder(domain.OrderSideSell, "AAPL", 4, 190.00),
	} {
		if _, err := env.orders.PlaceOrder(ctx, acct.AccountID, req); err != nil {
			t.Fatalf("place: %v", err)
		}
	}

	snap, err := env.market.Book(ctx, "aapl", 1)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if len(snap.Buys) != 1 || snap.Buys[0].Price != 17000 || snap.Buys[0].TotalQuantity != 5 || snap.Buys[0].OrderCount != 2 {
		t.Errorf("unexpected buys: %+v", snap.Buys)
	}
	if len(snap.Sells) != 1 || snap.Sells[0].Price != 19000 {
		t.Errorf("unexpected sells: %+v", snap.Sells)
	}

	empty, err := env.market.Book(ctx, "MSFT", 10)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if empty.Buys == nil || len(empty.Buys) != 0 || len(empty.Sells) != 0 {
		t.Errorf("expected empty non-nil levels, got %+v", empty)
	}

	if _, err := env.market.Book(ctx, "ZZZZ", 10); !errors.Is(err, domain.ErrInstrumentNotFound) {
		t.Errorf("got %v, want ErrInstrumentNotFound", err)
	}
}
