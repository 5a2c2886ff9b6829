package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/engine"
	"github.com/efreitasn/minibroker/internal/store"
	"github.com/efreitasn/minibroker/internal/telemetry"
	"github.com/shopspring/decimal"
)

// Compile-time check that MarketService drives the price ticker
var _ engine.PriceSimulator = (*MarketService)(nil)

// InstrumentSeed describes an instrument loaded at startup.
type InstrumentSeed struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Sector    string  `json:"sector"`
	MarketCap int64   `json:"market_cap"`
}

// DefaultInstruments is the built-in market.
var DefaultInstruments = []InstrumentSeed{
	{"AAPL", "Apple Inc.", 178.50, "Technology", 2800000000000},
	{"GOOGL", "Alphabet Inc.", 141.25, "Technology", 1750000000000},
	{"MSFT", "Microsoft Corporation", 378.90, "Technology", 2810000000000},
	{"AMZN", "Amazon.com Inc.", 178.75, "Consumer Cyclical", 1850000000000},
	{"TSLA", "Tesla Inc.", 248.50, "Automotive", 790000000000},
	{"META", "Meta Platforms Inc.", 505.25, "Technology", 1300000000000},
	{"NVDA", "NVIDIA Corporation", 875.30, "Technology", 2160000000000},
	{"JPM", "JPMorgan Chase & Co.", 198.45, "Financial Services", 570000000000},
	{"V", "Visa Inc.", 279.80, "Financial Services", 575000000000},
	{"JNJ", "Johnson & Johnson", 156.30, "Healthcare", 375000000000},
	{"WMT", "Walmart Inc.", 165.20, "Consumer Defensive", 445000000000},
	{"PG", "Procter & Gamble Co.", 158.75, "Consumer Defensive", 375000000000},
	{"DIS", "The Walt Disney Company", 112.40, "Communication Services", 205000000000},
	{"NFLX", "Netflix Inc.", 628.50, "Communication Services", 275000000000},
	{"AMD", "Advanced Micro Devices", 178.90, "Technology", 290000000000},
}

// LoadSeedFile reads a JSON array of instrument seeds.
func LoadSeedFile(path string) ([]InstrumentSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seeds []InstrumentSeed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return seeds, nil
}

// Quote is an instrument's price with its move since the previous close.
type Quote struct {
	Symbol        string
	Price         int64
	Change        int64
	ChangePercent float64
	DayHigh       int64
	DayLow        int64
	Volume        int64
	UpdatedAt     time.Time
}

// QuoteFor derives a Quote from an instrument.
func QuoteFor(i *domain.Instrument) *Quote {
	change, pct := i.Change()
	return &Quote{
		Symbol:        i.Symbol,
		Price:         i.CurrentPrice,
		Change:        change,
		ChangePercent: pct,
		DayHigh:       i.DayHigh,
		DayLow:        i.DayLow,
		Volume:        i.Volume,
		UpdatedAt:     i.UpdatedAt,
	}
}

// BookSnapshot is the aggregated pending limit book of one instrument.
type BookSnapshot struct {
	Symbol     string
	Buys       []engine.PriceLevel
	Sells      []engine.PriceLevel
	SnapshotAt time.Time
}

// MarketService serves instrument data and simulates price movement.
// Every price change is forwarded to the matcher.
type MarketService struct {
	instruments store.InstrumentRepository
	matcher     *engine.Matcher
	metrics     *telemetry.Metrics
	logger      *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMarketService creates a new MarketService.
func NewMarketService(
	instruments store.InstrumentRepository,
	matcher *engine.Matcher,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *MarketService {
	if logger == nil {
		logger = slog.Default()
	}
	seed := uint64(time.Now().UnixNano())
	return &MarketService{
		instruments: instruments,
		matcher:     matcher,
		metrics:     metrics,
		logger:      logger.With("component", "market"),
		rng:         rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// Seed inserts every seed whose symbol is not already known and returns
// how many were added. Existing instruments keep their prices.
func (s *MarketService) Seed(ctx context.Context, seeds []InstrumentSeed) (int, error) {
	added := 0
	now := time.Now().UTC()
	for _, sd := range seeds {
		symbol := domain.NormalizeSymbol(sd.Symbol)
		if !domain.ValidSymbol(symbol) {
			return added, fmt.Errorf("invalid seed symbol %q", sd.Symbol)
		}
		price, err := domain.DollarsToCents(sd.Price)
		if err != nil || price <= 0 {
			return added, fmt.Errorf("invalid seed price for %s: %v", symbol, sd.Price)
		}

		_, err = s.instruments.Get(ctx, symbol)
		if err == nil {
			continue
		}
		if !domain.IsNotFound(err) {
			return added, err
		}

		inst := &domain.Instrument{
			Symbol:        symbol,
			Name:          sd.Name,
			Sector:        sd.Sector,
			MarketCap:     sd.MarketCap,
			CurrentPrice:  price,
			PreviousClose: price,
			DayHigh:       price,
			DayLow:        price,
			Volume:        s.randInt(1_000_000, 50_000_000),
			UpdatedAt:     now,
		}
		if err := s.instruments.Upsert(ctx, inst); err != nil {
			return added, fmt.Errorf("failed to seed %s: %w", symbol, err)
		}
		added++
	}
	if added > 0 {
		s.logger.Info("seeded instruments", "count", added)
	}
	return added, nil
}

// ListInstruments returns every instrument ordered by symbol.
func (s *MarketService) ListInstruments(ctx context.Context) ([]*domain.Instrument, error) {
	return s.instruments.List(ctx)
}

// GetInstrument returns one instrument.
func (s *MarketService) GetInstrument(ctx context.Context, symbol string) (*domain.Instrument, error) {
	return s.instruments.Get(ctx, domain.NormalizeSymbol(symbol))
}

// Search matches q against symbols and names.
func (s *MarketService) Search(ctx context.Context, q string) ([]*domain.Instrument, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, &domain.ValidationError{Message: "q is required"}
	}
	return s.instruments.Search(ctx, q)
}

// Quote returns the instrument's current price and change.
func (s *MarketService) Quote(ctx context.Context, symbol string) (*Quote, error) {
	inst, err := s.GetInstrument(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return QuoteFor(inst), nil
}

// Book returns up to depth aggregated levels per side of the instrument's
// pending limit orders.
func (s *MarketService) Book(ctx context.Context, symbol string, depth int) (*BookSnapshot, error) {
	inst, err := s.GetInstrument(ctx, symbol)
	if err != nil {
		return nil, err
	}
	snap := &BookSnapshot{
		Symbol:     inst.Symbol,
		Buys:       []engine.PriceLevel{},
		Sells:      []engine.PriceLevel{},
		SnapshotAt: time.Now().UTC(),
	}
	if book := s.matcher.Books().Get(inst.Symbol); book != nil {
		if buys := book.TopBuys(depth); buys != nil {
			snap.Buys = buys
		}
		if sells := book.TopSells(depth); sells != nil {
			snap.Sells = sells
		}
	}
	return snap, nil
}

// SimulatePrice moves one instrument's price by a random step of at most 2%.
func (s *MarketService) SimulatePrice(ctx context.Context, symbol string) (*domain.Instrument, error) {
	symbol = domain.NormalizeSymbol(symbol)
	now := time.Now().UTC()

	inst, err := s.instruments.Update(ctx, symbol, func(i *domain.Instrument) error {
		i.ApplyPrice(s.nextPrice(i.CurrentPrice), s.randInt(1000, 100_000), now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPriceTick(ctx, symbol)
	if filled := s.matcher.OnPrice(ctx, symbol, inst.CurrentPrice); filled > 0 {
		s.logger.Info("pending limit orders settled", "symbol", symbol, "price", inst.CurrentPrice, "count", filled)
	}
	return inst, nil
}

// SimulateAll moves every instrument's price one step.
func (s *MarketService) SimulateAll(ctx context.Context) error {
	list, err := s.instruments.List(ctx)
	if err != nil {
		return err
	}
	for _, inst := range list {
		if _, err := s.SimulatePrice(ctx, inst.Symbol); err != nil {
			return fmt.Errorf("failed to simulate %s: %w", inst.Symbol, err)
		}
	}
	return nil
}

// nextPrice applies a uniform change in [-2%, +2%] and rounds to the cent.
// Prices never drop below one cent.
func (s *MarketService) nextPrice(cur int64) int64 {
	s.mu.Lock()
	pct := s.rng.Float64()*0.04 - 0.02
	s.mu.Unlock()

	next := domain.RoundCents(decimal.NewFromInt(cur).Mul(decimal.NewFromFloat(1 + pct)))
	if next < 1 {
		next = 1
	}
	return next
}

// randInt returns a value in [lo, hi].
func (s *MarketService) randInt(lo, hi int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.Int64N(hi-lo+1)
}
