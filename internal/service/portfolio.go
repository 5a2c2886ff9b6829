package service

import (
	"context"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/store"
	"github.com/shopspring/decimal"
)

// HoldingView is a holding valued at the instrument's current price. All
// amounts are cents rounded half away from zero.
type HoldingView struct {
	Symbol          string
	Quantity        int64
	AverageCost     decimal.Decimal // cents per share, unrounded
	CurrentPrice    int64
	CurrentValue    int64
	CostBasis       int64
	GainLoss        int64
	GainLossPercent float64
}

// PortfolioSummary is an account's cash plus its valued holdings.
type PortfolioSummary struct {
	AccountID     string
	CashBalance   int64
	HoldingsValue int64
	TotalValue    int64
	TotalCost     int64
	TotalGainLoss int64
	GainLossPct   float64
	Holdings      []*HoldingView
}

// PortfolioService values holdings against current prices.
type PortfolioService struct {
	ledger      store.Ledger
	accounts    store.AccountRepository
	holdings    store.HoldingRepository
	instruments store.InstrumentRepository
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(repos *store.Repositories) *PortfolioService {
	return &PortfolioService{
		ledger:      repos.Ledger,
		accounts:    repos.Accounts,
		holdings:    repos.Holdings,
		instruments: repos.Instruments,
	}
}

// Summary returns the account's full portfolio. Cash and holdings are read
// in one ledger unit, so a concurrent settlement is seen entirely or not
// at all.
func (s *PortfolioService) Summary(ctx context.Context, accountID string) (*PortfolioSummary, error) {
	var (
		acct     *domain.Account
		holdings []*domain.Holding
	)
	err := s.ledger.WithAccount(ctx, accountID, func(tx store.LedgerTx) error {
		acct = tx.Account()
		var err error
		holdings, err = tx.Holdings(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	views, err := s.value(ctx, holdings)
	if err != nil {
		return nil, err
	}

	value, cost := decimal.Zero, decimal.Zero
	for _, v := range views {
		value = value.Add(decimal.NewFromInt(v.CurrentValue))
		cost = cost.Add(decimal.NewFromInt(v.CostBasis))
	}
	gain := value.Sub(cost)

	holdingsValue := domain.RoundCents(value)
	return &PortfolioSummary{
		AccountID:     acct.AccountID,
		CashBalance:   acct.CashBalance,
		HoldingsValue: holdingsValue,
		TotalValue:    acct.CashBalance + holdingsValue,
		TotalCost:     domain.RoundCents(cost),
		TotalGainLoss: domain.RoundCents(gain),
		GainLossPct:   domain.Percent(gain, cost),
		Holdings:      views,
	}, nil
}

// Holdings returns every holding of the account, ordered by symbol.
func (s *PortfolioService) Holdings(ctx context.Context, accountID string) ([]*HoldingView, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	holdings, err := s.holdings.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.value(ctx, holdings)
}

// value prices holdings with one batched price read.
func (s *PortfolioService) value(ctx context.Context, holdings []*domain.Holding) ([]*HoldingView, error) {
	views := make([]*HoldingView, 0, len(holdings))
	if len(holdings) == 0 {
		return views, nil
	}

	symbols := make([]string, len(holdings))
	for i, h := range holdings {
		symbols[i] = h.Symbol
	}
	prices, err := s.instruments.Prices(ctx, symbols)
	if err != nil {
		return nil, err
	}
	for _, h := range holdings {
		views = append(views, valueHolding(h, prices[h.Symbol]))
	}
	return views, nil
}

// Holding returns one holding of the account.
func (s *PortfolioService) Holding(ctx context.Context, accountID, symbol string) (*HoldingView, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	h, err := s.holdings.Get(ctx, accountID, domain.NormalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	prices, err := s.instruments.Prices(ctx, []string{h.Symbol})
	if err != nil {
		return nil, err
	}
	return valueHolding(h, prices[h.Symbol]), nil
}

// valueHolding prices h at price. An instrument without a price falls back
// to the average cost so the position shows no gain.
func valueHolding(h *domain.Holding, price int64) *HoldingView {
	basis := h.CostBasis()
	value := basis
	if price > 0 {
		value = decimal.NewFromInt(h.Quantity).Mul(decimal.NewFromInt(price))
	}
	gain := value.Sub(basis)
	return &HoldingView{
		Symbol:          h.Symbol,
		Quantity:        h.Quantity,
		AverageCost:     h.AverageCost,
		CurrentPrice:    price,
		CurrentValue:    domain.RoundCents(value),
		CostBasis:       domain.RoundCents(basis),
		GainLoss:        domain.RoundCents(gain),
		GainLossPercent: domain.Percent(gain, basis),
	}
}
