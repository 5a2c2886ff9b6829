package service

import (
	"context"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
	"github.com/efreitasn/minibroker/internal/store"
)

// WatchlistEntry is a watched symbol with its latest quote. Quote is nil
// when the instrument no longer exists.
type WatchlistEntry struct {
	Symbol  string
	AddedAt time.Time
	Quote   *Quote
}

// WatchlistService manages the symbols an account follows.
type WatchlistService struct {
	watchlist   store.WatchlistRepository
	accounts    store.AccountRepository
	instruments store.InstrumentRepository
}

// NewWatchlistService creates a new WatchlistService.
func NewWatchlistService(repos *store.Repositories) *WatchlistService {
	return &WatchlistService{
		watchlist:   repos.Watchlist,
		accounts:    repos.Accounts,
		instruments: repos.Instruments,
	}
}

// List returns the account's watchlist, newest first.
func (s *WatchlistService) List(ctx context.Context, accountID string) ([]*WatchlistEntry, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	items, err := s.watchlist.List(ctx, accountID)
	if err != nil {
		return nil, err
	}
	entries := make([]*WatchlistEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, s.entry(ctx, item))
	}
	return entries, nil
}

// Add starts watching symbol. It returns ErrInstrumentNotFound for an
// unknown symbol and ErrAlreadyWatched for a duplicate.
func (s *WatchlistService) Add(ctx context.Context, accountID, symbol string) (*WatchlistEntry, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if !domain.ValidSymbol(symbol) {
		return nil, &domain.ValidationError{Message: "symbol must match ^[A-Z]{1,10}$"}
	}
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	if _, err := s.instruments.Get(ctx, symbol); err != nil {
		return nil, err
	}

	item := &domain.WatchlistItem{
		AccountID: accountID,
		Symbol:    symbol,
		AddedAt:   time.Now().UTC(),
	}
	if err := s.watchlist.Add(ctx, item); err != nil {
		return nil, err
	}
	return s.entry(ctx, item), nil
}

// Remove stops watching symbol.
func (s *WatchlistService) Remove(ctx context.Context, accountID, symbol string) error {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return err
	}
	return s.watchlist.Remove(ctx, accountID, domain.NormalizeSymbol(symbol))
}

func (s *WatchlistService) entry(ctx context.Context, item *domain.WatchlistItem) *WatchlistEntry {
	e := &WatchlistEntry{Symbol: item.Symbol, AddedAt: item.AddedAt}
	if inst, err := s.instruments.Get(ctx, item.Symbol); err == nil {
		e.Quote = QuoteFor(inst)
	}
	return e
}
