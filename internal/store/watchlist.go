package store

import (
	"context"
	"sync"

	"github.com/efreitasn/minibroker/internal/domain"
)

// Compile-time check that WatchlistStore implements WatchlistRepository
var _ WatchlistRepository = (*WatchlistStore)(nil)

// WatchlistStore is a thread-safe in-memory store for watchlist items,
// one ordered list per account.
type WatchlistStore struct {
	mu    sync.RWMutex
	items map[string][]*domain.WatchlistItem // account_id → items (insertion order)
}

// NewWatchlistStore creates an empty WatchlistStore.
func NewWatchlistStore() *WatchlistStore {
	return &WatchlistStore{
		items: make(map[string][]*domain.WatchlistItem),
	}
}

// Add appends an item. It returns domain.ErrAlreadyWatched if the symbol
// is already on the account's watchlist.
func (s *WatchlistStore) Add(_ context.Context, item *domain.WatchlistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items[item.AccountID] {
		if existing.Symbol == item.Symbol {
			return domain.ErrAlreadyWatched
		}
	}
	c := *item
	s.items[item.AccountID] = append(s.items[item.AccountID], &c)
	return nil
}

// List returns the account's items newest first.
func (s *WatchlistStore) List(_ context.Context, accountID string) ([]*domain.WatchlistItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.items[accountID]
	result := make([]*domain.WatchlistItem, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		c := *items[i]
		result = append(result, &c)
	}
	return result, nil
}

// Remove deletes a symbol from the account's watchlist. It returns
// domain.ErrWatchlistItemNotFound if it is not there.
func (s *WatchlistStore) Remove(_ context.Context, accountID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items[accountID]
	for i, item := range items {
		if item.Symbol == symbol {
			s.items[accountID] = append(items[:i:i], items[i+1:]...)
			if len(s.items[accountID]) == 0 {
				delete(s.items, accountID)
			}
			return nil
		}
	}
	return domain.ErrWatchlistItemNotFound
}
