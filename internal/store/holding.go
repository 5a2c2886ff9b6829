package store

import (
	"context"
	"sort"
	"sync"

	"github.com/efreitasn/minibroker/internal/domain"
)

// Compile-time check that HoldingStore implements HoldingRepository
var _ HoldingRepository = (*HoldingStore)(nil)

// HoldingStore is a thread-safe in-memory store for holdings,
// indexed by account_id → symbol.
type HoldingStore struct {
	mu       sync.RWMutex
	holdings map[string]map[string]*domain.Holding
}

// NewHoldingStore creates an empty HoldingStore.
func NewHoldingStore() *HoldingStore {
	return &HoldingStore{
		holdings: make(map[string]map[string]*domain.Holding),
	}
}

// ListByAccount returns copies of the account's holdings ordered by symbol.
func (s *HoldingStore) ListByAccount(_ context.Context, accountID string) ([]*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySymbol := s.holdings[accountID]
	result := make([]*domain.Holding, 0, len(bySymbol))
	for _, h := range bySymbol {
		c := *h
		result = append(result, &c)
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Symbol < result[b].Symbol })
	return result, nil
}

// Get returns a copy of one holding, or domain.ErrHoldingNotFound.
func (s *HoldingStore) Get(_ context.Context, accountID, symbol string) (*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holdings[accountID][symbol]
	if !ok {
		return nil, domain.ErrHoldingNotFound
	}
	c := *h
	return &c, nil
}

// put stores h, or removes it when its quantity is zero. Only the ledger
// calls it.
func (s *HoldingStore) put(h *domain.Holding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.Quantity == 0 {
		if bySymbol, ok := s.holdings[h.AccountID]; ok {
			delete(bySymbol, h.Symbol)
			if len(bySymbol) == 0 {
				delete(s.holdings, h.AccountID)
			}
		}
		return
	}

	if s.holdings[h.AccountID] == nil {
		s.holdings[h.AccountID] = make(map[string]*domain.Holding)
	}
	c := *h
	s.holdings[h.AccountID][h.Symbol] = &c
}
