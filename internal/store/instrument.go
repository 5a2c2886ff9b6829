package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/efreitasn/minibroker/internal/domain"
)

// Compile-time check that InstrumentStore implements InstrumentRepository
var _ InstrumentRepository = (*InstrumentStore)(nil)

// InstrumentStore is a thread-safe in-memory store for instruments,
// keyed by symbol.
type InstrumentStore struct {
	mu          sync.RWMutex
	instruments map[string]*domain.Instrument
}

// NewInstrumentStore creates an empty InstrumentStore.
func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{
		instruments: make(map[string]*domain.Instrument),
	}
}

// Upsert inserts or replaces an instrument.
func (s *InstrumentStore) Upsert(_ context.Context, i *domain.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *i
	s.instruments[i.Symbol] = &c
	return nil
}

// Get returns a copy of the instrument, or domain.ErrInstrumentNotFound.
func (s *InstrumentStore) Get(_ context.Context, symbol string) (*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.instruments[symbol]
	if !ok {
		return nil, domain.ErrInstrumentNotFound
	}
	c := *i
	return &c, nil
}

// List returns all instruments ordered by symbol.
func (s *InstrumentStore) List(_ context.Context) ([]*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Instrument, 0, len(s.instruments))
	for _, i := range s.instruments {
		c := *i
		result = append(result, &c)
	}
	sortInstruments(result)
	return result, nil
}

// Search returns instruments whose symbol or name contains q,
// case-insensitively, ordered by symbol.
func (s *InstrumentStore) Search(_ context.Context, q string) ([]*domain.Instrument, error) {
	q = strings.ToLower(strings.TrimSpace(q))

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Instrument, 0)
	for _, i := range s.instruments {
		if strings.Contains(strings.ToLower(i.Symbol), q) || strings.Contains(strings.ToLower(i.Name), q) {
			c := *i
			result = append(result, &c)
		}
	}
	sortInstruments(result)
	return result, nil
}

// Prices returns the current price for each known symbol in one pass.
func (s *InstrumentStore) Prices(_ context.Context, symbols []string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make(map[string]int64, len(symbols))
	for _, sym := range symbols {
		if i, ok := s.instruments[sym]; ok {
			prices[sym] = i.CurrentPrice
		}
	}
	return prices, nil
}

// Update applies fn to a copy of the instrument under the write lock and
// stores the result if fn succeeds.
func (s *InstrumentStore) Update(_ context.Context, symbol string, fn func(*domain.Instrument) error) (*domain.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.instruments[symbol]
	if !ok {
		return nil, domain.ErrInstrumentNotFound
	}
	c := *i
	if err := fn(&c); err != nil {
		return nil, err
	}
	s.instruments[symbol] = &c
	out := c
	return &out, nil
}

func sortInstruments(list []*domain.Instrument) {
	sort.Slice(list, func(a, b int) bool { return list[a].Symbol < list[b].Symbol })
}
