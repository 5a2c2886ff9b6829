package store

import (
	"context"
	"sort"
	"sync"

	"github.com/efreitasn/minibroker/internal/domain"
)

// Compile-time check that OrderStore implements OrderRepository
var _ OrderRepository = (*OrderStore)(nil)

// OrderStore is a thread-safe in-memory store for orders,
// with a primary index by order_id and a secondary index by account_id.
type OrderStore struct {
	mu            sync.RWMutex
	orders        map[string]*domain.Order
	accountOrders map[string][]string // account_id → order ids (append-only)
	seq           map[string]int      // order_id → insertion sequence
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:        make(map[string]*domain.Order),
		accountOrders: make(map[string][]string),
		seq:           make(map[string]int),
	}
}

// put inserts or replaces an order. New orders are appended to the
// account's secondary index. Only the ledger calls it.
func (s *OrderStore) put(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.OrderID]; !exists {
		s.seq[o.OrderID] = len(s.seq)
		s.accountOrders[o.AccountID] = append(s.accountOrders[o.AccountID], o.OrderID)
	}
	c := *o
	s.orders[o.OrderID] = &c
}

// Get retrieves a copy of an order by ID. It returns
// domain.ErrOrderNotFound if the order does not exist.
func (s *OrderStore) Get(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	c := *o
	return &c, nil
}

// ListByAccount returns orders for an account in reverse chronological order
// (newest first). If status is non-nil, only orders matching that status
// are included. Pagination is 1-based. Returns the matching orders for the
// requested page and the total count of matching orders (before pagination).
func (s *OrderStore) ListByAccount(_ context.Context, accountID string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.accountOrders[accountID]

	// Filter by status if provided, collecting in reverse order.
	filtered := make([]*domain.Order, 0)
	for i := len(ids) - 1; i >= 0; i-- {
		o := s.orders[ids[i]]
		if status != nil && o.Status != *status {
			continue
		}
		filtered = append(filtered, o)
	}

	total := len(filtered)

	// Apply pagination.
	start := (page - 1) * limit
	if start >= total {
		return []*domain.Order{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	result := make([]*domain.Order, 0, end-start)
	for _, o := range filtered[start:end] {
		c := *o
		result = append(result, &c)
	}
	return result, total, nil
}

// ListPending returns all pending orders in insertion order.
func (s *OrderStore) ListPending(_ context.Context) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Order, 0)
	for _, o := range s.orders {
		if o.Status == domain.OrderStatusPending {
			c := *o
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(a, b int) bool {
		return s.seq[result[a].OrderID] < s.seq[result[b].OrderID]
	})
	return result, nil
}
