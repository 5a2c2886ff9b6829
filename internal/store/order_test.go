package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
)

func newTestOrder(id, accountID string, createdAt time.Time) *domain.Order {
	return &domain.Order{
		OrderID:    id,
		AccountID:  accountID,
		Symbol:     "AAPL",
		Type:       domain.OrderTypeLimit,
		Side:       domain.OrderSideBuy,
		Quantity:   10,
		LimitPrice: 15000,
		Status:     domain.OrderStatusPending,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestOrderStore_Put_and_Get(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	o := newTestOrder("order-1", "acct-1", time.Now())

	s.put(o)

	got, err := s.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.AccountID != "acct-1" {
		t.Fatalf("expected acct-1, got %s", got.AccountID)
	}

	// Mutating the returned copy must not leak into the store.
	got.Status = domain.OrderStatusFilled
	again, _ := s.Get(ctx, "order-1")
	if again.Status != domain.OrderStatusPending {
		t.Fatalf("store mutated through returned pointer: %s", again.Status)
	}
}

func TestOrderStore_Put_ReplaceKeepsIndex(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	o := newTestOrder("order-1", "acct-1", time.Now())
	s.put(o)

	o.Status = domain.OrderStatusCancelled
	s.put(o)

	orders, total, _ := s.ListByAccount(ctx, "acct-1", nil, 1, 10)
	if total != 1 || len(orders) != 1 {
		t.Fatalf("expected a single indexed order, got total=%d len=%d", total, len(orders))
	}
	if orders[0].Status != domain.OrderStatusCancelled {
		t.Fatalf("expected replaced status, got %s", orders[0].Status)
	}
}

func TestOrderStore_Get_NotFound(t *testing.T) {
	s := NewOrderStore()

	_, err := s.Get(context.Background(), "no-such-order")
	if err != domain.ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderStore_ListByAccount_ReverseChronological(t *testing.T) {
	s := NewOrderStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.put(newTestOrder(fmt.Sprintf("order-%d", i), "acct-1", base.Add(time.Duration(i)*time.Minute)))
	}

	orders, total, _ := s.ListByAccount(context.Background(), "acct-1", nil, 1, 10)
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	for i := 0; i < len(orders)-1; i++ {
		if !orders[i].CreatedAt.After(orders[i+1].CreatedAt) {
			t.Fatalf("orders not in reverse chronological order at index %d", i)
		}
	}
}

func TestOrderStore_ListByAccount_StatusFilter(t *testing.T) {
	s := NewOrderStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	statuses := []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusFilled,
		domain.OrderStatusPending,
		domain.OrderStatusRejected,
		domain.OrderStatusPending,
	}
	for i, st := range statuses {
		o := newTestOrder(fmt.Sprintf("order-%d", i), "acct-1", base.Add(time.Duration(i)*time.Minute))
		o.Status = st
		s.put(o)
	}

	pending := domain.OrderStatusPending
	orders, total, _ := s.ListByAccount(context.Background(), "acct-1", &pending, 1, 10)
	if total != 3 || len(orders) != 3 {
		t.Fatalf("expected 3 pending, got total=%d len=%d", total, len(orders))
	}
	for _, o := range orders {
		if o.Status != domain.OrderStatusPending {
			t.Fatalf("expected pending status, got %s", o.Status)
		}
	}

	all, _ := s.ListPending(context.Background())
	if len(all) != 3 || all[0].OrderID != "order-0" || all[2].OrderID != "order-4" {
		t.Fatalf("ListPending should return oldest first, got %d orders", len(all))
	}
}

func TestOrderStore_ListByAccount_Pagination(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		s.put(newTestOrder(fmt.Sprintf("order-%d", i), "acct-1", base.Add(time.Duration(i)*time.Minute)))
	}

	tests := []struct {
		page, limit int
		wantLen     int
	}{
		{1, 3, 3},
		{4, 3, 1},
		{5, 3, 0},
	}
	for _, tt := range tests {
		orders, total, _ := s.ListByAccount(ctx, "acct-1", nil, tt.page, tt.limit)
		if total != 10 {
			t.Fatalf("page %d: expected total 10, got %d", tt.page, total)
		}
		if len(orders) != tt.wantLen {
			t.Fatalf("page %d: expected %d orders, got %d", tt.page, tt.wantLen, len(orders))
		}
	}
}

func TestOrderStore_ListByAccount_MultipleAccounts(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	now := time.Now()

	s.put(newTestOrder("o1", "acct-1", now))
	s.put(newTestOrder("o2", "acct-2", now))
	s.put(newTestOrder("o3", "acct-1", now.Add(time.Minute)))

	if _, total, _ := s.ListByAccount(ctx, "acct-1", nil, 1, 10); total != 2 {
		t.Fatalf("expected 2 orders for acct-1, got %d", total)
	}
	if _, total, _ := s.ListByAccount(ctx, "acct-2", nil, 1, 10); total != 1 {
		t.Fatalf("expected 1 order for acct-2, got %d", total)
	}
	if orders, total, _ := s.ListByAccount(ctx, "nobody", nil, 1, 10); total != 0 || len(orders) != 0 {
		t.Fatalf("expected no orders for unknown account")
	}
}

func TestOrderStore_ConcurrentAccess(t *testing.T) {
	s := NewOrderStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	base := time.Now()

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.put(newTestOrder(
				fmt.Sprintf("order-%d", i),
				fmt.Sprintf("acct-%d", i%5),
				base.Add(time.Duration(i)*time.Millisecond),
			))
		}(i)
		go func() {
			defer wg.Done()
			s.ListByAccount(ctx, "acct-0", nil, 1, 10)
		}()
	}
	wg.Wait()

	for b := 0; b < 5; b++ {
		_, total, _ := s.ListByAccount(ctx, fmt.Sprintf("acct-%d", b), nil, 1, 100)
		if total != 20 {
			t.Fatalf("acct-%d expected 20 orders, got %d", b, total)
		}
	}
}
