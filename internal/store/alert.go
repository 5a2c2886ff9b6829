package store

import (
	"context"
	"sync"
	"time"

	"github.com/efreitasn/minibroker/internal/domain"
)

// Compile-time check that AlertStore implements AlertRepository
var _ AlertRepository = (*AlertStore)(nil)

// AlertStore is a thread-safe in-memory store for price alerts,
// with a primary index by alert_id and a secondary index by account_id.
type AlertStore struct {
	mu            sync.RWMutex
	alerts        map[string]*domain.Alert
	accountAlerts map[string][]string // account_id → alert ids (insertion order)
}

// NewAlertStore creates an empty AlertStore.
func NewAlertStore() *AlertStore {
	return &AlertStore{
		alerts:        make(map[string]*domain.Alert),
		accountAlerts: make(map[string][]string),
	}
}

func copyAlert(a *domain.Alert) *domain.Alert {
	c := *a
	if a.TriggeredAt != nil {
		t := *a.TriggeredAt
		c.TriggeredAt = &t
	}
	return &c
}

// Create adds an alert to the store.
func (s *AlertStore) Create(_ context.Context, a *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts[a.AlertID] = copyAlert(a)
	s.accountAlerts[a.AccountID] = append(s.accountAlerts[a.AccountID], a.AlertID)
	return nil
}

// Get returns a copy of an alert, or domain.ErrAlertNotFound.
func (s *AlertStore) Get(_ context.Context, id string) (*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	return copyAlert(a), nil
}

// ListByAccount returns the account's alerts newest first.
func (s *AlertStore) ListByAccount(_ context.Context, accountID string, activeOnly bool) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.accountAlerts[accountID]
	result := make([]*domain.Alert, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		a := s.alerts[ids[i]]
		if activeOnly && !a.Pending() {
			continue
		}
		result = append(result, copyAlert(a))
	}
	return result, nil
}

// ListPending returns the account's active, untriggered alerts in
// creation order.
func (s *AlertStore) ListPending(_ context.Context, accountID string) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Alert, 0)
	for _, id := range s.accountAlerts[accountID] {
		if a := s.alerts[id]; a.Pending() {
			result = append(result, copyAlert(a))
		}
	}
	return result, nil
}

// SetActive toggles the active flag and returns the updated alert.
func (s *AlertStore) SetActive(_ context.Context, id string, active bool) (*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	a.Active = active
	return copyAlert(a), nil
}

// MarkTriggered flips every listed alert that is still pending, under a
// single write lock, and returns the ids that changed.
func (s *AlertStore) MarkTriggered(_ context.Context, ids []string, at time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := make([]string, 0, len(ids))
	for _, id := range ids {
		a, ok := s.alerts[id]
		if !ok || !a.Pending() {
			continue
		}
		t := at
		a.Triggered = true
		a.TriggeredAt = &t
		changed = append(changed, id)
	}
	return changed, nil
}

// Delete removes an alert from both indexes. It returns
// domain.ErrAlertNotFound if the alert does not exist.
func (s *AlertStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return domain.ErrAlertNotFound
	}
	delete(s.alerts, id)

	ids := s.accountAlerts[a.AccountID]
	for i, other := range ids {
		if other == id {
			s.accountAlerts[a.AccountID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.accountAlerts[a.AccountID]) == 0 {
		delete(s.accountAlerts, a.AccountID)
	}
	return nil
}
