package store

import (
	"context"
	"sort"
	"sync"

	"github.com/efreitasn/minibroker/internal/domain"
)

// Compile-time check that WebhookStore implements WebhookRepository
var _ WebhookRepository = (*WebhookStore)(nil)

// WebhookStore is a thread-safe in-memory store for webhooks.
// Primary index: webhook_id → webhook.
// Secondary index: account_id → event → webhook.
type WebhookStore struct {
	mu        sync.RWMutex
	webhooks  map[string]*domain.Webhook            // webhook_id → webhook
	byAccount map[string]map[string]*domain.Webhook // account_id → event → webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks:  make(map[string]*domain.Webhook),
		byAccount: make(map[string]map[string]*domain.Webhook),
	}
}

// Upsert inserts or updates a webhook subscription keyed by (account_id, event).
// If a subscription already exists for that pair, the URL and UpdatedAt are
// updated and the webhook_id remains stable. If the existing URL matches, it
// is a no-op. Returns the stored subscription and true if it was created.
func (s *WebhookStore) Upsert(_ context.Context, w *domain.Webhook) (*domain.Webhook, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if events, ok := s.byAccount[w.AccountID]; ok {
		if existing, ok := events[w.Event]; ok {
			if existing.URL != w.URL {
				existing.URL = w.URL
				existing.UpdatedAt = w.UpdatedAt
			}
			c := *existing
			return &c, false, nil
		}
	}

	stored := *w
	s.webhooks[w.WebhookID] = &stored

	if s.byAccount[w.AccountID] == nil {
		s.byAccount[w.AccountID] = make(map[string]*domain.Webhook)
	}
	s.byAccount[w.AccountID][w.Event] = &stored

	c := stored
	return &c, true, nil
}

// Get retrieves a webhook by ID. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
func (s *WebhookStore) Get(_ context.Context, id string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.webhooks[id]
	if !ok {
		return nil, domain.ErrWebhookNotFound
	}
	c := *w
	return &c, nil
}

// ListByAccount returns all webhooks for an account ordered by event.
// Returns an empty slice if the account has no subscriptions.
func (s *WebhookStore) ListByAccount(_ context.Context, accountID string) ([]*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byAccount[accountID]
	result := make([]*domain.Webhook, 0, len(events))
	for _, w := range events {
		c := *w
		result = append(result, &c)
	}
	sort.Slice(result, func(a, b int) bool { return result[a].Event < result[b].Event })
	return result, nil
}

// Delete removes a webhook by ID. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
// Both the primary and secondary indexes are cleaned up.
func (s *WebhookStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}

	delete(s.webhooks, id)

	if events, ok := s.byAccount[w.AccountID]; ok {
		delete(events, w.Event)
		if len(events) == 0 {
			delete(s.byAccount, w.AccountID)
		}
	}

	return nil
}

// GetByAccountEvent returns the webhook for a specific account+event pair,
// or nil if no subscription exists.
func (s *WebhookStore) GetByAccountEvent(_ context.Context, accountID, event string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w := s.byAccount[accountID][event]
	if w == nil {
		return nil, nil
	}
	c := *w
	return &c, nil
}
