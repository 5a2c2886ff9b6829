package store

import (
	"context"
	"sync"

	"github.com/efreitasn/minibroker/internal/domain"
)

// Compile-time check that AccountStore implements AccountRepository
var _ AccountRepository = (*AccountStore)(nil)

// AccountStore is a thread-safe in-memory store for accounts,
// keyed by account_id with a unique index on username.
type AccountStore struct {
	mu         sync.RWMutex
	accounts   map[string]*domain.Account
	byUsername map[string]string // username → account_id
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts:   make(map[string]*domain.Account),
		byUsername: make(map[string]string),
	}
}

// Create adds an account to the store. It returns
// domain.ErrAccountAlreadyExists if the ID or username is taken.
func (s *AccountStore) Create(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.AccountID]; exists {
		return domain.ErrAccountAlreadyExists
	}
	if _, exists := s.byUsername[a.Username]; exists {
		return domain.ErrAccountAlreadyExists
	}
	c := *a
	s.accounts[a.AccountID] = &c
	s.byUsername[a.Username] = a.AccountID
	return nil
}

// Get retrieves a copy of an account by ID. It returns
// domain.ErrAccountNotFound if the account does not exist.
func (s *AccountStore) Get(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	c := *a
	return &c, nil
}

// put replaces a stored account. Only the ledger calls it.
func (s *AccountStore) put(a *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *a
	s.accounts[a.AccountID] = &c
}
