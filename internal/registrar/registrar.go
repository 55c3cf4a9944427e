package registrar

import (
	"context"
	"doc-registry/internal/model"
	"sync"
)

// Open treats every account as registered.
type Open struct{}

func (Open) IsRegistered(context.Context, model.Account) (bool, error) {
	return true, nil
}

// Static keeps the set of registered accounts in memory.
type Static struct {
	mu       sync.RWMutex
	accounts map[model.Account]struct{}
}

func NewStatic(accounts ...model.Account) *Static {
	s := &Static{accounts: make(map[model.Account]struct{}, len(accounts))}
	for _, account := range accounts {
		s.accounts[account] = struct{}{}
	}
	return s
}

func (s *Static) Register(account model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account] = struct{}{}
}

func (s *Static) Unregister(account model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, account)
}

func (s *Static) IsRegistered(_ context.Context, account model.Account) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[account]
	return ok, nil
}
