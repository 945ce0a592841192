package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"petcare/internal/account/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

// InMemory is a map-backed account store. Stored values are copies.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[domain.AccountID]models.Account
	byEmail  map[string]domain.AccountID
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[domain.AccountID]models.Account),
		byEmail:  make(map[string]domain.AccountID),
	}
}

func (s *InMemory) Create(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[a.Email]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.accounts[a.ID]; ok {
		return sentinel.ErrConflict
	}
	s.accounts[a.ID] = *a
	s.byEmail[a.Email] = a.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	a := s.accounts[id]
	return &a, nil
}

// Update overwrites mutable fields. Email and role are immutable.
func (s *InMemory) Update(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.accounts[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	updated := *a
	updated.Email = existing.Email
	updated.Role = existing.Role
	updated.CreatedAt = existing.CreatedAt
	s.accounts[a.ID] = updated
	return nil
}

// ListActiveVerifiedAdmins returns the current admin audience.
func (s *InMemory) ListActiveVerifiedAdmins(_ context.Context) ([]domain.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []domain.AccountID
	for _, a := range s.accounts {
		if a.IsActiveVerifiedAdmin() {
			ids = append(ids, a.ID)
		}
	}
	sortIDs(ids)
	return ids, nil
}

// ListActiveIDsByRoles returns active accounts holding any of roles. An
// empty roles slice selects every active account.
func (s *InMemory) ListActiveIDsByRoles(_ context.Context, roles []domain.Role) ([]domain.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []domain.AccountID
	for _, a := range s.accounts {
		if !a.Active {
			continue
		}
		if len(roles) > 0 && !slices.Contains(roles, a.Role) {
			continue
		}
		ids = append(ids, a.ID)
	}
	sortIDs(ids)
	return ids, nil
}

func sortIDs(ids []domain.AccountID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
