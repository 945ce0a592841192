package store

import (
	"context"
	"slices"
	"sync"

	"petcare/internal/pets/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

// Filter narrows List. A nil IDs slice means no id restriction; an empty
// non-nil slice matches nothing.
type Filter struct {
	OwnerID    *domain.AccountID
	IDs        []domain.PetID
	ActiveOnly bool
}

func (f Filter) matches(p *models.Pet) bool {
	if f.OwnerID != nil && p.OwnerID != *f.OwnerID {
		return false
	}
	if f.IDs != nil && !slices.Contains(f.IDs, p.ID) {
		return false
	}
	if f.ActiveOnly && !p.Active {
		return false
	}
	return true
}

type InMemory struct {
	mu   sync.RWMutex
	pets map[domain.PetID]*models.Pet
}

func NewInMemory() *InMemory {
	return &InMemory{pets: make(map[domain.PetID]*models.Pet)}
}

func (s *InMemory) Create(_ context.Context, p *models.Pet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pets[p.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *p
	s.pets[p.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.PetID) (*models.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Update persists mutable fields. The owner is immutable.
func (s *InMemory) Update(_ context.Context, p *models.Pet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.pets[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.Name = p.Name
	existing.Species = p.Species
	existing.Active = p.Active
	existing.UpdatedAt = p.UpdatedAt
	return nil
}

// List returns matching pets ordered by creation time, oldest first.
func (s *InMemory) List(_ context.Context, f Filter) ([]*models.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Pet, 0)
	for _, p := range s.pets {
		if f.matches(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Pet) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return out, nil
}

func compareIDs(a, b domain.PetID) int {
	return slices.Compare(a[:], b[:])
}
