package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"petcare/internal/orders/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

type InMemory struct {
	mu     sync.RWMutex
	orders map[domain.OrderID]*models.Order
}

func NewInMemory() *InMemory {
	return &InMemory{orders: make(map[domain.OrderID]*models.Order)}
}

func (s *InMemory) Create(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.OrderID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

// List returns orders newest first. A nil owner lists every order.
func (s *InMemory) List(_ context.Context, ownerID *domain.AccountID) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Order, 0)
	for _, o := range s.orders {
		if ownerID != nil && o.OwnerID != *ownerID {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.String(), a.ID.String())
	})
	return out, nil
}
