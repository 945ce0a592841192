package store

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"petcare/internal/notifications/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

// Filter narrows ListForRecipient. A zero Now disables expiry filtering.
type Filter struct {
	UnreadOnly bool
	Now        time.Time
	Limit      int
}

func (f Filter) matches(n *models.Notification) bool {
	if f.UnreadOnly && n.Read {
		return false
	}
	if !f.Now.IsZero() && n.IsExpired(f.Now) {
		return false
	}
	return true
}

type InMemory struct {
	mu            sync.RWMutex
	notifications map[domain.NotificationID]*models.Notification
}

func NewInMemory() *InMemory {
	return &InMemory{notifications: make(map[domain.NotificationID]*models.Notification)}
}

func (s *InMemory) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[n.ID]; ok {
		return sentinel.ErrConflict
	}
	s.notifications[n.ID] = clone(n)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.NotificationID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(n), nil
}

// MarkRead persists the read state only.
func (s *InMemory) MarkRead(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.notifications[n.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.Read = n.Read
	existing.ReadAt = n.ReadAt
	return nil
}

// ListForRecipient returns newest first.
func (s *InMemory) ListForRecipient(_ context.Context, recipient domain.AccountID, f Filter) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Notification, 0)
	for _, n := range s.notifications {
		if n.RecipientID == recipient && f.matches(n) {
			out = append(out, clone(n))
		}
	}
	slices.SortFunc(out, func(a, b *models.Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(b.ID[:], a.ID[:])
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func clone(n *models.Notification) *models.Notification {
	cp := *n
	cp.Payload = maps.Clone(n.Payload)
	return &cp
}
