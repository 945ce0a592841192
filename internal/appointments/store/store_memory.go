package store

import (
	"context"
	"slices"
	"sync"

	"petcare/internal/appointments/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

// Filter narrows List. Zero fields match everything.
type Filter struct {
	ParticipantID *domain.AccountID
	PetID         *domain.PetID
	Statuses      []models.Status
}

func (f Filter) matches(a *models.Appointment) bool {
	if f.ParticipantID != nil && !a.IsParticipant(*f.ParticipantID) {
		return false
	}
	if f.PetID != nil && a.PetID != *f.PetID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
		return false
	}
	return true
}

type InMemory struct {
	mu           sync.RWMutex
	appointments map[domain.AppointmentID]*models.Appointment
}

func NewInMemory() *InMemory {
	return &InMemory{appointments: make(map[domain.AppointmentID]*models.Appointment)}
}

func (s *InMemory) Create(_ context.Context, a *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[a.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *a
	s.appointments[a.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.AppointmentID) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// Update persists status and acceptance. Participants and pet never change.
func (s *InMemory) Update(_ context.Context, a *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.appointments[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.Status = a.Status
	existing.VetAccepted = a.VetAccepted
	existing.ScheduledAt = a.ScheduledAt
	existing.UpdatedAt = a.UpdatedAt
	return nil
}

func (s *InMemory) ExistsForVetAndPet(_ context.Context, vetID domain.AccountID, petID domain.PetID, statuses []models.Status) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.appointments {
		if a.VetID == vetID && a.PetID == petID && slices.Contains(statuses, a.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) PetIDsForVet(_ context.Context, vetID domain.AccountID, statuses []models.Status) ([]domain.PetID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[domain.PetID]struct{})
	out := make([]domain.PetID, 0)
	for _, a := range s.appointments {
		if a.VetID != vetID || !slices.Contains(statuses, a.Status) {
			continue
		}
		if _, ok := seen[a.PetID]; ok {
			continue
		}
		seen[a.PetID] = struct{}{}
		out = append(out, a.PetID)
	}
	return out, nil
}

// List returns matching appointments, soonest first.
func (s *InMemory) List(_ context.Context, f Filter) ([]*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Appointment, 0)
	for _, a := range s.appointments {
		if f.matches(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Appointment) int {
		if c := a.ScheduledAt.Compare(b.ScheduledAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}
