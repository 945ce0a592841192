package store

import (
	"context"
	"slices"
	"sync"

	"petcare/internal/records/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

// InMemory keeps documents and health records in maps keyed by id.
type InMemory struct {
	mu        sync.RWMutex
	documents map[domain.DocumentID]*models.Document
	records   map[domain.HealthRecordID]*models.HealthRecord
}

func NewInMemory() *InMemory {
	return &InMemory{
		documents: make(map[domain.DocumentID]*models.Document),
		records:   make(map[domain.HealthRecordID]*models.HealthRecord),
	}
}

func (s *InMemory) CreateDocument(_ context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[d.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *d
	s.documents[d.ID] = &cp
	return nil
}

func (s *InMemory) FindDocument(_ context.Context, id domain.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// ListDocumentsForPet returns documents oldest first.
func (s *InMemory) ListDocumentsForPet(_ context.Context, petID domain.PetID) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Document, 0)
	for _, d := range s.documents {
		if d.PetID == petID {
			cp := *d
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (s *InMemory) CreateHealthRecord(_ context.Context, h *models.HealthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[h.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *h
	s.records[h.ID] = &cp
	return nil
}

// ListHealthRecordsForPet returns records newest first by RecordedAt.
func (s *InMemory) ListHealthRecordsForPet(_ context.Context, petID domain.PetID) ([]*models.HealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.HealthRecord, 0)
	for _, h := range s.records {
		if h.PetID == petID {
			cp := *h
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.HealthRecord) int {
		if c := b.RecordedAt.Compare(a.RecordedAt); c != 0 {
			return c
		}
		return compare(b.ID.String(), a.ID.String())
	})
	return out, nil
}

func compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
