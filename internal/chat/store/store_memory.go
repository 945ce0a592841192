package store

import (
	"context"
	"sync"

	"petcare/internal/chat/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

type InMemory struct {
	mu            sync.RWMutex
	rooms         map[domain.ChatRoomID]*models.Room
	byAppointment map[domain.AppointmentID]domain.ChatRoomID
	messages      map[domain.ChatRoomID][]*models.Message
}

func NewInMemory() *InMemory {
	return &InMemory{
		rooms:         make(map[domain.ChatRoomID]*models.Room),
		byAppointment: make(map[domain.AppointmentID]domain.ChatRoomID),
		messages:      make(map[domain.ChatRoomID][]*models.Message),
	}
}

// CreateRoom returns sentinel.ErrConflict when the appointment already has
// a room.
func (s *InMemory) CreateRoom(_ context.Context, r *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[r.ID]; ok {
		return sentinel.ErrConflict
	}
	if r.AppointmentID != nil {
		if _, ok := s.byAppointment[*r.AppointmentID]; ok {
			return sentinel.ErrConflict
		}
		s.byAppointment[*r.AppointmentID] = r.ID
	}
	s.rooms[r.ID] = cloneRoom(r)
	return nil
}

func (s *InMemory) FindRoom(_ context.Context, id domain.ChatRoomID) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRoom(r), nil
}

func (s *InMemory) FindRoomByAppointment(_ context.Context, id domain.AppointmentID) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roomID, ok := s.byAppointment[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRoom(s.rooms[roomID]), nil
}

func (s *InMemory) CreateMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[m.RoomID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *m
	s.messages[m.RoomID] = append(s.messages[m.RoomID], &cp)
	return nil
}

// ListMessages returns the most recent limit messages, oldest first.
func (s *InMemory) ListMessages(_ context.Context, roomID domain.ChatRoomID, limit int) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.messages[roomID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]*models.Message, 0, len(all))
	for _, m := range all {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func cloneRoom(r *models.Room) *models.Room {
	cp := *r
	if r.AppointmentID != nil {
		id := *r.AppointmentID
		cp.AppointmentID = &id
	}
	return &cp
}
