package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcare/internal/chat/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

func TestInMemoryRooms(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	appt := domain.AppointmentID(uuid.New())

	room, err := models.NewRoom(domain.ChatRoomID(uuid.New()), &appt, domain.PetID(uuid.New()), domain.AccountID(uuid.New()), domain.AccountID(uuid.New()), now)
	require.NoError(t, err)
	require.NoError(t, s.CreateRoom(ctx, room))

	dup, err := models.NewRoom(domain.ChatRoomID(uuid.New()), &appt, room.PetID, room.OwnerID, room.VetID, now)
	require.NoError(t, err)
	assert.ErrorIs(t, s.CreateRoom(ctx, dup), sentinel.ErrConflict, "one room per appointment")

	got, err := s.FindRoomByAppointment(ctx, appt)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)

	_, err = s.FindRoom(ctx, domain.ChatRoomID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryMessagesKeepTheTail(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	room, err := models.NewRoom(domain.ChatRoomID(uuid.New()), nil, domain.PetID(uuid.New()), domain.AccountID(uuid.New()), domain.AccountID(uuid.New()), now)
	require.NoError(t, err)
	require.NoError(t, s.CreateRoom(ctx, room))

	for i, body := range []string{"one", "two", "three"} {
		m, err := models.NewMessage(room.ID, room.OwnerID, body, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, s.CreateMessage(ctx, m))
	}

	msgs, err := s.ListMessages(ctx, room.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Body)
	assert.Equal(t, "three", msgs[1].Body)

	orphan, err := models.NewMessage(domain.ChatRoomID(uuid.New()), room.OwnerID, "lost", now)
	require.NoError(t, err)
	assert.ErrorIs(t, s.CreateMessage(ctx, orphan), sentinel.ErrNotFound)
}
