package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
)

const maxBodyLength = 2000

// Room is a conversation between a pet's owner and a vet. AppointmentID is
// nil for rooms opened without a booking.
type Room struct {
	ID            domain.ChatRoomID     `json:"id"`
	AppointmentID *domain.AppointmentID `json:"appointment_id,omitempty"`
	PetID         domain.PetID          `json:"pet_id"`
	OwnerID       domain.AccountID      `json:"owner_id"`
	VetID         domain.AccountID      `json:"vet_id"`
	CreatedAt     time.Time             `json:"created_at"`
}

func NewRoom(id domain.ChatRoomID, appointmentID *domain.AppointmentID, petID domain.PetID, ownerID, vetID domain.AccountID, now time.Time) (*Room, error) {
	if petID.IsNil() || ownerID.IsNil() || vetID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "pet, owner and vet are required")
	}
	if ownerID == vetID {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner and vet must differ")
	}
	return &Room{
		ID:            id,
		AppointmentID: appointmentID,
		PetID:         petID,
		OwnerID:       ownerID,
		VetID:         vetID,
		CreatedAt:     now,
	}, nil
}

func (r *Room) ResourceType() string { return "chat_room" }
func (r *Room) ResourceID() string   { return r.ID.String() }

func (r *Room) Participants() []domain.AccountID {
	return []domain.AccountID{r.OwnerID, r.VetID}
}

// Name is the realtime room key.
func (r *Room) Name() string { return r.ID.String() }

// Message is a single chat line. Messages are immutable once stored.
type Message struct {
	ID        uuid.UUID         `json:"id"`
	RoomID    domain.ChatRoomID `json:"room_id"`
	SenderID  domain.AccountID  `json:"sender_id"`
	Body      string            `json:"body"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewMessage(roomID domain.ChatRoomID, senderID domain.AccountID, body string, now time.Time) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "message body is required")
	}
	if utf8.RuneCountInString(body) > maxBodyLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "message body must be at most 2000 characters")
	}
	return &Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: now,
	}, nil
}
