// Package realtime pushes events to connected clients. Delivery is
// fire-and-forget: no acknowledgement, no replay, and a connection that
// cannot keep up loses events instead of slowing the sender.
package realtime

import (
	"time"

	"petcare/pkg/domain"
)

// Event types pushed to clients.
const (
	EventReady        = "ready"
	EventNotification = "notification"
	EventAppointment  = "appointment_updated"
	EventChatMessage  = "chat_message"
	EventRoomJoined   = "room_joined"
	EventError        = "error"
	EventAnnouncement = "announcement"
)

// Event is the JSON frame written to a websocket.
type Event struct {
	Type    string    `json:"type"`
	Room    string    `json:"room,omitempty"`
	Payload any       `json:"payload,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// Scope selects the audience of an envelope.
type Scope string

const (
	ScopeUsers     Scope = "users"
	ScopeBroadcast Scope = "broadcast"
	ScopeRoom      Scope = "room"
)

// Envelope is an event plus its audience, as carried on the bus.
type Envelope struct {
	Origin     string             `json:"origin"`
	Scope      Scope              `json:"scope"`
	Recipients []domain.AccountID `json:"recipients,omitempty"`
	Room       string             `json:"room,omitempty"`
	Event      Event              `json:"event"`
}
