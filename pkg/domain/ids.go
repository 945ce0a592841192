package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "petcare/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so the compiler rejects passing a
// PetID where an AccountID is expected.
type (
	AccountID      uuid.UUID
	PetID          uuid.UUID
	AppointmentID  uuid.UUID
	DocumentID     uuid.UUID
	HealthRecordID uuid.UUID
	OrderID        uuid.UUID
	NotificationID uuid.UUID
	ChatRoomID     uuid.UUID
	AuditEntryID   uuid.UUID
)

const maxIDLength = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength || !utf8.ValidString(s) || strings.ContainsRune(s, 0) {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return u, nil
}

func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID("account id", s)
	return AccountID(u), err
}

func ParsePetID(s string) (PetID, error) {
	u, err := parseUUID("pet id", s)
	return PetID(u), err
}

func ParseAppointmentID(s string) (AppointmentID, error) {
	u, err := parseUUID("appointment id", s)
	return AppointmentID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID("document id", s)
	return DocumentID(u), err
}

func ParseHealthRecordID(s string) (HealthRecordID, error) {
	u, err := parseUUID("health record id", s)
	return HealthRecordID(u), err
}

func ParseOrderID(s string) (OrderID, error) {
	u, err := parseUUID("order id", s)
	return OrderID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID("notification id", s)
	return NotificationID(u), err
}

func ParseChatRoomID(s string) (ChatRoomID, error) {
	u, err := parseUUID("chat room id", s)
	return ChatRoomID(u), err
}

func (id AccountID) String() string      { return uuid.UUID(id).String() }
func (id PetID) String() string          { return uuid.UUID(id).String() }
func (id AppointmentID) String() string  { return uuid.UUID(id).String() }
func (id DocumentID) String() string     { return uuid.UUID(id).String() }
func (id HealthRecordID) String() string { return uuid.UUID(id).String() }
func (id OrderID) String() string        { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id ChatRoomID) String() string     { return uuid.UUID(id).String() }
func (id AuditEntryID) String() string   { return uuid.UUID(id).String() }

func (id AccountID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id PetID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id AppointmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs render as plain UUID strings in JSON.
func (id AccountID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id PetID) MarshalText() ([]byte, error)          { return uuid.UUID(id).MarshalText() }
func (id AppointmentID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id DocumentID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id HealthRecordID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id OrderID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id NotificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ChatRoomID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id AuditEntryID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

func (id *AccountID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *PetID) UnmarshalText(b []byte) error          { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AppointmentID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DocumentID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *HealthRecordID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *OrderID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *NotificationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ChatRoomID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AuditEntryID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
