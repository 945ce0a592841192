package models

import (
	"time"

	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
)

// Priority orders notifications for clients.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Type names what the notification is about. Clients switch on it.
type Type string

const (
	TypeAccountVerified    Type = "account_verified"
	TypeVetVerified        Type = "vet_verified"
	TypeAccountDeactivated Type = "account_deactivated"
	TypeAccountReactivated Type = "account_reactivated"
	TypeEmailConfirmed     Type = "email_confirmed"
	TypeAppointmentCreated Type = "appointment_created"
	TypeAppointmentStatus  Type = "appointment_status_changed"
	TypeVetEngaged         Type = "vet_engaged"
	TypeHealthRecordAdded  Type = "health_record_added"
	TypeAnnouncement       Type = "announcement"
)

// Notification is an in-app message to a single recipient.
type Notification struct {
	ID          domain.NotificationID `json:"id"`
	RecipientID domain.AccountID      `json:"recipient_id"`
	SenderID    *domain.AccountID     `json:"sender_id,omitempty"`
	Title       string                `json:"title"`
	Body        string                `json:"body"`
	Type        Type                  `json:"type"`
	Priority    Priority              `json:"priority"`
	Payload     map[string]any        `json:"payload,omitempty"`
	Read        bool                  `json:"read"`
	ReadAt      *time.Time            `json:"read_at,omitempty"`
	ExpiresAt   *time.Time            `json:"expires_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// Draft is the caller-supplied part of a notification.
type Draft struct {
	RecipientID domain.AccountID
	SenderID    *domain.AccountID
	Title       string
	Body        string
	Type        Type
	Priority    Priority
	Payload     map[string]any
	ExpiresAt   *time.Time
}

// NewNotification validates a draft.
func NewNotification(id domain.NotificationID, d Draft, now time.Time) (*Notification, error) {
	if d.RecipientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification recipient is required")
	}
	if d.Title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification title is required")
	}
	if len(d.Title) > 200 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification title must be 200 characters or less")
	}
	if d.Type == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification type is required")
	}
	priority := d.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification priority must be low, normal, high or urgent")
	}
	if d.ExpiresAt != nil && !d.ExpiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification expiry must be in the future")
	}
	return &Notification{
		ID:          id,
		RecipientID: d.RecipientID,
		SenderID:    d.SenderID,
		Title:       d.Title,
		Body:        d.Body,
		Type:        d.Type,
		Priority:    priority,
		Payload:     d.Payload,
		ExpiresAt:   d.ExpiresAt,
		CreatedAt:   now,
	}, nil
}

// IsExpired reports whether the notification should no longer be listed.
func (n *Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && !now.Before(*n.ExpiresAt)
}

// MarkRead records the first read. Returns false when already read.
func (n *Notification) MarkRead(now time.Time) bool {
	if n.Read {
		return false
	}
	n.Read = true
	n.ReadAt = &now
	return true
}

func (n *Notification) ResourceType() string    { return "notification" }
func (n *Notification) ResourceID() string      { return n.ID.String() }
func (n *Notification) Owner() domain.AccountID { return n.RecipientID }
