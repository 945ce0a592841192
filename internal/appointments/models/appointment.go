package models

import (
	"time"

	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusInProgress  Status = "in-progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// transitions lists the legal next states. Completed and cancelled are
// terminal: a grant derived from them can never be reopened.
var transitions = map[Status][]Status{
	StatusPending:     {StatusConfirmed, StatusCancelled, StatusRescheduled},
	StatusConfirmed:   {StatusInProgress, StatusCancelled, StatusRescheduled},
	StatusInProgress:  {StatusCompleted, StatusCancelled},
	StatusRescheduled: {StatusPending, StatusConfirmed, StatusCancelled},
	StatusCompleted:   nil,
	StatusCancelled:   nil,
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown appointment status: "+s)
	}
	return st, nil
}

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Strings renders a status set for SQL arrays and audit detail.
func Strings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Appointment binds a vet to a pet and its owner. It is the only source of
// vet-to-pet capability.
type Appointment struct {
	ID          domain.AppointmentID `json:"id"`
	PetID       domain.PetID         `json:"pet_id"`
	OwnerID     domain.AccountID     `json:"owner_id"`
	VetID       domain.AccountID     `json:"vet_id"`
	Status      Status               `json:"status"`
	VetAccepted bool                 `json:"vet_accepted"`
	ScheduledAt time.Time            `json:"scheduled_at"`
	Reason      string               `json:"reason,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// NewAppointment builds a pending appointment.
func NewAppointment(id domain.AppointmentID, petID domain.PetID, ownerID, vetID domain.AccountID, scheduledAt time.Time, reason string, now time.Time) (*Appointment, error) {
	if petID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "pet is required")
	}
	if ownerID.IsNil() || vetID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner and vet are required")
	}
	if ownerID == vetID {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner and vet must differ")
	}
	if scheduledAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "scheduled time is required")
	}
	if len(reason) > 500 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "reason must be at most 500 characters")
	}
	return &Appointment{
		ID:          id,
		PetID:       petID,
		OwnerID:     ownerID,
		VetID:       vetID,
		Status:      StatusPending,
		ScheduledAt: scheduledAt,
		Reason:      reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsParticipant reports whether id is the owner or the vet.
func (a *Appointment) IsParticipant(id domain.AccountID) bool {
	return a.OwnerID == id || a.VetID == id
}

// CanTransitionTo validates a status change.
func (a *Appointment) CanTransitionTo(next Status) error {
	if !next.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown appointment status")
	}
	if a.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "appointment is "+string(a.Status))
	}
	if !a.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"cannot move appointment from "+string(a.Status)+" to "+string(next))
	}
	return nil
}

// ApplyTransition sets the new status. Call CanTransitionTo first.
func (a *Appointment) ApplyTransition(next Status, now time.Time) {
	a.Status = next
	a.UpdatedAt = now
}

// AcceptByVet records the vet's first engagement. Returns false if already
// accepted.
func (a *Appointment) AcceptByVet(now time.Time) bool {
	if a.VetAccepted {
		return false
	}
	a.VetAccepted = true
	a.UpdatedAt = now
	return true
}

func (a *Appointment) ResourceType() string { return "appointment" }
func (a *Appointment) ResourceID() string   { return a.ID.String() }

// Participants lists the accounts allowed to act on the appointment.
func (a *Appointment) Participants() []domain.AccountID {
	return []domain.AccountID{a.OwnerID, a.VetID}
}

// CounterpartOf returns the other participant, or a nil id when id is not a
// participant.
func (a *Appointment) CounterpartOf(id domain.AccountID) domain.AccountID {
	switch id {
	case a.OwnerID:
		return a.VetID
	case a.VetID:
		return a.OwnerID
	default:
		return domain.AccountID{}
	}
}
