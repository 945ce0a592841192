package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"petcare/internal/access"
	accountmodels "petcare/internal/account/models"
	"petcare/internal/appointments/models"
	"petcare/internal/appointments/store"
	notifymodels "petcare/internal/notifications/models"
	petmodels "petcare/internal/pets/models"
	"petcare/internal/realtime"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/sentinel"
	"petcare/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, a *models.Appointment) error
	FindByID(ctx context.Context, id domain.AppointmentID) (*models.Appointment, error)
	Update(ctx context.Context, a *models.Appointment) error
	List(ctx context.Context, f store.Filter) ([]*models.Appointment, error)
}

type PetLookup interface {
	FindByID(ctx context.Context, id domain.PetID) (*petmodels.Pet, error)
}

type AccountLookup interface {
	FindByID(ctx context.Context, id domain.AccountID) (*accountmodels.Account, error)
}

type Notifier interface {
	Send(ctx context.Context, draft notifymodels.Draft) (*notifymodels.Notification, error)
}

// Pusher sends realtime events to connected participants.
type Pusher interface {
	ToUsers(ctx context.Context, ids []domain.AccountID, eventType string, payload any)
}

// vetOnly statuses describe clinical progress and can only be set by the vet
// on the appointment (or an admin).
var vetOnly = map[models.Status]bool{
	models.StatusConfirmed:  true,
	models.StatusInProgress: true,
	models.StatusCompleted:  true,
}

// Service owns the appointment lifecycle. Appointments are the only source
// of vet access to a pet, so every status change is audited.
type Service struct {
	store     Store
	pets      PetLookup
	accounts  AccountLookup
	ownership *access.OwnershipResolver
	notifier  Notifier
	pusher    Pusher
	auditor   audit.Recorder
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(r audit.Recorder) Option {
	return func(s *Service) { s.auditor = r }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithPusher(p Pusher) Option {
	return func(s *Service) { s.pusher = p }
}

func New(store Store, pets PetLookup, accounts AccountLookup, ownership *access.OwnershipResolver, opts ...Option) *Service {
	s := &Service{
		store:     store,
		pets:      pets,
		accounts:  accounts,
		ownership: ownership,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	PetID       domain.PetID
	VetID       domain.AccountID
	ScheduledAt time.Time
	Reason      string
}

// Create books a pending appointment between the pet's owner and a verified
// vet. Owners and shelters may only book for their own pets.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Appointment, error) {
	caller := requestcontext.Caller(ctx)
	now := requestcontext.Now(ctx)

	pet, err := s.pets.FindByID(ctx, in.PetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, access.NotFound("pet")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pet")
	}
	if err := access.RequireOwnership(ctx, s.ownership, caller, pet, access.OwnerOf[*petmodels.Pet]()); err != nil {
		return nil, err
	}
	if !pet.Active {
		return nil, dErrors.New(dErrors.CodeConflict, "pet is inactive")
	}
	if err := s.requireBookableVet(ctx, in.VetID); err != nil {
		return nil, err
	}
	if !in.ScheduledAt.IsZero() && !in.ScheduledAt.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "scheduled_at must be in the future")
	}

	appt, err := models.NewAppointment(domain.AppointmentID(uuid.New()), pet.ID, pet.OwnerID, in.VetID, in.ScheduledAt, in.Reason, now)
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.store.Create(ctx, appt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create appointment")
	}

	s.record(ctx, audit.ActionAppointmentCreated, appt, map[string]any{
		"pet_id":       appt.PetID.String(),
		"owner_id":     appt.OwnerID.String(),
		"vet_id":       appt.VetID.String(),
		"scheduled_at": appt.ScheduledAt,
	})
	s.notify(ctx, appt.VetID, notifymodels.Draft{
		Type:  notifymodels.TypeAppointmentCreated,
		Title: "New appointment request",
		Body:  "A new appointment for " + pet.Name + " is waiting for confirmation",
	}, appt)
	s.push(ctx, appt)
	return appt, nil
}

func (s *Service) requireBookableVet(ctx context.Context, id domain.AccountID) error {
	vet, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation, "vet_id must reference an active verified vet")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vet")
	}
	if vet.Role != domain.RoleVet || !vet.Active || !vet.VetVerified {
		return dErrors.New(dErrors.CodeValidation, "vet_id must reference an active verified vet")
	}
	return nil
}

// LoadByParam is an access.Loader for /appointments/{appointmentID}.
func (s *Service) LoadByParam(ctx context.Context, raw string) (*models.Appointment, error) {
	id, err := domain.ParseAppointmentID(raw)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, id)
}

func (s *Service) Load(ctx context.Context, id domain.AppointmentID) (*models.Appointment, error) {
	appt, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, access.NotFound("appointment")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load appointment")
	}
	return appt, nil
}

// List returns the caller's appointments; verified admins see all of them.
func (s *Service) List(ctx context.Context) ([]*models.Appointment, error) {
	caller := requestcontext.Caller(ctx)
	var f store.Filter
	if !caller.IsVerifiedAdmin() {
		id := caller.ID
		f.ParticipantID = &id
	}
	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list appointments")
	}
	return out, nil
}

type StatusChange struct {
	Status models.Status
	// ScheduledAt is only accepted together with StatusRescheduled.
	ScheduledAt *time.Time
}

// UpdateStatus moves an already authorized appointment to the requested
// status. Clinical states are reserved for the vet; the lifecycle table
// rejects illegal moves.
func (s *Service) UpdateStatus(ctx context.Context, appt *models.Appointment, change StatusChange) (*models.Appointment, error) {
	caller := requestcontext.Caller(ctx)
	now := requestcontext.Now(ctx)
	next := change.Status
	if vetOnly[next] && caller.ID != appt.VetID && !caller.IsVerifiedAdmin() {
		return nil, dErrors.Forbidden(access.ReasonRoleNotPermitted, "only the vet can mark an appointment "+next.String())
	}
	if change.ScheduledAt != nil {
		if next != models.StatusRescheduled {
			return nil, dErrors.New(dErrors.CodeValidation, "scheduled_at can only be changed when rescheduling")
		}
		if !change.ScheduledAt.After(now) {
			return nil, dErrors.New(dErrors.CodeValidation, "scheduled_at must be in the future")
		}
	}
	if err := appt.CanTransitionTo(next); err != nil {
		return nil, err
	}
	previous := appt.Status
	appt.ApplyTransition(next, now)
	if change.ScheduledAt != nil {
		appt.ScheduledAt = *change.ScheduledAt
	}
	if err := s.store.Update(ctx, appt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update appointment")
	}

	s.record(ctx, audit.ActionAppointmentStatusChanged, appt, map[string]any{
		"from": previous.String(),
		"to":   next.String(),
	})
	draft := notifymodels.Draft{
		Type:  notifymodels.TypeAppointmentStatus,
		Title: "Appointment " + next.String(),
	}
	if counterpart := appt.CounterpartOf(caller.ID); !counterpart.IsNil() {
		s.notify(ctx, counterpart, draft, appt)
	} else {
		s.notify(ctx, appt.OwnerID, draft, appt)
		s.notify(ctx, appt.VetID, draft, appt)
	}
	s.push(ctx, appt)
	return appt, nil
}

// MarkVetEngaged records the vet's first chat message. It reports whether
// this call flipped the flag.
func (s *Service) MarkVetEngaged(ctx context.Context, appt *models.Appointment) (bool, error) {
	if !appt.AcceptByVet(requestcontext.Now(ctx)) {
		return false, nil
	}
	if err := s.store.Update(ctx, appt); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record vet engagement")
	}
	s.record(ctx, audit.ActionVetEngaged, appt, map[string]any{
		"vet_id":   appt.VetID.String(),
		"owner_id": appt.OwnerID.String(),
	})
	s.notify(ctx, appt.OwnerID, notifymodels.Draft{
		Type:     notifymodels.TypeVetEngaged,
		Title:    "Your vet has joined the conversation",
		Priority: notifymodels.PriorityHigh,
	}, appt)
	s.push(ctx, appt)
	return true, nil
}

func (s *Service) push(ctx context.Context, appt *models.Appointment) {
	if s.pusher == nil {
		return
	}
	s.pusher.ToUsers(ctx, appt.Participants(), realtime.EventAppointment, map[string]any{
		"appointment_id": appt.ID.String(),
		"status":         appt.Status.String(),
		"vet_accepted":   appt.VetAccepted,
		"scheduled_at":   appt.ScheduledAt,
	})
}

func (s *Service) record(ctx context.Context, action audit.Action, appt *models.Appointment, detail map[string]any) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		Action:       action,
		ResourceType: "appointment",
		ResourceID:   appt.ID.String(),
		Detail:       detail,
	})
}

func (s *Service) notify(ctx context.Context, recipient domain.AccountID, draft notifymodels.Draft, appt *models.Appointment) {
	if s.notifier == nil {
		return
	}
	draft.RecipientID = recipient
	draft.Payload = map[string]any{
		"appointment_id": appt.ID.String(),
		"pet_id":         appt.PetID.String(),
		"status":         appt.Status.String(),
	}
	if caller := requestcontext.Caller(ctx); caller.IsAuthenticated() && caller.ID != recipient {
		sender := caller.ID
		draft.SenderID = &sender
	}
	if _, err := s.notifier.Send(ctx, draft); err != nil {
		s.logger.WarnContext(ctx, "failed to notify appointment participant",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
			"appointment_id", appt.ID.String(),
			"account_id", recipient.String(),
		)
	}
}

func toValidation(err error) error {
	if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}
