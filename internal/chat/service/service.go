package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"petcare/internal/access"
	accountmodels "petcare/internal/account/models"
	apptmodels "petcare/internal/appointments/models"
	"petcare/internal/chat/models"
	"petcare/internal/realtime"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/sentinel"
	"petcare/pkg/requestcontext"
)

const (
	defaultHistory = 50
	maxHistory     = 200
)

type Store interface {
	CreateRoom(ctx context.Context, r *models.Room) error
	FindRoom(ctx context.Context, id domain.ChatRoomID) (*models.Room, error)
	FindRoomByAppointment(ctx context.Context, id domain.AppointmentID) (*models.Room, error)
	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, roomID domain.ChatRoomID, limit int) ([]*models.Message, error)
}

// Appointments is the slice of the appointment service chat depends on.
type Appointments interface {
	Load(ctx context.Context, id domain.AppointmentID) (*apptmodels.Appointment, error)
	MarkVetEngaged(ctx context.Context, appt *apptmodels.Appointment) (bool, error)
}

type AccountLookup interface {
	FindByID(ctx context.Context, id domain.AccountID) (*accountmodels.Account, error)
}

// Rooms delivers events to everyone joined to a realtime room.
type Rooms interface {
	JoinRoom(room string, id domain.AccountID) int
	ToRoom(ctx context.Context, room, eventType string, payload any)
}

// Service runs owner/vet conversations. Admission is re-decided on every
// join and every message: vets need a live relationship with the pet and
// must be the room's vet; everyone else must be a participant.
type Service struct {
	store        Store
	appointments Appointments
	accounts     AccountLookup
	authz        *access.Authorizer
	rooms        Rooms
	auditor      audit.Recorder
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(r audit.Recorder) Option {
	return func(s *Service) { s.auditor = r }
}

func WithRooms(r Rooms) Option {
	return func(s *Service) { s.rooms = r }
}

func New(store Store, appointments Appointments, accounts AccountLookup, authz *access.Authorizer, opts ...Option) *Service {
	s := &Service{
		store:        store,
		appointments: appointments,
		accounts:     accounts,
		authz:        authz,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoom opens the room for an appointment, or returns the existing one.
func (s *Service) CreateRoom(ctx context.Context, appointmentID domain.AppointmentID) (*models.Room, bool, error) {
	caller := requestcontext.Caller(ctx)
	appt, err := s.appointments.Load(ctx, appointmentID)
	if err != nil {
		return nil, false, err
	}
	if err := access.RequireOwnership(ctx, s.authz.Ownership, caller, appt, access.ParticipantOf[*apptmodels.Appointment]()); err != nil {
		return nil, false, err
	}

	existing, err := s.store.FindRoomByAppointment(ctx, appt.ID)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up chat room")
	}
	if appt.Status.IsTerminal() {
		return nil, false, dErrors.New(dErrors.CodeConflict, "appointment is "+appt.Status.String())
	}

	apptID := appt.ID
	room, err := models.NewRoom(domain.ChatRoomID(uuid.New()), &apptID, appt.PetID, appt.OwnerID, appt.VetID, requestcontext.Now(ctx))
	if err != nil {
		return nil, false, err
	}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race with the other participant.
			existing, findErr := s.store.FindRoomByAppointment(ctx, appt.ID)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create chat room")
	}
	if s.auditor != nil {
		s.auditor.Record(ctx, audit.Entry{
			Action:       audit.ActionChatRoomCreated,
			ResourceType: room.ResourceType(),
			ResourceID:   room.ResourceID(),
			Detail: map[string]any{
				"appointment_id": appt.ID.String(),
				"pet_id":         appt.PetID.String(),
			},
		})
	}
	return room, true, nil
}

// admit loads the room and a fresh view of the caller concurrently, then
// authorizes the caller against the room. The fresh caller matters for
// websocket joins, whose identity was resolved when the socket opened.
func (s *Service) admit(ctx context.Context, roomID domain.ChatRoomID) (*models.Room, domain.Caller, error) {
	caller := requestcontext.Caller(ctx)
	if !caller.IsAuthenticated() {
		return nil, caller, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	var (
		room    *models.Room
		account *accountmodels.Account
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.store.FindRoom(gctx, roomID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return access.NotFound("chat_room")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load chat room")
		}
		room = r
		return nil
	})
	g.Go(func() error {
		a, err := s.accounts.FindByID(gctx, caller.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeUnauthorized, "account no longer exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load caller")
		}
		account = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, caller, err
	}
	caller = account.Caller()

	if caller.Role == domain.RoleVet {
		target := access.Target{
			PetID:        room.PetID,
			ResourceType: room.ResourceType(),
			ResourceID:   room.ResourceID(),
			DenialAction: audit.ActionUnauthorizedVetPetAccess,
		}
		if err := s.authz.Relationships.ResolveTarget(ctx, caller, target, access.OperationRead); err != nil {
			return nil, caller, err
		}
	}
	if err := access.RequireOwnership(ctx, s.authz.Ownership, caller, room, access.ParticipantOf[*models.Room]()); err != nil {
		return nil, caller, err
	}
	return room, caller, nil
}

// AuthorizeJoin lets the websocket endpoint gate room joins. ParseChatRoomID
// accepts uppercase and braced forms, so callers subscribe under the returned
// room name rather than the raw id.
func (s *Service) AuthorizeJoin(ctx context.Context, roomID string) (string, error) {
	id, err := domain.ParseChatRoomID(roomID)
	if err != nil {
		return "", err
	}
	room, _, err := s.admit(ctx, id)
	if err != nil {
		return "", err
	}
	return room.Name(), nil
}

// JoinRoom admits the caller and subscribes all of its live connections to
// the room. It returns the number of connections joined.
func (s *Service) JoinRoom(ctx context.Context, roomID domain.ChatRoomID) (*models.Room, int, error) {
	room, caller, err := s.admit(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}
	joined := 0
	if s.rooms != nil {
		joined = s.rooms.JoinRoom(room.Name(), caller.ID)
	}
	return room, joined, nil
}

// SendMessage stores a message and pushes it to the room. In a room bound to
// an appointment nobody but the vet may speak until the vet has engaged; the
// vet's first message marks the appointment accepted.
func (s *Service) SendMessage(ctx context.Context, roomID domain.ChatRoomID, body string) (*models.Message, error) {
	room, caller, err := s.admit(ctx, roomID)
	if err != nil {
		return nil, err
	}
	msg, err := models.NewMessage(room.ID, caller.ID, body, requestcontext.Now(ctx))
	if err != nil {
		if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariantViolation {
			return nil, dErrors.New(dErrors.CodeValidation, de.Message)
		}
		return nil, err
	}

	if room.AppointmentID != nil {
		appt, err := s.appointments.Load(ctx, *room.AppointmentID)
		if err != nil {
			return nil, err
		}
		if caller.ID == appt.VetID {
			if _, err := s.appointments.MarkVetEngaged(ctx, appt); err != nil {
				return nil, err
			}
		} else if !appt.VetAccepted {
			return nil, dErrors.New(dErrors.CodeConflict, "the vet has not joined this conversation yet")
		}
	}

	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store message")
	}
	if s.rooms != nil {
		s.rooms.ToRoom(ctx, room.Name(), realtime.EventChatMessage, msg)
	}
	return msg, nil
}

// History returns the latest messages of a room, oldest first.
func (s *Service) History(ctx context.Context, roomID domain.ChatRoomID, limit int) ([]*models.Message, error) {
	if _, _, err := s.admit(ctx, roomID); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultHistory
	case limit > maxHistory:
		limit = maxHistory
	}
	out, err := s.store.ListMessages(ctx, roomID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list messages")
	}
	return out, nil
}
