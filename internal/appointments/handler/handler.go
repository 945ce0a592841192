package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"petcare/internal/access"
	"petcare/internal/appointments/models"
	"petcare/internal/appointments/service"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

// Service defines the appointment operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Appointment, error)
	List(ctx context.Context) ([]*models.Appointment, error)
	LoadByParam(ctx context.Context, raw string) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, appt *models.Appointment, change service.StatusChange) (*models.Appointment, error)
}

type Handler struct {
	logger       *slog.Logger
	appointments Service
	ownership    *access.OwnershipResolver
}

func New(appointments Service, ownership *access.OwnershipResolver, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, appointments: appointments, ownership: ownership}
}

// Register mounts routes readable by any participant.
func (h *Handler) Register(r chi.Router) {
	participant := access.OwnershipMiddleware(h.ownership, "appointmentID", h.appointments.LoadByParam, access.ParticipantOf[*models.Appointment]())

	r.Get("/appointments", h.HandleList)
	r.With(participant).Get("/appointments/{appointmentID}", h.HandleGet)
	r.With(participant).Post("/appointments/{appointmentID}/status", h.HandleUpdateStatus)
}

// RegisterBooking mounts appointment creation. The caller wraps r with the
// role gate for owners and shelters.
func (h *Handler) RegisterBooking(r chi.Router) {
	r.Post("/appointments", h.HandleCreate)
}

type createRequest struct {
	PetID       string    `json:"pet_id"`
	VetID       string    `json:"vet_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Reason      string    `json:"reason,omitempty"`
}

type statusRequest struct {
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

type AppointmentResponse struct {
	ID          string    `json:"id"`
	PetID       string    `json:"pet_id"`
	OwnerID     string    `json:"owner_id"`
	VetID       string    `json:"vet_id"`
	Status      string    `json:"status"`
	VetAccepted bool      `json:"vet_accepted"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type listResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Count        int                   `json:"count"`
}

func toResponse(a *models.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID.String(),
		PetID:       a.PetID.String(),
		OwnerID:     a.OwnerID.String(),
		VetID:       a.VetID.String(),
		Status:      a.Status.String(),
		VetAccepted: a.VetAccepted,
		ScheduledAt: a.ScheduledAt,
		Reason:      a.Reason,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req createRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	petID, err := domain.ParsePetID(req.PetID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid pet_id"))
		return
	}
	vetID, err := domain.ParseAccountID(req.VetID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid vet_id"))
		return
	}

	appt, err := h.appointments.Create(ctx, service.CreateInput{
		PetID:       petID,
		VetID:       vetID,
		ScheduledAt: req.ScheduledAt,
		Reason:      req.Reason,
	})
	if err != nil {
		h.logError(ctx, "failed to create appointment", err,
			"request_id", requestID,
			"pet_id", petID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "appointment created",
		"request_id", requestID,
		"appointment_id", appt.ID.String(),
		"vet_id", appt.VetID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, toResponse(appt))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appts, err := h.appointments.List(ctx)
	if err != nil {
		h.logError(ctx, "failed to list appointments", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	resp := listResponse{Appointments: make([]AppointmentResponse, 0, len(appts)), Count: len(appts)}
	for _, a := range appts {
		resp.Appointments = append(resp.Appointments, toResponse(a))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	appt, ok := access.ResourceFrom[*models.Appointment](r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "appointment missing from context"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(appt))
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	appt, ok := access.ResourceFrom[*models.Appointment](ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "appointment missing from context"))
		return
	}

	var req statusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	next, err := models.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	previous := appt.Status
	updated, err := h.appointments.UpdateStatus(ctx, appt, service.StatusChange{Status: next, ScheduledAt: req.ScheduledAt})
	if err != nil {
		h.logError(ctx, "failed to update appointment status", err,
			"request_id", requestID,
			"appointment_id", appt.ID.String(),
			"from", previous.String(),
			"to", next.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "appointment status changed",
		"request_id", requestID,
		"appointment_id", updated.ID.String(),
		"from", previous.String(),
		"to", updated.Status.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) logError(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
