package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"petcare/internal/access"
	"petcare/internal/pets/models"
	"petcare/internal/pets/service"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

// Service defines the pet operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Pet, error)
	Get(ctx context.Context, id domain.PetID) (*models.Pet, error)
	List(ctx context.Context) ([]*models.Pet, error)
	LoadByParam(ctx context.Context, raw string) (*models.Pet, error)
	Deactivate(ctx context.Context, pet *models.Pet) (*models.Pet, error)
}

type Handler struct {
	logger    *slog.Logger
	pets      Service
	ownership *access.OwnershipResolver
}

func New(pets Service, ownership *access.OwnershipResolver, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, pets: pets, ownership: ownership}
}

// Register mounts the pet routes. The caller wraps r with authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/pets", h.HandleList)
	r.Get("/pets/{petID}", h.HandleGet)
	r.With(access.OwnershipMiddleware(h.ownership, "petID", h.pets.LoadByParam, access.OwnerOf[*models.Pet]())).
		Delete("/pets/{petID}", h.HandleDeactivate)
}

// RegisterIntake mounts pet registration. The caller wraps r with the role
// gate.
func (h *Handler) RegisterIntake(r chi.Router) {
	r.Post("/pets", h.HandleCreate)
}

type createRequest struct {
	Name    string  `json:"name"`
	Species string  `json:"species"`
	OwnerID *string `json:"owner_id,omitempty"`
}

type PetResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type listResponse struct {
	Pets  []PetResponse `json:"pets"`
	Count int           `json:"count"`
}

func toResponse(p *models.Pet) PetResponse {
	return PetResponse{
		ID:        p.ID.String(),
		OwnerID:   p.OwnerID.String(),
		Name:      p.Name,
		Species:   p.Species,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
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
	in := service.CreateInput{Name: req.Name, Species: req.Species}
	if req.OwnerID != nil {
		owner, err := domain.ParseAccountID(*req.OwnerID)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid owner_id"))
			return
		}
		in.OwnerID = &owner
	}

	pet, err := h.pets.Create(ctx, in)
	if err != nil {
		h.logError(ctx, "failed to create pet", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "pet created",
		"request_id", requestID,
		"pet_id", pet.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, toResponse(pet))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParsePetID(chi.URLParam(r, "petID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pet, err := h.pets.Get(ctx, id)
	if err != nil {
		h.logError(ctx, "failed to get pet", err,
			"request_id", requestcontext.RequestID(ctx),
			"pet_id", id.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(pet))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pets, err := h.pets.List(ctx)
	if err != nil {
		h.logError(ctx, "failed to list pets", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	resp := listResponse{Pets: make([]PetResponse, 0, len(pets)), Count: len(pets)}
	for _, p := range pets {
		resp.Pets = append(resp.Pets, toResponse(p))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pet, ok := access.ResourceFrom[*models.Pet](ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "pet missing from context"))
		return
	}
	updated, err := h.pets.Deactivate(ctx, pet)
	if err != nil {
		h.logError(ctx, "failed to deactivate pet", err,
			"request_id", requestcontext.RequestID(ctx),
			"pet_id", pet.ID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
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
