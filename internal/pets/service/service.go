package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"petcare/internal/access"
	"petcare/internal/pets/models"
	"petcare/internal/pets/store"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/sentinel"
	"petcare/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, p *models.Pet) error
	FindByID(ctx context.Context, id domain.PetID) (*models.Pet, error)
	Update(ctx context.Context, p *models.Pet) error
	List(ctx context.Context, f store.Filter) ([]*models.Pet, error)
}

type Service struct {
	store   Store
	authz   *access.Authorizer
	auditor audit.Recorder
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(r audit.Recorder) Option {
	return func(s *Service) { s.auditor = r }
}

func New(store Store, authz *access.Authorizer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		authz:  authz,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries a new pet. OwnerID is honoured only for admins; other
// callers always register pets to themselves.
type CreateInput struct {
	Name    string
	Species string
	OwnerID *domain.AccountID
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Pet, error) {
	caller := requestcontext.Caller(ctx)
	owner := caller.ID
	if caller.Role == domain.RoleAdmin {
		if in.OwnerID == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "owner_id is required when an admin registers a pet")
		}
		owner = *in.OwnerID
	}

	pet, err := models.NewPet(domain.PetID(uuid.New()), owner, in.Name, in.Species, requestcontext.Now(ctx))
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.store.Create(ctx, pet); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create pet")
	}
	s.record(ctx, audit.ActionPetCreated, pet)
	return pet, nil
}

// Load fetches a pet without authorization. Handlers pair it with an
// access guard.
func (s *Service) Load(ctx context.Context, id domain.PetID) (*models.Pet, error) {
	pet, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, access.NotFound("pet")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pet")
	}
	return pet, nil
}

// LoadByParam is an access.Loader for routes carrying the pet id.
func (s *Service) LoadByParam(ctx context.Context, raw string) (*models.Pet, error) {
	id, err := domain.ParsePetID(raw)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, id)
}

// Get returns the pet if the caller owns it or treats it.
func (s *Service) Get(ctx context.Context, id domain.PetID) (*models.Pet, error) {
	pet, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	if err := access.AuthorizePetScoped(ctx, s.authz, caller, pet, access.OperationRead, audit.ActionUnauthorizedVetPetAccess); err != nil {
		return nil, err
	}
	return pet, nil
}

// List scopes by role: owners and shelters see their own pets, vets the pets
// reachable through their appointments, verified admins everything.
func (s *Service) List(ctx context.Context) ([]*models.Pet, error) {
	caller := requestcontext.Caller(ctx)
	filter := store.Filter{ActiveOnly: true}

	switch caller.Role {
	case domain.RoleOwner, domain.RoleShelter:
		owner := caller.ID
		filter.OwnerID = &owner
	case domain.RoleVet, domain.RoleAdmin:
		scope, err := s.authz.Relationships.VisiblePetIDs(ctx, caller, access.OperationRead)
		if err != nil {
			return nil, err
		}
		if !scope.IsUnrestricted() {
			filter.IDs = scope.IDs()
		}
	default:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	pets, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pets")
	}
	return pets, nil
}

// Deactivate soft-deletes an already authorized pet.
func (s *Service) Deactivate(ctx context.Context, pet *models.Pet) (*models.Pet, error) {
	if err := pet.CanDeactivate(); err != nil {
		return nil, err
	}
	pet.ApplyDeactivation(requestcontext.Now(ctx))
	if err := s.store.Update(ctx, pet); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate pet")
	}
	s.record(ctx, audit.ActionPetDeactivated, pet)
	return pet, nil
}

func (s *Service) record(ctx context.Context, action audit.Action, pet *models.Pet) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		Action:       action,
		ResourceType: "pet",
		ResourceID:   pet.ID.String(),
		Detail: map[string]any{
			"owner_id": pet.OwnerID.String(),
			"species":  pet.Species,
		},
	})
}

func toValidation(err error) error {
	if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}
