package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"petcare/internal/access"
	notifymodels "petcare/internal/notifications/models"
	petmodels "petcare/internal/pets/models"
	"petcare/internal/records/models"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/sentinel"
	"petcare/pkg/requestcontext"
)

type Store interface {
	CreateDocument(ctx context.Context, d *models.Document) error
	FindDocument(ctx context.Context, id domain.DocumentID) (*models.Document, error)
	ListDocumentsForPet(ctx context.Context, petID domain.PetID) ([]*models.Document, error)
	CreateHealthRecord(ctx context.Context, h *models.HealthRecord) error
	ListHealthRecordsForPet(ctx context.Context, petID domain.PetID) ([]*models.HealthRecord, error)
}

type PetLookup interface {
	FindByID(ctx context.Context, id domain.PetID) (*petmodels.Pet, error)
}

type Notifier interface {
	Send(ctx context.Context, draft notifymodels.Draft) (*notifymodels.Notification, error)
}

// Service serves a pet's documents and health records. Vets reach them only
// through an appointment with the pet; owners through the pet they own.
type Service struct {
	store    Store
	pets     PetLookup
	authz    *access.Authorizer
	notifier Notifier
	auditor  audit.Recorder
	logger   *slog.Logger
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

func New(store Store, pets PetLookup, authz *access.Authorizer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		pets:   pets,
		authz:  authz,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) loadPet(ctx context.Context, id domain.PetID) (*petmodels.Pet, error) {
	pet, err := s.pets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, access.NotFound("pet")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pet")
	}
	return pet, nil
}

// EnsurePet reports a not found error for unknown pets.
func (s *Service) EnsurePet(ctx context.Context, id domain.PetID) error {
	_, err := s.loadPet(ctx, id)
	return err
}

// ListHealthRecords returns the pet's records newest first.
func (s *Service) ListHealthRecords(ctx context.Context, petID domain.PetID) ([]*models.HealthRecord, error) {
	pet, err := s.loadPet(ctx, petID)
	if err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	if err := access.AuthorizeVia(ctx, s.authz, caller, pet, access.OperationRead, access.HealthRecordTarget(pet.ID, "")); err != nil {
		return nil, err
	}
	out, err := s.store.ListHealthRecordsForPet(ctx, pet.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list health records")
	}
	return out, nil
}

type HealthRecordInput struct {
	Kind       models.RecordKind
	Summary    string
	RecordedAt time.Time
}

// CreateHealthRecord writes a record as the calling vet. The route is
// guarded by RequireVetRelationship with OperationWrite, which has already
// audited any non-vet or unrelated caller.
func (s *Service) CreateHealthRecord(ctx context.Context, petID domain.PetID, in HealthRecordInput) (*models.HealthRecord, error) {
	caller := requestcontext.Caller(ctx)
	if caller.Role != domain.RoleVet {
		return nil, dErrors.Forbidden(access.ReasonRoleNotVet, "health records are written by the treating veterinarian")
	}
	pet, err := s.loadPet(ctx, petID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	record, err := models.NewHealthRecord(domain.HealthRecordID(uuid.New()), pet.ID, pet.OwnerID, caller.ID, in.Kind, in.Summary, in.RecordedAt, now)
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.store.CreateHealthRecord(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create health record")
	}

	s.record(ctx, audit.ActionHealthRecordCreated, record.ResourceType(), record.ResourceID(), map[string]any{
		"pet_id":   pet.ID.String(),
		"owner_id": pet.OwnerID.String(),
		"kind":     string(record.Kind),
	})
	if s.notifier != nil {
		sender := caller.ID
		_, err := s.notifier.Send(ctx, notifymodels.Draft{
			RecipientID: pet.OwnerID,
			SenderID:    &sender,
			Type:        notifymodels.TypeHealthRecordAdded,
			Title:       "New health record for " + pet.Name,
			Body:        record.Summary,
			Payload: map[string]any{
				"pet_id":           pet.ID.String(),
				"health_record_id": record.ID.String(),
			},
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to notify owner of health record",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
				"pet_id", pet.ID.String(),
			)
		}
	}
	return record, nil
}

type DocumentInput struct {
	Title string
	Kind  string
}

// CreateDocument attaches a document to a pet owned by the caller. Verified
// admins may attach on the owner's behalf.
func (s *Service) CreateDocument(ctx context.Context, petID domain.PetID, in DocumentInput) (*models.Document, error) {
	pet, err := s.loadPet(ctx, petID)
	if err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	if caller.Role == domain.RoleVet {
		return nil, dErrors.Forbidden(access.ReasonRoleNotPermitted, "documents are uploaded by the pet's owner")
	}
	if err := access.RequireOwnership(ctx, s.authz.Ownership, caller, pet, access.OwnerOf[*petmodels.Pet]()); err != nil {
		return nil, err
	}
	doc, err := models.NewDocument(domain.DocumentID(uuid.New()), pet.ID, pet.OwnerID, in.Title, in.Kind, requestcontext.Now(ctx))
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create document")
	}
	s.record(ctx, audit.ActionDocumentCreated, doc.ResourceType(), doc.ResourceID(), map[string]any{
		"pet_id": pet.ID.String(),
		"kind":   doc.Kind,
	})
	return doc, nil
}

// GetDocument loads and authorizes a single document.
func (s *Service) GetDocument(ctx context.Context, id domain.DocumentID) (*models.Document, error) {
	doc, err := s.store.FindDocument(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, access.NotFound("document")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	caller := requestcontext.Caller(ctx)
	if err := access.AuthorizePetScoped(ctx, s.authz, caller, doc, access.OperationRead, audit.ActionUnauthorizedVetDocumentAccess); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns the documents attached to a pet.
func (s *Service) ListDocuments(ctx context.Context, petID domain.PetID) ([]*models.Document, error) {
	pet, err := s.loadPet(ctx, petID)
	if err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	if err := access.AuthorizeVia(ctx, s.authz, caller, pet, access.OperationRead, access.DocumentTarget(pet.ID, pet.ID.String())); err != nil {
		return nil, err
	}
	out, err := s.store.ListDocumentsForPet(ctx, pet.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, action audit.Action, resourceType, resourceID string, detail map[string]any) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Detail:       detail,
	})
}

func toValidation(err error) error {
	if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}
