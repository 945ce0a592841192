package access

import (
	"bytes"
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apptmodels "petcare/internal/appointments/models"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

// AppointmentStore is the read side of appointment persistence the resolver
// depends on.
type AppointmentStore interface {
	ExistsForVetAndPet(ctx context.Context, vetID domain.AccountID, petID domain.PetID, statuses []apptmodels.Status) (bool, error)
	PetIDsForVet(ctx context.Context, vetID domain.AccountID, statuses []apptmodels.Status) ([]domain.PetID, error)
}

// Target names what a relationship check protects and which audit action a
// denial produces. The pet is always the anchor of the relationship.
type Target struct {
	PetID        domain.PetID
	ResourceType string
	ResourceID   string
	DenialAction audit.Action
}

// PetTarget protects the pet itself.
func PetTarget(petID domain.PetID) Target {
	return Target{
		PetID:        petID,
		ResourceType: "pet",
		ResourceID:   petID.String(),
		DenialAction: audit.ActionUnauthorizedVetPetAccess,
	}
}

// HealthRecordTarget protects the health records of a pet. recordID may be
// empty for collection routes.
func HealthRecordTarget(petID domain.PetID, recordID string) Target {
	if recordID == "" {
		recordID = petID.String()
	}
	return Target{
		PetID:        petID,
		ResourceType: "health_record",
		ResourceID:   recordID,
		DenialAction: audit.ActionUnauthorizedVetHealthRecordAccess,
	}
}

// DocumentTarget protects a document attached to a pet.
func DocumentTarget(petID domain.PetID, documentID string) Target {
	return Target{
		PetID:        petID,
		ResourceType: "document",
		ResourceID:   documentID,
		DenialAction: audit.ActionUnauthorizedVetDocumentAccess,
	}
}

// RelationshipResolver grants vets access to a pet only while an appointment
// in an acceptable status links them. Decisions are never cached.
type RelationshipResolver struct {
	appointments AppointmentStore
	auditor      audit.Recorder
	opts         options
}

func NewRelationshipResolver(appointments AppointmentStore, auditor audit.Recorder, opts ...Option) *RelationshipResolver {
	return &RelationshipResolver{
		appointments: appointments,
		auditor:      auditor,
		opts:         newOptions(opts),
	}
}

// Resolve checks caller against the pet itself.
func (r *RelationshipResolver) Resolve(ctx context.Context, caller domain.Caller, petID domain.PetID, op OperationClass) error {
	return r.ResolveTarget(ctx, caller, PetTarget(petID), op)
}

// ResolveTarget returns nil on grant. Verified admins pass without a lookup;
// unverified vets are denied before any data access; other roles are denied
// with role_not_vet. Every denial is audited exactly once.
func (r *RelationshipResolver) ResolveTarget(ctx context.Context, caller domain.Caller, t Target, op OperationClass) error {
	return r.resolve(ctx, caller, t, op, false)
}

// ResolveVetOnly is ResolveTarget for writes reserved to the treating vet:
// verified admins are denied with role_not_vet as well.
func (r *RelationshipResolver) ResolveVetOnly(ctx context.Context, caller domain.Caller, t Target, op OperationClass) error {
	return r.resolve(ctx, caller, t, op, true)
}

func (r *RelationshipResolver) resolve(ctx context.Context, caller domain.Caller, t Target, op OperationClass, vetOnly bool) error {
	ctx, span := r.opts.tracer.Start(ctx, "access.RelationshipResolver.Resolve", trace.WithAttributes(
		attribute.String("caller.role", caller.Role.String()),
		attribute.String("pet.id", t.PetID.String()),
		attribute.String("operation", op.String()),
	))
	defer span.End()

	if !caller.IsAuthenticated() {
		span.SetStatus(codes.Error, "unauthenticated")
		return unauthenticated()
	}
	if !caller.Active {
		return r.deny(ctx, span, caller, t, op, ReasonAccountDisabled, accountDisabled())
	}

	switch caller.Role {
	case domain.RoleAdmin:
		if !caller.Verified {
			return r.deny(ctx, span, caller, t, op, ReasonAdminUnverified, adminUnverified())
		}
		if vetOnly {
			return r.deny(ctx, span, caller, t, op, ReasonRoleNotVet, roleNotVet())
		}
		return r.grant(span)

	case domain.RoleVet:
		if !caller.VetVerified {
			return r.deny(ctx, span, caller, t, op, ReasonVetUnverified,
				dErrors.Forbidden(ReasonVetUnverified, "veterinarian credentials have not been verified"))
		}
		statuses := AcceptableStatuses(op)
		if statuses == nil {
			return dErrors.New(dErrors.CodeInternal, "unknown operation class")
		}
		start := time.Now()
		ok, err := r.appointments.ExistsForVetAndPet(ctx, caller.ID, t.PetID, statuses)
		r.opts.metrics.ObserveRelationshipLookup(time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "appointment lookup failed")
			r.opts.logger.ErrorContext(ctx, "failed to resolve vet relationship",
				"error", err,
				"vet_id", caller.ID.String(),
				"pet_id", t.PetID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve vet relationship")
		}
		if !ok {
			return r.deny(ctx, span, caller, t, op, ReasonNoAppointment,
				dErrors.Forbidden(ReasonNoAppointment, "no active appointment with this pet"))
		}
		return r.grant(span)

	case domain.RoleOwner, domain.RoleShelter:
		return r.deny(ctx, span, caller, t, op, ReasonRoleNotVet, roleNotVet())

	default:
		return unauthenticated()
	}
}

func (r *RelationshipResolver) grant(span trace.Span) error {
	r.opts.metrics.IncrementGrant(resolverRelationship)
	span.SetAttributes(attribute.String("decision", "grant"))
	return nil
}

func (r *RelationshipResolver) deny(ctx context.Context, span trace.Span, caller domain.Caller, t Target, op OperationClass, reason string, err error) error {
	span.SetAttributes(attribute.String("decision", "deny"), attribute.String("reason", reason))
	action := t.DenialAction
	if caller.Role != domain.RoleVet {
		action = audit.ActionUnauthorizedAccessAttempt
	}
	recordDenial(ctx, r.opts, r.auditor, caller, denial{
		resolver:     resolverRelationship,
		action:       action,
		resourceType: t.ResourceType,
		resourceID:   t.ResourceID,
		reason:       reason,
		detail:       relationshipDetail(caller, t, op),
	})
	return err
}

// relationshipDetail names the caller vet_id only when it is one.
func relationshipDetail(caller domain.Caller, t Target, op OperationClass) map[string]any {
	detail := map[string]any{
		"pet_id":    t.PetID.String(),
		"operation": op.String(),
	}
	if caller.Role == domain.RoleVet {
		detail["vet_id"] = caller.ID.String()
	} else {
		detail["attempted_by"] = caller.ID.String()
	}
	return detail
}

func roleNotVet() error {
	return dErrors.Forbidden(ReasonRoleNotVet, "this operation is reserved for the treating veterinarian")
}

// PetScope is the set of pets a caller may see in list queries.
type PetScope struct {
	unrestricted bool
	ids          map[domain.PetID]struct{}
}

// Unrestricted is the scope of verified admins.
func Unrestricted() PetScope {
	return PetScope{unrestricted: true}
}

// ScopeOf builds a restricted scope.
func ScopeOf(ids ...domain.PetID) PetScope {
	set := make(map[domain.PetID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return PetScope{ids: set}
}

func (s PetScope) IsUnrestricted() bool {
	return s.unrestricted
}

func (s PetScope) Contains(id domain.PetID) bool {
	if s.unrestricted {
		return true
	}
	_, ok := s.ids[id]
	return ok
}

// IDs returns the restricted set in stable order, or nil when unrestricted.
func (s PetScope) IDs() []domain.PetID {
	if s.unrestricted {
		return nil
	}
	out := make([]domain.PetID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b domain.PetID) int {
		return bytes.Compare(a[:], b[:])
	})
	return out
}

// Len reports the size of a restricted scope.
func (s PetScope) Len() int {
	return len(s.ids)
}

// FilterScope keeps the items whose pet is in scope.
func FilterScope[T any](scope PetScope, items []T, petOf func(T) domain.PetID) []T {
	if scope.unrestricted {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if scope.Contains(petOf(item)) {
			out = append(out, item)
		}
	}
	return out
}

// VisiblePetIDs computes, once per request, every pet the caller reaches
// through an appointment in an acceptable status. Verified admins get an
// unrestricted scope. Only vets and admins are accepted.
func (r *RelationshipResolver) VisiblePetIDs(ctx context.Context, caller domain.Caller, op OperationClass) (PetScope, error) {
	ctx, span := r.opts.tracer.Start(ctx, "access.RelationshipResolver.VisiblePetIDs", trace.WithAttributes(
		attribute.String("caller.role", caller.Role.String()),
		attribute.String("operation", op.String()),
	))
	defer span.End()

	if !caller.IsAuthenticated() {
		return PetScope{}, unauthenticated()
	}
	if !caller.Active {
		return PetScope{}, accountDisabled()
	}
	switch caller.Role {
	case domain.RoleAdmin:
		if !caller.Verified {
			return PetScope{}, adminUnverified()
		}
		return Unrestricted(), nil
	case domain.RoleVet:
		if !caller.VetVerified {
			return PetScope{}, dErrors.Forbidden(ReasonVetUnverified, "veterinarian credentials have not been verified")
		}
		ids, err := r.appointments.PetIDsForVet(ctx, caller.ID, AcceptableStatuses(op))
		if err != nil {
			span.RecordError(err)
			return PetScope{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve visible pets")
		}
		span.SetAttributes(attribute.Int("pets.visible", len(ids)))
		return ScopeOf(ids...), nil
	default:
		return PetScope{}, dErrors.Forbidden(ReasonRoleNotVet, "pet visibility by relationship applies to veterinarians only")
	}
}

// PetCheck reports NotFound for a pet that does not exist.
type PetCheck func(ctx context.Context, id domain.PetID) error

// RequireVetRelationship guards vet-only routes carrying a pet id URL
// parameter. When exists is set the pet is looked up first, so an unknown
// pet is a 404 rather than an audited denial. targetFor picks the audit
// target, PetTarget when nil.
func (r *RelationshipResolver) RequireVetRelationship(param string, op OperationClass, exists PetCheck, targetFor func(domain.PetID) Target) func(http.Handler) http.Handler {
	if targetFor == nil {
		targetFor = PetTarget
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()
			petID, err := domain.ParsePetID(chi.URLParam(req, param))
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid pet id"))
				return
			}
			if exists != nil {
				if err := exists(ctx, petID); err != nil {
					httputil.WriteError(w, err)
					return
				}
			}
			if err := r.ResolveVetOnly(ctx, requestcontext.Caller(ctx), targetFor(petID), op); err != nil {
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
