package access

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

// OwnerField names the accounts that own a resource of type R.
type OwnerField[R any] struct {
	Name   string
	Owners func(R) []domain.AccountID
}

// OwnerOf matches the single registered owner.
func OwnerOf[R Owned]() OwnerField[R] {
	return OwnerField[R]{
		Name:   "owner",
		Owners: func(r R) []domain.AccountID { return []domain.AccountID{r.Owner()} },
	}
}

// ParticipantOf matches any participant, e.g. the owner or the vet of an
// appointment.
func ParticipantOf[R Participated]() OwnerField[R] {
	return OwnerField[R]{
		Name:   "participant",
		Owners: func(r R) []domain.AccountID { return r.Participants() },
	}
}

// OwnershipResolver grants a caller access to resources it owns. Verified
// admins always pass.
type OwnershipResolver struct {
	auditor audit.Recorder
	opts    options
}

func NewOwnershipResolver(auditor audit.Recorder, opts ...Option) *OwnershipResolver {
	return &OwnershipResolver{auditor: auditor, opts: newOptions(opts)}
}

// OpaqueDenials reports whether denials are rendered as not found.
func (o *OwnershipResolver) OpaqueDenials() bool {
	return o.opts.opaqueDenials
}

// RequireOwnership returns nil when caller is a verified admin or one of
// field.Owners(resource). A denial is audited with the actual owner and the
// attempted caller.
func RequireOwnership[R Resource](ctx context.Context, o *OwnershipResolver, caller domain.Caller, resource R, field OwnerField[R]) error {
	ctx, span := o.opts.tracer.Start(ctx, "access.RequireOwnership", trace.WithAttributes(
		attribute.String("caller.role", caller.Role.String()),
		attribute.String("resource.type", resource.ResourceType()),
		attribute.String("owner_field", field.Name),
	))
	defer span.End()

	if !caller.IsAuthenticated() {
		span.SetStatus(codes.Error, "unauthenticated")
		return unauthenticated()
	}
	owners := field.Owners(resource)
	if !caller.Active {
		return o.deny(ctx, span, caller, resource, field.Name, owners, ReasonAccountDisabled, accountDisabled())
	}

	switch caller.Role {
	case domain.RoleAdmin:
		if !caller.Verified {
			return o.deny(ctx, span, caller, resource, field.Name, owners, ReasonAdminUnverified, adminUnverified())
		}
		return o.grant(span)
	case domain.RoleOwner, domain.RoleShelter, domain.RoleVet:
		if slices.Contains(owners, caller.ID) {
			return o.grant(span)
		}
		var err error
		if o.opts.opaqueDenials {
			err = notFound(resource.ResourceType())
		} else {
			err = dErrors.Forbidden(ReasonNotOwner, "you do not have access to this "+displayName(resource.ResourceType()))
		}
		return o.deny(ctx, span, caller, resource, field.Name, owners, ReasonNotOwner, err)
	default:
		return unauthenticated()
	}
}

func (o *OwnershipResolver) grant(span trace.Span) error {
	o.opts.metrics.IncrementGrant(resolverOwnership)
	span.SetAttributes(attribute.String("decision", "grant"))
	return nil
}

func (o *OwnershipResolver) deny(ctx context.Context, span trace.Span, caller domain.Caller, resource Resource, field string, owners []domain.AccountID, reason string, err error) error {
	span.SetAttributes(attribute.String("decision", "deny"), attribute.String("reason", reason))
	detail := map[string]any{
		"attempted_by": caller.ID.String(),
		"owner_field":  field,
	}
	switch len(owners) {
	case 0:
	case 1:
		detail["actual_owner"] = owners[0].String()
	default:
		ids := make([]string, len(owners))
		for i, id := range owners {
			ids[i] = id.String()
		}
		detail["actual_owner"] = strings.Join(ids, ",")
	}
	recordDenial(ctx, o.opts, o.auditor, caller, denial{
		resolver:     resolverOwnership,
		action:       audit.ActionUnauthorizedOwnershipAccess,
		resourceType: resource.ResourceType(),
		resourceID:   resource.ResourceID(),
		reason:       reason,
		detail:       detail,
	})
	return err
}

// Loader fetches a resource by its URL identifier. A missing resource must be
// reported as CodeNotFound.
type Loader[R Resource] func(ctx context.Context, id string) (R, error)

// OwnershipMiddleware loads the resource named by the URL parameter, answers
// 404 if it does not exist, then applies RequireOwnership. The loaded
// resource is available to the handler through ResourceFrom.
func OwnershipMiddleware[R Resource](o *OwnershipResolver, param string, load Loader[R], field OwnerField[R]) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			resource, err := load(ctx, chi.URLParam(r, param))
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			if err := RequireOwnership(ctx, o, requestcontext.Caller(ctx), resource, field); err != nil {
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithResource(ctx, resource)))
		})
	}
}

type resourceKey struct{}

// WithResource stores an authorized resource in ctx.
func WithResource(ctx context.Context, r Resource) context.Context {
	return context.WithValue(ctx, resourceKey{}, r)
}

// ResourceFrom returns the resource placed by OwnershipMiddleware.
func ResourceFrom[R Resource](ctx context.Context) (R, bool) {
	r, ok := ctx.Value(resourceKey{}).(R)
	return r, ok
}

func notFound(resourceType string) error {
	return dErrors.New(dErrors.CodeNotFound, displayName(resourceType)+" not found")
}

// NotFound is the error loaders return for a missing resource, so opaque
// denials and real misses render identically.
func NotFound(resourceType string) error {
	return notFound(resourceType)
}

func displayName(resourceType string) string {
	return strings.ReplaceAll(resourceType, "_", " ")
}
