package access

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

// RoleGate checks the caller's role against the static set a route accepts.
type RoleGate struct {
	auditor audit.Recorder
	opts    options
}

func NewRoleGate(auditor audit.Recorder, opts ...Option) *RoleGate {
	return &RoleGate{auditor: auditor, opts: newOptions(opts)}
}

// Check passes when caller.Role is in allowed. Unverified admins are denied
// with CodeAdminUnverified on every gated route. Denials of authenticated
// callers are audited as unauthorized_access_attempt.
func (g *RoleGate) Check(ctx context.Context, caller domain.Caller, allowed ...domain.Role) error {
	ctx, span := g.opts.tracer.Start(ctx, "access.RoleGate.Check", trace.WithAttributes(
		attribute.String("caller.role", caller.Role.String()),
		attribute.StringSlice("required_roles", domain.Roles(allowed)),
	))
	defer span.End()

	if !caller.IsAuthenticated() {
		span.SetStatus(codes.Error, "unauthenticated")
		return unauthenticated()
	}

	var (
		reason string
		err    error
	)
	switch {
	case !caller.Active:
		reason, err = ReasonAccountDisabled, accountDisabled()
	case caller.Role == domain.RoleAdmin && !caller.Verified:
		reason, err = ReasonAdminUnverified, adminUnverified()
	case !slices.Contains(allowed, caller.Role):
		reason = ReasonRoleNotPermitted
		err = dErrors.Forbidden(reason, "role "+caller.Role.String()+" may not access this resource; requires "+
			strings.Join(domain.Roles(allowed), " or "))
	}
	if err == nil {
		g.opts.metrics.IncrementGrant(resolverRoleGate)
		span.SetAttributes(attribute.String("decision", "grant"))
		return nil
	}

	span.SetAttributes(attribute.String("decision", "deny"), attribute.String("reason", reason))
	recordDenial(ctx, g.opts, g.auditor, caller, denial{
		resolver:     resolverRoleGate,
		action:       audit.ActionUnauthorizedAccessAttempt,
		resourceType: "route",
		resourceID:   requestcontext.Path(ctx),
		reason:       reason,
		detail: map[string]any{
			"required_roles": domain.Roles(allowed),
		},
	})
	return err
}

// RequireRole is the middleware form of Check. It expects the auth
// middleware to have placed the caller in the request context.
func (g *RoleGate) RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if err := g.Check(ctx, requestcontext.Caller(ctx), roles...); err != nil {
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
