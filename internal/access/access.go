// Package access implements the request-time authorization layer: the role
// gate, the vet relationship resolver and the ownership resolver. Every
// decision is recomputed from the stores on each call and every denial of an
// authenticated caller is written to the audit trail.
package access

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"petcare/internal/access/metrics"
	apptmodels "petcare/internal/appointments/models"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/requestcontext"
)

// OperationClass selects the acceptable appointment statuses for a vet
// relationship check. Each call site declares it explicitly.
type OperationClass uint8

const (
	OperationRead OperationClass = iota + 1
	OperationWrite
)

func (o OperationClass) String() string {
	switch o {
	case OperationRead:
		return "read"
	case OperationWrite:
		return "write"
	default:
		return "unknown"
	}
}

// AcceptableStatuses returns the appointment statuses that grant a vet the
// given operation class. Write excludes pending.
func AcceptableStatuses(op OperationClass) []apptmodels.Status {
	switch op {
	case OperationRead:
		return []apptmodels.Status{
			apptmodels.StatusPending,
			apptmodels.StatusConfirmed,
			apptmodels.StatusInProgress,
			apptmodels.StatusCompleted,
		}
	case OperationWrite:
		return []apptmodels.Status{
			apptmodels.StatusConfirmed,
			apptmodels.StatusInProgress,
			apptmodels.StatusCompleted,
		}
	default:
		return nil
	}
}

// Denial reasons carried in CodeForbidden errors, audit detail and metrics.
const (
	ReasonRoleNotPermitted = "role_not_permitted"
	ReasonAdminUnverified  = "admin_unverified"
	ReasonAccountDisabled  = "account_disabled"
	ReasonVetUnverified    = "vet_unverified"
	ReasonRoleNotVet       = "role_not_vet"
	ReasonNoAppointment    = "no_active_appointment"
	ReasonNotOwner         = "not_owner"
)

const (
	resolverRoleGate     = "role_gate"
	resolverRelationship = "relationship"
	resolverOwnership    = "ownership"
)

// Resource is anything an authorization decision can name in the audit trail.
type Resource interface {
	ResourceType() string
	ResourceID() string
}

// Owned is a resource with a single owning account.
type Owned interface {
	Resource
	Owner() domain.AccountID
}

// PetScoped is an owned resource attached to a pet, so vets reach it through
// their appointments with that pet.
type PetScoped interface {
	Owned
	PetRef() domain.PetID
}

// Participated is a resource with several accounts that may act on it.
type Participated interface {
	Resource
	Participants() []domain.AccountID
}

type Option func(*options)

type options struct {
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	opaqueDenials bool
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithOpaqueDenials makes ownership denials indistinguishable from a missing
// resource (404). The audit entry is still written.
func WithOpaqueDenials(enabled bool) Option {
	return func(o *options) { o.opaqueDenials = enabled }
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer("petcare/internal/access"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// denial bundles what every denial path records.
type denial struct {
	resolver     string
	action       audit.Action
	resourceType string
	resourceID   string
	reason       string
	detail       map[string]any
}

// recordDenial writes the audit entry, counts the denial and logs it. The
// audit write is fire-and-forget; the request never waits on it.
func recordDenial(ctx context.Context, o options, auditor audit.Recorder, caller domain.Caller, d denial) {
	detail := map[string]any{
		"reason":      d.reason,
		"caller_role": caller.Role.String(),
		"method":      requestcontext.Method(ctx),
		"path":        requestcontext.Path(ctx),
	}
	for k, v := range d.detail {
		detail[k] = v
	}

	o.metrics.IncrementDenial(d.resolver, d.reason)
	o.logger.WarnContext(ctx, "access denied",
		"resolver", d.resolver,
		"reason", d.reason,
		"caller_id", caller.ID.String(),
		"caller_role", caller.Role.String(),
		"resource_type", d.resourceType,
		"resource_id", d.resourceID,
		"request_id", requestcontext.RequestID(ctx),
	)

	if auditor == nil {
		o.logger.ErrorContext(ctx, "no audit recorder configured; denial not persisted",
			"action", string(d.action),
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	auditor.Record(ctx, audit.Entry{
		ActorID:      caller.ID,
		ActorRole:    caller.Role,
		Action:       d.action,
		ResourceType: d.resourceType,
		ResourceID:   d.resourceID,
		Detail:       detail,
	})
}

func unauthenticated() error {
	return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
}

func accountDisabled() error {
	return dErrors.New(dErrors.CodeAccountDisabled, "account is disabled")
}

func adminUnverified() error {
	return &dErrors.Error{
		Code:    dErrors.CodeAdminUnverified,
		Message: "admin account has not been verified",
		Reason:  ReasonAdminUnverified,
	}
}
