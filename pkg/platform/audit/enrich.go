package audit

import (
	"context"

	"github.com/google/uuid"

	"petcare/pkg/domain"
	"petcare/pkg/requestcontext"
)

// Enrich fills request-derived fields the caller left empty: actor from the
// authenticated caller, origin, user agent, request id, timestamp, severity
// and outcome. Explicit values are never overwritten.
func Enrich(ctx context.Context, e Entry) Entry {
	if e.ID == (domain.AuditEntryID{}) {
		e.ID = domain.AuditEntryID(uuid.New())
	}
	if caller := requestcontext.Caller(ctx); caller.IsAuthenticated() && e.ActorID.IsNil() {
		e.ActorID = caller.ID
		e.ActorRole = caller.Role
	}
	if e.Origin == "" {
		e.Origin = requestcontext.ClientIP(ctx)
	}
	if e.UserAgent == "" {
		e.UserAgent = requestcontext.UserAgent(ctx)
	}
	if e.RequestID == "" {
		e.RequestID = requestcontext.RequestID(ctx)
	}
	if device := requestcontext.DeviceName(ctx); device != "" {
		if e.Detail == nil {
			e.Detail = map[string]any{}
		}
		if _, ok := e.Detail["device"]; !ok {
			e.Detail["device"] = device
		}
	}
	if e.Severity == "" {
		e.Severity = e.Action.DefaultSeverity()
	}
	if e.Outcome == "" {
		if e.Action.IsDenial() {
			e.Outcome = OutcomeFailure
		} else {
			e.Outcome = OutcomeSuccess
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = requestcontext.Now(ctx)
	}
	return e
}
