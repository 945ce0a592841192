package audit

import (
	"context"
	"time"

	"petcare/pkg/domain"
)

// Action names a recorded event. Denial actions are consumed by SIEM rules,
// so their spelling is part of the external contract.
type Action string

const (
	// Access denials
	ActionUnauthorizedAccessAttempt         Action = "unauthorized_access_attempt"
	ActionUnauthorizedVetPetAccess          Action = "unauthorized_vet_pet_access"
	ActionUnauthorizedVetHealthRecordAccess Action = "unauthorized_vet_health_record_access"
	ActionUnauthorizedVetDocumentAccess     Action = "unauthorized_vet_document_access"
	ActionUnauthorizedOwnershipAccess       Action = "unauthorized_ownership_access"

	// Identity
	ActionLogin         Action = "login"
	ActionLoginFailed   Action = "login_failed"
	ActionLogout        Action = "logout"
	ActionEmailVerified Action = "email_verified"

	// Admin account management
	ActionAccountVerified    Action = "account_verified"
	ActionVetVerified        Action = "vet_verified"
	ActionAccountDeactivated Action = "account_deactivated"
	ActionAccountReactivated Action = "account_reactivated"

	// Domain mutations
	ActionPetCreated               Action = "pet_created"
	ActionPetDeactivated           Action = "pet_deactivated"
	ActionHealthRecordCreated      Action = "health_record_created"
	ActionDocumentCreated          Action = "document_created"
	ActionOrderCreated             Action = "order_created"
	ActionChatRoomCreated          Action = "chat_room_created"
	ActionAppointmentCreated       Action = "appointment_created"
	ActionAppointmentStatusChanged Action = "appointment_status_changed"
	ActionNotificationBroadcast    Action = "notification_broadcast"
	ActionVetEngaged               Action = "vet_engaged"
)

// Severity levels, used by SIEM routing.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Outcome of the recorded action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// actionSeverity maps actions to their default severity when the caller
// leaves Severity empty. Unknown actions default to info.
var actionSeverity = map[Action]Severity{
	ActionUnauthorizedAccessAttempt:         SeverityWarning,
	ActionUnauthorizedVetPetAccess:          SeverityWarning,
	ActionUnauthorizedVetHealthRecordAccess: SeverityWarning,
	ActionUnauthorizedVetDocumentAccess:     SeverityWarning,
	ActionUnauthorizedOwnershipAccess:       SeverityWarning,
	ActionLoginFailed:                       SeverityWarning,
	ActionAccountDeactivated:                SeverityCritical,
}

// DefaultSeverity returns the severity recorded for a when none is given.
func (a Action) DefaultSeverity() Severity {
	if s, ok := actionSeverity[a]; ok {
		return s
	}
	return SeverityInfo
}

// IsDenial reports whether a is one of the unauthorized_* actions.
func (a Action) IsDenial() bool {
	switch a {
	case ActionUnauthorizedAccessAttempt,
		ActionUnauthorizedVetPetAccess,
		ActionUnauthorizedVetHealthRecordAccess,
		ActionUnauthorizedVetDocumentAccess,
		ActionUnauthorizedOwnershipAccess:
		return true
	}
	return false
}

// Entry is one append-only audit log row.
type Entry struct {
	ID           domain.AuditEntryID
	ActorID      domain.AccountID // zero for anonymous actors
	ActorRole    domain.Role
	Action       Action
	ResourceType string
	ResourceID   string
	Detail       map[string]any
	Origin       string // client IP
	UserAgent    string
	RequestID    string
	Severity     Severity
	Outcome      Outcome
	CreatedAt    time.Time
}

// Filter narrows Query results. Zero fields match everything.
type Filter struct {
	ActorID      domain.AccountID
	Action       Action
	ResourceType string
	Severity     Severity
}

// Matches reports whether e satisfies f.
func (f Filter) Matches(e Entry) bool {
	if !f.ActorID.IsNil() && e.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	return true
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Page is an offset window over Query results.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page into the allowed range.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Store persists entries. Implementations expose no update or delete.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// Query returns entries ordered by CreatedAt DESC, ID DESC.
	Query(ctx context.Context, filter Filter, page Page) ([]Entry, error)
}

// Recorder is the fire-and-forget side channel used by request paths.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}
