package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"petcare/internal/account/models"
	notifymodels "petcare/internal/notifications/models"
	"petcare/internal/platform/metrics"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/sentinel"
	"petcare/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, a *models.Account) error
	FindByID(ctx context.Context, id domain.AccountID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Update(ctx context.Context, a *models.Account) error
}

// Notifier delivers in-app notifications to the affected account.
type Notifier interface {
	Send(ctx context.Context, draft notifymodels.Draft) (*notifymodels.Notification, error)
}

const minPasswordLength = 8

// Service manages account lifecycle. Every admin action is audited and the
// subject is notified.
type Service struct {
	store      Store
	logger     *slog.Logger
	auditor    audit.Recorder
	notifier   Notifier
	metrics    *metrics.Metrics
	bcryptCost int
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithBcryptCost overrides the hashing cost (tests use bcrypt.MinCost).
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an active, unverified account.
func (s *Service) Register(ctx context.Context, email, password string, role domain.Role) (*models.Account, error) {
	if len(password) < minPasswordLength {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	a, err := models.NewAccount(domain.AccountID(uuid.New()), email, string(hash), role, requestcontext.Now(ctx))
	if err != nil {
		if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariantViolation {
			return nil, dErrors.New(dErrors.CodeValidation, de.Message)
		}
		return nil, err
	}
	if err := s.store.Create(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}
	s.metrics.IncrementAccountsCreated()
	return a, nil
}

// EnsureAdmin creates a verified admin for email unless an account with that
// address already exists. It returns the existing account untouched.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*models.Account, bool, error) {
	existing, err := s.store.FindByEmail(ctx, models.NormalizeEmail(email))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up admin")
	}

	a, err := s.Register(ctx, email, password, domain.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	now := requestcontext.Now(ctx)
	a.ApplyVerification(now)
	a.ConfirmEmail(now)
	if err := s.store.Update(ctx, a); err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify admin")
	}
	s.record(ctx, audit.ActionAccountVerified, a)
	return a, true, nil
}

// Get loads an account.
func (s *Service) Get(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return a, nil
}

// transition describes one admin state change.
type transition struct {
	action audit.Action
	check  func(a *models.Account) error
	apply  func(a *models.Account, now time.Time)
	notice notifymodels.Draft
}

// Verify approves general identity verification (and admin privileges for
// admin accounts).
func (s *Service) Verify(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	return s.apply(ctx, id, transition{
		action: audit.ActionAccountVerified,
		check:  (*models.Account).CanVerify,
		apply:  (*models.Account).ApplyVerification,
		notice: notifymodels.Draft{
			Type:  notifymodels.TypeAccountVerified,
			Title: "Your account has been verified",
		},
	})
}

// VerifyVet approves a vet's professional credentials.
func (s *Service) VerifyVet(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	return s.apply(ctx, id, transition{
		action: audit.ActionVetVerified,
		check:  (*models.Account).CanVerifyVet,
		apply:  (*models.Account).ApplyVetVerification,
		notice: notifymodels.Draft{
			Type:     notifymodels.TypeVetVerified,
			Title:    "Your veterinary credentials have been approved",
			Priority: notifymodels.PriorityHigh,
		},
	})
}

// Deactivate soft-disables an account. Admins cannot disable themselves.
func (s *Service) Deactivate(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	if requestcontext.Caller(ctx).ID == id {
		return nil, dErrors.New(dErrors.CodeConflict, "admins cannot deactivate their own account")
	}
	return s.apply(ctx, id, transition{
		action: audit.ActionAccountDeactivated,
		check:  (*models.Account).CanDeactivate,
		apply:  (*models.Account).ApplyDeactivation,
		notice: notifymodels.Draft{
			Type:     notifymodels.TypeAccountDeactivated,
			Title:    "Your account has been deactivated",
			Priority: notifymodels.PriorityUrgent,
		},
	})
}

// Reactivate restores a deactivated account.
func (s *Service) Reactivate(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	return s.apply(ctx, id, transition{
		action: audit.ActionAccountReactivated,
		check:  (*models.Account).CanReactivate,
		apply:  (*models.Account).ApplyReactivation,
		notice: notifymodels.Draft{
			Type:  notifymodels.TypeAccountReactivated,
			Title: "Your account has been reactivated",
		},
	})
}

// ConfirmEmail marks the account's address as confirmed. Confirming an
// already confirmed address is a no-op.
func (s *Service) ConfirmEmail(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	return s.apply(ctx, id, transition{
		action: audit.ActionEmailVerified,
		check: func(a *models.Account) error {
			if a.EmailVerified {
				return errNoChange
			}
			return nil
		},
		apply: func(a *models.Account, now time.Time) { a.ConfirmEmail(now) },
		notice: notifymodels.Draft{
			Type:     notifymodels.TypeEmailConfirmed,
			Title:    "Your email address is confirmed",
			Priority: notifymodels.PriorityLow,
		},
	})
}

var errNoChange = errors.New("no change")

func (s *Service) apply(ctx context.Context, id domain.AccountID, t transition) (*models.Account, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := t.check(a); err != nil {
		if errors.Is(err, errNoChange) {
			return a, nil
		}
		if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariantViolation {
			return nil, dErrors.New(dErrors.CodeConflict, de.Message)
		}
		return nil, err
	}

	now := requestcontext.Now(ctx)
	t.apply(a, now)
	if err := s.store.Update(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update account")
	}

	s.record(ctx, t.action, a)
	s.notify(ctx, a.ID, t.notice)
	return a, nil
}

func (s *Service) record(ctx context.Context, action audit.Action, a *models.Account) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		Action:       action,
		ResourceType: "account",
		ResourceID:   a.ID.String(),
		Detail: map[string]any{
			"subject_role": a.Role.String(),
			"active":       a.Active,
			"verified":     a.Verified,
			"vet_verified": a.VetVerified,
		},
	})
}

func (s *Service) notify(ctx context.Context, recipient domain.AccountID, draft notifymodels.Draft) {
	if s.notifier == nil {
		return
	}
	draft.RecipientID = recipient
	if caller := requestcontext.Caller(ctx); caller.IsAuthenticated() && caller.ID != recipient {
		sender := caller.ID
		draft.SenderID = &sender
	}
	if _, err := s.notifier.Send(ctx, draft); err != nil {
		s.logger.WarnContext(ctx, "failed to notify account",
			"error", err,
			"account_id", recipient.String(),
			"type", string(draft.Type),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
