package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"petcare/internal/access"
	"petcare/internal/notifications/models"
	"petcare/internal/notifications/store"
	"petcare/internal/realtime"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/sentinel"
	pstrings "petcare/pkg/platform/strings"
	"petcare/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id domain.NotificationID) (*models.Notification, error)
	MarkRead(ctx context.Context, n *models.Notification) error
	ListForRecipient(ctx context.Context, recipient domain.AccountID, f store.Filter) ([]*models.Notification, error)
}

// Directory resolves broadcast audiences.
type Directory interface {
	ListActiveIDsByRoles(ctx context.Context, roles []domain.Role) ([]domain.AccountID, error)
}

// Pusher is the realtime side of a notification.
type Pusher interface {
	ToUser(ctx context.Context, id domain.AccountID, eventType string, payload any)
}

const (
	defaultListLimit   = 50
	maxListLimit       = 200
	broadcastFanOutCap = 16
)

type Service struct {
	store     Store
	directory Directory
	pusher    Pusher
	auditor   audit.Recorder
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(r audit.Recorder) Option {
	return func(s *Service) { s.auditor = r }
}

func WithPusher(p Pusher) Option {
	return func(s *Service) { s.pusher = p }
}

func New(store Store, directory Directory, opts ...Option) *Service {
	s := &Service{
		store:     store,
		directory: directory,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send stores a notification for one recipient and pushes it to their open
// connections.
func (s *Service) Send(ctx context.Context, draft models.Draft) (*models.Notification, error) {
	n, err := models.NewNotification(domain.NotificationID(uuid.New()), draft, requestcontext.Now(ctx))
	if err != nil {
		return nil, toValidation(err)
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store notification")
	}
	s.push(ctx, n)
	return n, nil
}

func (s *Service) push(ctx context.Context, n *models.Notification) {
	if s.pusher != nil {
		s.pusher.ToUser(ctx, n.RecipientID, realtime.EventNotification, n)
	}
}

// BroadcastInput is an admin announcement. Empty TargetRoles reaches every
// active account.
type BroadcastInput struct {
	Title       string
	Body        string
	Priority    models.Priority
	TargetRoles []string
	Payload     map[string]any
}

type BroadcastResult struct {
	Recipients  int      `json:"recipients"`
	TargetRoles []string `json:"target_roles"`
}

// Broadcast creates one notification per active account in the target roles.
// Writes run concurrently; the first failure cancels the rest.
func (s *Service) Broadcast(ctx context.Context, in BroadcastInput) (*BroadcastResult, error) {
	roles, err := parseRoles(in.TargetRoles)
	if err != nil {
		return nil, err
	}
	caller := requestcontext.Caller(ctx)
	sender := caller.ID
	template := models.Draft{
		SenderID: &sender,
		Title:    in.Title,
		Body:     in.Body,
		Type:     models.TypeAnnouncement,
		Priority: in.Priority,
		Payload:  in.Payload,
	}
	// Validate once so a bad draft fails before anything is written.
	probe := template
	probe.RecipientID = caller.ID
	if _, err := models.NewNotification(domain.NotificationID(uuid.New()), probe, requestcontext.Now(ctx)); err != nil {
		return nil, toValidation(err)
	}

	recipients, err := s.directory.ListActiveIDsByRoles(ctx, roles)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve broadcast audience")
	}

	var sent atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastFanOutCap)
	for _, id := range recipients {
		g.Go(func() error {
			d := template
			d.RecipientID = id
			if _, err := s.Send(gctx, d); err != nil {
				return err
			}
			sent.Add(1)
			return nil
		})
	}
	waitErr := g.Wait()

	result := &BroadcastResult{Recipients: int(sent.Load()), TargetRoles: domain.Roles(roles)}
	s.record(ctx, audit.ActionNotificationBroadcast, "broadcast", map[string]any{
		"target_roles": result.TargetRoles,
		"audience":     len(recipients),
		"delivered":    result.Recipients,
		"title":        in.Title,
	})
	if waitErr != nil {
		s.logger.ErrorContext(ctx, "broadcast partially delivered",
			"request_id", requestcontext.RequestID(ctx),
			"audience", len(recipients),
			"delivered", result.Recipients,
			"error", waitErr,
		)
		return nil, dErrors.Wrap(waitErr, dErrors.CodeInternal, "broadcast partially delivered")
	}
	return result, nil
}

// parseRoles normalizes targetRoles. Duplicates and blanks are ignored.
func parseRoles(raw []string) ([]domain.Role, error) {
	names := pstrings.NormalizeList(raw)
	roles := make([]domain.Role, 0, len(names))
	for _, name := range names {
		role, err := domain.ParseRole(name)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown role in target_roles: "+name)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// ListInput controls List.
type ListInput struct {
	UnreadOnly bool
	Limit      int
}

// List returns the caller's unexpired notifications, newest first.
func (s *Service) List(ctx context.Context, in ListInput) ([]*models.Notification, error) {
	caller := requestcontext.Caller(ctx)
	if !caller.IsAuthenticated() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	out, err := s.store.ListForRecipient(ctx, caller.ID, store.Filter{
		UnreadOnly: in.UnreadOnly,
		Now:        requestcontext.Now(ctx),
		Limit:      limit,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return out, nil
}

// LoadByParam is an access.Loader for /notifications/{notificationID}.
func (s *Service) LoadByParam(ctx context.Context, raw string) (*models.Notification, error) {
	id, err := domain.ParseNotificationID(raw)
	if err != nil {
		return nil, err
	}
	n, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, access.NotFound("notification")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load notification")
	}
	return n, nil
}

// MarkRead marks an already authorized notification read. Marking twice is
// a no-op.
func (s *Service) MarkRead(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if !n.MarkRead(requestcontext.Now(ctx)) {
		return n, nil
	}
	if err := s.store.MarkRead(ctx, n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return n, nil
}

func (s *Service) record(ctx context.Context, action audit.Action, resourceID string, detail map[string]any) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		Action:       action,
		ResourceType: "notification",
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
