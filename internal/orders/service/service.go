package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"petcare/internal/access"
	"petcare/internal/orders/models"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/sentinel"
	"petcare/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id domain.OrderID) (*models.Order, error)
	List(ctx context.Context, ownerID *domain.AccountID) ([]*models.Order, error)
}

type Service struct {
	store   Store
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

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	TotalCents int64
	Currency   string
}

// Create places an order owned by the caller.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	caller := requestcontext.Caller(ctx)
	if !caller.IsAuthenticated() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	order, err := models.NewOrder(domain.OrderID(uuid.New()), caller.ID, in.TotalCents, in.Currency, requestcontext.Now(ctx))
	if err != nil {
		if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeInvariantViolation {
			return nil, dErrors.New(dErrors.CodeValidation, de.Message)
		}
		return nil, err
	}
	if err := s.store.Create(ctx, order); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create order")
	}
	if s.auditor != nil {
		s.auditor.Record(ctx, audit.Entry{
			Action:       audit.ActionOrderCreated,
			ResourceType: order.ResourceType(),
			ResourceID:   order.ResourceID(),
			Detail: map[string]any{
				"total_cents": order.TotalCents,
				"currency":    order.Currency,
			},
		})
	}
	return order, nil
}

// LoadByParam is an access.Loader for /orders/{orderID}.
func (s *Service) LoadByParam(ctx context.Context, raw string) (*models.Order, error) {
	id, err := domain.ParseOrderID(raw)
	if err != nil {
		return nil, err
	}
	order, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, access.NotFound("order")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load order")
	}
	return order, nil
}

// List returns the caller's orders, or every order for a verified admin.
func (s *Service) List(ctx context.Context) ([]*models.Order, error) {
	caller := requestcontext.Caller(ctx)
	if !caller.IsAuthenticated() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	var owner *domain.AccountID
	if !caller.IsVerifiedAdmin() {
		id := caller.ID
		owner = &id
	}
	out, err := s.store.List(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list orders")
	}
	return out, nil
}
