package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"petcare/internal/access"
	"petcare/internal/orders/models"
	"petcare/internal/orders/service"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Order, error)
	LoadByParam(ctx context.Context, raw string) (*models.Order, error)
	List(ctx context.Context) ([]*models.Order, error)
}

type Handler struct {
	logger    *slog.Logger
	orders    Service
	ownership *access.OwnershipResolver
}

func New(orders Service, ownership *access.OwnershipResolver, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, orders: orders, ownership: ownership}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/orders", h.HandleList)
	r.Post("/orders", h.HandleCreate)
	r.With(access.OwnershipMiddleware(h.ownership, "orderID", h.orders.LoadByParam, access.OwnerOf[*models.Order]())).
		Get("/orders/{orderID}", h.HandleGet)
}

type createRequest struct {
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
}

type OrderResponse struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Status     string    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

type listResponse struct {
	Orders []OrderResponse `json:"orders"`
	Count  int             `json:"count"`
}

func toResponse(o *models.Order) OrderResponse {
	return OrderResponse{
		ID:         o.ID.String(),
		OwnerID:    o.OwnerID.String(),
		Status:     string(o.Status),
		TotalCents: o.TotalCents,
		Currency:   o.Currency,
		CreatedAt:  o.CreatedAt,
	}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	order, err := h.orders.Create(ctx, service.CreateInput{TotalCents: req.TotalCents, Currency: req.Currency})
	if err != nil {
		h.logError(ctx, "failed to create order", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(order))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	order, ok := access.ResourceFrom[*models.Order](r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "order missing from context"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(order))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orders, err := h.orders.List(ctx)
	if err != nil {
		h.logError(ctx, "failed to list orders", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	resp := listResponse{Orders: make([]OrderResponse, 0, len(orders)), Count: len(orders)}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toResponse(o))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) logError(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
