package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"petcare/internal/access"
	"petcare/internal/notifications/models"
	"petcare/internal/notifications/service"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

// Service defines the notification operations exposed over HTTP.
type Service interface {
	List(ctx context.Context, in service.ListInput) ([]*models.Notification, error)
	LoadByParam(ctx context.Context, raw string) (*models.Notification, error)
	MarkRead(ctx context.Context, n *models.Notification) (*models.Notification, error)
	Broadcast(ctx context.Context, in service.BroadcastInput) (*service.BroadcastResult, error)
}

type Handler struct {
	logger        *slog.Logger
	notifications Service
	ownership     *access.OwnershipResolver
}

func New(notifications Service, ownership *access.OwnershipResolver, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, notifications: notifications, ownership: ownership}
}

// Register mounts the recipient routes behind authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.HandleList)
	r.With(access.OwnershipMiddleware(h.ownership, "notificationID", h.notifications.LoadByParam, access.OwnerOf[*models.Notification]())).
		Post("/notifications/{notificationID}/read", h.HandleMarkRead)
}

// RegisterAdmin mounts the broadcast route. The caller wraps r with an admin
// role gate.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/notifications/broadcast", h.HandleBroadcast)
}

type listResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Count         int                    `json:"count"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in := service.ListInput{}
	q := r.URL.Query()
	if v := q.Get("unread"); v != "" {
		unread, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unread must be a boolean"))
			return
		}
		in.UnreadOnly = unread
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		in.Limit = limit
	}

	list, err := h.notifications.List(ctx, in)
	if err != nil {
		h.logError(ctx, "failed to list notifications", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Notifications: list, Count: len(list)})
}

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, ok := access.ResourceFrom[*models.Notification](ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "notification missing from context"))
		return
	}
	updated, err := h.notifications.MarkRead(ctx, n)
	if err != nil {
		h.logError(ctx, "failed to mark notification read", err,
			"request_id", requestcontext.RequestID(ctx),
			"notification_id", n.ID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

type broadcastRequest struct {
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Priority    models.Priority `json:"priority"`
	TargetRoles []string        `json:"target_roles"`
	Payload     map[string]any  `json:"payload"`
}

func (h *Handler) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req broadcastRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.notifications.Broadcast(ctx, service.BroadcastInput{
		Title:       req.Title,
		Body:        req.Body,
		Priority:    req.Priority,
		TargetRoles: req.TargetRoles,
		Payload:     req.Payload,
	})
	if err != nil {
		h.logError(ctx, "failed to broadcast notification", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "notification broadcast",
		"request_id", requestID,
		"recipients", result.Recipients,
		"target_roles", result.TargetRoles,
	)
	httputil.WriteJSON(w, http.StatusAccepted, result)
}

func (h *Handler) logError(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
