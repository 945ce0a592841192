package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"petcare/internal/auth/service"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/platform/httputil"
	authmw "petcare/pkg/platform/middleware/auth"
	"petcare/pkg/requestcontext"
)

// Service defines the token operations exposed over HTTP.
type Service interface {
	Login(ctx context.Context, email, password string) (*service.TokenResult, error)
	Logout(ctx context.Context, token string) error
}

type Handler struct {
	logger *slog.Logger
	auth   Service
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, auth: auth}
}

// RegisterPublic mounts the token endpoint.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/token", h.HandleToken)
}

// RegisterProtected mounts endpoints that need an authenticated caller.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/me", h.HandleMe)
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req tokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "email and password are required"))
		return
	}

	result, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "login failed", "request_id", requestID, "error", err)
		}
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, ok := authmw.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing token"))
		return
	}
	if err := h.auth.Logout(ctx, token); err != nil {
		h.logger.ErrorContext(ctx, "logout failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Verified    bool   `json:"verified"`
	VetVerified bool   `json:"vet_verified"`
}

// HandleMe echoes the caller as resolved for this request.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller := requestcontext.Caller(r.Context())
	if !caller.IsAuthenticated() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meResponse{
		ID:          caller.ID.String(),
		Role:        caller.Role.String(),
		Verified:    caller.Verified,
		VetVerified: caller.VetVerified,
	})
}
