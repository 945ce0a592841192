package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"petcare/internal/account/models"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

// Service defines the account operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, email, password string, role domain.Role) (*models.Account, error)
	Get(ctx context.Context, id domain.AccountID) (*models.Account, error)
	Verify(ctx context.Context, id domain.AccountID) (*models.Account, error)
	VerifyVet(ctx context.Context, id domain.AccountID) (*models.Account, error)
	Deactivate(ctx context.Context, id domain.AccountID) (*models.Account, error)
	Reactivate(ctx context.Context, id domain.AccountID) (*models.Account, error)
	ConfirmEmail(ctx context.Context, id domain.AccountID) (*models.Account, error)
}

type Handler struct {
	logger   *slog.Logger
	accounts Service
}

func New(accounts Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, accounts: accounts}
}

// RegisterPublic mounts self-registration.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/accounts", h.HandleRegister)
}

// RegisterAdmin mounts account management. The caller must wrap r with the
// auth middleware and an admin role gate.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Route("/admin/accounts/{accountID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Post("/verify", h.transition("verify", h.accounts.Verify))
		r.Post("/verify-vet", h.transition("verify vet", h.accounts.VerifyVet))
		r.Post("/deactivate", h.transition("deactivate", h.accounts.Deactivate))
		r.Post("/reactivate", h.transition("reactivate", h.accounts.Reactivate))
		r.Post("/confirm-email", h.transition("confirm email", h.accounts.ConfirmEmail))
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Role            string     `json:"role"`
	Active          bool       `json:"active"`
	Verified        bool       `json:"verified"`
	VetVerified     bool       `json:"vet_verified"`
	EmailVerified   bool       `json:"email_verified"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toResponse(a *models.Account) AccountResponse {
	return AccountResponse{
		ID:              a.ID.String(),
		Email:           a.Email,
		Role:            a.Role.String(),
		Active:          a.Active,
		Verified:        a.Verified,
		VetVerified:     a.VetVerified,
		EmailVerified:   a.EmailVerified,
		EmailVerifiedAt: a.EmailVerifiedAt,
		CreatedAt:       a.CreatedAt,
	}
}

// HandleRegister creates an owner, vet or shelter account. Admin accounts
// are provisioned out of band.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req registerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil || role == domain.RoleAdmin {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "role must be one of owner, vet, shelter"))
		return
	}

	account, err := h.accounts.Register(ctx, req.Email, req.Password, role)
	if err != nil {
		h.logError(ctx, "failed to register account", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "account registered",
		"request_id", requestID,
		"account_id", account.ID.String(),
		"role", account.Role.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, toResponse(account))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	account, err := h.accounts.Get(ctx, id)
	if err != nil {
		h.logError(ctx, "failed to load account", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(account))
}

func (h *Handler) transition(name string, op func(context.Context, domain.AccountID) (*models.Account, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)

		id, err := domain.ParseAccountID(chi.URLParam(r, "accountID"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		account, err := op(ctx, id)
		if err != nil {
			h.logError(ctx, "failed to "+name+" account", err,
				"request_id", requestID,
				"account_id", id.String(),
			)
			httputil.WriteError(w, err)
			return
		}
		h.logger.InfoContext(ctx, "account updated",
			"request_id", requestID,
			"account_id", id.String(),
			"operation", name,
		)
		httputil.WriteJSON(w, http.StatusOK, toResponse(account))
	}
}

// logError logs internal failures at error level and expected domain
// failures at warn.
func (h *Handler) logError(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
