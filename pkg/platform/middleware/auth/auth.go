package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

// Principal is what an Authenticator resolves a bearer token to.
type Principal struct {
	Caller  domain.Caller
	TokenID string // JTI, used for revocation on logout
}

// Authenticator resolves a raw bearer token. Implementations return coded
// domain errors (CodeUnauthorized, CodeTokenExpired, CodeAccountDisabled).
type Authenticator interface {
	AuthenticateToken(ctx context.Context, token string) (*Principal, error)
}

const bearerPrefix = "Bearer "

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// RequireAuth rejects requests without a valid credential and stores the
// resolved caller in the request context.
func RequireAuth(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing token"))
				return
			}

			principal, err := authenticator.AuthenticateToken(ctx, token)
			if err != nil {
				logAuthFailure(ctx, logger, err, requestID)
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withPrincipal(ctx, principal)))
		})
	}
}

// OptionalAuth resolves the caller when a credential is present and lets
// anonymous requests through. An invalid credential is still rejected.
// Tokens may also arrive in the access_token query parameter for clients that
// cannot set headers (browser websockets).
func OptionalAuth(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				token = r.URL.Query().Get("access_token")
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := authenticator.AuthenticateToken(ctx, token)
			if err != nil {
				logAuthFailure(ctx, logger, err, requestcontext.RequestID(ctx))
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withPrincipal(ctx, principal)))
		})
	}
}

func withPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = requestcontext.WithCaller(ctx, p.Caller)
	return requestcontext.WithTokenID(ctx, p.TokenID)
}

func logAuthFailure(ctx context.Context, logger *slog.Logger, err error, requestID string) {
	if dErrors.HasCode(err, dErrors.CodeInternal) || !isCoded(err) {
		logger.ErrorContext(ctx, "failed to authenticate request",
			"error", err,
			"request_id", requestID,
		)
		return
	}
	logger.WarnContext(ctx, "unauthorized access - credential rejected",
		"error", err,
		"request_id", requestID,
	)
}

func isCoded(err error) bool {
	_, ok := dErrors.As(err)
	return ok
}
