package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"petcare/internal/ratelimit/metrics"
	"petcare/internal/ratelimit/models"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

// Store counts requests in a sliding window per key.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

type Middleware struct {
	store    Store
	policies map[models.EndpointClass]models.Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) { m.logger = logger }
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Middleware) { m.metrics = metrics }
}

// WithPolicy overrides the window for one endpoint class.
func WithPolicy(class models.EndpointClass, p models.Policy) Option {
	return func(m *Middleware) { m.policies[class] = p }
}

func New(store Store, opts ...Option) *Middleware {
	m := &Middleware{
		store: store,
		policies: map[models.EndpointClass]models.Policy{
			models.ClassAuth:  {Limit: 10, Window: time.Minute},
			models.ClassWrite: {Limit: 50, Window: time.Minute},
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RateLimit limits requests per client IP for the given class. A store
// failure lets the request through.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return m.limit(class, func(ctx context.Context) string {
		return "ip:" + requestcontext.ClientIP(ctx)
	})
}

// RateLimitCaller limits authenticated requests per account. Anonymous
// requests fall back to the client IP.
func (m *Middleware) RateLimitCaller(class models.EndpointClass) func(http.Handler) http.Handler {
	return m.limit(class, func(ctx context.Context) string {
		if caller := requestcontext.Caller(ctx); caller.IsAuthenticated() {
			return "account:" + caller.ID.String()
		}
		return "ip:" + requestcontext.ClientIP(ctx)
	})
}

func (m *Middleware) limit(class models.EndpointClass, keyOf func(context.Context) string) func(http.Handler) http.Handler {
	policy := m.policies[class]
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled || policy.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := string(class) + ":" + keyOf(ctx)
			result, err := m.store.Allow(ctx, key, policy.Limit, policy.Window)
			if err != nil {
				m.metrics.IncrementStoreErrors()
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"error", err,
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.metrics.IncrementRejected(string(class))
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
