// Package service resolves bearer credentials to callers and issues and
// revokes access tokens.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"petcare/internal/account/models"
	jwttoken "petcare/internal/jwt_token"
	"petcare/internal/platform/metrics"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	authmw "petcare/pkg/platform/middleware/auth"
	"petcare/pkg/platform/sentinel"
	"petcare/pkg/requestcontext"
)

type AccountStore interface {
	FindByID(ctx context.Context, id domain.AccountID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

type TokenIssuer interface {
	GenerateAccessToken(accountID domain.AccountID, role domain.Role, expiresIn time.Duration) (*jwttoken.IssuedToken, error)
	ValidateToken(token string) (*jwttoken.AccessTokenClaims, error)
}

// RevocationList tracks logged-out tokens until they expire.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const defaultTokenTTL = 15 * time.Minute

// Service is the identity resolver. The account is re-read on every call so
// deactivation takes effect before the token expires.
type Service struct {
	accounts    AccountStore
	tokens      TokenIssuer
	revocations RevocationList
	auditor     audit.Recorder
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tokenTTL    time.Duration
	bcryptCost  int

	dummyOnce sync.Once
	dummyHash []byte
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(r audit.Recorder) Option {
	return func(s *Service) { s.auditor = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithBcryptCost sets the cost of the hash compared against when the email
// is unknown. Match the cost used to store passwords.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func New(accounts AccountStore, tokens TokenIssuer, revocations RevocationList, opts ...Option) *Service {
	s := &Service{
		accounts:    accounts,
		tokens:      tokens,
		revocations: revocations,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		tokenTTL:    defaultTokenTTL,
		bcryptCost:  bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func invalidToken() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
}

func invalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")
}

// Authenticate resolves token to the current state of its account. An
// unknown subject fails exactly like a malformed token.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.Caller, error) {
	caller, _, err := s.authenticate(ctx, token)
	return caller, err
}

// AuthenticateToken adapts Authenticate to the HTTP auth middleware.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (*authmw.Principal, error) {
	caller, claims, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return &authmw.Principal{Caller: caller, TokenID: claims.ID}, nil
}

func (s *Service) authenticate(ctx context.Context, token string) (domain.Caller, *jwttoken.AccessTokenClaims, error) {
	if token == "" {
		return domain.Caller{}, nil, dErrors.New(dErrors.CodeUnauthorized, "missing token")
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return domain.Caller{}, nil, err
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return domain.Caller{}, nil, invalidToken()
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Caller{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
	}
	if revoked {
		return domain.Caller{}, nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Caller{}, nil, invalidToken()
		}
		return domain.Caller{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if !account.Active {
		return domain.Caller{}, nil, dErrors.New(dErrors.CodeAccountDisabled, "account is disabled")
	}
	return account.Caller(), claims, nil
}

// TokenResult is returned by Login.
type TokenResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresIn   int       `json:"expires_in"`
}

// Login verifies a password and issues an access token. An unknown email
// costs the same bcrypt work as a wrong password and returns the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenResult, error) {
	account, err := s.accounts.FindByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
		}
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		s.loginFailed(ctx, nil, "unknown_email")
		return nil, invalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.loginFailed(ctx, account, "bad_password")
		return nil, invalidCredentials()
	}
	if !account.Active {
		s.loginFailed(ctx, account, "account_disabled")
		return nil, dErrors.New(dErrors.CodeAccountDisabled, "account is disabled")
	}

	issued, err := s.tokens.GenerateAccessToken(account.ID, account.Role, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	s.record(ctx, audit.Entry{
		ActorID:      account.ID,
		ActorRole:    account.Role,
		Action:       audit.ActionLogin,
		ResourceType: "account",
		ResourceID:   account.ID.String(),
	})
	return &TokenResult{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresAt:   issued.ExpiresAt,
		ExpiresIn:   int(s.tokenTTL.Seconds()),
	}, nil
}

// Logout revokes token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return err
	}
	ttl := s.tokenTTL
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(requestcontext.Now(ctx))
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.metrics.IncrementTokensRevoked()
	s.record(ctx, audit.Entry{
		Action:       audit.ActionLogout,
		ResourceType: "token",
		ResourceID:   claims.ID,
	})
	return nil
}

func (s *Service) loginFailed(ctx context.Context, account *models.Account, reason string) {
	s.metrics.IncrementLoginsFailed()
	entry := audit.Entry{
		Action:       audit.ActionLoginFailed,
		ResourceType: "account",
		Detail:       map[string]any{"reason": reason},
	}
	if account != nil {
		entry.ActorID = account.ID
		entry.ActorRole = account.Role
		entry.ResourceID = account.ID.String()
	}
	s.record(ctx, entry)
	s.logger.WarnContext(ctx, "login failed",
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.auditor != nil {
		s.auditor.Record(ctx, e)
	}
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("petcare-timing-equaliser"), s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
