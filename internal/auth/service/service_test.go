package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"petcare/internal/account/models"
	accountstore "petcare/internal/account/store"
	"petcare/internal/auth/store/revocation"
	jwttoken "petcare/internal/jwt_token"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/audit/publisher"
	auditmemory "petcare/pkg/platform/audit/store/memory"
)

type failingTRL struct{}

func (failingTRL) RevokeToken(context.Context, string, time.Duration) error {
	return errors.New("redis down")
}

func (failingTRL) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

type AuthServiceSuite struct {
	suite.Suite
	accounts   *accountstore.InMemory
	tokens     *jwttoken.JWTService
	trl        *revocation.InMemoryTRL
	auditStore *auditmemory.InMemoryStore
	svc        *Service
	ctx        context.Context
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.accounts = accountstore.NewInMemory()
	s.tokens = jwttoken.NewJWTService("test-signing-key", "petcare", "petcare-api")
	s.trl = revocation.NewInMemoryTRL()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.svc = New(s.accounts, s.tokens, s.trl,
		WithAuditor(publisher.NewPublisher(s.auditStore)),
		WithBcryptCost(bcrypt.MinCost),
		WithTokenTTL(10*time.Minute),
	)
	s.ctx = context.Background()
}

func (s *AuthServiceSuite) createAccount(role domain.Role, password string) *models.Account {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	s.Require().NoError(err)
	a, err := models.NewAccount(domain.AccountID(uuid.New()), uuid.NewString()[:8]+"@example.com", string(hash), role, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.accounts.Create(s.ctx, a))
	return a
}

func (s *AuthServiceSuite) tokenFor(a *models.Account, ttl time.Duration) string {
	issued, err := s.tokens.GenerateAccessToken(a.ID, a.Role, ttl)
	s.Require().NoError(err)
	return issued.Token
}

func (s *AuthServiceSuite) auditActions() []audit.Action {
	entries, err := s.auditStore.Query(s.ctx, audit.Filter{}, audit.Page{})
	s.Require().NoError(err)
	actions := make([]audit.Action, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *AuthServiceSuite) TestAuthenticateResolvesCurrentAccount() {
	a := s.createAccount(domain.RoleVet, "password-123")

	caller, err := s.svc.Authenticate(s.ctx, s.tokenFor(a, time.Minute))

	s.Require().NoError(err)
	s.Equal(a.ID, caller.ID)
	s.Equal(domain.RoleVet, caller.Role)
	s.True(caller.Active)
	s.False(caller.VetVerified)

	a.ApplyVetVerification(time.Now())
	s.Require().NoError(s.accounts.Update(s.ctx, a))

	caller, err = s.svc.Authenticate(s.ctx, s.tokenFor(a, time.Minute))
	s.Require().NoError(err)
	s.True(caller.VetVerified)
}

func (s *AuthServiceSuite) TestAuthenticateFailures() {
	a := s.createAccount(domain.RoleOwner, "password-123")

	_, err := s.svc.Authenticate(s.ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.svc.Authenticate(s.ctx, "not.a.jwt")
	s.ErrorIs(err, invalidToken())

	_, err = s.svc.Authenticate(s.ctx, s.tokenFor(a, -time.Minute))
	s.True(dErrors.HasCode(err, dErrors.CodeTokenExpired))
}

func (s *AuthServiceSuite) TestUnknownAccountIndistinguishableFromInvalidToken() {
	ghost := &models.Account{ID: domain.AccountID(uuid.New()), Role: domain.RoleOwner}

	_, err := s.svc.Authenticate(s.ctx, s.tokenFor(ghost, time.Minute))

	s.ErrorIs(err, invalidToken())
}

func (s *AuthServiceSuite) TestDeactivationRejectsStillValidToken() {
	a := s.createAccount(domain.RoleOwner, "password-123")
	token := s.tokenFor(a, time.Hour)
	_, err := s.svc.Authenticate(s.ctx, token)
	s.Require().NoError(err)

	a.ApplyDeactivation(time.Now())
	s.Require().NoError(s.accounts.Update(s.ctx, a))

	for range 2 {
		_, err = s.svc.Authenticate(s.ctx, token)
		s.True(dErrors.HasCode(err, dErrors.CodeAccountDisabled))
	}
}

func (s *AuthServiceSuite) TestAuthenticateTokenCarriesJTI() {
	a := s.createAccount(domain.RoleShelter, "password-123")
	issued, err := s.tokens.GenerateAccessToken(a.ID, a.Role, time.Minute)
	s.Require().NoError(err)

	principal, err := s.svc.AuthenticateToken(s.ctx, issued.Token)

	s.Require().NoError(err)
	s.Equal(issued.JTI, principal.TokenID)
	s.Equal(a.ID, principal.Caller.ID)
}

func (s *AuthServiceSuite) TestRevocationCheckFailureIsInternal() {
	a := s.createAccount(domain.RoleOwner, "password-123")
	svc := New(s.accounts, s.tokens, failingTRL{})

	_, err := svc.Authenticate(s.ctx, s.tokenFor(a, time.Minute))

	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *AuthServiceSuite) TestLoginAndLogout() {
	a := s.createAccount(domain.RoleOwner, "password-123")

	result, err := s.svc.Login(s.ctx, "  "+a.Email, "password-123")
	s.Require().NoError(err)
	s.Equal("Bearer", result.TokenType)
	s.Equal(600, result.ExpiresIn)

	_, err = s.svc.Authenticate(s.ctx, result.AccessToken)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Logout(s.ctx, result.AccessToken))

	_, err = s.svc.Authenticate(s.ctx, result.AccessToken)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "revoked")

	s.ElementsMatch([]audit.Action{audit.ActionLogin, audit.ActionLogout}, s.auditActions())
}

func (s *AuthServiceSuite) TestLoginFailuresShareOneError() {
	a := s.createAccount(domain.RoleOwner, "password-123")

	_, wrongPassword := s.svc.Login(s.ctx, a.Email, "wrong-password")
	_, unknownEmail := s.svc.Login(s.ctx, "nobody@example.com", "password-123")

	s.ErrorIs(wrongPassword, invalidCredentials())
	s.ErrorIs(unknownEmail, invalidCredentials())
	s.Equal([]audit.Action{audit.ActionLoginFailed, audit.ActionLoginFailed}, s.auditActions())
}

func (s *AuthServiceSuite) TestLoginRejectsDeactivatedAccount() {
	a := s.createAccount(domain.RoleOwner, "password-123")
	a.ApplyDeactivation(time.Now())
	s.Require().NoError(s.accounts.Update(s.ctx, a))

	_, err := s.svc.Login(s.ctx, a.Email, "password-123")

	s.True(dErrors.HasCode(err, dErrors.CodeAccountDisabled))
}
