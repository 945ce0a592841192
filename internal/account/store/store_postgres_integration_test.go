//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"petcare/internal/account/models"
	"petcare/internal/account/store"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
	"petcare/pkg/testutil/containers"
)

type PostgresAccountStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.PostgresStore
}

func TestPostgresAccountStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAccountStoreSuite))
}

func (s *PostgresAccountStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.pg.DB)
}

func (s *PostgresAccountStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "accounts"))
}

func (s *PostgresAccountStoreSuite) newAccount(role domain.Role) *models.Account {
	a, err := models.NewAccount(domain.AccountID(uuid.New()), uuid.NewString()[:8]+"@petcare.example", "hash", role, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return a
}

func (s *PostgresAccountStoreSuite) TestCreateFindUpdate() {
	ctx := context.Background()
	a := s.newAccount(domain.RoleVet)
	s.Require().NoError(s.store.Create(ctx, a))

	dup := s.newAccount(domain.RoleOwner)
	dup.Email = a.Email
	s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrConflict)

	now := time.Now().UTC().Truncate(time.Microsecond)
	a.ApplyVetVerification(now)
	a.ConfirmEmail(now)
	s.Require().NoError(s.store.Update(ctx, a))

	found, err := s.store.FindByEmail(ctx, a.Email)
	s.Require().NoError(err)
	s.Equal(domain.RoleVet, found.Role)
	s.True(found.VetVerified)
	s.Require().NotNil(found.EmailVerifiedAt)
	s.True(now.Equal(*found.EmailVerifiedAt))

	_, err = s.store.FindByID(ctx, domain.AccountID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresAccountStoreSuite) TestAudienceQueries() {
	ctx := context.Background()
	admin := s.newAccount(domain.RoleAdmin)
	admin.Verified = true
	pending := s.newAccount(domain.RoleAdmin)
	shelter := s.newAccount(domain.RoleShelter)
	for _, a := range []*models.Account{admin, pending, shelter} {
		s.Require().NoError(s.store.Create(ctx, a))
	}

	admins, err := s.store.ListActiveVerifiedAdmins(ctx)
	s.Require().NoError(err)
	s.Equal([]domain.AccountID{admin.ID}, admins)

	shelters, err := s.store.ListActiveIDsByRoles(ctx, []domain.Role{domain.RoleShelter})
	s.Require().NoError(err)
	s.Equal([]domain.AccountID{shelter.ID}, shelters)
}
