//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	accountmodels "petcare/internal/account/models"
	accountstore "petcare/internal/account/store"
	petmodels "petcare/internal/pets/models"
	petstore "petcare/internal/pets/store"
	"petcare/internal/records/models"
	"petcare/internal/records/store"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
	"petcare/pkg/testutil/containers"
)

type PostgresRecordStoreSuite struct {
	suite.Suite
	pg       *containers.PostgresContainer
	store    *store.PostgresStore
	accounts *accountstore.PostgresStore
	pets     *petstore.PostgresStore
}

func TestPostgresRecordStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRecordStoreSuite))
}

func (s *PostgresRecordStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.pg.DB)
	s.accounts = accountstore.NewPostgres(s.pg.DB)
	s.pets = petstore.NewPostgres(s.pg.DB)
}

func (s *PostgresRecordStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "health_records", "documents", "pets", "accounts"))
}

func (s *PostgresRecordStoreSuite) account(role domain.Role) domain.AccountID {
	a, err := accountmodels.NewAccount(domain.AccountID(uuid.New()), uuid.NewString()[:8]+"@petcare.example", "hash", role, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.accounts.Create(context.Background(), a))
	return a.ID
}

func (s *PostgresRecordStoreSuite) TestDocumentsAndHealthRecords() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	owner := s.account(domain.RoleOwner)
	vet := s.account(domain.RoleVet)
	pet, err := petmodels.NewPet(domain.PetID(uuid.New()), owner, "Biscuit", "dog", now)
	s.Require().NoError(err)
	s.Require().NoError(s.pets.Create(ctx, pet))

	doc, err := models.NewDocument(domain.DocumentID(uuid.New()), pet.ID, owner, "Vaccination card", "certificate", now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateDocument(ctx, doc))

	got, err := s.store.FindDocument(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(doc.Title, got.Title)
	s.Equal(pet.ID, got.PetID)

	_, err = s.store.FindDocument(ctx, domain.DocumentID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)

	first, err := models.NewHealthRecord(domain.HealthRecordID(uuid.New()), pet.ID, owner, vet, models.KindExam, "checkup", now.Add(-time.Hour), now)
	s.Require().NoError(err)
	second, err := models.NewHealthRecord(domain.HealthRecordID(uuid.New()), pet.ID, owner, vet, models.KindTreatment, "antibiotics", now, now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateHealthRecord(ctx, first))
	s.Require().NoError(s.store.CreateHealthRecord(ctx, second))

	records, err := s.store.ListHealthRecordsForPet(ctx, pet.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(second.ID, records[0].ID)
	s.Equal(models.KindTreatment, records[0].Kind)
}
