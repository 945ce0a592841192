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
	apptmodels "petcare/internal/appointments/models"
	apptstore "petcare/internal/appointments/store"
	"petcare/internal/chat/models"
	"petcare/internal/chat/store"
	petmodels "petcare/internal/pets/models"
	petstore "petcare/internal/pets/store"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
	"petcare/pkg/testutil/containers"
)

type PostgresChatStoreSuite struct {
	suite.Suite
	pg           *containers.PostgresContainer
	store        *store.PostgresStore
	accounts     *accountstore.PostgresStore
	pets         *petstore.PostgresStore
	appointments *apptstore.PostgresStore
}

func TestPostgresChatStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresChatStoreSuite))
}

func (s *PostgresChatStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.pg.DB)
	s.accounts = accountstore.NewPostgres(s.pg.DB)
	s.pets = petstore.NewPostgres(s.pg.DB)
	s.appointments = apptstore.NewPostgres(s.pg.DB)
}

func (s *PostgresChatStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "chat_messages", "chat_rooms", "appointments", "pets", "accounts"))
}

func (s *PostgresChatStoreSuite) account(role domain.Role) domain.AccountID {
	a, err := accountmodels.NewAccount(domain.AccountID(uuid.New()), uuid.NewString()[:8]+"@petcare.example", "hash", role, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.accounts.Create(context.Background(), a))
	return a.ID
}

func (s *PostgresChatStoreSuite) TestRoomsAndMessages() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	owner, vet := s.account(domain.RoleOwner), s.account(domain.RoleVet)
	pet, err := petmodels.NewPet(domain.PetID(uuid.New()), owner, "Biscuit", "dog", now)
	s.Require().NoError(err)
	s.Require().NoError(s.pets.Create(ctx, pet))
	appt, err := apptmodels.NewAppointment(domain.AppointmentID(uuid.New()), pet.ID, owner, vet, now.Add(time.Hour), "", now)
	s.Require().NoError(err)
	s.Require().NoError(s.appointments.Create(ctx, appt))

	apptID := appt.ID
	room, err := models.NewRoom(domain.ChatRoomID(uuid.New()), &apptID, pet.ID, owner, vet, now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateRoom(ctx, room))

	dup, err := models.NewRoom(domain.ChatRoomID(uuid.New()), &apptID, pet.ID, owner, vet, now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.CreateRoom(ctx, dup), sentinel.ErrConflict)

	got, err := s.store.FindRoomByAppointment(ctx, appt.ID)
	s.Require().NoError(err)
	s.Equal(room.ID, got.ID)
	s.Require().NotNil(got.AppointmentID)
	s.Equal(appt.ID, *got.AppointmentID)

	for i, body := range []string{"one", "two", "three"} {
		m, err := models.NewMessage(room.ID, owner, body, now.Add(time.Duration(i)*time.Second))
		s.Require().NoError(err)
		s.Require().NoError(s.store.CreateMessage(ctx, m))
	}
	msgs, err := s.store.ListMessages(ctx, room.ID, 2)
	s.Require().NoError(err)
	s.Require().Len(msgs, 2)
	s.Equal("two", msgs[0].Body)
}
