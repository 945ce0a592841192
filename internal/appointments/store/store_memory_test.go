package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcare/internal/appointments/models"
	"petcare/pkg/domain"
	"petcare/pkg/platform/sentinel"
)

func newAppointment(t *testing.T, pet domain.PetID, owner, vet domain.AccountID, at time.Time) *models.Appointment {
	t.Helper()
	a, err := models.NewAppointment(domain.AppointmentID(uuid.New()), pet, owner, vet, at, "checkup", at.Add(-time.Hour))
	require.NoError(t, err)
	return a
}

func TestInMemory_ExistsForVetAndPet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	vet := domain.AccountID(uuid.New())
	owner := domain.AccountID(uuid.New())
	pet := domain.PetID(uuid.New())
	a := newAppointment(t, pet, owner, vet, time.Now())
	require.NoError(t, s.Create(ctx, a))

	ok, err := s.ExistsForVetAndPet(ctx, vet, pet, []models.Status{models.StatusPending})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ExistsForVetAndPet(ctx, vet, pet, []models.Status{models.StatusConfirmed})
	require.NoError(t, err)
	assert.False(t, ok, "status outside the set must not match")

	ok, err = s.ExistsForVetAndPet(ctx, domain.AccountID(uuid.New()), pet, []models.Status{models.StatusPending})
	require.NoError(t, err)
	assert.False(t, ok)

	a.ApplyTransition(models.StatusCancelled, time.Now())
	require.NoError(t, s.Update(ctx, a))
	ok, err = s.ExistsForVetAndPet(ctx, vet, pet, []models.Status{models.StatusPending})
	require.NoError(t, err)
	assert.False(t, ok, "update must be visible immediately")
}

func TestInMemory_PetIDsForVetDeduplicates(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	vet := domain.AccountID(uuid.New())
	owner := domain.AccountID(uuid.New())
	pet := domain.PetID(uuid.New())
	other := domain.PetID(uuid.New())
	now := time.Now()

	require.NoError(t, s.Create(ctx, newAppointment(t, pet, owner, vet, now)))
	require.NoError(t, s.Create(ctx, newAppointment(t, pet, owner, vet, now.Add(time.Hour))))
	require.NoError(t, s.Create(ctx, newAppointment(t, other, owner, vet, now)))

	ids, err := s.PetIDsForVet(ctx, vet, []models.Status{models.StatusPending})
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.PetID{pet, other}, ids)
}

func TestInMemory_ListAndCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	vet := domain.AccountID(uuid.New())
	owner := domain.AccountID(uuid.New())
	pet := domain.PetID(uuid.New())
	now := time.Now()

	later := newAppointment(t, pet, owner, vet, now.Add(2*time.Hour))
	sooner := newAppointment(t, pet, owner, vet, now.Add(time.Hour))
	require.NoError(t, s.Create(ctx, later))
	require.NoError(t, s.Create(ctx, sooner))
	assert.ErrorIs(t, s.Create(ctx, sooner), sentinel.ErrConflict)

	list, err := s.List(ctx, Filter{ParticipantID: &owner})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, sooner.ID, list[0].ID)

	stranger := domain.AccountID(uuid.New())
	list, err = s.List(ctx, Filter{ParticipantID: &stranger})
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := s.FindByID(ctx, sooner.ID)
	require.NoError(t, err)
	got.Status = models.StatusCompleted
	again, err := s.FindByID(ctx, sooner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)

	_, err = s.FindByID(ctx, domain.AppointmentID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
