package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"petcare/internal/access"
	"petcare/internal/pets/handler/mocks"
	"petcare/internal/pets/models"
	"petcare/internal/pets/service"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/platform/audit/publisher"
	auditmemory "petcare/pkg/platform/audit/store/memory"
	"petcare/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	ownership := access.NewOwnershipResolver(publisher.NewPublisher(auditmemory.NewInMemoryStore()))
	h := New(svc, ownership, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	h.Register(r)
	h.RegisterIntake(r)
	return r, svc
}

func testPet(owner domain.AccountID) *models.Pet {
	p, _ := models.NewPet(domain.PetID(uuid.New()), owner, "Biscuit", "dog", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	return p
}

func TestHandleCreate(t *testing.T) {
	owner := testutil.Owner()

	t.Run("creates a pet", func(t *testing.T) {
		r, svc := newTestRouter(t)
		pet := testPet(owner.ID)
		svc.EXPECT().Create(gomock.Any(), service.CreateInput{Name: "Biscuit", Species: "dog"}).Return(pet, nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/pets", map[string]string{"name": "Biscuit", "species": "dog"})
		rr := testutil.DoRequest(r, testutil.AsCaller(req, owner))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[PetResponse](t, rr)
		assert.Equal(t, pet.ID.String(), resp.ID)
		assert.Equal(t, owner.ID.String(), resp.OwnerID)
	})

	t.Run("invalid owner id is a validation error", func(t *testing.T) {
		r, _ := newTestRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/pets", map[string]string{"name": "Biscuit", "species": "dog", "owner_id": "nope"})
		rr := testutil.DoRequest(r, testutil.AsCaller(req, testutil.Admin(true)))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func TestHandleGet(t *testing.T) {
	testutil.Given(t, "a vet with no appointment for the pet", func(t *testing.T) {
		r, svc := newTestRouter(t)
		id := domain.PetID(uuid.New())
		svc.EXPECT().Get(gomock.Any(), id).
			Return(nil, dErrors.Forbidden(access.ReasonNoAppointment, "no active appointment with this pet"))

		req := testutil.NewRequest(t, http.MethodGet, "/pets/"+id.String())
		rr := testutil.DoRequest(r, testutil.AsCaller(req, testutil.Vet(true)))

		testutil.Then(t, "the response is 403 with the denial reason", func(t *testing.T) {
			testutil.AssertDenied(t, rr, access.ReasonNoAppointment)
		})
	})

	testutil.Given(t, "a malformed pet id", func(t *testing.T) {
		r, _ := newTestRouter(t)
		req := testutil.NewRequest(t, http.MethodGet, "/pets/not-a-uuid")
		rr := testutil.DoRequest(r, testutil.AsCaller(req, testutil.Owner()))

		testutil.Then(t, "the request is rejected before the service", func(t *testing.T) {
			testutil.AssertStatus(t, rr, http.StatusBadRequest)
		})
	})
}

func TestHandleList(t *testing.T) {
	r, svc := newTestRouter(t)
	owner := testutil.Owner()
	svc.EXPECT().List(gomock.Any()).Return([]*models.Pet{testPet(owner.ID), testPet(owner.ID)}, nil)

	rr := testutil.DoRequest(r, testutil.AsCaller(testutil.NewRequest(t, http.MethodGet, "/pets"), owner))

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[listResponse](t, rr)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Pets, 2)
}

func TestHandleDeactivate(t *testing.T) {
	owner := testutil.Owner()

	t.Run("owner deactivates through the ownership guard", func(t *testing.T) {
		r, svc := newTestRouter(t)
		pet := testPet(owner.ID)
		svc.EXPECT().LoadByParam(gomock.Any(), pet.ID.String()).Return(pet, nil)
		svc.EXPECT().Deactivate(gomock.Any(), pet).DoAndReturn(func(_ context.Context, p *models.Pet) (*models.Pet, error) {
			p.Active = false
			return p, nil
		})

		rr := testutil.DoRequest(r, testutil.AsCaller(testutil.NewRequest(t, http.MethodDelete, "/pets/"+pet.ID.String()), owner))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "active", false)
	})

	t.Run("non-owners are denied before the service runs", func(t *testing.T) {
		callers := map[string]domain.Caller{
			"another owner": testutil.Owner(),
			"a shelter":     testutil.Shelter(),
			"a vet":         testutil.Vet(true),
		}
		testutil.AsEach(t, callers, func(t *testing.T, caller domain.Caller) {
			r, svc := newTestRouter(t)
			pet := testPet(owner.ID)
			svc.EXPECT().LoadByParam(gomock.Any(), pet.ID.String()).Return(pet, nil)

			rr := testutil.DoRequest(r, testutil.AsCaller(testutil.NewRequest(t, http.MethodDelete, "/pets/"+pet.ID.String()), caller))

			testutil.AssertDenied(t, rr, access.ReasonNotOwner)
		})
	})

	t.Run("an unverified admin is denied", func(t *testing.T) {
		r, svc := newTestRouter(t)
		pet := testPet(owner.ID)
		svc.EXPECT().LoadByParam(gomock.Any(), pet.ID.String()).Return(pet, nil)

		rr := testutil.DoRequest(r, testutil.AsCaller(testutil.NewRequest(t, http.MethodDelete, "/pets/"+pet.ID.String()), testutil.Admin(false)))

		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, string(dErrors.CodeAdminUnverified))
	})

	t.Run("missing pet is 404", func(t *testing.T) {
		r, svc := newTestRouter(t)
		id := uuid.NewString()
		svc.EXPECT().LoadByParam(gomock.Any(), id).Return(nil, access.NotFound("pet"))

		rr := testutil.DoRequest(r, testutil.AsCaller(testutil.NewRequest(t, http.MethodDelete, "/pets/"+id), owner))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}
