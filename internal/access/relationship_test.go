package access

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"petcare/internal/access/mocks"
	apptmodels "petcare/internal/appointments/models"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/requestcontext"
	"petcare/pkg/testutil"
)

//go:generate mockgen -source=relationship.go -destination=mocks/mocks.go -package=mocks AppointmentStore

var allStatuses = []apptmodels.Status{
	apptmodels.StatusPending,
	apptmodels.StatusConfirmed,
	apptmodels.StatusInProgress,
	apptmodels.StatusCompleted,
	apptmodels.StatusCancelled,
	apptmodels.StatusRescheduled,
}

type RelationshipSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	store    *mocks.MockAppointmentStore
	auditor  *recordingAuditor
	resolver *RelationshipResolver
	ctx      context.Context
}

func TestRelationshipSuite(t *testing.T) {
	suite.Run(t, new(RelationshipSuite))
}

func (s *RelationshipSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockAppointmentStore(s.ctrl)
	s.auditor = &recordingAuditor{}
	s.resolver = NewRelationshipResolver(s.store, s.auditor)
	s.ctx = requestcontext.WithRoute(context.Background(), http.MethodGet, "/pets/x/health-records")
}

func (s *RelationshipSuite) TearDownTest() {
	s.ctrl.Finish()
}

// appointmentWith makes the store behave as if a single appointment with the
// given status linked vet and pet. The status is read on every call.
func (s *RelationshipSuite) appointmentWith(vet domain.AccountID, pet domain.PetID, status *apptmodels.Status) {
	s.store.EXPECT().
		ExistsForVetAndPet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, v domain.AccountID, p domain.PetID, statuses []apptmodels.Status) (bool, error) {
			return v == vet && p == pet && slices.Contains(statuses, *status), nil
		}).
		AnyTimes()
}

func (s *RelationshipSuite) TestGrantIffAcceptableStatus() {
	cases := []struct {
		op     OperationClass
		grants []apptmodels.Status
	}{
		{OperationRead, []apptmodels.Status{apptmodels.StatusPending, apptmodels.StatusConfirmed, apptmodels.StatusInProgress, apptmodels.StatusCompleted}},
		{OperationWrite, []apptmodels.Status{apptmodels.StatusConfirmed, apptmodels.StatusInProgress, apptmodels.StatusCompleted}},
	}
	vet := testutil.Vet(true)
	pet := domain.PetID(uuid.New())
	status := apptmodels.StatusPending
	s.appointmentWith(vet.ID, pet, &status)

	for _, tc := range cases {
		for _, st := range allStatuses {
			status = st
			err := s.resolver.Resolve(s.ctx, vet, pet, tc.op)
			if slices.Contains(tc.grants, st) {
				s.NoError(err, "%s with %s appointment should grant", tc.op, st)
			} else {
				s.True(dErrors.HasCode(err, dErrors.CodeForbidden), "%s with %s appointment should deny", tc.op, st)
			}
		}
	}
}

func (s *RelationshipSuite) TestPendingGrantsReadNotWriteUntilConfirmed() {
	vet := testutil.Vet(true)
	pet := domain.PetID(uuid.New())
	status := apptmodels.StatusPending
	s.appointmentWith(vet.ID, pet, &status)

	s.Require().NoError(s.resolver.Resolve(s.ctx, vet, pet, OperationRead))
	err := s.resolver.Resolve(s.ctx, vet, pet, OperationWrite)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal(ReasonNoAppointment, dErrors.ReasonOf(err))

	status = apptmodels.StatusConfirmed
	s.Require().NoError(s.resolver.Resolve(s.ctx, vet, pet, OperationWrite))
}

func (s *RelationshipSuite) TestOtherVetOrPetDenied() {
	vet := testutil.Vet(true)
	pet := domain.PetID(uuid.New())
	status := apptmodels.StatusConfirmed
	s.appointmentWith(vet.ID, pet, &status)

	s.Error(s.resolver.Resolve(s.ctx, testutil.Vet(true), pet, OperationRead))
	s.Error(s.resolver.Resolve(s.ctx, vet, domain.PetID(uuid.New()), OperationRead))
}

func (s *RelationshipSuite) TestDenialWritesExactlyOneAuditEntry() {
	vet := testutil.Vet(true)
	pet := domain.PetID(uuid.New())
	s.store.EXPECT().ExistsForVetAndPet(gomock.Any(), vet.ID, pet, AcceptableStatuses(OperationWrite)).Return(false, nil)

	err := s.resolver.Resolve(s.ctx, vet, pet, OperationWrite)
	s.Require().Error(err)

	entries := s.auditor.all()
	s.Require().Len(entries, 1)
	e := entries[0]
	s.Equal(audit.ActionUnauthorizedVetPetAccess, e.Action)
	s.Equal("pet", e.ResourceType)
	s.Equal(pet.String(), e.ResourceID)
	s.Equal(vet.ID.String(), e.Detail["vet_id"])
	s.Equal(pet.String(), e.Detail["pet_id"])
	s.Equal(http.MethodGet, e.Detail["method"])
	s.Equal("/pets/x/health-records", e.Detail["path"])
	s.Equal("write", e.Detail["operation"])
}

func (s *RelationshipSuite) TestNonVetDenialNamesTheAttempter() {
	owner := testutil.Owner()
	pet := domain.PetID(uuid.New())

	err := s.resolver.Resolve(s.ctx, owner, pet, OperationRead)
	s.Equal(ReasonRoleNotVet, dErrors.ReasonOf(err))

	entries := s.auditor.all()
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionUnauthorizedAccessAttempt, entries[0].Action)
	s.Equal(owner.ID.String(), entries[0].Detail["attempted_by"])
	s.Equal("owner", entries[0].Detail["caller_role"])
	s.NotContains(entries[0].Detail, "vet_id")
}

func (s *RelationshipSuite) TestVetOnlyDeniesVerifiedAdmins() {
	admin := testutil.Admin(true)
	pet := domain.PetID(uuid.New())

	s.NoError(s.resolver.ResolveTarget(s.ctx, admin, HealthRecordTarget(pet, ""), OperationWrite))
	s.Empty(s.auditor.all())

	err := s.resolver.ResolveVetOnly(s.ctx, admin, HealthRecordTarget(pet, ""), OperationWrite)
	s.Equal(ReasonRoleNotVet, dErrors.ReasonOf(err))

	entries := s.auditor.all()
	s.Require().Len(entries, 1)
	s.Equal(admin.ID.String(), entries[0].Detail["attempted_by"])
}

func (s *RelationshipSuite) TestRepeatedDenialsProduceIndependentEntries() {
	vet := testutil.Vet(true)
	pet := domain.PetID(uuid.New())
	s.store.EXPECT().ExistsForVetAndPet(gomock.Any(), vet.ID, pet, gomock.Any()).Return(false, nil).Times(2)

	_ = s.resolver.Resolve(s.ctx, vet, pet, OperationRead)
	_ = s.resolver.Resolve(s.ctx, vet, pet, OperationRead)

	entries := s.auditor.all()
	s.Require().Len(entries, 2)
	s.NotEqual(entries[0].ID, entries[1].ID)
}

func (s *RelationshipSuite) TestRecordSpecificDenialAction() {
	vet := testutil.Vet(true)
	pet := domain.PetID(uuid.New())
	s.store.EXPECT().ExistsForVetAndPet(gomock.Any(), vet.ID, pet, gomock.Any()).Return(false, nil).Times(2)

	_ = s.resolver.ResolveTarget(s.ctx, vet, HealthRecordTarget(pet, ""), OperationWrite)
	_ = s.resolver.ResolveTarget(s.ctx, vet, DocumentTarget(pet, "doc-1"), OperationRead)

	entries := s.auditor.all()
	s.Require().Len(entries, 2)
	s.Equal(audit.ActionUnauthorizedVetHealthRecordAccess, entries[0].Action)
	s.Equal("health_record", entries[0].ResourceType)
	s.Equal(audit.ActionUnauthorizedVetDocumentAccess, entries[1].Action)
	s.Equal("doc-1", entries[1].ResourceID)
}

func (s *RelationshipSuite) TestUnverifiedVetDeniedBeforeDataAccess() {
	// no EXPECT: any store call fails the test
	vet := testutil.Vet(false)

	err := s.resolver.Resolve(s.ctx, vet, domain.PetID(uuid.New()), OperationRead)

	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal(ReasonVetUnverified, dErrors.ReasonOf(err))
	s.Require().Equal(1, s.auditor.count())
	s.Equal(audit.ActionUnauthorizedVetPetAccess, s.auditor.all()[0].Action)
}

func (s *RelationshipSuite) TestVerifiedAdminGrantsWithoutLookup() {
	for _, op := range []OperationClass{OperationRead, OperationWrite} {
		s.NoError(s.resolver.Resolve(s.ctx, testutil.Admin(true), domain.PetID(uuid.New()), op))
	}
	s.Zero(s.auditor.count())
}

func (s *RelationshipSuite) TestUnverifiedAdminDenied() {
	err := s.resolver.Resolve(s.ctx, testutil.Admin(false), domain.PetID(uuid.New()), OperationRead)
	s.True(dErrors.HasCode(err, dErrors.CodeAdminUnverified))
	s.Equal(1, s.auditor.count())
}

func (s *RelationshipSuite) TestNonVetRolesDenied() {
	for _, caller := range []domain.Caller{testutil.Owner(), testutil.Shelter()} {
		err := s.resolver.Resolve(s.ctx, caller, domain.PetID(uuid.New()), OperationRead)
		s.Equal(ReasonRoleNotVet, dErrors.ReasonOf(err))
	}
	entries := s.auditor.all()
	s.Require().Len(entries, 2)
	s.Equal(audit.ActionUnauthorizedAccessAttempt, entries[0].Action)
}

func (s *RelationshipSuite) TestStoreFailureIsInternalAndNotAudited() {
	vet := testutil.Vet(true)
	s.store.EXPECT().ExistsForVetAndPet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(false, errors.New("connection reset"))

	err := s.resolver.Resolve(s.ctx, vet, domain.PetID(uuid.New()), OperationRead)

	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Zero(s.auditor.count())
}

func (s *RelationshipSuite) TestVisiblePetIDs() {
	vet := testutil.Vet(true)
	p1, p2 := domain.PetID(uuid.New()), domain.PetID(uuid.New())
	s.store.EXPECT().PetIDsForVet(gomock.Any(), vet.ID, AcceptableStatuses(OperationRead)).Return([]domain.PetID{p1, p2, p1}, nil)

	scope, err := s.resolver.VisiblePetIDs(s.ctx, vet, OperationRead)

	s.Require().NoError(err)
	s.False(scope.IsUnrestricted())
	s.Equal(2, scope.Len())
	s.True(scope.Contains(p1))
	s.True(scope.Contains(p2))
	s.False(scope.Contains(domain.PetID(uuid.New())))
	s.ElementsMatch([]domain.PetID{p1, p2}, scope.IDs())
}

func (s *RelationshipSuite) TestVisiblePetIDsByRole() {
	scope, err := s.resolver.VisiblePetIDs(s.ctx, testutil.Admin(true), OperationRead)
	s.Require().NoError(err)
	s.True(scope.IsUnrestricted())
	s.Nil(scope.IDs())

	_, err = s.resolver.VisiblePetIDs(s.ctx, testutil.Vet(false), OperationRead)
	s.Equal(ReasonVetUnverified, dErrors.ReasonOf(err))

	_, err = s.resolver.VisiblePetIDs(s.ctx, testutil.Owner(), OperationRead)
	s.Equal(ReasonRoleNotVet, dErrors.ReasonOf(err))
}

func TestFilterScope(t *testing.T) {
	p1, p2 := domain.PetID(uuid.New()), domain.PetID(uuid.New())
	items := []domain.PetID{p1, p2, p1}
	identity := func(id domain.PetID) domain.PetID { return id }

	assert.Equal(t, []domain.PetID{p1, p1}, FilterScope(ScopeOf(p1), items, identity))
	assert.Equal(t, items, FilterScope(Unrestricted(), items, identity))
	assert.Empty(t, FilterScope(ScopeOf(), items, identity))
}

func TestRequireVetRelationshipMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockAppointmentStore(ctrl)
	auditor := &recordingAuditor{}
	resolver := NewRelationshipResolver(store, auditor)

	vet := testutil.Vet(true)
	treated := domain.PetID(uuid.New())
	untreated := domain.PetID(uuid.New())
	store.EXPECT().ExistsForVetAndPet(gomock.Any(), vet.ID, gomock.Any(), AcceptableStatuses(OperationWrite)).
		DoAndReturn(func(_ context.Context, _ domain.AccountID, p domain.PetID, _ []apptmodels.Status) (bool, error) {
			return p == treated, nil
		}).AnyTimes()
	exists := func(_ context.Context, id domain.PetID) error {
		if id == treated || id == untreated {
			return nil
		}
		return NotFound("pet")
	}

	r := chi.NewRouter()
	r.With(resolver.RequireVetRelationship("petID", OperationWrite, exists, func(id domain.PetID) Target {
		return HealthRecordTarget(id, "")
	})).Post("/pets/{petID}/health-records", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	serve := func(caller domain.Caller, path string) int {
		req := testutil.AsCaller(httptest.NewRequest(http.MethodPost, path, nil), caller)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, serve(vet, "/pets/"+treated.String()+"/health-records"))
	assert.Equal(t, http.StatusForbidden, serve(vet, "/pets/"+untreated.String()+"/health-records"))
	assert.Equal(t, http.StatusBadRequest, serve(vet, "/pets/not-a-uuid/health-records"))

	entries := auditor.all()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionUnauthorizedVetHealthRecordAccess, entries[0].Action)

	t.Run("unknown pet is not found before authorization", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, serve(vet, "/pets/"+uuid.NewString()+"/health-records"))
		assert.Len(t, auditor.all(), 1, "no denial is recorded for a missing pet")
	})

	t.Run("verified admin is denied and audited", func(t *testing.T) {
		admin := testutil.Admin(true)
		assert.Equal(t, http.StatusForbidden, serve(admin, "/pets/"+treated.String()+"/health-records"))
		entries := auditor.all()
		require.Len(t, entries, 2)
		assert.Equal(t, ReasonRoleNotVet, entries[1].Detail["reason"])
		assert.Equal(t, admin.ID.String(), entries[1].Detail["attempted_by"])
	})
}
