package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"petcare/internal/account/store"
	notifymodels "petcare/internal/notifications/models"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/audit/publisher"
	auditmemory "petcare/pkg/platform/audit/store/memory"
	"petcare/pkg/requestcontext"
	"petcare/pkg/testutil"
)

type fakeNotifier struct {
	mu     sync.Mutex
	drafts []notifymodels.Draft
	err    error
}

func (f *fakeNotifier) Send(_ context.Context, d notifymodels.Draft) (*notifymodels.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, d)
	if f.err != nil {
		return nil, f.err
	}
	return &notifymodels.Notification{RecipientID: d.RecipientID, Type: d.Type}, nil
}

type AccountServiceSuite struct {
	suite.Suite
	store      *store.InMemory
	auditStore *auditmemory.InMemoryStore
	notifier   *fakeNotifier
	svc        *Service
	admin      domain.Caller
	ctx        context.Context
}

func TestAccountServiceSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceSuite))
}

func (s *AccountServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.notifier = &fakeNotifier{}
	s.svc = New(s.store,
		WithAuditor(publisher.NewPublisher(s.auditStore)),
		WithNotifier(s.notifier),
		WithBcryptCost(bcrypt.MinCost),
	)
	s.admin = testutil.Admin(true)
	s.ctx = requestcontext.WithCaller(context.Background(), s.admin)
}

func (s *AccountServiceSuite) register(role domain.Role) domain.AccountID {
	a, err := s.svc.Register(context.Background(), role.String()+"-"+uuid.NewString()[:8]+"@petcare.example", "correct-horse", role)
	s.Require().NoError(err)
	return a.ID
}

func (s *AccountServiceSuite) TestRegister() {
	s.Run("hashes password and starts unverified", func() {
		a, err := s.svc.Register(context.Background(), "Owner@Example.com", "long-enough", domain.RoleOwner)
		s.Require().NoError(err)
		s.Equal("owner@example.com", a.Email)
		s.NoError(bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("long-enough")))
		s.False(a.Verified)
	})

	s.Run("rejects duplicate email", func() {
		_, err := s.svc.Register(context.Background(), "owner@example.com", "long-enough", domain.RoleOwner)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects short password", func() {
		_, err := s.svc.Register(context.Background(), "short@example.com", "short", domain.RoleOwner)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects invalid email as validation error", func() {
		_, err := s.svc.Register(context.Background(), "nope", "long-enough", domain.RoleOwner)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AccountServiceSuite) TestEnsureAdmin() {
	a, created, err := s.svc.EnsureAdmin(s.ctx, " Root@Example.com ", "correct-horse")
	s.Require().NoError(err)
	s.True(created)
	s.Equal(domain.RoleAdmin, a.Role)
	s.True(a.IsActiveVerifiedAdmin())
	s.True(a.EmailVerified)

	again, created, err := s.svc.EnsureAdmin(s.ctx, "root@example.com", "other-password")
	s.Require().NoError(err)
	s.False(created)
	s.Equal(a.ID, again.ID)

	entries, err := s.auditStore.Query(s.ctx, audit.Filter{Action: audit.ActionAccountVerified}, audit.Page{})
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *AccountServiceSuite) TestVerifyVet() {
	vet := s.register(domain.RoleVet)

	a, err := s.svc.VerifyVet(s.ctx, vet)
	s.Require().NoError(err)
	s.True(a.VetVerified)

	entries, err := s.auditStore.Query(context.Background(), audit.Filter{Action: audit.ActionVetVerified}, audit.Page{})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(s.admin.ID, entries[0].ActorID)
	s.Equal(vet.String(), entries[0].ResourceID)

	s.Require().Len(s.notifier.drafts, 1)
	s.Equal(notifymodels.TypeVetVerified, s.notifier.drafts[0].Type)
	s.Equal(vet, s.notifier.drafts[0].RecipientID)
	s.Require().NotNil(s.notifier.drafts[0].SenderID)
	s.Equal(s.admin.ID, *s.notifier.drafts[0].SenderID)

	_, err = s.svc.VerifyVet(s.ctx, vet)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "second verification is a conflict")
}

func (s *AccountServiceSuite) TestVerifyVet_RejectsNonVet() {
	owner := s.register(domain.RoleOwner)
	_, err := s.svc.VerifyVet(s.ctx, owner)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Empty(s.notifier.drafts)
}

func (s *AccountServiceSuite) TestDeactivateAndReactivate() {
	owner := s.register(domain.RoleOwner)

	a, err := s.svc.Deactivate(s.ctx, owner)
	s.Require().NoError(err)
	s.False(a.Active)

	stored, err := s.store.FindByID(context.Background(), owner)
	s.Require().NoError(err)
	s.False(stored.Active, "deactivation is persisted, not deleted")

	entries, err := s.auditStore.Query(context.Background(), audit.Filter{Action: audit.ActionAccountDeactivated}, audit.Page{})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.SeverityCritical, entries[0].Severity)

	a, err = s.svc.Reactivate(s.ctx, owner)
	s.Require().NoError(err)
	s.True(a.Active)
}

func (s *AccountServiceSuite) TestDeactivateSelfIsRejected() {
	_, err := s.svc.Deactivate(s.ctx, s.admin.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *AccountServiceSuite) TestUnknownAccount() {
	_, err := s.svc.Verify(s.ctx, testutil.Owner().ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *AccountServiceSuite) TestConfirmEmail_Idempotent() {
	owner := s.register(domain.RoleOwner)

	a, err := s.svc.ConfirmEmail(s.ctx, owner)
	s.Require().NoError(err)
	s.True(a.EmailVerified)
	first := *a.EmailVerifiedAt

	a, err = s.svc.ConfirmEmail(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(first, *a.EmailVerifiedAt)
	s.Len(s.notifier.drafts, 1, "second confirmation sends nothing")
}

func (s *AccountServiceSuite) TestNotifierFailureDoesNotFailAction() {
	s.notifier.err = errors.New("push down")
	owner := s.register(domain.RoleOwner)

	a, err := s.svc.Verify(s.ctx, owner)
	s.Require().NoError(err)
	s.True(a.Verified)
}
