package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcare/internal/access"
	accountstore "petcare/internal/account/store"
	"petcare/internal/notifications/models"
	"petcare/internal/notifications/service"
	"petcare/internal/notifications/store"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/platform/audit/publisher"
	auditmemory "petcare/pkg/platform/audit/store/memory"
	"petcare/pkg/testutil"
)

type fixture struct {
	router http.Handler
	svc    *service.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	auditor := publisher.NewPublisher(auditmemory.NewInMemoryStore())
	svc := service.New(store.NewInMemory(), accountstore.NewInMemory(), service.WithAuditor(auditor))
	h := New(svc, access.NewOwnershipResolver(auditor), slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	return fixture{router: r, svc: svc}
}

func (f fixture) send(t *testing.T, to domain.Caller) *models.Notification {
	t.Helper()
	n, err := f.svc.Send(context.Background(), models.Draft{RecipientID: to.ID, Title: "Appointment confirmed", Type: models.TypeAppointmentStatus})
	require.NoError(t, err)
	return n
}

func TestHandleList(t *testing.T) {
	f := newFixture(t)
	owner := testutil.Owner()
	f.send(t, owner)
	f.send(t, testutil.Owner())

	rr := testutil.DoRequest(f.router, testutil.AsCaller(testutil.NewRequest(t, http.MethodGet, "/notifications?unread=true"), owner))

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[listResponse](t, rr)
	assert.Equal(t, 1, resp.Count)

	rr = testutil.DoRequest(f.router, testutil.AsCaller(testutil.NewRequest(t, http.MethodGet, "/notifications?limit=-1"), owner))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestHandleMarkRead(t *testing.T) {
	testutil.Given(t, "a notification addressed to the caller", func(t *testing.T) {
		f := newFixture(t)
		owner := testutil.Owner()
		n := f.send(t, owner)

		rr := testutil.DoRequest(f.router, testutil.AsCaller(
			testutil.NewRequest(t, http.MethodPost, "/notifications/"+n.ID.String()+"/read"), owner))

		testutil.Then(t, "it is marked read", func(t *testing.T) {
			testutil.AssertStatusOK(t, rr)
			testutil.AssertJSONContains(t, rr, "read", true)
		})
	})

	testutil.Given(t, "a notification addressed to someone else", func(t *testing.T) {
		f := newFixture(t)
		n := f.send(t, testutil.Owner())

		rr := testutil.DoRequest(f.router, testutil.AsCaller(
			testutil.NewRequest(t, http.MethodPost, "/notifications/"+n.ID.String()+"/read"), testutil.Vet(true)))

		testutil.Then(t, "the caller is denied", func(t *testing.T) {
			testutil.AssertStatusAndError(t, rr, http.StatusForbidden, string(dErrors.CodeForbidden))
		})
	})
}

func TestHandleBroadcast(t *testing.T) {
	f := newFixture(t)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/notifications/broadcast", map[string]any{
		"title":        "Clinic closed",
		"target_roles": []string{"owner", "unicorn"},
	})
	rr := testutil.DoRequest(f.router, testutil.AsCaller(req, testutil.Admin(true)))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))

	req = testutil.NewJSONRequest(t, http.MethodPost, "/admin/notifications/broadcast", map[string]any{
		"title":    "Clinic closed",
		"priority": "high",
	})
	rr = testutil.DoRequest(f.router, testutil.AsCaller(req, testutil.Admin(true)))
	testutil.AssertStatus(t, rr, http.StatusAccepted)
	testutil.AssertJSONContains(t, rr, "recipients", float64(0))
}
