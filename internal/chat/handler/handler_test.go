package handler

import (
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

	"petcare/internal/chat/handler/mocks"
	"petcare/internal/chat/models"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

var now = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r, svc
}

func testRoom(t *testing.T) *models.Room {
	t.Helper()
	appt := domain.AppointmentID(uuid.New())
	room, err := models.NewRoom(domain.ChatRoomID(uuid.New()), &appt, domain.PetID(uuid.New()), domain.AccountID(uuid.New()), domain.AccountID(uuid.New()), now)
	require.NoError(t, err)
	return room
}

func TestHandleCreateRoom(t *testing.T) {
	t.Run("new room is 201, existing room is 200", func(t *testing.T) {
		r, svc := newTestRouter(t)
		room := testRoom(t)
		gomock.InOrder(
			svc.EXPECT().CreateRoom(gomock.Any(), *room.AppointmentID).Return(room, true, nil),
			svc.EXPECT().CreateRoom(gomock.Any(), *room.AppointmentID).Return(room, false, nil),
		)
		body := map[string]string{"appointment_id": room.AppointmentID.String()}

		rr := testutil.DoRequest(r, testutil.AsCaller(testutil.NewJSONRequest(t, http.MethodPost, "/chat/rooms", body), testutil.Owner()))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[RoomResponse](t, rr)
		assert.Equal(t, room.ID.String(), resp.ID)

		rr = testutil.DoRequest(r, testutil.AsCaller(testutil.NewJSONRequest(t, http.MethodPost, "/chat/rooms", body), testutil.Owner()))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("invalid appointment id", func(t *testing.T) {
		r, _ := newTestRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/chat/rooms", map[string]string{"appointment_id": "42"})
		rr := testutil.DoRequest(r, testutil.AsCaller(req, testutil.Owner()))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func TestHandleSendMessage(t *testing.T) {
	testutil.Given(t, "an owner writing before the vet engaged", func(t *testing.T) {
		r, svc := newTestRouter(t)
		room := testRoom(t)
		svc.EXPECT().SendMessage(gomock.Any(), room.ID, "hello").
			Return(nil, dErrors.New(dErrors.CodeConflict, "the vet has not joined this conversation yet"))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/chat/rooms/"+room.ID.String()+"/messages", map[string]string{"body": "hello"})
		rr := testutil.DoRequest(r, testutil.AsCaller(req, testutil.Owner()))

		testutil.Then(t, "delivery is rejected", func(t *testing.T) {
			testutil.AssertStatus(t, rr, http.StatusConflict)
		})
	})

	testutil.Given(t, "the vet writing", func(t *testing.T) {
		r, svc := newTestRouter(t)
		room := testRoom(t)
		msg, err := models.NewMessage(room.ID, room.VetID, "hi", now)
		require.NoError(t, err)
		svc.EXPECT().SendMessage(gomock.Any(), room.ID, "hi").Return(msg, nil)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/chat/rooms/"+room.ID.String()+"/messages", map[string]string{"body": "hi"})
		rr := testutil.DoRequest(r, testutil.AsCaller(req, testutil.Vet(true)))

		testutil.Then(t, "the message is returned", func(t *testing.T) {
			testutil.AssertStatus(t, rr, http.StatusCreated)
			testutil.AssertJSONContains(t, rr, "sender_id", room.VetID.String())
		})
	})
}

func TestHandleJoinAndHistory(t *testing.T) {
	r, svc := newTestRouter(t)
	room := testRoom(t)
	svc.EXPECT().JoinRoom(gomock.Any(), room.ID).Return(room, 2, nil)
	svc.EXPECT().History(gomock.Any(), room.ID, 10).Return([]*models.Message{}, nil)

	rr := testutil.DoRequest(r, testutil.AsCaller(testutil.NewRequest(t, http.MethodPost, "/chat/rooms/"+room.ID.String()+"/join"), testutil.Owner()))
	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[joinResponse](t, rr)
	assert.Equal(t, 2, resp.Connections)

	rr = testutil.DoRequest(r, testutil.AsCaller(testutil.NewRequest(t, http.MethodGet, "/chat/rooms/"+room.ID.String()+"/messages?limit=10"), testutil.Owner()))
	testutil.AssertStatusOK(t, rr)

	rr = testutil.DoRequest(r, testutil.AsCaller(testutil.NewRequest(t, http.MethodGet, "/chat/rooms/"+room.ID.String()+"/messages?limit=x"), testutil.Owner()))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}
