package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"petcare/internal/chat/models"
	"petcare/pkg/domain"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/platform/httputil"
	"petcare/pkg/requestcontext"
)

// Service defines the chat operations exposed over HTTP.
type Service interface {
	CreateRoom(ctx context.Context, appointmentID domain.AppointmentID) (*models.Room, bool, error)
	JoinRoom(ctx context.Context, roomID domain.ChatRoomID) (*models.Room, int, error)
	SendMessage(ctx context.Context, roomID domain.ChatRoomID, body string) (*models.Message, error)
	History(ctx context.Context, roomID domain.ChatRoomID, limit int) ([]*models.Message, error)
}

type Handler struct {
	logger *slog.Logger
	chat   Service
}

func New(chat Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, chat: chat}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/chat/rooms", h.HandleCreateRoom)
	r.Post("/chat/rooms/{roomID}/join", h.HandleJoin)
	r.Post("/chat/rooms/{roomID}/messages", h.HandleSendMessage)
	r.Get("/chat/rooms/{roomID}/messages", h.HandleHistory)
}

type createRoomRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type messageRequest struct {
	Body string `json:"body"`
}

type RoomResponse struct {
	ID            string    `json:"id"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	PetID         string    `json:"pet_id"`
	OwnerID       string    `json:"owner_id"`
	VetID         string    `json:"vet_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type joinResponse struct {
	Room        RoomResponse `json:"room"`
	Connections int          `json:"connections"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type historyResponse struct {
	Messages []MessageResponse `json:"messages"`
	Count    int               `json:"count"`
}

func toRoomResponse(r *models.Room) RoomResponse {
	resp := RoomResponse{
		ID:        r.ID.String(),
		PetID:     r.PetID.String(),
		OwnerID:   r.OwnerID.String(),
		VetID:     r.VetID.String(),
		CreatedAt: r.CreatedAt,
	}
	if r.AppointmentID != nil {
		resp.AppointmentID = r.AppointmentID.String()
	}
	return resp
}

func toMessageResponse(m *models.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID.String(),
		RoomID:    m.RoomID.String(),
		SenderID:  m.SenderID.String(),
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

func roomParam(r *http.Request) (domain.ChatRoomID, error) {
	return domain.ParseChatRoomID(chi.URLParam(r, "roomID"))
}

func (h *Handler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRoomRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	apptID, err := domain.ParseAppointmentID(req.AppointmentID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid appointment_id"))
		return
	}
	room, created, err := h.chat.CreateRoom(ctx, apptID)
	if err != nil {
		h.logError(ctx, "failed to create chat room", err,
			"request_id", requestcontext.RequestID(ctx),
			"appointment_id", apptID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, toRoomResponse(room))
}

func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID, err := roomParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	room, joined, err := h.chat.JoinRoom(ctx, roomID)
	if err != nil {
		h.logError(ctx, "failed to join chat room", err,
			"request_id", requestcontext.RequestID(ctx),
			"room_id", roomID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, joinResponse{Room: toRoomResponse(room), Connections: joined})
}

func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID, err := roomParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req messageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	msg, err := h.chat.SendMessage(ctx, roomID, req.Body)
	if err != nil {
		h.logError(ctx, "failed to send chat message", err,
			"request_id", requestcontext.RequestID(ctx),
			"room_id", roomID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toMessageResponse(msg))
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID, err := roomParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer"))
			return
		}
	}
	msgs, err := h.chat.History(ctx, roomID, limit)
	if err != nil {
		h.logError(ctx, "failed to load chat history", err,
			"request_id", requestcontext.RequestID(ctx),
			"room_id", roomID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	resp := historyResponse{Messages: make([]MessageResponse, 0, len(msgs)), Count: len(msgs)}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toMessageResponse(m))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) logError(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
