package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"petcare/internal/realtime/metrics"
	dErrors "petcare/pkg/domain-errors"
	"petcare/pkg/requestcontext"
)

// RoomGate authorizes the caller in ctx to join a chat room and returns the
// canonical room name that fan-out publishes under.
type RoomGate interface {
	AuthorizeJoin(ctx context.Context, roomID string) (string, error)
}

// HandlerConfig tunes the websocket endpoint.
type HandlerConfig struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// Handler serves the websocket push channel. Identity is fixed when the
// connection opens; the route is expected behind optional authentication.
type Handler struct {
	registry *Registry
	gate     RoomGate
	cfg      HandlerConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewHandler(registry *Registry, gate RoomGate, cfg HandlerConfig, logger *slog.Logger, m *metrics.Metrics) *Handler {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 32
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{registry: registry, gate: gate, cfg: cfg, logger: logger, metrics: m}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/ws", h.HandleConnect)
}

// inbound is a client command.
type inbound struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

const (
	commandJoin  = "join"
	commandLeave = "leave"
)

func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.cfg.AllowedOrigins})
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := NewClient(requestcontext.Caller(ctx), h.cfg.SendBuffer)
	h.registry.Add(client)
	h.metrics.ConnectionOpened()
	defer func() {
		h.registry.Remove(client)
		h.metrics.ConnectionClosed()
	}()

	h.logger.InfoContext(ctx, "websocket connected",
		"request_id", requestcontext.RequestID(ctx),
		"connection_id", client.ID(),
		"anonymous", client.IsAnonymous(),
	)

	client.enqueue(Event{Type: EventReady, Payload: map[string]any{"connection_id": client.ID()}, SentAt: time.Now()})

	readErr := make(chan error, 1)
	go func() {
		readErr <- h.readLoop(ctx, conn, client)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case evt, ok := <-client.Events():
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err := wsjson.Write(writeCtx, conn, evt)
			cancelWrite()
			if err != nil {
				h.metrics.IncrementDropped("write_failed")
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, client *Client) error {
	// requested room name -> canonical name, owned by this goroutine
	joined := make(map[string]string)
	for {
		var msg inbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		switch msg.Type {
		case commandJoin:
			if name, ok := h.join(ctx, client, msg.Room); ok {
				joined[msg.Room] = name
			}
		case commandLeave:
			name, ok := joined[msg.Room]
			if !ok {
				name = msg.Room
			}
			h.registry.Leave(name, client)
			delete(joined, msg.Room)
		default:
			client.enqueue(errorEvent(msg.Room, "unknown command"))
		}
	}
}

func (h *Handler) join(ctx context.Context, client *Client, room string) (string, bool) {
	if client.IsAnonymous() {
		client.enqueue(errorEvent(room, ErrAnonymous.Error()))
		return "", false
	}
	if h.gate == nil {
		client.enqueue(errorEvent(room, "rooms are not available"))
		return "", false
	}
	name, err := h.gate.AuthorizeJoin(ctx, room)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket room join denied",
			"request_id", requestcontext.RequestID(ctx),
			"connection_id", client.ID(),
			"room", room,
			"error", err,
		)
		client.enqueue(errorEvent(room, publicMessage(err)))
		return "", false
	}
	if err := h.registry.JoinClient(name, client); err != nil {
		client.enqueue(errorEvent(room, err.Error()))
		return "", false
	}
	client.enqueue(Event{Type: EventRoomJoined, Room: name, SentAt: time.Now()})
	return name, true
}

func errorEvent(room, message string) Event {
	return Event{Type: EventError, Room: room, Payload: map[string]string{"message": message}, SentAt: time.Now()}
}

// publicMessage hides internal failure detail from clients.
func publicMessage(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Code != dErrors.CodeInternal {
		return de.Message
	}
	return "request failed"
}
