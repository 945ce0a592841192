package realtime

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"petcare/internal/realtime/metrics"
	"petcare/pkg/domain"
	"petcare/pkg/platform/circuit"
	pstrings "petcare/pkg/platform/strings"
	"petcare/pkg/requestcontext"
)

// AdminDirectory resolves the current admin audience.
type AdminDirectory interface {
	ListActiveVerifiedAdmins(ctx context.Context) ([]domain.AccountID, error)
}

// Bus relays envelopes between server instances.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(ctx context.Context, deliver func(Envelope)) error
	Ping(ctx context.Context) error
}

const (
	busPublishTimeout = 2 * time.Second
	busProbeInterval  = 5 * time.Second
)

// FanOut delivers events to local connections and, when a bus is configured,
// to the other instances. Every method is fire-and-forget.
type FanOut struct {
	registry   *Registry
	admins     AdminDirectory
	bus        Bus
	breaker    *circuit.Breaker
	instanceID string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*FanOut)

func WithLogger(logger *slog.Logger) Option {
	return func(f *FanOut) { f.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *FanOut) { f.metrics = m }
}

// WithBus enables cross-instance delivery. While the bus keeps failing the
// breaker opens and delivery continues on this instance only.
func WithBus(bus Bus) Option {
	return func(f *FanOut) { f.bus = bus }
}

func NewFanOut(registry *Registry, admins AdminDirectory, opts ...Option) *FanOut {
	f := &FanOut{
		registry:   registry,
		admins:     admins,
		breaker:    circuit.New("realtime-bus", circuit.WithFailureThreshold(3), circuit.WithSuccessThreshold(1)),
		instanceID: uuid.NewString(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ToUser pushes to every connection of one account.
func (f *FanOut) ToUser(ctx context.Context, id domain.AccountID, eventType string, payload any) {
	f.ToUsers(ctx, []domain.AccountID{id}, eventType, payload)
}

// ToUsers pushes to every connection of each account. An account listed
// twice receives the event once.
func (f *FanOut) ToUsers(ctx context.Context, ids []domain.AccountID, eventType string, payload any) {
	ids = pstrings.Unique(ids)
	if len(ids) == 0 {
		return
	}
	f.dispatch(ctx, Envelope{Scope: ScopeUsers, Recipients: ids, Event: f.event(ctx, eventType, "", payload)})
}

// ToAdmins pushes to active verified admins, resolved at send time so a
// demoted admin stops receiving immediately.
func (f *FanOut) ToAdmins(ctx context.Context, eventType string, payload any) {
	ids, err := f.admins.ListActiveVerifiedAdmins(ctx)
	if err != nil {
		f.logger.ErrorContext(ctx, "failed to resolve admin audience",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
			"event", eventType,
		)
		f.metrics.IncrementDropped("admin_lookup")
		return
	}
	f.ToUsers(ctx, ids, eventType, payload)
}

// Broadcast pushes to every open connection, anonymous ones included.
func (f *FanOut) Broadcast(ctx context.Context, eventType string, payload any) {
	f.dispatch(ctx, Envelope{Scope: ScopeBroadcast, Event: f.event(ctx, eventType, "", payload)})
}

// ToRoom pushes to the connections subscribed to room.
func (f *FanOut) ToRoom(ctx context.Context, room, eventType string, payload any) {
	f.dispatch(ctx, Envelope{Scope: ScopeRoom, Room: room, Event: f.event(ctx, eventType, room, payload)})
}

// JoinRoom subscribes the open connections of an account to room on this
// instance.
func (f *FanOut) JoinRoom(room string, id domain.AccountID) int {
	return f.registry.JoinAccount(room, id)
}

func (f *FanOut) event(ctx context.Context, eventType, room string, payload any) Event {
	return Event{Type: eventType, Room: room, Payload: payload, SentAt: requestcontext.Now(ctx)}
}

func (f *FanOut) dispatch(ctx context.Context, env Envelope) {
	env.Origin = f.instanceID
	f.Deliver(env)
	f.publish(ctx, env)
}

func (f *FanOut) publish(ctx context.Context, env Envelope) {
	if f.bus == nil || f.breaker.IsOpen() {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), busPublishTimeout)
	defer cancel()
	if err := f.bus.Publish(pubCtx, env); err != nil {
		f.metrics.IncrementBusFailure()
		_, change := f.breaker.RecordFailure()
		if change.Opened {
			f.metrics.SetBusDegraded(true)
			f.logger.WarnContext(ctx, "realtime bus circuit opened, delivering locally only",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return
	}
	f.breaker.RecordSuccess()
}

// Deliver queues env to the matching local connections. Full buffers drop
// the event for that connection only.
func (f *FanOut) Deliver(env Envelope) int {
	var targets []*Client
	switch env.Scope {
	case ScopeUsers:
		for _, id := range env.Recipients {
			targets = append(targets, f.registry.Lookup(id)...)
		}
	case ScopeBroadcast:
		targets = f.registry.All()
	case ScopeRoom:
		targets = f.registry.Members(env.Room)
	default:
		f.metrics.IncrementDropped("unknown_scope")
		return 0
	}

	delivered := 0
	for _, c := range targets {
		if c.enqueue(env.Event) {
			delivered++
			continue
		}
		f.metrics.IncrementDropped("slow_consumer")
	}
	f.metrics.IncrementDelivered(string(env.Scope), delivered)
	return delivered
}

// Run relays envelopes from other instances until ctx ends. While the
// breaker is open it probes the bus and resumes publishing once it answers.
func (f *FanOut) Run(ctx context.Context) error {
	if f.bus == nil {
		<-ctx.Done()
		return nil
	}
	go f.probe(ctx)
	return f.bus.Subscribe(ctx, func(env Envelope) {
		if env.Origin == f.instanceID {
			return
		}
		f.Deliver(env)
	})
}

func (f *FanOut) probe(ctx context.Context) {
	ticker := time.NewTicker(busProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !f.breaker.IsOpen() {
				continue
			}
			if err := f.bus.Ping(ctx); err != nil {
				f.breaker.RecordFailure()
				continue
			}
			if _, change := f.breaker.RecordSuccess(); change.Closed {
				f.metrics.SetBusDegraded(false)
				f.logger.InfoContext(ctx, "realtime bus circuit closed")
			}
		}
	}
}
