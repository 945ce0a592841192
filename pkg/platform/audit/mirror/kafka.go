// Package mirror streams persisted audit entries to Kafka for SIEM
// consumers. The mirror is best-effort: the database row is the record.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while the broker is considered unavailable.
var ErrCircuitOpen = errors.New("audit mirror circuit open")

// Producer is the subset of *kgo.Client used by the mirror.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// message is the JSON wire format published per entry.
type message struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id,omitempty"`
	ActorRole    string         `json:"actor_role,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
	Origin       string         `json:"origin,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	Severity     string         `json:"severity"`
	Outcome      string         `json:"outcome"`
	CreatedAt    time.Time      `json:"created_at"`
}

func toMessage(e audit.Entry) message {
	m := message{
		ID:           e.ID.String(),
		Action:       string(e.Action),
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Detail:       e.Detail,
		Origin:       e.Origin,
		UserAgent:    e.UserAgent,
		RequestID:    e.RequestID,
		Severity:     string(e.Severity),
		Outcome:      string(e.Outcome),
		CreatedAt:    e.CreatedAt.UTC(),
	}
	if !e.ActorID.IsNil() {
		m.ActorID = e.ActorID.String()
	}
	if e.ActorRole.IsValid() {
		m.ActorRole = e.ActorRole.String()
	}
	return m
}

// KafkaMirror publishes entries keyed by actor so one actor's history stays
// ordered within a partition.
type KafkaMirror struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
	logger   *slog.Logger
	timeout  time.Duration
}

// Option configures a KafkaMirror.
type Option func(*KafkaMirror)

func WithBreaker(b *circuit.Breaker) Option {
	return func(m *KafkaMirror) { m.breaker = b }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *KafkaMirror) { m.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(m *KafkaMirror) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func NewKafkaMirror(producer Producer, topic string, opts ...Option) *KafkaMirror {
	m := &KafkaMirror{
		producer: producer,
		topic:    topic,
		breaker:  circuit.New("audit-mirror"),
		logger:   slog.Default(),
		timeout:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Publish sends one entry. While the circuit is open every other attempt is
// skipped until enough probes succeed.
func (m *KafkaMirror) Publish(ctx context.Context, entry audit.Entry) error {
	payload, err := json.Marshal(toMessage(entry))
	if err != nil {
		return fmt.Errorf("marshal audit message: %w", err)
	}

	key := []byte(entry.ID.String())
	if !entry.ActorID.IsNil() {
		key = []byte(entry.ActorID.String())
	}
	record := &kgo.Record{
		Topic: m.topic,
		Key:   key,
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(entry.Action)},
			{Key: "severity", Value: []byte(entry.Severity)},
		},
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	if err := m.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		useFallback, change := m.breaker.RecordFailure()
		if change.Opened {
			m.logger.Warn("audit mirror circuit opened", "topic", m.topic, "error", err)
		}
		if useFallback {
			return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return fmt.Errorf("produce audit record: %w", err)
	}
	if _, change := m.breaker.RecordSuccess(); change.Closed {
		m.logger.Info("audit mirror circuit closed", "topic", m.topic)
	}
	return nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// NewClient opens a franz-go client for the given seed brokers.
func NewClient(brokers []string, clientID string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}
