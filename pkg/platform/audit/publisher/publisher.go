// Package publisher implements the audit recorder: a bounded async buffer in
// front of an audit.Store, with a dead-letter counter for entries that could
// not be persisted and an optional stream mirror.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"petcare/pkg/domain"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/audit/worker"
)

// ErrBufferFull is returned by Emit when the async buffer has no room.
var ErrBufferFull = errors.New("audit buffer full")

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

// Mirror receives every persisted entry (e.g. a Kafka topic for SIEM).
type Mirror interface {
	Publish(ctx context.Context, entry audit.Entry) error
}

// Publisher records audit entries. In async mode Record and Emit enqueue and
// a single worker persists; otherwise both write inline.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	mirror  Mirror

	bufferSize int
	buffer     chan audit.Entry
	worker     *worker.Worker
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	deadLetters atomic.Int64
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables async mode with a buffer of n entries.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.bufferSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithMirror(m Mirror) Option {
	return func(p *Publisher) {
		p.mirror = m
	}
}

// NewPublisher creates a Publisher and, in async mode, starts its worker.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}

	var inbox chan audit.Entry
	if p.bufferSize > 0 {
		inbox = make(chan audit.Entry, p.bufferSize)
		p.buffer = inbox
	}
	p.worker = worker.NewWorker(store, inbox, p.onPersistFailure)
	p.worker.OnPersisted(p.onPersisted)

	if p.buffer != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.worker.Run(context.Background())
		}()
	}
	return p
}

// Record enqueues entry without blocking and never fails the caller. An entry
// that cannot be buffered or persisted is counted as a dead letter and logged.
func (p *Publisher) Record(ctx context.Context, entry audit.Entry) {
	entry = audit.Enrich(ctx, entry)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.deadLetter(ctx, entry, "closed", ErrClosed)
		return
	}
	if p.buffer == nil {
		p.worker.Persist(ctx, entry)
		return
	}
	select {
	case p.buffer <- entry:
		p.metrics.SetBufferDepth(len(p.buffer))
	default:
		p.deadLetter(ctx, entry, "buffer_full", ErrBufferFull)
	}
}

// Emit records entry and reports failure to the caller. In async mode only
// enqueueing can fail.
func (p *Publisher) Emit(ctx context.Context, entry audit.Entry) error {
	entry = audit.Enrich(ctx, entry)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if p.buffer == nil {
		if err := p.store.Append(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		p.onPersisted(ctx, entry)
		return nil
	}
	select {
	case p.buffer <- entry:
		p.metrics.SetBufferDepth(len(p.buffer))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// Query passes through to the store.
func (p *Publisher) Query(ctx context.Context, filter audit.Filter, page audit.Page) ([]audit.Entry, error) {
	return p.store.Query(ctx, filter, page.Normalize())
}

// List returns the most recent entries recorded for an actor, newest first.
func (p *Publisher) List(ctx context.Context, actorID domain.AccountID) ([]audit.Entry, error) {
	return p.Query(ctx, audit.Filter{ActorID: actorID}, audit.Page{Limit: audit.MaxPageLimit})
}

// DeadLettered returns how many entries were dropped since start.
func (p *Publisher) DeadLettered() int64 {
	return p.deadLetters.Load()
}

// Close stops accepting entries and drains the buffer.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.buffer != nil {
		close(p.buffer)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) onPersisted(ctx context.Context, entry audit.Entry) {
	p.metrics.IncRecorded(string(entry.Action))
	if p.buffer != nil {
		p.metrics.SetBufferDepth(len(p.buffer))
	}
	if p.mirror == nil {
		return
	}
	if err := p.mirror.Publish(ctx, entry); err != nil {
		p.metrics.IncMirrorFailures()
		p.logger.WarnContext(ctx, "audit mirror publish failed",
			"error", err,
			"audit_id", entry.ID.String(),
			"action", string(entry.Action),
		)
	}
}

func (p *Publisher) onPersistFailure(entry audit.Entry, err error) {
	p.deadLetter(context.Background(), entry, "store_error", err)
}

func (p *Publisher) deadLetter(ctx context.Context, entry audit.Entry, reason string, err error) {
	p.deadLetters.Add(1)
	p.metrics.IncDeadLetter(reason)
	p.logger.ErrorContext(ctx, "audit entry dropped",
		"reason", reason,
		"error", err,
		"audit_id", entry.ID.String(),
		"action", string(entry.Action),
		"actor_id", entry.ActorID.String(),
		"request_id", entry.RequestID,
	)
}

var _ audit.Recorder = (*Publisher)(nil)
