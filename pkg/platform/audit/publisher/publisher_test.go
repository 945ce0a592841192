package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcare/pkg/domain"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/audit/store/memory"
	"petcare/pkg/requestcontext"
)

type recordingMirror struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (m *recordingMirror) Publish(_ context.Context, e audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return m.err
}

func (m *recordingMirror) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	actor := domain.AccountID(uuid.New())
	err := pub.Emit(context.Background(), audit.Entry{ActorID: actor, Action: audit.ActionPetCreated})
	require.NoError(t, err)

	entries, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionPetCreated, entries[0].Action)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	actor := domain.AccountID(uuid.New())
	pub.Record(context.Background(), audit.Entry{ActorID: actor, Action: audit.ActionLogin})

	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 10*time.Millisecond)

	entries, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionLogin, entries[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	actor := domain.AccountID(uuid.New())
	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Entry{ActorID: actor, Action: audit.ActionLogin}))
	}

	pub.Close()

	assert.Equal(t, 10, store.Len(), "all entries should be drained on close")
}

func TestPublisher_BufferFull_CountsDeadLetters(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pub.Record(context.Background(), audit.Entry{Action: audit.ActionLogin})
		}()
	}
	wg.Wait()
	pub.Close()

	// Every entry is either persisted or counted, never lost silently.
	assert.EqualValues(t, 50, int64(store.Len())+pub.DeadLettered())
}

func TestPublisher_StoreFailure_NeverSurfacesFromRecord(t *testing.T) {
	store := memory.NewInMemoryStore()
	store.FailAppends(errors.New("db down"))
	pub := NewPublisher(store, WithAsyncBuffer(4))

	pub.Record(context.Background(), audit.Entry{Action: audit.ActionUnauthorizedOwnershipAccess})
	pub.Close()

	assert.EqualValues(t, 1, pub.DeadLettered())
	assert.Equal(t, 0, store.Len())
}

func TestPublisher_SyncEmitReturnsStoreError(t *testing.T) {
	store := memory.NewInMemoryStore()
	store.FailAppends(errors.New("db down"))
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Entry{Action: audit.ActionLogin})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestPublisher_SetsTimestampFromRequest(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	actor := domain.AccountID(uuid.New())
	requestTime := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), requestTime)

	require.NoError(t, pub.Emit(ctx, audit.Entry{ActorID: actor, Action: audit.ActionLogin}))

	entries, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, requestTime, entries[0].CreatedAt)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	actor := domain.AccountID(uuid.New())
	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Entry{ActorID: actor, Action: audit.ActionLogin, CreatedAt: customTime}))

	entries, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, customTime, entries[0].CreatedAt)
}

func TestPublisher_ContextCancellation(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	_ = pub.Emit(context.Background(), audit.Entry{Action: audit.ActionLogin})
	_ = pub.Emit(context.Background(), audit.Entry{Action: audit.ActionLogin})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Emit(ctx, audit.Entry{Action: audit.ActionLogin})
	if err != nil {
		assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrBufferFull),
			"expected context.Canceled or buffer full error, got: %v", err)
	}
}

func TestPublisher_QueryOrderingNewestFirst(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	actor := domain.AccountID(uuid.New())
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	actions := []audit.Action{audit.ActionLogin, audit.ActionPetCreated, audit.ActionLogout}
	for i, a := range actions {
		require.NoError(t, pub.Emit(context.Background(), audit.Entry{
			ActorID:   actor,
			Action:    a,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	result, err := pub.List(context.Background(), actor)
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, audit.ActionLogout, result[0].Action)
	assert.Equal(t, audit.ActionPetCreated, result[1].Action)
	assert.Equal(t, audit.ActionLogin, result[2].Action)

	page, err := pub.Query(context.Background(), audit.Filter{ActorID: actor}, audit.Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, audit.ActionPetCreated, page[0].Action)
}

func TestPublisher_MirrorsPersistedEntries(t *testing.T) {
	store := memory.NewInMemoryStore()
	mirror := &recordingMirror{err: errors.New("kafka unavailable")}
	pub := NewPublisher(store, WithAsyncBuffer(4), WithMirror(mirror))

	pub.Record(context.Background(), audit.Entry{Action: audit.ActionLogin})
	pub.Close()

	// Mirror failure does not turn a persisted entry into a dead letter.
	assert.Equal(t, 1, mirror.count())
	assert.Equal(t, 1, store.Len())
	assert.EqualValues(t, 0, pub.DeadLettered())
}

func TestPublisher_RecordAfterClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(4))
	pub.Close()

	pub.Record(context.Background(), audit.Entry{Action: audit.ActionLogin})
	assert.EqualValues(t, 1, pub.DeadLettered())
	assert.ErrorIs(t, pub.Emit(context.Background(), audit.Entry{Action: audit.ActionLogin}), ErrClosed)
}
